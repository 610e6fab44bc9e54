package nested

import (
	"errors"
	"fmt"

	"github.com/roach88/nested/internal/ir"
)

var (
	// ErrNotFound is returned when a key has no live value, including
	// lookups that index into a leaf as if it were nested.
	ErrNotFound = errors.New("not found")

	// ErrMissingValue rejects a write that carries no value. Nothing is
	// appended to the log.
	ErrMissingValue = errors.New("missing value")
)

// OpError reports a failed write or lookup together with the operation and
// key involved. Use errors.Is against ErrNotFound or ErrMissingValue to
// classify it.
type OpError struct {
	// Op is the operation kind: PUT, DEL, INSERT, MOVE, or GET for reads.
	Op ir.OpType

	// Key is the key operated on. Empty for root-level INSERT.
	Key string

	// Err is the underlying cause.
	Err error
}

// OpGet labels read failures in OpError.
const OpGet ir.OpType = "GET"

// Error implements the error interface.
func (e *OpError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Key, e.Err)
}

// Unwrap returns the underlying cause.
func (e *OpError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err means the key has no live value.
// Uses errors.Is to handle wrapped errors.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func opError(op ir.OpType, key string, err error) error {
	return &OpError{Op: op, Key: key, Err: err}
}
