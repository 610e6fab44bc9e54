package ir

import (
	"fmt"
	"strconv"
)

// OpType identifies the kind of operation recorded in the log.
type OpType string

const (
	// OpPut writes a value (leaf or whole tree) at a key, replacing whatever
	// was there including nested structure.
	OpPut OpType = "PUT"

	// OpDel tombstones a key and everything beneath it.
	OpDel OpType = "DEL"

	// OpInsert flattens a tree under a key (or the root) and merges it
	// leaf by leaf with the existing state.
	OpInsert OpType = "INSERT"

	// OpMove repositions an existing key among its siblings.
	OpMove OpType = "MOVE"
)

// ValidOps defines allowed operation types.
var ValidOps = map[OpType]bool{
	OpPut:    true,
	OpDel:    true,
	OpInsert: true,
	OpMove:   true,
}

// Operation is the payload appended to the log.
type Operation struct {
	Op OpType `json:"op"`

	// Key is nil only for a root-level INSERT.
	Key *string `json:"key"`

	// Value is the PUT value or the INSERT tree. nil means absent.
	Value Value `json:"value,omitempty"`

	// Position is the sibling sort key for PUT and MOVE.
	Position *float64 `json:"position,omitempty"`
}

// Put builds a PUT operation.
func Put(key string, value Value, position float64) Operation {
	return Operation{Op: OpPut, Key: &key, Value: value, Position: &position}
}

// Del builds a DEL operation.
func Del(key string) Operation {
	return Operation{Op: OpDel, Key: &key}
}

// Insert builds an INSERT operation. An empty key inserts at the root.
func Insert(key string, tree *Tree) Operation {
	op := Operation{Op: OpInsert, Value: tree}
	if key != "" {
		op.Key = &key
	}
	return op
}

// Move builds a MOVE operation.
func Move(key string, position float64) Operation {
	return Operation{Op: OpMove, Key: &key, Position: &position}
}

// KeyString returns the key, or "" for a root-level operation.
func (o Operation) KeyString() string {
	if o.Key == nil {
		return ""
	}
	return *o.Key
}

// Validate checks an operation before it is appended.
// Replay never calls Validate: historical entries are taken as they are.
func (o Operation) Validate() error {
	if !ValidOps[o.Op] {
		return fmt.Errorf("unknown operation %q", o.Op)
	}
	if o.Key == nil && o.Op != OpInsert {
		return fmt.Errorf("%s requires a key", o.Op)
	}
	switch o.Op {
	case OpPut:
		if o.Value == nil {
			return fmt.Errorf("PUT requires a value")
		}
		if err := CheckValue(o.Value); err != nil {
			return fmt.Errorf("PUT value: %w", err)
		}
	case OpInsert:
		if !IsTree(o.Value) {
			return fmt.Errorf("INSERT requires a nested value")
		}
		if err := CheckValue(o.Value); err != nil {
			return fmt.Errorf("INSERT value: %w", err)
		}
	case OpMove:
		if o.Position == nil {
			return fmt.Errorf("MOVE requires a position")
		}
	}
	return nil
}

// Entry is an immutable log record as returned by a traversal.
type Entry struct {
	Hash      string    `json:"hash"` // Content-addressed CID
	Seq       int64     `json:"seq"`  // Causal log position
	Operation Operation `json:"payload"`
}

// Materialized is one live entry of the reconstructed state.
type Materialized struct {
	Key   string `json:"key"`
	Value Value  `json:"value"`
	Hash  string `json:"hash"` // Hash of the log entry that wrote the value

	// Position is only meaningful when Positioned is true. Leaves written
	// by INSERT have no position unless a MOVE gave them one.
	Position   float64 `json:"position"`
	Positioned bool    `json:"positioned"`
}

// FormatPosition renders a position for hashing and display.
// The shortest representation that round-trips is used.
func FormatPosition(p float64) string {
	return strconv.FormatFloat(p, 'g', -1, 64)
}
