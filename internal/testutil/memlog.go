package testutil

import (
	"context"
	"iter"
	"slices"
	"sync"

	"github.com/roach88/nested/internal/ir"
)

// MemoryLog is an in-memory append-only log. It satisfies the log contract
// used by the nested package and by replay.
//
// Thread-safety: all methods are safe for concurrent use. A traversal walks
// the entries present when it started.
type MemoryLog struct {
	mu      sync.Mutex
	id      string
	clock   *SeqClock
	entries []ir.Entry
}

// NewMemoryLog returns an empty log identified by id.
func NewMemoryLog(id string) *MemoryLog {
	return &MemoryLog{id: id, clock: NewSeqClock()}
}

// ID returns the log id mixed into every entry hash.
func (l *MemoryLog) ID() string {
	return l.id
}

// AddOperation appends op and returns its entry hash.
func (l *MemoryLog) AddOperation(ctx context.Context, op ir.Operation) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	seq := l.clock.Current() + 1
	hash, err := ir.EntryHash(l.id, op, seq)
	if err != nil {
		return "", err
	}
	l.clock.Next()
	l.entries = append(l.entries, ir.Entry{Hash: hash, Seq: seq, Operation: op})
	return hash, nil
}

// AppendRaw appends an entry as is. Tests use it to plant historical
// payloads that AddOperation would never produce.
func (l *MemoryLog) AppendRaw(op ir.Operation, hash string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, ir.Entry{Hash: hash, Seq: l.clock.Next(), Operation: op})
}

// Traverse yields the entries newest first.
func (l *MemoryLog) Traverse(ctx context.Context) iter.Seq2[ir.Entry, error] {
	return func(yield func(ir.Entry, error) bool) {
		l.mu.Lock()
		snapshot := slices.Clone(l.entries)
		l.mu.Unlock()

		for i := len(snapshot) - 1; i >= 0; i-- {
			if err := ctx.Err(); err != nil {
				yield(ir.Entry{}, err)
				return
			}
			if !yield(snapshot[i], nil) {
				return
			}
		}
	}
}

// Head returns the hash of the newest entry, or "" for an empty log.
func (l *MemoryLog) Head(ctx context.Context) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.entries) == 0 {
		return "", nil
	}
	return l.entries[len(l.entries)-1].Hash, nil
}

// Len returns the number of entries.
func (l *MemoryLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Entries returns a copy of the entries, oldest first.
func (l *MemoryLog) Entries() []ir.Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.entries)
}

// FailingSource is a traversal that yields the given entries newest first
// and then Err.
type FailingSource struct {
	Entries []ir.Entry
	Err     error
}

// Traverse implements the replay source contract.
func (s FailingSource) Traverse(ctx context.Context) iter.Seq2[ir.Entry, error] {
	return func(yield func(ir.Entry, error) bool) {
		for i := len(s.Entries) - 1; i >= 0; i-- {
			if !yield(s.Entries[i], nil) {
				return
			}
		}
		yield(ir.Entry{}, s.Err)
	}
}
