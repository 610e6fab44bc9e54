package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/nested/internal/ir"
)

// createTestStore creates a new store in a temp directory with
// deterministic log ids.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, WithIDGenerator(NewSequenceGenerator("log-1", "log-2", "log-3")))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestLog creates the log "main" in a fresh store.
func createTestLog(t *testing.T) *Log {
	t.Helper()
	l, err := createTestStore(t).CreateLog(context.Background(), "main")
	if err != nil {
		t.Fatalf("CreateLog() failed: %v", err)
	}
	return l
}

func putOp(key string, v int64) ir.Operation {
	return ir.Put(key, ir.Int(v), 0)
}
