package store

import (
	"context"
	"errors"
	"fmt"

	sqlite3 "github.com/mattn/go-sqlite3"

	"github.com/roach88/nested/internal/ir"
)

// ErrLogExists is returned by CreateLog when the name is taken.
var ErrLogExists = errors.New("log already exists")

// CreateLog registers a new, empty log under name. The log id comes from
// the store's IDGenerator.
func (s *Store) CreateLog(ctx context.Context, name string) (*Log, error) {
	if name == "" {
		return nil, fmt.Errorf("create log: name is required")
	}

	id := s.ids.Generate()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO logs (id, name) VALUES (?, ?)
	`, id, name)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
			return nil, fmt.Errorf("create log %q: %w", name, ErrLogExists)
		}
		return nil, fmt.Errorf("create log %q: %w", name, err)
	}

	return &Log{store: s, id: id, name: name}, nil
}

// AddOperation appends op to the log and returns its entry hash.
//
// The next seq and the hash are computed inside one transaction, so
// concurrent appends through the same Store get distinct, gapless seqs.
// The operation is stored as given; validation is the caller's job.
func (l *Log) AddOperation(ctx context.Context, op ir.Operation) (string, error) {
	value, err := marshalValue(op.Value)
	if err != nil {
		return "", fmt.Errorf("add operation: %w", err)
	}

	tx, err := l.store.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("add operation: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	var seq int64
	if err := tx.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(seq), 0) + 1 FROM entries WHERE log_id = ?
	`, l.id).Scan(&seq); err != nil {
		return "", fmt.Errorf("add operation: next seq: %w", err)
	}

	hash, err := ir.EntryHash(l.id, op, seq)
	if err != nil {
		return "", fmt.Errorf("add operation: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO entries (hash, log_id, seq, op, key, value, position)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		hash,
		l.id,
		seq,
		string(op.Op),
		marshalKey(op.Key),
		value,
		marshalPosition(op.Position),
	)
	if err != nil {
		return "", fmt.Errorf("add operation: insert: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("add operation: commit: %w", err)
	}
	return hash, nil
}
