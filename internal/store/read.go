package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"iter"

	"github.com/roach88/nested/internal/ir"
)

// ErrLogNotFound is returned by OpenLog for an unknown name.
var ErrLogNotFound = errors.New("log not found")

// traversePageSize bounds how many entries one traversal query loads.
const traversePageSize = 256

// Log is one named, append-only log inside a Store. It is the log
// collaborator consumed by the nested package.
type Log struct {
	store *Store
	id    string
	name  string
}

// LogInfo describes a stored log.
type LogInfo struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Entries int    `json:"entries"`
	Head    string `json:"head,omitempty"`
}

// ID returns the log id mixed into every entry hash.
func (l *Log) ID() string {
	return l.id
}

// Name returns the log name.
func (l *Log) Name() string {
	return l.name
}

// OpenLog returns the log registered under name.
func (s *Store) OpenLog(ctx context.Context, name string) (*Log, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `
		SELECT id FROM logs WHERE name = ?
	`, name).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("open log %q: %w", name, ErrLogNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("open log %q: %w", name, err)
	}
	return &Log{store: s, id: id, name: name}, nil
}

// OpenOrCreateLog opens name, creating it when it does not exist yet.
func (s *Store) OpenOrCreateLog(ctx context.Context, name string) (*Log, error) {
	l, err := s.OpenLog(ctx, name)
	if errors.Is(err, ErrLogNotFound) {
		return s.CreateLog(ctx, name)
	}
	return l, err
}

// Logs lists every log ordered by name.
// Returns an empty slice (not nil) when the store holds no logs.
func (s *Store) Logs(ctx context.Context) ([]LogInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT l.id, l.name, COUNT(e.hash),
		       COALESCE((SELECT hash FROM entries WHERE log_id = l.id ORDER BY seq DESC LIMIT 1), '')
		FROM logs l
		LEFT JOIN entries e ON e.log_id = l.id
		GROUP BY l.id, l.name
		ORDER BY l.name COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query logs: %w", err)
	}
	defer rows.Close()

	logs := []LogInfo{}
	for rows.Next() {
		var info LogInfo
		if err := rows.Scan(&info.ID, &info.Name, &info.Entries, &info.Head); err != nil {
			return nil, fmt.Errorf("scan log: %w", err)
		}
		logs = append(logs, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate logs: %w", err)
	}
	return logs, nil
}

// Head returns the hash of the newest entry, or "" for an empty log.
func (l *Log) Head(ctx context.Context) (string, error) {
	var hash string
	err := l.store.db.QueryRowContext(ctx, `
		SELECT hash FROM entries WHERE log_id = ? ORDER BY seq DESC LIMIT 1
	`, l.id).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("log head: %w", err)
	}
	return hash, nil
}

// Len returns the number of entries in the log.
func (l *Log) Len(ctx context.Context) (int, error) {
	var n int
	if err := l.store.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM entries WHERE log_id = ?
	`, l.id).Scan(&n); err != nil {
		return 0, fmt.Errorf("log length: %w", err)
	}
	return n, nil
}

// Traverse yields the entries newest first, starting from the head present
// when iteration begins. Entries are loaded a page at a time and every page
// query is closed before its entries are yielded, so the caller may append
// to the log while iterating.
func (l *Log) Traverse(ctx context.Context) iter.Seq2[ir.Entry, error] {
	return func(yield func(ir.Entry, error) bool) {
		var below int64
		if err := l.store.db.QueryRowContext(ctx, `
			SELECT COALESCE(MAX(seq), 0) + 1 FROM entries WHERE log_id = ?
		`, l.id).Scan(&below); err != nil {
			yield(ir.Entry{}, fmt.Errorf("traverse: head: %w", err))
			return
		}

		for {
			page, err := l.page(ctx, below)
			if err != nil {
				yield(ir.Entry{}, err)
				return
			}
			for _, e := range page {
				if !yield(e, nil) {
					return
				}
			}
			if len(page) < traversePageSize {
				return
			}
			below = page[len(page)-1].Seq
		}
	}
}

// page loads up to traversePageSize entries with seq < below, newest first.
func (l *Log) page(ctx context.Context, below int64) ([]ir.Entry, error) {
	rows, err := l.store.db.QueryContext(ctx, `
		SELECT hash, seq, op, key, value, position
		FROM entries
		WHERE log_id = ? AND seq < ?
		ORDER BY seq DESC
		LIMIT ?
	`, l.id, below, traversePageSize)
	if err != nil {
		return nil, fmt.Errorf("traverse: query entries: %w", err)
	}
	defer rows.Close()

	var page []ir.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("traverse: %w", err)
		}
		page = append(page, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("traverse: iterate entries: %w", err)
	}
	return page, nil
}

// Entries returns every entry oldest first.
// Returns an empty slice (not nil) for an empty log.
func (l *Log) Entries(ctx context.Context) ([]ir.Entry, error) {
	return l.query(ctx, `
		SELECT hash, seq, op, key, value, position
		FROM entries
		WHERE log_id = ?
		ORDER BY seq ASC
	`, l.id)
}

// History returns the entries whose key is key, oldest first. Root-level
// INSERTs and writes to ancestors are not included.
func (l *Log) History(ctx context.Context, key string) ([]ir.Entry, error) {
	return l.query(ctx, `
		SELECT hash, seq, op, key, value, position
		FROM entries
		WHERE log_id = ? AND key = ?
		ORDER BY seq ASC
	`, l.id, key)
}

// ReadEntry retrieves a single entry by hash.
// Returns sql.ErrNoRows if not found.
func (l *Log) ReadEntry(ctx context.Context, hash string) (ir.Entry, error) {
	row := l.store.db.QueryRowContext(ctx, `
		SELECT hash, seq, op, key, value, position
		FROM entries
		WHERE log_id = ? AND hash = ?
	`, l.id, hash)
	return scanEntry(row)
}

func (l *Log) query(ctx context.Context, query string, args ...any) ([]ir.Entry, error) {
	rows, err := l.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	entries := []ir.Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return entries, nil
}
