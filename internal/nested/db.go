package nested

import (
	"context"
	"fmt"
	"iter"
	"log/slog"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/roach88/nested/internal/ir"
	"github.com/roach88/nested/internal/nest"
	"github.com/roach88/nested/internal/position"
	"github.com/roach88/nested/internal/replay"
)

// Log is the append-only log a DB writes to and replays.
//
// AddOperation appends an operation and returns its content hash.
// Traverse (from replay.Source) walks the log newest first.
type Log interface {
	replay.Source
	AddOperation(ctx context.Context, op ir.Operation) (string, error)
}

// Header is implemented by logs that report the hash of their newest
// entry. Only such logs get snapshot caching.
type Header interface {
	Head(ctx context.Context) (string, error)
}

// DB is the nested view over a Log.
//
// Thread-safety: DB holds no lock of its own. It is safe for concurrent use
// only when its Log is: AddOperation and Traverse must tolerate concurrent
// callers, as store.Log does over its single SQLite connection. The
// snapshot cache is a thread-safe LRU. Each write reads the log and then
// appends, so concurrent writers may compute positions against the same
// stale sibling set and a Put or Move that pins siblings appends several
// entries that other writers can interleave with. Replay resolves both on
// the next read.
type DB struct {
	log       Log
	assign    position.Assigner
	logger    *slog.Logger
	cacheSize int
	cache     *lru.Cache[string, *ir.Tree]
}

// New returns a DB over log.
func New(log Log, opts ...Option) *DB {
	db := &DB{
		log:       log,
		assign:    position.NewAssigner(nil),
		logger:    discardLogger(),
		cacheSize: DefaultCacheSize,
	}
	for _, opt := range opts {
		opt(db)
	}

	if _, ok := log.(Header); ok && db.cacheSize > 0 {
		// lru.New only fails for a non-positive size.
		db.cache, _ = lru.New[string, *ir.Tree](db.cacheSize)
	}
	return db
}

// Put writes value at key and returns the entry hash. value may be a leaf
// or a whole tree; either replaces everything previously stored at or
// below key.
//
// Without AtIndex a key keeps its slot and a new key is appended after its
// siblings. Siblings that came from INSERT and were never positioned are
// first pinned with MOVE entries at the slots they are displayed in.
func (db *DB) Put(ctx context.Context, key string, value ir.Value, opts ...PutOption) (string, error) {
	var cfg putConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	if value == nil {
		return "", opError(ir.OpPut, key, ErrMissingValue)
	}
	if err := ir.CheckValue(value); err != nil {
		return "", opError(ir.OpPut, key, err)
	}

	live, err := replay.Collect(ctx, db.log)
	if err != nil {
		return "", opError(ir.OpPut, key, err)
	}
	place := db.assign.ForPut(key, replay.Reverse(live), cfg.index)
	if err := db.pin(ctx, place.Pins); err != nil {
		return "", err
	}

	return db.append(ctx, ir.Put(key, value, place.Position))
}

// Set is Put without options.
func (db *DB) Set(ctx context.Context, key string, value ir.Value) (string, error) {
	return db.Put(ctx, key, value)
}

// Del tombstones key and everything beneath it. Deleting a key that does
// not exist still appends a tombstone.
func (db *DB) Del(ctx context.Context, key string) (string, error) {
	return db.append(ctx, ir.Del(key))
}

// Move repositions key to sibling slot index without touching its value.
// Negative indexes count from the end. index counts every displayed
// sibling entry, pinning unpositioned ones as Put does. Returns ErrNotFound, without
// appending, when key is not a live entry.
func (db *DB) Move(ctx context.Context, key string, index int) (string, error) {
	live, err := replay.Collect(ctx, db.log)
	if err != nil {
		return "", opError(ir.OpMove, key, err)
	}

	found := false
	for _, m := range live {
		if m.Key == key {
			found = true
			break
		}
	}
	if !found {
		return "", opError(ir.OpMove, key, ErrNotFound)
	}

	place := db.assign.ForMove(key, replay.Reverse(live), &index)
	if err := db.pin(ctx, place.Pins); err != nil {
		return "", err
	}
	return db.append(ctx, ir.Move(key, place.Position))
}

// pin records a MOVE for each sibling that has to be fixed at its
// displayed slot before a fresh position can be placed among them.
func (db *DB) pin(ctx context.Context, pins []position.Pin) error {
	for _, p := range pins {
		if _, err := db.append(ctx, ir.Move(p.Key, p.Position)); err != nil {
			return err
		}
	}
	return nil
}

// Insert merges tree leaf by leaf under key: existing leaves not mentioned
// in tree survive. Absent (nil) leaves are dropped first. An empty key
// inserts at the root.
func (db *DB) Insert(ctx context.Context, key string, tree *ir.Tree) (string, error) {
	if tree == nil {
		return "", opError(ir.OpInsert, key, ErrMissingValue)
	}
	return db.append(ctx, ir.Insert(key, nest.Prune(tree)))
}

// InsertRoot merges tree at the root.
func (db *DB) InsertRoot(ctx context.Context, tree *ir.Tree) (string, error) {
	return db.Insert(ctx, "", tree)
}

func (db *DB) append(ctx context.Context, op ir.Operation) (string, error) {
	key := op.KeyString()
	if err := op.Validate(); err != nil {
		return "", opError(op.Op, key, err)
	}

	hash, err := db.log.AddOperation(ctx, op)
	if err != nil {
		return "", opError(op.Op, key, fmt.Errorf("append: %w", err))
	}

	db.logger.Debug("operation appended",
		"op", op.Op,
		"key", key,
		"hash", hash,
	)
	return hash, nil
}

// Iterator yields live entries newest first. Use WithAmount to bound it.
func (db *DB) Iterator(ctx context.Context, opts ...replay.Option) iter.Seq2[ir.Materialized, error] {
	return replay.Replay(ctx, db.log, opts...)
}
