package nested

import (
	"context"

	"github.com/roach88/nested/internal/ir"
	"github.com/roach88/nested/internal/keys"
	"github.com/roach88/nested/internal/nest"
	"github.com/roach88/nested/internal/replay"
)

// All returns the whole current state as a tree. Siblings appear in
// position order; unpositioned siblings follow in write order.
func (db *DB) All(ctx context.Context) (*ir.Tree, error) {
	if tree, ok := db.cached(ctx); ok {
		return tree.Clone(), nil
	}

	before := db.head(ctx)
	tree, err := db.materialize(ctx, nil)
	if err != nil {
		return nil, opError(OpGet, "", err)
	}
	if before != "" && db.head(ctx) == before {
		db.cache.Add(before, tree.Clone())
		db.logger.Debug("snapshot cached", "head", before)
	}
	return tree, nil
}

// Get returns the value at key: a leaf, or a tree for a nested key.
// Returns ErrNotFound when nothing live sits at key.
//
// Entries at ancestors of key are read as well as those at or below it, so
// a key inside a tree written with a single PUT at an ancestor resolves to
// its value. Get(k) always agrees with walking All to k.
func (db *DB) Get(ctx context.Context, key string) (ir.Value, error) {
	tree, ok := db.cached(ctx)
	if !ok {
		var err error
		tree, err = db.materialize(ctx, func(k string) bool {
			return keys.Covers(key, k) || keys.Covers(k, key)
		})
		if err != nil {
			return nil, opError(OpGet, key, err)
		}
	}

	var node ir.Value = tree
	for _, seg := range keys.Split(key) {
		sub, ok := node.(*ir.Tree)
		if !ok {
			return nil, opError(OpGet, key, ErrNotFound)
		}
		node, ok = sub.Get(seg)
		if !ok {
			return nil, opError(OpGet, key, ErrNotFound)
		}
	}
	return ir.CloneValue(node), nil
}

// Hash returns the content hash of the current state. Two logs with the
// same live state hash equal.
func (db *DB) Hash(ctx context.Context) (string, error) {
	tree, err := db.All(ctx)
	if err != nil {
		return "", err
	}
	return ir.SnapshotHash(tree)
}

// materialize replays the log and nests the live entries kept by keep
// (all when keep is nil). Entries are applied oldest first so newer values
// win merges, after sorting every sibling group by position.
func (db *DB) materialize(ctx context.Context, keep func(string) bool) (*ir.Tree, error) {
	live, err := replay.Collect(ctx, db.log)
	if err != nil {
		return nil, err
	}
	if keep != nil {
		kept := live[:0]
		for _, m := range live {
			if keep(m.Key) {
				kept = append(kept, m)
			}
		}
		live = kept
	}

	ordered := replay.OrderSiblings(replay.Reverse(live))
	pairs := make([]nest.Pair, len(ordered))
	for i, m := range ordered {
		pairs[i] = nest.Pair{Key: m.Key, Value: m.Value}
	}
	return nest.ToNested(pairs, true), nil
}

// head returns the log head, or "" when the log cannot report one.
func (db *DB) head(ctx context.Context) string {
	h, ok := db.log.(Header)
	if !ok || db.cache == nil {
		return ""
	}
	head, err := h.Head(ctx)
	if err != nil {
		db.logger.Warn("log head unavailable, snapshot cache bypassed", "error", err)
		return ""
	}
	return head
}

func (db *DB) cached(ctx context.Context) (*ir.Tree, bool) {
	head := db.head(ctx)
	if head == "" {
		return nil, false
	}
	return db.cache.Get(head)
}
