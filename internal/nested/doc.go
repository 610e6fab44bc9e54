// Package nested exposes a hierarchical, ordered key-value view over an
// append-only operation log.
//
// Writes append PUT, DEL, INSERT and MOVE operations to a Log. Reads replay
// the log newest first (see package replay) and nest the live entries into a
// tree:
//
//	db := nested.New(log)
//	db.Put(ctx, "a/b", ir.Int(1))
//	db.Put(ctx, "a/c", ir.Int(2))
//	tree, _ := db.All(ctx) // {"a":{"b":1,"c":2}}
//
// Keys are slash-delimited; use keys.Join to build one from segments.
//
// Sibling order comes from positions recorded with PUT and MOVE. A PUT
// without an explicit index keeps a key's existing position and appends new
// keys; Move always computes a fresh one. Leaves written by Insert have no
// position and follow their positioned siblings until a write pins them.
//
// A DB holds no state of its own beyond an optional snapshot cache keyed by
// the log head, so any number of DBs may share a log.
package nested
