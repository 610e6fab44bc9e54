// Package store provides SQLite-backed durable storage for nested logs.
//
// A database holds any number of named logs. Each log is an append-only
// sequence of entries:
//   - seq: per-log logical clock, strictly increasing from 1
//   - hash: content-addressed CID computed by ir.EntryHash
//   - op, key, value, position: the operation payload
//
// # Ordering
//
// All ordering uses seq, never timestamps. Traverse walks a log newest first
// (ORDER BY seq DESC) from the head present when the traversal started, in
// pages, so no read transaction stays open while the caller consumes
// entries.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Entries must belong to a known log
//
// Values are stored as canonical JSON (ir.MarshalCanonical), which keeps
// tree field order.
package store
