// Package replay reconstructs the live entries of a nested log.
//
// # Newest-First Replay
//
// A Source yields log entries newest first. The first entry seen for a key
// is therefore the causally most recent one, so "first write wins" during a
// single pass gives last-write-wins semantics without comparing timestamps.
//
// A pass keeps a private map from key to mark:
//
//	terminal  the key was written or deleted by a newer entry
//	moved(p)  a newer MOVE recorded position p for the key
//
// Per operation:
//
//	PUT     skipped if shadowed or the value is absent, otherwise the key
//	        becomes terminal and the entry is yielded. A recorded MOVE
//	        position takes precedence over the stored one.
//	INSERT  the payload tree is flattened under the key (root when the key
//	        is nil) and every pair is handled as a PUT carrying the entry's
//	        hash. Leaves written this way have no position unless moved.
//	MOVE    skipped if the exact key was already moved or is shadowed,
//	        otherwise the position is recorded.
//	DEL     marks the key terminal without yielding: a tombstone for the key
//	        and everything beneath it.
//
// A key is shadowed when it or one of its ancestors is terminal. Descendant
// marks never shadow an ancestor.
//
// ## Early Termination
//
// WithAmount(n) stops the pass once n live entries were yielded. The check
// runs after every yield, including the pairs of an INSERT, so exactly n
// entries come out when the log holds at least n live ones. Tombstones never
// count.
//
// ## Resources
//
// Replay performs no I/O of its own and holds no locks. Passes are pulled by
// the consumer; breaking out of the range loop ends the pass. Independent
// passes over the same Source do not interact.
package replay
