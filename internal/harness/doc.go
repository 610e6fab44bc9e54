// Package harness runs YAML scenarios against a nested view.
//
// Each scenario applies a sequence of writes to a fresh in-memory SQLite
// log and then checks the materialized view.
//
// # Scenario Format
//
//	name: scenario_name
//	description: "What this scenario validates"
//	log_id: optional-fixed-log-id
//	steps:
//	  - op: PUT
//	    key: a/b
//	    value: 1
//	  - op: INSERT          # key omitted: insert at the root
//	    value: { c: { d: true } }
//	  - op: MOVE
//	    key: a/b
//	    index: 0
//	  - op: DEL
//	    key: c
//	  - op: PUT
//	    key: x
//	    expect_error: missing_value
//	assertions:
//	  - type: state
//	    value: { a: { b: 1 } }
//	  - type: get
//	    key: a/b
//	    value: 1
//	  - type: not_found
//	    key: c
//	  - type: order
//	    key: a
//	    keys: [b]
//	  - type: iter
//	    amount: 1
//	    keys: [a/b]
//
// Mapping values keep their YAML order, which is the order trees are
// written in. Floats are rejected, as everywhere else.
//
// # Assertion Types
//
//   - state: the whole view equals value, including sibling order
//   - get: DB.Get(key) equals value
//   - not_found: DB.Get(key) fails with ErrNotFound
//   - order: the children of key (root when empty) are exactly keys
//   - iter: the iterator yields keys newest first, bounded by amount
//
// # Golden Snapshots
//
// RunWithGolden serializes the step records, live entries and final view as
// canonical JSON and compares them with testdata/golden/<name>.golden.
// A fixed log id makes every run byte-identical.
package harness
