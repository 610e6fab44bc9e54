// Package ir provides the value and log-entry types shared by every other
// package.
//
// ir imports nothing internal. This keeps it the foundational layer with
// no circular dependencies.
//
// Key design constraints:
//   - NO float values anywhere; positions are the only floats and they live
//     outside Value
//   - Tree keeps insertion order; order is data, not presentation
//   - nil Value means absent, Null is an explicit null leaf
//   - Entry hashes are CIDs over canonical JSON with domain separation
package ir
