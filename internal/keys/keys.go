// Package keys implements the hierarchical key algebra.
//
// A key is a sequence of segments. Its canonical string form joins the
// segments with Separator. Split and Join are inverses: the empty string is a
// key with a single empty segment.
package keys

import (
	"slices"
	"strings"
)

// Separator joins key segments in the canonical string form.
const Separator = "/"

// Split returns the segments of key.
func Split(key string) []string {
	return strings.Split(key, Separator)
}

// Join returns the canonical string form of segments.
func Join(segments []string) string {
	return strings.Join(segments, Separator)
}

// Child returns the key for segment under parent. An empty parent is the
// root, so Child("", "a") is "a".
func Child(parent, segment string) string {
	if parent == "" {
		return segment
	}
	return parent + Separator + segment
}

// Parent drops the last segment of key. It reports false for single-segment
// keys, which have no parent.
func Parent(key string) (string, bool) {
	i := strings.LastIndex(key, Separator)
	if i < 0 {
		return "", false
	}
	return key[:i], true
}

// Ancestors returns every proper ancestor of key, nearest first.
func Ancestors(key string) []string {
	var out []string
	for {
		parent, ok := Parent(key)
		if !ok {
			return out
		}
		out = append(out, parent)
		key = parent
	}
}

// IsSubkey reports whether a lies strictly beneath b: b's segments are a
// proper prefix of a's. A key is never its own subkey.
func IsSubkey(a, b string) bool {
	return IsSubkeySegments(Split(a), Split(b))
}

// IsSubkeySegments is IsSubkey on segment form.
func IsSubkeySegments(a, b []string) bool {
	if len(a) <= len(b) {
		return false
	}
	return slices.Equal(a[:len(b)], b)
}

// IsSisterKey reports whether a and b share a parent: equal length and equal
// on every segment but the last. Root keys are sisters of each other, and
// the zero-length key is a sister of everything of its length.
func IsSisterKey(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	if len(a) == 0 {
		return true
	}
	return slices.Equal(a[:len(a)-1], b[:len(b)-1])
}

// AreSisters is IsSisterKey on canonical string keys.
func AreSisters(a, b string) bool {
	return IsSisterKey(Split(a), Split(b))
}

// Covers reports whether a mark at key covers target: target equals key or
// is one of its subkeys.
func Covers(key, target string) bool {
	return target == key || strings.HasPrefix(target, key+Separator)
}
