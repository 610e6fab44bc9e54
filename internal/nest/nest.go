// Package nest converts between nested trees and flat lists of
// key/value pairs.
//
// Flatten walks a tree depth-first and emits one Pair per leaf. ToNested
// rebuilds a tree from pairs, deep-merging mappings that land on the same
// key. Pair order matters: later pairs win, so callers feed pairs oldest
// first.
package nest

import (
	"github.com/roach88/nested/internal/ir"
	"github.com/roach88/nested/internal/keys"
)

// Pair is one flattened leaf: the full key path and its value.
type Pair struct {
	Key   string
	Value ir.Value
}

// Flatten returns the leaves of tree in depth-first insertion order.
// Arrays are leaves. An empty nested mapping yields no pairs, so empty
// subtrees do not survive a Flatten/ToNested round trip.
func Flatten(tree *ir.Tree) []Pair {
	return FlattenUnder("", tree)
}

// FlattenUnder is Flatten with every key rooted under prefix. An empty
// prefix is the root.
func FlattenUnder(prefix string, tree *ir.Tree) []Pair {
	var out []Pair
	flattenInto(&out, prefix, tree)
	return out
}

func flattenInto(out *[]Pair, prefix string, tree *ir.Tree) {
	for k, v := range tree.All() {
		key := keys.Child(prefix, k)
		if sub, ok := v.(*ir.Tree); ok {
			if sub == nil {
				*out = append(*out, Pair{Key: key})
				continue
			}
			flattenInto(out, key, sub)
			continue
		}
		*out = append(*out, Pair{Key: key, Value: v})
	}
}

// ToNested builds a tree from pairs applied in order.
//
// Intermediate mappings are created as needed; a leaf standing where a
// mapping is required is replaced by a fresh mapping. When the existing and
// incoming values at a key are both mappings they are merged with Merge,
// otherwise the incoming value replaces the existing one. Pairs whose last
// segment is empty are ignored.
//
// With preserveOrder false every mapping's keys are re-sorted canonically.
func ToNested(pairs []Pair, preserveOrder bool) *ir.Tree {
	root := ir.NewTree()
	for _, p := range pairs {
		segments := keys.Split(p.Key)
		last := segments[len(segments)-1]
		if last == "" {
			continue
		}

		node := root
		for _, seg := range segments[:len(segments)-1] {
			child, ok := node.Get(seg)
			sub, isTree := child.(*ir.Tree)
			if !ok || !isTree || sub == nil {
				sub = ir.NewTree()
				node.Set(seg, sub)
			}
			node = sub
		}

		existing, _ := node.Get(last)
		if ir.IsTree(existing) && ir.IsTree(p.Value) {
			node.Set(last, Merge(existing.(*ir.Tree), p.Value.(*ir.Tree)))
		} else {
			node.Set(last, ir.CloneValue(p.Value))
		}
	}
	if !preserveOrder {
		sortDeep(root)
	}
	return root
}

// Merge deep-merges b into a copy of a. Leaves of b win; keys only in a
// keep their slot, keys only in b are appended. Arrays are leaves and are
// replaced, not concatenated. Neither input is modified.
func Merge(a, b *ir.Tree) *ir.Tree {
	out := a.Clone()
	if out == nil {
		out = ir.NewTree()
	}
	for k, v := range b.All() {
		existing, _ := out.Get(k)
		if ir.IsTree(existing) && ir.IsTree(v) {
			out.Set(k, Merge(existing.(*ir.Tree), v.(*ir.Tree)))
			continue
		}
		out.Set(k, ir.CloneValue(v))
	}
	return out
}

// Prune returns tree without absent (nil) leaves. Mappings left empty by
// pruning disappear as well.
func Prune(tree *ir.Tree) *ir.Tree {
	pairs := Flatten(tree)
	kept := pairs[:0]
	for _, p := range pairs {
		if p.Value != nil {
			kept = append(kept, p)
		}
	}
	return ToNested(kept, true)
}

func sortDeep(tree *ir.Tree) {
	tree.SortKeys()
	for _, v := range tree.All() {
		if sub, ok := v.(*ir.Tree); ok {
			sortDeep(sub)
		}
	}
}
