package replay

import (
	"cmp"
	"slices"

	"github.com/roach88/nested/internal/ir"
	"github.com/roach88/nested/internal/keys"
)

type group struct {
	parent string
	root   bool
}

func groupOf(key string) group {
	parent, ok := keys.Parent(key)
	return group{parent: parent, root: !ok}
}

// OrderSiblings sorts entries by position inside every sibling group and
// returns the result. Each group is written back into the slots it already
// occupied, so the relative order of different groups is unchanged.
// Positioned entries come before unpositioned ones; ties keep their order.
// The input slice is not modified.
func OrderSiblings(entries []ir.Materialized) []ir.Materialized {
	slots := make(map[group][]int)
	var order []group
	for i, m := range entries {
		g := groupOf(m.Key)
		if _, ok := slots[g]; !ok {
			order = append(order, g)
		}
		slots[g] = append(slots[g], i)
	}

	out := make([]ir.Materialized, len(entries))
	for _, g := range order {
		idx := slots[g]
		members := make([]ir.Materialized, len(idx))
		for j, i := range idx {
			members[j] = entries[i]
		}
		slices.SortStableFunc(members, comparePosition)
		for j, i := range idx {
			out[i] = members[j]
		}
	}
	return out
}

func comparePosition(a, b ir.Materialized) int {
	switch {
	case a.Positioned && !b.Positioned:
		return -1
	case !a.Positioned && b.Positioned:
		return 1
	case !a.Positioned:
		return 0
	}
	return cmp.Compare(a.Position, b.Position)
}

// Reverse returns entries in the opposite log order, turning a newest-first
// pass into oldest-first. Consecutive entries written by the same log entry
// (same Hash, as from one INSERT) keep their relative order.
func Reverse(entries []ir.Materialized) []ir.Materialized {
	out := make([]ir.Materialized, 0, len(entries))
	end := len(entries)
	for end > 0 {
		start := end - 1
		for start > 0 && entries[start-1].Hash == entries[end-1].Hash {
			start--
		}
		out = append(out, entries[start:end]...)
		end = start
	}
	return out
}
