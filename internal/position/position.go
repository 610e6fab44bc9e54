// Package position decides where a key sits among its siblings.
//
// Positions are float64 sort keys. The numeric scheme lives behind Func so
// it can be swapped; Assigner owns the policy of when a fresh position is
// computed and against which siblings.
package position

import (
	"slices"

	"github.com/roach88/nested/internal/ir"
	"github.com/roach88/nested/internal/keys"
)

// Func returns a position for slot index among siblings.
//
// siblings holds the distinct positions of the other siblings in ascending
// order and 0 <= index <= len(siblings). The result must sort strictly
// between siblings[index-1] and siblings[index], or beyond the end that
// index points past.
type Func func(siblings []float64, index int) float64

// Midpoint is the default Func. An empty list starts at 0, the ends extend
// by one, and interior slots take the midpoint of their neighbours.
func Midpoint(siblings []float64, index int) float64 {
	n := len(siblings)
	switch {
	case n == 0:
		return 0
	case index >= n:
		return siblings[n-1] + 1
	case index <= 0:
		return siblings[0] - 1
	default:
		return (siblings[index-1] + siblings[index]) / 2
	}
}

// NormalizeIndex resolves a requested index against n siblings. nil
// appends. Negative values count from the end, so -1 also appends.
// The result is clamped to [0, n].
func NormalizeIndex(index *int, n int) int {
	if index == nil {
		return n
	}
	i := *index
	if i < 0 {
		i = n + 1 + i
	}
	return max(0, min(i, n))
}

// Assigner applies the positioning policy on top of a Func.
type Assigner struct {
	Scale Func
}

// NewAssigner returns an Assigner using scale, or Midpoint when scale is nil.
func NewAssigner(scale Func) Assigner {
	if scale == nil {
		scale = Midpoint
	}
	return Assigner{Scale: scale}
}

// Placement is where a write puts its key.
type Placement struct {
	Position float64

	// Pins fix unpositioned siblings at their displayed slots. They are
	// recorded before Position.
	Pins []Pin
}

// Pin fixes an unpositioned key at a position.
type Pin struct {
	Key      string
	Position float64
}

// ForPut places a PUT of key. Without an explicit index a positioned key
// keeps its position and an unpositioned one keeps its displayed slot, so
// re-writing a key does not reorder it.
//
// live must be in write order, oldest first: unpositioned siblings are
// displayed in that order.
func (a Assigner) ForPut(key string, live []ir.Materialized, index *int) Placement {
	if index == nil {
		for _, m := range live {
			if m.Key != key {
				continue
			}
			if m.Positioned {
				return Placement{Position: m.Position}
			}
			return a.keepSlot(key, live)
		}
	}
	return a.compute(key, live, index)
}

// ForMove places a MOVE of key. A fresh position is always computed.
func (a Assigner) ForMove(key string, live []ir.Materialized, index *int) Placement {
	return a.compute(key, live, index)
}

// compute resolves index against every displayed sibling. Unpositioned
// siblings are pinned after the positioned ones first, otherwise the new
// position would sort ahead of all of them.
func (a Assigner) compute(key string, live []ir.Materialized, index *int) Placement {
	siblings, pins := a.pin(sisters(key, live, false))
	return Placement{
		Position: a.scale()(siblings, NormalizeIndex(index, len(siblings))),
		Pins:     pins,
	}
}

// keepSlot positions the unpositioned key at the slot it is displayed in.
// Only the unpositioned siblings written before it need pinning.
func (a Assigner) keepSlot(key string, live []ir.Materialized) Placement {
	_, pins := a.pin(sisters(key, live, true))
	var out Placement
	for _, p := range pins {
		if p.Key == key {
			out.Position = p.Position
			break
		}
		out.Pins = append(out.Pins, p)
	}
	return out
}

// pin appends a position for each key in turn and returns the extended
// sibling positions.
func (a Assigner) pin(siblings []float64, unpositioned []string) ([]float64, []Pin) {
	var pins []Pin
	for _, k := range unpositioned {
		p := a.scale()(siblings, len(siblings))
		siblings = append(siblings, p)
		pins = append(pins, Pin{Key: k, Position: p})
	}
	return siblings, pins
}

func (a Assigner) scale() Func {
	if a.Scale == nil {
		return Midpoint
	}
	return a.Scale
}

// Siblings splits the sister keys of key, excluding key itself: the
// distinct positions of the positioned ones in ascending order, and the
// unpositioned keys in the order they appear in live.
func Siblings(key string, live []ir.Materialized) ([]float64, []string) {
	return sisters(key, live, false)
}

func sisters(key string, live []ir.Materialized, withSelf bool) ([]float64, []string) {
	segments := keys.Split(key)
	var positions []float64
	var unpositioned []string
	for _, m := range live {
		if m.Key == key {
			if withSelf && !m.Positioned {
				unpositioned = append(unpositioned, m.Key)
			}
			continue
		}
		if !keys.IsSisterKey(segments, keys.Split(m.Key)) {
			continue
		}
		if m.Positioned {
			positions = append(positions, m.Position)
		} else {
			unpositioned = append(unpositioned, m.Key)
		}
	}
	slices.Sort(positions)
	return slices.Compact(positions), unpositioned
}
