package ir

// Equal reports whether a and b hold the same value.
// Trees compare equal only when their keys appear in the same order.
func Equal(a, b Value) bool {
	switch av := a.(type) {
	case nil:
		return b == nil
	case Null:
		_, ok := b.(Null)
		return ok
	case String:
		bv, ok := b.(String)
		return ok && av == bv
	case Int:
		bv, ok := b.(Int)
		return ok && av == bv
	case Bool:
		bv, ok := b.(Bool)
		return ok && av == bv
	case Array:
		bv, ok := b.(Array)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	case *Tree:
		bv, ok := b.(*Tree)
		if !ok || av.Len() != bv.Len() {
			return false
		}
		bKeys := bv.Keys()
		i := 0
		for k, v := range av.All() {
			if bKeys[i] != k {
				return false
			}
			other, _ := bv.Get(k)
			if !Equal(v, other) {
				return false
			}
			i++
		}
		return true
	}
	return false
}
