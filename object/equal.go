package object

import "bytes"

// Equal reports whether a and b hold equal values. Scalars compare by
// value; tuples, lists, dicts and sets compare element-wise (dicts and
// sets ignore order); everything else compares by identity. Equal does
// not guard against cycles.
func Equal(a, b Object) bool {
	if a == b {
		return true
	}
	switch x := a.(type) {
	case *NoneType:
		_, ok := b.(*NoneType)
		return ok
	case *Bool:
		y, ok := b.(*Bool)
		return ok && x.value == y.value
	case *Int:
		y, ok := b.(*Int)
		return ok && x.value.Cmp(y.value) == 0
	case *Float:
		y, ok := b.(*Float)
		return ok && x.value == y.value
	case *Str:
		y, ok := b.(*Str)
		return ok && x.value == y.value
	case *Bytes:
		y, ok := b.(*Bytes)
		return ok && bytes.Equal(x.value, y.value)
	case *Tuple:
		y, ok := b.(*Tuple)
		return ok && equalSeq(x.items, y.items)
	case *List:
		y, ok := b.(*List)
		return ok && equalSeq(x.items, y.items)
	case *Dict:
		y, ok := b.(*Dict)
		if !ok || x.Len() != y.Len() {
			return false
		}
		for _, item := range x.items {
			v, ok := y.Get(item.Key)
			if !ok || !Equal(item.Value, v) {
				return false
			}
		}
		return true
	case *Set:
		y, ok := b.(*Set)
		return ok && equalMembers(&x.members, &y.members)
	case *FrozenSet:
		y, ok := b.(*FrozenSet)
		return ok && equalMembers(&x.members, &y.members)
	}
	return false
}

func equalSeq(a, b []Object) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

func equalMembers(a, b *orderedSet) bool {
	if len(a.items) != len(b.items) {
		return false
	}
	for _, m := range a.items {
		if !b.contains(m) {
			return false
		}
	}
	return true
}
