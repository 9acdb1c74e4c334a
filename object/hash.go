package object

import (
	"fmt"
	"sort"
	"strings"
)

// hashKey maps an object to a comparable Go value used to index dicts and
// sets. Scalars, tuples and frozensets hash by value; everything else
// hashes by identity.
func hashKey(o Object) any {
	switch v := o.(type) {
	case nil:
		return noneKey{}
	case *NoneType:
		return noneKey{}
	case *Bool:
		return boolKey(v.value)
	case *Int:
		return intKey(v.value.String())
	case *Float:
		return floatKey{bits: v.value}
	case *Str:
		return strKey(v.value)
	case *Bytes:
		return bytesKey(string(v.value))
	case *Tuple:
		var sb strings.Builder
		for _, item := range v.items {
			writeKey(&sb, hashKey(item))
		}
		return tupleKey(sb.String())
	case *FrozenSet:
		parts := make([]string, 0, len(v.members.items))
		for _, item := range v.members.items {
			var sb strings.Builder
			writeKey(&sb, hashKey(item))
			parts = append(parts, sb.String())
		}
		sort.Strings(parts)
		return frozenKey(strings.Join(parts, ""))
	default:
		return o
	}
}

func writeKey(sb *strings.Builder, k any) {
	switch k.(type) {
	case noneKey, boolKey, intKey, floatKey, strKey, bytesKey, tupleKey, frozenKey:
		fmt.Fprintf(sb, "%T(%q);", k, fmt.Sprint(k))
	default:
		fmt.Fprintf(sb, "%T(%p);", k, k)
	}
}

type (
	noneKey   struct{}
	boolKey   bool
	intKey    string
	floatKey  struct{ bits float64 }
	strKey    string
	bytesKey  string
	tupleKey  string
	frozenKey string
)

// ---------------------------------------------------------------------------
// orderedSet: shared storage for Set and FrozenSet
// ---------------------------------------------------------------------------

type orderedSet struct {
	index map[any]int
	items []Object
}

func newOrderedSet() orderedSet {
	return orderedSet{index: make(map[any]int)}
}

func (s *orderedSet) add(o Object) {
	k := hashKey(o)
	if _, ok := s.index[k]; ok {
		return
	}
	s.index[k] = len(s.items)
	s.items = append(s.items, o)
}

func (s *orderedSet) contains(o Object) bool {
	_, ok := s.index[hashKey(o)]
	return ok
}
