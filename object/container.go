package object

// ---------------------------------------------------------------------------
// List
// ---------------------------------------------------------------------------

// List is a mutable sequence.
type List struct {
	items []Object
}

func NewList(items ...Object) *List {
	return &List{items: append([]Object(nil), items...)}
}

func (l *List) TypeName() string { return "list" }
func (l *List) Len() int         { return len(l.items) }

// Items returns the list's backing slice. Callers must not retain it
// across mutations.
func (l *List) Items() []Object { return l.items }

func (l *List) Append(items ...Object) { l.items = append(l.items, items...) }

func (l *List) Get(i int) Object { return l.items[i] }

func (l *List) Set(i int, o Object) { l.items[i] = o }

// ---------------------------------------------------------------------------
// Tuple
// ---------------------------------------------------------------------------

// Tuple is an immutable sequence. Its elements are fixed at construction.
type Tuple struct {
	items []Object
}

func NewTuple(items ...Object) *Tuple {
	return &Tuple{items: append([]Object(nil), items...)}
}

func (t *Tuple) TypeName() string { return "tuple" }
func (t *Tuple) Len() int         { return len(t.items) }
func (t *Tuple) Items() []Object  { return t.items }
func (t *Tuple) Get(i int) Object { return t.items[i] }

// ---------------------------------------------------------------------------
// Dict
// ---------------------------------------------------------------------------

// DictItem is one key/value pair of a Dict.
type DictItem struct {
	Key   Object
	Value Object
}

// Dict is a mutable mapping that remembers insertion order. Two dicts with
// the same pairs inserted in a different order iterate differently.
type Dict struct {
	index map[any]int
	items []DictItem
}

func NewDict() *Dict {
	return &Dict{index: make(map[any]int)}
}

func (d *Dict) TypeName() string { return "dict" }
func (d *Dict) Len() int         { return len(d.items) }

// Set inserts or replaces the value stored under key.
func (d *Dict) Set(key, value Object) {
	k := hashKey(key)
	if i, ok := d.index[k]; ok {
		d.items[i].Value = value
		return
	}
	d.index[k] = len(d.items)
	d.items = append(d.items, DictItem{Key: key, Value: value})
}

// SetStr is shorthand for Set(NewStr(key), value).
func (d *Dict) SetStr(key string, value Object) { d.Set(NewStr(key), value) }

func (d *Dict) Get(key Object) (Object, bool) {
	i, ok := d.index[hashKey(key)]
	if !ok {
		return nil, false
	}
	return d.items[i].Value, true
}

// GetStr is shorthand for Get(NewStr(key)).
func (d *Dict) GetStr(key string) (Object, bool) { return d.Get(NewStr(key)) }

// Items returns the pairs in insertion order.
func (d *Dict) Items() []DictItem {
	return append([]DictItem(nil), d.items...)
}

// Keys returns the keys in insertion order.
func (d *Dict) Keys() []Object {
	keys := make([]Object, len(d.items))
	for i, item := range d.items {
		keys[i] = item.Key
	}
	return keys
}

// ---------------------------------------------------------------------------
// Set / FrozenSet
// ---------------------------------------------------------------------------

// Set is a mutable collection of distinct members, in insertion order.
type Set struct {
	members orderedSet
}

func NewSet(members ...Object) *Set {
	s := &Set{members: newOrderedSet()}
	for _, m := range members {
		s.members.add(m)
	}
	return s
}

func (s *Set) TypeName() string       { return "set" }
func (s *Set) Len() int               { return len(s.members.items) }
func (s *Set) Add(o Object)           { s.members.add(o) }
func (s *Set) Contains(o Object) bool { return s.members.contains(o) }
func (s *Set) Members() []Object      { return append([]Object(nil), s.members.items...) }

// FrozenSet is an immutable Set. Its members are fixed at construction.
type FrozenSet struct {
	members orderedSet
}

func NewFrozenSet(members ...Object) *FrozenSet {
	s := &FrozenSet{members: newOrderedSet()}
	for _, m := range members {
		s.members.add(m)
	}
	return s
}

func (s *FrozenSet) TypeName() string       { return "frozenset" }
func (s *FrozenSet) Len() int               { return len(s.members.items) }
func (s *FrozenSet) Contains(o Object) bool { return s.members.contains(o) }
func (s *FrozenSet) Members() []Object      { return append([]Object(nil), s.members.items...) }
