package object

import (
	"math/big"
	"testing"
)

func TestBoolIsInteger(t *testing.T) {
	var o Object = True
	i, ok := o.(Integer)
	if !ok {
		t.Fatal("Bool should satisfy Integer")
	}
	if i.BigInt().Int64() != 1 {
		t.Errorf("True.BigInt() = %v, want 1", i.BigInt())
	}
	if NewBool(false) != False {
		t.Error("NewBool(false) should return the False singleton")
	}
}

func TestParseInt(t *testing.T) {
	literal := "123456789012345678901234567890"
	i, err := ParseInt(literal)
	if err != nil {
		t.Fatalf("ParseInt failed: %v", err)
	}
	if i.String() != literal {
		t.Errorf("ParseInt round trip = %s, want %s", i, literal)
	}
	if _, err := ParseInt("12x"); err == nil {
		t.Error("ParseInt should reject non-decimal input")
	}
}

func TestDictInsertionOrder(t *testing.T) {
	d := NewDict()
	d.SetStr("b", NewInt(2))
	d.SetStr("a", NewInt(1))
	d.SetStr("b", NewInt(3))

	keys := d.Keys()
	if len(keys) != 2 {
		t.Fatalf("Len = %d, want 2", len(keys))
	}
	if keys[0].(*Str).Value() != "b" || keys[1].(*Str).Value() != "a" {
		t.Errorf("keys = %v, want [b a]", keys)
	}
	v, ok := d.GetStr("b")
	if !ok || v.(*Int).Int64() != 3 {
		t.Errorf("d[b] = %v, want 3", v)
	}
}

func TestDictKeysByValueAndIdentity(t *testing.T) {
	d := NewDict()
	d.Set(NewTuple(NewInt(1), NewStr("x")), NewStr("tuple"))
	if _, ok := d.Get(NewTuple(NewInt(1), NewStr("x"))); !ok {
		t.Error("equal tuples should find the same entry")
	}

	l1, l2 := NewList(), NewList()
	d.Set(l1, NewStr("first"))
	if _, ok := d.Get(l2); ok {
		t.Error("distinct lists should hash by identity")
	}
	if _, ok := d.Get(l1); !ok {
		t.Error("list key should be found by identity")
	}

	d.Set(NewFrozenSet(NewInt(1), NewInt(2)), None)
	if _, ok := d.Get(NewFrozenSet(NewInt(2), NewInt(1))); !ok {
		t.Error("frozenset keys should ignore member order")
	}
}

func TestSetDeduplicates(t *testing.T) {
	s := NewSet(NewInt(1), NewInt(1), NewStr("1"))
	if s.Len() != 2 {
		t.Errorf("Len = %d, want 2", s.Len())
	}
	if !s.Contains(NewStr("1")) {
		t.Error("set should contain \"1\"")
	}
}

func TestTypeLookupFollowsMRO(t *testing.T) {
	base := &Type{Name: "Base", Dict: NewDict()}
	base.Dict.SetStr("greet", NewStr("base"))
	base.Dict.SetStr("only", NewStr("base-only"))
	child := &Type{Name: "Child", Bases: []*Type{base}, Dict: NewDict(), Flags: TypeFlagHeapType}
	child.Dict.SetStr("greet", NewStr("child"))

	v, ok := child.Lookup("greet")
	if !ok || v.(*Str).Value() != "child" {
		t.Errorf("Lookup(greet) = %v, want child", v)
	}
	v, ok = child.Lookup("only")
	if !ok || v.(*Str).Value() != "base-only" {
		t.Errorf("Lookup(only) = %v, want base-only", v)
	}
	if !child.IsSubtype(base) || base.IsSubtype(child) {
		t.Error("IsSubtype wrong")
	}
	if !child.IsHeap() || base.IsHeap() {
		t.Error("IsHeap wrong")
	}
}

func TestEqual(t *testing.T) {
	cases := []struct {
		a, b Object
		want bool
	}{
		{None, None, true},
		{NewInt(1), True, false},
		{NewBigInt(big.NewInt(7)), NewInt(7), true},
		{NewStr("a"), NewStr("a"), true},
		{NewBytes([]byte("a")), NewStr("a"), false},
		{NewTuple(NewInt(1)), NewTuple(NewInt(1)), true},
		{NewList(NewInt(1)), NewTuple(NewInt(1)), false},
		{NewSet(NewInt(1), NewInt(2)), NewSet(NewInt(2), NewInt(1)), true},
	}
	for i, c := range cases {
		if got := Equal(c.a, c.b); got != c.want {
			t.Errorf("case %d: Equal = %v, want %v", i, got, c.want)
		}
	}
}
