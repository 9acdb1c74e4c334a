package checkpoint

import (
	"testing"

	"github.com/chazu/stasis/object"
)

// ---------------------------------------------------------------------------
// FuzzLoad: Load and Inspect must never panic on arbitrary input. Errors
// are expected and acceptable; panics are bugs.
// ---------------------------------------------------------------------------

// buildSeedCheckpoint writes a small checkpoint that touches most tags, to
// give the fuzzer a well-formed starting point.
func buildSeedCheckpoint(t testing.TB) []byte {
	t.Helper()

	rt, e := newTestEngine()
	node, err := rt.NewType(object.TypeSpec{Name: "Node", Module: "__main__", Flags: object.TypeFlagManagedDict})
	if err != nil {
		t.Fatalf("NewType failed: %v", err)
	}
	inst, err := rt.NewInstance(node, nil, nil)
	if err != nil {
		t.Fatalf("NewInstance failed: %v", err)
	}

	mod := object.NewModule("__main__")
	fn := object.NewFunction(&object.Code{Filename: "main.src", Name: "f"}, mod.Dict)
	fn.Closure = object.NewTuple(object.NewCell(inst))
	d, _ := inst.(*object.Instance).Dict()
	d.SetStr("self", inst)
	d.SetStr("items", object.NewList(object.NewInt(1), object.NewFloat(2), object.NewBytes([]byte("b"))))

	mod.Dict.SetStr("Node", node)
	mod.Dict.SetStr("node", inst)
	mod.Dict.SetStr("f", fn)
	mod.Dict.SetStr("len", mustBuiltin(t, rt.BuiltinsDict(), "len"))
	mod.Dict.SetStr("tags", object.NewSet(object.NewStr("a"), object.NewFrozenSet(object.True)))

	data, err := e.Dump(mod, testCode(), 3, "main.src")
	if err != nil {
		t.Fatalf("Dump failed: %v", err)
	}
	return data
}

func mustBuiltin(t testing.TB, d *object.Dict, name string) object.Object {
	t.Helper()
	v, ok := d.GetStr(name)
	if !ok {
		t.Fatalf("built-in %q missing", name)
	}
	return v
}

func FuzzLoad(f *testing.F) {
	seed := buildSeedCheckpoint(f)
	f.Add(seed)
	f.Add(seed[:len(seed)/2])
	f.Add([]byte{})
	f.Add([]byte{0xa0})
	f.Add([]byte{0xf6})

	f.Fuzz(func(t *testing.T, data []byte) {
		_, e := newTestEngine()
		h, objects, err := e.Load(data)
		if err == nil && (h == nil || int(h.Root) >= len(objects)) {
			t.Fatalf("Load succeeded without a usable root")
		}
		_, _ = Inspect(data)
	})
}

func TestSeedCheckpointLoads(t *testing.T) {
	_, e := newTestEngine()
	h, objects, err := e.Load(buildSeedCheckpoint(t))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	mod, ok := objects[h.Root].(*object.Module)
	if !ok {
		t.Fatalf("root = %T, want *object.Module", objects[h.Root])
	}
	node, ok := mod.Dict.GetStr("node")
	if !ok {
		t.Fatal("node missing")
	}
	d, _ := node.(*object.Instance).Dict()
	if self, _ := d.GetStr("self"); self != node {
		t.Error("instance self reference lost")
	}
	fn := mustBuiltin(t, mod.Dict, "f").(*object.Function)
	if fn.Closure.Get(0).(*object.Cell).Contents != node {
		t.Error("closure cell must hold the restored instance")
	}
}
