package checkpoint

import (
	"errors"
	"testing"

	"github.com/chazu/stasis/bytecode"
	"github.com/chazu/stasis/codec"
	"github.com/chazu/stasis/object"
)

// ---------------------------------------------------------------------------
// Handcrafted tables
// ---------------------------------------------------------------------------

func entry(t *testing.T, tag Tag, p any) Entry {
	t.Helper()
	raw, err := codec.Marshal(p)
	if err != nil {
		t.Fatalf("encode %s payload: %v", tag, err)
	}
	return Entry{Tag: tag, Payload: raw}
}

func table(t *testing.T, root ObjId, entries ...Entry) []byte {
	t.Helper()
	code, err := bytecode.Marshal(testCode())
	if err != nil {
		t.Fatal(err)
	}
	s := &State{Version: Version, SourcePath: "crafted", Code: code, Root: root, Objects: entries}
	data, err := s.Encode()
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func TestLoadRejectsConstructionCycle(t *testing.T) {
	data := table(t, 0,
		entry(t, TagTuple, []ObjId{1}),
		entry(t, TagTuple, []ObjId{0}),
	)
	_, e := newTestEngine()
	if _, _, err := e.Load(data); !errors.Is(err, ErrDependencyCycle) {
		t.Errorf("Load error = %v, want ErrDependencyCycle", err)
	}
}

func TestLoadAllowsContainerCycles(t *testing.T) {
	data := table(t, 0,
		entry(t, TagList, []ObjId{1}),
		entry(t, TagTuple, []ObjId{0}),
	)
	_, e := newTestEngine()
	_, objects, err := e.Load(data)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	l := objects[0].(*object.List)
	if l.Get(0).(*object.Tuple).Get(0) != l {
		t.Error("list -> tuple -> list cycle not preserved")
	}
}

func TestLoadRejectsBadTables(t *testing.T) {
	cases := []struct {
		name  string
		data  func(t *testing.T) []byte
		cause error
	}{
		{"root out of range", func(t *testing.T) []byte {
			return table(t, 3, entry(t, TagNone, nil))
		}, ErrMalformed},
		{"empty table", func(t *testing.T) []byte {
			return table(t, 0)
		}, ErrMalformed},
		{"reference out of range", func(t *testing.T) []byte {
			return table(t, 0, entry(t, TagList, []ObjId{5}))
		}, ErrMalformed},
		{"unknown tag", func(t *testing.T) []byte {
			return table(t, 0, entry(t, Tag(99), nil))
		}, ErrMalformed},
		{"null scalar", func(t *testing.T) []byte {
			return table(t, 0, entry(t, TagInt, nil))
		}, ErrShapeMismatch},
		{"wrong scalar kind", func(t *testing.T) []byte {
			return table(t, 0, entry(t, TagStr, 12))
		}, ErrShapeMismatch},
		{"bad integer text", func(t *testing.T) []byte {
			return table(t, 0, entry(t, TagInt, "12x"))
		}, ErrShapeMismatch},
		{"missing field", func(t *testing.T) []byte {
			return table(t, 0, entry(t, TagModule, map[string]any{"name": "m"}))
		}, ErrShapeMismatch},
		{"module dict is a list", func(t *testing.T) []byte {
			return table(t, 0,
				entry(t, TagModule, map[string]any{"name": "m", "dict": 1}),
				entry(t, TagList, []ObjId{}),
			)
		}, ErrShapeMismatch},
		{"dict pair too short", func(t *testing.T) []byte {
			return table(t, 0, entry(t, TagDict, [][]ObjId{{0}}))
		}, ErrShapeMismatch},
		{"missing built-in type", func(t *testing.T) []byte {
			return table(t, 0, entry(t, TagBuiltinType, map[string]any{"module": "builtins", "name": "nosuchtype"}))
		}, ErrMissingBuiltin},
	}
	_, e := newTestEngine()
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, _, err := e.Load(c.data(t))
			if !errors.Is(err, c.cause) {
				t.Errorf("Load error = %v, want %v", err, c.cause)
			}
		})
	}
}

func TestLoadMissingFieldNamesField(t *testing.T) {
	data := table(t, 0, entry(t, TagModule, map[string]any{"name": "m"}))
	_, e := newTestEngine()
	_, _, err := e.Load(data)
	if !errors.Is(err, codec.ErrMissingField) {
		t.Errorf("Load error = %v, want ErrMissingField", err)
	}
}

func TestLoadSkipsNoneState(t *testing.T) {
	_, e := newTestEngine()
	data := table(t, 0,
		entry(t, TagInstance, map[string]any{"type": 1, "state": 2}),
		entry(t, TagBuiltinType, map[string]any{"module": "builtins", "name": "object"}),
		entry(t, TagNone, nil),
	)
	_, objects, err := e.Load(data)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if _, ok := objects[0].(*object.Instance); !ok {
		t.Errorf("root = %T, want *object.Instance", objects[0])
	}
}

func TestInspect(t *testing.T) {
	data := table(t, 0,
		entry(t, TagList, []ObjId{1, 2, 1}),
		entry(t, TagStr, "x"),
		entry(t, TagInt, "5"),
	)
	sum, err := Inspect(data)
	if err != nil {
		t.Fatal(err)
	}
	if sum.Objects != 3 || sum.RootTag != TagList || sum.SourcePath != "crafted" {
		t.Errorf("summary = %+v", sum)
	}
	if sum.Tags[TagList] != 1 || sum.Tags[TagStr] != 1 || sum.Tags[TagInt] != 1 {
		t.Errorf("tags = %v", sum.Tags)
	}
	if sum.CodeSize == 0 {
		t.Error("code size not reported")
	}
}

func TestTagString(t *testing.T) {
	if TagBuiltinFunction.String() != "BuiltinFunction" {
		t.Errorf("String = %q", TagBuiltinFunction.String())
	}
	if Tag(200).String() != "Tag(200)" {
		t.Errorf("String = %q", Tag(200).String())
	}
	if len(Tags()) != int(numTags) || Tags()[TagCell] != TagCell {
		t.Error("Tags must list every tag in wire order")
	}
}
