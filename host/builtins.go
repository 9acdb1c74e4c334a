package host

import (
	"fmt"

	"github.com/chazu/stasis/object"
)

// Version is reported as sys.version.
const Version = "stasis-host 1.0"

// builtinTypeNames lists the fixed type surface, in registration order.
// Types marked subclassable accept heap subclasses.
var builtinTypeNames = []struct {
	name         string
	subclassable bool
}{
	{"object", true},
	{"type", true},
	{"NoneType", false},
	{"bool", false},
	{"int", true},
	{"float", true},
	{"str", true},
	{"bytes", true},
	{"list", true},
	{"tuple", true},
	{"dict", true},
	{"set", true},
	{"frozenset", true},
	{"module", true},
	{"function", false},
	{"code", false},
	{"cell", false},
	{"builtin_function_or_method", false},
	{"getset_descriptor", false},
	{"member_descriptor", false},
	{"wrapper_descriptor", false},
}

func (r *Runtime) bootstrap() {
	r.builtins = object.NewModule("builtins")
	r.sys = object.NewModule("sys")

	for _, bt := range builtinTypeNames {
		t := &object.Type{
			Name:     bt.name,
			QualName: bt.name,
			Module:   "builtins",
			Dict:     object.NewDict(),
		}
		if bt.subclassable {
			t.Flags |= object.TypeFlagBaseType
		}
		r.types[bt.name] = t
		r.builtins.Dict.SetStr(bt.name, t)
	}
	root := r.types["object"]
	for name, t := range r.types {
		if name != "object" {
			t.Bases = []*object.Type{root}
		}
	}
	r.types["bool"].Bases = []*object.Type{r.types["int"]}

	r.defineFunction(r.builtins, "len", builtinLen)
	r.defineFunction(r.builtins, "isinstance", r.builtinIsInstance)

	r.defineMethod("list", "append", listAppend)
	r.defineMethod("dict", "get", dictGet)
	r.defineMethod("set", "add", setAdd)

	r.sys.Dict.SetStr("version", object.NewStr(Version))
	r.sys.Dict.SetStr("path", object.NewList())

	r.RegisterModule(r.builtins)
	r.RegisterModule(r.sys)
}

func (r *Runtime) defineFunction(m *object.Module, name string, fn object.NativeFunc) {
	f := object.NewBuiltinFunction(m.Name, name, fn)
	f.Self = m
	m.Dict.SetStr(name, f)
}

func (r *Runtime) defineMethod(typeName, name string, fn object.NativeFunc) {
	t := r.types[typeName]
	f := object.NewBuiltinFunction("builtins", name, fn)
	f.Owner = t
	t.Dict.SetStr(name, f)
}

// ---------------------------------------------------------------------------
// Built-in functions
// ---------------------------------------------------------------------------

func builtinLen(_ object.Object, args []object.Object, _ *object.Dict) (object.Object, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("len() takes exactly one argument (%d given)", len(args))
	}
	type sized interface{ Len() int }
	switch v := args[0].(type) {
	case sized:
		return object.NewInt(int64(v.Len())), nil
	case *object.Str:
		return object.NewInt(int64(len([]rune(v.Value())))), nil
	case *object.Bytes:
		return object.NewInt(int64(len(v.Value()))), nil
	}
	return nil, fmt.Errorf("object of type %s has no len()", args[0].TypeName())
}

func (r *Runtime) builtinIsInstance(_ object.Object, args []object.Object, _ *object.Dict) (object.Object, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("isinstance expected 2 arguments, got %d", len(args))
	}
	t, ok := args[1].(*object.Type)
	if !ok {
		return nil, fmt.Errorf("isinstance() arg 2 must be a type")
	}
	return object.NewBool(r.TypeOf(args[0]).IsSubtype(t)), nil
}

func listAppend(self object.Object, args []object.Object, _ *object.Dict) (object.Object, error) {
	l, ok := self.(*object.List)
	if !ok || len(args) != 1 {
		return nil, fmt.Errorf("append() takes exactly one argument")
	}
	l.Append(args[0])
	return object.None, nil
}

func dictGet(self object.Object, args []object.Object, _ *object.Dict) (object.Object, error) {
	d, ok := self.(*object.Dict)
	if !ok || len(args) < 1 || len(args) > 2 {
		return nil, fmt.Errorf("get expected 1 or 2 arguments")
	}
	if v, ok := d.Get(args[0]); ok {
		return v, nil
	}
	if len(args) == 2 {
		return args[1], nil
	}
	return object.None, nil
}

func setAdd(self object.Object, args []object.Object, _ *object.Dict) (object.Object, error) {
	s, ok := self.(*object.Set)
	if !ok || len(args) != 1 {
		return nil, fmt.Errorf("add() takes exactly one argument")
	}
	s.Add(args[0])
	return object.None, nil
}
