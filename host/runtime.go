// Package host is a reference runtime for the object model: a module
// registry, the builtins and sys modules, the built-in type table,
// attribute lookup and native method calls.
//
// The checkpoint engine talks to a runtime only through a narrow context
// interface; Runtime implements it for programs built on package object.
// Calling user-defined functions requires an Interpreter, which the
// embedding program supplies.
package host

import (
	"errors"
	"fmt"

	"github.com/chazu/stasis/object"
)

var (
	ErrNoInterpreter = errors.New("no interpreter bound to runtime")
	ErrNoAttribute   = errors.New("no such attribute")
	ErrNotCallable   = errors.New("object is not callable")
	ErrNoModule      = errors.New("no such module")
)

// Interpreter executes user-defined functions.
type Interpreter interface {
	CallFunction(fn *object.Function, args []object.Object, kwargs *object.Dict) (object.Object, error)
}

// Runtime is a running program's view of loaded modules and built-ins.
type Runtime struct {
	modules  map[string]*object.Module
	builtins *object.Module
	sys      *object.Module
	types    map[string]*object.Type
	interp   Interpreter
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithInterpreter binds the interpreter used to call user functions.
func WithInterpreter(i Interpreter) Option {
	return func(r *Runtime) { r.interp = i }
}

// New creates a runtime with the builtins and sys modules loaded.
func New(opts ...Option) *Runtime {
	r := &Runtime{
		modules: make(map[string]*object.Module),
		types:   make(map[string]*object.Type),
	}
	r.bootstrap()
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// ---------------------------------------------------------------------------
// Module registry
// ---------------------------------------------------------------------------

// RegisterModule makes m visible to name lookups, replacing any module of
// the same name.
func (r *Runtime) RegisterModule(m *object.Module) {
	r.modules[m.Name] = m
}

// Module returns the loaded module called name.
func (r *Runtime) Module(name string) (*object.Module, bool) {
	m, ok := r.modules[name]
	return m, ok
}

// BuiltinsModule returns the module holding the built-in namespace.
func (r *Runtime) BuiltinsModule() *object.Module { return r.builtins }

// SysModule returns the system module.
func (r *Runtime) SysModule() *object.Module { return r.sys }

// BuiltinsDict returns the canonical built-in namespace dictionary.
func (r *Runtime) BuiltinsDict() *object.Dict { return r.builtins.Dict }

// RootType returns the universal base type.
func (r *Runtime) RootType() *object.Type { return r.types["object"] }

// BuiltinType returns the built-in type called name, or nil.
func (r *Runtime) BuiltinType(name string) *object.Type { return r.types[name] }

// ---------------------------------------------------------------------------
// Types and attributes
// ---------------------------------------------------------------------------

// TypeOf returns the runtime type of o.
func (r *Runtime) TypeOf(o object.Object) *object.Type {
	switch v := o.(type) {
	case *object.Instance:
		return v.Type()
	case nil:
		return r.types["NoneType"]
	}
	if t, ok := r.types[o.TypeName()]; ok {
		return t
	}
	return r.RootType()
}

// InstanceDict returns the attribute dictionary of an instance.
func (r *Runtime) InstanceDict(o object.Object) (*object.Dict, bool) {
	if inst, ok := o.(*object.Instance); ok {
		return inst.Dict()
	}
	return nil, false
}

// GetAttr resolves name on o. Native functions found on the type are
// returned bound to o.
func (r *Runtime) GetAttr(o object.Object, name string) (object.Object, error) {
	switch v := o.(type) {
	case *object.Module:
		if attr, ok := v.Dict.GetStr(name); ok {
			return attr, nil
		}
		return nil, fmt.Errorf("%w: module %s has no attribute %q", ErrNoAttribute, v.Name, name)
	case *object.Type:
		if attr, ok := v.Lookup(name); ok {
			return attr, nil
		}
		return nil, fmt.Errorf("%w: type %s has no attribute %q", ErrNoAttribute, v.Name, name)
	case *object.Instance:
		if d, ok := v.Dict(); ok {
			if attr, ok := d.GetStr(name); ok {
				return attr, nil
			}
		}
	}
	attr, ok := r.TypeOf(o).Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s object has no attribute %q", ErrNoAttribute, o.TypeName(), name)
	}
	if fn, ok := attr.(*object.BuiltinFunction); ok {
		return fn.Bind(o), nil
	}
	return attr, nil
}

// SetAttr stores value under name in o's namespace.
func (r *Runtime) SetAttr(o object.Object, name, value object.Object) error {
	switch v := o.(type) {
	case *object.Instance:
		d, ok := v.Dict()
		if !ok {
			return fmt.Errorf("%s object has no attribute dictionary", v.TypeName())
		}
		d.Set(name, value)
		return nil
	case *object.Type:
		if !v.IsHeap() {
			return fmt.Errorf("cannot set attributes of built-in type %s", v.Name)
		}
		v.Dict.Set(name, value)
		return nil
	case *object.Module:
		v.Dict.Set(name, value)
		return nil
	}
	return fmt.Errorf("%s object attributes are read-only", o.TypeName())
}

// ---------------------------------------------------------------------------
// Calls
// ---------------------------------------------------------------------------

// Call invokes a callable.
func (r *Runtime) Call(fn object.Object, args []object.Object, kwargs *object.Dict) (object.Object, error) {
	switch f := fn.(type) {
	case *object.BuiltinFunction:
		if f.Fn == nil {
			return nil, fmt.Errorf("%w: %s.%s has no implementation", ErrNotCallable, f.Module, f.Name)
		}
		return f.Fn(f.Self, args, kwargs)
	case *object.Function:
		if r.interp == nil {
			return nil, ErrNoInterpreter
		}
		return r.interp.CallFunction(f, args, kwargs)
	case *object.Type:
		return r.NewInstance(f, args, kwargs)
	}
	return nil, fmt.Errorf("%w: %s", ErrNotCallable, fn.TypeName())
}

// CallMethod looks name up on o's type and, when present, calls it with o
// as the receiver. ok is false when the type has no such attribute.
func (r *Runtime) CallMethod(o object.Object, name string, args ...object.Object) (object.Object, bool, error) {
	attr, found := r.TypeOf(o).Lookup(name)
	if !found {
		return nil, false, nil
	}
	switch f := attr.(type) {
	case *object.BuiltinFunction:
		res, err := r.Call(f.Bind(o), args, nil)
		return res, true, err
	case *object.Function:
		res, err := r.Call(f, append([]object.Object{o}, args...), nil)
		return res, true, err
	}
	return nil, true, fmt.Errorf("%w: %s.%s", ErrNotCallable, o.TypeName(), name)
}

// ---------------------------------------------------------------------------
// Construction
// ---------------------------------------------------------------------------

// NewType creates a heap type. Descriptors the type machinery owns are
// regenerated here rather than taken from spec.Attrs.
func (r *Runtime) NewType(spec object.TypeSpec) (*object.Type, error) {
	if spec.Name == "" {
		return nil, fmt.Errorf("type name must not be empty")
	}
	bases := spec.Bases
	if len(bases) == 0 {
		bases = []*object.Type{r.RootType()}
	}
	for _, b := range bases {
		if b == nil {
			return nil, fmt.Errorf("type %s: nil base", spec.Name)
		}
		if b.IsHeap() || b == r.RootType() {
			continue
		}
		if b.Flags&object.TypeFlagBaseType == 0 {
			return nil, fmt.Errorf("type %s: type %s is not an acceptable base type", spec.Name, b.Name)
		}
	}

	qualname := spec.QualName
	if qualname == "" {
		qualname = spec.Name
	}
	t := &object.Type{
		Name:        spec.Name,
		QualName:    qualname,
		Module:      spec.Module,
		Bases:       bases,
		Dict:        object.NewDict(),
		Flags:       spec.Flags | object.TypeFlagHeapType | object.TypeFlagBaseType,
		BasicSize:   spec.BasicSize,
		ItemSize:    spec.ItemSize,
		MemberCount: spec.MemberCount,
	}
	if spec.Attrs != nil {
		for _, item := range spec.Attrs.Items() {
			if _, ok := item.Value.(object.Descriptor); ok {
				continue
			}
			t.Dict.Set(item.Key, item.Value)
		}
	}
	if t.HasDict() {
		t.Dict.SetStr("__dict__", &object.GetSetDescriptor{Owner: t, Name: "__dict__"})
		t.Dict.SetStr("__weakref__", &object.GetSetDescriptor{Owner: t, Name: "__weakref__"})
	}
	if _, ok := t.Dict.GetStr("__module__"); !ok && spec.Module != "" {
		t.Dict.SetStr("__module__", object.NewStr(spec.Module))
	}
	return t, nil
}

// NewInstance allocates an instance of t, routing through __new__ when the
// type defines one. Initializers are not run.
func (r *Runtime) NewInstance(t *object.Type, args []object.Object, kwargs *object.Dict) (object.Object, error) {
	if ctor, ok := t.Lookup("__new__"); ok {
		return r.Call(ctor, append([]object.Object{t}, args...), kwargs)
	}
	if !t.IsHeap() && t != r.RootType() {
		return nil, fmt.Errorf("cannot create %s instances", t.Name)
	}
	if len(args) > 0 || (kwargs != nil && kwargs.Len() > 0) {
		return nil, fmt.Errorf("%s() takes no arguments", t.Name)
	}
	return object.NewInstance(t), nil
}
