package checkpoint

import (
	"github.com/chazu/stasis/object"
)

// restoreState tracks one id through reconstruction. States only move
// forward.
type restoreState uint8

const (
	stateAbsent   restoreState = iota
	stateBuilding              // constructor dependencies being resolved
	stateShell                 // identity exists, contents pending
	stateComplete
)

// deferredAttr is a type attribute that refers to the type itself and is
// written once the type exists.
type deferredAttr struct {
	owner, key, value ObjId
}

// ---------------------------------------------------------------------------
// Reader: rebuilds live objects from a validated entry table
// ---------------------------------------------------------------------------

// Reader reconstructs the objects of one checkpoint in three passes:
// create, fill, finalize. A Reader is used once.
type Reader struct {
	rt    Runtime
	codes CodeCodec

	// Input table
	entries  []Entry
	payloads []payload

	// Live objects indexed by id
	objs  []object.Object
	state []restoreState

	// Work left for the finalize pass
	deferred  []deferredAttr
	instances []ObjId
}

func newReader(rt Runtime, codes CodeCodec, entries []Entry, payloads []payload) *Reader {
	return &Reader{
		rt:       rt,
		codes:    codes,
		entries:  entries,
		payloads: payloads,
		objs:     make([]object.Object, len(entries)),
		state:    make([]restoreState, len(entries)),
	}
}

// Restore runs all three passes and returns the objects indexed by id.
func (r *Reader) Restore() ([]object.Object, error) {
	for i := range r.entries {
		if _, err := r.get(ObjId(i)); err != nil {
			return nil, err
		}
	}
	for i := range r.entries {
		if r.state[i] == stateShell {
			if err := r.fill(ObjId(i)); err != nil {
				return nil, err
			}
		}
	}
	if err := r.finalize(); err != nil {
		return nil, err
	}
	return r.objs, nil
}

// get returns the live object for id, creating it if needed.
func (r *Reader) get(id ObjId) (object.Object, error) {
	switch r.state[id] {
	case stateShell, stateComplete:
		return r.objs[id], nil
	case stateBuilding:
		return nil, newError(ErrDependencyCycle, "entry %d (%s) is required to construct itself", id, r.entries[id].Tag)
	}

	r.state[id] = stateBuilding
	o, shell, err := r.create(id)
	if err != nil {
		return nil, err
	}
	r.objs[id] = o
	if shell {
		r.state[id] = stateShell
	} else {
		r.state[id] = stateComplete
	}
	return o, nil
}

// complete returns the object for id with its contents filled in.
func (r *Reader) complete(id ObjId) (object.Object, error) {
	o, err := r.get(id)
	if err != nil {
		return nil, err
	}
	if r.state[id] == stateShell {
		if err := r.fill(id); err != nil {
			return nil, err
		}
	}
	return o, nil
}

func resolve[T object.Object](r *Reader, id ObjId, what string) (T, error) {
	var zero T
	o, err := r.get(id)
	if err != nil {
		return zero, err
	}
	v, ok := o.(T)
	if !ok {
		return zero, newError(ErrShapeMismatch, "%s: entry %d is %s", what, id, r.entries[id].Tag)
	}
	return v, nil
}

// ---------------------------------------------------------------------------
// Pass 1: create
// ---------------------------------------------------------------------------

func (r *Reader) create(id ObjId) (object.Object, bool, error) {
	tag := r.entries[id].Tag
	switch p := r.payloads[id].(type) {
	case nonePayload:
		return object.None, false, nil
	case boolPayload:
		return object.NewBool(bool(p)), false, nil
	case intPayload:
		v, err := object.ParseInt(string(p))
		if err != nil {
			return nil, false, wrapError(ErrShapeMismatch, err, "entry %d", id)
		}
		return v, false, nil
	case floatPayload:
		return object.NewFloat(float64(p)), false, nil
	case strPayload:
		return object.NewStr(string(p)), false, nil
	case bytesPayload:
		return object.NewBytes(p), false, nil
	case codePayload:
		c, err := r.codes.DecodeCode(p)
		if err != nil {
			return nil, false, wrapError(ErrMalformed, err, "entry %d: decode code", id)
		}
		return c, false, nil

	case seqPayload:
		switch tag {
		case TagList:
			return object.NewList(), true, nil
		case TagSet:
			return object.NewSet(), true, nil
		}
		items, err := r.getAll(p)
		if err != nil {
			return nil, false, err
		}
		if tag == TagTuple {
			return object.NewTuple(items...), false, nil
		}
		return object.NewFrozenSet(items...), false, nil
	case dictPayload:
		return object.NewDict(), true, nil
	case *cellPayload:
		return object.NewCell(nil), true, nil

	case *modulePayload:
		dict, err := resolve[*object.Dict](r, p.Dict, "module dict")
		if err != nil {
			return nil, false, err
		}
		return object.NewModuleWithDict(p.Name, dict), false, nil
	case *namedPayload:
		m, ok := r.rt.Module(p.Name)
		if !ok {
			return nil, false, newError(ErrMissingBuiltin, "module %q", p.Name)
		}
		if tag == TagBuiltinDict {
			return m.Dict, false, nil
		}
		return m, false, nil
	case *builtinTypePayload:
		t, err := r.builtinType(p)
		return t, false, err
	case *builtinFunctionPayload:
		f, err := r.builtinFunction(p)
		return f, false, err
	case *functionPayload:
		f, err := r.createFunction(p)
		return f, false, err
	case *typePayload:
		t, err := r.createType(id, p)
		return t, false, err
	case *instancePayload:
		inst, err := r.createInstance(id, p)
		return inst, false, err
	}
	return nil, false, newError(ErrShapeMismatch, "entry %d: unexpected %s payload", id, tag)
}

func (r *Reader) getAll(ids []ObjId) ([]object.Object, error) {
	items := make([]object.Object, len(ids))
	for i, id := range ids {
		o, err := r.get(id)
		if err != nil {
			return nil, err
		}
		items[i] = o
	}
	return items, nil
}

func (r *Reader) builtinType(p *builtinTypePayload) (*object.Type, error) {
	m, ok := r.rt.Module(p.Module)
	if !ok {
		return nil, newError(ErrMissingBuiltin, "type %s.%s: module not loaded", p.Module, p.Name)
	}
	v, ok := m.Dict.GetStr(p.Name)
	if !ok {
		return nil, newError(ErrMissingBuiltin, "type %s.%s", p.Module, p.Name)
	}
	t, ok := v.(*object.Type)
	if !ok {
		return nil, newError(ErrMissingBuiltin, "%s.%s is %s, not a type", p.Module, p.Name, v.TypeName())
	}
	return t, nil
}

func (r *Reader) builtinFunction(p *builtinFunctionPayload) (*object.BuiltinFunction, error) {
	var v object.Object
	switch {
	case p.Self != nil:
		self, err := r.get(*p.Self)
		if err != nil {
			return nil, err
		}
		v, err = r.rt.GetAttr(self, p.Name)
		if err != nil {
			return nil, wrapError(ErrMissingBuiltin, err, "method %s of %s", p.Name, self.TypeName())
		}
	case p.Owner != "":
		t, err := r.builtinType(&builtinTypePayload{Module: p.Module, Name: p.Owner})
		if err != nil {
			return nil, err
		}
		var ok bool
		if v, ok = t.Lookup(p.Name); !ok {
			return nil, newError(ErrMissingBuiltin, "method %s.%s.%s", p.Module, p.Owner, p.Name)
		}
	default:
		m, ok := r.rt.Module(p.Module)
		if !ok {
			return nil, newError(ErrMissingBuiltin, "function %s.%s: module not loaded", p.Module, p.Name)
		}
		if v, ok = m.Dict.GetStr(p.Name); !ok {
			return nil, newError(ErrMissingBuiltin, "function %s.%s", p.Module, p.Name)
		}
	}
	f, ok := v.(*object.BuiltinFunction)
	if !ok {
		return nil, newError(ErrMissingBuiltin, "%s.%s is %s, not a built-in function", p.Module, p.Name, v.TypeName())
	}
	return f, nil
}

func (r *Reader) createFunction(p *functionPayload) (*object.Function, error) {
	code, err := resolve[*object.Code](r, p.Code, "function code")
	if err != nil {
		return nil, err
	}
	globals, err := resolve[*object.Dict](r, p.Globals, "function globals")
	if err != nil {
		return nil, err
	}
	f := &object.Function{Code: code, Globals: globals}
	if p.Defaults != nil {
		if f.Defaults, err = resolve[*object.Tuple](r, *p.Defaults, "function defaults"); err != nil {
			return nil, err
		}
	}
	if p.KwDefaults != nil {
		if f.KwDefaults, err = resolve[*object.Dict](r, *p.KwDefaults, "function kwdefaults"); err != nil {
			return nil, err
		}
	}
	if p.Closure != nil {
		if f.Closure, err = resolve[*object.Tuple](r, *p.Closure, "function closure"); err != nil {
			return nil, err
		}
	}
	fields := []struct {
		dst *object.Object
		src ObjId
	}{
		{&f.Name, p.Name},
		{&f.QualName, p.QualName},
		{&f.Annotations, p.Annotations},
		{&f.Module, p.Module},
		{&f.Doc, p.Doc},
		{&f.TypeParams, p.TypeParams},
	}
	for _, field := range fields {
		if *field.dst, err = r.get(field.src); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// createType builds a heap type from its recorded attributes. Attributes
// that mention the type itself cannot be passed to the constructor and are
// written in the finalize pass.
func (r *Reader) createType(id ObjId, p *typePayload) (*object.Type, error) {
	bases := make([]*object.Type, 0, len(p.Bases))
	for _, b := range p.Bases {
		t, err := resolve[*object.Type](r, b, "type base")
		if err != nil {
			return nil, err
		}
		bases = append(bases, t)
	}
	if len(bases) == 0 {
		bases = append(bases, r.rt.RootType())
	}

	pairs, ok := r.payloads[p.Dict].(dictPayload)
	if !ok {
		return nil, newError(ErrShapeMismatch, "type %s: attribute entry %d is %s", p.Name, p.Dict, r.entries[p.Dict].Tag)
	}
	attrs := object.NewDict()
	for _, pair := range pairs {
		if pair.Key == id || pair.Value == id {
			r.deferred = append(r.deferred, deferredAttr{owner: id, key: pair.Key, value: pair.Value})
			continue
		}
		k, err := r.get(pair.Key)
		if err != nil {
			return nil, err
		}
		v, err := r.get(pair.Value)
		if err != nil {
			return nil, err
		}
		attrs.Set(k, v)
	}

	t, err := r.rt.NewType(object.TypeSpec{
		Name:        p.Name,
		QualName:    p.QualName,
		Module:      p.Module,
		Bases:       bases,
		Attrs:       attrs,
		Flags:       p.Flags,
		BasicSize:   p.BasicSize,
		ItemSize:    p.ItemSize,
		MemberCount: p.Members,
	})
	if err != nil {
		return nil, wrapError(nil, err, "create type %s", p.Name)
	}
	return t, nil
}

func (r *Reader) createInstance(id ObjId, p *instancePayload) (object.Object, error) {
	typ, err := resolve[*object.Type](r, p.Type, "instance type")
	if err != nil {
		return nil, err
	}

	// Constructor arguments are passed with their contents in place.
	var args []object.Object
	if p.Args != nil {
		if items, ok := r.payloads[*p.Args].(seqPayload); ok {
			for _, item := range items {
				if _, err := r.complete(item); err != nil {
					return nil, err
				}
			}
		}
		t, err := resolve[*object.Tuple](r, *p.Args, "instance args")
		if err != nil {
			return nil, err
		}
		args = t.Items()
	}
	var kwargs *object.Dict
	if p.Kwargs != nil {
		if _, err := r.complete(*p.Kwargs); err != nil {
			return nil, err
		}
		if kwargs, err = resolve[*object.Dict](r, *p.Kwargs, "instance kwargs"); err != nil {
			return nil, err
		}
	}

	inst, err := r.rt.NewInstance(typ, args, kwargs)
	if err != nil {
		return nil, wrapError(nil, err, "create %s instance", typ.Name)
	}
	if p.State != nil {
		r.instances = append(r.instances, id)
	}
	return inst, nil
}

// ---------------------------------------------------------------------------
// Pass 2: fill
// ---------------------------------------------------------------------------

func (r *Reader) fill(id ObjId) error {
	r.state[id] = stateComplete
	switch o := r.objs[id].(type) {
	case *object.List:
		items, err := r.getAll(r.payloads[id].(seqPayload))
		if err != nil {
			return err
		}
		o.Append(items...)
	case *object.Set:
		members, err := r.getAll(r.payloads[id].(seqPayload))
		if err != nil {
			return err
		}
		for _, m := range members {
			o.Add(m)
		}
	case *object.Dict:
		for _, pair := range r.payloads[id].(dictPayload) {
			k, err := r.get(pair.Key)
			if err != nil {
				return err
			}
			v, err := r.get(pair.Value)
			if err != nil {
				return err
			}
			o.Set(k, v)
		}
	case *object.Cell:
		p := r.payloads[id].(*cellPayload)
		if p.Value != nil {
			v, err := r.get(*p.Value)
			if err != nil {
				return err
			}
			o.Contents = v
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Pass 3: finalize
// ---------------------------------------------------------------------------

func (r *Reader) finalize() error {
	for _, d := range r.deferred {
		if err := r.rt.SetAttr(r.objs[d.owner], r.objs[d.key], r.objs[d.value]); err != nil {
			return wrapError(nil, err, "entry %d: set deferred attribute", d.owner)
		}
	}

	for _, id := range r.instances {
		inst := r.objs[id]
		state := r.objs[*r.payloads[id].(*instancePayload).State]
		if state == object.None {
			continue
		}
		_, ok, err := r.rt.CallMethod(inst, "__setstate__", state)
		if err != nil {
			return wrapError(nil, err, "entry %d: %s.__setstate__", id, inst.TypeName())
		}
		if ok {
			continue
		}
		d, hasDict := r.rt.InstanceDict(inst)
		if !hasDict {
			return newError(ErrShapeMismatch, "entry %d: %s instance has state but no attribute dictionary", id, inst.TypeName())
		}
		sd, isDict := state.(*object.Dict)
		if !isDict {
			return newError(ErrShapeMismatch, "entry %d: %s state is %s, not a dict", id, inst.TypeName(), state.TypeName())
		}
		// The state may be the instance's own dict when restored in place.
		if sd == d {
			continue
		}
		for _, item := range sd.Items() {
			d.Set(item.Key, item.Value)
		}
	}
	return nil
}
