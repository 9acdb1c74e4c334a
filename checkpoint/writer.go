package checkpoint

import (
	"math"
	"sort"

	"github.com/chazu/stasis/canon"
	"github.com/chazu/stasis/codec"
	"github.com/chazu/stasis/object"
)

// ---------------------------------------------------------------------------
// Writer: flattens a live object graph into an entry table
// ---------------------------------------------------------------------------

// Writer assigns ids to reachable objects and builds their entries. A
// Writer is used for one checkpoint and is not safe for concurrent use.
type Writer struct {
	rt       Runtime
	codes    CodeCodec
	classify *Classifier

	// Identity memo: live object -> reserved id
	memo map[object.Object]ObjId

	// Entry table, append-only
	objects []Entry
}

// NewWriter creates a writer over objects of rt.
func NewWriter(rt Runtime, codes CodeCodec, classify *Classifier) *Writer {
	return &Writer{
		rt:       rt,
		codes:    codes,
		classify: classify,
		memo:     make(map[object.Object]ObjId),
	}
}

// Entries returns the table built so far.
func (w *Writer) Entries() []Entry { return w.objects }

// Serialize adds o and everything reachable from it to the table and
// returns o's id. Objects already in the table are not visited again.
func (w *Writer) Serialize(o object.Object) (ObjId, error) {
	if o == nil {
		o = object.None
	}
	if id, ok := w.memo[o]; ok {
		return id, nil
	}
	if uint64(len(w.objects)) >= math.MaxUint32 {
		return 0, newError(ErrMalformed, "object table exceeds %d entries", uint32(math.MaxUint32))
	}

	tag := w.classify.Classify(o)

	// Reserve the id before building the payload so that cycles back to o
	// resolve to this entry.
	id := ObjId(len(w.objects))
	w.objects = append(w.objects, Entry{Tag: tag})
	w.memo[o] = id

	p, err := w.build(tag, o)
	if err != nil {
		return 0, err
	}
	raw, err := codec.Marshal(p)
	if err != nil {
		return 0, wrapError(ErrMalformed, err, "encode %s entry %d", tag, id)
	}
	w.objects[id].Payload = raw
	return id, nil
}

func (w *Writer) build(tag Tag, o object.Object) (any, error) {
	switch tag {
	case TagNone:
		return nil, nil
	case TagBool:
		return o.(*object.Bool).Value(), nil
	case TagInt:
		return intPayload(o.(object.Integer).BigInt().String()), nil
	case TagFloat:
		return o.(*object.Float).Value(), nil
	case TagStr:
		return o.(*object.Str).Value(), nil
	case TagBytes:
		return o.(*object.Bytes).Value(), nil
	case TagList:
		return w.serializeAll(o.(*object.List).Items())
	case TagTuple:
		return w.serializeAll(o.(*object.Tuple).Items())
	case TagDict:
		return w.buildDict(o.(*object.Dict))
	case TagSet:
		return w.buildMembers(o.(*object.Set).Members())
	case TagFrozenSet:
		return w.buildMembers(o.(*object.FrozenSet).Members())
	case TagModule:
		m := o.(*object.Module)
		dict, err := w.Serialize(m.Dict)
		if err != nil {
			return nil, err
		}
		return &modulePayload{Name: m.Name, Dict: dict}, nil
	case TagBuiltinModule:
		return &namedPayload{Name: o.(*object.Module).Name}, nil
	case TagBuiltinDict:
		return &namedPayload{Name: w.rt.BuiltinsModule().Name}, nil
	case TagFunction:
		return w.buildFunction(o.(*object.Function))
	case TagBuiltinFunction:
		return w.buildBuiltinFunction(o.(*object.BuiltinFunction))
	case TagCode:
		data, err := w.codes.EncodeCode(o.(*object.Code))
		if err != nil {
			return nil, wrapError(nil, err, "encode code %s", o.(*object.Code).Name)
		}
		return data, nil
	case TagType:
		return w.buildType(o.(*object.Type))
	case TagBuiltinType:
		t := o.(*object.Type)
		return &builtinTypePayload{Module: t.Module, Name: t.Name}, nil
	case TagCell:
		c := o.(*object.Cell)
		if c.Empty() {
			return &cellPayload{}, nil
		}
		id, err := w.Serialize(c.Contents)
		if err != nil {
			return nil, err
		}
		return &cellPayload{Value: idRef(id)}, nil
	case TagInstance:
		return w.buildInstance(o)
	}
	return nil, newError(ErrShapeMismatch, "no payload for tag %s", tag)
}

// ---------------------------------------------------------------------------
// Containers
// ---------------------------------------------------------------------------

func (w *Writer) serializeAll(items []object.Object) (seqPayload, error) {
	ids := make(seqPayload, 0, len(items))
	for _, item := range items {
		id, err := w.Serialize(item)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// sortedOrder returns the indices of keys ordered by canonical key.
func sortedOrder(keys []object.Object) ([]int, error) {
	encoded := make([][]byte, len(keys))
	for i, k := range keys {
		b, err := canon.Key(k)
		if err != nil {
			return nil, wrapError(nil, err, "collection key")
		}
		encoded[i] = b
	}
	order := make([]int, len(keys))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return canon.Compare(encoded[order[a]], encoded[order[b]]) < 0
	})
	return order, nil
}

func (w *Writer) buildDict(d *object.Dict) (dictPayload, error) {
	items := d.Items()
	order, err := sortedOrder(d.Keys())
	if err != nil {
		return nil, err
	}
	pairs := make(dictPayload, 0, len(items))
	for _, i := range order {
		k, err := w.Serialize(items[i].Key)
		if err != nil {
			return nil, err
		}
		v, err := w.Serialize(items[i].Value)
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, dictPair{Key: k, Value: v})
	}
	return pairs, nil
}

func (w *Writer) buildMembers(members []object.Object) (seqPayload, error) {
	order, err := sortedOrder(members)
	if err != nil {
		return nil, err
	}
	sorted := make([]object.Object, len(members))
	for i, j := range order {
		sorted[i] = members[j]
	}
	return w.serializeAll(sorted)
}

// ---------------------------------------------------------------------------
// Functions and types
// ---------------------------------------------------------------------------

func (w *Writer) buildFunction(f *object.Function) (*functionPayload, error) {
	if f.Code == nil || f.Globals == nil {
		return nil, newError(ErrShapeMismatch, "function without code or globals")
	}
	p := &functionPayload{}
	required := []struct {
		dst *ObjId
		src object.Object
	}{
		{&p.Code, f.Code},
		{&p.Globals, f.Globals},
		{&p.Name, f.Name},
		{&p.QualName, f.QualName},
		{&p.Annotations, f.Annotations},
		{&p.Module, f.Module},
		{&p.Doc, f.Doc},
		{&p.TypeParams, f.TypeParams},
	}
	for _, field := range required {
		id, err := w.Serialize(field.src)
		if err != nil {
			return nil, err
		}
		*field.dst = id
	}

	var err error
	if f.Defaults != nil {
		if p.Defaults, err = w.serializeRef(f.Defaults); err != nil {
			return nil, err
		}
	}
	if f.KwDefaults != nil {
		if p.KwDefaults, err = w.serializeRef(f.KwDefaults); err != nil {
			return nil, err
		}
	}
	if f.Closure != nil {
		if p.Closure, err = w.serializeRef(f.Closure); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (w *Writer) buildBuiltinFunction(f *object.BuiltinFunction) (*builtinFunctionPayload, error) {
	p := &builtinFunctionPayload{Module: f.Module, Name: f.Name}
	if f.Self == nil {
		// Unbound methods of built-in types are found through their type.
		// Methods of heap types fall back to their exporting module.
		if f.Owner != nil && !f.Owner.IsHeap() {
			p.Module, p.Owner = f.Owner.Module, f.Owner.Name
		}
		return p, nil
	}
	// Module-level functions are found by name; only real receivers are kept.
	if _, ok := f.Self.(*object.Module); ok {
		return p, nil
	}
	self, err := w.serializeRef(f.Self)
	if err != nil {
		return nil, err
	}
	p.Self = self
	return p, nil
}

func (w *Writer) buildType(t *object.Type) (*typePayload, error) {
	p := &typePayload{
		Name:      t.Name,
		QualName:  t.QualName,
		Module:    t.Module,
		Bases:     make([]ObjId, 0, len(t.Bases)),
		Flags:     t.Flags,
		BasicSize: t.BasicSize,
		ItemSize:  t.ItemSize,
		Members:   t.MemberCount,
	}
	for _, b := range t.Bases {
		id, err := w.Serialize(b)
		if err != nil {
			return nil, err
		}
		p.Bases = append(p.Bases, id)
	}

	// Descriptors are regenerated by the type machinery on restore.
	attrs := object.NewDict()
	if t.Dict != nil {
		for _, item := range t.Dict.Items() {
			if _, ok := item.Value.(object.Descriptor); ok {
				continue
			}
			attrs.Set(item.Key, item.Value)
		}
	}
	dict, err := w.Serialize(attrs)
	if err != nil {
		return nil, err
	}
	p.Dict = dict
	return p, nil
}

// ---------------------------------------------------------------------------
// Instances
// ---------------------------------------------------------------------------

func (w *Writer) buildInstance(o object.Object) (*instancePayload, error) {
	typ := w.rt.TypeOf(o)
	if _, ok := o.(*object.Instance); !ok && !typ.IsHeap() {
		return nil, newError(ErrShapeMismatch, "cannot checkpoint %s objects", o.TypeName())
	}
	tid, err := w.Serialize(typ)
	if err != nil {
		return nil, err
	}
	p := &instancePayload{Type: tid}

	if err := w.instanceRecipe(o, p); err != nil {
		return nil, err
	}

	state, ok, err := w.rt.CallMethod(o, "__getstate__")
	if err != nil {
		return nil, wrapError(nil, err, "%s.__getstate__", o.TypeName())
	}
	if !ok {
		if d, hasDict := w.rt.InstanceDict(o); hasDict {
			state, ok = d, true
		}
	}
	if ok {
		if p.State, err = w.serializeRef(state); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// instanceRecipe records the constructor arguments for o, preferring the
// keyword-argument protocol.
func (w *Writer) instanceRecipe(o object.Object, p *instancePayload) error {
	res, ok, err := w.rt.CallMethod(o, "__getnewargs_ex__")
	if err != nil {
		return wrapError(nil, err, "%s.__getnewargs_ex__", o.TypeName())
	}
	if ok {
		pair, isTuple := res.(*object.Tuple)
		if !isTuple || pair.Len() != 2 {
			return newError(ErrShapeMismatch, "%s.__getnewargs_ex__ must return (args, kwargs)", o.TypeName())
		}
		args, isArgs := pair.Get(0).(*object.Tuple)
		kwargs, isKwargs := pair.Get(1).(*object.Dict)
		if !isArgs || !isKwargs {
			return newError(ErrShapeMismatch, "%s.__getnewargs_ex__ must return (tuple, dict)", o.TypeName())
		}
		if p.Args, err = w.serializeRef(args); err != nil {
			return err
		}
		p.Kwargs, err = w.serializeRef(kwargs)
		return err
	}

	res, ok, err = w.rt.CallMethod(o, "__getnewargs__")
	if err != nil {
		return wrapError(nil, err, "%s.__getnewargs__", o.TypeName())
	}
	if !ok {
		return nil
	}
	args, isTuple := res.(*object.Tuple)
	if !isTuple {
		return newError(ErrShapeMismatch, "%s.__getnewargs__ must return a tuple", o.TypeName())
	}
	p.Args, err = w.serializeRef(args)
	return err
}

func (w *Writer) serializeRef(o object.Object) (*ObjId, error) {
	id, err := w.Serialize(o)
	if err != nil {
		return nil, err
	}
	return idRef(id), nil
}
