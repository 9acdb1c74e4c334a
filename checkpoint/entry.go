package checkpoint

import (
	"fmt"

	"github.com/chazu/stasis/codec"
)

// Entry is one row of the object table: a tag and its encoded payload.
type Entry struct {
	_       struct{} `cbor:",toarray"`
	Tag     Tag
	Payload codec.RawMessage
}

// State is the decoded top-level checkpoint map.
type State struct {
	Version    uint64  `cbor:"version"`
	SourcePath string  `cbor:"source_path"`
	Lasti      uint64  `cbor:"lasti"`
	Code       []byte  `cbor:"code"`
	Root       ObjId   `cbor:"root"`
	Objects    []Entry `cbor:"objects"`
}

// ---------------------------------------------------------------------------
// Payloads
// ---------------------------------------------------------------------------

// payload is the decoded form of an entry. refs lists every id the entry
// depends on.
type payload interface {
	refs() []ObjId
}

type (
	nonePayload  struct{}
	boolPayload  bool
	intPayload   string // decimal
	floatPayload float64
	strPayload   string
	bytesPayload []byte
	codePayload  []byte
	seqPayload   []ObjId
	dictPayload  []dictPair
)

type dictPair struct {
	_     struct{} `cbor:",toarray"`
	Key   ObjId
	Value ObjId
}

type modulePayload struct {
	Name string `cbor:"name"`
	Dict ObjId  `cbor:"dict"`
}

// namedPayload identifies a built-in module or namespace dict.
type namedPayload struct {
	Name string `cbor:"name"`
}

type functionPayload struct {
	Code        ObjId  `cbor:"code"`
	Globals     ObjId  `cbor:"globals"`
	Defaults    *ObjId `cbor:"defaults,omitempty"`
	KwDefaults  *ObjId `cbor:"kwdefaults,omitempty"`
	Closure     *ObjId `cbor:"closure,omitempty"`
	Name        ObjId  `cbor:"name"`
	QualName    ObjId  `cbor:"qualname"`
	Annotations ObjId  `cbor:"annotations"`
	Module      ObjId  `cbor:"module"`
	Doc         ObjId  `cbor:"doc"`
	TypeParams  ObjId  `cbor:"type_params"`
}

type typePayload struct {
	Name      string  `cbor:"name"`
	QualName  string  `cbor:"qualname"`
	Module    string  `cbor:"module"`
	Bases     []ObjId `cbor:"bases"`
	Dict      ObjId   `cbor:"dict"`
	Flags     uint64  `cbor:"flags"`
	BasicSize int     `cbor:"basicsize"`
	ItemSize  int     `cbor:"itemsize"`
	Members   int     `cbor:"members"`
}

type builtinTypePayload struct {
	Module string `cbor:"module"`
	Name   string `cbor:"name"`
}

type instancePayload struct {
	Type   ObjId  `cbor:"type"`
	Args   *ObjId `cbor:"args,omitempty"`
	Kwargs *ObjId `cbor:"kwargs,omitempty"`
	State  *ObjId `cbor:"state,omitempty"`
}

type cellPayload struct {
	Value *ObjId `cbor:"value,omitempty"`
}

// builtinFunctionPayload names a module function, or a method of the
// built-in type Owner in Module when Owner is set.
type builtinFunctionPayload struct {
	Module string `cbor:"module"`
	Owner  string `cbor:"owner,omitempty"`
	Name   string `cbor:"name"`
	Self   *ObjId `cbor:"self,omitempty"`
}

func (nonePayload) refs() []ObjId  { return nil }
func (boolPayload) refs() []ObjId  { return nil }
func (intPayload) refs() []ObjId   { return nil }
func (floatPayload) refs() []ObjId { return nil }
func (strPayload) refs() []ObjId   { return nil }
func (bytesPayload) refs() []ObjId { return nil }
func (codePayload) refs() []ObjId  { return nil }
func (p seqPayload) refs() []ObjId { return p }

func (p dictPayload) refs() []ObjId {
	out := make([]ObjId, 0, 2*len(p))
	for _, pair := range p {
		out = append(out, pair.Key, pair.Value)
	}
	return out
}

func (p *modulePayload) refs() []ObjId          { return []ObjId{p.Dict} }
func (*namedPayload) refs() []ObjId             { return nil }
func (*builtinTypePayload) refs() []ObjId       { return nil }
func (p *cellPayload) refs() []ObjId            { return optional(nil, p.Value) }
func (p *builtinFunctionPayload) refs() []ObjId { return optional(nil, p.Self) }

func (p *functionPayload) refs() []ObjId {
	out := []ObjId{p.Code, p.Globals, p.Name, p.QualName, p.Annotations, p.Module, p.Doc, p.TypeParams}
	return optional(out, p.Defaults, p.KwDefaults, p.Closure)
}

func (p *typePayload) refs() []ObjId {
	return append(append([]ObjId(nil), p.Bases...), p.Dict)
}

func (p *instancePayload) refs() []ObjId {
	return optional([]ObjId{p.Type}, p.Args, p.Kwargs, p.State)
}

func optional(out []ObjId, ids ...*ObjId) []ObjId {
	for _, id := range ids {
		if id != nil {
			out = append(out, *id)
		}
	}
	return out
}

func idRef(id ObjId) *ObjId { return &id }

// ---------------------------------------------------------------------------
// Payload decoding
// ---------------------------------------------------------------------------

var cborNull = []byte{0xf6}

// Required keys of each map-shaped payload.
var (
	moduleFields          = []string{"name", "dict"}
	namedFields           = []string{"name"}
	functionFields        = []string{"code", "globals", "name", "qualname", "annotations", "module", "doc", "type_params"}
	typeFields            = []string{"name", "qualname", "module", "bases", "dict", "flags", "basicsize", "itemsize", "members"}
	builtinTypeFields     = []string{"module", "name"}
	instanceFields        = []string{"type"}
	builtinFunctionFields = []string{"module", "name"}
)

func decodePayload(tag Tag, raw codec.RawMessage) (payload, error) {
	isNull := len(raw) == 1 && raw[0] == cborNull[0]
	if tag == TagNone {
		if !isNull {
			return nil, fmt.Errorf("None payload must be null")
		}
		return nonePayload{}, nil
	}
	if isNull {
		return nil, fmt.Errorf("%s payload must not be null", tag)
	}

	switch tag {
	case TagBool:
		var p boolPayload
		err := codec.Unmarshal(raw, &p)
		return p, err
	case TagInt:
		var p intPayload
		err := codec.Unmarshal(raw, &p)
		return p, err
	case TagFloat:
		var p floatPayload
		err := codec.Unmarshal(raw, &p)
		return p, err
	case TagStr:
		var p strPayload
		err := codec.Unmarshal(raw, &p)
		return p, err
	case TagBytes:
		var p bytesPayload
		err := codec.Unmarshal(raw, &p)
		return p, err
	case TagCode:
		var p codePayload
		err := codec.Unmarshal(raw, &p)
		return p, err
	case TagList, TagTuple, TagSet, TagFrozenSet:
		var p seqPayload
		err := codec.Unmarshal(raw, &p)
		return p, err
	case TagDict:
		var p dictPayload
		err := codec.Unmarshal(raw, &p)
		return p, err
	case TagModule:
		p := new(modulePayload)
		return p, decodeMap(raw, p, moduleFields)
	case TagBuiltinModule, TagBuiltinDict:
		p := new(namedPayload)
		return p, decodeMap(raw, p, namedFields)
	case TagFunction:
		p := new(functionPayload)
		return p, decodeMap(raw, p, functionFields)
	case TagType:
		p := new(typePayload)
		return p, decodeMap(raw, p, typeFields)
	case TagBuiltinType:
		p := new(builtinTypePayload)
		return p, decodeMap(raw, p, builtinTypeFields)
	case TagInstance:
		p := new(instancePayload)
		return p, decodeMap(raw, p, instanceFields)
	case TagCell:
		p := new(cellPayload)
		return p, decodeMap(raw, p, nil)
	case TagBuiltinFunction:
		p := new(builtinFunctionPayload)
		return p, decodeMap(raw, p, builtinFunctionFields)
	}
	return nil, fmt.Errorf("unknown tag %d", uint8(tag))
}

// decodeMap decodes a map payload into v after checking that every
// required key is present.
func decodeMap(raw codec.RawMessage, v any, required []string) error {
	fields, err := codec.DecodeFields(raw)
	if err != nil {
		return err
	}
	for _, name := range required {
		if !fields.Has(name) {
			return fmt.Errorf("%w %q", codec.ErrMissingField, name)
		}
	}
	return codec.Unmarshal(raw, v)
}
