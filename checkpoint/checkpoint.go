// Package checkpoint freezes a live object graph into a self-contained,
// deterministic byte stream and rebuilds an equivalent graph from it.
//
// A checkpoint is a single map:
//
//	{version, source_path, lasti, code, root, objects}
//
// objects is a flat table of [tag, payload] entries. Every reference
// between objects is an index into that table, so shared and cyclic
// structure is represented once. Built-in state owned by the running
// program (its builtins and sys modules, built-in types and functions) is
// recorded by name and rebound on load rather than copied.
//
// Writing memoizes by object identity and reserves each id before the
// object's dependencies are visited. Members of dicts and sets are written
// in canonical key order, so logically equal graphs produce identical bytes.
// Loading runs three passes over the table: create objects (containers as
// empty shells), fill containers, then apply instance state.
package checkpoint

import (
	"github.com/tliron/commonlog"

	"github.com/chazu/stasis/codec"
	"github.com/chazu/stasis/object"
)

// Version is the checkpoint format version. Any other version is rejected.
// v1: initial format
const Version uint64 = 1

var log = commonlog.GetLogger("stasis.checkpoint")

// Header is the resumption metadata of a loaded checkpoint.
type Header struct {
	Version    uint64
	SourcePath string
	Lasti      uint64
	Code       *object.Code
	Root       ObjId
}

// ---------------------------------------------------------------------------
// Engine
// ---------------------------------------------------------------------------

// Engine writes and loads checkpoints for one runtime. An Engine holds no
// per-call state; concurrent calls are safe as long as they work on
// independent graphs.
type Engine struct {
	rt       Runtime
	codes    CodeCodec
	reserved []string
}

// Option configures an Engine.
type Option func(*Engine)

// WithReservedModules replaces the set of module names that are always
// rebound by name.
func WithReservedModules(names ...string) Option {
	return func(e *Engine) {
		e.reserved = append([]string(nil), names...)
	}
}

// New creates an engine over rt, using codes for compiled-code units.
func New(rt Runtime, codes CodeCodec, opts ...Option) *Engine {
	e := &Engine{
		rt:       rt,
		codes:    codes,
		reserved: DefaultReservedModules,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// Dump writes a checkpoint of root, to be resumed at lasti in code.
func (e *Engine) Dump(root object.Object, code *object.Code, lasti uint64, sourcePath string) ([]byte, error) {
	if code == nil {
		return nil, newError(ErrShapeMismatch, "no code unit to checkpoint")
	}
	codeBytes, err := e.codes.EncodeCode(code)
	if err != nil {
		return nil, wrapError(nil, err, "encode code %s", code.Name)
	}

	w := NewWriter(e.rt, e.codes, NewClassifier(e.rt, e.reserved))
	rootID, err := w.Serialize(root)
	if err != nil {
		return nil, err
	}

	s := &State{
		Version:    Version,
		SourcePath: sourcePath,
		Lasti:      lasti,
		Code:       codeBytes,
		Root:       rootID,
		Objects:    w.Entries(),
	}
	data, err := s.Encode()
	if err != nil {
		return nil, err
	}
	log.Debugf("dumped %s: %d objects, %d bytes", sourcePath, len(s.Objects), len(data))
	return data, nil
}

// Load decodes data and rebuilds its objects. The returned slice is
// indexed by id; the root object is objects[header.Root].
func (e *Engine) Load(data []byte) (*Header, []object.Object, error) {
	s, err := Decode(data)
	if err != nil {
		return nil, nil, err
	}
	payloads, err := validate(s)
	if err != nil {
		return nil, nil, err
	}
	code, err := e.codes.DecodeCode(s.Code)
	if err != nil {
		return nil, nil, wrapError(ErrMalformed, err, "decode code")
	}

	objects, err := newReader(e.rt, e.codes, s.Objects, payloads).Restore()
	if err != nil {
		return nil, nil, err
	}
	log.Debugf("loaded %s: %d objects", s.SourcePath, len(objects))

	return &Header{
		Version:    s.Version,
		SourcePath: s.SourcePath,
		Lasti:      s.Lasti,
		Code:       code,
		Root:       s.Root,
	}, objects, nil
}

// ---------------------------------------------------------------------------
// State encoding
// ---------------------------------------------------------------------------

// Encode serializes s.
func (s *State) Encode() ([]byte, error) {
	if s.Objects == nil {
		s.Objects = []Entry{}
	}
	if s.Code == nil {
		s.Code = []byte{}
	}
	data, err := codec.Marshal(s)
	if err != nil {
		return nil, wrapError(ErrMalformed, err, "encode checkpoint")
	}
	return data, nil
}

// Decode parses the top-level checkpoint map. The version is checked
// before any other field is looked at.
func Decode(data []byte) (*State, error) {
	fields, err := codec.DecodeFields(data)
	if err != nil {
		return nil, wrapError(ErrMalformed, err, "decode checkpoint")
	}
	var s State
	if err := fields.Require("version", &s.Version); err != nil {
		return nil, wrapError(ErrMalformed, err, "decode checkpoint")
	}
	if s.Version != Version {
		return nil, newError(ErrVersionMismatch, "expected version %d, got %d", Version, s.Version)
	}

	required := []struct {
		name string
		dst  any
	}{
		{"source_path", &s.SourcePath},
		{"lasti", &s.Lasti},
		{"code", &s.Code},
		{"root", &s.Root},
		{"objects", &s.Objects},
	}
	for _, f := range required {
		if err := fields.Require(f.name, f.dst); err != nil {
			return nil, wrapError(ErrMalformed, err, "decode checkpoint")
		}
	}
	return &s, nil
}

// ---------------------------------------------------------------------------
// Inspection
// ---------------------------------------------------------------------------

// Summary describes a checkpoint without restoring it.
type Summary struct {
	Version    uint64
	SourcePath string
	Lasti      uint64
	Root       ObjId
	RootTag    Tag
	CodeSize   int
	Objects    int
	Tags       map[Tag]int
}

// Inspect decodes and validates data and reports what it holds. No runtime
// is involved.
func Inspect(data []byte) (*Summary, error) {
	s, err := Decode(data)
	if err != nil {
		return nil, err
	}
	if _, err := validate(s); err != nil {
		return nil, err
	}
	sum := &Summary{
		Version:    s.Version,
		SourcePath: s.SourcePath,
		Lasti:      s.Lasti,
		Root:       s.Root,
		RootTag:    s.Objects[s.Root].Tag,
		CodeSize:   len(s.Code),
		Objects:    len(s.Objects),
		Tags:       make(map[Tag]int),
	}
	for _, e := range s.Objects {
		sum.Tags[e.Tag]++
	}
	return sum, nil
}
