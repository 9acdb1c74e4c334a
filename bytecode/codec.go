// Package bytecode serializes compiled-code units.
//
// The checkpoint engine treats a code unit as opaque: it hands the unit to
// a Codec and stores whatever bytes come back. This package is the
// runtime's codec. Constants may be scalars, tuples of constants, or
// nested code units; anything else cannot appear in a constant pool.
package bytecode

import (
	"errors"
	"fmt"
	"sort"

	"github.com/chazu/stasis/canon"
	"github.com/chazu/stasis/codec"
	"github.com/chazu/stasis/object"
)

// FormatVersion is written into every encoded code unit.
// v1: initial format
const FormatVersion uint8 = 1

var (
	ErrFormatVersion = errors.New("code format version mismatch")
	ErrBadConstant   = errors.New("unsupported constant")
)

// Constant kinds
const (
	constNone uint8 = iota
	constBool
	constInt
	constFloat
	constStr
	constBytes
	constTuple
	constCode
	constFrozenSet
)

type wireCode struct {
	Version        uint8       `cbor:"0,keyasint"`
	Filename       string      `cbor:"1,keyasint"`
	Name           string      `cbor:"2,keyasint"`
	QualName       string      `cbor:"3,keyasint,omitempty"`
	FirstLine      int         `cbor:"4,keyasint"`
	ArgCount       int         `cbor:"5,keyasint,omitempty"`
	KwOnlyArgCount int         `cbor:"6,keyasint,omitempty"`
	Flags          uint32      `cbor:"7,keyasint,omitempty"`
	Instructions   []byte      `cbor:"8,keyasint"`
	Consts         []wireConst `cbor:"9,keyasint,omitempty"`
	Names          []string    `cbor:"10,keyasint,omitempty"`
	VarNames       []string    `cbor:"11,keyasint,omitempty"`
	FreeVars       []string    `cbor:"12,keyasint,omitempty"`
	CellVars       []string    `cbor:"13,keyasint,omitempty"`
}

type wireConst struct {
	Kind  uint8       `cbor:"0,keyasint"`
	Bool  bool        `cbor:"1,keyasint,omitempty"`
	Text  string      `cbor:"2,keyasint,omitempty"`
	Float *float64    `cbor:"3,keyasint,omitempty"`
	Bytes []byte      `cbor:"4,keyasint,omitempty"`
	Items []wireConst `cbor:"5,keyasint,omitempty"`
	Code  *wireCode   `cbor:"6,keyasint,omitempty"`
}

// Codec converts code units to bytes and back.
type Codec struct{}

// EncodeCode implements the checkpoint engine's code codec.
func (Codec) EncodeCode(c *object.Code) ([]byte, error) { return Marshal(c) }

// DecodeCode implements the checkpoint engine's code codec.
func (Codec) DecodeCode(data []byte) (*object.Code, error) { return Unmarshal(data) }

// Marshal encodes a code unit.
func Marshal(c *object.Code) ([]byte, error) {
	w, err := toWire(c)
	if err != nil {
		return nil, err
	}
	return codec.Marshal(w)
}

// Unmarshal decodes a code unit produced by Marshal.
func Unmarshal(data []byte) (*object.Code, error) {
	var w wireCode
	if err := codec.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("bytecode: %w", err)
	}
	return fromWire(&w)
}

func toWire(c *object.Code) (*wireCode, error) {
	if c == nil {
		return nil, fmt.Errorf("bytecode: nil code unit")
	}
	w := &wireCode{
		Version:        FormatVersion,
		Filename:       c.Filename,
		Name:           c.Name,
		QualName:       c.QualName,
		FirstLine:      c.FirstLine,
		ArgCount:       c.ArgCount,
		KwOnlyArgCount: c.KwOnlyArgCount,
		Flags:          c.Flags,
		Instructions:   c.Instructions,
		Names:          c.Names,
		VarNames:       c.VarNames,
		FreeVars:       c.FreeVars,
		CellVars:       c.CellVars,
	}
	if w.Instructions == nil {
		w.Instructions = []byte{}
	}
	for i, k := range c.Consts {
		wc, err := constToWire(k)
		if err != nil {
			return nil, fmt.Errorf("bytecode: %s const %d: %w", c.Name, i, err)
		}
		w.Consts = append(w.Consts, wc)
	}
	return w, nil
}

func constToWire(o object.Object) (wireConst, error) {
	switch v := o.(type) {
	case nil, *object.NoneType:
		return wireConst{Kind: constNone}, nil
	case *object.Bool:
		return wireConst{Kind: constBool, Bool: v.Value()}, nil
	case object.Integer:
		return wireConst{Kind: constInt, Text: v.BigInt().String()}, nil
	case *object.Float:
		f := v.Value()
		return wireConst{Kind: constFloat, Float: &f}, nil
	case *object.Str:
		return wireConst{Kind: constStr, Text: v.Value()}, nil
	case *object.Bytes:
		return wireConst{Kind: constBytes, Bytes: v.Value()}, nil
	case *object.Tuple:
		items, err := constsToWire(v.Items())
		if err != nil {
			return wireConst{}, err
		}
		return wireConst{Kind: constTuple, Items: items}, nil
	case *object.FrozenSet:
		members, err := sortedMembers(v.Members())
		if err != nil {
			return wireConst{}, err
		}
		items, err := constsToWire(members)
		if err != nil {
			return wireConst{}, err
		}
		return wireConst{Kind: constFrozenSet, Items: items}, nil
	case *object.Code:
		nested, err := toWire(v)
		if err != nil {
			return wireConst{}, err
		}
		return wireConst{Kind: constCode, Code: nested}, nil
	}
	return wireConst{}, fmt.Errorf("%w: %s", ErrBadConstant, o.TypeName())
}

func constsToWire(items []object.Object) ([]wireConst, error) {
	var out []wireConst
	for _, item := range items {
		ic, err := constToWire(item)
		if err != nil {
			return nil, err
		}
		out = append(out, ic)
	}
	return out, nil
}

// sortedMembers orders frozenset members by canonical key so equal sets
// encode identically.
func sortedMembers(members []object.Object) ([]object.Object, error) {
	keys := make([][]byte, len(members))
	for i, m := range members {
		k, err := canon.Key(m)
		if err != nil {
			return nil, fmt.Errorf("%w: frozenset member: %v", ErrBadConstant, err)
		}
		keys[i] = k
	}
	order := make([]int, len(members))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		return canon.Compare(keys[order[a]], keys[order[b]]) < 0
	})
	out := make([]object.Object, len(members))
	for i, j := range order {
		out[i] = members[j]
	}
	return out, nil
}

func fromWire(w *wireCode) (*object.Code, error) {
	if w.Version != FormatVersion {
		return nil, fmt.Errorf("bytecode: %w: expected %d, got %d", ErrFormatVersion, FormatVersion, w.Version)
	}
	c := &object.Code{
		Filename:       w.Filename,
		Name:           w.Name,
		QualName:       w.QualName,
		FirstLine:      w.FirstLine,
		ArgCount:       w.ArgCount,
		KwOnlyArgCount: w.KwOnlyArgCount,
		Flags:          w.Flags,
		Instructions:   w.Instructions,
		Names:          w.Names,
		VarNames:       w.VarNames,
		FreeVars:       w.FreeVars,
		CellVars:       w.CellVars,
	}
	for i := range w.Consts {
		k, err := constFromWire(&w.Consts[i])
		if err != nil {
			return nil, fmt.Errorf("bytecode: %s const %d: %w", w.Name, i, err)
		}
		c.Consts = append(c.Consts, k)
	}
	return c, nil
}

func constFromWire(wc *wireConst) (object.Object, error) {
	switch wc.Kind {
	case constNone:
		return object.None, nil
	case constBool:
		return object.NewBool(wc.Bool), nil
	case constInt:
		return object.ParseInt(wc.Text)
	case constFloat:
		if wc.Float == nil {
			return nil, fmt.Errorf("%w: float constant without value", ErrBadConstant)
		}
		return object.NewFloat(*wc.Float), nil
	case constStr:
		return object.NewStr(wc.Text), nil
	case constBytes:
		return object.NewBytes(wc.Bytes), nil
	case constTuple, constFrozenSet:
		items := make([]object.Object, len(wc.Items))
		for i := range wc.Items {
			item, err := constFromWire(&wc.Items[i])
			if err != nil {
				return nil, err
			}
			items[i] = item
		}
		if wc.Kind == constFrozenSet {
			return object.NewFrozenSet(items...), nil
		}
		return object.NewTuple(items...), nil
	case constCode:
		if wc.Code == nil {
			return nil, fmt.Errorf("%w: code constant without body", ErrBadConstant)
		}
		return fromWire(wc.Code)
	}
	return nil, fmt.Errorf("%w: kind %d", ErrBadConstant, wc.Kind)
}
