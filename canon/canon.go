// Package canon derives deterministic sort keys for the members of
// unordered collections.
//
// A runtime's dicts and sets iterate in an order that depends on insertion
// history and hash-table internals. To give two logically equal
// collections byte-identical checkpoints, their members are sorted by a
// canonical encoding of each key. The encoding is defined only over values
// whose identity is their content (scalars, tuples, frozensets) or a
// stable name (types, modules, functions, code). It is never persisted.
//
// Named values key by name alone. Two distinct functions or heap types
// that share a module and qualified name get equal keys, and callers that
// sort stably keep such ties in insertion order. Checkpoints holding them
// as collection keys are therefore not canonical across insertion order.
package canon

import (
	"bytes"
	"errors"
	"fmt"
	"sort"

	"github.com/chazu/stasis/codec"
	"github.com/chazu/stasis/object"
)

// ErrUnsupportedKey is returned for values that have no canonical
// encoding and so cannot order a collection.
var ErrUnsupportedKey = errors.New("unsupported key kind")

// Key kinds. Each encoding is an array whose first element is the kind,
// so values of different kinds never collide.
const (
	kindNone uint8 = iota
	kindBool
	kindInt
	kindFloat
	kindStr
	kindBytes
	kindTuple
	kindFrozenSet
	kindType
	kindModule
	kindFunction
	kindBuiltinFunction
	kindCode
)

// Key returns the canonical encoding of o.
func Key(o object.Object) ([]byte, error) {
	switch v := o.(type) {
	case nil, *object.NoneType:
		return encode(kindNone)
	case *object.Bool:
		return encode(kindBool, v.Value())
	case object.Integer:
		return encode(kindInt, v.BigInt().String())
	case *object.Float:
		return encode(kindFloat, v.Value())
	case *object.Str:
		return encode(kindStr, v.Value())
	case *object.Bytes:
		return encode(kindBytes, v.Value())
	case *object.Tuple:
		items, err := keys(v.Items())
		if err != nil {
			return nil, err
		}
		return encode(kindTuple, items...)
	case *object.FrozenSet:
		members, err := keys(v.Members())
		if err != nil {
			return nil, err
		}
		sort.Slice(members, func(i, j int) bool {
			return Compare(members[i].(codec.RawMessage), members[j].(codec.RawMessage)) < 0
		})
		return encode(kindFrozenSet, members...)
	case *object.Type:
		return encode(kindType, v.Module, v.QualName)
	case *object.Module:
		return encode(kindModule, v.Name)
	case *object.Function:
		return encode(kindFunction, nameOf(v.Module), nameOf(v.QualName))
	case *object.BuiltinFunction:
		var owner string
		if v.Owner != nil {
			owner = v.Owner.Module + "." + v.Owner.QualName
		}
		if v.Self == nil {
			return encode(kindBuiltinFunction, v.Module, owner, v.Name)
		}
		if _, ok := v.Self.(*object.Module); ok {
			return encode(kindBuiltinFunction, v.Module, owner, v.Name)
		}
		self, err := Key(v.Self)
		if err != nil {
			return nil, fmt.Errorf("receiver of %s.%s: %w", v.Module, v.Name, err)
		}
		return encode(kindBuiltinFunction, v.Module, owner, v.Name, codec.RawMessage(self))
	case *object.Code:
		return encode(kindCode, v.Filename, v.Name, v.FirstLine)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedKey, o.TypeName())
}

// Compare orders two canonical keys: shorter keys first, then bytewise.
func Compare(a, b []byte) int {
	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}
	return bytes.Compare(a, b)
}

func keys(items []object.Object) ([]any, error) {
	out := make([]any, len(items))
	for i, item := range items {
		k, err := Key(item)
		if err != nil {
			return nil, err
		}
		out[i] = codec.RawMessage(k)
	}
	return out, nil
}

func encode(kind uint8, fields ...any) ([]byte, error) {
	return codec.Marshal(append([]any{kind}, fields...))
}

func nameOf(o object.Object) string {
	if s, ok := o.(*object.Str); ok {
		return s.Value()
	}
	return ""
}
