// Package object implements the host runtime's object model: the values a
// running program manipulates and that a checkpoint walks.
//
// This package contains:
//   - scalar values (None, Bool, Int, Float, Str, Bytes)
//   - insertion-ordered containers (List, Tuple, Dict, Set, FrozenSet)
//   - program structure (Module, Function, Code, Cell, BuiltinFunction)
//   - the type machinery (Type, Instance, descriptors)
//
// Every Object is a pointer, so interface equality is object identity.
package object

import "math/big"

// Object is any value that can live in the runtime's heap.
type Object interface {
	// TypeName returns the name of the object's runtime type.
	TypeName() string
}

// Integer is implemented by every value in the integer tower. Bool
// satisfies it as well, so code that distinguishes booleans from plain
// integers must test for *Bool first.
type Integer interface {
	Object
	BigInt() *big.Int
}

// Descriptor is implemented by attributes that the type machinery
// synthesizes when a type is created (getters/setters, member slots, slot
// wrappers). They are regenerated by the runtime, never treated as data.
type Descriptor interface {
	Object
	DescriptorOwner() *Type
}

// ---------------------------------------------------------------------------
// Descriptors
// ---------------------------------------------------------------------------

// GetSetDescriptor is a computed attribute such as __dict__ or __weakref__.
type GetSetDescriptor struct {
	Owner *Type
	Name  string
}

func (d *GetSetDescriptor) TypeName() string       { return "getset_descriptor" }
func (d *GetSetDescriptor) DescriptorOwner() *Type { return d.Owner }

// MemberDescriptor exposes a fixed slot of an instance layout.
type MemberDescriptor struct {
	Owner  *Type
	Name   string
	Offset int
}

func (d *MemberDescriptor) TypeName() string       { return "member_descriptor" }
func (d *MemberDescriptor) DescriptorOwner() *Type { return d.Owner }

// SlotWrapper wraps a native slot function (e.g. __init__ of a built-in).
type SlotWrapper struct {
	Owner *Type
	Name  string
}

func (d *SlotWrapper) TypeName() string       { return "wrapper_descriptor" }
func (d *SlotWrapper) DescriptorOwner() *Type { return d.Owner }
