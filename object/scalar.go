package object

import (
	"fmt"
	"math/big"
)

// ---------------------------------------------------------------------------
// None
// ---------------------------------------------------------------------------

// NoneType is the type of the None singleton.
type NoneType struct{}

// None is the unique null value.
var None = &NoneType{}

func (n *NoneType) TypeName() string { return "NoneType" }
func (n *NoneType) String() string   { return "None" }

// ---------------------------------------------------------------------------
// Bool
// ---------------------------------------------------------------------------

// Bool is a boolean. There are exactly two instances, True and False.
type Bool struct {
	value bool
}

var (
	True  = &Bool{value: true}
	False = &Bool{value: false}
)

// NewBool returns the singleton for b.
func NewBool(b bool) *Bool {
	if b {
		return True
	}
	return False
}

func (b *Bool) TypeName() string { return "bool" }
func (b *Bool) Value() bool      { return b.value }

// BigInt returns 1 or 0. Booleans are integers in the numeric tower.
func (b *Bool) BigInt() *big.Int {
	if b.value {
		return big.NewInt(1)
	}
	return big.NewInt(0)
}

func (b *Bool) String() string {
	if b.value {
		return "True"
	}
	return "False"
}

// ---------------------------------------------------------------------------
// Int
// ---------------------------------------------------------------------------

// Int is an arbitrary-precision integer.
type Int struct {
	value *big.Int
}

// NewInt returns an Int holding v.
func NewInt(v int64) *Int {
	return &Int{value: big.NewInt(v)}
}

// NewBigInt returns an Int holding a copy of v.
func NewBigInt(v *big.Int) *Int {
	return &Int{value: new(big.Int).Set(v)}
}

// ParseInt parses a base-10 integer literal.
func ParseInt(s string) (*Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("invalid integer literal %q", s)
	}
	return &Int{value: v}, nil
}

func (i *Int) TypeName() string { return "int" }

// BigInt returns a copy of the integer's value.
func (i *Int) BigInt() *big.Int { return new(big.Int).Set(i.value) }

// Int64 returns the value truncated to 64 bits.
func (i *Int) Int64() int64 { return i.value.Int64() }

func (i *Int) String() string { return i.value.String() }

// ---------------------------------------------------------------------------
// Float
// ---------------------------------------------------------------------------

// Float is a 64-bit floating point number.
type Float struct {
	value float64
}

func NewFloat(v float64) *Float { return &Float{value: v} }

func (f *Float) TypeName() string { return "float" }
func (f *Float) Value() float64   { return f.value }

// ---------------------------------------------------------------------------
// Str
// ---------------------------------------------------------------------------

// Str is an immutable text string.
type Str struct {
	value string
}

func NewStr(s string) *Str { return &Str{value: s} }

func (s *Str) TypeName() string { return "str" }
func (s *Str) Value() string    { return s.value }
func (s *Str) String() string   { return s.value }

// ---------------------------------------------------------------------------
// Bytes
// ---------------------------------------------------------------------------

// Bytes is an immutable byte string.
type Bytes struct {
	value []byte
}

// NewBytes returns a Bytes holding a copy of b.
func NewBytes(b []byte) *Bytes {
	return &Bytes{value: append([]byte(nil), b...)}
}

func (b *Bytes) TypeName() string { return "bytes" }

// Value returns the underlying bytes. Callers must not modify them.
func (b *Bytes) Value() []byte { return b.value }
