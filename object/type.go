package object

// Type flags. The values follow the layout flags of the reference runtime
// so that checkpoints carry them verbatim.
const (
	TypeFlagManagedDict uint64 = 1 << 4
	TypeFlagHeapType    uint64 = 1 << 9
	TypeFlagBaseType    uint64 = 1 << 10
)

// ---------------------------------------------------------------------------
// Type
// ---------------------------------------------------------------------------

// Type is a class. Heap types are created while the program runs; all
// others belong to the runtime's fixed surface.
type Type struct {
	Name     string
	QualName string
	Module   string
	Bases    []*Type
	Dict     *Dict
	Flags    uint64

	// Layout metadata
	BasicSize   int
	ItemSize    int
	MemberCount int
}

// TypeSpec describes a heap type to be created by the runtime.
type TypeSpec struct {
	Name        string
	QualName    string
	Module      string
	Bases       []*Type
	Attrs       *Dict
	Flags       uint64
	BasicSize   int
	ItemSize    int
	MemberCount int
}

func (t *Type) TypeName() string { return "type" }

// IsHeap reports whether the type was created at run time.
func (t *Type) IsHeap() bool { return t.Flags&TypeFlagHeapType != 0 }

// HasDict reports whether instances carry an attribute dictionary.
func (t *Type) HasDict() bool { return t.Flags&TypeFlagManagedDict != 0 }

// MRO returns the method resolution order: the type, then its bases
// depth-first, left to right, each type appearing once.
func (t *Type) MRO() []*Type {
	var order []*Type
	seen := make(map[*Type]bool)
	var walk func(*Type)
	walk = func(c *Type) {
		if c == nil || seen[c] {
			return
		}
		seen[c] = true
		order = append(order, c)
		for _, b := range c.Bases {
			walk(b)
		}
	}
	walk(t)
	return order
}

// Lookup finds an attribute along the MRO.
func (t *Type) Lookup(name string) (Object, bool) {
	key := NewStr(name)
	for _, c := range t.MRO() {
		if c.Dict == nil {
			continue
		}
		if v, ok := c.Dict.Get(key); ok {
			return v, true
		}
	}
	return nil, false
}

// IsSubtype reports whether t is other or inherits from it.
func (t *Type) IsSubtype(other *Type) bool {
	for _, c := range t.MRO() {
		if c == other {
			return true
		}
	}
	return false
}

// ---------------------------------------------------------------------------
// Instance
// ---------------------------------------------------------------------------

// Instance is an object of a heap type.
type Instance struct {
	typ  *Type
	dict *Dict
}

// NewInstance allocates an instance of t without running any initializer.
func NewInstance(t *Type) *Instance {
	inst := &Instance{typ: t}
	if t.HasDict() {
		inst.dict = NewDict()
	}
	return inst
}

func (i *Instance) TypeName() string { return i.typ.Name }
func (i *Instance) Type() *Type      { return i.typ }

// Dict returns the instance's attribute dictionary, if its type has one.
func (i *Instance) Dict() (*Dict, bool) {
	return i.dict, i.dict != nil
}
