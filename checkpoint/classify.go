package checkpoint

import "github.com/chazu/stasis/object"

// DefaultReservedModules are the module names always rebound by name
// instead of serialized.
var DefaultReservedModules = []string{"builtins", "sys"}

// Classifier maps live objects to entry tags.
type Classifier struct {
	rt       Runtime
	reserved map[string]bool
}

// NewClassifier creates a classifier for objects of rt. Modules whose name
// is in reserved are treated as built-in.
func NewClassifier(rt Runtime, reserved []string) *Classifier {
	c := &Classifier{rt: rt, reserved: make(map[string]bool, len(reserved))}
	for _, name := range reserved {
		c.reserved[name] = true
	}
	return c
}

// Classify returns the tag for o. The cases are tried in order; Bool must
// come before the Integer interface, which booleans also satisfy.
func (c *Classifier) Classify(o object.Object) Tag {
	switch v := o.(type) {
	case nil, *object.NoneType:
		return TagNone
	case *object.Bool:
		return TagBool
	case object.Integer:
		return TagInt
	case *object.Float:
		return TagFloat
	case *object.Str:
		return TagStr
	case *object.Bytes:
		return TagBytes
	case *object.List:
		return TagList
	case *object.Tuple:
		return TagTuple
	case *object.Dict:
		if v == c.rt.BuiltinsDict() {
			return TagBuiltinDict
		}
		return TagDict
	case *object.Set:
		return TagSet
	case *object.FrozenSet:
		return TagFrozenSet
	case *object.Module:
		if c.isBuiltinModule(v) {
			return TagBuiltinModule
		}
		return TagModule
	case *object.Function:
		return TagFunction
	case *object.BuiltinFunction:
		return TagBuiltinFunction
	case *object.Code:
		return TagCode
	case *object.Type:
		if v.IsHeap() {
			return TagType
		}
		return TagBuiltinType
	case *object.Cell:
		return TagCell
	}
	return TagInstance
}

func (c *Classifier) isBuiltinModule(m *object.Module) bool {
	return m == c.rt.BuiltinsModule() || m == c.rt.SysModule() || c.reserved[m.Name]
}
