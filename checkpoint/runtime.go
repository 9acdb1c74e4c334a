package checkpoint

import "github.com/chazu/stasis/object"

// Runtime is everything the engine needs from the running program: its
// built-in surface for name-based rebinding, attribute access, calls, and
// construction of types and instances.
type Runtime interface {
	BuiltinsModule() *object.Module
	SysModule() *object.Module
	BuiltinsDict() *object.Dict
	Module(name string) (*object.Module, bool)
	RootType() *object.Type
	TypeOf(o object.Object) *object.Type

	InstanceDict(o object.Object) (*object.Dict, bool)
	GetAttr(o object.Object, name string) (object.Object, error)
	SetAttr(o object.Object, name, value object.Object) error

	Call(fn object.Object, args []object.Object, kwargs *object.Dict) (object.Object, error)
	// CallMethod reports ok=false when o's type has no attribute called name.
	CallMethod(o object.Object, name string, args ...object.Object) (result object.Object, ok bool, err error)

	NewType(spec object.TypeSpec) (*object.Type, error)
	NewInstance(t *object.Type, args []object.Object, kwargs *object.Dict) (object.Object, error)
}

// CodeCodec converts compiled-code units to bytes and back. The engine
// never looks inside the bytes.
type CodeCodec interface {
	EncodeCode(c *object.Code) ([]byte, error)
	DecodeCode(data []byte) (*object.Code, error)
}
