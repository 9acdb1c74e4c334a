package object

// ---------------------------------------------------------------------------
// Module
// ---------------------------------------------------------------------------

// Module is a named namespace. Its globals live in Dict, which functions
// defined in the module share by identity.
type Module struct {
	Name string
	Dict *Dict
}

// NewModule creates a module with a fresh namespace holding __name__.
func NewModule(name string) *Module {
	d := NewDict()
	d.SetStr("__name__", NewStr(name))
	return &Module{Name: name, Dict: d}
}

// NewModuleWithDict creates a module around an existing namespace.
func NewModuleWithDict(name string, d *Dict) *Module {
	return &Module{Name: name, Dict: d}
}

func (m *Module) TypeName() string { return "module" }

// ---------------------------------------------------------------------------
// Code
// ---------------------------------------------------------------------------

// Code is one compiled-code unit. The interpreter owns its meaning; the
// object model only carries it around.
type Code struct {
	Filename       string
	Name           string
	QualName       string
	FirstLine      int
	ArgCount       int
	KwOnlyArgCount int
	Flags          uint32
	Instructions   []byte
	Consts         []Object
	Names          []string
	VarNames       []string
	FreeVars       []string
	CellVars       []string
}

func (c *Code) TypeName() string { return "code" }

// ---------------------------------------------------------------------------
// Function
// ---------------------------------------------------------------------------

// Function is a user-defined callable: code plus the environment it
// closes over. The descriptive fields are arbitrary objects because the
// program may reassign them.
type Function struct {
	Code       *Code
	Globals    *Dict
	Defaults   *Tuple // nil when there are no positional defaults
	KwDefaults *Dict  // nil when there are no keyword defaults
	Closure    *Tuple // tuple of *Cell, nil for non-closures

	Name        Object
	QualName    Object
	Annotations Object
	Module      Object
	Doc         Object
	TypeParams  Object
}

// NewFunction creates a function for code executing in globals, filling
// the descriptive fields the way a def statement would.
func NewFunction(code *Code, globals *Dict) *Function {
	qualname := code.QualName
	if qualname == "" {
		qualname = code.Name
	}
	var module Object = None
	if name, ok := globals.GetStr("__name__"); ok {
		module = name
	}
	return &Function{
		Code:        code,
		Globals:     globals,
		Name:        NewStr(code.Name),
		QualName:    NewStr(qualname),
		Annotations: NewDict(),
		Module:      module,
		Doc:         None,
		TypeParams:  NewTuple(),
	}
}

func (f *Function) TypeName() string { return "function" }

// ---------------------------------------------------------------------------
// Cell
// ---------------------------------------------------------------------------

// Cell holds a variable captured by a closure. A nil Contents means the
// variable is unbound.
type Cell struct {
	Contents Object
}

func NewCell(contents Object) *Cell { return &Cell{Contents: contents} }

func (c *Cell) TypeName() string { return "cell" }
func (c *Cell) Empty() bool      { return c.Contents == nil }

// ---------------------------------------------------------------------------
// BuiltinFunction
// ---------------------------------------------------------------------------

// NativeFunc implements a built-in callable. self is the bound receiver,
// or nil for an unbound function.
type NativeFunc func(self Object, args []Object, kwargs *Dict) (Object, error)

// BuiltinFunction is a callable implemented by the runtime itself. A
// module-level function is identified by its module and name; a method is
// identified by the type that defines it and its name there.
type BuiltinFunction struct {
	Module string
	Name   string
	Owner  *Type // defining type for methods, nil for module functions
	Self   Object
	Fn     NativeFunc
}

func NewBuiltinFunction(module, name string, fn NativeFunc) *BuiltinFunction {
	return &BuiltinFunction{Module: module, Name: name, Fn: fn}
}

func (b *BuiltinFunction) TypeName() string { return "builtin_function_or_method" }

// Bind returns a copy of b bound to self.
func (b *BuiltinFunction) Bind(self Object) *BuiltinFunction {
	bound := *b
	bound.Self = self
	return &bound
}
