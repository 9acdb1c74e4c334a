package checkpoint

import "fmt"

// ObjId indexes the object table of one checkpoint.
type ObjId uint32

// Tag identifies the kind of an object table entry. The numeric values are
// part of the wire format.
type Tag uint8

const (
	TagNone Tag = iota
	TagBool
	TagInt
	TagFloat
	TagStr
	TagBytes
	TagList
	TagTuple
	TagDict
	TagSet
	TagFrozenSet
	TagModule
	TagFunction
	TagCode
	TagType
	TagBuiltinType
	TagInstance
	TagCell
	TagBuiltinModule
	TagBuiltinDict
	TagBuiltinFunction

	numTags
)

var tagNames = [numTags]string{
	TagNone:            "None",
	TagBool:            "Bool",
	TagInt:             "Int",
	TagFloat:           "Float",
	TagStr:             "Str",
	TagBytes:           "Bytes",
	TagList:            "List",
	TagTuple:           "Tuple",
	TagDict:            "Dict",
	TagSet:             "Set",
	TagFrozenSet:       "FrozenSet",
	TagModule:          "Module",
	TagFunction:        "Function",
	TagCode:            "Code",
	TagType:            "Type",
	TagBuiltinType:     "BuiltinType",
	TagInstance:        "Instance",
	TagCell:            "Cell",
	TagBuiltinModule:   "BuiltinModule",
	TagBuiltinDict:     "BuiltinDict",
	TagBuiltinFunction: "BuiltinFunction",
}

func (t Tag) String() string {
	if t < numTags {
		return tagNames[t]
	}
	return fmt.Sprintf("Tag(%d)", uint8(t))
}

// Valid reports whether t is a known tag.
func (t Tag) Valid() bool { return t < numTags }

// Tags returns every known tag in wire order.
func Tags() []Tag {
	out := make([]Tag, numTags)
	for i := range out {
		out[i] = Tag(i)
	}
	return out
}
