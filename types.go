package stag

import "fmt"

// ValueKind classifies a field's declared type and selects how generated
// code reads and writes it.
type ValueKind int

const (
	// KindUnknown indicates a field that has not been classified yet.
	KindUnknown ValueKind = iota

	// KindInt64 represents an int64 field (primitive long).
	KindInt64

	// KindFloat64 represents a float64 field (primitive double).
	KindFloat64

	// KindBool represents a bool field.
	KindBool

	// KindInt represents an int field.
	KindInt

	// KindString represents a string field.
	KindString

	// KindLocal represents a type with a codec generated in the same pass.
	KindLocal

	// KindExternal represents a type reached through the dispatch registry.
	KindExternal
)

// String returns the string representation of the kind.
func (k ValueKind) String() string {
	switch k {
	case KindInt64:
		return "int64"
	case KindFloat64:
		return "float64"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindString:
		return "string"
	case KindLocal:
		return "local"
	case KindExternal:
		return "external"
	default:
		return fmt.Sprintf("unknown(%d)", k)
	}
}

// ParseValueKind parses a string into a ValueKind.
// Returns KindUnknown for unrecognized strings.
func ParseValueKind(s string) ValueKind {
	switch s {
	case "int64":
		return KindInt64
	case "float64":
		return KindFloat64
	case "bool":
		return KindBool
	case "int":
		return KindInt
	case "string":
		return KindString
	case "local":
		return KindLocal
	case "external":
		return KindExternal
	default:
		return KindUnknown
	}
}

// Primitive reports whether values of this kind are never absent.
// Primitive fields are written unconditionally.
func (k ValueKind) Primitive() bool {
	return k == KindInt64 || k == KindFloat64 || k == KindBool || k == KindInt
}

// Scalar reports whether the kind is read and written directly by the
// JSON stream.
func (k ValueKind) Scalar() bool {
	return k.Primitive() || k == KindString
}

// basicKinds maps predeclared Go types to their value kind.
var basicKinds = map[string]ValueKind{
	"int64":   KindInt64,
	"float64": KindFloat64,
	"bool":    KindBool,
	"int":     KindInt,
	"string":  KindString,
}

// IsBasic reports whether name is a predeclared type with a scalar codec.
func IsBasic(name string) bool {
	_, ok := basicKinds[name]
	return ok
}

// TypeRef is the declared Go type of a field.
// Exactly one of Basic and ID is set.
type TypeRef struct {
	// Basic is the predeclared type name (int64, float64, bool, int, string).
	Basic string

	// ID identifies a named type.
	ID TypeID

	// Pointer is true for *T fields.
	Pointer bool
}

// BasicRef returns a TypeRef for a predeclared type.
func BasicRef(name string) TypeRef {
	return TypeRef{Basic: name}
}

// NamedRef returns a TypeRef for a named type, optionally behind a pointer.
func NamedRef(id TypeID, pointer bool) TypeRef {
	return TypeRef{ID: id, Pointer: pointer}
}

// String returns the Go spelling of the type with a fully qualified name.
func (t TypeRef) String() string {
	name := t.Basic
	if name == "" {
		name = t.ID.String()
	}
	if t.Pointer {
		return "*" + name
	}
	return name
}

// FieldDescriptor describes one field that takes part in JSON coding.
type FieldDescriptor struct {
	// Name is the Go field name.
	Name string

	// Key is the JSON member name. Never empty: the tag value when set,
	// the field name otherwise.
	Key string

	// Type is the declared field type.
	Type TypeRef

	// Kind is assigned by Registry.Classify.
	Kind ValueKind
}

// Nullable reports whether the field can be absent. Absent fields are
// omitted when writing. Strings are absent when empty, pointers when nil.
func (f FieldDescriptor) Nullable() bool {
	return f.Kind == KindString || f.Type.Pointer
}

// AnnotatedClass is the descriptor of a type with a generated codec.
type AnnotatedClass struct {
	// ID is the canonical identity of the type.
	ID TypeID

	// Fields are the eligible fields in declaration order.
	Fields []FieldDescriptor

	// HasNested is true when a field refers to another locally generated type.
	HasNested bool
}

// Field returns the descriptor whose JSON key is key.
func (c *AnnotatedClass) Field(key string) (FieldDescriptor, bool) {
	for _, f := range c.Fields {
		if f.Key == key {
			return f, true
		}
	}
	return FieldDescriptor{}, false
}

// WriteFunc returns the name of the generated write procedure.
func (c *AnnotatedClass) WriteFunc() string {
	return WriteFuncName(c.ID)
}

// ParseFunc returns the name of the generated parse procedure.
func (c *AnnotatedClass) ParseFunc() string {
	return ParseFuncName(c.ID)
}

// AdapterName returns the name of the generated forwarding codec type.
func (c *AnnotatedClass) AdapterName() string {
	return AdapterTypeName(c.ID)
}

// WriteFuncName returns the generated write procedure name for id.
func WriteFuncName(id TypeID) string {
	return "Write" + id.Name()
}

// AdapterTypeName returns the generated forwarding codec type name for id.
func AdapterTypeName(id TypeID) string {
	return id.Name() + "Adapter"
}

// ParseFuncName returns the generated parse procedure name for id.
func ParseFuncName(id TypeID) string {
	return "Parse" + id.Name()
}

// ExternalAdapterInfo records a type whose codec was generated by a
// previously built package.
type ExternalAdapterInfo struct {
	// ID is the external type.
	ID TypeID

	// Factory is the import path of the package holding the generated
	// adapters for ID.
	Factory string
}
