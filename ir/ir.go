// Package ir defines the operation tree produced by the generators and
// consumed by the emitter. Nodes describe what generated code does to the
// JSON stream and to the instance; they carry no Go syntax.
package ir

// OpKind identifies an operation node type.
type OpKind int

const (
	OpBeginObject OpKind = iota
	OpEndObject
	OpNilInstance
	OpNewInstance
	OpWriteName
	OpWriteScalar
	OpCallWrite
	OpDispatchWrite
	OpIfNotNull
	OpReadLoop
	OpReadScalar
	OpCallParse
	OpDispatchRead
	OpReturn
)

// Op is an operation node.
type Op interface {
	Kind() OpKind
}

// Scalar is a value the JSON stream reads and writes directly.
type Scalar int

const (
	Int64 Scalar = iota
	Float64
	Bool
	Int
	String
)

// Method returns the stream method suffix for the scalar: the writer
// method name and, prefixed with "Next", the reader method name.
func (s Scalar) Method() string {
	switch s {
	case Int64:
		return "Int64"
	case Float64:
		return "Float64"
	case Bool:
		return "Bool"
	case Int:
		return "Int"
	default:
		return "String"
	}
}

// TypeName names a declared type.
type TypeName struct {
	PkgPath string
	Name    string
}

// Null is the absence test applied to a nullable field.
type Null int

const (
	// NullEmpty treats the empty string as absent.
	NullEmpty Null = iota

	// NullNil treats a nil pointer as absent.
	NullNil
)

// BeginObject opens a JSON object on the stream.
type BeginObject struct{}

func (*BeginObject) Kind() OpKind { return OpBeginObject }

// EndObject closes a JSON object on the stream.
type EndObject struct{}

func (*EndObject) Kind() OpKind { return OpEndObject }

// NilInstance runs Body and returns when the instance is nil.
type NilInstance struct {
	Body []Op
}

func (*NilInstance) Kind() OpKind { return OpNilInstance }

// NewInstance allocates the zero instance a parse procedure fills.
type NewInstance struct {
	Type TypeName
}

func (*NewInstance) Kind() OpKind { return OpNewInstance }

// WriteName writes an object member name.
type WriteName struct {
	Key string
}

func (*WriteName) Kind() OpKind { return OpWriteName }

// WriteScalar writes a field with a typed stream method.
type WriteScalar struct {
	Field  string
	Scalar Scalar
}

func (*WriteScalar) Kind() OpKind { return OpWriteScalar }

// CallWrite calls the generated write procedure of another local type.
// Pointer is true when the field already holds a pointer.
type CallWrite struct {
	Field   string
	Func    string
	Pointer bool
}

func (*CallWrite) Kind() OpKind { return OpCallWrite }

// DispatchWrite writes a field through the adapter registry by type key.
// The registry writes the member name itself, only when a codec exists.
type DispatchWrite struct {
	Field   string
	Key     string
	TypeKey string
}

func (*DispatchWrite) Kind() OpKind { return OpDispatchWrite }

// IfNotNull runs Body only when the field is present.
type IfNotNull struct {
	Field string
	Null  Null
	Body  []Op
}

func (*IfNotNull) Kind() OpKind { return OpIfNotNull }

// ReadLoop reads object members until the object ends. Members holding a
// JSON null are skipped without touching the instance. Members whose key
// matches no case are skipped.
type ReadLoop struct {
	Cases []Case
}

func (*ReadLoop) Kind() OpKind { return OpReadLoop }

// Case assigns the member with the given key.
type Case struct {
	Key    string
	Assign Op
}

// ReadScalar reads a field with a typed stream method.
type ReadScalar struct {
	Field  string
	Scalar Scalar
}

func (*ReadScalar) Kind() OpKind { return OpReadScalar }

// CallParse calls the generated parse procedure of another local type.
// Pointer is true when the field holds a pointer.
type CallParse struct {
	Field   string
	Func    string
	Pointer bool
}

func (*CallParse) Kind() OpKind { return OpCallParse }

// DispatchRead reads a field through the adapter registry by type key and
// assigns it when the decoded value is a Type or a *Type.
type DispatchRead struct {
	Field   string
	TypeKey string
	Type    TypeName
	Pointer bool
}

func (*DispatchRead) Kind() OpKind { return OpDispatchRead }

// Return ends the procedure successfully.
type Return struct{}

func (*Return) Kind() OpKind { return OpReturn }
