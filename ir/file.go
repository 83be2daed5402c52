package ir

// Direction tells whether a procedure writes or parses.
type Direction int

const (
	Write Direction = iota
	Parse
)

// Func is one generated procedure. A write procedure takes the stream and
// a *Type; a parse procedure takes the stream and returns a *Type.
type Func struct {
	Name string
	Dir  Direction
	Type TypeName
	Body []Op
}

// File is the generated unit holding the write and parse procedures of
// every supported type of a package.
type File struct {
	PkgPath string
	PkgName string
	Funcs   []Func
}

// Func returns the procedure with the given name.
func (f *File) Func(name string) (Func, bool) {
	for _, fn := range f.Funcs {
		if fn.Name == name {
			return fn, true
		}
	}
	return Func{}, false
}

// Adapter is the forwarding codec generated for one supported type.
type Adapter struct {
	// Name is the codec type name.
	Name string

	// TypeKey is the dispatch key the codec is registered under.
	TypeKey string

	// Type is the coded type.
	Type TypeName

	// WriteFunc and ParseFunc are the procedures the codec forwards to.
	WriteFunc string
	ParseFunc string
}

// AdapterFile is the generated adapter factory unit of a package.
type AdapterFile struct {
	PkgPath string
	PkgName string

	// Adapters are registered in order on package initialisation.
	Adapters []Adapter

	// Factories are import paths of previously generated adapter packages
	// whose registries are merged into this one.
	Factories []string
}

// Walk calls fn for every op in ops and their nested bodies, depth first.
// Walking stops early when fn returns false.
func Walk(ops []Op, fn func(Op) bool) bool {
	for _, op := range ops {
		if !fn(op) {
			return false
		}
		var nested []Op
		switch op := op.(type) {
		case *NilInstance:
			nested = op.Body
		case *IfNotNull:
			nested = op.Body
		case *ReadLoop:
			for _, c := range op.Cases {
				nested = append(nested, c.Assign)
			}
		}
		if !Walk(nested, fn) {
			return false
		}
	}
	return true
}
