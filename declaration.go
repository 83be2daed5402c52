package stag

import "fmt"

// Declaration is one struct type found by discovery together with its
// tagged fields. It is the input of a generation run.
type Declaration struct {
	// ID is the canonical identity of the struct type.
	ID TypeID

	// Fields are the tagged fields in declaration order.
	Fields []DeclaredField
}

// DeclaredField is a tagged struct field as seen by discovery.
type DeclaredField struct {
	// Name is the Go field name.
	Name string

	// Tag is the parsed stag tag.
	Tag FieldTag

	// Type is the declared type. It is the zero TypeRef when Unsupported
	// is set.
	Type TypeRef

	// Exported reports whether other packages can assign the field.
	Exported bool

	// Embedded reports whether the field is an embedded field.
	Embedded bool

	// Unsupported explains why discovery could not map the field type,
	// for example "slice types are not supported". Empty when mapped.
	Unsupported string
}

// Key returns the JSON key of the field.
func (f DeclaredField) Key() string {
	return f.Tag.JSONKey(f.Name)
}

// ValidateDeclaration checks that every tagged field of d can be coded by
// generated code in another file of the same package. Generated parse
// procedures assign fields directly, so a tagged field must be exported and
// must not be embedded.
//
// Returns a *FieldError naming the first offending field.
func ValidateDeclaration(d Declaration) error {
	if err := d.ID.Validate(); err != nil {
		return err
	}

	keys := make(map[string]string, len(d.Fields))
	for _, f := range d.Fields {
		fail := func(format string, args ...any) error {
			return &FieldError{Type: d.ID, Field: f.Name, Reason: fmt.Sprintf(format, args...)}
		}

		switch {
		case !f.Exported:
			return fail("field must be exported")
		case f.Embedded:
			return fail("embedded fields cannot be coded")
		case f.Unsupported != "":
			return fail("%s", f.Unsupported)
		case len(f.Tag.Options) > 0:
			return fail("unknown tag option %q", f.Tag.Options[0])
		}
		if err := validateTypeRef(f.Type); err != nil {
			return fail("%v", err)
		}

		key := f.Key()
		if other, ok := keys[key]; ok {
			return fail("JSON key %q is already used by field %s", key, other)
		}
		keys[key] = f.Name
	}
	return nil
}

func validateTypeRef(t TypeRef) error {
	switch {
	case t.Basic != "" && t.ID != "":
		return fmt.Errorf("type names both %s and %s", t.Basic, t.ID)
	case t.Basic != "":
		if !IsBasic(t.Basic) {
			return fmt.Errorf("basic type %s is not supported", t.Basic)
		}
		if t.Pointer {
			return fmt.Errorf("pointers to %s are not supported", t.Basic)
		}
		return nil
	case t.ID != "":
		return t.ID.Validate()
	default:
		return fmt.Errorf("type is unknown")
	}
}
