package stag

import "github.com/rbaliyan/stag/ir"

// GenerateRead builds the parse procedure of cls, named ParseFuncName(cls.ID)
// so that other procedures can call it by name.
//
// The procedure opens the object, allocates a zero instance and reads
// members until the object ends. A member holding null is skipped and the
// field keeps its zero value. A member is matched to a field by exact key
// equality; unknown members are skipped. Fields of KindExternal are read
// through the adapter registry and assigned only when the decoded value
// has the field's type.
//
// Fields must be classified before calling GenerateRead.
func GenerateRead(cls *AnnotatedClass) ir.Func {
	cases := make([]ir.Case, 0, len(cls.Fields))
	for _, f := range cls.Fields {
		cases = append(cases, ir.Case{Key: f.Key, Assign: readField(f)})
	}

	return ir.Func{
		Name: cls.ParseFunc(),
		Dir:  ir.Parse,
		Type: typeName(cls.ID),
		Body: []ir.Op{
			&ir.BeginObject{},
			&ir.NewInstance{Type: typeName(cls.ID)},
			&ir.ReadLoop{Cases: cases},
			&ir.EndObject{},
			&ir.Return{},
		},
	}
}

func readField(f FieldDescriptor) ir.Op {
	switch f.Kind {
	case KindLocal:
		return &ir.CallParse{Field: f.Name, Func: ParseFuncName(f.Type.ID), Pointer: f.Type.Pointer}
	case KindExternal:
		return &ir.DispatchRead{
			Field:   f.Name,
			TypeKey: f.Type.ID.String(),
			Type:    typeName(f.Type.ID),
			Pointer: f.Type.Pointer,
		}
	default:
		return &ir.ReadScalar{Field: f.Name, Scalar: scalarOf(f.Kind)}
	}
}
