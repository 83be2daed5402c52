package stag

import "github.com/rbaliyan/stag/ir"

// GenerateWrite builds the write procedure of cls.
//
// The procedure opens an object and, for a nil instance, closes it again
// and returns, so a nil instance is written as {} rather than null. Otherwise
// fields are written in declaration order. Primitive fields are always
// written. Nullable fields are written only when present. Fields of
// KindExternal go through the adapter registry, which writes the member
// name only when a codec is registered for the type.
//
// Fields must be classified before calling GenerateWrite.
func GenerateWrite(cls *AnnotatedClass) ir.Func {
	body := []ir.Op{
		&ir.BeginObject{},
		&ir.NilInstance{Body: []ir.Op{&ir.EndObject{}}},
	}
	for _, f := range cls.Fields {
		body = append(body, writeField(f)...)
	}
	body = append(body, &ir.EndObject{}, &ir.Return{})

	return ir.Func{
		Name: cls.WriteFunc(),
		Dir:  ir.Write,
		Type: typeName(cls.ID),
		Body: body,
	}
}

func writeField(f FieldDescriptor) []ir.Op {
	var ops []ir.Op
	switch f.Kind {
	case KindLocal:
		ops = []ir.Op{
			&ir.WriteName{Key: f.Key},
			&ir.CallWrite{Field: f.Name, Func: WriteFuncName(f.Type.ID), Pointer: f.Type.Pointer},
		}
	case KindExternal:
		ops = []ir.Op{
			&ir.DispatchWrite{Field: f.Name, Key: f.Key, TypeKey: f.Type.ID.String()},
		}
	default:
		ops = []ir.Op{
			&ir.WriteName{Key: f.Key},
			&ir.WriteScalar{Field: f.Name, Scalar: scalarOf(f.Kind)},
		}
	}

	if !f.Nullable() {
		return ops
	}
	return []ir.Op{&ir.IfNotNull{Field: f.Name, Null: nullOf(f), Body: ops}}
}

func typeName(id TypeID) ir.TypeName {
	return ir.TypeName{PkgPath: id.PkgPath(), Name: id.Name()}
}

func scalarOf(k ValueKind) ir.Scalar {
	switch k {
	case KindInt64:
		return ir.Int64
	case KindFloat64:
		return ir.Float64
	case KindBool:
		return ir.Bool
	case KindInt:
		return ir.Int
	default:
		return ir.String
	}
}

func nullOf(f FieldDescriptor) ir.Null {
	if f.Type.Pointer {
		return ir.NullNil
	}
	return ir.NullEmpty
}
