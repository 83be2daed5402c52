package emit

import (
	"fmt"

	"github.com/dave/jennifer/jen"

	"github.com/rbaliyan/stag/ir"
)

// renderer turns ops into jennifer statements. The first unsupported op
// is recorded in err and rendering of that procedure stops being useful.
type renderer struct {
	file    *jen.File
	pkgPath string
	err     error
}

func (r *renderer) fail(op ir.Op, dir string) {
	if r.err == nil {
		r.err = fmt.Errorf("emit: op %T is not valid in a %s procedure", op, dir)
	}
}

func (r *renderer) qual(t ir.TypeName) *jen.Statement {
	if t.PkgPath == "" || t.PkgPath == r.pkgPath {
		return jen.Id(t.Name)
	}
	return jen.Qual(t.PkgPath, t.Name)
}

// check renders `if err := call; err != nil { return ret... }`.
func check(call jen.Code, ret ...jen.Code) jen.Code {
	return jen.If(jen.Err().Op(":=").Add(call), jen.Err().Op("!=").Nil()).Block(jen.Return(ret...))
}

func field(name string) *jen.Statement {
	return jen.Id("obj").Dot(name)
}

func (r *renderer) writeOps(ops []ir.Op) []jen.Code {
	var stmts []jen.Code
	for _, op := range ops {
		stmts = append(stmts, r.writeOp(op))
	}
	return stmts
}

func (r *renderer) writeOp(op ir.Op) jen.Code {
	w := jen.Id("w")
	switch op := op.(type) {
	case *ir.BeginObject:
		return check(w.Clone().Dot("BeginObject").Call(), jen.Err())
	case *ir.EndObject:
		return check(w.Clone().Dot("EndObject").Call(), jen.Err())
	case *ir.NilInstance:
		body := append(r.writeOps(op.Body), jen.Return(jen.Nil()))
		return jen.If(jen.Id("obj").Op("==").Nil()).Block(body...)
	case *ir.WriteName:
		return check(w.Clone().Dot("Name").Call(jen.Lit(op.Key)), jen.Err())
	case *ir.WriteScalar:
		return check(w.Clone().Dot(op.Scalar.Method()).Call(field(op.Field)), jen.Err())
	case *ir.CallWrite:
		arg := field(op.Field)
		if !op.Pointer {
			arg = jen.Op("&").Add(arg)
		}
		return check(jen.Id(op.Func).Call(jen.Id("w"), arg), jen.Err())
	case *ir.DispatchWrite:
		return jen.Id(WriteFieldFunc).Call(jen.Lit(op.TypeKey), jen.Lit(op.Key), jen.Id("w"), field(op.Field))
	case *ir.IfNotNull:
		var cond *jen.Statement
		if op.Null == ir.NullNil {
			cond = field(op.Field).Op("!=").Nil()
		} else {
			cond = field(op.Field).Op("!=").Lit("")
		}
		return jen.If(cond).Block(r.writeOps(op.Body)...)
	case *ir.Return:
		return jen.Return(jen.Nil())
	default:
		r.fail(op, "write")
		return jen.Null()
	}
}

func (r *renderer) parseOps(ops []ir.Op) []jen.Code {
	var stmts []jen.Code
	for _, op := range ops {
		stmts = append(stmts, r.parseOp(op))
	}
	return stmts
}

func (r *renderer) parseOp(op ir.Op) jen.Code {
	rd := jen.Id("r")
	switch op := op.(type) {
	case *ir.BeginObject:
		return check(rd.Clone().Dot("BeginObject").Call(), jen.Nil(), jen.Err())
	case *ir.EndObject:
		return check(rd.Clone().Dot("EndObject").Call(), jen.Nil(), jen.Err())
	case *ir.NewInstance:
		return jen.Id("obj").Op(":=").New(r.qual(op.Type))
	case *ir.ReadLoop:
		return r.readLoop(op)
	case *ir.Return:
		return jen.Return(jen.Id("obj"), jen.Nil())
	default:
		r.fail(op, "parse")
		return jen.Null()
	}
}

func (r *renderer) readLoop(op *ir.ReadLoop) jen.Code {
	var cases []jen.Code
	for _, c := range op.Cases {
		cases = append(cases, jen.Case(jen.Lit(c.Key)).Block(r.assign(c.Assign)...))
	}
	cases = append(cases, jen.Default().Block(
		check(jen.Id("r").Dot("SkipValue").Call(), jen.Nil(), jen.Err()),
	))

	return jen.For(jen.Id("r").Dot("HasNext").Call()).Block(
		jen.List(jen.Id("name"), jen.Err()).Op(":=").Id("r").Dot("NextName").Call(),
		jen.If(jen.Err().Op("!=").Nil()).Block(jen.Return(jen.Nil(), jen.Err())),
		jen.If(jen.Id("r").Dot("Peek").Call().Op("==").Qual(JSONIOPath, "Null")).Block(
			check(jen.Id("r").Dot("SkipValue").Call(), jen.Nil(), jen.Err()),
			jen.Continue(),
		),
		jen.Switch(jen.Id("name")).Block(cases...),
	)
}

// assign renders the statements of one case of the read loop.
func (r *renderer) assign(op ir.Op) []jen.Code {
	readInto := func(call jen.Code, value *jen.Statement, f string) []jen.Code {
		return []jen.Code{
			jen.List(jen.Id("v"), jen.Err()).Op(":=").Add(call),
			jen.If(jen.Err().Op("!=").Nil()).Block(jen.Return(jen.Nil(), jen.Err())),
			field(f).Op("=").Add(value),
		}
	}

	switch op := op.(type) {
	case *ir.ReadScalar:
		call := jen.Id("r").Dot("Next" + op.Scalar.Method()).Call()
		return readInto(call, jen.Id("v"), op.Field)
	case *ir.CallParse:
		value := jen.Id("v")
		if !op.Pointer {
			value = jen.Op("*").Id("v")
		}
		return readInto(jen.Id(op.Func).Call(jen.Id("r")), value, op.Field)
	case *ir.DispatchRead:
		typ := r.qual(op.Type)
		var ptrCase, valCase []jen.Code
		if op.Pointer {
			ptrCase = []jen.Code{field(op.Field).Op("=").Id("v")}
			valCase = []jen.Code{field(op.Field).Op("=").Op("&").Id("v")}
		} else {
			ptrCase = []jen.Code{jen.If(jen.Id("v").Op("!=").Nil()).Block(field(op.Field).Op("=").Op("*").Id("v"))}
			valCase = []jen.Code{field(op.Field).Op("=").Id("v")}
		}
		return []jen.Code{
			jen.Switch(jen.Id("v").Op(":=").Id("ReadFrom").Call(jen.Lit(op.TypeKey), jen.Id("r")).Assert(jen.Type())).Block(
				jen.Case(jen.Op("*").Add(typ)).Block(ptrCase...),
				jen.Case(typ.Clone()).Block(valCase...),
			),
		}
	default:
		r.fail(op, "parse")
		return nil
	}
}

// adapter renders the forwarding codec of one supported type.
func (r *renderer) adapter(a ir.Adapter) {
	typ := r.qual(a.Type)
	r.file.Comment(fmt.Sprintf("%s forwards %s to %s and %s.", a.Name, a.TypeKey, a.WriteFunc, a.ParseFunc))
	r.file.Type().Id(a.Name).Struct()
	r.file.Line()

	r.file.Func().Params(jen.Id(a.Name)).Id("Read").Params(
		jen.Id("r").Op("*").Qual(JSONIOPath, "Reader"),
	).Params(jen.Any(), jen.Error()).Block(
		jen.List(jen.Id("obj"), jen.Err()).Op(":=").Id(a.ParseFunc).Call(jen.Id("r")),
		jen.If(jen.Err().Op("!=").Nil()).Block(jen.Return(jen.Nil(), jen.Err())),
		jen.Return(jen.Id("obj"), jen.Nil()),
	)
	r.file.Line()

	r.file.Func().Params(jen.Id(a.Name)).Id("Write").Params(
		jen.Id("w").Op("*").Qual(JSONIOPath, "Writer"),
		jen.Id("v").Any(),
	).Error().Block(
		jen.Switch(jen.Id("obj").Op(":=").Id("v").Assert(jen.Type())).Block(
			jen.Case(jen.Op("*").Add(typ)).Block(jen.Return(jen.Id(a.WriteFunc).Call(jen.Id("w"), jen.Id("obj")))),
			jen.Case(typ.Clone()).Block(jen.Return(jen.Id(a.WriteFunc).Call(jen.Id("w"), jen.Op("&").Id("obj")))),
			jen.Default().Block(jen.Return(jen.Qual(AdapterPath, "Mismatch").Call(jen.Lit(a.TypeKey), jen.Id("v")))),
		),
	)
}
