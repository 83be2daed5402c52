// Package emit renders operation trees as Go source with
// github.com/dave/jennifer.
package emit

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dave/jennifer/jen"

	"github.com/rbaliyan/stag/ir"
)

// Import paths of the runtime packages generated code depends on.
const (
	JSONIOPath  = "github.com/rbaliyan/stag/jsonio"
	AdapterPath = "github.com/rbaliyan/stag/adapter"
)

// Header is the first line of every generated file.
const Header = "Code generated by stag. DO NOT EDIT."

// Package-scope identifiers declared by every adapter file.
const (
	RegistryVar    = "stagAdapters"
	RegisterFunc   = "Register"
	ReadFromFunc   = "ReadFrom"
	WriteToFunc    = "WriteTo"
	WriteFieldFunc = "WriteField"
	AdaptersFunc   = "Adapters"
)

// Helpers returns the package-scope identifiers of the adapter file that do
// not depend on the generated types.
func Helpers() []string {
	return []string{RegistryVar, RegisterFunc, ReadFromFunc, WriteToFunc, WriteFieldFunc, AdaptersFunc}
}

// Render returns the gofmt'd source of the parse unit f.
func Render(f *ir.File) ([]byte, error) {
	file := newFile(f.PkgPath, f.PkgName)
	for _, fn := range f.Funcs {
		r := &renderer{file: file, pkgPath: f.PkgPath}
		switch fn.Dir {
		case ir.Write:
			file.Comment(fmt.Sprintf("%s writes obj as a JSON object. A nil obj is written as {}.", fn.Name))
			file.Func().Id(fn.Name).Params(
				jen.Id("w").Op("*").Qual(JSONIOPath, "Writer"),
				jen.Id("obj").Op("*").Add(r.qual(fn.Type)),
			).Error().Block(r.writeOps(fn.Body)...)
		case ir.Parse:
			file.Comment(fmt.Sprintf("%s reads a JSON object into a new %s.", fn.Name, fn.Type.Name))
			file.Func().Id(fn.Name).Params(
				jen.Id("r").Op("*").Qual(JSONIOPath, "Reader"),
			).Params(jen.Op("*").Add(r.qual(fn.Type)), jen.Error()).Block(r.parseOps(fn.Body)...)
		default:
			return nil, fmt.Errorf("emit: %s: unknown direction %d", fn.Name, fn.Dir)
		}
		if r.err != nil {
			return nil, r.err
		}
		file.Line()
	}
	return render(file)
}

// RenderAdapters returns the gofmt'd source of the adapter factory unit f.
func RenderAdapters(f *ir.AdapterFile) ([]byte, error) {
	file := newFile(f.PkgPath, f.PkgName)
	r := &renderer{file: file, pkgPath: f.PkgPath}

	file.Var().Id(RegistryVar).Op("=").Qual(AdapterPath, "NewRegistry").Call()
	file.Line()

	var inits []jen.Code
	for _, a := range f.Adapters {
		inits = append(inits, jen.Id(RegistryVar).Dot("Register").Call(jen.Lit(a.TypeKey), jen.Id(a.Name).Values()))
	}
	for _, factory := range f.Factories {
		inits = append(inits, jen.Id(RegistryVar).Dot("Merge").Call(jen.Qual(factory, AdaptersFunc).Call()))
	}
	file.Func().Id("init").Params().Block(inits...)
	file.Line()

	typeKey := jen.Id("typeKey").String()
	file.Comment("Register inserts or replaces the codec dispatched to for typeKey.")
	file.Func().Id(RegisterFunc).Params(typeKey, jen.Id("c").Qual(AdapterPath, "Codec")).Block(
		jen.Id(RegistryVar).Dot("Register").Call(jen.Id("typeKey"), jen.Id("c")),
	)
	file.Line()
	file.Comment("ReadFrom reads a value with the codec registered for typeKey.")
	file.Comment("It returns nil when no codec is registered or the codec fails.")
	file.Func().Id(ReadFromFunc).Params(
		jen.Id("typeKey").String(),
		jen.Id("r").Op("*").Qual(JSONIOPath, "Reader"),
	).Any().Block(
		jen.Return(jen.Id(RegistryVar).Dot("Read").Call(jen.Id("typeKey"), jen.Id("r"))),
	)
	file.Line()
	file.Comment("WriteTo writes v with the codec registered for typeKey.")
	file.Func().Id(WriteToFunc).Params(
		jen.Id("typeKey").String(),
		jen.Id("w").Op("*").Qual(JSONIOPath, "Writer"),
		jen.Id("v").Any(),
	).Block(
		jen.Id(RegistryVar).Dot("Write").Call(jen.Id("typeKey"), jen.Id("w"), jen.Id("v")),
	)
	file.Line()
	file.Comment("WriteField writes the member name and v when a codec is registered for typeKey.")
	file.Func().Id(WriteFieldFunc).Params(
		jen.List(jen.Id("typeKey"), jen.Id("name")).String(),
		jen.Id("w").Op("*").Qual(JSONIOPath, "Writer"),
		jen.Id("v").Any(),
	).Block(
		jen.Id(RegistryVar).Dot("WriteField").Call(jen.Id("typeKey"), jen.Id("name"), jen.Id("w"), jen.Id("v")),
	)
	file.Line()
	file.Comment("Adapters returns the registry of this package.")
	file.Func().Id(AdaptersFunc).Params().Op("*").Qual(AdapterPath, "Registry").Block(
		jen.Return(jen.Id(RegistryVar)),
	)

	for _, a := range f.Adapters {
		file.Line()
		r.adapter(a)
	}
	return render(file)
}

// WriteFile writes data to path, creating the directory if needed.
// On failure the partially written file is removed.
func WriteFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		_ = os.Remove(path)
		return err
	}
	return nil
}

func newFile(pkgPath, pkgName string) *jen.File {
	file := jen.NewFilePathName(pkgPath, pkgName)
	file.HeaderComment(Header)
	file.ImportName(JSONIOPath, "jsonio")
	file.ImportName(AdapterPath, "adapter")
	return file
}

func render(file *jen.File) ([]byte, error) {
	var buf bytes.Buffer
	if err := file.Render(&buf); err != nil {
		return nil, fmt.Errorf("emit: render: %w", err)
	}
	return buf.Bytes(), nil
}
