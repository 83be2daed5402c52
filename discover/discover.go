// Package discover finds the struct types carrying stag tags and turns
// them into generator declarations.
//
// Load type-checks source packages with golang.org/x/tools/go/packages.
// FromStructs builds the same declarations from values with reflection,
// for tests and programs that drive the generator directly.
package discover

import (
	"context"
	"errors"
	"fmt"
	"go/ast"
	"go/types"
	"log/slog"
	"path/filepath"
	"reflect"
	"slices"
	"strings"

	"golang.org/x/tools/go/packages"

	"github.com/rbaliyan/stag"
	"github.com/rbaliyan/stag/emit"
)

// ErrLoad is returned when a package cannot be loaded or type-checked.
var ErrLoad = errors.New("discover: load failed")

// Config controls package loading.
type Config struct {
	// Dir is the directory patterns are resolved in. Empty means the
	// working directory.
	Dir string

	// BuildFlags are passed to the go command, for example "-tags=integration".
	BuildFlags []string

	// Env overrides the environment of the go command. Nil means os.Environ.
	Env []string

	// Logger receives debug output. Nil means slog.Default.
	Logger *slog.Logger
}

// Package is one loaded package and its tagged types.
type Package struct {
	// PkgPath is the import path.
	PkgPath string

	// Name is the package clause name.
	Name string

	// Dir is the directory of the package sources.
	Dir string

	// Declarations are the tagged struct types in source order.
	Declarations []stag.Declaration

	// Names are the package-scope identifiers declared outside files
	// generated by stag, sorted.
	Names []string

	// External are the field types declared in imported packages that
	// already carry generated adapters, sorted by type.
	External []stag.ExternalAdapterInfo
}

const loadMode = packages.NeedName | packages.NeedFiles | packages.NeedTypes |
	packages.NeedImports | packages.NeedSyntax

// Load type-checks the packages matching patterns and collects every named
// struct type with at least one field carrying a stag tag.
//
// Packages are returned in dependency order: a package comes after every
// matched package it imports, so generating them in order lets a package
// use the adapters of the ones before it. Packages without tagged types
// are returned with no declarations so that callers can report them. Load does not apply the declaration rules:
// fields are reported as found and stag.ValidateDeclaration decides.
func Load(ctx context.Context, cfg Config, patterns ...string) ([]Package, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if len(patterns) == 0 {
		patterns = []string{"."}
	}

	pkgs, err := packages.Load(&packages.Config{
		Mode:       loadMode,
		Context:    ctx,
		Dir:        cfg.Dir,
		BuildFlags: cfg.BuildFlags,
		Env:        cfg.Env,
	}, patterns...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoad, err)
	}

	out := make([]Package, 0, len(pkgs))
	for _, pkg := range dependencyOrder(pkgs) {
		if len(pkg.Errors) > 0 {
			return nil, fmt.Errorf("%w: %s: %v", ErrLoad, pkg.PkgPath, pkg.Errors[0])
		}
		p := Package{
			PkgPath:      pkg.PkgPath,
			Name:         pkg.Name,
			Declarations: declarations(pkg.Types),
			Names:        handWrittenNames(pkg),
		}
		p.External = externalAdapters(pkg.Types, p.Declarations)
		if len(pkg.GoFiles) > 0 {
			p.Dir = filepath.Dir(pkg.GoFiles[0])
		}
		logger.Debug("loaded package", "package", p.PkgPath, "types", len(p.Declarations), "external", len(p.External))
		out = append(out, p)
	}
	return out, nil
}

// dependencyOrder sorts the matched packages so that imports come first.
func dependencyOrder(pkgs []*packages.Package) []*packages.Package {
	matched := make(map[string]bool, len(pkgs))
	for _, p := range pkgs {
		matched[p.ID] = true
	}
	ordered := make([]*packages.Package, 0, len(pkgs))
	packages.Visit(pkgs, nil, func(p *packages.Package) {
		if matched[p.ID] {
			matched[p.ID] = false
			ordered = append(ordered, p)
		}
	})
	return ordered
}

// handWrittenNames returns the package-scope identifiers that do not come
// from a previous stag run, so that regenerating a package does not
// collide with its own output.
func handWrittenNames(pkg *packages.Package) []string {
	generated := make(map[string]bool)
	for _, f := range pkg.Syntax {
		if generatedByStag(f) {
			generated[pkg.Fset.File(f.Pos()).Name()] = true
		}
	}

	scope := pkg.Types.Scope()
	var names []string
	for _, name := range scope.Names() {
		if !generated[pkg.Fset.Position(scope.Lookup(name).Pos()).Filename] {
			names = append(names, name)
		}
	}
	return names
}

func generatedByStag(f *ast.File) bool {
	if !ast.IsGenerated(f) {
		return false
	}
	for _, cg := range f.Comments {
		if cg.Pos() > f.Package {
			break
		}
		if strings.Contains(cg.Text(), emit.Header) {
			return true
		}
	}
	return false
}

// externalAdapters finds the field types of decls declared in an imported
// package that exports the generated Adapters function and an adapter type
// for them.
func externalAdapters(pkg *types.Package, decls []stag.Declaration) []stag.ExternalAdapterInfo {
	imports := make(map[string]*types.Package)
	for _, imp := range pkg.Imports() {
		imports[imp.Path()] = imp
	}

	seen := make(map[stag.TypeID]bool)
	var infos []stag.ExternalAdapterInfo
	for _, d := range decls {
		for _, f := range d.Fields {
			id := f.Type.ID
			if id == "" || seen[id] {
				continue
			}
			seen[id] = true
			imp, ok := imports[id.PkgPath()]
			if !ok || !hasAdapters(imp.Scope(), id) {
				continue
			}
			infos = append(infos, stag.ExternalAdapterInfo{ID: id, Factory: imp.Path()})
		}
	}
	slices.SortFunc(infos, func(a, b stag.ExternalAdapterInfo) int {
		return strings.Compare(string(a.ID), string(b.ID))
	})
	return infos
}

// hasAdapters reports whether scope holds the generated adapter factory
// and the forwarding codec of id.
func hasAdapters(scope *types.Scope, id stag.TypeID) bool {
	fn, ok := scope.Lookup(emit.AdaptersFunc).(*types.Func)
	if !ok {
		return false
	}
	sig, ok := fn.Type().(*types.Signature)
	if !ok || sig.Params().Len() != 0 || sig.Results().Len() != 1 {
		return false
	}
	if types.TypeString(sig.Results().At(0).Type(), nil) != "*"+emit.AdapterPath+".Registry" {
		return false
	}
	_, ok = scope.Lookup(stag.AdapterTypeName(id)).(*types.TypeName)
	return ok
}

// declarations returns the tagged structs declared at package scope,
// ordered by source position.
func declarations(pkg *types.Package) []stag.Declaration {
	scope := pkg.Scope()
	var named []*types.TypeName
	for _, name := range scope.Names() {
		tn, ok := scope.Lookup(name).(*types.TypeName)
		if !ok || tn.IsAlias() {
			continue
		}
		named = append(named, tn)
	}
	slices.SortFunc(named, func(a, b *types.TypeName) int {
		return int(a.Pos() - b.Pos())
	})

	var decls []stag.Declaration
	for _, tn := range named {
		t, ok := tn.Type().(*types.Named)
		if !ok || t.TypeParams().Len() > 0 {
			continue
		}
		st, ok := t.Underlying().(*types.Struct)
		if !ok {
			continue
		}
		fields := structFields(st)
		if len(fields) == 0 {
			continue
		}
		decls = append(decls, stag.Declaration{
			ID:     stag.NewTypeID(pkg.Path(), tn.Name()),
			Fields: fields,
		})
	}
	return decls
}

func structFields(st *types.Struct) []stag.DeclaredField {
	var fields []stag.DeclaredField
	for i := range st.NumFields() {
		raw, ok := reflect.StructTag(st.Tag(i)).Lookup(stag.TagName)
		if !ok {
			continue
		}
		tag, ok := stag.ParseFieldTag(raw)
		if !ok {
			continue
		}

		v := st.Field(i)
		ref, reason := typeRef(v.Type())
		fields = append(fields, stag.DeclaredField{
			Name:        v.Name(),
			Tag:         tag,
			Type:        ref,
			Exported:    v.Exported(),
			Embedded:    v.Embedded(),
			Unsupported: reason,
		})
	}
	return fields
}

// typeRef maps a field type to a TypeRef. Types the generator cannot code
// are reported with a reason instead.
func typeRef(t types.Type) (stag.TypeRef, string) {
	t = types.Unalias(t)
	pointer := false
	if p, ok := t.(*types.Pointer); ok {
		pointer = true
		t = types.Unalias(p.Elem())
	}

	switch t := t.(type) {
	case *types.Basic:
		if !stag.IsBasic(t.Name()) {
			return stag.TypeRef{}, fmt.Sprintf("basic type %s is not supported", t.Name())
		}
		if pointer {
			return stag.TypeRef{}, fmt.Sprintf("pointers to %s are not supported", t.Name())
		}
		return stag.BasicRef(t.Name()), ""
	case *types.Named:
		obj := t.Obj()
		switch {
		case obj.Pkg() == nil:
			return stag.TypeRef{}, fmt.Sprintf("predeclared type %s is not supported", obj.Name())
		case t.TypeArgs().Len() > 0:
			return stag.TypeRef{}, "generic types are not supported"
		case types.IsInterface(t):
			return stag.TypeRef{}, "interface types are not supported"
		}
		return stag.NamedRef(stag.NewTypeID(obj.Pkg().Path(), obj.Name()), pointer), ""
	case *types.Slice, *types.Array:
		return stag.TypeRef{}, "slice and array types are not supported"
	case *types.Map:
		return stag.TypeRef{}, "map types are not supported"
	case *types.Interface:
		return stag.TypeRef{}, "interface types are not supported"
	case *types.Pointer:
		return stag.TypeRef{}, "pointers to pointers are not supported"
	default:
		return stag.TypeRef{}, fmt.Sprintf("type %s is not supported", t)
	}
}
