package stag

import (
	"slices"

	"github.com/rbaliyan/stag/ir"
)

// GenerateAdapters builds the adapter factory unit of the package pkgPath.
//
// The unit holds one forwarding codec per supported type, registered under
// the type's identity string, and merges the registries of the factory
// packages recorded for external types. A factory equal to pkgPath is
// skipped: a package never imports itself, and its own types are generated
// in this run.
func GenerateAdapters(reg *Registry, pkgPath, pkgName string) *ir.AdapterFile {
	f := &ir.AdapterFile{
		PkgPath: pkgPath,
		PkgName: pkgName,
	}
	for _, cls := range reg.Classes() {
		f.Adapters = append(f.Adapters, ir.Adapter{
			Name:      cls.AdapterName(),
			TypeKey:   cls.ID.String(),
			Type:      typeName(cls.ID),
			WriteFunc: cls.WriteFunc(),
			ParseFunc: cls.ParseFunc(),
		})
	}
	for _, factory := range reg.Factories() {
		if factory != pkgPath {
			f.Factories = append(f.Factories, factory)
		}
	}
	slices.Sort(f.Factories)
	return f
}

// GenerateParseFile builds the unit holding the write and parse procedures
// of every supported type, in discovery order.
func GenerateParseFile(reg *Registry, pkgPath, pkgName string) *ir.File {
	f := &ir.File{
		PkgPath: pkgPath,
		PkgName: pkgName,
	}
	for _, cls := range reg.Classes() {
		f.Funcs = append(f.Funcs, GenerateWrite(cls), GenerateRead(cls))
	}
	return f
}
