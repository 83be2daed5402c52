package discover

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/rbaliyan/stag"
)

// FromStructs builds declarations from struct values or pointers to
// struct values. Types without tagged fields are skipped.
//
// Unlike Load it needs no go command, but it only sees types linked into
// the running program.
func FromStructs(values ...any) ([]stag.Declaration, error) {
	var decls []stag.Declaration
	for _, v := range values {
		t := reflect.TypeOf(v)
		if t != nil && t.Kind() == reflect.Pointer {
			t = t.Elem()
		}
		if t == nil || t.Kind() != reflect.Struct {
			return nil, fmt.Errorf("discover: expected struct, got %v", t)
		}
		if t.Name() == "" || t.PkgPath() == "" {
			return nil, fmt.Errorf("discover: %v is not a named type", t)
		}

		var fields []stag.DeclaredField
		for i := range t.NumField() {
			sf := t.Field(i)
			raw, ok := sf.Tag.Lookup(stag.TagName)
			if !ok {
				continue
			}
			tag, ok := stag.ParseFieldTag(raw)
			if !ok {
				continue
			}
			ref, reason := reflectRef(sf.Type)
			fields = append(fields, stag.DeclaredField{
				Name:        sf.Name,
				Tag:         tag,
				Type:        ref,
				Exported:    sf.IsExported(),
				Embedded:    sf.Anonymous,
				Unsupported: reason,
			})
		}
		if len(fields) == 0 {
			continue
		}
		decls = append(decls, stag.Declaration{
			ID:     stag.NewTypeID(t.PkgPath(), t.Name()),
			Fields: fields,
		})
	}
	return decls, nil
}

// reflectRef mirrors typeRef for reflect types.
func reflectRef(t reflect.Type) (stag.TypeRef, string) {
	pointer := false
	if t.Kind() == reflect.Pointer {
		pointer = true
		t = t.Elem()
	}

	// Named types carry a package path; predeclared ones do not.
	if t.PkgPath() == "" {
		switch t.Kind() {
		case reflect.Slice, reflect.Array:
			return stag.TypeRef{}, "slice and array types are not supported"
		case reflect.Map:
			return stag.TypeRef{}, "map types are not supported"
		case reflect.Interface:
			return stag.TypeRef{}, "interface types are not supported"
		case reflect.Pointer:
			return stag.TypeRef{}, "pointers to pointers are not supported"
		}
		if t.Name() == "" || !stag.IsBasic(t.Name()) {
			return stag.TypeRef{}, fmt.Sprintf("type %s is not supported", t)
		}
		if pointer {
			return stag.TypeRef{}, fmt.Sprintf("pointers to %s are not supported", t.Name())
		}
		return stag.BasicRef(t.Name()), ""
	}

	switch {
	case strings.Contains(t.Name(), "["):
		return stag.TypeRef{}, "generic types are not supported"
	case t.Kind() == reflect.Interface:
		return stag.TypeRef{}, "interface types are not supported"
	}
	return stag.NamedRef(stag.NewTypeID(t.PkgPath(), t.Name()), pointer), ""
}
