package stag

import (
	"fmt"

	"github.com/rbaliyan/stag/emit"
)

// checkNames rejects runs whose generated files would not compile because
// two package-scope identifiers collide: a generated procedure or adapter
// type against a fixed helper of the adapter file, against another
// generated identifier, or against a name declared by the package itself.
func checkNames(decls []Declaration, reserved []string) error {
	owner := make(map[string]TypeID)
	for _, h := range emit.Helpers() {
		owner[h] = ""
	}

	var ids []TypeID
	seen := make(map[TypeID]bool, len(decls))
	for _, d := range decls {
		if !seen[d.ID] {
			seen[d.ID] = true
			ids = append(ids, d.ID)
		}
	}

	for _, id := range ids {
		for _, name := range generatedNames(id) {
			if other, ok := owner[name]; ok {
				return &InvalidTypeError{ID: id, Reason: "generated identifier " + collision(name, other)}
			}
			owner[name] = id
		}
	}

	for _, id := range ids {
		if other, ok := owner[id.Name()]; ok {
			return &InvalidTypeError{ID: id, Reason: "type name " + collision(id.Name(), other)}
		}
	}
	for _, name := range reserved {
		id, ok := owner[name]
		switch {
		case !ok:
		case id == "":
			return &InvalidTypeError{ID: ids[0], Reason: fmt.Sprintf("package declares %s, which the adapter file declares too", name)}
		default:
			return &InvalidTypeError{ID: id, Reason: fmt.Sprintf("generated identifier %s is already declared in the package", name)}
		}
	}
	return nil
}

func generatedNames(id TypeID) []string {
	return []string{WriteFuncName(id), ParseFuncName(id), AdapterTypeName(id)}
}

func collision(name string, other TypeID) string {
	if other == "" {
		return fmt.Sprintf("%s collides with the adapter helper of the same name", name)
	}
	return fmt.Sprintf("%s collides with the identifier generated for %s", name, other.Name())
}
