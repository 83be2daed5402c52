package stag

import (
	"fmt"
	"regexp"
	"strings"
)

// validTypeName matches exported and unexported Go identifiers.
var validTypeName = regexp.MustCompile(`^[\p{L}_][\p{L}\p{N}_]*$`)

// TypeID is the canonical identity of a declared type: the import path of
// its package, a dot, and the type name ("example.com/geo.Point").
// Two TypeIDs are equal iff they denote the same declared type.
type TypeID string

// NewTypeID builds the identity of the type name declared in pkgPath.
func NewTypeID(pkgPath, name string) TypeID {
	if pkgPath == "" {
		return TypeID(name)
	}
	return TypeID(pkgPath + "." + name)
}

// ParseTypeID validates s and returns it as a TypeID.
func ParseTypeID(s string) (TypeID, error) {
	id := TypeID(s)
	if err := id.Validate(); err != nil {
		return "", err
	}
	return id, nil
}

// String returns the identity string used as the dispatch key.
func (id TypeID) String() string {
	return string(id)
}

// PkgPath returns the import path part of the identity.
func (id TypeID) PkgPath() string {
	s := string(id)
	slash := strings.LastIndex(s, "/")
	dot := strings.LastIndex(s, ".")
	if dot <= slash {
		return ""
	}
	return s[:dot]
}

// Name returns the unqualified type name.
func (id TypeID) Name() string {
	s := string(id)
	slash := strings.LastIndex(s, "/")
	dot := strings.LastIndex(s, ".")
	if dot <= slash {
		return s[slash+1:]
	}
	return s[dot+1:]
}

// Validate checks that the identity names a Go type.
func (id TypeID) Validate() error {
	if id == "" {
		return &InvalidTypeError{ID: id, Reason: "type identity cannot be empty"}
	}
	if !validTypeName.MatchString(id.Name()) {
		return &InvalidTypeError{ID: id, Reason: fmt.Sprintf("%q is not a Go identifier", id.Name())}
	}
	return nil
}
