package adapter

import (
	"errors"
	"fmt"
)

// Dispatch operations.
const (
	OpRead  = "read"
	OpWrite = "write"
)

var (
	// ErrNoCodec is reported when no codec is registered for a type key.
	ErrNoCodec = errors.New("adapter: no codec registered")

	// ErrTypeMismatch is returned by generated codecs handed a value of the
	// wrong Go type.
	ErrTypeMismatch = errors.New("adapter: type mismatch")
)

// DispatchError describes a failed registry dispatch.
type DispatchError struct {
	TypeKey string
	Op      string
	Err     error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("adapter: %s %s: %v", e.Op, e.TypeKey, e.Err)
}

func (e *DispatchError) Unwrap() error {
	return e.Err
}

// TypeMismatchError provides details about a value of the wrong type.
type TypeMismatchError struct {
	TypeKey string
	Got     string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("adapter: codec for %s cannot encode %s", e.TypeKey, e.Got)
}

func (e *TypeMismatchError) Unwrap() error {
	return ErrTypeMismatch
}

// Mismatch returns a TypeMismatchError for v.
func Mismatch(typeKey string, v any) error {
	return &TypeMismatchError{TypeKey: typeKey, Got: fmt.Sprintf("%T", v)}
}

// IsNoCodec checks if an error indicates a missing codec.
func IsNoCodec(err error) bool {
	return errors.Is(err, ErrNoCodec)
}
