package stag

import (
	"errors"
	"fmt"
	"os"
)

// Sentinel errors for generation runs.
// Use errors.Is() to check for these errors as they may be wrapped.
var (
	// ErrInvalidField is returned when a tagged field breaks the
	// accessibility or shape rules. It aborts the whole pass.
	ErrInvalidField = errors.New("stag: invalid field")

	// ErrInvalidType is returned when a type identity is empty or malformed.
	ErrInvalidType = errors.New("stag: invalid type")

	// ErrMixedPackages is returned when one pass is given types declared in
	// more than one package.
	ErrMixedPackages = errors.New("stag: types span multiple packages")

	// ErrOutput is returned when a generated file cannot be written.
	ErrOutput = errors.New("stag: output failed")

	// ErrNotFound is returned by manifest stores when no manifest covers a type.
	ErrNotFound = errors.New("stag: manifest not found")

	// ErrStoreClosed is returned when operating on a closed manifest store.
	ErrStoreClosed = errors.New("stag: store closed")

	// ErrInvalidManifest is returned when a manifest cannot be published.
	ErrInvalidManifest = errors.New("stag: invalid manifest")
)

// FieldError provides details about a tagged field that cannot be coded.
type FieldError struct {
	Type   TypeID
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("stag: unable to access field %q in type %s, %s", e.Field, e.Type, e.Reason)
}

func (e *FieldError) Unwrap() error {
	return ErrInvalidField
}

// IsInvalidField checks if an error indicates a field rule violation.
func IsInvalidField(err error) bool {
	return errors.Is(err, ErrInvalidField)
}

// InvalidTypeError provides details about a malformed type identity.
type InvalidTypeError struct {
	ID     TypeID
	Reason string
}

func (e *InvalidTypeError) Error() string {
	return fmt.Sprintf("stag: invalid type %q: %s", e.ID, e.Reason)
}

func (e *InvalidTypeError) Unwrap() error {
	return ErrInvalidType
}

// OutputError wraps a failure to write a generated file.
type OutputError struct {
	Path string
	Err  error
}

func (e *OutputError) Error() string {
	return fmt.Sprintf("stag: write %s: %v", e.Path, e.Err)
}

func (e *OutputError) Unwrap() []error {
	return []error{ErrOutput, e.Err}
}

// IsOutput checks if an error indicates a generated file could not be written.
func IsOutput(err error) bool {
	return errors.Is(err, ErrOutput)
}

// IsNotFound checks if an error indicates a missing manifest.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// StoreError wraps backend-specific errors with domain context.
type StoreError struct {
	Op      string // Operation that failed
	Key     string // Type or factory involved (if applicable)
	Backend string // Backend name (memory, file, sqlite, postgres, mongodb)
	Err     error  // Underlying error
}

func (e *StoreError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("stag: %s [%s] key=%q: %v", e.Op, e.Backend, e.Key, e.Err)
	}
	return fmt.Sprintf("stag: %s [%s]: %v", e.Op, e.Backend, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// WrapStoreError creates a StoreError from a backend error.
func WrapStoreError(op, backend, key string, err error) error {
	if err == nil {
		return nil
	}
	// Don't double-wrap
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	return &StoreError{Op: op, Backend: backend, Key: key, Err: err}
}

// removePartial deletes a partially written output file. A missing file is
// not an error.
func removePartial(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
