package jsonio

import (
	"errors"
	"fmt"
)

var (
	// ErrUnexpectedToken is returned when the next token is not of the kind
	// the caller asked for.
	ErrUnexpectedToken = errors.New("jsonio: unexpected token")

	// ErrNotInteger is returned when a number with a fractional part is read
	// as an integer.
	ErrNotInteger = errors.New("jsonio: number is not an integer")

	// ErrOutOfRange is returned when a number does not fit the target type.
	ErrOutOfRange = errors.New("jsonio: number out of range")

	// ErrInvalidValue is returned when raw bytes are not exactly one
	// complete JSON value.
	ErrInvalidValue = errors.New("jsonio: invalid raw value")
)

// TokenError describes a token of the wrong kind.
type TokenError struct {
	Want Kind
	Got  Kind
}

func (e *TokenError) Error() string {
	return fmt.Sprintf("jsonio: expected %s, got %s", e.Want, e.Got)
}

func (e *TokenError) Unwrap() error {
	return ErrUnexpectedToken
}

// NumberError describes a number literal that could not be converted.
type NumberError struct {
	Literal string
	Err     error
}

func (e *NumberError) Error() string {
	return fmt.Sprintf("jsonio: invalid number %q: %v", e.Literal, e.Err)
}

func (e *NumberError) Unwrap() error {
	return e.Err
}
