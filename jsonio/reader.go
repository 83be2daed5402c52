// Package jsonio provides the token-level JSON reader and writer used by
// generated codecs. It is a thin layer over
// github.com/go-json-experiment/json/jsontext that exposes the small
// object-oriented vocabulary generated code is written against
// (BeginObject, HasNext, NextName, Peek, SkipValue, typed scalar reads and
// writes).
package jsonio

import (
	"io"
	"math"
	"strconv"

	"github.com/go-json-experiment/json/jsontext"
)

// Kind is the kind of the next JSON token.
type Kind int

const (
	Invalid Kind = iota
	Null
	False
	True
	String
	Number
	BeginObject
	EndObject
	BeginArray
	EndArray
)

var kindNames = [...]string{
	Invalid:     "invalid",
	Null:        "null",
	False:       "false",
	True:        "true",
	String:      "string",
	Number:      "number",
	BeginObject: "{",
	EndObject:   "}",
	BeginArray:  "[",
	EndArray:    "]",
}

// String returns a short name for the kind.
func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "unknown"
	}
	return kindNames[k]
}

func kindOf(k jsontext.Kind) Kind {
	switch k {
	case 'n':
		return Null
	case 'f':
		return False
	case 't':
		return True
	case '"':
		return String
	case '0':
		return Number
	case '{':
		return BeginObject
	case '}':
		return EndObject
	case '[':
		return BeginArray
	case ']':
		return EndArray
	default:
		return Invalid
	}
}

// Reader reads JSON tokens from an underlying stream.
// A Reader is not safe for concurrent use.
type Reader struct {
	dec *jsontext.Decoder
}

// NewReader returns a Reader consuming r.
func NewReader(r io.Reader) *Reader {
	return &Reader{dec: jsontext.NewDecoder(r)}
}

// Peek reports the kind of the next token without consuming it.
// It returns Invalid at end of input or on a syntax error; the error itself
// is returned by the next read.
func (r *Reader) Peek() Kind {
	return kindOf(r.dec.PeekKind())
}

// HasNext reports whether the current object or array has more elements.
func (r *Reader) HasNext() bool {
	switch r.Peek() {
	case EndObject, EndArray, Invalid:
		return false
	default:
		return true
	}
}

// BeginObject consumes the '{' that opens an object.
func (r *Reader) BeginObject() error {
	_, err := r.expect(BeginObject)
	return err
}

// EndObject consumes the '}' that closes an object.
func (r *Reader) EndObject() error {
	_, err := r.expect(EndObject)
	return err
}

// NextName consumes and returns the next object member name.
func (r *Reader) NextName() (string, error) {
	tok, err := r.expect(String)
	if err != nil {
		return "", err
	}
	return tok.String(), nil
}

// SkipValue consumes the next value, including any nested content.
func (r *Reader) SkipValue() error {
	return r.dec.SkipValue()
}

// ReadValue consumes the next value and returns a copy of its raw bytes,
// including any nested content.
func (r *Reader) ReadValue() ([]byte, error) {
	v, err := r.dec.ReadValue()
	if err != nil {
		return nil, err
	}
	return v.Clone(), nil
}

// NextString consumes a JSON string. Numbers are accepted and returned
// in their literal form.
func (r *Reader) NextString() (string, error) {
	tok, err := r.dec.ReadToken()
	if err != nil {
		return "", err
	}
	switch kindOf(tok.Kind()) {
	case String, Number:
		return tok.String(), nil
	default:
		return "", &TokenError{Want: String, Got: kindOf(tok.Kind())}
	}
}

// NextBool consumes a JSON boolean.
func (r *Reader) NextBool() (bool, error) {
	tok, err := r.dec.ReadToken()
	if err != nil {
		return false, err
	}
	switch kindOf(tok.Kind()) {
	case True:
		return true, nil
	case False:
		return false, nil
	default:
		return false, &TokenError{Want: True, Got: kindOf(tok.Kind())}
	}
}

// NextInt64 consumes a JSON number (or a string holding one) that has an
// exact 64-bit integer value.
func (r *Reader) NextInt64() (int64, error) {
	lit, err := r.numberLiteral()
	if err != nil {
		return 0, err
	}
	if n, err := strconv.ParseInt(lit, 10, 64); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(lit, 64)
	if err != nil {
		return 0, &NumberError{Literal: lit, Err: err}
	}
	n := int64(f)
	if float64(n) != f || f >= math.MaxInt64 || f < math.MinInt64 {
		return 0, &NumberError{Literal: lit, Err: ErrNotInteger}
	}
	return n, nil
}

// NextInt consumes a JSON number that fits in an int.
func (r *Reader) NextInt() (int, error) {
	n, err := r.NextInt64()
	if err != nil {
		return 0, err
	}
	if n > math.MaxInt || n < math.MinInt {
		return 0, &NumberError{Literal: strconv.FormatInt(n, 10), Err: ErrOutOfRange}
	}
	return int(n), nil
}

// NextFloat64 consumes a JSON number (or a string holding one).
func (r *Reader) NextFloat64() (float64, error) {
	lit, err := r.numberLiteral()
	if err != nil {
		return 0, err
	}
	f, err := strconv.ParseFloat(lit, 64)
	if err != nil {
		return 0, &NumberError{Literal: lit, Err: err}
	}
	return f, nil
}

func (r *Reader) numberLiteral() (string, error) {
	tok, err := r.dec.ReadToken()
	if err != nil {
		return "", err
	}
	switch kindOf(tok.Kind()) {
	case Number, String:
		return tok.String(), nil
	default:
		return "", &TokenError{Want: Number, Got: kindOf(tok.Kind())}
	}
}

func (r *Reader) expect(want Kind) (jsontext.Token, error) {
	tok, err := r.dec.ReadToken()
	if err != nil {
		return jsontext.Token{}, err
	}
	if got := kindOf(tok.Kind()); got != want {
		return jsontext.Token{}, &TokenError{Want: want, Got: got}
	}
	return tok, nil
}
