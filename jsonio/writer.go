package jsonio

import (
	"bytes"
	"io"

	"github.com/go-json-experiment/json/jsontext"
)

// Writer writes JSON tokens to an underlying stream.
// A Writer is not safe for concurrent use.
type Writer struct {
	enc *jsontext.Encoder
}

// NewWriter returns a Writer producing compact JSON on w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{enc: jsontext.NewEncoder(w)}
}

// BeginObject writes '{'.
func (w *Writer) BeginObject() error { return w.enc.WriteToken(jsontext.BeginObject) }

// EndObject writes '}'.
func (w *Writer) EndObject() error { return w.enc.WriteToken(jsontext.EndObject) }

// Name writes an object member name.
func (w *Writer) Name(name string) error { return w.enc.WriteToken(jsontext.String(name)) }

// String writes a JSON string.
func (w *Writer) String(v string) error { return w.enc.WriteToken(jsontext.String(v)) }

// Int64 writes a JSON number.
func (w *Writer) Int64(v int64) error { return w.enc.WriteToken(jsontext.Int(v)) }

// Int writes a JSON number.
func (w *Writer) Int(v int) error { return w.enc.WriteToken(jsontext.Int(int64(v))) }

// Float64 writes a JSON number.
func (w *Writer) Float64(v float64) error { return w.enc.WriteToken(jsontext.Float(v)) }

// Bool writes a JSON boolean.
func (w *Writer) Bool(v bool) error { return w.enc.WriteToken(jsontext.Bool(v)) }

// Null writes a JSON null.
func (w *Writer) Null() error { return w.enc.WriteToken(jsontext.Null) }

// Value writes raw as one JSON value. raw must hold exactly one
// complete value; nothing is written otherwise.
func (w *Writer) Value(raw []byte) error {
	if !Valid(raw) {
		return ErrInvalidValue
	}
	return w.enc.WriteValue(jsontext.Value(raw))
}

// Valid reports whether raw holds exactly one complete JSON value.
func Valid(raw []byte) bool {
	return jsontext.Value(raw).IsValid()
}

// Marshal runs fn against a fresh Writer and returns the bytes it produced.
func Marshal(fn func(*Writer) error) ([]byte, error) {
	var buf bytes.Buffer
	if err := fn(NewWriter(&buf)); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Unmarshal runs fn against a Reader over data.
func Unmarshal(data []byte, fn func(*Reader) error) error {
	return fn(NewReader(bytes.NewReader(data)))
}
