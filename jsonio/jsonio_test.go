package jsonio_test

import (
	"errors"
	"testing"

	"github.com/rbaliyan/stag/jsonio"
)

func TestWriterObject(t *testing.T) {
	data, err := jsonio.Marshal(func(w *jsonio.Writer) error {
		steps := []func() error{
			w.BeginObject,
			func() error { return w.Name("x") },
			func() error { return w.Int(3) },
			func() error { return w.Name("label") },
			func() error { return w.String("a\"b") },
			func() error { return w.Name("ok") },
			func() error { return w.Bool(true) },
			func() error { return w.Name("ratio") },
			func() error { return w.Float64(0.5) },
			func() error { return w.Name("big") },
			func() error { return w.Int64(1 << 40) },
			w.EndObject,
		}
		for _, step := range steps {
			if err := step(); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	want := `{"x":3,"label":"a\"b","ok":true,"ratio":0.5,"big":1099511627776}`
	if string(data) != want {
		t.Errorf("got %s, want %s", data, want)
	}
}

func TestReaderObject(t *testing.T) {
	input := `{"x":3,"label":"hi","ok":false,"ratio":1.25,"skip":{"a":[1,2,{"b":null}]},"n":null}`

	var (
		x     int
		label string
		ok    = true
		ratio float64
		names []string
		nulls int
	)
	err := jsonio.Unmarshal([]byte(input), func(r *jsonio.Reader) error {
		if err := r.BeginObject(); err != nil {
			return err
		}
		for r.HasNext() {
			name, err := r.NextName()
			if err != nil {
				return err
			}
			names = append(names, name)
			if r.Peek() == jsonio.Null {
				nulls++
				if err := r.SkipValue(); err != nil {
					return err
				}
				continue
			}
			switch name {
			case "x":
				x, err = r.NextInt()
			case "label":
				label, err = r.NextString()
			case "ok":
				ok, err = r.NextBool()
			case "ratio":
				ratio, err = r.NextFloat64()
			default:
				err = r.SkipValue()
			}
			if err != nil {
				return err
			}
		}
		return r.EndObject()
	})
	if err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	if x != 3 || label != "hi" || ok || ratio != 1.25 {
		t.Errorf("unexpected values: x=%d label=%q ok=%v ratio=%v", x, label, ok, ratio)
	}
	if len(names) != 6 {
		t.Errorf("expected 6 names, got %v", names)
	}
	if nulls != 1 {
		t.Errorf("expected 1 null, got %d", nulls)
	}
}

func TestReaderNumbers(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int64
		wantErr error
	}{
		{"integer", `42`, 42, nil},
		{"negative", `-7`, -7, nil},
		{"integral float", `3.0`, 3, nil},
		{"exponent", `1e3`, 1000, nil},
		{"quoted", `"12"`, 12, nil},
		{"fraction", `3.5`, 0, jsonio.ErrNotInteger},
		{"boolean", `true`, 0, jsonio.ErrUnexpectedToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got int64
			err := jsonio.Unmarshal([]byte(tt.input), func(r *jsonio.Reader) error {
				var err error
				got, err = r.NextInt64()
				return err
			})
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestReaderUnexpectedToken(t *testing.T) {
	err := jsonio.Unmarshal([]byte(`[1]`), func(r *jsonio.Reader) error {
		return r.BeginObject()
	})

	var te *jsonio.TokenError
	if !errors.As(err, &te) {
		t.Fatalf("expected TokenError, got %v", err)
	}
	if te.Want != jsonio.BeginObject || te.Got != jsonio.BeginArray {
		t.Errorf("unexpected token error: %v", te)
	}
}

func TestKindString(t *testing.T) {
	if jsonio.Null.String() != "null" {
		t.Errorf("expected null, got %q", jsonio.Null.String())
	}
	if jsonio.Kind(99).String() != "unknown" {
		t.Errorf("expected unknown, got %q", jsonio.Kind(99).String())
	}
}

func TestReaderReadValue(t *testing.T) {
	var (
		raw  []byte
		next string
	)
	err := jsonio.Unmarshal([]byte(`{"nested":{"a":[1,{"b":null}]},"next":"ok"}`), func(r *jsonio.Reader) error {
		if err := r.BeginObject(); err != nil {
			return err
		}
		if _, err := r.NextName(); err != nil {
			return err
		}
		var err error
		if raw, err = r.ReadValue(); err != nil {
			return err
		}
		if _, err := r.NextName(); err != nil {
			return err
		}
		if next, err = r.NextString(); err != nil {
			return err
		}
		return r.EndObject()
	})
	if err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if string(raw) != `{"a":[1,{"b":null}]}` {
		t.Errorf("unexpected raw value %s", raw)
	}
	if next != "ok" {
		t.Errorf("expected stream to continue, got %q", next)
	}
}

func TestWriterValue(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
		err  error
	}{
		{"object", `{"a":[1,2]}`, `{"before":1,"v":{"a":[1,2]}}`, nil},
		{"number", `12`, `{"before":1,"v":12}`, nil},
		{"empty", ``, ``, jsonio.ErrInvalidValue},
		{"truncated", `{"a":`, ``, jsonio.ErrInvalidValue},
		{"two values", "1\n2", ``, jsonio.ErrInvalidValue},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := jsonio.Marshal(func(w *jsonio.Writer) error {
				if err := w.BeginObject(); err != nil {
					return err
				}
				if err := w.Name("before"); err != nil {
					return err
				}
				if err := w.Int(1); err != nil {
					return err
				}
				if err := w.Name("v"); err != nil {
					return err
				}
				if err := w.Value([]byte(tt.raw)); err != nil {
					return err
				}
				return w.EndObject()
			})
			if !errors.Is(err, tt.err) {
				t.Fatalf("expected %v, got %v", tt.err, err)
			}
			if tt.err == nil && string(data) != tt.want {
				t.Errorf("got %s, want %s", data, tt.want)
			}
		})
	}
}
