// Package adapter is the runtime dispatch registry used by generated code.
//
// Generated adapter files keep one Registry per package that maps a type
// identity ("<import path>.<Name>") to a Codec. Fields whose type has no
// codec generated in the same package are read and written through the
// registry. Failures on this path are reported and degrade to nil instead
// of propagating, so a missing or broken codec for one field never aborts
// decoding of the enclosing object.
package adapter

import (
	"bytes"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"

	"github.com/rbaliyan/stag/jsonio"
)

// Codec reads and writes one Go type.
type Codec interface {
	// Read decodes the next JSON value.
	Read(r *jsonio.Reader) (any, error)

	// Write encodes v as one JSON value.
	Write(w *jsonio.Writer, v any) error
}

// Funcs adapts a pair of functions to the Codec interface.
type Funcs struct {
	ReadFunc  func(r *jsonio.Reader) (any, error)
	WriteFunc func(w *jsonio.Writer, v any) error
}

func (f Funcs) Read(r *jsonio.Reader) (any, error)   { return f.ReadFunc(r) }
func (f Funcs) Write(w *jsonio.Writer, v any) error { return f.WriteFunc(w, v) }

// Reporter receives dispatch failures.
type Reporter func(err *DispatchError)

// Option configures a Registry.
type Option func(*Registry)

// WithReporter sets the function that receives dispatch failures.
// The default logs them at warn level.
func WithReporter(fn Reporter) Option {
	return func(r *Registry) {
		if fn != nil {
			r.report = fn
		}
	}
}

// WithLogger sets the logger used by the default reporter.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// Registry maps type identities to codecs. It is safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	codecs map[string]Codec
	report Reporter
	logger *slog.Logger
}

// NewRegistry creates an empty Registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		codecs: make(map[string]Codec),
		logger: slog.Default(),
	}
	r.report = r.logFailure
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register maps typeKey to c, replacing any previous codec.
// Panics if typeKey is empty or c is nil.
func (r *Registry) Register(typeKey string, c Codec) {
	if typeKey == "" {
		panic("adapter: Register type key is empty")
	}
	if c == nil {
		panic(fmt.Sprintf("adapter: Register codec for %q is nil", typeKey))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.codecs[typeKey] = c
}

// Lookup returns the codec registered for typeKey.
func (r *Registry) Lookup(typeKey string) (Codec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.codecs[typeKey]
	return c, ok
}

// Has reports whether a codec is registered for typeKey.
func (r *Registry) Has(typeKey string) bool {
	_, ok := r.Lookup(typeKey)
	return ok
}

// Keys returns the registered type keys in sorted order.
func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.codecs))
}

// Merge copies every codec of other that is not already registered here.
// Existing entries win so a package can override codecs it imports.
func (r *Registry) Merge(other *Registry) {
	if other == nil || other == r {
		return
	}
	other.mu.RLock()
	snapshot := maps.Clone(other.codecs)
	other.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	for key, c := range snapshot {
		if _, ok := r.codecs[key]; !ok {
			r.codecs[key] = c
		}
	}
}

// Read decodes the next value with the codec registered for typeKey.
// The whole value is consumed from in before the codec sees it, so in is
// positioned after the value whatever the codec does. When no codec is
// registered the value is skipped. Any failure is reported and Read
// returns nil.
func (r *Registry) Read(typeKey string, in *jsonio.Reader) any {
	c, ok := r.Lookup(typeKey)
	if !ok {
		r.report(&DispatchError{TypeKey: typeKey, Op: OpRead, Err: ErrNoCodec})
		if err := in.SkipValue(); err != nil {
			r.report(&DispatchError{TypeKey: typeKey, Op: OpRead, Err: err})
		}
		return nil
	}

	raw, err := in.ReadValue()
	if err != nil {
		r.report(&DispatchError{TypeKey: typeKey, Op: OpRead, Err: err})
		return nil
	}
	v, err := c.Read(jsonio.NewReader(bytes.NewReader(raw)))
	if err != nil {
		r.report(&DispatchError{TypeKey: typeKey, Op: OpRead, Err: err})
		return nil
	}
	return v
}

// Write encodes v with the codec registered for typeKey.
// Nothing reaches out unless the codec produced one complete value.
// Failures are reported, not returned.
func (r *Registry) Write(typeKey string, out *jsonio.Writer, v any) {
	raw, ok := r.encode(typeKey, v)
	if !ok {
		return
	}
	if err := out.Value(raw); err != nil {
		r.report(&DispatchError{TypeKey: typeKey, Op: OpWrite, Err: err})
	}
}

// WriteField writes the member name followed by v. The name is written
// only once the codec has produced a complete value, so an unresolved type
// or a failing codec leaves the enclosing object intact.
func (r *Registry) WriteField(typeKey, name string, out *jsonio.Writer, v any) {
	raw, ok := r.encode(typeKey, v)
	if !ok {
		return
	}
	if err := out.Name(name); err != nil {
		r.report(&DispatchError{TypeKey: typeKey, Op: OpWrite, Err: err})
		return
	}
	if err := out.Value(raw); err != nil {
		r.report(&DispatchError{TypeKey: typeKey, Op: OpWrite, Err: err})
	}
}

// encode runs the codec for typeKey against a scratch writer.
func (r *Registry) encode(typeKey string, v any) ([]byte, bool) {
	c, ok := r.Lookup(typeKey)
	if !ok {
		r.report(&DispatchError{TypeKey: typeKey, Op: OpWrite, Err: ErrNoCodec})
		return nil, false
	}
	raw, err := jsonio.Marshal(func(w *jsonio.Writer) error {
		return c.Write(w, v)
	})
	if err == nil && !jsonio.Valid(raw) {
		err = jsonio.ErrInvalidValue
	}
	if err != nil {
		r.report(&DispatchError{TypeKey: typeKey, Op: OpWrite, Err: err})
		return nil, false
	}
	return raw, true
}

func (r *Registry) logFailure(err *DispatchError) {
	r.logger.Warn("codec dispatch failed", "type", err.TypeKey, "op", err.Op, "error", err.Err)
}
