package file

import (
	"fmt"
	"io"
	"os"
	"reflect"
	"time"

	"github.com/go-viper/mapstructure/v2"

	"github.com/rbaliyan/stag"
	"github.com/rbaliyan/stag/codec"
)

// Loader reads a stag settings document. Top-level sections (generate,
// manifest, log, telemetry) are decoded on top of stag.DefaultSettings, so
// keys absent from the document keep their defaults.
//
// Usage:
//
//	settings, err := file.New("stag.yaml", file.WithExpandEnv()).Load()
type Loader struct {
	path string
	opts loaderOptions
}

// New creates a Loader for the given file path.
// The format is picked from the extension (.yaml, .yml, .toml, .json).
// Use WithFormat to override it.
func New(path string, opts ...LoaderOption) *Loader {
	var o loaderOptions
	for _, opt := range opts {
		opt(&o)
	}
	return &Loader{path: path, opts: o}
}

// LoadSettings reads the settings file at path.
func LoadSettings(path string, opts ...LoaderOption) (stag.Settings, error) {
	return New(path, opts...).Load()
}

// Load reads and decodes the file.
func (l *Loader) Load() (stag.Settings, error) {
	f, err := os.Open(l.path)
	if err != nil {
		return stag.Settings{}, fmt.Errorf("file: open %s: %w", l.path, err)
	}
	defer f.Close()

	return l.LoadReader(f)
}

// LoadReader decodes a settings document read from r.
func (l *Loader) LoadReader(r io.Reader) (stag.Settings, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return stag.Settings{}, fmt.Errorf("file: read: %w", err)
	}

	c := l.codec()
	if c == nil {
		return stag.Settings{}, fmt.Errorf("file: cannot detect format of %q; use WithFormat option", l.path)
	}

	var raw map[string]any
	if err := c.Decode(data, &raw); err != nil {
		return stag.Settings{}, fmt.Errorf("file: parse %s: %w", c.Name(), err)
	}

	s := stag.DefaultSettings()
	if err := l.decode(raw, &s); err != nil {
		return stag.Settings{}, fmt.Errorf("file: decode %s: %w", l.path, err)
	}
	if _, err := s.Log.Logger(io.Discard); err != nil {
		return stag.Settings{}, fmt.Errorf("file: %s: %w", l.path, err)
	}
	return s, nil
}

func (l *Loader) codec() codec.Codec {
	if l.opts.format != "" {
		return codec.ForExtension(l.opts.format)
	}
	return codec.ForPath(l.path)
}

func (l *Loader) decode(input map[string]any, s *stag.Settings) error {
	hooks := []mapstructure.DecodeHookFunc{
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToTimeHookFunc(time.RFC3339),
		mapstructure.TextUnmarshallerHookFunc(),
	}
	if l.opts.expandEnv {
		hooks = append([]mapstructure.DecodeHookFunc{mapstructure.DecodeHookFuncType(expandEnvHook)}, hooks...)
	}
	hooks = append(hooks, l.opts.decoderFns...)

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           s,
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.ComposeDecodeHookFunc(hooks...),
		ErrorUnused:      l.opts.strict,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(input)
}

// expandEnvHook replaces ${VAR} and $VAR references in string values.
func expandEnvHook(from, _ reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String {
		return data, nil
	}
	s, ok := data.(string)
	if !ok {
		return data, nil
	}
	return os.ExpandEnv(s), nil
}
