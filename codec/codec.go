// Package codec encodes manifest and settings files.
package codec

import (
	"maps"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Codec encodes and decodes one file format.
type Codec interface {
	// Name returns the codec identifier (e.g., "json", "yaml").
	Name() string

	// Extensions returns the file extensions of the format, with the dot.
	Extensions() []string

	// Encode serializes a value to bytes.
	Encode(v any) ([]byte, error)

	// Decode deserializes bytes into the target.
	Decode(data []byte, v any) error
}

// Built-in formats and the file extensions each claims.
var (
	jsonFormat = New("json", []string{".json"}, encodeJSON, decodeJSON)
	yamlFormat = New("yaml", []string{".yaml", ".yml"}, yaml.Marshal, yaml.Unmarshal)
	tomlFormat = New("toml", []string{".toml"}, encodeTOML, decodeTOML)
)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Codec)
)

func init() {
	for _, c := range []Codec{jsonFormat, yamlFormat, tomlFormat} {
		Register(c)
	}
}

// New returns a Codec named name that claims exts and delegates to the
// given functions. Extensions are lower-cased and given a leading dot.
func New(name string, exts []string, encode func(any) ([]byte, error), decode func([]byte, any) error) Codec {
	f := &format{name: name, encode: encode, decode: decode}
	for _, ext := range exts {
		f.exts = append(f.exts, normalizeExt(ext))
	}
	return f
}

type format struct {
	name   string
	exts   []string
	encode func(any) ([]byte, error)
	decode func([]byte, any) error
}

func (f *format) Name() string                    { return f.name }
func (f *format) Extensions() []string            { return slices.Clone(f.exts) }
func (f *format) Encode(v any) ([]byte, error)    { return f.encode(v) }
func (f *format) Decode(data []byte, v any) error { return f.decode(data, v) }

// JSON returns the built-in JSON codec.
func JSON() Codec { return jsonFormat }

// YAML returns the built-in YAML codec.
func YAML() Codec { return yamlFormat }

// TOML returns the built-in TOML codec.
func TOML() Codec { return tomlFormat }

// Register adds a codec to the global registry.
// Panics if name is empty or codec is nil.
func Register(codec Codec) {
	if codec == nil {
		panic("codec: Register codec is nil")
	}
	name := codec.Name()
	if name == "" {
		panic("codec: Register codec name is empty")
	}

	registryMu.Lock()
	defer registryMu.Unlock()

	registry[name] = codec
}

// Get retrieves a codec by name from the registry.
// Returns nil if not found.
func Get(name string) Codec {
	registryMu.RLock()
	defer registryMu.RUnlock()

	return registry[name]
}

// ForExtension returns the codec handling the file extension ext
// (".yml", "json"). When several codecs claim it the first by name wins.
// Returns nil if no codec claims it.
func ForExtension(ext string) Codec {
	ext = normalizeExt(ext)
	if ext == "" {
		return nil
	}

	registryMu.RLock()
	defer registryMu.RUnlock()

	for _, name := range slices.Sorted(maps.Keys(registry)) {
		if c := registry[name]; slices.Contains(c.Extensions(), ext) {
			return c
		}
	}
	return nil
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(ext)
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// ForPath returns the codec handling the extension of path.
func ForPath(path string) Codec {
	return ForExtension(filepath.Ext(path))
}

// Names returns the sorted names of all registered codecs.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	return slices.Sorted(maps.Keys(registry))
}

// Default returns the default codec (JSON).
func Default() Codec {
	return Get("json")
}
