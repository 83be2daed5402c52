package stag

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"
)

// Settings is the generator configuration read from a stag.yaml, stag.toml
// or stag.json file. Each field is a top-level section of the file.
type Settings struct {
	Generate  GenerateSettings  `mapstructure:"generate"`
	Manifest  ManifestSettings  `mapstructure:"manifest"`
	Log       LogSettings       `mapstructure:"log"`
	Telemetry TelemetrySettings `mapstructure:"telemetry"`
}

// GenerateSettings configures the generated files.
type GenerateSettings struct {
	// Output is the directory files are written to. Empty means the
	// directory of each generated package.
	Output string `mapstructure:"output"`

	// Package overrides the package clause of the generated files.
	Package string `mapstructure:"package"`

	// ParseFile and AdapterFile override the generated file names.
	ParseFile   string `mapstructure:"parse_file"`
	AdapterFile string `mapstructure:"adapter_file"`
}

// ManifestSettings selects the manifest store.
type ManifestSettings struct {
	// Backend is one of none, memory, file, sqlite, postgres or mongodb.
	Backend string `mapstructure:"backend"`

	// DSN is the data source name of sqlite and postgres, or the URI of mongodb.
	DSN string `mapstructure:"dsn"`

	// Dir and Format configure the file backend.
	Dir    string `mapstructure:"dir"`
	Format string `mapstructure:"format"`

	// Table names the sqlite and postgres table.
	Table string `mapstructure:"table"`

	// Database and Collection configure the mongodb backend.
	Database   string `mapstructure:"database"`
	Collection string `mapstructure:"collection"`

	// CacheSize bounds memoised lookups. LookupTTL expires them.
	CacheSize int           `mapstructure:"cache_size"`
	LookupTTL time.Duration `mapstructure:"lookup_ttl"`

	// Fallback is consulted when the primary store has no answer.
	Fallback *ManifestSettings `mapstructure:"fallback"`
}

// LogSettings configures the logger.
type LogSettings struct {
	// Level is debug, info, warn or error.
	Level string `mapstructure:"level"`

	// Format is text or json.
	Format string `mapstructure:"format"`
}

// TelemetrySettings enables OpenTelemetry instrumentation.
type TelemetrySettings struct {
	Traces      bool   `mapstructure:"traces"`
	Metrics     bool   `mapstructure:"metrics"`
	ServiceName string `mapstructure:"service_name"`
}

// DefaultSettings returns the settings used when no file is given.
func DefaultSettings() Settings {
	return Settings{
		Manifest: ManifestSettings{
			Backend:   "none",
			Format:    "json",
			CacheSize: defaultLookupCacheSize,
		},
		Log: LogSettings{
			Level:  "info",
			Format: "text",
		},
	}
}

// Options returns the generator options selected by s.
func (s GenerateSettings) Options() []Option {
	var opts []Option
	if s.Output != "" {
		opts = append(opts, WithOutputDir(s.Output))
	}
	if s.Package != "" {
		opts = append(opts, WithPackageName(s.Package))
	}
	if s.ParseFile != "" || s.AdapterFile != "" {
		opts = append(opts, WithFileNames(s.ParseFile, s.AdapterFile))
	}
	return opts
}

// ParseLevel converts a level name to a slog.Level.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("stag: unknown log level %q", name)
	}
}

// Logger builds a slog.Logger writing to w.
func (s LogSettings) Logger(w io.Writer) (*slog.Logger, error) {
	level, err := ParseLevel(s.Level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	switch strings.ToLower(s.Format) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("stag: unknown log format %q", s.Format)
	}
}
