// Package file loads stag settings files and stores manifests as files in
// a directory.
//
// It provides two main types:
//   - Loader: decode a stag.yaml, stag.toml or stag.json settings file
//   - Store: a stag.ManifestStore keeping one json, yaml or toml file per factory
package file

import (
	"log/slog"

	"github.com/go-viper/mapstructure/v2"
)

// LoaderOption configures a Loader.
type LoaderOption func(*loaderOptions)

type loaderOptions struct {
	format     string // explicit format override (yaml, toml, json)
	strict     bool   // fail on unknown sections and keys
	expandEnv  bool
	decoderFns []mapstructure.DecodeHookFunc
}

// WithFormat explicitly sets the file format.
// Overrides detection from the file extension.
// Supported: "yaml", "yml", "toml", "json".
func WithFormat(format string) LoaderOption {
	return func(o *loaderOptions) {
		o.format = format
	}
}

// WithStrictMode makes unknown sections and keys an error.
func WithStrictMode() LoaderOption {
	return func(o *loaderOptions) {
		o.strict = true
	}
}

// WithExpandEnv expands $VAR and ${VAR} in string values, so that a DSN
// can carry credentials from the environment.
func WithExpandEnv() LoaderOption {
	return func(o *loaderOptions) {
		o.expandEnv = true
	}
}

// WithDecodeHook adds a custom decode hook function for mapstructure.
func WithDecodeHook(fn mapstructure.DecodeHookFunc) LoaderOption {
	return func(o *loaderOptions) {
		o.decoderFns = append(o.decoderFns, fn)
	}
}

// StoreOption configures a file-backed Store.
type StoreOption func(*storeOptions)

type storeOptions struct {
	format string // codec name used for new files (default: json)
	logger *slog.Logger
}

// WithStoreFormat sets the codec used to write manifest files.
// Files in other formats already present in the directory are still read.
func WithStoreFormat(name string) StoreOption {
	return func(o *storeOptions) {
		if name != "" {
			o.format = name
		}
	}
}

// WithLogger sets the logger used to report unreadable manifest files.
func WithLogger(logger *slog.Logger) StoreOption {
	return func(o *storeOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}
