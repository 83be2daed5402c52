package stag

import (
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Default names of the generated files.
const (
	DefaultParseFile   = "stag_parse.go"
	DefaultAdapterFile = "stag_adapters.go"
)

// generatorOptions holds configuration for the Generator (unexported).
type generatorOptions struct {
	outputDir   string
	parseFile   string
	adapterFile string
	pkgName     string
	manifests   ManifestStore
	known       []ExternalAdapterInfo
	reserved    []string
	lookups     *LookupCache
	logger      *slog.Logger
	tracer      trace.Tracer
	meter       metric.Meter
	now         func() time.Time
}

// Option configures the Generator.
type Option func(*generatorOptions)

// newGeneratorOptions creates options with defaults.
func newGeneratorOptions() *generatorOptions {
	return &generatorOptions{
		outputDir:   ".",
		parseFile:   DefaultParseFile,
		adapterFile: DefaultAdapterFile,
		logger:      slog.Default(),
		now:         time.Now,
	}
}

// WithOutputDir sets the directory generated files are written to.
// It is normally the directory of the package being generated.
// Default: the working directory.
func WithOutputDir(dir string) Option {
	return func(o *generatorOptions) {
		if dir != "" {
			o.outputDir = dir
		}
	}
}

// WithFileNames overrides the names of the two generated files.
func WithFileNames(parseFile, adapterFile string) Option {
	return func(o *generatorOptions) {
		if parseFile != "" {
			o.parseFile = parseFile
		}
		if adapterFile != "" {
			o.adapterFile = adapterFile
		}
	}
}

// WithPackageName sets the package clause of the generated files.
// Default: the last element of the package import path.
func WithPackageName(name string) Option {
	return func(o *generatorOptions) {
		o.pkgName = name
	}
}

// WithManifestStore sets the store used to resolve external types and to
// publish the manifest of the run. Without a store every type outside the
// run is dispatched by identity and nothing is published.
func WithManifestStore(store ManifestStore) Option {
	return func(o *generatorOptions) {
		if store != nil {
			o.manifests = store
		}
	}
}

// WithExternalAdapters declares types whose codecs were generated in other
// packages, for example found by discovery through the generated Adapters
// function of the declaring package. They take precedence over the
// manifest store.
func WithExternalAdapters(infos ...ExternalAdapterInfo) Option {
	return func(o *generatorOptions) {
		o.known = append(o.known, infos...)
	}
}

// WithReservedNames lists the package-scope identifiers already declared by
// hand-written files of the target package. A run whose generated
// identifiers would redeclare one of them fails with ErrInvalidType.
func WithReservedNames(names ...string) Option {
	return func(o *generatorOptions) {
		o.reserved = append(o.reserved, names...)
	}
}

// WithSharedLookupCache shares manifest lookups with other generators.
func WithSharedLookupCache(c *LookupCache) Option {
	return func(o *generatorOptions) {
		if c != nil {
			o.lookups = c
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *generatorOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithTracer records a span per run and per phase.
func WithTracer(t trace.Tracer) Option {
	return func(o *generatorOptions) {
		o.tracer = t
	}
}

// WithMeter records run metrics.
func WithMeter(m metric.Meter) Option {
	return func(o *generatorOptions) {
		o.meter = m
	}
}

// WithClock sets the clock used for manifest timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *generatorOptions) {
		if now != nil {
			o.now = now
		}
	}
}
