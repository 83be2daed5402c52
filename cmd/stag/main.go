// Command stag generates reflection-free JSON codecs for the struct types
// of Go packages that carry stag field tags.
//
// Usage:
//
//	stag [flags] [packages]
//
// Each package gets a stag_parse.go with Write<T> and Parse<T> functions and
// a stag_adapters.go registering a TypeAdapter per type. Fields whose type
// was generated in another package are routed through that package's
// adapters when its manifest is found in the configured manifest store.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"go.opentelemetry.io/otel"

	"github.com/rbaliyan/stag"
	"github.com/rbaliyan/stag/discover"
	"github.com/rbaliyan/stag/file"
)

const instrumentationName = "github.com/rbaliyan/stag"

// Exit codes.
const (
	exitOK       = 0
	exitFailed   = 1
	exitUsage    = 2
	exitCanceled = 130
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stderr)
	stop()
	os.Exit(code)
}

// flags holds the command line. Empty values leave the settings file alone.
type flags struct {
	config   string
	chdir    string
	out      string
	pkg      string
	manifest string
	dsn      string
	dir      string
	tags     string
	verbose  bool
}

func parseFlags(args []string, stderr io.Writer) (*flags, []string, error) {
	var f flags
	fs := flag.NewFlagSet("stag", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&f.config, "config", "", "settings file (json, yaml or toml)")
	fs.StringVar(&f.chdir, "C", "", "directory packages are resolved in")
	fs.StringVar(&f.out, "out", "", "output directory, relative to each package directory")
	fs.StringVar(&f.pkg, "pkg", "", "package clause of the generated files")
	fs.StringVar(&f.manifest, "manifest", "", "manifest backend: none, memory, file, sqlite, postgres or mongodb")
	fs.StringVar(&f.dsn, "dsn", "", "manifest backend connection string")
	fs.StringVar(&f.dir, "dir", "", "manifest directory for the file backend")
	fs.StringVar(&f.tags, "tags", "", "comma separated build tags used when loading packages")
	fs.BoolVar(&f.verbose, "v", false, "log debug output")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: stag [flags] [packages]")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	return &f, fs.Args(), nil
}

// settings loads the settings file, if any, and applies the flags on top.
func (f *flags) settings() (stag.Settings, error) {
	s := stag.DefaultSettings()
	if f.config != "" {
		var err error
		if s, err = file.LoadSettings(f.config, file.WithExpandEnv()); err != nil {
			return stag.Settings{}, err
		}
	}

	if f.out != "" {
		s.Generate.Output = f.out
	}
	if f.pkg != "" {
		s.Generate.Package = f.pkg
	}
	if f.manifest != "" {
		s.Manifest.Backend = f.manifest
	}
	if f.dsn != "" {
		s.Manifest.DSN = f.dsn
	}
	if f.dir != "" {
		s.Manifest.Dir = f.dir
	}
	if f.verbose {
		s.Log.Level = "debug"
	}
	return s, nil
}

func run(ctx context.Context, args []string, stderr io.Writer) int {
	f, patterns, err := parseFlags(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return exitOK
	}
	if err != nil {
		return exitUsage
	}

	settings, err := f.settings()
	if err != nil {
		fmt.Fprintf(stderr, "stag: %v\n", err)
		return exitUsage
	}
	logger, err := settings.Log.Logger(stderr)
	if err != nil {
		fmt.Fprintf(stderr, "stag: %v\n", err)
		return exitUsage
	}

	var buildFlags []string
	if f.tags != "" {
		buildFlags = append(buildFlags, "-tags="+f.tags)
	}

	err = generate(ctx, settings, discover.Config{Dir: f.chdir, BuildFlags: buildFlags, Logger: logger}, patterns, logger)
	switch {
	case err == nil:
		return exitOK
	case ctx.Err() != nil:
		logger.Error("interrupted", "error", err)
		return exitCanceled
	default:
		logger.Error("generation failed", "error", err)
		return exitFailed
	}
}

// generate loads the packages matching patterns and runs one Generator
// per package. A field type resolves to the adapters of its package when
// that package was generated before, either in an earlier invocation
// (found by discovery), earlier in this one, or according to the manifest
// store.
func generate(ctx context.Context, s stag.Settings, cfg discover.Config, patterns []string, logger *slog.Logger) error {
	cache := stag.NewLookupCache(s.Manifest.CacheSize, stag.WithLookupTTL(s.Manifest.LookupTTL))

	store, closeStore, err := openStore(ctx, s.Manifest, s.Telemetry, cache, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	pkgs, err := discover.Load(ctx, cfg, patterns...)
	if err != nil {
		return err
	}

	base := s.Generate.Options()
	base = append(base,
		stag.WithManifestStore(store),
		stag.WithSharedLookupCache(cache),
		stag.WithLogger(logger),
	)
	if s.Telemetry.Traces {
		base = append(base, stag.WithTracer(otel.Tracer(instrumentationName)))
	}
	if s.Telemetry.Metrics {
		base = append(base, stag.WithMeter(otel.Meter(instrumentationName)))
	}

	var (
		failed    []string
		generated []stag.ExternalAdapterInfo
	)
	for _, pkg := range pkgs {
		if len(pkg.Declarations) == 0 {
			logger.Debug("no tagged types", "package", pkg.PkgPath)
			continue
		}

		opts := append(base[:len(base):len(base)],
			stag.WithOutputDir(outputDir(pkg.Dir, s.Generate.Output)),
			stag.WithExternalAdapters(pkg.External...),
			stag.WithExternalAdapters(generated...),
			stag.WithReservedNames(pkg.Names...),
		)
		if s.Generate.Package == "" {
			opts = append(opts, stag.WithPackageName(pkg.Name))
		}
		gen, err := stag.New(opts...)
		if err != nil {
			return err
		}

		res, err := gen.Run(ctx, pkg.Declarations)
		if err != nil {
			if ctx.Err() != nil {
				return err
			}
			logger.Error("package failed", "package", pkg.PkgPath, "error", err)
			failed = append(failed, pkg.PkgPath)
			continue
		}
		for _, ext := range res.External {
			logger.Debug("external adapter", "package", pkg.PkgPath, "type", ext.ID, "factory", ext.Factory)
		}
		for _, id := range res.Registry.AllSupportedTypes() {
			generated = append(generated, stag.ExternalAdapterInfo{ID: id, Factory: res.Package})
		}
	}

	if len(failed) > 0 {
		return fmt.Errorf("%d package(s) failed: %s", len(failed), strings.Join(failed, ", "))
	}
	return nil
}

// outputDir resolves the configured output directory against the package
// directory. Absolute directories are used as is.
func outputDir(pkgDir, out string) string {
	switch {
	case out == "":
		return pkgDir
	case filepath.IsAbs(out):
		return out
	default:
		return filepath.Join(pkgDir, out)
	}
}
