package stag

import (
	"context"
	"errors"
	"fmt"
	"go/token"
	"log/slog"
	"path"
	"path/filepath"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/rbaliyan/stag/emit"
)

// Generator runs one generation pass over the tagged types of a package.
//
// A Generator is single use: the first call to Run processes its input and
// every later call is a no-op that returns a skipped Result. Create one
// Generator per package.
//
// Example:
//
//	pkgs, err := discover.Load(ctx, discover.Config{}, "./geo")
//	if err != nil {
//	    return err
//	}
//	gen, err := stag.New(stag.WithOutputDir(pkgs[0].Dir))
//	if err != nil {
//	    return err
//	}
//	res, err := gen.Run(ctx, pkgs[0].Declarations)
type Generator struct {
	processed atomic.Bool
	opts      *generatorOptions
	logger    *slog.Logger
	lookups   *LookupCache
	tracer    trace.Tracer
	metrics   *runMetrics
}

// Result describes a finished run.
type Result struct {
	// Package is the import path of the generated package.
	Package string

	// Files are the paths of the written files.
	Files []string

	// Types is the number of types a codec was generated for.
	Types int

	// Fields counts coded fields by value kind.
	Fields map[ValueKind]int

	// External lists the types resolved to previously generated factories.
	External []ExternalAdapterInfo

	// Registry is the finished type table of the run.
	Registry *Registry

	// Published reports whether the manifest of the run was stored.
	Published bool

	// Skipped is true when the Generator had already processed its input.
	Skipped bool
}

// New creates a Generator.
func New(opts ...Option) (*Generator, error) {
	o := newGeneratorOptions()
	for _, opt := range opts {
		opt(o)
	}

	g := &Generator{
		opts:    o,
		logger:  o.logger.With("component", "stag"),
		lookups: o.lookups,
		tracer:  o.tracer,
	}
	if g.lookups == nil {
		g.lookups = NewLookupCache(defaultLookupCacheSize)
	}
	if g.tracer == nil {
		g.tracer = tracenoop.NewTracerProvider().Tracer("")
	}

	meter := o.meter
	if meter == nil {
		meter = metricnoop.NewMeterProvider().Meter("")
	}
	metrics, err := initRunMetrics(meter)
	if err != nil {
		return nil, err
	}
	g.metrics = metrics

	return g, nil
}

// Run generates the parse and adapter files for decls, which must all be
// declared in the same package.
//
// The pass either completes or fails as a whole. A field that breaks the
// declaration rules aborts it with a *FieldError before anything is
// written. If a generated file cannot be written, files already written by
// the pass are removed and an *OutputError is returned. A failure to
// publish the manifest is logged and reported through Result.Published.
func (g *Generator) Run(ctx context.Context, decls []Declaration) (*Result, error) {
	if !g.processed.CompareAndSwap(false, true) {
		g.logger.Debug("generator already processed its input, skipping")
		return &Result{Skipped: true}, nil
	}

	ctx, span := g.tracer.Start(ctx, "stag.Run")
	defer span.End()

	start := time.Now()
	res, err := g.run(ctx, decls)
	g.record(ctx, res, start, err)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(
		attribute.String("stag.package", res.Package),
		attribute.Int("stag.types", res.Types),
	)
	span.SetStatus(codes.Ok, "")
	return res, nil
}

func (g *Generator) run(ctx context.Context, decls []Declaration) (*Result, error) {
	if len(decls) == 0 {
		g.logger.Info("no tagged types found, nothing to generate")
		return &Result{Fields: map[ValueKind]int{}, Registry: NewRegistry()}, nil
	}

	pkgPath := decls[0].ID.PkgPath()
	if err := g.phase(ctx, "validate", func(context.Context) error {
		if err := validateAll(pkgPath, decls); err != nil {
			return err
		}
		return checkNames(decls, g.opts.reserved)
	}); err != nil {
		return nil, err
	}

	reg := NewRegistry(
		WithManifests(g.opts.manifests),
		WithKnownAdapters(g.opts.known...),
		WithLookupCache(g.lookups),
		WithRegistryLogger(g.logger),
	)
	if err := g.phase(ctx, "classify", func(ctx context.Context) error {
		return g.buildModel(ctx, reg, decls)
	}); err != nil {
		return nil, err
	}

	pkgName := g.opts.pkgName
	if pkgName == "" {
		pkgName = path.Base(pkgPath)
	}
	if !token.IsIdentifier(pkgName) {
		return nil, fmt.Errorf("stag: package name %q of %s is not an identifier", pkgName, pkgPath)
	}

	var parseSrc, adapterSrc []byte
	if err := g.phase(ctx, "generate", func(context.Context) error {
		var err error
		if parseSrc, err = emit.Render(GenerateParseFile(reg, pkgPath, pkgName)); err != nil {
			return err
		}
		adapterSrc, err = emit.RenderAdapters(GenerateAdapters(reg, pkgPath, pkgName))
		return err
	}); err != nil {
		return nil, err
	}

	res := &Result{
		Package:  pkgPath,
		Types:    reg.Len(),
		Fields:   countFields(reg),
		External: reg.ExternalAdapters(),
		Registry: reg,
	}

	if err := g.phase(ctx, "write", func(ctx context.Context) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		files, err := g.writeOutput(map[string][]byte{
			g.opts.parseFile:   parseSrc,
			g.opts.adapterFile: adapterSrc,
		}, g.opts.parseFile, g.opts.adapterFile)
		res.Files = files
		return err
	}); err != nil {
		return nil, err
	}

	if g.opts.manifests != nil {
		res.Published = g.publish(ctx, reg, pkgPath)
	}

	g.logger.Info("generated codecs",
		"package", pkgPath,
		"types", res.Types,
		"external", len(res.External),
		"published", res.Published,
	)
	return res, nil
}

// validateAll checks the declarations of one package.
func validateAll(pkgPath string, decls []Declaration) error {
	for _, d := range decls {
		if p := d.ID.PkgPath(); p != pkgPath {
			return fmt.Errorf("%w: %s and %s", ErrMixedPackages, pkgPath, p)
		}
		if err := ValidateDeclaration(d); err != nil {
			return err
		}
	}
	return nil
}

// buildModel registers every type before adding fields, so that fields
// referring to types declared later classify as local.
func (g *Generator) buildModel(ctx context.Context, reg *Registry, decls []Declaration) error {
	used := make([]Declaration, 0, len(decls))
	for _, d := range decls {
		if _, created := reg.GetOrCreate(d.ID); !created {
			g.logger.Debug("duplicate declaration ignored", "type", d.ID)
			continue
		}
		used = append(used, d)
	}

	for _, d := range used {
		cls, _ := reg.Lookup(d.ID)
		for _, f := range d.Fields {
			cls.Fields = append(cls.Fields, FieldDescriptor{
				Name: f.Name,
				Key:  f.Key(),
				Type: f.Type,
			})
		}
	}
	reg.classifyAll()

	for _, id := range reg.externalTypes() {
		if _, err := reg.RegisterExternalAdapter(ctx, id); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			g.logger.Warn("manifest lookup failed, type stays unresolved",
				"type", id, "error", err)
		}
	}
	return nil
}

// writeOutput writes the named files in order. When a write fails the
// files written so far are removed.
func (g *Generator) writeOutput(files map[string][]byte, order ...string) ([]string, error) {
	var written []string
	for _, name := range order {
		p := filepath.Join(g.opts.outputDir, name)
		if err := emit.WriteFile(p, files[name]); err != nil {
			for _, w := range written {
				if rmErr := removePartial(w); rmErr != nil {
					g.logger.Error("failed to remove generated file", "path", w, "error", rmErr)
				}
			}
			g.logger.Error("failed to write generated file", "path", p, "error", err)
			return nil, &OutputError{Path: p, Err: err}
		}
		written = append(written, p)
	}
	return written, nil
}

func (g *Generator) publish(ctx context.Context, reg *Registry, pkgPath string) bool {
	m := Manifest{
		Factory:     pkgPath,
		Types:       reg.AllSupportedTypes(),
		GeneratedAt: g.opts.now().UTC(),
	}
	if err := g.phase(ctx, "publish", func(ctx context.Context) error {
		return g.opts.manifests.Publish(ctx, m)
	}); err != nil {
		g.logger.Warn("failed to publish manifest", "factory", pkgPath, "error", err)
		return false
	}
	// Later runs sharing the cache must see the new manifest.
	for _, id := range m.Types {
		g.lookups.Forget(id)
	}
	return true
}

// phase runs fn inside a child span.
func (g *Generator) phase(ctx context.Context, name string, fn func(context.Context) error) error {
	ctx, span := g.tracer.Start(ctx, "stag."+name)
	defer span.End()

	err := fn(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (g *Generator) record(ctx context.Context, res *Result, start time.Time, err error) {
	g.metrics.Runs.Add(ctx, 1)
	g.metrics.Duration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		g.metrics.Failures.Add(ctx, 1, metric.WithAttributes(attribute.String("error_type", errorType(err))))
		return
	}
	g.metrics.Types.Add(ctx, int64(res.Types))
	for kind, n := range res.Fields {
		g.metrics.Fields.Add(ctx, int64(n), metric.WithAttributes(attribute.String("kind", kind.String())))
	}
}

func countFields(reg *Registry) map[ValueKind]int {
	counts := make(map[ValueKind]int)
	for _, cls := range reg.Classes() {
		for _, f := range cls.Fields {
			counts[f.Kind]++
		}
	}
	return counts
}

// errorType returns a string classification of the error.
func errorType(err error) string {
	switch {
	case IsInvalidField(err):
		return "invalid_field"
	case errors.Is(err, ErrInvalidType):
		return "invalid_type"
	case errors.Is(err, ErrMixedPackages):
		return "mixed_packages"
	case IsOutput(err):
		return "output"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "internal"
	}
}
