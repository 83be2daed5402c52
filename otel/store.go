// Package otel provides OpenTelemetry instrumentation for manifest stores.
package otel

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/rbaliyan/stag"
)

// InstrumentedStore wraps a ManifestStore with OpenTelemetry tracing and metrics.
type InstrumentedStore struct {
	store   stag.ManifestStore
	tracer  trace.Tracer
	metrics *Metrics
	opts    options
}

// Compile-time interface checks
var (
	_ stag.ManifestStore = (*InstrumentedStore)(nil)
	_ stag.HealthChecker = (*InstrumentedStore)(nil)
)

// WrapStore wraps a ManifestStore with OpenTelemetry instrumentation.
// By default, both tracing and metrics are disabled. Use WithTracesEnabled(true)
// and/or WithMetricsEnabled(true) to enable them.
func WrapStore(store stag.ManifestStore, opts ...Option) (*InstrumentedStore, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	is := &InstrumentedStore{
		store: store,
		opts:  o,
	}

	// Only initialize tracer if tracing is enabled
	if o.enableTraces {
		if o.tracer != nil {
			is.tracer = o.tracer
		} else {
			is.tracer = otel.Tracer(o.tracerName)
		}
	}

	// Only initialize meter and metrics if metrics are enabled
	if o.enableMetrics {
		meter := o.meter
		if meter == nil {
			meter = otel.Meter(o.meterName)
		}

		metrics, err := initMetrics(meter)
		if err != nil {
			return nil, err
		}
		is.metrics = metrics
	}

	return is, nil
}

// Unwrap returns the underlying store.
func (s *InstrumentedStore) Unwrap() stag.ManifestStore {
	return s.store
}

// Connect establishes connection to the storage backend.
func (s *InstrumentedStore) Connect(ctx context.Context) error {
	ctx, span := s.start(ctx, "stag.store.Connect")
	start := time.Now()
	err := s.store.Connect(ctx)
	s.recordOperation(ctx, "connect", start, err)
	s.end(span, err)
	return err
}

// Close releases resources.
func (s *InstrumentedStore) Close(ctx context.Context) error {
	ctx, span := s.start(ctx, "stag.store.Close")
	start := time.Now()
	err := s.store.Close(ctx)
	s.recordOperation(ctx, "close", start, err)
	s.end(span, err)
	return err
}

// Publish stores a manifest.
func (s *InstrumentedStore) Publish(ctx context.Context, m stag.Manifest) error {
	ctx, span := s.start(ctx, "stag.store.Publish",
		attribute.String("stag.factory", m.Factory),
		attribute.Int("stag.type_count", len(m.Types)),
	)
	start := time.Now()
	err := s.store.Publish(ctx, m)
	s.recordOperation(ctx, "publish", start, err)
	if s.opts.enableMetrics && err == nil {
		s.metrics.PublishedTypes.Add(ctx, int64(len(m.Types)), metric.WithAttributes(s.metricAttributes("publish")...))
	}
	s.end(span, err)
	return err
}

// Lookup resolves the factory of a type. A miss is recorded as a
// not_found error but does not mark the span as failed.
func (s *InstrumentedStore) Lookup(ctx context.Context, id stag.TypeID) (string, error) {
	ctx, span := s.start(ctx, "stag.store.Lookup", attribute.String("stag.type", id.String()))
	start := time.Now()
	factory, err := s.store.Lookup(ctx, id)
	s.recordOperation(ctx, "lookup", start, err)
	if s.opts.enableMetrics && (err == nil || stag.IsNotFound(err)) {
		s.metrics.lookup(ctx, s.metricAttributes("lookup"), err == nil)
	}

	spanErr := err
	if span != nil {
		switch {
		case err == nil:
			span.SetAttributes(attribute.String("stag.factory", factory))
		case stag.IsNotFound(err):
			span.SetAttributes(attribute.Bool("stag.miss", true))
			spanErr = nil
		}
	}
	s.end(span, spanErr)
	return factory, err
}

// List returns all manifests.
func (s *InstrumentedStore) List(ctx context.Context) ([]stag.Manifest, error) {
	ctx, span := s.start(ctx, "stag.store.List")
	start := time.Now()
	manifests, err := s.store.List(ctx)
	s.recordOperation(ctx, "list", start, err)
	if span != nil && err == nil {
		span.SetAttributes(attribute.Int("stag.manifest_count", len(manifests)))
	}
	s.end(span, err)
	return manifests, err
}

// Health performs a health check if the underlying store supports it.
// Stores without HealthChecker are assumed healthy.
func (s *InstrumentedStore) Health(ctx context.Context) error {
	hc, ok := s.store.(stag.HealthChecker)
	if !ok {
		return nil
	}

	ctx, span := s.start(ctx, "stag.store.Health")
	start := time.Now()
	err := hc.Health(ctx)
	s.recordOperation(ctx, "health", start, err)
	s.end(span, err)
	return err
}

// start opens a span when tracing is enabled; it returns a nil span otherwise.
func (s *InstrumentedStore) start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if !s.opts.enableTraces {
		return ctx, nil
	}
	return s.tracer.Start(ctx, name, trace.WithAttributes(append(s.commonAttributes(), attrs...)...))
}

func (s *InstrumentedStore) end(span trace.Span, err error) {
	if span == nil {
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// commonAttributes returns common span attributes
func (s *InstrumentedStore) commonAttributes() []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("stag.backend", s.opts.backendName),
	}
	if s.opts.serviceName != "" {
		attrs = append(attrs, attribute.String("service.name", s.opts.serviceName))
	}
	return attrs
}

// recordOperation records metrics for an operation
func (s *InstrumentedStore) recordOperation(ctx context.Context, op string, start time.Time, err error) {
	if !s.opts.enableMetrics {
		return
	}

	latency := time.Since(start).Seconds()
	attrs := s.metricAttributes(op)

	s.metrics.OperationCount.Add(ctx, 1, metric.WithAttributes(attrs...))
	s.metrics.OperationLatency.Record(ctx, latency, metric.WithAttributes(attrs...))

	if err != nil {
		errorAttrs := append(attrs, attribute.String("error_type", errorType(err)))
		s.metrics.ErrorCount.Add(ctx, 1, metric.WithAttributes(errorAttrs...))
	}
}

func (s *InstrumentedStore) metricAttributes(op string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("operation", op),
		attribute.String("backend", s.opts.backendName),
	}
}

// errorType returns a string classification of the error
func errorType(err error) string {
	switch {
	case stag.IsNotFound(err):
		return "not_found"
	case errors.Is(err, stag.ErrInvalidManifest):
		return "invalid_manifest"
	case errors.Is(err, stag.ErrStoreClosed):
		return "closed"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	}
	return "internal"
}
