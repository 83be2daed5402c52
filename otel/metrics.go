package otel

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the OTEL instruments of an InstrumentedStore.
type Metrics struct {
	OperationCount   metric.Int64Counter
	ErrorCount       metric.Int64Counter
	OperationLatency metric.Float64Histogram

	// LookupCount splits lookups by result (hit or miss).
	LookupCount metric.Int64Counter

	// PublishedTypes counts the types carried by published manifests.
	PublishedTypes metric.Int64Counter
}

func initMetrics(meter metric.Meter) (*Metrics, error) {
	var (
		m    Metrics
		errs []error
		err  error
	)

	m.OperationCount, err = meter.Int64Counter("stag.store.operations.total",
		metric.WithDescription("Manifest store operations"), metric.WithUnit("1"))
	errs = append(errs, err)

	m.ErrorCount, err = meter.Int64Counter("stag.store.errors.total",
		metric.WithDescription("Failed manifest store operations"), metric.WithUnit("1"))
	errs = append(errs, err)

	m.OperationLatency, err = meter.Float64Histogram("stag.store.operation.duration",
		metric.WithDescription("Duration of manifest store operations in seconds"), metric.WithUnit("s"))
	errs = append(errs, err)

	m.LookupCount, err = meter.Int64Counter("stag.store.lookups.total",
		metric.WithDescription("Type lookups by result"), metric.WithUnit("1"))
	errs = append(errs, err)

	m.PublishedTypes, err = meter.Int64Counter("stag.store.published.types",
		metric.WithDescription("Types carried by published manifests"), metric.WithUnit("1"))
	errs = append(errs, err)

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *Metrics) lookup(ctx context.Context, attrs []attribute.KeyValue, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.LookupCount.Add(ctx, 1, metric.WithAttributes(append(attrs, attribute.String("result", result))...))
}
