package stag

import (
	"go.opentelemetry.io/otel/metric"
)

// runMetrics holds the OTEL instruments of a Generator.
type runMetrics struct {
	// Counters
	Runs     metric.Int64Counter
	Types    metric.Int64Counter
	Fields   metric.Int64Counter
	Failures metric.Int64Counter

	// Histograms
	Duration metric.Float64Histogram
}

// initRunMetrics initializes all instruments.
func initRunMetrics(meter metric.Meter) (*runMetrics, error) {
	m := &runMetrics{}
	var err error

	m.Runs, err = meter.Int64Counter(
		"stag.runs.total",
		metric.WithDescription("Total number of generation runs"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	m.Types, err = meter.Int64Counter(
		"stag.types.total",
		metric.WithDescription("Total number of types a codec was generated for"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	m.Fields, err = meter.Int64Counter(
		"stag.fields.total",
		metric.WithDescription("Total number of coded fields by value kind"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	m.Failures, err = meter.Int64Counter(
		"stag.errors.total",
		metric.WithDescription("Total number of failed generation runs"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	m.Duration, err = meter.Float64Histogram(
		"stag.run.duration",
		metric.WithDescription("Duration of generation runs in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}
