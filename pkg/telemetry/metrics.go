// Package telemetry holds the OpenTelemetry instruments and span helpers
// shared by the event store, the projection engine, and the notifier.
package telemetry

import (
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/identra/identra"

// Metrics bundles every instrument the write side records.
type Metrics struct {
	// Event store
	EventsAppended metric.Int64Counter
	PushDuration   metric.Float64Histogram
	PushConflicts  metric.Int64Counter
	QueryDuration  metric.Float64Histogram

	// Projection engine
	ProjectionEvents metric.Int64Counter
	ProjectionLag    metric.Float64Gauge
	ProjectionErrors metric.Int64Counter

	// Notifier
	NotifierPublished metric.Int64Counter
	NotifierErrors    metric.Int64Counter
}

// NewMetrics creates all instruments on the given meter. Pass a no-op
// meter provider's meter to disable collection.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	m.EventsAppended, err = meter.Int64Counter(
		"identra.eventstore.events.appended",
		metric.WithDescription("Events committed to the store"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating events.appended: %w", err)
	}

	m.PushDuration, err = meter.Float64Histogram(
		"identra.eventstore.push.duration",
		metric.WithDescription("Push transaction duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating push.duration: %w", err)
	}

	m.PushConflicts, err = meter.Int64Counter(
		"identra.eventstore.push.conflicts",
		metric.WithDescription("Pushes rejected by concurrency or unique constraints"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating push.conflicts: %w", err)
	}

	m.QueryDuration, err = meter.Float64Histogram(
		"identra.eventstore.query.duration",
		metric.WithDescription("Filter query duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating query.duration: %w", err)
	}

	m.ProjectionEvents, err = meter.Int64Counter(
		"identra.projection.events.applied",
		metric.WithDescription("Events applied by projections"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating projection.events.applied: %w", err)
	}

	m.ProjectionLag, err = meter.Float64Gauge(
		"identra.projection.lag",
		metric.WithDescription("Positions between store head and projection checkpoint"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating projection.lag: %w", err)
	}

	m.ProjectionErrors, err = meter.Int64Counter(
		"identra.projection.errors",
		metric.WithDescription("Failed projection ticks"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating projection.errors: %w", err)
	}

	m.NotifierPublished, err = meter.Int64Counter(
		"identra.notifier.published",
		metric.WithDescription("Events relayed to NATS"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating notifier.published: %w", err)
	}

	m.NotifierErrors, err = meter.Int64Counter(
		"identra.notifier.errors",
		metric.WithDescription("Failed NATS publishes"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating notifier.errors: %w", err)
	}

	return m, nil
}

// NewDefaultMetrics uses the globally registered meter provider.
func NewDefaultMetrics() (*Metrics, error) {
	return NewMetrics(otel.Meter(instrumentationName))
}
