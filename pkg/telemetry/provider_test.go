package telemetry_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/identra/identra/pkg/telemetry"
)

func TestInit_RecordsMetrics(t *testing.T) {
	ctx := context.Background()
	reader := sdkmetric.NewManualReader()

	tel, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:  "identra-test",
		MetricReader: reader,
	})
	require.NoError(t, err)
	defer tel.Shutdown(ctx)
	require.NotNil(t, tel.Metrics)

	tel.Metrics.EventsAppended.Add(ctx, 3)
	tel.Metrics.PushConflicts.Add(ctx, 1)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	counts := map[string]int64{}
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			if sum, ok := m.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range sum.DataPoints {
					counts[m.Name] += dp.Value
				}
			}
		}
	}
	assert.Equal(t, int64(3), counts["identra.eventstore.events.appended"])
	assert.Equal(t, int64(1), counts["identra.eventstore.push.conflicts"])
}

func TestInit_ExportsSpans(t *testing.T) {
	ctx := context.Background()
	exporter := tracetest.NewInMemoryExporter()

	tel, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:     "identra-test",
		TraceExporter:   exporter,
		TraceSampleRate: 1,
	})
	require.NoError(t, err)

	_, span := telemetry.StartSpan(ctx, "eventstore.push")
	telemetry.EndSpan(span, errors.New("boom"))

	// Shutdown resets the in-memory exporter, so flush and read first.
	tp, ok := tel.TracerProvider.(*sdktrace.TracerProvider)
	require.True(t, ok)
	require.NoError(t, tp.ForceFlush(ctx))

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "eventstore.push", spans[0].Name)
	assert.Equal(t, "boom", spans[0].Status.Description)

	require.NoError(t, tel.Shutdown(ctx))
}

func TestInit_NoExportersIsNoop(t *testing.T) {
	ctx := context.Background()
	tel, err := telemetry.Init(ctx, telemetry.Config{ServiceName: "identra-test"})
	require.NoError(t, err)
	assert.Nil(t, tel.Metrics)

	_, span := tel.TracerProvider.Tracer("t").Start(ctx, "noop")
	span.End()
	require.NoError(t, tel.Shutdown(ctx))
}
