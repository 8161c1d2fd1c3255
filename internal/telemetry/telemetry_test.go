package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestNewForTestRecordsSpansAndMetrics(t *testing.T) {
	ctx := context.Background()
	p, recorder := NewForTest("telemetry-test")

	_, span := p.Tracer().Start(ctx, "unit")
	span.End()

	counter, err := p.Meter().Int64Counter("unit_total")
	require.NoError(t, err)
	counter.Add(ctx, 2)

	ended := recorder.Spans.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "unit", ended[0].Name())

	var rm metricdata.ResourceMetrics
	require.NoError(t, recorder.Metrics.Collect(ctx, &rm))
	require.Len(t, rm.ScopeMetrics, 1)
	require.Len(t, rm.ScopeMetrics[0].Metrics, 1)
	sum, ok := rm.ScopeMetrics[0].Metrics[0].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	assert.Equal(t, int64(2), sum.DataPoints[0].Value)

	assert.NotNil(t, p.LoggerProvider())
	require.NoError(t, p.Shutdown(ctx))
}
