package parking

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"parking-allocator/internal/telemetry"
)

func newInstrumented(t *testing.T, capacity Capacities) (*InstrumentedAllocator, *telemetry.Recorder) {
	t.Helper()
	provider, recorder := telemetry.NewForTest("parking-test")
	t.Cleanup(func() {
		if err := provider.Shutdown(context.Background()); err != nil {
			t.Errorf("Failed to shutdown telemetry: %v", err)
		}
	})

	allocator, err := NewAllocator(capacity)
	require.NoError(t, err)

	ia, err := NewInstrumentedAllocator(allocator, provider)
	require.NoError(t, err)
	return ia, recorder
}

// sumCounter adds up the data points of an int64 sum whose attributes
// contain every attribute in match.
func sumCounter(t *testing.T, recorder *telemetry.Recorder, name string, match ...attribute.KeyValue) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, recorder.Metrics.Collect(context.Background(), &rm))

	var total int64
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, "%s is not an int64 sum", name)
			for _, dp := range sum.DataPoints {
				if hasAll(dp.Attributes, match) {
					total += dp.Value
				}
			}
		}
	}
	return total
}

func hasAll(set attribute.Set, match []attribute.KeyValue) bool {
	for _, kv := range match {
		v, ok := set.Value(kv.Key)
		if !ok || v.Emit() != kv.Value.Emit() {
			return false
		}
	}
	return true
}

func spanNames(recorder *telemetry.Recorder) []string {
	var names []string
	for _, s := range recorder.Spans.Ended() {
		names = append(names, s.Name())
	}
	return names
}

func TestInstrumentedAllocatorIntegration(t *testing.T) {
	ia, recorder := newInstrumented(t, Capacities{Compact: 1, Large: 1, TwoWheeler: 1})
	ctx := context.Background()

	ticket, err := ia.Admit(ctx, "KA01HH1234", VehicleCompact)
	require.NoError(t, err)

	spilled, err := ia.Admit(ctx, "KA01HH9999", VehicleCompact)
	require.NoError(t, err)

	_, err = ia.Admit(ctx, "KA01BB0001", VehicleLarge)
	assert.ErrorIs(t, err, ErrLotFull)

	details, err := ia.Status(ctx, ticket)
	require.NoError(t, err)
	assert.Equal(t, "KA01HH1234", details.Plate)

	plate, err := ia.Release(ctx, spilled)
	require.NoError(t, err)
	assert.Equal(t, "KA01HH9999", plate)

	_, err = ia.Release(ctx, spilled)
	assert.ErrorIs(t, err, ErrUnknownTicket)

	report := ia.Availability(ctx)
	large, _ := report.For(VehicleLarge)
	assert.Equal(t, 1, large.Remaining)

	assert.Equal(t, int64(3), sumCounter(t, recorder, "parking_admissions_total"))
	assert.Equal(t, int64(1), sumCounter(t, recorder, "parking_admissions_total", attribute.String("status", "full")))
	assert.Equal(t, int64(1), sumCounter(t, recorder, "parking_releases_total", attribute.String("status", "success")))
	assert.Equal(t, int64(1), sumCounter(t, recorder, "parking_releases_total", attribute.String("status", "unknown_ticket")))
	assert.Equal(t, int64(1), sumCounter(t, recorder, "parking_occupied_spots", attribute.String("counter", "compact")))
	assert.Equal(t, int64(0), sumCounter(t, recorder, "parking_occupied_spots", attribute.String("counter", "large")))

	assert.Equal(t, []string{
		"allocator.admit",
		"allocator.admit",
		"allocator.admit",
		"allocator.status",
		"allocator.release",
		"allocator.release",
		"allocator.availability",
	}, spanNames(recorder))
}

func TestInstrumentedAdmitInvalidCategory(t *testing.T) {
	ia, recorder := newInstrumented(t, DefaultCapacities)

	_, err := ia.Admit(context.Background(), "X", VehicleCategory(0))
	assert.ErrorIs(t, err, ErrInvalidCategory)
	assert.Equal(t, int64(1), sumCounter(t, recorder, "parking_admissions_total", attribute.String("status", "invalid_category")))
	assert.Equal(t, 0, ia.ActiveTickets())
}
