package parking

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestOccupancyCollector(t *testing.T) {
	a := newTestAllocator(t, Capacities{Compact: 1, Large: 2, TwoWheeler: 3})
	_, err := admit(t, a, "CAR-1", VehicleCompact)
	require.NoError(t, err)
	_, err = admit(t, a, "CAR-2", VehicleCompact)
	require.NoError(t, err)
	_, err = admit(t, a, "MC-1", VehicleTwoWheeler)
	require.NoError(t, err)

	expected := `
# HELP parking_spot_capacity Spots reserved for a vehicle category.
# TYPE parking_spot_capacity gauge
parking_spot_capacity{category="compact"} 1
parking_spot_capacity{category="large"} 2
parking_spot_capacity{category="two_wheeler"} 3
# HELP parking_spot_occupied Spots currently charged to a vehicle category counter.
# TYPE parking_spot_occupied gauge
parking_spot_occupied{category="compact"} 1
parking_spot_occupied{category="large"} 1
parking_spot_occupied{category="two_wheeler"} 1
`
	require.NoError(t, testutil.CollectAndCompare(NewOccupancyCollector(a), strings.NewReader(expected)))
}
