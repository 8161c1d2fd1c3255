package parking

import "github.com/prometheus/client_golang/prometheus"

type occupancyCollector struct {
	allocator *Allocator
	capacity  *prometheus.Desc
	occupied  *prometheus.Desc
}

// NewOccupancyCollector exposes per-category capacity and occupancy of
// allocator as Prometheus gauges, read at scrape time.
func NewOccupancyCollector(allocator *Allocator) prometheus.Collector {
	return &occupancyCollector{
		allocator: allocator,
		capacity: prometheus.NewDesc("parking_spot_capacity",
			"Spots reserved for a vehicle category.",
			[]string{"category"}, nil),
		occupied: prometheus.NewDesc("parking_spot_occupied",
			"Spots currently charged to a vehicle category counter.",
			[]string{"category"}, nil),
	}
}

func (c *occupancyCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.capacity
	ch <- c.occupied
}

func (c *occupancyCollector) Collect(ch chan<- prometheus.Metric) {
	for _, a := range c.allocator.Availability() {
		ch <- prometheus.MustNewConstMetric(c.capacity, prometheus.GaugeValue, float64(a.Capacity), a.Category.String())
		ch <- prometheus.MustNewConstMetric(c.occupied, prometheus.GaugeValue, float64(a.Occupied), a.Category.String())
	}
}
