package bloom

import "sync/atomic"

// Process-wide gauges tracking every live bloom object. Updates use relaxed
// per-counter atomics; readers must not assume a consistent cut across
// counters.
var (
	metricTotalMemoryBytes  atomic.Int64
	metricNumObjects        atomic.Int64
	metricNumFilters        atomic.Int64
	metricNumItems          atomic.Int64
	metricCapacity          atomic.Int64
	metricDefragHits        atomic.Int64
	metricDefragMisses      atomic.Int64
)

// Metrics is a point-in-time sample of the bloom core gauges.
type Metrics struct {
	TotalMemoryBytes         int64
	NumObjects               int64
	NumFiltersAcrossObjects  int64
	NumItemsAcrossObjects    int64
	CapacityAcrossObjects    int64
	DefragHits               int64
	DefragMisses             int64
}

func MetricsSnapshot() Metrics {
	return Metrics{
		TotalMemoryBytes:        metricTotalMemoryBytes.Load(),
		NumObjects:              metricNumObjects.Load(),
		NumFiltersAcrossObjects: metricNumFilters.Load(),
		NumItemsAcrossObjects:   metricNumItems.Load(),
		CapacityAcrossObjects:   metricCapacity.Load(),
		DefragHits:              metricDefragHits.Load(),
		DefragMisses:            metricDefragMisses.Load(),
	}
}

// ResetMetrics zeroes all gauges. Tests use it to start from a clean slate.
func ResetMetrics() {
	metricTotalMemoryBytes.Store(0)
	metricNumObjects.Store(0)
	metricNumFilters.Store(0)
	metricNumItems.Store(0)
	metricCapacity.Store(0)
	metricDefragHits.Store(0)
	metricDefragMisses.Store(0)
}
