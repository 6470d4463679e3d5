package bloom

import (
	"math"
	"sync"
	"sync/atomic"
)

// Compile-time bounds for bloom object properties. Command parsing and
// CONFIG SET use the same ranges.
const (
	CapacityDefault int64 = 100000
	CapacityMin     int64 = 1
	CapacityMax     int64 = math.MaxInt64

	ExpansionDefault uint32 = 2
	ExpansionMin     uint32 = 1
	ExpansionMax     uint32 = 10

	FpRateDefault float64 = 0.001
	FpRateMin     float64 = 0.0
	FpRateMax     float64 = 1.0

	TighteningRatioDefault float64 = 0.5
	TighteningRatioMin     float64 = 0.0
	TighteningRatioMax     float64 = 1.0

	UseRandomSeedDefault = true

	// Beyond this threshold a write operation that would grow the bloom
	// object is rejected, and the object is exempt from defrag.
	MemoryLimitDefault int64 = 64 * 1024 * 1024
	MemoryLimitMin     int64 = 0
	MemoryLimitMax     int64 = math.MaxInt64

	MaxFiltersDefault int64 = math.MaxInt32
	MaxFiltersMin     int64 = 1
	MaxFiltersMax     int64 = math.MaxInt32
)

var (
	configCapacity      atomic.Int64
	configExpansion     atomic.Int64
	configMemoryLimit   atomic.Int64
	configMaxFilters    atomic.Int64
	configUseRandomSeed atomic.Bool
	configDefragEnabled atomic.Bool

	// fp rate and tightening ratio are read together when creating objects,
	// so they live behind one mutex instead of two atomics.
	configRatesMu         sync.Mutex
	configFpRate          = FpRateDefault
	configTighteningRatio = TighteningRatioDefault
)

func init() {
	ResetConfigDefaults()
}

// ResetConfigDefaults restores every runtime knob to its compiled default.
func ResetConfigDefaults() {
	configCapacity.Store(CapacityDefault)
	configExpansion.Store(int64(ExpansionDefault))
	configMemoryLimit.Store(MemoryLimitDefault)
	configMaxFilters.Store(MaxFiltersDefault)
	configUseRandomSeed.Store(UseRandomSeedDefault)
	configDefragEnabled.Store(true)
	configRatesMu.Lock()
	configFpRate = FpRateDefault
	configTighteningRatio = TighteningRatioDefault
	configRatesMu.Unlock()
}

func DefaultCapacity() int64 { return configCapacity.Load() }

func SetDefaultCapacity(v int64) error {
	if v < CapacityMin || v > CapacityMax {
		return ErrBadCapacity
	}
	configCapacity.Store(v)
	return nil
}

func DefaultExpansion() uint32 { return uint32(configExpansion.Load()) }

func SetDefaultExpansion(v uint32) error {
	if v < ExpansionMin || v > ExpansionMax {
		return ErrBadExpansion
	}
	configExpansion.Store(int64(v))
	return nil
}

// DefaultRates returns a consistent snapshot of the configured false
// positive rate and tightening ratio.
func DefaultRates() (fpRate float64, tighteningRatio float64) {
	configRatesMu.Lock()
	defer configRatesMu.Unlock()
	return configFpRate, configTighteningRatio
}

func SetDefaultFpRate(v float64) error {
	if !(v > FpRateMin && v < FpRateMax) {
		return ErrErrorRateRange
	}
	configRatesMu.Lock()
	configFpRate = v
	configRatesMu.Unlock()
	return nil
}

func SetDefaultTighteningRatio(v float64) error {
	if !(v > TighteningRatioMin && v < TighteningRatioMax) {
		return ErrTighteningRatioRange
	}
	configRatesMu.Lock()
	configTighteningRatio = v
	configRatesMu.Unlock()
	return nil
}

func UseRandomSeed() bool     { return configUseRandomSeed.Load() }
func SetUseRandomSeed(v bool) { configUseRandomSeed.Store(v) }
func MemoryLimit() int64      { return configMemoryLimit.Load() }
func DefragEnabled() bool     { return configDefragEnabled.Load() }
func SetDefragEnabled(v bool) { configDefragEnabled.Store(v) }
func MaxFilters() int64       { return configMaxFilters.Load() }

func SetMemoryLimit(v int64) error {
	if v < MemoryLimitMin {
		return ErrBadCapacity
	}
	configMemoryLimit.Store(v)
	return nil
}

func SetMaxFilters(v int64) error {
	if v < MaxFiltersMin || v > MaxFiltersMax {
		return ErrBadCapacity
	}
	configMaxFilters.Store(v)
	return nil
}
