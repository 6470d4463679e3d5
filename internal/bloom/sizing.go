package bloom

import (
	"math"
	"unsafe"

	"github.com/bits-and-blooms/bitset"
)

// FixedSeed is the seed shared by every bloom object created while the
// use-random-seed config is off. Restored objects in fixed seed mode are
// verified against it.
var FixedSeed = [32]byte{
	89, 15, 245, 34, 234, 120, 17, 218, 167, 20, 216, 9, 59, 62, 123, 217,
	29, 137, 138, 115, 62, 152, 136, 135, 48, 127, 151, 205, 40, 7, 51, 131,
}

const (
	objectStructBytes = int64(unsafe.Sizeof(Object{}))
	filterStructBytes = int64(unsafe.Sizeof(BloomFilter{}) + unsafe.Sizeof(bitset.BitSet{}))
	filterPtrBytes    = int64(unsafe.Sizeof((*BloomFilter)(nil)))
)

// numBitsForCapacity returns the bit array length m for the standard bloom
// sizing formula m = -n*ln(p) / ln(2)^2.
func numBitsForCapacity(capacity int64, fpRate float64) uint64 {
	bits := math.Ceil(-float64(capacity) * math.Log(fpRate) / (math.Ln2 * math.Ln2))
	if bits < 1 {
		return 1
	}
	return uint64(bits)
}

// numHashesForBits returns the probe count k = m/n * ln(2).
func numHashesForBits(numBits uint64, capacity int64) uint32 {
	k := math.Ceil(float64(numBits) / float64(capacity) * math.Ln2)
	if k < 1 {
		return 1
	}
	return uint32(k)
}

// ComputeFilterSize returns the number of bytes a single filter with the
// given capacity and fp rate will occupy: fixed struct overhead plus
// ceil(m/8) bytes of bit storage. Saturates instead of overflowing so that
// absurd capacities fail the size checks rather than wrap around.
func ComputeFilterSize(capacity int64, fpRate float64) int64 {
	bits := math.Ceil(-float64(capacity) * math.Log(fpRate) / (math.Ln2 * math.Ln2))
	bytes := math.Ceil(bits / 8)
	if bytes >= float64(math.MaxInt64)/2 {
		return math.MaxInt64
	}
	return filterStructBytes + int64(bytes)
}

// filterSliceCap models the capacity of the filter slice after k appends:
// 1 for a single filter, otherwise the next power of two of max(4, k). The
// planner and MemoryUsage must agree on this, so it is computed, never
// measured.
func filterSliceCap(k int) int {
	if k <= 1 {
		return 1
	}
	if k < 4 {
		k = 4
	}
	return nextPowerOfTwo(k)
}

func nextPowerOfTwo(v int) int {
	n := 1
	for n < v {
		n <<= 1
	}
	return n
}

// objectOverheadBytes is the object's own footprint excluding filter
// contents: the struct plus the filter slice backing storage.
func objectOverheadBytes(numFilters int) int64 {
	return objectStructBytes + int64(filterSliceCap(numFilters))*filterPtrBytes
}

// ValidateSizeBeforeCreate reports whether a fresh single-filter object with
// the given shape fits the configured per-object memory limit.
func ValidateSizeBeforeCreate(capacity int64, fpRate float64) bool {
	projected := objectOverheadBytes(1) + ComputeFilterSize(capacity, fpRate)
	return projected >= 0 && projected <= MemoryLimit()
}

// minPositiveFloat is the smallest positive normal float64. An fp rate at
// or below it counts as degraded to zero.
const minPositiveFloat = 2.2250738585072014e-308

// calculateFpRate derives the fp rate of filter number numFilters from the
// object fp rate and the tightening ratio. Degrading to (or below) the
// smallest positive float means the object cannot scale further.
func calculateFpRate(fpRate float64, numFilters int, tighteningRatio float64) (float64, error) {
	rate := fpRate * math.Pow(tighteningRatio, float64(numFilters))
	if rate > minPositiveFloat {
		return rate, nil
	}
	return 0, ErrFalsePositiveReachesZero
}

// MaxScaledCapacity simulates scale-outs of an object with the given shape.
// With target >= 0 it returns the cumulative capacity at which the target is
// first covered, or an error naming the constraint that makes the target
// unreachable. With target == -1 it returns the largest capacity reachable
// within the memory limit and fp floor.
func MaxScaledCapacity(capacity int64, fpRate float64, target int64, tighteningRatio float64, expansion uint32) (int64, error) {
	if expansion == 0 {
		if target >= 0 && target > capacity {
			return 0, ErrValidateScaleToExceedsMaxSize
		}
		return capacity, nil
	}
	limit := MemoryLimit()
	curCapacity := capacity
	totalCapacity := capacity
	filterBytes := ComputeFilterSize(capacity, fpRate)
	numFilters := 1
	for {
		if target >= 0 && totalCapacity >= target {
			return totalCapacity, nil
		}
		newFpRate, err := calculateFpRate(fpRate, numFilters, tighteningRatio)
		if err != nil {
			if target < 0 {
				return totalCapacity, nil
			}
			return 0, ErrValidateScaleToFalsePositiveInvalid
		}
		newCapacity, ok := mulCapacity(curCapacity, expansion)
		if !ok {
			if target < 0 {
				return totalCapacity, nil
			}
			return 0, ErrValidateScaleToExceedsMaxSize
		}
		newFilterBytes := ComputeFilterSize(newCapacity, newFpRate)
		projected := objectOverheadBytes(numFilters+1) + filterBytes + newFilterBytes
		if projected < 0 || projected > limit {
			if target < 0 {
				return totalCapacity, nil
			}
			return 0, ErrValidateScaleToExceedsMaxSize
		}
		numFilters++
		curCapacity = newCapacity
		totalCapacity += newCapacity
		filterBytes += newFilterBytes
	}
}

// mulCapacity multiplies a capacity by the expansion factor, reporting
// overflow instead of wrapping.
func mulCapacity(capacity int64, expansion uint32) (int64, bool) {
	result := capacity * int64(expansion)
	if result/int64(expansion) != capacity || result < 0 {
		return 0, false
	}
	return result, true
}
