package bloom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaxScaledCapacityTargets(t *testing.T) {
	tests := []struct {
		capacity  int64
		fpRate    float64
		target    int64
		expansion uint32
		want      int64
	}{
		{1000, 0.01, 10000, 2, 15000},
		{10000, 0.001, 100000, 4, 210000},
		{50000, 0.0001, 500000, 3, 650000},
		{100000, 0.00001, 1000000, 2, 1500000},
		{100, 0.00001, 1000, 1, 1000},
	}
	for _, tt := range tests {
		got, err := MaxScaledCapacity(tt.capacity, tt.fpRate, tt.target, 0.5, tt.expansion)
		require.NoError(t, err, "capacity=%d target=%d", tt.capacity, tt.target)
		assert.Equal(t, tt.want, got, "capacity=%d target=%d", tt.capacity, tt.target)
	}
}

func TestMaxScaledCapacityUnreachable(t *testing.T) {
	for _, tt := range []struct {
		capacity  int64
		fpRate    float64
		expansion uint32
		wantErr   error
	}{
		// One beyond the reachable maximum: expanding objects hit the memory
		// limit, non-expanding ones degrade the fp rate to zero first.
		{1000, 0.01, 2, ErrValidateScaleToExceedsMaxSize},
		{100000, 0.00001, 2, ErrValidateScaleToExceedsMaxSize},
		{100, 0.00001, 1, ErrValidateScaleToFalsePositiveInvalid},
	} {
		max, err := MaxScaledCapacity(tt.capacity, tt.fpRate, -1, 0.5, tt.expansion)
		require.NoError(t, err)
		require.Greater(t, max, int64(0))

		_, err = MaxScaledCapacity(tt.capacity, tt.fpRate, max+1, 0.5, tt.expansion)
		assert.ErrorIs(t, err, tt.wantErr, "capacity=%d expansion=%d", tt.capacity, tt.expansion)
	}
}

func TestMaxScaledCapacityNonScaling(t *testing.T) {
	got, err := MaxScaledCapacity(5000, 0.01, -1, 0.5, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(5000), got)

	_, err = MaxScaledCapacity(5000, 0.01, 5001, 0.5, 0)
	assert.ErrorIs(t, err, ErrValidateScaleToExceedsMaxSize)
}

func TestFilterSliceCapModel(t *testing.T) {
	// The slice growth model backs both the planner and MemoryUsage: one
	// slot for a single filter, then next-power-of-two of max(4, k).
	for _, tt := range []struct{ pushes, want int }{
		{1, 1}, {2, 4}, {3, 4}, {4, 4}, {5, 8}, {8, 8}, {9, 16}, {17, 32},
	} {
		assert.Equal(t, tt.want, filterSliceCap(tt.pushes), "pushes=%d", tt.pushes)
	}
}

func TestPlannerMatchesActualAllocation(t *testing.T) {
	// Scale a real object out and verify its MemoryUsage follows the same
	// overhead model (objectOverheadBytes over filterSliceCap) that the
	// planner uses for its projections.
	seed := FixedSeed
	obj, err := NewReserved(0.01, 0.5, 1000, 2, &seed, false, true)
	require.NoError(t, err)
	defer obj.Release()

	fillToCapacity(t, obj, 15000, "plan")
	require.Equal(t, 4, obj.NumFilters())

	var filterBytes int64
	for _, f := range obj.Filters() {
		filterBytes += f.NumberOfBytes()
	}
	assert.Equal(t, objectOverheadBytes(4)+filterBytes, obj.MemoryUsage())
}

func TestCalculateFpRate(t *testing.T) {
	rate, err := calculateFpRate(0.1, 3, 0.5)
	require.NoError(t, err)
	assert.InDelta(t, 0.0125, rate, 1e-12)

	_, err = calculateFpRate(0.001, 2000, 0.5)
	assert.ErrorIs(t, err, ErrFalsePositiveReachesZero)
}
