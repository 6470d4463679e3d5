package bloom

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodeObject(t *testing.T, obj *Object) []byte {
	t.Helper()
	data, err := Encode(obj)
	require.NoError(t, err)
	return data
}

func TestCodecRoundTrip(t *testing.T) {
	obj := newFixedSeedObject(t, 0.5, 0.5, 1000, 2)
	_, err := obj.Add([]byte("item1"), true)
	require.NoError(t, err)

	data := encodeObject(t, obj)
	require.Equal(t, BloomTypeVersion, data[0])

	t.Run("unsupported version", func(t *testing.T) {
		bad := append([]byte(nil), data...)
		bad[0] = 10
		_, err := Decode(bad, true)
		assert.ErrorIs(t, err, ErrDecodeUnsupportedVersion)
	})

	t.Run("round trip", func(t *testing.T) {
		restored, err := Decode(data, true)
		require.NoError(t, err)
		defer restored.Release()

		assert.Equal(t, obj.Expansion(), restored.Expansion())
		assert.Equal(t, obj.FpRate(), restored.FpRate())
		assert.Equal(t, obj.TighteningRatio(), restored.TighteningRatio())
		assert.Equal(t, obj.IsSeedRandom(), restored.IsSeedRandom())
		assert.Equal(t, obj.Seed(), restored.Seed())
		assert.Equal(t, obj.NumFilters(), restored.NumFilters())
		assert.Equal(t, obj.Cardinality(), restored.Cardinality())
		assert.Equal(t, obj.Capacity(), restored.Capacity())
		assert.True(t, restored.Exists([]byte("item1")))

		assert.Equal(t, data, encodeObject(t, restored), "re-encoding must be byte stable")
	})
}

func TestCodecRoundTripScaled(t *testing.T) {
	obj := newFixedSeedObject(t, 0.01, 0.5, 500, 2)
	fillToCapacity(t, obj, 1400, "enc")
	require.Greater(t, obj.NumFilters(), 1)

	restored, err := Decode(encodeObject(t, obj), true)
	require.NoError(t, err)
	defer restored.Release()

	require.Equal(t, obj.NumFilters(), restored.NumFilters())
	for i, f := range obj.Filters() {
		r := restored.Filters()[i]
		assert.Equal(t, f.Bitmap(), r.Bitmap(), "filter %d bitmap", i)
		assert.Equal(t, f.NumItems(), r.NumItems(), "filter %d items", i)
		assert.Equal(t, f.Capacity(), r.Capacity(), "filter %d capacity", i)
		assert.Equal(t, f.Seed(), r.Seed(), "filter %d seed", i)
	}
}

func TestDecodeRejections(t *testing.T) {
	obj := newFixedSeedObject(t, 0.01, 0.5, 1000, 2)
	data := encodeObject(t, obj)

	// Field offsets behind the version byte: expansion u32, fpRate f64,
	// tighteningRatio f64.
	const (
		expansionOff  = 1
		fpRateOff     = 5
		tighteningOff = 13
	)

	patch := func(off int, fn func([]byte)) []byte {
		bad := append([]byte(nil), data...)
		fn(bad[off:])
		return bad
	}

	t.Run("empty input", func(t *testing.T) {
		_, err := Decode(nil, true)
		assert.ErrorIs(t, err, ErrDecodeFailed)
	})

	t.Run("truncated input", func(t *testing.T) {
		_, err := Decode(data[:len(data)/2], true)
		assert.ErrorIs(t, err, ErrDecodeFailed)
	})

	t.Run("trailing garbage", func(t *testing.T) {
		_, err := Decode(append(append([]byte(nil), data...), 0xFF), true)
		assert.ErrorIs(t, err, ErrDecodeFailed)
	})

	t.Run("expansion out of range", func(t *testing.T) {
		bad := patch(expansionOff, func(b []byte) {
			binary.LittleEndian.PutUint32(b, ExpansionMax+1)
		})
		_, err := Decode(bad, true)
		assert.ErrorIs(t, err, ErrBadExpansion)
	})

	t.Run("fp rate out of range", func(t *testing.T) {
		bad := patch(fpRateOff, func(b []byte) {
			binary.LittleEndian.PutUint64(b, math.Float64bits(1.5))
		})
		_, err := Decode(bad, true)
		assert.ErrorIs(t, err, ErrErrorRateRange)
	})

	t.Run("tightening ratio out of range", func(t *testing.T) {
		bad := patch(tighteningOff, func(b []byte) {
			binary.LittleEndian.PutUint64(b, math.Float64bits(1.5))
		})
		_, err := Decode(bad, true)
		assert.ErrorIs(t, err, ErrTighteningRatioRange)
	})

	t.Run("size limit", func(t *testing.T) {
		require.NoError(t, SetMemoryLimit(1024))
		defer ResetConfigDefaults()

		_, err := Decode(data, true)
		assert.ErrorIs(t, err, ErrExceedsMaxBloomSize)

		restored, err := Decode(data, false)
		require.NoError(t, err, "size validation must be skippable for replicated loads")
		restored.Release()
	})

	t.Run("max filters", func(t *testing.T) {
		require.NoError(t, SetMaxFilters(1))
		defer ResetConfigDefaults()

		_, err := Decode(data, true)
		assert.ErrorIs(t, err, ErrMaxNumScalingFilters)
	})
}
