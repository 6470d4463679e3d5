package handlers

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/genc-murat/crystalbloom/internal/bloom"
	"github.com/genc-murat/crystalbloom/internal/cache"
	"github.com/genc-murat/crystalbloom/internal/core/models"
)

func newTestHandlers(t *testing.T) (*BloomFilterHandlers, *cache.MemoryCache) {
	t.Helper()
	bloom.ResetConfigDefaults()
	bloom.SetUseRandomSeed(false)
	memCache := cache.NewMemoryCache()
	t.Cleanup(func() {
		memCache.FlushAll()
		bloom.ResetConfigDefaults()
	})
	return NewBloomFilterHandlers(memCache), memCache
}

func bulkArgs(tokens ...string) []models.Value {
	args := make([]models.Value, len(tokens))
	for i, tok := range tokens {
		args[i] = models.Value{Type: "bulk", Bulk: tok}
	}
	return args
}

func TestHandleBFReserve(t *testing.T) {
	h, _ := newTestHandlers(t)

	t.Run("creates and replies OK", func(t *testing.T) {
		res := h.HandleBFReserve(bulkArgs("k", "0.01", "1000"), false)
		assert.Equal(t, "OK", res.Reply.Str)
		require.NotNil(t, res.Repl, "creation must emit a reconstruction")
		assert.Equal(t, "BF.INSERT", res.Repl.Array[0].Bulk)
	})

	t.Run("existing key is busy", func(t *testing.T) {
		res := h.HandleBFReserve(bulkArgs("k", "0.01", "1000"), false)
		assert.Equal(t, "error", res.Reply.Type)
		assert.Equal(t, bloom.ErrKeyExists.Error(), res.Reply.Str)
	})

	t.Run("argument errors", func(t *testing.T) {
		for _, tc := range []struct {
			name string
			args []string
			want error
		}{
			{"error rate range", []string{"r1", "1.5", "1000"}, bloom.ErrErrorRateRange},
			{"bad error rate", []string{"r1", "abc", "1000"}, bloom.ErrBadErrorRate},
			{"capacity zero", []string{"r1", "0.01", "0"}, bloom.ErrCapacityLargerThan0},
			{"bad capacity", []string{"r1", "0.01", "x"}, bloom.ErrBadCapacity},
			{"bad expansion", []string{"r1", "0.01", "1000", "EXPANSION", "11"}, bloom.ErrBadExpansion},
			{"unknown argument", []string{"r1", "0.01", "1000", "WHATEVER"}, bloom.ErrUnknownArgument},
		} {
			res := h.HandleBFReserve(bulkArgs(tc.args...), false)
			assert.Equal(t, tc.want.Error(), res.Reply.Str, tc.name)
		}
	})

	t.Run("nonscaling", func(t *testing.T) {
		res := h.HandleBFReserve(bulkArgs("ns", "0.01", "1000", "NONSCALING"), false)
		require.Equal(t, "OK", res.Reply.Str)
		info := h.HandleBFInfo(bulkArgs("ns", "EXPANSION"))
		assert.Equal(t, "null", info.Type)
	})
}

func TestHandleBFAddAndExists(t *testing.T) {
	h, _ := newTestHandlers(t)

	res := h.HandleBFAdd(bulkArgs("k", "item1"), false)
	assert.Equal(t, 1, res.Reply.Num)
	require.NotNil(t, res.Repl, "add on a missing key creates and must reconstruct")
	assert.Equal(t, "ITEMS", res.Repl.Array[len(res.Repl.Array)-2].Bulk)
	assert.Equal(t, "item1", res.Repl.Array[len(res.Repl.Array)-1].Bulk)

	res = h.HandleBFAdd(bulkArgs("k", "item2"), false)
	assert.Equal(t, 1, res.Reply.Num)
	assert.Nil(t, res.Repl, "add on an existing key replays verbatim")

	res = h.HandleBFAdd(bulkArgs("k", "item1"), false)
	assert.Equal(t, 0, res.Reply.Num)

	assert.Equal(t, 1, h.HandleBFExists(bulkArgs("k", "item1")).Num)
	assert.Equal(t, 0, h.HandleBFExists(bulkArgs("missing", "item1")).Num)
	assert.Equal(t, 2, h.HandleBFCard(bulkArgs("k")).Num)
	assert.Equal(t, 0, h.HandleBFCard(bulkArgs("missing")).Num)
}

func TestHandleBFMAddAndMExists(t *testing.T) {
	h, _ := newTestHandlers(t)

	res := h.HandleBFMAdd(bulkArgs("k", "a", "b", "c"), false)
	require.Equal(t, "array", res.Reply.Type)
	require.Len(t, res.Reply.Array, 3)
	for _, v := range res.Reply.Array {
		assert.Equal(t, 1, v.Num)
	}

	exists := h.HandleBFMExists(bulkArgs("k", "a", "nope", "c"))
	require.Len(t, exists.Array, 3)
	assert.Equal(t, 1, exists.Array[0].Num)
	assert.Equal(t, 0, exists.Array[1].Num)
	assert.Equal(t, 1, exists.Array[2].Num)

	missing := h.HandleBFMExists(bulkArgs("missing", "a", "b"))
	require.Len(t, missing.Array, 2)
	assert.Equal(t, 0, missing.Array[0].Num)
	assert.Equal(t, 0, missing.Array[1].Num)
}

func TestMAddInlineErrors(t *testing.T) {
	h, _ := newTestHandlers(t)

	require.Equal(t, "OK", h.HandleBFReserve(bulkArgs("full", "0.01", "2", "NONSCALING"), false).Reply.Str)

	res := h.HandleBFMAdd(bulkArgs("full", "a", "b", "c", "d"), false)
	require.Equal(t, "array", res.Reply.Type)
	require.Len(t, res.Reply.Array, 3, "batch stops at the first error")
	assert.Equal(t, 1, res.Reply.Array[0].Num)
	assert.Equal(t, 1, res.Reply.Array[1].Num)
	assert.Equal(t, "error", res.Reply.Array[2].Type)
	assert.Equal(t, bloom.ErrNonScalingFilterFull.Error(), res.Reply.Array[2].Str)
}

func TestHandleBFInsert(t *testing.T) {
	h, _ := newTestHandlers(t)

	t.Run("items without any item is an arity error", func(t *testing.T) {
		res := h.HandleBFInsert(bulkArgs("k", "ITEMS"), false)
		assert.Equal(t, "error", res.Reply.Type)
		assert.Contains(t, res.Reply.Str, "wrong number of arguments")
	})

	t.Run("replica only tokens rejected from clients", func(t *testing.T) {
		res := h.HandleBFInsert(bulkArgs("k", "TIGHTENING", "0.6"), false)
		assert.Equal(t, bloom.ErrUnknownArgument.Error(), res.Reply.Str)

		res = h.HandleBFInsert(bulkArgs("k", "SEED", string(bloom.FixedSeed[:])), false)
		assert.Equal(t, bloom.ErrUnknownArgument.Error(), res.Reply.Str)
	})

	t.Run("seed length is enforced on the replica path", func(t *testing.T) {
		res := h.HandleBFInsert(bulkArgs("k", "SEED", "short"), true)
		assert.Equal(t, bloom.ErrInvalidSeed.Error(), res.Reply.Str)
	})

	t.Run("nocreate on missing key", func(t *testing.T) {
		res := h.HandleBFInsert(bulkArgs("absent", "NOCREATE", "ITEMS", "a"), false)
		assert.Equal(t, bloom.ErrNotFound.Error(), res.Reply.Str)
	})

	t.Run("create with items", func(t *testing.T) {
		res := h.HandleBFInsert(bulkArgs("ins", "CAPACITY", "100", "ERROR", "0.01", "ITEMS", "a", "b"), false)
		require.Equal(t, "array", res.Reply.Type)
		require.Len(t, res.Reply.Array, 2)
		require.NotNil(t, res.Repl)

		info := h.HandleBFInfo(bulkArgs("ins", "CAPACITY"))
		assert.Equal(t, 100, info.Num)
	})

	t.Run("validatescaleto", func(t *testing.T) {
		res := h.HandleBFInsert(bulkArgs("vs", "CAPACITY", "1000", "ERROR", "0.01", "VALIDATESCALETO", "15000"), false)
		assert.Equal(t, "array", res.Reply.Type)

		res = h.HandleBFInsert(bulkArgs("vs2", "CAPACITY", "100", "ERROR", "0.00001", "EXPANSION", "1", "VALIDATESCALETO", "1000000"), false)
		assert.Equal(t, bloom.ErrValidateScaleToFalsePositiveInvalid.Error(), res.Reply.Str)

		res = h.HandleBFInsert(bulkArgs("vs3", "NONSCALING", "VALIDATESCALETO", "1000"), false)
		assert.Equal(t, bloom.ErrBadExpansion.Error(), res.Reply.Str)
	})
}

func TestHandleBFInfoFields(t *testing.T) {
	h, _ := newTestHandlers(t)

	require.Equal(t, "OK", h.HandleBFReserve(bulkArgs("k", "0.01", "1000", "EXPANSION", "2"), false).Reply.Str)
	h.HandleBFAdd(bulkArgs("k", "one"), false)

	t.Run("labeled pairs", func(t *testing.T) {
		res := h.HandleBFInfo(bulkArgs("k"))
		require.Equal(t, "array", res.Type)
		require.Len(t, res.Array, 10)
		assert.Equal(t, "Capacity", res.Array[0].Str)
		assert.Equal(t, 1000, res.Array[1].Num)
		assert.Equal(t, "Number of items inserted", res.Array[6].Str)
		assert.Equal(t, 1, res.Array[7].Num)
		assert.Equal(t, "Expansion rate", res.Array[8].Str)
		assert.Equal(t, 2, res.Array[9].Num)
	})

	t.Run("single fields", func(t *testing.T) {
		assert.Equal(t, 1000, h.HandleBFInfo(bulkArgs("k", "CAPACITY")).Num)
		assert.Equal(t, 1, h.HandleBFInfo(bulkArgs("k", "FILTERS")).Num)
		assert.Equal(t, 1, h.HandleBFInfo(bulkArgs("k", "ITEMS")).Num)
		assert.Greater(t, h.HandleBFInfo(bulkArgs("k", "SIZE")).Num, 0)
		assert.Greater(t, h.HandleBFInfo(bulkArgs("k", "MAXSCALEDCAPACITY")).Num, 1000)
	})

	t.Run("invalid field", func(t *testing.T) {
		res := h.HandleBFInfo(bulkArgs("k", "BOGUS"))
		assert.Equal(t, bloom.ErrInvalidInfoValue.Error(), res.Str)
	})

	t.Run("missing key", func(t *testing.T) {
		res := h.HandleBFInfo(bulkArgs("nope"))
		assert.Equal(t, bloom.ErrNotFound.Error(), res.Str)
	})
}

func TestHandleBFLoad(t *testing.T) {
	h, memCache := newTestHandlers(t)

	require.Equal(t, "OK", h.HandleBFReserve(bulkArgs("src", "0.01", "1000"), false).Reply.Str)
	h.HandleBFAdd(bulkArgs("src", "item1"), false)

	blob, err := memCache.BFEncode("src")
	require.NoError(t, err)

	t.Run("load restores the object", func(t *testing.T) {
		res := h.HandleBFLoad(bulkArgs("dst", string(blob)), false)
		require.Equal(t, "OK", res.Reply.Str)
		assert.Equal(t, 1, h.HandleBFExists(bulkArgs("dst", "item1")).Num)

		restored, err := memCache.BFEncode("dst")
		require.NoError(t, err)
		assert.Equal(t, blob, restored)
	})

	t.Run("existing key is busy", func(t *testing.T) {
		res := h.HandleBFLoad(bulkArgs("dst", string(blob)), false)
		assert.Equal(t, bloom.ErrKeyExists.Error(), res.Reply.Str)
	})

	t.Run("garbage blob", func(t *testing.T) {
		res := h.HandleBFLoad(bulkArgs("bad", "garbage"), false)
		assert.Equal(t, "error", res.Reply.Type)
	})
}

// TestReplicationDeterminism drives the full primary/replica path: the
// reconstruction emitted by an insert with a random seed, replayed through
// the replica-facing parser on a fresh keyspace, must produce a
// byte-identical encoding.
func TestReplicationDeterminism(t *testing.T) {
	bloom.ResetConfigDefaults()
	bloom.SetUseRandomSeed(true)
	t.Cleanup(bloom.ResetConfigDefaults)

	primaryCache := cache.NewMemoryCache()
	replicaCache := cache.NewMemoryCache()
	t.Cleanup(primaryCache.FlushAll)
	t.Cleanup(replicaCache.FlushAll)
	primary := NewBloomFilterHandlers(primaryCache)
	replica := NewBloomFilterHandlers(replicaCache)

	res := primary.HandleBFInsert(bulkArgs("k", "CAPACITY", "100", "ERROR", "0.01", "ITEMS", "a", "b", "c"), false)
	require.Equal(t, "array", res.Reply.Type)
	require.NotNil(t, res.Repl)

	recon := res.Repl.Array
	assert.Equal(t, "BF.INSERT", recon[0].Bulk)
	tokens := make(map[string]bool)
	for _, v := range recon {
		tokens[v.Bulk] = true
	}
	assert.True(t, tokens["TIGHTENING"], "reconstruction carries the tightening ratio")
	assert.True(t, tokens["SEED"], "reconstruction carries the seed even for random-seed objects")

	applied := replica.HandleBFInsert(recon[1:], true)
	require.NotEqual(t, "error", applied.Reply.Type)

	primaryBytes, err := primaryCache.BFEncode("k")
	require.NoError(t, err)
	replicaBytes, err := replicaCache.BFEncode("k")
	require.NoError(t, err)
	assert.Equal(t, primaryBytes, replicaBytes)

	t.Run("subsequent adds replay verbatim", func(t *testing.T) {
		res := primary.HandleBFAdd(bulkArgs("k", "d"), false)
		assert.Nil(t, res.Repl)
		applied := replica.HandleBFAdd(bulkArgs("k", "d"), true)
		require.NotEqual(t, "error", applied.Reply.Type)

		primaryBytes, err := primaryCache.BFEncode("k")
		require.NoError(t, err)
		replicaBytes, err := replicaCache.BFEncode("k")
		require.NoError(t, err)
		assert.Equal(t, primaryBytes, replicaBytes)
	})
}

func TestScalingThroughHandlers(t *testing.T) {
	h, _ := newTestHandlers(t)

	require.Equal(t, "OK", h.HandleBFReserve(bulkArgs("scale", "0.01", "100", "EXPANSION", "2"), false).Reply.Str)
	added := 0
	for i := 0; added < 300; i++ {
		res := h.HandleBFAdd(bulkArgs("scale", fmt.Sprintf("s%d", i)), false)
		require.NotEqual(t, "error", res.Reply.Type)
		added += res.Reply.Num
	}
	assert.Equal(t, 2, h.HandleBFInfo(bulkArgs("scale", "FILTERS")).Num)
	assert.Equal(t, 300, h.HandleBFInfo(bulkArgs("scale", "CAPACITY")).Num)
	assert.Equal(t, 300, h.HandleBFCard(bulkArgs("scale")).Num)
}
