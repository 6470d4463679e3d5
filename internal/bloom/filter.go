package bloom

import (
	"crypto/rand"
	"encoding/binary"

	"github.com/bits-and-blooms/bitset"
	"github.com/cespare/xxhash/v2"
)

// BloomFilter is a single fixed-capacity filter slice within a bloom object.
// Its geometry (m, k) and seed are frozen at creation; the only mutations
// are Set and the numItems increment performed by the owning object.
type BloomFilter struct {
	bits      *bitset.BitSet
	numBits   uint64
	numHashes uint32
	seed      [32]byte
	numItems  int64
	capacity  int64
}

// NewFilterWithFixedSeed creates an empty filter keyed by the caller's seed.
// Two filters built with identical (fpRate, capacity, seed) produce
// identical bit outcomes for identical item sequences.
func NewFilterWithFixedSeed(fpRate float64, capacity int64, seed [32]byte) *BloomFilter {
	numBits := numBitsForCapacity(capacity, fpRate)
	f := &BloomFilter{
		bits:      bitset.New(uint(numBits)),
		numBits:   numBits,
		numHashes: numHashesForBits(numBits, capacity),
		seed:      seed,
		capacity:  capacity,
	}
	f.incrMetricsOnCreate()
	return f
}

// NewFilterWithRandomSeed creates an empty filter keyed by a fresh random
// 32-byte seed.
func NewFilterWithRandomSeed(fpRate float64, capacity int64) *BloomFilter {
	var seed [32]byte
	if _, err := rand.Read(seed[:]); err != nil {
		// crypto/rand only fails when the OS entropy source is broken;
		// there is no sane fallback for a probabilistic data structure.
		panic(err)
	}
	return NewFilterWithFixedSeed(fpRate, capacity, seed)
}

// FilterFromExisting reconstructs a filter from dumped state (snapshot load,
// LOAD blob, COPY).
func FilterFromExisting(bitmap []byte, numBits uint64, numHashes uint32, seed [32]byte, numItems, capacity int64) *BloomFilter {
	f := &BloomFilter{
		bits:      bitsetFromBitmap(numBits, bitmap),
		numBits:   numBits,
		numHashes: numHashes,
		seed:      seed,
		numItems:  numItems,
		capacity:  capacity,
	}
	f.incrMetricsOnCreate()
	metricNumItems.Add(numItems)
	return f
}

// FilterCopyFrom deep-clones a filter preserving seed, counts and bits.
func FilterCopyFrom(from *BloomFilter) *BloomFilter {
	return FilterFromExisting(from.Bitmap(), from.numBits, from.numHashes, from.seed, from.numItems, from.capacity)
}

// hashPair derives the two 64-bit hashes feeding the double-hashing probe
// sequence. Each half of the 32-byte seed keys one hash, so the bit layout
// is a pure function of (seed, item). This hash family is part of the
// on-disk format and must not change without bumping the codec version.
func (f *BloomFilter) hashPair(item []byte) (uint64, uint64) {
	var d xxhash.Digest
	d.Reset()
	d.Write(f.seed[:16])
	d.Write(item)
	h1 := d.Sum64()
	d.Reset()
	d.Write(f.seed[16:])
	d.Write(item)
	return h1, d.Sum64()
}

// Check reports whether every probe bit for the item is set.
func (f *BloomFilter) Check(item []byte) bool {
	h1, h2 := f.hashPair(item)
	for i := uint64(0); i < uint64(f.numHashes); i++ {
		if !f.bits.Test(uint((h1 + i*h2) % f.numBits)) {
			return false
		}
	}
	return true
}

// Set sets every probe bit for the item.
func (f *BloomFilter) Set(item []byte) {
	h1, h2 := f.hashPair(item)
	for i := uint64(0); i < uint64(f.numHashes); i++ {
		f.bits.Set(uint((h1 + i*h2) % f.numBits))
	}
}

func (f *BloomFilter) Seed() [32]byte  { return f.seed }
func (f *BloomFilter) NumItems() int64 { return f.numItems }
func (f *BloomFilter) Capacity() int64 { return f.capacity }
func (f *BloomFilter) NumBits() uint64 { return f.numBits }
func (f *BloomFilter) NumHashes() uint32 { return f.numHashes }

// Bitmap returns the bit storage as little-endian 64-bit words.
func (f *BloomFilter) Bitmap() []byte {
	words := f.bits.Bytes()
	out := make([]byte, len(words)*8)
	for i, w := range words {
		binary.LittleEndian.PutUint64(out[i*8:], w)
	}
	return out
}

func bitsetFromBitmap(numBits uint64, bitmap []byte) *bitset.BitSet {
	words := make([]uint64, len(bitmap)/8)
	for i := range words {
		words[i] = binary.LittleEndian.Uint64(bitmap[i*8:])
	}
	return bitset.FromWithLength(uint(numBits), words)
}

// NumberOfBytes returns the filter's total footprint: struct overhead plus
// bit storage.
func (f *BloomFilter) NumberOfBytes() int64 {
	return filterStructBytes + int64((f.numBits+7)/8)
}

func (f *BloomFilter) incrMetricsOnCreate() {
	metricNumFilters.Add(1)
	metricTotalMemoryBytes.Add(f.NumberOfBytes())
	metricCapacity.Add(f.capacity)
}

// dropMetrics reverses the gauge contributions of this filter. Called by the
// owning object when it is released from the keyspace.
func (f *BloomFilter) dropMetrics() {
	metricNumFilters.Add(-1)
	metricTotalMemoryBytes.Add(-f.NumberOfBytes())
	metricNumItems.Add(-f.numItems)
	metricCapacity.Add(-f.capacity)
}
