package bloom

import (
	"sync"

	"github.com/bits-and-blooms/bitset"
)

// DefragStatus is the result of one Defrag invocation.
type DefragStatus int

const (
	DefragDone     DefragStatus = 0
	DefragMoreWork DefragStatus = 1
)

// DefragContext is the host-provided allocator and cursor store driving one
// incremental defrag pass. Each Alloc method may return a relocated copy of
// the allocation, or nil to keep the current one. The cursor survives
// between invocations so a large object is walked across many host ticks.
type DefragContext interface {
	AllocWords([]uint64) []uint64
	AllocFilter(*BloomFilter) *BloomFilter
	AllocFilters([]*BloomFilter) []*BloomFilter
	AllocObject(*Object) *Object
	ShouldStop() bool
	Cursor() (uint64, bool)
	SetCursor(uint64)
}

// The spare inner bit vector keeps the "every filter has an inner vector"
// invariant intact while a filter's own vector is being swapped out.
var (
	defragSpareMu   sync.Mutex
	defragSpareBits = bitset.New(64)
)

// Defrag walks the object's allocations starting from the saved cursor,
// relocating one filter (outer struct, then inner bit vector) per step
// until the context asks to stop. Returns the object, possibly relocated
// when the final step moved it, and whether more work remains. Objects over
// the memory limit are exempt.
func (o *Object) Defrag(ctx DefragContext) (*Object, DefragStatus) {
	if !DefragEnabled() {
		return o, DefragDone
	}
	if o.MemoryUsage() > MemoryLimit() {
		return o, DefragDone
	}
	cursor, ok := ctx.Cursor()
	if !ok {
		cursor = 0
	}
	numFilters := uint64(len(o.filters))
	for !ctx.ShouldStop() && cursor < numFilters {
		filter := o.filters[cursor]
		if moved := ctx.AllocFilter(filter); moved != nil {
			metricDefragHits.Add(1)
			filter = moved
		} else {
			metricDefragMisses.Add(1)
		}
		if movedWords := ctx.AllocWords(filter.bits.Bytes()); movedWords != nil {
			metricDefragHits.Add(1)
			// Park the old vector in the spare slot so the filter is never
			// observed without an inner vector, then install the moved one.
			defragSpareMu.Lock()
			filter.bits, defragSpareBits = defragSpareBits, filter.bits
			filter.bits = bitset.FromWithLength(uint(filter.numBits), movedWords)
			defragSpareMu.Unlock()
		} else {
			metricDefragMisses.Add(1)
		}
		o.filters[cursor] = filter
		cursor++
	}
	if cursor < numFilters {
		ctx.SetCursor(cursor)
		return o, DefragMoreWork
	}
	if moved := ctx.AllocFilters(o.filters); moved != nil {
		metricDefragHits.Add(1)
		o.filters = moved
	} else {
		metricDefragMisses.Add(1)
	}
	if moved := ctx.AllocObject(o); moved != nil {
		metricDefragHits.Add(1)
		o = moved
	} else {
		metricDefragMisses.Add(1)
	}
	return o, DefragDone
}
