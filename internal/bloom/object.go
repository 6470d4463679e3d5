package bloom

// Object is the user-visible bloom value: an ordered sequence of filters
// plus the scaling policy under which new filters are appended. Only the
// last filter accepts new items; every other filter is filled to capacity.
// The host serializes access per key, so Object performs no locking.
type Object struct {
	expansion       uint32
	fpRate          float64
	tighteningRatio float64
	isSeedRandom    bool
	filters         []*BloomFilter
}

// NewReserved creates a single-filter object. A nil seed draws a random one
// and marks the object seed-random; a caller-supplied seed is used verbatim
// together with the caller's seedIsRandom flag. Argument ranges are the
// caller's responsibility; the size limit is enforced here when
// validateSize is set.
func NewReserved(fpRate, tighteningRatio float64, capacity int64, expansion uint32, seed *[32]byte, seedIsRandom bool, validateSize bool) (*Object, error) {
	if validateSize && !ValidateSizeBeforeCreate(capacity, fpRate) {
		return nil, ErrExceedsMaxBloomSize
	}
	var filter *BloomFilter
	isSeedRandom := false
	if seed == nil {
		isSeedRandom = true
		filter = NewFilterWithRandomSeed(fpRate, capacity)
	} else {
		isSeedRandom = seedIsRandom
		filter = NewFilterWithFixedSeed(fpRate, capacity, *seed)
	}
	o := &Object{
		expansion:       expansion,
		fpRate:          fpRate,
		tighteningRatio: tighteningRatio,
		isSeedRandom:    isSeedRandom,
		filters:         []*BloomFilter{filter},
	}
	o.incrMetricsOnCreate()
	return o, nil
}

// FromExisting assembles an object around restored filters (snapshot load,
// LOAD blob). The filters must already share one seed.
func FromExisting(expansion uint32, fpRate, tighteningRatio float64, isSeedRandom bool, filters []*BloomFilter) *Object {
	o := &Object{
		expansion:       expansion,
		fpRate:          fpRate,
		tighteningRatio: tighteningRatio,
		isSeedRandom:    isSeedRandom,
		filters:         filters,
	}
	o.incrMetricsOnCreate()
	return o
}

// CopyFrom deep-clones an object preserving every attribute including seed,
// counts and bit contents.
func CopyFrom(from *Object) *Object {
	filters := make([]*BloomFilter, 0, filterSliceCap(len(from.filters)))
	for _, f := range from.filters {
		filters = append(filters, FilterCopyFrom(f))
	}
	from.incrMetricsOnCreate()
	return &Object{
		expansion:       from.expansion,
		fpRate:          from.fpRate,
		tighteningRatio: from.tighteningRatio,
		isSeedRandom:    from.isSeedRandom,
		filters:         filters,
	}
}

// Add inserts an item. Returns 1 if the item was added, 0 if any filter
// already reports it present. A full last filter either scales out (adding
// a filter with tightened fp rate and expanded capacity) or fails when the
// object is non-scaling or a limit is hit. Failed adds leave the object
// unchanged.
func (o *Object) Add(item []byte, validateSize bool) (int64, error) {
	if o.Exists(item) {
		return 0, nil
	}
	last := o.filters[len(o.filters)-1]
	if last.numItems < last.capacity {
		last.Set(item)
		last.numItems++
		metricNumItems.Add(1)
		return 1, nil
	}
	if o.expansion == 0 {
		return 0, ErrNonScalingFilterFull
	}
	numFilters := len(o.filters)
	if int64(numFilters) >= MaxFilters() {
		return 0, ErrMaxNumScalingFilters
	}
	newFpRate, err := calculateFpRate(o.fpRate, numFilters, o.tighteningRatio)
	if err != nil {
		return 0, err
	}
	newCapacity, ok := mulCapacity(last.capacity, o.expansion)
	if !ok {
		return 0, ErrBadCapacity
	}
	if validateSize && !o.validateSizeBeforeScaling(newCapacity, newFpRate) {
		return 0, ErrExceedsMaxBloomSize
	}
	overheadBefore := objectOverheadBytes(numFilters)
	newFilter := NewFilterWithFixedSeed(newFpRate, newCapacity, o.Seed())
	newFilter.Set(item)
	newFilter.numItems = 1
	o.filters = append(o.filters, newFilter)
	metricTotalMemoryBytes.Add(objectOverheadBytes(len(o.filters)) - overheadBefore)
	metricNumItems.Add(1)
	return 1, nil
}

// validateSizeBeforeScaling checks the object's projected total against the
// memory limit using the same overhead model as the scale planner.
func (o *Object) validateSizeBeforeScaling(newCapacity int64, newFpRate float64) bool {
	projected := objectOverheadBytes(len(o.filters)+1) + o.filterBytes() + ComputeFilterSize(newCapacity, newFpRate)
	return projected >= 0 && projected <= MemoryLimit()
}

// Exists reports whether any filter claims the item. May be a false
// positive at a rate bounded by fpRate / (1 - tighteningRatio).
func (o *Object) Exists(item []byte) bool {
	for _, f := range o.filters {
		if f.Check(item) {
			return true
		}
	}
	return false
}

// Cardinality is the number of accepted inserts across all filters.
func (o *Object) Cardinality() int64 {
	var n int64
	for _, f := range o.filters {
		n += f.numItems
	}
	return n
}

// Capacity is the total capacity across all filters.
func (o *Object) Capacity() int64 {
	var c int64
	for _, f := range o.filters {
		c += f.capacity
	}
	return c
}

// MemoryUsage is the object's own overhead plus every filter's footprint.
func (o *Object) MemoryUsage() int64 {
	return objectOverheadBytes(len(o.filters)) + o.filterBytes()
}

func (o *Object) filterBytes() int64 {
	var b int64
	for _, f := range o.filters {
		b += f.NumberOfBytes()
	}
	return b
}

// Seed returns the seed of the first filter; every filter shares it.
func (o *Object) Seed() [32]byte { return o.filters[0].seed }

func (o *Object) Expansion() uint32        { return o.expansion }
func (o *Object) FpRate() float64          { return o.fpRate }
func (o *Object) TighteningRatio() float64 { return o.tighteningRatio }
func (o *Object) IsSeedRandom() bool       { return o.isSeedRandom }
func (o *Object) NumFilters() int          { return len(o.filters) }
func (o *Object) Filters() []*BloomFilter  { return o.filters }

// MaxScaledCapacity answers how far this object can scale within the
// memory limit and fp floor.
func (o *Object) MaxScaledCapacity() (int64, error) {
	first := o.filters[0]
	return MaxScaledCapacity(first.capacity, o.fpRate, -1, o.tighteningRatio, o.expansion)
}

func (o *Object) incrMetricsOnCreate() {
	metricNumObjects.Add(1)
	metricTotalMemoryBytes.Add(objectOverheadBytes(len(o.filters)))
}

// Release reverses every gauge contribution of the object and its filters.
// The keyspace calls this when a bloom value is deleted, overwritten or
// flushed.
func (o *Object) Release() {
	for _, f := range o.filters {
		f.dropMetrics()
	}
	metricNumObjects.Add(-1)
	metricTotalMemoryBytes.Add(-objectOverheadBytes(len(o.filters)))
}
