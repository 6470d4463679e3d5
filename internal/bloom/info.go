package bloom

// InsertOptions carries the fully resolved properties of a BF.INSERT (or
// the create half of BF.ADD/BF.MADD): command arguments merged over the
// configured defaults by the parser.
type InsertOptions struct {
	FpRate          float64
	TighteningRatio float64
	Capacity        int64
	Expansion       uint32
	Seed            *[32]byte
	SeedIsRandom    bool
	NoCreate        bool
	ValidateScaleTo int64 // -1 when not requested
	ValidateSize    bool
}

// DefaultInsertOptions resolves the configured defaults, including the
// seed policy.
func DefaultInsertOptions() InsertOptions {
	fpRate, tighteningRatio := DefaultRates()
	opts := InsertOptions{
		FpRate:          fpRate,
		TighteningRatio: tighteningRatio,
		Capacity:        DefaultCapacity(),
		Expansion:       DefaultExpansion(),
		ValidateScaleTo: -1,
		ValidateSize:    true,
	}
	if !UseRandomSeed() {
		seed := FixedSeed
		opts.Seed = &seed
	} else {
		opts.SeedIsRandom = true
	}
	return opts
}

// ObjectInfo is the BF.INFO view of an object.
type ObjectInfo struct {
	Capacity          int64
	SizeBytes         int64
	NumFilters        int64
	NumItems          int64
	Expansion         uint32
	MaxScaledCapacity int64
}

// Info snapshots the object for BF.INFO.
func (o *Object) Info() ObjectInfo {
	maxScaled, err := o.MaxScaledCapacity()
	if err != nil {
		maxScaled = o.Capacity()
	}
	return ObjectInfo{
		Capacity:          o.Capacity(),
		SizeBytes:         o.MemoryUsage(),
		NumFilters:        int64(o.NumFilters()),
		NumItems:          o.Cardinality(),
		Expansion:         o.expansion,
		MaxScaledCapacity: maxScaled,
	}
}
