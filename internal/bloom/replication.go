package bloom

import "strconv"

// ReconstructionCommand builds the argument vector of a BF.INSERT that
// recreates this object byte-for-byte on a replica: the full property set
// (including tightening ratio and seed, which clients cannot pass) followed
// by the items accepted by the originating command. Creation paths
// propagate this form; plain adds on an existing object are replayed
// verbatim instead.
func (o *Object) ReconstructionCommand(key string, items []string) []string {
	seed := o.Seed()
	args := []string{
		"BF.INSERT", key,
		"CAPACITY", strconv.FormatInt(o.filters[0].capacity, 10),
		"ERROR", FormatRate(o.fpRate),
		"TIGHTENING", FormatRate(o.tighteningRatio),
		"SEED", string(seed[:]),
	}
	if o.expansion == 0 {
		args = append(args, "NONSCALING")
	} else {
		args = append(args, "EXPANSION", strconv.FormatUint(uint64(o.expansion), 10))
	}
	if len(items) > 0 {
		args = append(args, "ITEMS")
		args = append(args, items...)
	}
	return args
}

// FormatRate renders a float with enough precision to round-trip through
// the replica-side parser.
func FormatRate(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
