package handlers

import (
	"strings"

	"github.com/genc-murat/crystalbloom/internal/bloom"
	"github.com/genc-murat/crystalbloom/internal/core/models"
	"github.com/genc-murat/crystalbloom/internal/core/ports"
	"github.com/genc-murat/crystalbloom/internal/util"
)

// WriteResult is what a mutating handler hands back to the server: the
// client reply plus an optional replacement command for replication and the
// append-only log. A nil Repl means the original client command is already
// deterministic and is propagated verbatim.
type WriteResult struct {
	Reply models.Value
	Repl  *models.Value
}

// BloomFilterHandlers parses the BF.* command family and drives the cache.
type BloomFilterHandlers struct {
	cache ports.Cache
}

func NewBloomFilterHandlers(cache ports.Cache) *BloomFilterHandlers {
	return &BloomFilterHandlers{cache: cache}
}

func errValue(err error) models.Value {
	return models.Value{Type: "error", Str: err.Error()}
}

func wrongArity(cmd string) models.Value {
	return models.Value{Type: "error", Str: "ERR wrong number of arguments for '" + cmd + "' command"}
}

// HandleBFReserve handles BF.RESERVE <key> <fp_rate> <capacity>
// [NONSCALING | EXPANSION <n>].
func (h *BloomFilterHandlers) HandleBFReserve(args []models.Value, replicated bool) WriteResult {
	if len(args) < 3 || len(args) > 5 {
		return WriteResult{Reply: wrongArity("BF.RESERVE")}
	}
	key := args[0].Bulk
	fpRate, err := util.ParseFloat(args[1])
	if err != nil {
		return WriteResult{Reply: errValue(bloom.ErrBadErrorRate)}
	}
	if !(fpRate > bloom.FpRateMin && fpRate < bloom.FpRateMax) {
		return WriteResult{Reply: errValue(bloom.ErrErrorRateRange)}
	}
	capacity, err := util.ParseInt64(args[2])
	if err != nil || capacity < 0 {
		return WriteResult{Reply: errValue(bloom.ErrBadCapacity)}
	}
	if capacity == 0 {
		return WriteResult{Reply: errValue(bloom.ErrCapacityLargerThan0)}
	}
	expansion := bloom.DefaultExpansion()
	switch len(args) {
	case 4:
		if strings.ToUpper(args[3].Bulk) != "NONSCALING" {
			return WriteResult{Reply: errValue(bloom.ErrUnknownArgument)}
		}
		expansion = 0
	case 5:
		if strings.ToUpper(args[3].Bulk) != "EXPANSION" {
			return WriteResult{Reply: errValue(bloom.ErrUnknownArgument)}
		}
		exp, err := util.ParseUint32(args[4])
		if err != nil || exp < bloom.ExpansionMin || exp > bloom.ExpansionMax {
			return WriteResult{Reply: errValue(bloom.ErrBadExpansion)}
		}
		expansion = exp
	}
	obj, err := h.cache.BFReserve(key, fpRate, capacity, expansion)
	if err != nil {
		return WriteResult{Reply: errValue(err)}
	}
	repl := models.NewCommand(obj.ReconstructionCommand(key, nil)...)
	return WriteResult{
		Reply: models.Value{Type: "string", Str: "OK"},
		Repl:  &repl,
	}
}

// HandleBFAdd handles BF.ADD <key> <item>, creating the object with
// configured defaults when the key is missing.
func (h *BloomFilterHandlers) HandleBFAdd(args []models.Value, replicated bool) WriteResult {
	if len(args) != 2 {
		return WriteResult{Reply: wrongArity("BF.ADD")}
	}
	key := args[0].Bulk
	item := args[1].Bulk
	added, created, err := h.cache.BFAdd(key, item)
	if err != nil {
		return WriteResult{Reply: errValue(err)}
	}
	result := WriteResult{Reply: models.Value{Type: "integer", Num: int(added)}}
	if created != nil {
		repl := models.NewCommand(created.ReconstructionCommand(key, []string{item})...)
		result.Repl = &repl
	}
	return result
}

// HandleBFMAdd handles BF.MADD <key> <item> [item ...].
func (h *BloomFilterHandlers) HandleBFMAdd(args []models.Value, replicated bool) WriteResult {
	if len(args) < 2 {
		return WriteResult{Reply: wrongArity("BF.MADD")}
	}
	key := args[0].Bulk
	items := bulkStrings(args[1:])
	results, created, err := h.cache.BFMAdd(key, items)
	if err != nil {
		return WriteResult{Reply: errValue(err)}
	}
	result := WriteResult{Reply: models.Value{Type: "array", Array: results}}
	if created != nil {
		repl := models.NewCommand(created.ReconstructionCommand(key, items)...)
		result.Repl = &repl
	}
	return result
}

// HandleBFInsert handles the full BF.INSERT grammar. TIGHTENING and SEED
// only parse on the replica-facing path; a primary derives them from config
// when it creates the object.
func (h *BloomFilterHandlers) HandleBFInsert(args []models.Value, replicated bool) WriteResult {
	if len(args) < 1 {
		return WriteResult{Reply: wrongArity("BF.INSERT")}
	}
	key := args[0].Bulk
	opts := bloom.DefaultInsertOptions()
	opts.ValidateSize = !replicated
	var items []string
	idx := 1
	for idx < len(args) {
		switch strings.ToUpper(args[idx].Bulk) {
		case "ERROR":
			if idx >= len(args)-1 {
				return WriteResult{Reply: wrongArity("BF.INSERT")}
			}
			idx++
			fpRate, err := util.ParseFloat(args[idx])
			if err != nil {
				return WriteResult{Reply: errValue(bloom.ErrBadErrorRate)}
			}
			if !(fpRate > bloom.FpRateMin && fpRate < bloom.FpRateMax) {
				return WriteResult{Reply: errValue(bloom.ErrErrorRateRange)}
			}
			opts.FpRate = fpRate
		case "CAPACITY":
			if idx >= len(args)-1 {
				return WriteResult{Reply: wrongArity("BF.INSERT")}
			}
			idx++
			capacity, err := util.ParseInt64(args[idx])
			if err != nil || capacity < 0 {
				return WriteResult{Reply: errValue(bloom.ErrBadCapacity)}
			}
			if capacity == 0 {
				return WriteResult{Reply: errValue(bloom.ErrCapacityLargerThan0)}
			}
			opts.Capacity = capacity
		case "TIGHTENING":
			if !replicated {
				return WriteResult{Reply: errValue(bloom.ErrUnknownArgument)}
			}
			if idx >= len(args)-1 {
				return WriteResult{Reply: wrongArity("BF.INSERT")}
			}
			idx++
			ratio, err := util.ParseFloat(args[idx])
			if err != nil {
				return WriteResult{Reply: errValue(bloom.ErrBadTighteningRatio)}
			}
			if !(ratio > bloom.TighteningRatioMin && ratio < bloom.TighteningRatioMax) {
				return WriteResult{Reply: errValue(bloom.ErrTighteningRatioRange)}
			}
			opts.TighteningRatio = ratio
		case "SEED":
			if !replicated {
				return WriteResult{Reply: errValue(bloom.ErrUnknownArgument)}
			}
			if idx >= len(args)-1 {
				return WriteResult{Reply: wrongArity("BF.INSERT")}
			}
			idx++
			raw := []byte(args[idx].Bulk)
			if len(raw) != 32 {
				return WriteResult{Reply: errValue(bloom.ErrInvalidSeed)}
			}
			var seed [32]byte
			copy(seed[:], raw)
			opts.Seed = &seed
			opts.SeedIsRandom = seed != bloom.FixedSeed
		case "EXPANSION":
			if idx >= len(args)-1 {
				return WriteResult{Reply: wrongArity("BF.INSERT")}
			}
			idx++
			exp, err := util.ParseUint32(args[idx])
			if err != nil || exp < bloom.ExpansionMin || exp > bloom.ExpansionMax {
				return WriteResult{Reply: errValue(bloom.ErrBadExpansion)}
			}
			opts.Expansion = exp
		case "NONSCALING":
			opts.Expansion = 0
		case "NOCREATE":
			opts.NoCreate = true
		case "VALIDATESCALETO":
			if idx >= len(args)-1 {
				return WriteResult{Reply: wrongArity("BF.INSERT")}
			}
			idx++
			target, err := util.ParseInt64(args[idx])
			if err != nil || target < 1 {
				return WriteResult{Reply: errValue(bloom.ErrBadCapacity)}
			}
			opts.ValidateScaleTo = target
		case "ITEMS":
			if idx >= len(args)-1 {
				return WriteResult{Reply: wrongArity("BF.INSERT")}
			}
			items = bulkStrings(args[idx+1:])
			idx = len(args) - 1
		default:
			return WriteResult{Reply: errValue(bloom.ErrUnknownArgument)}
		}
		idx++
	}
	if opts.ValidateScaleTo >= 0 && opts.Expansion == 0 {
		return WriteResult{Reply: errValue(bloom.ErrBadExpansion)}
	}
	results, created, err := h.cache.BFInsert(key, opts, items)
	if err != nil {
		return WriteResult{Reply: errValue(err)}
	}
	result := WriteResult{Reply: models.Value{Type: "array", Array: results}}
	if created != nil {
		repl := models.NewCommand(created.ReconstructionCommand(key, items)...)
		result.Repl = &repl
	}
	return result
}

// HandleBFExists handles BF.EXISTS <key> <item>.
func (h *BloomFilterHandlers) HandleBFExists(args []models.Value) models.Value {
	if len(args) != 2 {
		return wrongArity("BF.EXISTS")
	}
	found := h.cache.BFExists(args[0].Bulk, args[1].Bulk)
	return models.Value{Type: "integer", Num: int(found)}
}

// HandleBFMExists handles BF.MEXISTS <key> <item> [item ...].
func (h *BloomFilterHandlers) HandleBFMExists(args []models.Value) models.Value {
	if len(args) < 2 {
		return wrongArity("BF.MEXISTS")
	}
	results := h.cache.BFMExists(args[0].Bulk, bulkStrings(args[1:]))
	array := make([]models.Value, len(results))
	for i, r := range results {
		array[i] = models.Value{Type: "integer", Num: int(r)}
	}
	return models.Value{Type: "array", Array: array}
}

// HandleBFCard handles BF.CARD <key>. A missing key reports 0.
func (h *BloomFilterHandlers) HandleBFCard(args []models.Value) models.Value {
	if len(args) != 1 {
		return wrongArity("BF.CARD")
	}
	return models.Value{Type: "integer", Num: int(h.cache.BFCard(args[0].Bulk))}
}

// HandleBFInfo handles BF.INFO <key> [field].
func (h *BloomFilterHandlers) HandleBFInfo(args []models.Value) models.Value {
	if len(args) < 1 || len(args) > 2 {
		return wrongArity("BF.INFO")
	}
	info, err := h.cache.BFInfo(args[0].Bulk)
	if err != nil {
		return errValue(err)
	}
	expansionValue := models.Value{Type: "null"}
	if info.Expansion != 0 {
		expansionValue = models.Value{Type: "integer", Num: int(info.Expansion)}
	}
	if len(args) == 2 {
		switch strings.ToUpper(args[1].Bulk) {
		case "CAPACITY":
			return models.Value{Type: "integer", Num: int(info.Capacity)}
		case "SIZE":
			return models.Value{Type: "integer", Num: int(info.SizeBytes)}
		case "FILTERS":
			return models.Value{Type: "integer", Num: int(info.NumFilters)}
		case "ITEMS":
			return models.Value{Type: "integer", Num: int(info.NumItems)}
		case "EXPANSION":
			return expansionValue
		case "MAXSCALEDCAPACITY":
			return models.Value{Type: "integer", Num: int(info.MaxScaledCapacity)}
		default:
			return errValue(bloom.ErrInvalidInfoValue)
		}
	}
	return models.Value{Type: "array", Array: []models.Value{
		{Type: "string", Str: "Capacity"},
		{Type: "integer", Num: int(info.Capacity)},
		{Type: "string", Str: "Size"},
		{Type: "integer", Num: int(info.SizeBytes)},
		{Type: "string", Str: "Number of filters"},
		{Type: "integer", Num: int(info.NumFilters)},
		{Type: "string", Str: "Number of items inserted"},
		{Type: "integer", Num: int(info.NumItems)},
		{Type: "string", Str: "Expansion rate"},
		expansionValue,
	}}
}

// HandleBFLoad handles BF.LOAD <key> <encoded-blob>. The command is its own
// deterministic reconstruction, so it replicates verbatim.
func (h *BloomFilterHandlers) HandleBFLoad(args []models.Value, replicated bool) WriteResult {
	if len(args) != 2 {
		return WriteResult{Reply: wrongArity("BF.LOAD")}
	}
	if _, err := h.cache.BFLoad(args[0].Bulk, []byte(args[1].Bulk), !replicated); err != nil {
		return WriteResult{Reply: errValue(err)}
	}
	return WriteResult{Reply: models.Value{Type: "string", Str: "OK"}}
}

func bulkStrings(args []models.Value) []string {
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = a.Bulk
	}
	return out
}
