package handlers

import (
	"path/filepath"
	"strconv"
	"strings"

	"github.com/genc-murat/crystalbloom/internal/bloom"
	"github.com/genc-murat/crystalbloom/internal/core/models"
)

// ConfigHandlers implements CONFIG GET/SET over the bloom runtime knobs.
// The range checks are the same ones command parsing applies.
type ConfigHandlers struct{}

func NewConfigHandlers() *ConfigHandlers {
	return &ConfigHandlers{}
}

func configSnapshot() map[string]string {
	fpRate, tighteningRatio := bloom.DefaultRates()
	return map[string]string{
		"bf-bloom-capacity":         strconv.FormatInt(bloom.DefaultCapacity(), 10),
		"bf-bloom-expansion":        strconv.FormatUint(uint64(bloom.DefaultExpansion()), 10),
		"bf-bloom-fp-rate":          bloom.FormatRate(fpRate),
		"bf-bloom-tightening-ratio": bloom.FormatRate(tighteningRatio),
		"bf-bloom-use-random-seed":  boolConfig(bloom.UseRandomSeed()),
		"bf-bloom-memory-limit":     strconv.FormatInt(bloom.MemoryLimit(), 10),
		"bf-bloom-max-filters":      strconv.FormatInt(bloom.MaxFilters(), 10),
		"bf-bloom-defrag-enabled":   boolConfig(bloom.DefragEnabled()),
	}
}

func boolConfig(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func (h *ConfigHandlers) HandleConfig(args []models.Value) models.Value {
	if len(args) < 1 {
		return wrongArity("CONFIG")
	}
	switch strings.ToUpper(args[0].Bulk) {
	case "GET":
		if len(args) != 2 {
			return wrongArity("CONFIG GET")
		}
		return h.handleGet(args[1].Bulk)
	case "SET":
		if len(args) != 3 {
			return wrongArity("CONFIG SET")
		}
		return h.handleSet(strings.ToLower(args[1].Bulk), args[2].Bulk)
	default:
		return errValue(bloom.ErrUnknownArgument)
	}
}

func (h *ConfigHandlers) handleGet(pattern string) models.Value {
	var array []models.Value
	for name, value := range configSnapshot() {
		if matched, err := filepath.Match(pattern, name); err == nil && matched {
			array = append(array,
				models.Value{Type: "bulk", Bulk: name},
				models.Value{Type: "bulk", Bulk: value})
		}
	}
	return models.Value{Type: "array", Array: array}
}

func (h *ConfigHandlers) handleSet(name, raw string) models.Value {
	var err error
	switch name {
	case "bf-bloom-capacity":
		v, parseErr := strconv.ParseInt(raw, 10, 64)
		if parseErr != nil {
			return errValue(bloom.ErrBadCapacity)
		}
		err = bloom.SetDefaultCapacity(v)
	case "bf-bloom-expansion":
		v, parseErr := strconv.ParseUint(raw, 10, 32)
		if parseErr != nil {
			return errValue(bloom.ErrBadExpansion)
		}
		err = bloom.SetDefaultExpansion(uint32(v))
	case "bf-bloom-fp-rate":
		v, parseErr := strconv.ParseFloat(raw, 64)
		if parseErr != nil {
			return errValue(bloom.ErrBadErrorRate)
		}
		err = bloom.SetDefaultFpRate(v)
	case "bf-bloom-tightening-ratio":
		v, parseErr := strconv.ParseFloat(raw, 64)
		if parseErr != nil {
			return errValue(bloom.ErrBadTighteningRatio)
		}
		err = bloom.SetDefaultTighteningRatio(v)
	case "bf-bloom-use-random-seed":
		bloom.SetUseRandomSeed(strings.EqualFold(raw, "yes") || raw == "1")
	case "bf-bloom-memory-limit":
		v, parseErr := strconv.ParseInt(raw, 10, 64)
		if parseErr != nil {
			return errValue(bloom.ErrBadCapacity)
		}
		err = bloom.SetMemoryLimit(v)
	case "bf-bloom-max-filters":
		v, parseErr := strconv.ParseInt(raw, 10, 64)
		if parseErr != nil {
			return errValue(bloom.ErrBadCapacity)
		}
		err = bloom.SetMaxFilters(v)
	case "bf-bloom-defrag-enabled":
		bloom.SetDefragEnabled(strings.EqualFold(raw, "yes") || raw == "1")
	default:
		return errValue(bloom.ErrUnknownArgument)
	}
	if err != nil {
		return errValue(err)
	}
	return models.Value{Type: "string", Str: "OK"}
}
