package handlers

import (
	"fmt"
	"strings"

	"github.com/genc-murat/crystalbloom/internal/bloom"
	"github.com/genc-murat/crystalbloom/internal/core/models"
	"github.com/genc-murat/crystalbloom/internal/core/ports"
)

// AdminHandlers implements the generic keyspace and introspection commands.
type AdminHandlers struct {
	cache ports.Cache
}

func NewAdminHandlers(cache ports.Cache) *AdminHandlers {
	return &AdminHandlers{cache: cache}
}

func (h *AdminHandlers) HandlePing(args []models.Value) models.Value {
	if len(args) == 1 {
		return models.Value{Type: "bulk", Bulk: args[0].Bulk}
	}
	return models.Value{Type: "string", Str: "PONG"}
}

func (h *AdminHandlers) HandleDel(args []models.Value, replicated bool) WriteResult {
	if len(args) < 1 {
		return WriteResult{Reply: wrongArity("DEL")}
	}
	deleted := 0
	for _, arg := range args {
		if h.cache.Del(arg.Bulk) {
			deleted++
		}
	}
	return WriteResult{Reply: models.Value{Type: "integer", Num: deleted}}
}

func (h *AdminHandlers) HandleExists(args []models.Value) models.Value {
	if len(args) != 1 {
		return wrongArity("EXISTS")
	}
	if h.cache.Exists(args[0].Bulk) {
		return models.Value{Type: "integer", Num: 1}
	}
	return models.Value{Type: "integer", Num: 0}
}

func (h *AdminHandlers) HandleType(args []models.Value) models.Value {
	if len(args) != 1 {
		return wrongArity("TYPE")
	}
	return models.Value{Type: "string", Str: h.cache.Type(args[0].Bulk)}
}

func (h *AdminHandlers) HandleKeys(args []models.Value) models.Value {
	if len(args) != 1 {
		return wrongArity("KEYS")
	}
	keys := h.cache.Keys(args[0].Bulk)
	array := make([]models.Value, len(keys))
	for i, k := range keys {
		array[i] = models.Value{Type: "bulk", Bulk: k}
	}
	return models.Value{Type: "array", Array: array}
}

func (h *AdminHandlers) HandleDBSize(args []models.Value) models.Value {
	return models.Value{Type: "integer", Num: h.cache.DBSize()}
}

func (h *AdminHandlers) HandleFlushAll(args []models.Value, replicated bool) WriteResult {
	h.cache.FlushAll()
	return WriteResult{Reply: models.Value{Type: "string", Str: "OK"}}
}

// HandleCopy handles COPY <src> <dst> [REPLACE], deep-cloning a bloom
// object.
func (h *AdminHandlers) HandleCopy(args []models.Value, replicated bool) WriteResult {
	if len(args) < 2 || len(args) > 3 {
		return WriteResult{Reply: wrongArity("COPY")}
	}
	replace := false
	if len(args) == 3 {
		if strings.ToUpper(args[2].Bulk) != "REPLACE" {
			return WriteResult{Reply: errValue(bloom.ErrUnknownArgument)}
		}
		replace = true
	}
	copied, err := h.cache.Copy(args[0].Bulk, args[1].Bulk, replace)
	if err != nil {
		return WriteResult{Reply: errValue(err)}
	}
	if copied {
		return WriteResult{Reply: models.Value{Type: "integer", Num: 1}}
	}
	return WriteResult{Reply: models.Value{Type: "integer", Num: 0}}
}

// HandleInfo renders the INFO sections, including the bloom core gauges.
func (h *AdminHandlers) HandleInfo(args []models.Value) models.Value {
	m := bloom.MetricsSnapshot()
	var b strings.Builder
	b.WriteString("# keyspace\r\n")
	fmt.Fprintf(&b, "db0:keys=%d\r\n", h.cache.DBSize())
	b.WriteString("# bloom_core_metrics\r\n")
	fmt.Fprintf(&b, "bloom_total_memory_bytes:%d\r\n", m.TotalMemoryBytes)
	fmt.Fprintf(&b, "bloom_num_objects:%d\r\n", m.NumObjects)
	fmt.Fprintf(&b, "bloom_num_filters_across_objects:%d\r\n", m.NumFiltersAcrossObjects)
	fmt.Fprintf(&b, "bloom_num_items_across_objects:%d\r\n", m.NumItemsAcrossObjects)
	fmt.Fprintf(&b, "bloom_capacity_across_objects:%d\r\n", m.CapacityAcrossObjects)
	b.WriteString("# bloom_defrag_metrics\r\n")
	fmt.Fprintf(&b, "bloom_defrag_hits:%d\r\n", m.DefragHits)
	fmt.Fprintf(&b, "bloom_defrag_misses:%d\r\n", m.DefragMisses)
	return models.Value{Type: "bulk", Bulk: b.String()}
}
