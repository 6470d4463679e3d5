package metrics

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/genc-murat/crystalbloom/internal/bloom"
)

// Metrics tracks per-command server statistics. The bloom core gauges live
// in the bloom package; GetStats merges both views.
type Metrics struct {
	cmdCount     int64
	startTime    time.Time
	commandStats map[string]*CommandStats
	mu           sync.RWMutex
}

type CommandStats struct {
	Calls        int64
	TotalTime    int64
	LastExecTime time.Time
}

func NewMetrics() *Metrics {
	return &Metrics{
		startTime:    time.Now(),
		commandStats: make(map[string]*CommandStats),
	}
}

func (m *Metrics) IncrCommandCount() {
	atomic.AddInt64(&m.cmdCount, 1)
}

func (m *Metrics) GetCommandCount() int64 {
	return atomic.LoadInt64(&m.cmdCount)
}

func (m *Metrics) AddCommandExecution(cmd string, duration time.Duration) {
	m.IncrCommandCount()

	m.mu.Lock()
	defer m.mu.Unlock()

	stats, exists := m.commandStats[cmd]
	if !exists {
		stats = &CommandStats{}
		m.commandStats[cmd] = stats
	}
	stats.Calls++
	stats.TotalTime += duration.Nanoseconds()
	stats.LastExecTime = time.Now()
}

func (m *Metrics) GetStats() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := make(map[string]interface{})
	stats["uptime_in_seconds"] = int(time.Since(m.startTime).Seconds())
	stats["total_commands_processed"] = m.GetCommandCount()

	cmdStats := make(map[string]map[string]interface{})
	for cmd, stat := range m.commandStats {
		cmdStats[cmd] = map[string]interface{}{
			"calls":          stat.Calls,
			"total_time_us":  stat.TotalTime / 1000,
			"avg_time_us":    stat.TotalTime / stat.Calls / 1000,
			"last_exec_time": stat.LastExecTime,
		}
	}
	stats["commandstats"] = cmdStats

	core := bloom.MetricsSnapshot()
	stats["bloom_total_memory_bytes"] = core.TotalMemoryBytes
	stats["bloom_num_objects"] = core.NumObjects
	stats["bloom_num_filters_across_objects"] = core.NumFiltersAcrossObjects
	stats["bloom_num_items_across_objects"] = core.NumItemsAcrossObjects
	stats["bloom_capacity_across_objects"] = core.CapacityAcrossObjects
	stats["bloom_defrag_hits"] = core.DefragHits
	stats["bloom_defrag_misses"] = core.DefragMisses

	return stats
}
