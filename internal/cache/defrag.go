package cache

import (
	"sync"
	"time"

	"github.com/genc-murat/crystalbloom/internal/bloom"
)

// defragState carries the per-key cursors between defragTick passes, each
// of which is one time-bounded pass over the keyspace, so an object too
// large to finish inside one budget resumes where it stopped.
type defragState struct {
	mu      sync.Mutex
	cursors map[string]uint64
	nextKey string
}

// budgetContext implements bloom.DefragContext with a wall-clock budget.
// Allocations are "moved" by copying into fresh memory, which is how a
// garbage-collected runtime compacts long-lived objects.
type budgetContext struct {
	deadline time.Time
	state    *defragState
	key      string
}

func (ctx *budgetContext) ShouldStop() bool {
	return time.Now().After(ctx.deadline)
}

func (ctx *budgetContext) Cursor() (uint64, bool) {
	ctx.state.mu.Lock()
	defer ctx.state.mu.Unlock()
	cursor, ok := ctx.state.cursors[ctx.key]
	return cursor, ok
}

func (ctx *budgetContext) SetCursor(cursor uint64) {
	ctx.state.mu.Lock()
	defer ctx.state.mu.Unlock()
	ctx.state.cursors[ctx.key] = cursor
}

func (ctx *budgetContext) clearCursor() {
	ctx.state.mu.Lock()
	defer ctx.state.mu.Unlock()
	delete(ctx.state.cursors, ctx.key)
}

func (ctx *budgetContext) AllocWords(words []uint64) []uint64 {
	moved := make([]uint64, len(words))
	copy(moved, words)
	return moved
}

func (ctx *budgetContext) AllocFilter(f *bloom.BloomFilter) *bloom.BloomFilter {
	moved := *f
	return &moved
}

func (ctx *budgetContext) AllocFilters(filters []*bloom.BloomFilter) []*bloom.BloomFilter {
	moved := make([]*bloom.BloomFilter, len(filters), cap(filters))
	copy(moved, filters)
	return moved
}

func (ctx *budgetContext) AllocObject(o *bloom.Object) *bloom.Object {
	moved := *o
	return &moved
}

// StartDefragmentation runs the incremental defragmenter every interval,
// spending at most budget of wall time per tick across the keyspace.
func (c *MemoryCache) StartDefragmentation(interval, budget time.Duration) {
	state := &defragState{cursors: make(map[string]uint64)}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.defragTick(state, budget)
			case <-c.defragStop:
				return
			}
		}
	}()
}

// StopDefragmentation stops the background loop. Safe to call once.
func (c *MemoryCache) StopDefragmentation() {
	c.defragOnce.Do(func() { close(c.defragStop) })
}

func (c *MemoryCache) defragTick(state *defragState, budget time.Duration) {
	if !bloom.DefragEnabled() {
		return
	}
	deadline := time.Now().Add(budget)
	c.objects.Range(func(k, v interface{}) bool {
		key := k.(string)
		if time.Now().After(deadline) {
			return false
		}
		ctx := &budgetContext{deadline: deadline, state: state, key: key}
		lock := c.keyLock(key)
		lock.Lock()
		// The object may have been deleted while we waited on the lock.
		if cur, ok := c.objects.Load(key); ok {
			obj := cur.(*bloom.Object)
			moved, status := obj.Defrag(ctx)
			if moved != obj {
				c.objects.Store(key, moved)
			}
			if status == bloom.DefragDone {
				ctx.clearCursor()
			}
		}
		lock.Unlock()
		return true
	})
}
