package cache

import (
	"log"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/genc-murat/crystalbloom/internal/bloom"
	"github.com/genc-murat/crystalbloom/internal/core/models"
)

// BloomTypeName is what TYPE reports for bloom keys.
const BloomTypeName = "bloomfltr"

// MemoryCache is the in-memory keyspace mapping key names to bloom
// objects. Objects themselves are not synchronized; the cache serializes
// all access to one key through a per-key mutex.
type MemoryCache struct {
	objects     sync.Map // key -> *bloom.Object
	keyLocks    sync.Map // key -> *sync.Mutex
	keyVersions sync.Map // key -> *int64
	cmdCount    int64

	defragStop chan struct{}
	defragOnce sync.Once
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		defragStop: make(chan struct{}),
	}
}

func (c *MemoryCache) keyLock(key string) *sync.Mutex {
	lockI, _ := c.keyLocks.LoadOrStore(key, &sync.Mutex{})
	return lockI.(*sync.Mutex)
}

func (c *MemoryCache) incrementKeyVersion(key string) {
	versionI, _ := c.keyVersions.LoadOrStore(key, new(int64))
	atomic.AddInt64(versionI.(*int64), 1)
}

func (c *MemoryCache) GetKeyVersion(key string) int64 {
	if versionI, ok := c.keyVersions.Load(key); ok {
		return atomic.LoadInt64(versionI.(*int64))
	}
	return 0
}

func (c *MemoryCache) IncrCommandCount() {
	atomic.AddInt64(&c.cmdCount, 1)
}

// BFReserve creates an empty bloom object with explicit properties. Fails
// with BUSYKEY when the key already holds a value.
func (c *MemoryCache) BFReserve(key string, fpRate float64, capacity int64, expansion uint32) (*bloom.Object, error) {
	lock := c.keyLock(key)
	lock.Lock()
	defer lock.Unlock()

	if _, exists := c.objects.Load(key); exists {
		return nil, bloom.ErrKeyExists
	}
	opts := bloom.DefaultInsertOptions()
	obj, err := bloom.NewReserved(fpRate, opts.TighteningRatio, capacity, expansion, opts.Seed, opts.SeedIsRandom, true)
	if err != nil {
		return nil, err
	}
	c.objects.Store(key, obj)
	c.incrementKeyVersion(key)
	return obj, nil
}

// BFAdd adds one item, creating the object with configured defaults when
// the key is missing. The created object (nil for an existing key) lets the
// caller replicate creations deterministically.
func (c *MemoryCache) BFAdd(key string, item string) (int64, *bloom.Object, error) {
	lock := c.keyLock(key)
	lock.Lock()
	defer lock.Unlock()

	obj, created, err := c.loadOrCreate(key)
	if err != nil {
		return 0, nil, err
	}
	added, err := obj.Add([]byte(item), true)
	if err != nil {
		if created != nil {
			c.dropObject(key, created)
		}
		return 0, nil, err
	}
	if added == 1 {
		c.incrementKeyVersion(key)
	}
	return added, created, nil
}

// BFMAdd adds a batch of items. Per-item errors become inline error values
// and stop the batch; earlier results are kept.
func (c *MemoryCache) BFMAdd(key string, items []string) ([]models.Value, *bloom.Object, error) {
	lock := c.keyLock(key)
	lock.Lock()
	defer lock.Unlock()

	obj, created, err := c.loadOrCreate(key)
	if err != nil {
		return nil, nil, err
	}
	results := addItems(obj, items, true)
	c.incrementKeyVersion(key)
	return results, created, nil
}

// BFInsert implements the create-or-add semantics of BF.INSERT with fully
// resolved options.
func (c *MemoryCache) BFInsert(key string, opts bloom.InsertOptions, items []string) ([]models.Value, *bloom.Object, error) {
	lock := c.keyLock(key)
	lock.Lock()
	defer lock.Unlock()

	var created *bloom.Object
	objI, exists := c.objects.Load(key)
	var obj *bloom.Object
	if exists {
		obj = objI.(*bloom.Object)
	} else {
		if opts.NoCreate {
			return nil, nil, bloom.ErrNotFound
		}
		if opts.ValidateScaleTo >= 0 {
			if _, err := bloom.MaxScaledCapacity(opts.Capacity, opts.FpRate, opts.ValidateScaleTo, opts.TighteningRatio, opts.Expansion); err != nil {
				return nil, nil, err
			}
		}
		var err error
		obj, err = bloom.NewReserved(opts.FpRate, opts.TighteningRatio, opts.Capacity, opts.Expansion, opts.Seed, opts.SeedIsRandom, opts.ValidateSize)
		if err != nil {
			return nil, nil, err
		}
		c.objects.Store(key, obj)
		created = obj
	}
	results := addItems(obj, items, opts.ValidateSize)
	c.incrementKeyVersion(key)
	return results, created, nil
}

// addItems runs the multi-add loop: inline error values, stop at the first
// error.
func addItems(obj *bloom.Object, items []string, validateSize bool) []models.Value {
	results := make([]models.Value, 0, len(items))
	for _, item := range items {
		added, err := obj.Add([]byte(item), validateSize)
		if err != nil {
			results = append(results, models.Value{Type: "error", Str: err.Error()})
			break
		}
		results = append(results, models.Value{Type: "integer", Num: int(added)})
	}
	return results
}

// loadOrCreate returns the object at key, creating it with configured
// defaults when missing.
func (c *MemoryCache) loadOrCreate(key string) (obj *bloom.Object, created *bloom.Object, err error) {
	if objI, exists := c.objects.Load(key); exists {
		return objI.(*bloom.Object), nil, nil
	}
	opts := bloom.DefaultInsertOptions()
	obj, err = bloom.NewReserved(opts.FpRate, opts.TighteningRatio, opts.Capacity, opts.Expansion, opts.Seed, opts.SeedIsRandom, true)
	if err != nil {
		return nil, nil, err
	}
	c.objects.Store(key, obj)
	return obj, obj, nil
}

// dropObject removes a just-created object again after a failed first add,
// so failed operations leave no state behind.
func (c *MemoryCache) dropObject(key string, obj *bloom.Object) {
	c.objects.Delete(key)
	obj.Release()
}

func (c *MemoryCache) BFExists(key string, item string) int64 {
	lock := c.keyLock(key)
	lock.Lock()
	defer lock.Unlock()

	objI, exists := c.objects.Load(key)
	if !exists {
		return 0
	}
	if objI.(*bloom.Object).Exists([]byte(item)) {
		return 1
	}
	return 0
}

func (c *MemoryCache) BFMExists(key string, items []string) []int64 {
	lock := c.keyLock(key)
	lock.Lock()
	defer lock.Unlock()

	results := make([]int64, len(items))
	objI, exists := c.objects.Load(key)
	if !exists {
		return results
	}
	obj := objI.(*bloom.Object)
	for i, item := range items {
		if obj.Exists([]byte(item)) {
			results[i] = 1
		}
	}
	return results
}

func (c *MemoryCache) BFCard(key string) int64 {
	lock := c.keyLock(key)
	lock.Lock()
	defer lock.Unlock()

	objI, exists := c.objects.Load(key)
	if !exists {
		return 0
	}
	return objI.(*bloom.Object).Cardinality()
}

func (c *MemoryCache) BFInfo(key string) (bloom.ObjectInfo, error) {
	lock := c.keyLock(key)
	lock.Lock()
	defer lock.Unlock()

	objI, exists := c.objects.Load(key)
	if !exists {
		return bloom.ObjectInfo{}, bloom.ErrNotFound
	}
	return objI.(*bloom.Object).Info(), nil
}

// BFLoad restores a key from an encoded blob. Fails with BUSYKEY when the
// key exists.
func (c *MemoryCache) BFLoad(key string, blob []byte, validateSize bool) (*bloom.Object, error) {
	lock := c.keyLock(key)
	lock.Lock()
	defer lock.Unlock()

	if _, exists := c.objects.Load(key); exists {
		return nil, bloom.ErrKeyExists
	}
	obj, err := bloom.Decode(blob, validateSize)
	if err != nil {
		return nil, err
	}
	c.objects.Store(key, obj)
	c.incrementKeyVersion(key)
	return obj, nil
}

func (c *MemoryCache) BFEncode(key string) ([]byte, error) {
	lock := c.keyLock(key)
	lock.Lock()
	defer lock.Unlock()

	objI, exists := c.objects.Load(key)
	if !exists {
		return nil, bloom.ErrNotFound
	}
	return bloom.Encode(objI.(*bloom.Object))
}

func (c *MemoryCache) Del(key string) bool {
	lock := c.keyLock(key)
	lock.Lock()
	defer lock.Unlock()

	objI, exists := c.objects.Load(key)
	if !exists {
		return false
	}
	c.objects.Delete(key)
	objI.(*bloom.Object).Release()
	c.incrementKeyVersion(key)
	return true
}

func (c *MemoryCache) Exists(key string) bool {
	_, exists := c.objects.Load(key)
	return exists
}

func (c *MemoryCache) Type(key string) string {
	if _, exists := c.objects.Load(key); exists {
		return BloomTypeName
	}
	return "none"
}

func (c *MemoryCache) Keys(pattern string) []string {
	var keys []string
	c.objects.Range(func(k, _ interface{}) bool {
		key := k.(string)
		if matched, err := filepath.Match(pattern, key); err == nil && matched {
			keys = append(keys, key)
		}
		return true
	})
	return keys
}

func (c *MemoryCache) DBSize() int {
	count := 0
	c.objects.Range(func(_, _ interface{}) bool {
		count++
		return true
	})
	return count
}

func (c *MemoryCache) FlushAll() {
	c.objects.Range(func(k, v interface{}) bool {
		lock := c.keyLock(k.(string))
		lock.Lock()
		c.objects.Delete(k)
		v.(*bloom.Object).Release()
		lock.Unlock()
		return true
	})
}

// Copy deep-clones a bloom object to another key. Without replace a
// populated destination fails with BUSYKEY.
func (c *MemoryCache) Copy(src, dst string, replace bool) (bool, error) {
	srcLock := c.keyLock(src)
	srcLock.Lock()
	objI, exists := c.objects.Load(src)
	if !exists {
		srcLock.Unlock()
		return false, nil
	}
	clone := bloom.CopyFrom(objI.(*bloom.Object))
	srcLock.Unlock()

	dstLock := c.keyLock(dst)
	dstLock.Lock()
	defer dstLock.Unlock()
	if oldI, exists := c.objects.Load(dst); exists {
		if !replace {
			clone.Release()
			return false, bloom.ErrKeyExists
		}
		oldI.(*bloom.Object).Release()
	}
	c.objects.Store(dst, clone)
	c.incrementKeyVersion(dst)
	return true, nil
}

// ForEachBloom hands the caller a stable encoding of every object. Encode
// failures are logged and the key skipped; persistence never returns them
// to a client.
func (c *MemoryCache) ForEachBloom(fn func(key string, encoded []byte)) {
	c.objects.Range(func(k, v interface{}) bool {
		key := k.(string)
		lock := c.keyLock(key)
		lock.Lock()
		encoded, err := bloom.Encode(v.(*bloom.Object))
		lock.Unlock()
		if err != nil {
			log.Printf("%v key=%s", bloom.ErrEncodeFailed, key)
			return true
		}
		fn(key, encoded)
		return true
	})
}
