package ports

import (
	"github.com/genc-murat/crystalbloom/internal/bloom"
	"github.com/genc-murat/crystalbloom/internal/core/models"
)

// Cache is the keyspace contract consumed by the handlers. Mutating bloom
// operations report the created object (nil when the key already existed)
// so the caller can emit a deterministic reconstruction to replicas.
type Cache interface {
	BFReserve(key string, fpRate float64, capacity int64, expansion uint32) (*bloom.Object, error)
	BFAdd(key string, item string) (added int64, created *bloom.Object, err error)
	BFMAdd(key string, items []string) (results []models.Value, created *bloom.Object, err error)
	BFInsert(key string, opts bloom.InsertOptions, items []string) (results []models.Value, created *bloom.Object, err error)
	BFExists(key string, item string) int64
	BFMExists(key string, items []string) []int64
	BFCard(key string) int64
	BFInfo(key string) (bloom.ObjectInfo, error)
	BFLoad(key string, blob []byte, validateSize bool) (*bloom.Object, error)
	BFEncode(key string) ([]byte, error)

	Del(key string) bool
	Exists(key string) bool
	Type(key string) string
	Keys(pattern string) []string
	DBSize() int
	FlushAll()
	Copy(src, dst string, replace bool) (bool, error)
	ForEachBloom(fn func(key string, encoded []byte))

	IncrCommandCount()
	GetKeyVersion(key string) int64
}
