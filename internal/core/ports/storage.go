package ports

import "github.com/genc-murat/crystalbloom/internal/core/models"

// Storage is append-only persistence for accepted write commands.
type Storage interface {
	Write(value models.Value) error
	Read(callback func(value models.Value)) error
	Rewrite(dump func(emit func(value models.Value))) error
	Sync() error
	Close() error
}
