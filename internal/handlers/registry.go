package handlers

import (
	"github.com/genc-murat/crystalbloom/internal/core/models"
	"github.com/genc-murat/crystalbloom/internal/core/ports"
)

// CommandHandler serves a read-only command.
type CommandHandler func(args []models.Value) models.Value

// WriteHandler serves a mutating command. The replicated flag marks
// commands arriving from a primary or the append-only log, which unlocks
// the replica-only arguments; BF.INSERT and BF.LOAD also skip size
// validation under it.
type WriteHandler func(args []models.Value, replicated bool) WriteResult

type Registry struct {
	handlers      map[string]CommandHandler
	writeHandlers map[string]WriteHandler

	bloomHandlers   *BloomFilterHandlers
	adminHandlers   *AdminHandlers
	configHandlers  *ConfigHandlers
	replicaHandlers *ReplicaHandlers
}

func NewRegistry(cache ports.Cache) *Registry {
	r := &Registry{
		handlers:        make(map[string]CommandHandler),
		writeHandlers:   make(map[string]WriteHandler),
		bloomHandlers:   NewBloomFilterHandlers(cache),
		adminHandlers:   NewAdminHandlers(cache),
		configHandlers:  NewConfigHandlers(),
		replicaHandlers: NewReplicaHandlers(nil),
	}
	r.registerHandlers()
	return r
}

// SetServer wires the replication surface once the server exists; the
// registry is created first because the server needs it.
func (r *Registry) SetServer(server ports.Server) {
	r.replicaHandlers.SetServer(server)
}

func (r *Registry) registerHandlers() {
	// Bloom commands
	r.writeHandlers["BF.RESERVE"] = r.bloomHandlers.HandleBFReserve
	r.writeHandlers["BF.ADD"] = r.bloomHandlers.HandleBFAdd
	r.writeHandlers["BF.MADD"] = r.bloomHandlers.HandleBFMAdd
	r.writeHandlers["BF.INSERT"] = r.bloomHandlers.HandleBFInsert
	r.writeHandlers["BF.LOAD"] = r.bloomHandlers.HandleBFLoad
	r.handlers["BF.EXISTS"] = r.bloomHandlers.HandleBFExists
	r.handlers["BF.MEXISTS"] = r.bloomHandlers.HandleBFMExists
	r.handlers["BF.CARD"] = r.bloomHandlers.HandleBFCard
	r.handlers["BF.INFO"] = r.bloomHandlers.HandleBFInfo

	// Keyspace commands
	r.writeHandlers["DEL"] = r.adminHandlers.HandleDel
	r.writeHandlers["FLUSHALL"] = r.adminHandlers.HandleFlushAll
	r.writeHandlers["COPY"] = r.adminHandlers.HandleCopy
	r.handlers["EXISTS"] = r.adminHandlers.HandleExists
	r.handlers["TYPE"] = r.adminHandlers.HandleType
	r.handlers["KEYS"] = r.adminHandlers.HandleKeys
	r.handlers["DBSIZE"] = r.adminHandlers.HandleDBSize
	r.handlers["PING"] = r.adminHandlers.HandlePing
	r.handlers["INFO"] = r.adminHandlers.HandleInfo

	// Config and replication
	r.handlers["CONFIG"] = r.configHandlers.HandleConfig
	r.handlers["REPLICAOF"] = r.replicaHandlers.HandleReplicaOf
}

func (r *Registry) GetHandler(cmd string) (CommandHandler, bool) {
	handler, exists := r.handlers[cmd]
	return handler, exists
}

func (r *Registry) GetWriteHandler(cmd string) (WriteHandler, bool) {
	handler, exists := r.writeHandlers[cmd]
	return handler, exists
}

// IsWriteCommand reports whether the command mutates the keyspace.
func (r *Registry) IsWriteCommand(cmd string) bool {
	_, exists := r.writeHandlers[cmd]
	return exists
}
