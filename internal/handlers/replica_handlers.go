package handlers

import (
	"fmt"
	"strings"

	"github.com/genc-murat/crystalbloom/internal/core/models"
	"github.com/genc-murat/crystalbloom/internal/core/ports"
	"github.com/genc-murat/crystalbloom/internal/util"
)

// ReplicaHandlers manages the primary/replica relationship of this node.
type ReplicaHandlers struct {
	server ports.Server
}

func NewReplicaHandlers(server ports.Server) *ReplicaHandlers {
	return &ReplicaHandlers{server: server}
}

func (h *ReplicaHandlers) SetServer(server ports.Server) {
	h.server = server
}

// HandleReplicaOf handles REPLICAOF <host> <port>. "REPLICAOF NO ONE"
// stops replication and promotes this node.
func (h *ReplicaHandlers) HandleReplicaOf(args []models.Value) models.Value {
	if err := util.ValidateArgs(args, 2); err != nil {
		return models.Value{Type: "error", Str: err.Error()}
	}
	if h.server == nil {
		return models.Value{Type: "error", Str: "ERR replication is not available"}
	}

	host := args[0].Bulk
	port := args[1].Bulk

	if strings.ToUpper(host) == "NO" && strings.ToUpper(port) == "ONE" {
		h.server.StopReplication()
		return models.Value{Type: "string", Str: "OK"}
	}

	if err := h.server.StartReplication(host, port); err != nil {
		return models.Value{Type: "error", Str: fmt.Sprintf("ERR %v", err)}
	}
	return models.Value{Type: "string", Str: "OK"}
}
