package server

import (
	"context"
	"fmt"
	"log"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/genc-murat/crystalbloom/internal/core/models"
	"github.com/genc-murat/crystalbloom/internal/core/ports"
	"github.com/genc-murat/crystalbloom/internal/handlers"
	"github.com/genc-murat/crystalbloom/internal/metrics"
	"github.com/genc-murat/crystalbloom/pkg/resp"
)

type Server struct {
	cache    ports.Cache
	storage  ports.Storage
	metrics  *metrics.Metrics
	registry *handlers.Registry

	shutdown chan struct{}
	wg       sync.WaitGroup

	// Replication state. A primary propagates accepted writes to every
	// attached replica; a replica applies the primary's stream through the
	// replica-facing parser.
	isMaster   bool
	masterHost string
	masterPort string
	replConn   net.Conn
	replReader *resp.Reader
	replWriter *resp.Writer
	replMutex  sync.RWMutex
	replicas   map[string]*replica
}

type replica struct {
	conn   net.Conn
	writer *resp.Writer
}

type ServerConfig struct {
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

func NewServer(cache ports.Cache, storage ports.Storage, config ServerConfig) *Server {
	registry := handlers.NewRegistry(cache)
	s := &Server{
		cache:    cache,
		storage:  storage,
		metrics:  metrics.NewMetrics(),
		registry: registry,
		shutdown: make(chan struct{}),
		isMaster: true,
		replicas: make(map[string]*replica),
	}
	registry.SetServer(s)
	return s
}

func (s *Server) Start(address string) error {
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return err
	}
	defer listener.Close()

	if err := s.loadData(); err != nil {
		return err
	}

	log.Printf("Server listening on %s", address)

	for {
		select {
		case <-s.shutdown:
			return nil
		default:
			conn, err := listener.Accept()
			if err != nil {
				select {
				case <-s.shutdown:
					return nil
				default:
				}
				log.Printf("Error accepting connection: %v", err)
				continue
			}
			s.wg.Add(1)
			go s.handleConnection(conn)
		}
	}
}

// loadData replays the append-only log. Replayed commands take the
// replica-facing path: reconstruction arguments are accepted and size
// limits are not re-validated.
func (s *Server) loadData() error {
	return s.storage.Read(func(value models.Value) {
		if len(value.Array) == 0 {
			return
		}
		cmd := strings.ToUpper(value.Array[0].Bulk)
		if wh, exists := s.registry.GetWriteHandler(cmd); exists {
			result := wh(value.Array[1:], true)
			if result.Reply.Type == "error" {
				log.Printf("Error replaying %s from AOF: %s", cmd, result.Reply.Str)
			}
			return
		}
		log.Printf("Unknown command in AOF: %s", cmd)
	})
}

func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()
	defer s.wg.Done()

	reader := resp.NewReader(conn)
	writer := resp.NewWriter(conn)

	for {
		value, err := reader.Read()
		if err != nil {
			return
		}
		if value.Type != "array" || len(value.Array) == 0 {
			continue
		}

		cmd := strings.ToUpper(value.Array[0].Bulk)

		// A replica announces itself with SYNC: stream the current
		// keyspace, then keep the connection for command propagation.
		if cmd == "SYNC" {
			s.serveSync(conn, writer)
			continue
		}

		result := s.executeCommand(cmd, value, false)
		if err := writer.Write(result); err != nil {
			return
		}
	}
}

// executeCommand dispatches one command, persisting and propagating
// accepted writes. The replicated flag is set when the command arrives from
// the primary's stream.
func (s *Server) executeCommand(cmd string, value models.Value, replicated bool) models.Value {
	start := time.Now()
	defer func() {
		s.metrics.AddCommandExecution(cmd, time.Since(start))
	}()
	s.cache.IncrCommandCount()

	if cmd == "BGREWRITEAOF" {
		go func() {
			if err := s.RewriteAOF(); err != nil {
				log.Printf("AOF rewrite failed: %v", err)
			}
		}()
		return models.Value{Type: "string", Str: "Background append only file rewriting started"}
	}

	args := value.Array[1:]
	if wh, exists := s.registry.GetWriteHandler(cmd); exists {
		if !replicated && !s.IsMaster() && cmd != "FLUSHALL" {
			return models.Value{Type: "error", Str: "READONLY You can't write against a read only replica"}
		}
		result := wh(args, replicated)
		if result.Reply.Type != "error" && !replicated && s.IsMaster() {
			persisted := value
			if result.Repl != nil {
				persisted = *result.Repl
			}
			if err := s.storage.Write(persisted); err != nil {
				log.Printf("Failed to write to AOF: %v", err)
			}
			s.propagateToReplicas(persisted)
		}
		return result.Reply
	}
	if handler, exists := s.registry.GetHandler(cmd); exists {
		return handler(args)
	}
	return models.Value{Type: "error", Str: "ERR unknown command"}
}

func (s *Server) propagateToReplicas(cmd models.Value) {
	s.replMutex.RLock()
	defer s.replMutex.RUnlock()

	for addr, r := range s.replicas {
		if err := r.writer.Write(cmd); err != nil {
			log.Printf("Error propagating to replica %s: %v", addr, err)
			go s.removeReplica(addr)
		}
	}
}

// serveSync streams every bloom key as a BF.LOAD and registers the
// connection as a replica.
func (s *Server) serveSync(conn net.Conn, writer *resp.Writer) {
	s.cache.ForEachBloom(func(key string, encoded []byte) {
		cmd := models.NewCommand("BF.LOAD", key, string(encoded))
		if err := writer.Write(cmd); err != nil {
			log.Printf("Error streaming sync to %s: %v", conn.RemoteAddr(), err)
		}
	})
	if err := writer.Write(models.Value{Type: "string", Str: "SYNC-END"}); err != nil {
		return
	}
	s.addReplica(conn)
}

func (s *Server) addReplica(conn net.Conn) {
	addr := conn.RemoteAddr().String()
	s.replMutex.Lock()
	defer s.replMutex.Unlock()

	s.replicas[addr] = &replica{conn: conn, writer: resp.NewWriter(conn)}
	log.Printf("New replica connected from %s", addr)
}

func (s *Server) removeReplica(addr string) {
	s.replMutex.Lock()
	defer s.replMutex.Unlock()

	if r, exists := s.replicas[addr]; exists {
		r.conn.Close()
		delete(s.replicas, addr)
		log.Printf("Replica %s disconnected", addr)
	}
}

// StartReplication turns this node into a replica of the given primary.
func (s *Server) StartReplication(host, port string) error {
	s.replMutex.Lock()
	if s.replConn != nil {
		s.replConn.Close()
	}
	conn, err := net.DialTimeout("tcp", net.JoinHostPort(host, port), 5*time.Second)
	if err != nil {
		s.replMutex.Unlock()
		return fmt.Errorf("failed to connect to master: %v", err)
	}
	s.replConn = conn
	s.replReader = resp.NewReader(conn)
	s.replWriter = resp.NewWriter(conn)
	s.masterHost = host
	s.masterPort = port
	s.isMaster = false
	s.replMutex.Unlock()

	go s.replicationLoop()
	return nil
}

// replicationLoop performs the full sync and then applies the primary's
// stream until the link drops.
func (s *Server) replicationLoop() {
	if err := s.replWriter.Write(models.NewCommand("SYNC")); err != nil {
		log.Printf("Failed to request sync: %v", err)
		s.StopReplication()
		return
	}
	s.cache.FlushAll()

	for {
		value, err := s.replReader.Read()
		if err != nil {
			log.Printf("Replication error: %v", err)
			s.StopReplication()
			return
		}
		if value.Type == "string" && value.Str == "SYNC-END" {
			log.Printf("Full sync from %s:%s complete", s.masterHost, s.masterPort)
			continue
		}
		if value.Type != "array" || len(value.Array) == 0 {
			continue
		}
		cmd := strings.ToUpper(value.Array[0].Bulk)
		result := s.executeCommand(cmd, value, true)
		if result.Type == "error" {
			log.Printf("Error applying replicated %s: %s", cmd, result.Str)
		}
	}
}

func (s *Server) StopReplication() {
	s.replMutex.Lock()
	defer s.replMutex.Unlock()

	if s.replConn != nil {
		s.replConn.Close()
		s.replConn = nil
	}
	s.masterHost = ""
	s.masterPort = ""
	s.isMaster = true
}

func (s *Server) IsMaster() bool {
	s.replMutex.RLock()
	defer s.replMutex.RUnlock()
	return s.isMaster
}

func (s *Server) GetMetrics() map[string]interface{} {
	return s.metrics.GetStats()
}

// RewriteAOF compacts the append-only log to one BF.LOAD per key.
func (s *Server) RewriteAOF() error {
	return s.storage.Rewrite(func(emit func(models.Value)) {
		s.cache.ForEachBloom(func(key string, encoded []byte) {
			emit(models.NewCommand("BF.LOAD", key, string(encoded)))
		})
	})
}

func (s *Server) Shutdown(ctx context.Context) error {
	close(s.shutdown)

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		if err := s.storage.Close(); err != nil {
			log.Printf("Error closing AOF: %v", err)
		}
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
