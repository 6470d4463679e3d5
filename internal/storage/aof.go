package storage

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/genc-murat/crystalbloom/internal/core/models"
	"github.com/genc-murat/crystalbloom/pkg/resp"
)

// AOFConfig holds configuration for append-only file persistence.
type AOFConfig struct {
	Path         string
	SyncStrategy string // "always", "everysec", "no"
	SyncInterval time.Duration
	BufferSize   int
}

func DefaultAOFConfig() AOFConfig {
	return AOFConfig{
		Path:         "crystalbloom.aof",
		SyncStrategy: "everysec",
		SyncInterval: time.Second,
		BufferSize:   8 * 1024,
	}
}

// AOF appends every accepted write command and replays them on startup.
// The file is guarded with an advisory lock so two processes cannot append
// to the same log.
type AOF struct {
	config   AOFConfig
	file     *os.File
	writer   *bufio.Writer
	fileLock *flock.Flock
	mu       sync.Mutex
	done     chan struct{}
	once     sync.Once
}

func NewAOF(config AOFConfig) (*AOF, error) {
	if config.Path == "" {
		config = DefaultAOFConfig()
	}
	dir := filepath.Dir(config.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %v", err)
	}

	lock := flock.New(config.Path + ".lock")
	if err := lock.Lock(); err != nil {
		return nil, fmt.Errorf("failed to lock AOF file: %v", err)
	}

	f, err := os.OpenFile(config.Path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0666)
	if err != nil {
		lock.Unlock()
		return nil, fmt.Errorf("failed to open AOF file: %v", err)
	}

	aof := &AOF{
		config:   config,
		file:     f,
		writer:   bufio.NewWriterSize(f, config.BufferSize),
		fileLock: lock,
		done:     make(chan struct{}),
	}

	if config.SyncStrategy == "everysec" {
		go aof.backgroundSync()
	}
	return aof, nil
}

func (aof *AOF) backgroundSync() {
	ticker := time.NewTicker(aof.config.SyncInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := aof.Sync(); err != nil {
				log.Printf("AOF background sync: %v", err)
			}
		case <-aof.done:
			return
		}
	}
}

func (aof *AOF) Write(value models.Value) error {
	aof.mu.Lock()
	defer aof.mu.Unlock()

	if err := resp.NewWriter(aof.writer).Write(value); err != nil {
		return err
	}
	if aof.config.SyncStrategy == "always" {
		if err := aof.writer.Flush(); err != nil {
			return err
		}
		return aof.file.Sync()
	}
	return nil
}

func (aof *AOF) Sync() error {
	aof.mu.Lock()
	defer aof.mu.Unlock()

	if err := aof.writer.Flush(); err != nil {
		return err
	}
	return aof.file.Sync()
}

// Read replays the log from the beginning.
func (aof *AOF) Read(callback func(value models.Value)) error {
	aof.mu.Lock()
	defer aof.mu.Unlock()

	if err := aof.writer.Flush(); err != nil {
		return err
	}
	if _, err := aof.file.Seek(0, io.SeekStart); err != nil {
		return err
	}
	reader := resp.NewReader(aof.file)
	for {
		value, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("corrupt AOF entry: %v", err)
		}
		callback(value)
	}
	_, err := aof.file.Seek(0, io.SeekEnd)
	return err
}

// Rewrite compacts the log: the dump callback emits one reconstruction
// command per live key into a temp file which then replaces the log
// atomically.
func (aof *AOF) Rewrite(dump func(emit func(value models.Value))) error {
	aof.mu.Lock()
	defer aof.mu.Unlock()

	tmpPath := aof.config.Path + ".rewrite"
	tmp, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0666)
	if err != nil {
		return err
	}
	tmpWriter := bufio.NewWriterSize(tmp, aof.config.BufferSize)
	respWriter := resp.NewWriter(tmpWriter)
	var writeErr error
	dump(func(value models.Value) {
		if writeErr == nil {
			writeErr = respWriter.Write(value)
		}
	})
	if writeErr == nil {
		writeErr = tmpWriter.Flush()
	}
	if writeErr == nil {
		writeErr = tmp.Sync()
	}
	if err := tmp.Close(); writeErr == nil {
		writeErr = err
	}
	if writeErr != nil {
		os.Remove(tmpPath)
		return writeErr
	}

	if err := aof.writer.Flush(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := aof.file.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, aof.config.Path); err != nil {
		return err
	}
	f, err := os.OpenFile(aof.config.Path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0666)
	if err != nil {
		return err
	}
	aof.file = f
	aof.writer = bufio.NewWriterSize(f, aof.config.BufferSize)
	return nil
}

func (aof *AOF) Close() error {
	aof.once.Do(func() { close(aof.done) })

	aof.mu.Lock()
	defer aof.mu.Unlock()

	if err := aof.writer.Flush(); err != nil {
		return err
	}
	if err := aof.file.Sync(); err != nil {
		return err
	}
	if err := aof.file.Close(); err != nil {
		return err
	}
	return aof.fileLock.Unlock()
}
