package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "net/http/pprof"

	"github.com/genc-murat/crystalbloom/internal/cache"
	"github.com/genc-murat/crystalbloom/internal/config"
	"github.com/genc-murat/crystalbloom/internal/server"
	"github.com/genc-murat/crystalbloom/internal/storage"
)

func main() {
	env := os.Getenv("CRYSTALBLOOM_ENV")
	if env == "" {
		env = "development"
	}
	cfg, err := config.LoadConfig(env)
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}
	if err := cfg.ApplyBloomDefaults(); err != nil {
		log.Fatalf("Error applying bloom config: %v", err)
	}

	if cfg.Pprof.Enabled {
		go func() {
			log.Printf("Pprof server starting on :%d", cfg.Pprof.Port)
			if err := http.ListenAndServe(fmt.Sprintf(":%d", cfg.Pprof.Port), nil); err != nil {
				log.Printf("Pprof server error: %v", err)
			}
		}()
	}

	memCache := cache.NewMemoryCache()
	if cfg.Cache.DefragInterval > 0 {
		budget := cfg.Cache.DefragBudget.Std()
		if budget <= 0 {
			budget = 25 * time.Millisecond
		}
		memCache.StartDefragmentation(cfg.Cache.DefragInterval.Std(), budget)
	}

	aofConfig := storage.DefaultAOFConfig()
	if cfg.Storage.Path != "" {
		aofConfig.Path = cfg.Storage.Path
	}
	if cfg.Storage.SyncStrategy != "" {
		aofConfig.SyncStrategy = cfg.Storage.SyncStrategy
	}
	if cfg.Storage.SyncInterval > 0 {
		aofConfig.SyncInterval = cfg.Storage.SyncInterval.Std()
	}
	aofStorage, err := storage.NewAOF(aofConfig)
	if err != nil {
		log.Fatal(err)
	}

	srv := server.NewServer(memCache, aofStorage, server.ServerConfig{
		ReadTimeout:  cfg.Server.ReadTimeout.Std(),
		WriteTimeout: cfg.Server.WriteTimeout.Std(),
		IdleTimeout:  cfg.Server.IdleTimeout.Std(),
	})
	go func() {
		if err := srv.Start(fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)); err != nil {
			log.Fatalf("Server error: %v", err)
		}
	}()

	if cfg.Metrics.Enabled {
		go func() {
			http.HandleFunc(cfg.Metrics.Path, func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(srv.GetMetrics())
			})
			log.Printf("Metrics server starting on :%d", cfg.Metrics.Port)
			if err := http.ListenAndServe(fmt.Sprintf(":%d", cfg.Metrics.Port), nil); err != nil {
				log.Printf("Metrics server error: %v", err)
			}
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("Shutting down server...")
	memCache.StopDefragmentation()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}
}
