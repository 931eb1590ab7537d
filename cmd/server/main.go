// Package main is the entry point for the MarketLens client core. It hosts
// the pieces a dashboard renderer depends on: the response caches, the
// observable state store, the typed backend client, and the durable local
// store, exposed over HTTP and a websocket state stream.
package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/marketlens/marketlens/internal/api"
	"github.com/marketlens/marketlens/internal/cache"
	"github.com/marketlens/marketlens/internal/config"
	"github.com/marketlens/marketlens/internal/dashboard"
	"github.com/marketlens/marketlens/internal/database"
	"github.com/marketlens/marketlens/internal/localstore"
	"github.com/marketlens/marketlens/internal/scheduler"
	"github.com/marketlens/marketlens/internal/server"
	"github.com/marketlens/marketlens/internal/session"
	"github.com/marketlens/marketlens/internal/state"
	"github.com/marketlens/marketlens/pkg/logger"
)

func main() {
	// Load configuration first to get log level
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{
			Level:  "info",
			Pretty: true,
		})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})

	log.Info().Msg("Starting MarketLens")

	// Durable local store. Everything that must survive a restart (session
	// token, search history, UI preferences) lives in this single database.
	db, err := database.New(database.Config{
		Path: filepath.Join(cfg.DataDir, "local_store.db"),
		Name: "local_store",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open local store database")
	}
	defer db.Close()

	local, err := localstore.New(db.Conn(), log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize local store")
	}

	// State store, hydrated from the local store (search history).
	store := state.New(local, log)
	store.Init()

	// Session manager restores the persisted token so the first request
	// after a restart is already authenticated.
	sess := session.NewManager(local, store, log)
	sess.Init()

	// Response caches. Quotes and the market overview have separate TTLs and
	// separate instances so clearing one never disturbs the other.
	quotes := cache.New(cfg.QuoteCacheTTL, cache.WithMaxSize(cfg.CacheMaxSize))
	overview := cache.New(cache.TTLMarketOverview)

	client := api.NewClient(cfg.APIBaseURL, sess.Token, cfg.RequestTimeout, log)

	svc := dashboard.New(dashboard.Config{
		API:      client,
		Quotes:   quotes,
		Overview: overview,
		Store:    store,
		Session:  sess,
		Log:      log,
	})
	defer svc.Close()

	// Background sweep evicts expired cache entries so memory tracks the
	// working set instead of everything ever fetched.
	sched := scheduler.New(log)
	sweep := cache.NewSweepJob(map[string]*cache.Cache{
		"quotes":   quotes,
		"overview": overview,
	}, log)
	if err := sched.AddJob(cfg.SweepSchedule, sweep); err != nil {
		log.Fatal().Err(err).Str("schedule", cfg.SweepSchedule).Msg("Failed to register cache sweep job")
	}
	sched.Start()

	srv := server.New(server.Config{
		Port:     cfg.Port,
		Log:      log,
		Service:  svc,
		Store:    store,
		Session:  sess,
		Quotes:   quotes,
		Overview: overview,
		DevMode:  cfg.DevMode,
	})

	go func() {
		if err := srv.Start(); err != nil {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down...")

	sched.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
