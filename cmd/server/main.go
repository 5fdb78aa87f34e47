package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Kuebic/songbook-offline/internal/config"
	"github.com/Kuebic/songbook-offline/internal/constants"
	httpapp "github.com/Kuebic/songbook-offline/internal/http"
	"github.com/Kuebic/songbook-offline/internal/httpclient"
	"github.com/Kuebic/songbook-offline/internal/logger"
	"github.com/Kuebic/songbook-offline/internal/netmon"
	"github.com/Kuebic/songbook-offline/internal/offline"
	"github.com/Kuebic/songbook-offline/internal/remote"
	"github.com/Kuebic/songbook-offline/internal/store"
	"github.com/Kuebic/songbook-offline/internal/syncqueue"
)

func main() {
	cfg := config.Load()

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	// Initialize Logger
	appLogger := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})

	// Initialize DB
	db, err := store.NewSQLiteDB(cfg.DBPath)
	if err != nil {
		appLogger.Error("Failed to init DB", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Remote API client, shared by the sync queue and the reachability probe
	hc := httpclient.NewClient(nil, constants.MinRequestInterval)
	remoteClient := remote.NewClient(cfg.RemoteURL, cfg.UserID, hc)

	// Connectivity Monitor
	monitor := netmon.NewMonitor(remoteClient, cfg.ProbeInterval, appLogger)
	monitor.SetLinkUp(true)
	monitor.Start()
	defer monitor.Stop()

	// Offline Storage Service
	bus := offline.NewBus()
	quota := &offline.FileQuotaEstimator{Path: cfg.DBPath, Quota: cfg.QuotaBytes}
	svc := offline.NewService(db, appLogger, bus, quota)

	// Sync Queue + Worker
	queue := syncqueue.NewQueue(db, remoteClient, monitor, bus, appLogger, &syncqueue.Config{
		MaxRetries:  cfg.MaxRetries,
		SettleDelay: cfg.SettleDelay,
	})
	svc.SetEnqueuer(queue)

	worker := syncqueue.NewWorker(queue, monitor)
	worker.Start()
	defer worker.Stop()

	// Initialize Router
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	h := httpapp.NewHandler(svc, queue, worker, monitor, cfg.UserID, appLogger)
	h.RegisterRoutes(r)

	// Start Server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		log.Printf("Server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting")
}
