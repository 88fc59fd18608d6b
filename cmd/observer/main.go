// Observer — the read-only dashboard service. A tracker folds every bus
// topic into a live picture of the economy, served over HTTP and
// WebSocket; a poller cross-checks what agents claim about themselves
// through their status APIs; snapshots are exported to disk as JSON.
// The observer only watches, it never publishes market traffic.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"streetmarket/internal/bus"
	"streetmarket/internal/config"
	"streetmarket/internal/observer"
	"streetmarket/internal/store"
)

func main() {
	cfgPath := "configs/config.yaml"
	if p := os.Getenv("MARKET_CONFIG"); p != "" {
		cfgPath = p
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("failed to load config", "error", err, "path", cfgPath)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	logger := cfg.Logging.NewLogger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	busClient, err := bus.Connect(ctx, cfg.Bus, logger)
	if err != nil {
		logger.Error("failed to connect to bus", "error", err)
		os.Exit(1)
	}
	defer busClient.Close()

	tracker := observer.NewTracker(busClient, logger)
	if err := tracker.Start(); err != nil {
		logger.Error("failed to start tracker", "error", err)
		os.Exit(1)
	}

	st, err := store.Open(cfg.Store.DataDir)
	if err != nil {
		logger.Error("failed to open store", "error", err, "dir", cfg.Store.DataDir)
		os.Exit(1)
	}
	defer st.Close()

	server := observer.NewServer(cfg.Observer, tracker, st, logger)
	go func() {
		if err := server.Start(); err != nil {
			logger.Error("dashboard server failed", "error", err)
		}
	}()

	poller := observer.NewPoller(cfg.Observer, tracker, logger)
	go poller.Run(ctx)

	logger.Info("observer watching", "dashboard", fmt.Sprintf("http://localhost:%d", cfg.Observer.Port))

	<-ctx.Done()
	logger.Info("shutting down")

	if err := server.Stop(); err != nil {
		logger.Error("failed to stop dashboard", "error", err)
	}
}
