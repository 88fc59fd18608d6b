// Governor — the market authority. It watches every market topic,
// checks structure and business rules, and publishes advisory verdicts
// to /market/governance. Verdicts never block traffic: they are
// commentary, settlement stays the Banker's call.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"streetmarket/internal/bus"
	"streetmarket/internal/config"
	"streetmarket/internal/governor"
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

	gov := governor.New(busClient, logger)
	if err := gov.Start(); err != nil {
		logger.Error("failed to start governor", "error", err)
		os.Exit(1)
	}

	logger.Info("governor on duty")

	<-ctx.Done()
	logger.Info("shutting down")
}
