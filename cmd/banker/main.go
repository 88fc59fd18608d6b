// Banker — the ledger authority. It opens an account for every agent
// that joins, tracks wallets and inventories, matches accepts against
// the order book, and publishes settlements to /market/bank. Money and
// goods move atomically or not at all.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"streetmarket/internal/banker"
	"streetmarket/internal/bus"
	"streetmarket/internal/config"
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

	bk := banker.New(busClient, logger)
	if err := bk.Start(); err != nil {
		logger.Error("failed to start banker", "error", err)
		os.Exit(1)
	}

	logger.Info("banker open for business")

	<-ctx.Done()
	logger.Info("shutting down")
}
