// World Engine — the clock and nature of the street market simulation.
//
// Architecture (one binary per service, all meeting on the bus):
//
//	cmd/world     — tick broadcaster, resource spawner, gather arbiter (this binary)
//	cmd/governor  — validates market traffic, publishes advisory verdicts
//	cmd/banker    — owns wallets and inventories, settles accepted trades
//	cmd/agent     — one trading agent; strategy picked by config (farmer, chef, trader)
//	cmd/observer  — read-only dashboard: tracker, WebSocket stream, agent status poller
//	cmd/demo      — scripted three-message trade, a smoke test against a live broker
//
// Services communicate only over bus topics (/system/tick, /world/>,
// /market/>, /agent/<id>/inbox); none of them import each other.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"streetmarket/internal/bus"
	"streetmarket/internal/config"
	"streetmarket/internal/world"
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

	eng := world.New(busClient, cfg.World, logger)
	if err := eng.Start(); err != nil {
		logger.Error("failed to start world engine", "error", err)
		os.Exit(1)
	}

	logger.Info("world engine started", "tick_interval", cfg.World.Interval())

	if err := eng.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Error("world engine stopped", "error", err)
		os.Exit(1)
	}
	logger.Info("shutting down")
}
