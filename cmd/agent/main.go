// Agent — one market participant. The strategy (farmer, chef, trader)
// decides what to gather, craft, and trade each tick; the runtime
// handles the protocol around it: joining, heartbeats, craft completion,
// settlement reconciliation, and the per-tick action budget. The
// optional status API lets the observer cross-check the agent's own
// view against the Banker's ledger.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"streetmarket/internal/agent"
	"streetmarket/internal/bus"
	"streetmarket/internal/config"
	"streetmarket/internal/strategy"
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
	if cfg.Agent.ID == "" {
		slog.Error("agent.id is required (set AGENT_ID)")
		os.Exit(1)
	}
	if cfg.Agent.Strategy == "" {
		slog.Error("agent.strategy is required (set AGENT_STRATEGY)")
		os.Exit(1)
	}

	logger := cfg.Logging.NewLogger()

	strat, err := strategy.ForName(cfg.Agent.Strategy)
	if err != nil {
		logger.Error("failed to pick strategy", "error", err)
		os.Exit(1)
	}

	if cfg.Agent.APIURL == "" && cfg.Agent.APIAddr != "" {
		cfg.Agent.APIURL = apiURLFor(cfg.Agent.APIAddr)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	busClient, err := bus.Connect(ctx, cfg.Bus, logger)
	if err != nil {
		logger.Error("failed to connect to bus", "error", err)
		os.Exit(1)
	}
	defer busClient.Close()

	rt := agent.New(busClient, cfg.Agent, strat, logger)
	if err := rt.Start(); err != nil {
		logger.Error("failed to start agent", "error", err)
		os.Exit(1)
	}

	var statusAPI *agent.StatusServer
	if cfg.Agent.APIAddr != "" {
		statusAPI = agent.NewStatusServer(rt, cfg.Agent.APIAddr, logger)
		go func() {
			if err := statusAPI.Start(); err != nil {
				logger.Error("status API failed", "error", err)
			}
		}()
	}

	logger.Info("agent in the market",
		"id", cfg.Agent.ID,
		"strategy", cfg.Agent.Strategy,
		"status_api", cfg.Agent.APIAddr,
	)

	<-ctx.Done()
	logger.Info("shutting down")

	if statusAPI != nil {
		if err := statusAPI.Stop(); err != nil {
			logger.Error("failed to stop status API", "error", err)
		}
	}
}

// apiURLFor derives the advertised status URL from a listen address:
// ":8091" becomes "http://127.0.0.1:8091".
func apiURLFor(addr string) string {
	if strings.HasPrefix(addr, ":") {
		return "http://127.0.0.1" + addr
	}
	return "http://" + addr
}
