package world

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"streetmarket/internal/bus"
	"streetmarket/internal/config"
	"streetmarket/pkg/types"
)

// ID is the World Engine's identity on the bus.
const ID = "world"

// Engine drives the tick clock and adjudicates gather requests.
type Engine struct {
	bus      bus.Bus
	state    *State
	interval time.Duration
	logger   *slog.Logger
}

// New builds a world engine on top of an already connected bus.
func New(b bus.Bus, cfg config.WorldConfig, logger *slog.Logger) *Engine {
	return &Engine{
		bus:      b,
		state:    NewState(cfg.SpawnTable),
		interval: cfg.Interval(),
		logger:   logger.With("component", "world"),
	}
}

// State exposes world state for tests.
func (e *Engine) State() *State { return e.state }

// Start subscribes to gather traffic on /world/nature.
func (e *Engine) Start() error {
	if err := e.bus.Subscribe(types.TopicNature, e.onNature); err != nil {
		return fmt.Errorf("subscribe %s: %w", types.TopicNature, err)
	}
	return nil
}

// Run fires the first tick immediately, then one per interval, until ctx
// is cancelled.
func (e *Engine) Run(ctx context.Context) error {
	e.logger.Info("world engine running", "tick_interval", e.interval)
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	e.Tick()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			e.Tick()
		}
	}
}

// Tick executes one simulation step: advance the counter, replace the
// spawn pool, and broadcast both. Exported so tests and tools can drive
// the clock by hand.
func (e *Engine) Tick() {
	tick, pool := e.state.AdvanceTick()

	tickMsg, err := types.NewMessage(ID, types.TopicTick, tick, types.Tick{
		TickNumber: tick,
		Timestamp:  types.Now(),
	})
	if err != nil {
		e.logger.Error("build tick message", "error", err)
		return
	}
	if err := e.bus.Publish(tickMsg); err != nil {
		e.logger.Error("publish tick", "tick", tick, "error", err)
	}

	spawnMsg, err := types.NewMessage(ID, types.TopicNature, tick, types.Spawn{
		SpawnID: pool.SpawnID,
		Tick:    tick,
		Items:   pool.Remaining,
	})
	if err != nil {
		e.logger.Error("build spawn message", "error", err)
		return
	}
	if err := e.bus.Publish(spawnMsg); err != nil {
		e.logger.Error("publish spawn", "tick", tick, "error", err)
	}

	e.logger.Info("tick published", "tick", tick, "spawn_id", shortID(pool.SpawnID))
}

// onNature answers gather requests. Every request gets a GatherResult,
// rejects included, so requesters are never left waiting.
func (e *Engine) onNature(env types.Envelope) {
	if env.From == ID {
		return
	}
	if env.Type != types.TypeGather {
		return
	}

	var req types.Gather
	if len(env.Payload) > 0 {
		if err := json.Unmarshal(env.Payload, &req); err != nil {
			// An unreadable request still gets an answer; the zero
			// request fails the missing-field checks below.
			e.logger.Warn("unreadable gather payload", "from", env.From, "error", err)
			req = types.Gather{}
		}
	}

	granted, success, reason := adjudicateGather(req, e.state)
	tick := e.state.CurrentTick()

	result, err := types.NewMessage(ID, types.TopicNature, tick, types.GatherResult{
		ReferenceMsgID: env.ID,
		SpawnID:        req.SpawnID,
		AgentID:        env.From,
		Item:           req.Item,
		Quantity:       granted,
		Success:        success,
		Reason:         reason,
	})
	if err != nil {
		e.logger.Error("build gather result", "error", err)
		return
	}
	if err := e.bus.Publish(result); err != nil {
		e.logger.Error("publish gather result", "error", err)
		return
	}

	if success {
		e.logger.Info("gather granted",
			"tick", tick,
			"agent", env.From,
			"item", req.Item,
			"granted", granted,
		)
	} else {
		e.logger.Warn("gather rejected",
			"tick", tick,
			"agent", env.From,
			"reason", reason,
		)
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
