package governor

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"streetmarket/internal/bus"
	"streetmarket/pkg/types"
)

// ID is the Governor's identity on the bus.
const ID = "governor"

// Governor watches every market topic and publishes a ValidationResult
// for each message it sees, valid or not. Agents that want to know
// whether their action stood can listen on /market/governance.
type Governor struct {
	bus    bus.Bus
	state  *State
	logger *slog.Logger
}

// New builds a Governor on top of an already connected bus.
func New(b bus.Bus, logger *slog.Logger) *Governor {
	return &Governor{
		bus:    b,
		state:  NewState(),
		logger: logger.With("component", "governor"),
	}
}

// State exposes governor state for tests.
func (g *Governor) State() *State { return g.state }

// Start subscribes to all market traffic and the system tick.
func (g *Governor) Start() error {
	if err := g.bus.Subscribe(types.TopicAllMarkets, g.onMarket); err != nil {
		return fmt.Errorf("subscribe %s: %w", types.TopicAllMarkets, err)
	}
	if err := g.bus.Subscribe(types.TopicTick, g.onTick); err != nil {
		return fmt.Errorf("subscribe %s: %w", types.TopicTick, err)
	}
	return nil
}

// onMarket judges one market message: structure first, then business
// rules. Every judged message costs its sender one action from the
// per-tick budget.
func (g *Governor) onMarket(env types.Envelope) {
	// Our own verdicts come back around on /market/governance; judging
	// them would loop forever.
	if env.From == ID && env.Type == types.TypeValidationResult {
		return
	}

	if structural := types.ValidateEnvelope(env); len(structural) > 0 {
		g.publishVerdict(env, false, strings.Join(structural, "; "))
		g.state.RecordAction(env.From)
		return
	}

	payload, err := types.ParsePayload(env)
	if err != nil {
		// ValidateEnvelope vets the payload, so this only fires if the
		// two ever fall out of sync.
		g.logger.Error("parse payload after validation", "type", env.Type, "error", err)
		return
	}

	errs := checkRules(env, payload, g.state)
	g.state.RecordAction(env.From)

	if len(errs) > 0 {
		g.publishVerdict(env, false, strings.Join(errs, "; "))
	} else {
		g.publishVerdict(env, true, "")
	}
}

// onTick advances governor state to the announced tick, which resets
// every agent's action budget.
func (g *Governor) onTick(env types.Envelope) {
	var tick types.Tick
	if len(env.Payload) > 0 {
		if err := json.Unmarshal(env.Payload, &tick); err != nil {
			g.logger.Warn("unreadable tick payload", "error", err)
		}
	}
	g.state.AdvanceTick(tick.TickNumber)
	g.logger.Info("advanced", "tick", tick.TickNumber)
}

func (g *Governor) publishVerdict(original types.Envelope, valid bool, reason string) {
	tick := g.state.CurrentTick()
	verdict, err := types.NewMessage(ID, types.TopicGovernance, tick, types.ValidationResult{
		ReferenceMsgID: original.ID,
		Valid:          valid,
		Reason:         reason,
		Action:         string(original.Type),
	})
	if err != nil {
		g.logger.Error("build verdict", "ref", original.ID, "error", err)
		return
	}
	if err := g.bus.Publish(verdict); err != nil {
		g.logger.Error("publish verdict", "ref", original.ID, "error", err)
		return
	}

	if valid {
		g.logger.Info("verdict",
			"tick", tick, "type", original.Type, "from", original.From, "valid", true)
	} else {
		g.logger.Warn("verdict",
			"tick", tick, "type", original.Type, "from", original.From, "valid", false,
			"reason", reason)
	}
}
