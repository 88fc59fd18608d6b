package agent

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"

	"streetmarket/internal/bus"
	"streetmarket/internal/config"
	"streetmarket/pkg/types"
)

// Strategy decides what an agent does on each tick. Decide receives a
// snapshot of the agent's mirror and returns actions in send order; the
// runtime stops executing them once the per-tick budget runs out.
type Strategy interface {
	Decide(view View) []Action
}

// Runtime drives one agent: it keeps the local mirror current from bus
// traffic, handles the tick protocol (join, heartbeat, craft completion),
// and executes whatever the strategy decides.
type Runtime struct {
	bus      bus.Bus
	cfg      config.AgentConfig
	state    *State
	strategy Strategy
	logger   *slog.Logger
}

// New builds a runtime on an already connected bus.
func New(b bus.Bus, cfg config.AgentConfig, strat Strategy, logger *slog.Logger) *Runtime {
	return &Runtime{
		bus:      b,
		cfg:      cfg,
		state:    NewState(cfg.ID),
		strategy: strat,
		logger:   logger.With("component", "agent", "agent", cfg.ID),
	}
}

// ID returns the agent's bus identity.
func (r *Runtime) ID() string { return r.cfg.ID }

// State exposes the mirror for the status API and tests.
func (r *Runtime) State() *State { return r.state }

// Start subscribes to the clock, the world, every market, and the
// agent's private inbox.
func (r *Runtime) Start() error {
	if err := r.bus.Subscribe(types.TopicTick, r.onTick); err != nil {
		return fmt.Errorf("subscribe %s: %w", types.TopicTick, err)
	}
	if err := r.bus.Subscribe(types.TopicNature, r.onNature); err != nil {
		return fmt.Errorf("subscribe %s: %w", types.TopicNature, err)
	}
	if err := r.bus.Subscribe(types.TopicAllMarkets, r.onMarket); err != nil {
		return fmt.Errorf("subscribe %s: %w", types.TopicAllMarkets, err)
	}
	inbox := types.AgentInbox(r.cfg.ID)
	if err := r.bus.Subscribe(inbox, r.onInbox); err != nil {
		return fmt.Errorf("subscribe %s: %w", inbox, err)
	}
	return nil
}

// onTick runs the per-tick protocol, then lets the strategy spend
// whatever budget is left.
func (r *Runtime) onTick(env types.Envelope) {
	var tick types.Tick
	if err := json.Unmarshal(env.Payload, &tick); err != nil {
		r.logger.Warn("unreadable tick", "error", err)
		return
	}
	r.state.AdvanceTick(tick.TickNumber)

	if !r.state.Joined() {
		r.execute(Action{Kind: ActionJoin})
	}
	if r.state.NeedsHeartbeat(types.HeartbeatInterval) {
		r.execute(Action{Kind: ActionHeartbeat})
	}
	if job, ok := r.state.Craft(); ok && job.Done(tick.TickNumber) {
		r.execute(CraftComplete(job.Recipe))
	}

	for _, action := range r.strategy.Decide(r.state.View()) {
		if r.state.RemainingActions() <= 0 {
			r.logger.Debug("action budget exhausted", "tick", tick.TickNumber)
			break
		}
		r.execute(action)
	}
}

// onNature tracks spawn announcements and the agent's own gather results.
func (r *Runtime) onNature(env types.Envelope) {
	switch env.Type {
	case types.TypeSpawn:
		var p types.Spawn
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return
		}
		r.state.SetSpawn(p.SpawnID, p.Items)

	case types.TypeGatherResult:
		var p types.GatherResult
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return
		}
		if p.AgentID != r.cfg.ID {
			return
		}
		if !p.Success {
			r.logger.Debug("gather rejected", "item", p.Item, "reason", p.Reason)
			return
		}
		r.state.AddInventory(p.Item, p.Quantity)
		r.logger.Info("gathered", "item", p.Item, "quantity", p.Quantity)
	}
}

// onMarket records other agents' orders for the strategy and reconciles
// the mirror against settlements that involve this agent.
func (r *Runtime) onMarket(env types.Envelope) {
	if env.From == r.cfg.ID {
		return
	}

	switch env.Type {
	case types.TypeOffer:
		var p types.Offer
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return
		}
		r.state.Observe(ObservedOffer{
			MsgID:        env.ID,
			Agent:        env.From,
			Item:         p.Item,
			Quantity:     p.Quantity,
			PricePerUnit: p.PricePerUnit,
			IsSell:       true,
		})

	case types.TypeBid:
		var p types.Bid
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return
		}
		r.state.Observe(ObservedOffer{
			MsgID:        env.ID,
			Agent:        env.From,
			Item:         p.Item,
			Quantity:     p.Quantity,
			PricePerUnit: p.MaxPricePerUnit,
			IsSell:       false,
		})

	case types.TypeSettlement:
		var p types.Settlement
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return
		}
		r.onSettlement(p)
	}
}

// onSettlement applies a completed trade to the mirror. The banker
// already moved the real money; this catches the mirror up.
func (r *Runtime) onSettlement(p types.Settlement) {
	switch r.cfg.ID {
	case p.Buyer:
		r.state.AdjustWallet(-p.TotalPrice)
		r.state.AddInventory(p.Item, p.Quantity)
		r.state.PopPending(p.ReferenceMsgID)
		r.logger.Info("bought", "item", p.Item, "quantity", p.Quantity, "total", p.TotalPrice)
	case p.Seller:
		r.state.AdjustWallet(p.TotalPrice)
		r.state.RemoveInventory(p.Item, p.Quantity)
		r.state.PopPending(p.ReferenceMsgID)
		r.logger.Info("sold", "item", p.Item, "quantity", p.Quantity, "total", p.TotalPrice)
	}
}

// onInbox surfaces direct messages. Nothing in the protocol requires a
// reply yet, so they are only logged.
func (r *Runtime) onInbox(env types.Envelope) {
	r.logger.Debug("inbox", "from", env.From, "type", env.Type)
}

// execute publishes one action and applies its optimistic local effects.
// Failed publishes skip the local effects so the mirror never records a
// move the market did not see.
func (r *Runtime) execute(action Action) {
	tick := r.state.CurrentTick()

	switch action.Kind {
	case ActionJoin:
		if err := r.publish(types.TopicSquare, tick, types.Join{
			AgentID:     r.cfg.ID,
			Name:        r.cfg.Name,
			Description: r.cfg.Description,
			APIURL:      r.cfg.APIURL,
		}); err != nil {
			return
		}
		r.state.MarkJoined()
		r.logger.Info("joined market", "name", r.cfg.Name)
		// Joining is protocol, not play: it does not spend budget.
		return

	case ActionHeartbeat:
		if err := r.publish(types.TopicSquare, tick, types.Heartbeat{
			AgentID:        r.cfg.ID,
			Wallet:         r.state.Wallet(),
			InventoryCount: r.state.InventoryTotal(),
		}); err != nil {
			return
		}
		r.state.MarkHeartbeat()

	case ActionGather:
		spawnID := action.SpawnID
		if spawnID == "" {
			spawnID, _ = r.state.Spawn()
		}
		if spawnID == "" {
			r.logger.Warn("gather with no known spawn", "item", action.Item)
			return
		}
		if err := r.publish(types.TopicNature, tick, types.Gather{
			SpawnID:  spawnID,
			Item:     action.Item,
			Quantity: action.Quantity,
		}); err != nil {
			return
		}

	case ActionOffer:
		env, err := r.publishEnv(types.TopicForItem(action.Item), tick, types.Offer{
			Item:         action.Item,
			Quantity:     action.Quantity,
			PricePerUnit: action.Price,
		})
		if err != nil {
			return
		}
		r.state.AddPending(PendingOffer{
			MsgID:        env.ID,
			Item:         action.Item,
			Quantity:     action.Quantity,
			PricePerUnit: action.Price,
			Tick:         tick,
			IsSell:       true,
		})
		r.logger.Info("offered", "item", action.Item, "quantity", action.Quantity, "price", action.Price)

	case ActionBid:
		env, err := r.publishEnv(types.TopicForItem(action.Item), tick, types.Bid{
			Item:            action.Item,
			Quantity:        action.Quantity,
			MaxPricePerUnit: action.Price,
			TargetAgent:     action.Target,
		})
		if err != nil {
			return
		}
		r.state.AddPending(PendingOffer{
			MsgID:        env.ID,
			Item:         action.Item,
			Quantity:     action.Quantity,
			PricePerUnit: action.Price,
			Tick:         tick,
			IsSell:       false,
		})
		r.logger.Info("bid", "item", action.Item, "quantity", action.Quantity, "max_price", action.Price)

	case ActionAccept:
		topic := action.Topic
		if topic == "" {
			topic = types.TopicSquare
		}
		if err := r.publish(topic, tick, types.Accept{
			ReferenceMsgID: action.RefID,
			Quantity:       action.Quantity,
		}); err != nil {
			return
		}
		r.logger.Info("accepted", "ref", action.RefID, "quantity", action.Quantity)

	case ActionCraftStart:
		recipe, ok := types.Recipes[action.Recipe]
		if !ok {
			r.logger.Warn("unknown recipe", "recipe", action.Recipe)
			return
		}
		if err := r.publish(types.TopicForItem(recipe.Output), tick, types.CraftStart{
			Recipe:         recipe.Name,
			Inputs:         maps.Clone(recipe.Inputs),
			EstimatedTicks: recipe.Ticks,
		}); err != nil {
			return
		}
		// Inputs leave the mirror now; the banker debits the ledger on
		// the same message.
		for item, quantity := range recipe.Inputs {
			r.state.RemoveInventory(item, quantity)
		}
		r.state.SetCraft(CraftingJob{
			Recipe:        recipe.Name,
			StartedTick:   tick,
			DurationTicks: recipe.Ticks,
		})
		r.logger.Info("craft started", "recipe", recipe.Name, "ticks", recipe.Ticks)

	case ActionCraftComplete:
		recipe, ok := types.Recipes[action.Recipe]
		if !ok {
			r.logger.Warn("unknown recipe", "recipe", action.Recipe)
			return
		}
		if err := r.publish(types.TopicForItem(recipe.Output), tick, types.CraftComplete{
			Recipe: recipe.Name,
			Output: map[string]int{recipe.Output: recipe.OutputQuantity},
			Agent:  r.cfg.ID,
		}); err != nil {
			return
		}
		r.state.AddInventory(recipe.Output, recipe.OutputQuantity)
		r.state.ClearCraft()
		r.logger.Info("craft complete", "recipe", recipe.Name, "output", recipe.Output)

	default:
		r.logger.Warn("unknown action kind", "kind", action.Kind)
		return
	}

	r.state.CountAction()
}

// publish builds and sends one message.
func (r *Runtime) publish(topic string, tick int64, payload types.Payload) error {
	_, err := r.publishEnv(topic, tick, payload)
	return err
}

// publishEnv is publish for callers that need the envelope id back.
func (r *Runtime) publishEnv(topic string, tick int64, payload types.Payload) (types.Envelope, error) {
	env, err := types.NewMessage(r.cfg.ID, topic, tick, payload)
	if err != nil {
		r.logger.Error("build message", "type", payload.Kind(), "error", err)
		return types.Envelope{}, err
	}
	if err := r.bus.Publish(env); err != nil {
		r.logger.Error("publish", "topic", topic, "type", payload.Kind(), "error", err)
		return types.Envelope{}, err
	}
	return env, nil
}
