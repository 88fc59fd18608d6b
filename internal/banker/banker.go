package banker

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"streetmarket/internal/bus"
	"streetmarket/pkg/types"
)

// ID is the Banker's identity on the bus.
const ID = "banker"

// Banker watches every market topic for economic activity, the world
// topics for gather results, and the tick for order expiry. Trades it
// settles are announced on /market/bank.
type Banker struct {
	bus    bus.Bus
	state  *State
	logger *slog.Logger
}

// New builds a Banker on top of an already connected bus.
func New(b bus.Bus, logger *slog.Logger) *Banker {
	return &Banker{
		bus:    b,
		state:  NewState(),
		logger: logger.With("component", "banker"),
	}
}

// State exposes banker state for tests and the observer.
func (bk *Banker) State() *State { return bk.state }

// Start subscribes to market traffic, world traffic, and the tick.
func (bk *Banker) Start() error {
	if err := bk.bus.Subscribe(types.TopicAllMarkets, bk.onMarket); err != nil {
		return fmt.Errorf("subscribe %s: %w", types.TopicAllMarkets, err)
	}
	if err := bk.bus.Subscribe(types.TopicTick, bk.onTick); err != nil {
		return fmt.Errorf("subscribe %s: %w", types.TopicTick, err)
	}
	if err := bk.bus.Subscribe(types.TopicAllWorld, bk.onWorld); err != nil {
		return fmt.Errorf("subscribe %s: %w", types.TopicAllWorld, err)
	}
	return nil
}

func (bk *Banker) onMarket(env types.Envelope) {
	// Our own settlements come back around on /market/bank.
	if env.From == ID && env.Type == types.TypeSettlement {
		return
	}

	tick := bk.state.CurrentTick()
	switch env.Type {
	case types.TypeJoin:
		var p types.Join
		bk.decode(env, &p)
		if processJoin(env, &p, bk.state) {
			bk.logger.Info("account opened",
				"tick", tick, "agent", accountID(env, &p), "wallet", types.StartingWallet)
		}

	case types.TypeOffer:
		var p types.Offer
		bk.decode(env, &p)
		if errs := processOffer(env, &p, bk.state); len(errs) > 0 {
			bk.logger.Warn("offer rejected",
				"tick", tick, "agent", env.From, "reasons", strings.Join(errs, "; "))
		} else {
			bk.logger.Info("offer booked",
				"tick", tick, "agent", env.From, "item", p.Item,
				"quantity", p.Quantity, "price", p.PricePerUnit)
		}

	case types.TypeBid:
		var p types.Bid
		bk.decode(env, &p)
		if errs := processBid(env, &p, bk.state); len(errs) > 0 {
			bk.logger.Warn("bid rejected",
				"tick", tick, "agent", env.From, "reasons", strings.Join(errs, "; "))
		} else {
			bk.logger.Info("bid booked",
				"tick", tick, "agent", env.From, "item", p.Item,
				"quantity", p.Quantity, "max_price", p.MaxPricePerUnit)
		}

	case types.TypeAccept:
		var p types.Accept
		bk.decode(env, &p)
		result := processAccept(env, &p, bk.state)
		if len(result.Errors) > 0 {
			bk.logger.Warn("accept failed",
				"tick", tick, "agent", env.From, "reasons", strings.Join(result.Errors, "; "))
			return
		}
		bk.publishSettlement(result)
		bk.logger.Info("settled",
			"tick", tick, "seller", result.Seller, "buyer", result.Buyer,
			"item", result.Item, "quantity", result.Quantity, "total", result.TotalPrice)

	case types.TypeCraftStart:
		var p types.CraftStart
		bk.decode(env, &p)
		if errs := processCraftStart(env, &p, bk.state); len(errs) > 0 {
			bk.logger.Warn("craft start rejected",
				"tick", tick, "agent", env.From, "reasons", strings.Join(errs, "; "))
		} else {
			bk.logger.Info("craft inputs debited",
				"tick", tick, "agent", env.From, "recipe", p.Recipe)
		}

	case types.TypeCraftComplete:
		var p types.CraftComplete
		bk.decode(env, &p)
		if errs := processCraftComplete(env, &p, bk.state); len(errs) > 0 {
			bk.logger.Warn("craft complete rejected",
				"tick", tick, "agent", env.From, "reasons", strings.Join(errs, "; "))
		} else {
			bk.logger.Info("craft outputs credited",
				"tick", tick, "agent", env.From, "recipe", p.Recipe)
		}
	}
	// counter, heartbeat, validation_result, settlement: nothing to settle.
}

// onWorld credits successful gathers. Failed gathers carry nothing.
func (bk *Banker) onWorld(env types.Envelope) {
	if env.Type != types.TypeGatherResult {
		return
	}
	var p types.GatherResult
	bk.decode(env, &p)
	if !p.Success {
		return
	}

	if errs := processGatherResult(&p, bk.state); len(errs) > 0 {
		bk.logger.Warn("gather credit failed",
			"tick", bk.state.CurrentTick(), "agent", p.AgentID,
			"reasons", strings.Join(errs, "; "))
	} else {
		bk.logger.Info("gather credited",
			"tick", bk.state.CurrentTick(), "agent", p.AgentID,
			"item", p.Item, "quantity", p.Quantity)
	}
}

// onTick advances the clock and expires stale offers.
func (bk *Banker) onTick(env types.Envelope) {
	var tick types.Tick
	bk.decode(env, &tick)

	bk.state.AdvanceTick(tick.TickNumber)
	if expired := bk.state.PurgeExpired(); len(expired) > 0 {
		bk.logger.Info("purged expired orders",
			"tick", tick.TickNumber, "count", len(expired))
	}
}

func (bk *Banker) publishSettlement(result TradeResult) {
	tick := bk.state.CurrentTick()
	msg, err := types.NewMessage(ID, types.TopicBank, tick, types.Settlement{
		ReferenceMsgID: result.ReferenceMsgID,
		Buyer:          result.Buyer,
		Seller:         result.Seller,
		Item:           result.Item,
		Quantity:       result.Quantity,
		TotalPrice:     result.TotalPrice,
		Status:         "completed",
	})
	if err != nil {
		bk.logger.Error("build settlement", "ref", result.ReferenceMsgID, "error", err)
		return
	}
	if err := bk.bus.Publish(msg); err != nil {
		bk.logger.Error("publish settlement", "ref", result.ReferenceMsgID, "error", err)
	}
}

// decode fills p from the envelope payload. An unreadable payload is
// logged and processing continues with whatever decoded; the zero fields
// fail the downstream checks.
func (bk *Banker) decode(env types.Envelope, p any) {
	if len(env.Payload) == 0 {
		return
	}
	if err := json.Unmarshal(env.Payload, p); err != nil {
		bk.logger.Warn("unreadable payload", "type", env.Type, "from", env.From, "error", err)
	}
}

func accountID(env types.Envelope, p *types.Join) string {
	if p.AgentID != "" {
		return p.AgentID
	}
	return env.From
}
