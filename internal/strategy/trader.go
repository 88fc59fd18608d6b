package strategy

import (
	"maps"
	"slices"

	"github.com/shopspring/decimal"

	"streetmarket/internal/agent"
	"streetmarket/pkg/types"
)

// TraderConfig tunes the speculator.
type TraderConfig struct {
	WindowTicks int64   // how long quotes stay in the rolling window
	MinSamples  int     // quotes required before the mean is trusted
	Margin      float64 // resale markup over the rolling mean
	MaxLots     int     // per-accept quantity cap
}

// DefaultTraderConfig returns the tuning the trader ships with.
func DefaultTraderConfig() TraderConfig {
	return TraderConfig{
		WindowTicks: 10,
		MinSamples:  3,
		Margin:      1.1,
		MaxLots:     5,
	}
}

// priceSample is one quote pulled off the market.
type priceSample struct {
	tick  int64
	price float64
}

// priceWindow holds the recent quotes for one item.
type priceWindow struct {
	samples []priceSample
}

// add appends a sample and evicts everything older than windowTicks.
func (w *priceWindow) add(tick int64, price float64, windowTicks int64) {
	w.samples = append(w.samples, priceSample{tick: tick, price: price})
	w.evict(tick, windowTicks)
}

// evict drops samples at or before now minus windowTicks.
func (w *priceWindow) evict(now, windowTicks int64) {
	cutoff := now - windowTicks
	valid := -1
	for i, s := range w.samples {
		if s.tick > cutoff {
			valid = i
			break
		}
	}
	if valid == -1 {
		w.samples = w.samples[:0]
		return
	}
	if valid > 0 {
		w.samples = w.samples[valid:]
	}
}

// mean averages the window. ok is false below minSamples.
func (w *priceWindow) mean(minSamples int) (float64, bool) {
	if len(w.samples) < minSamples {
		return 0, false
	}
	sum := 0.0
	for _, s := range w.samples {
		sum += s.price
	}
	return sum / float64(len(w.samples)), true
}

// Trader is a pure speculator: it never gathers or crafts. Every quote
// it sees feeds a per-item rolling window; once a window has enough
// samples it buys sell offers priced below the rolling mean and
// re-offers whatever it holds above the mean at a margin.
//
// Not safe for concurrent use: the runtime calls Decide from a single
// goroutine.
type Trader struct {
	cfg     TraderConfig
	windows map[string]*priceWindow
}

// NewTrader returns a trader with the given tuning.
func NewTrader(cfg TraderConfig) *Trader {
	return &Trader{
		cfg:     cfg,
		windows: make(map[string]*priceWindow),
	}
}

// Name implements Strategy.
func (*Trader) Name() string { return "trader" }

// Decide implements agent.Strategy.
func (t *Trader) Decide(v agent.View) []agent.Action {
	for _, obs := range v.ObservedOffers {
		t.window(obs.Item).add(v.Tick, obs.PricePerUnit, t.cfg.WindowTicks)
	}

	var actions []agent.Action
	budget := v.RemainingBudget
	wallet := v.Wallet

	// Buy sell offers quoted below the item's rolling mean.
	for _, obs := range v.ObservedOffers {
		if budget <= 0 {
			break
		}
		if !obs.IsSell {
			continue
		}
		mean, ok := t.window(obs.Item).mean(t.cfg.MinSamples)
		if !ok || obs.PricePerUnit >= mean {
			continue
		}
		quantity := min(obs.Quantity, t.cfg.MaxLots)
		cost := float64(quantity) * obs.PricePerUnit
		if cost > wallet {
			continue
		}
		actions = append(actions, agent.Accept(obs.MsgID, quantity, types.TopicForItem(obs.Item)))
		wallet -= cost
		budget--
	}

	// Flip held goods above the mean.
	for _, item := range slices.Sorted(maps.Keys(v.Inventory)) {
		if budget <= 0 {
			break
		}
		held := v.Inventory[item]
		if held <= 0 {
			continue
		}
		mean, ok := t.window(item).mean(t.cfg.MinSamples)
		if !ok {
			continue
		}
		price := decimal.NewFromFloat(mean).
			Mul(decimal.NewFromFloat(t.cfg.Margin)).
			Round(2).InexactFloat64()
		actions = append(actions, agent.Offer(item, held, price))
		budget--
	}

	return actions
}

func (t *Trader) window(item string) *priceWindow {
	w, ok := t.windows[item]
	if !ok {
		w = &priceWindow{}
		t.windows[item] = w
	}
	return w
}
