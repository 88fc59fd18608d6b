// Package strategy contains the trading brains that plug into the agent
// runtime. Each strategy is a pure decision function over the runtime's
// view snapshot: no I/O, no bus access, just actions out. The runtime
// enforces the real budget; strategies keep a working copy so they stop
// queueing at zero instead of having the tail silently dropped.
package strategy

import (
	"fmt"

	"github.com/shopspring/decimal"

	"streetmarket/internal/agent"
	"streetmarket/pkg/types"
)

// Strategy is an agent.Strategy with a stable name for config wiring.
type Strategy interface {
	agent.Strategy
	Name() string
}

// ForName returns the strategy registered under name: farmer, chef, or
// trader.
func ForName(name string) (Strategy, error) {
	switch name {
	case "farmer":
		return NewFarmer(), nil
	case "chef":
		return NewChef(), nil
	case "trader":
		return NewTrader(DefaultTraderConfig()), nil
	}
	return nil, fmt.Errorf("unknown strategy %q", name)
}

// markupPrice is the catalogue base price of item scaled by markup and
// rounded to cents. The markup runs through decimal so 3.0 x 1.2 quotes
// as 3.6, not 3.5999999999999996.
func markupPrice(item string, markup decimal.Decimal) float64 {
	base := decimal.NewFromFloat(types.Items[item].BasePrice)
	return base.Mul(markup).Round(2).InexactFloat64()
}
