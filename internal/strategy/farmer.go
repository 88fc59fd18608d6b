package strategy

import (
	"github.com/shopspring/decimal"

	"streetmarket/internal/agent"
	"streetmarket/pkg/types"
)

// farmerSellMarkup is the margin produce is offered at over base price.
var farmerSellMarkup = decimal.NewFromFloat(1.2)

// gatherTarget is one line of the farmer's per-tick gathering plan.
type gatherTarget struct {
	item     string
	quantity int
}

// Farmer grows and sells raw produce. Priority order each tick: gather
// to plan from the live spawn, accept bids for produce at or above base
// price, then offer any surplus beyond the reserve at a markup.
type Farmer struct {
	plan    []gatherTarget
	reserve int // stock of each crop held back from sale
}

// NewFarmer returns a farmer working the default potato and onion plan.
func NewFarmer() *Farmer {
	return &Farmer{
		plan: []gatherTarget{
			{item: "potato", quantity: 10},
			{item: "onion", quantity: 8},
		},
		reserve: 2,
	}
}

// Name implements Strategy.
func (*Farmer) Name() string { return "farmer" }

// Decide implements agent.Strategy.
func (f *Farmer) Decide(v agent.View) []agent.Action {
	var actions []agent.Action
	budget := v.RemainingBudget

	if v.SpawnID != "" {
		for _, target := range f.plan {
			if budget <= 0 {
				break
			}
			available := v.SpawnItems[target.item]
			if available <= 0 {
				continue
			}
			actions = append(actions, agent.Gather(v.SpawnID, target.item, min(target.quantity, available)))
			budget--
		}
	}

	// Take buy orders for our crops at fair prices. The banker rejects
	// the accept if stock turns out short, so no inventory check here.
	for _, obs := range v.ObservedOffers {
		if budget <= 0 {
			break
		}
		if obs.IsSell || !f.grows(obs.Item) {
			continue
		}
		if obs.PricePerUnit >= types.Items[obs.Item].BasePrice {
			actions = append(actions, agent.Accept(obs.MsgID, obs.Quantity, types.TopicForItem(obs.Item)))
			budget--
		}
	}

	for _, target := range f.plan {
		if budget <= 0 {
			break
		}
		surplus := v.InventoryCount(target.item) - f.reserve
		if surplus <= 0 {
			continue
		}
		actions = append(actions, agent.Offer(target.item, surplus, markupPrice(target.item, farmerSellMarkup)))
		budget--
	}

	return actions
}

func (f *Farmer) grows(item string) bool {
	for _, target := range f.plan {
		if target.item == item {
			return true
		}
	}
	return false
}
