package strategy

import (
	"cmp"
	"slices"

	"github.com/shopspring/decimal"

	"streetmarket/internal/agent"
	"streetmarket/pkg/types"
)

var (
	// chefMaxBuyMarkup caps what the chef pays for ingredients.
	chefMaxBuyMarkup = decimal.NewFromFloat(1.5)
	// chefBidMarkup is the price advertised when bidding for missing
	// ingredients.
	chefBidMarkup = decimal.NewFromFloat(1.3)
)

// soupSellPrice is what a bowl goes for, comfortably above the 7.0 of
// inputs at farmer prices.
const soupSellPrice = 10.0

// Chef turns produce into soup. Priority order each tick: buy the
// cheapest ingredient offers within the price cap, start a soup when the
// pantry allows, offer finished soup, and bid for missing ingredients
// when no seller is visible at any price.
type Chef struct {
	recipe      types.Recipe
	ingredients []string // bid order when both inputs are missing
}

// NewChef returns a chef cooking the catalogue soup recipe.
func NewChef() *Chef {
	return &Chef{
		recipe:      types.Recipes["soup"],
		ingredients: []string{"potato", "onion"},
	}
}

// Name implements Strategy.
func (*Chef) Name() string { return "chef" }

// Decide implements agent.Strategy.
func (c *Chef) Decide(v agent.View) []agent.Action {
	var actions []agent.Action
	budget := v.RemainingBudget

	var sells []agent.ObservedOffer
	for _, obs := range v.ObservedOffers {
		if obs.IsSell && slices.Contains(c.ingredients, obs.Item) {
			sells = append(sells, obs)
		}
	}
	slices.SortStableFunc(sells, func(a, b agent.ObservedOffer) int {
		return cmp.Compare(a.PricePerUnit, b.PricePerUnit)
	})

	for _, offer := range sells {
		if budget <= 0 {
			break
		}
		if offer.PricePerUnit <= markupPrice(offer.Item, chefMaxBuyMarkup) {
			actions = append(actions, agent.Accept(offer.MsgID, offer.Quantity, types.TopicForItem(offer.Item)))
			budget--
		}
	}

	if budget > 0 && !v.Crafting && v.HasItems(c.recipe.Inputs) {
		actions = append(actions, agent.CraftStart(c.recipe.Name))
		budget--
	}

	if soup := v.InventoryCount(c.recipe.Output); budget > 0 && soup > 0 {
		actions = append(actions, agent.Offer(c.recipe.Output, soup, soupSellPrice))
		budget--
	}

	// Nobody selling ingredients this tick, not even overpriced:
	// advertise demand instead.
	if budget > 0 && len(sells) == 0 {
		for _, ingredient := range c.ingredients {
			if budget <= 0 {
				break
			}
			missing := c.recipe.Inputs[ingredient] - v.InventoryCount(ingredient)
			if missing <= 0 {
				continue
			}
			actions = append(actions, agent.Bid(ingredient, missing, markupPrice(ingredient, chefBidMarkup), ""))
			budget--
		}
	}

	return actions
}
