package banker

import (
	"fmt"
	"maps"
	"slices"

	"streetmarket/pkg/types"
)

// TradeResult is the outcome of trying to settle an accept. Errors empty
// means the trade executed and the rest of the fields describe it.
type TradeResult struct {
	Errors         []string
	Buyer          string
	Seller         string
	Item           string
	Quantity       int
	TotalPrice     float64
	ReferenceMsgID string
}

// processJoin opens an account with the starting wallet. Re-joins are
// no-ops; an agent cannot reset its balance by joining again. Returns
// whether a new account was created.
func processJoin(env types.Envelope, p *types.Join, state *State) bool {
	agentID := p.AgentID
	if agentID == "" {
		agentID = env.From
	}
	if state.HasAccount(agentID) {
		return false
	}
	state.CreateAccount(agentID, types.StartingWallet)
	return true
}

// processOffer books a sell order once the seller's account and
// inventory check out. Nothing is escrowed; the goods stay with the
// seller until a trade settles.
func processOffer(env types.Envelope, p *types.Offer, state *State) []string {
	agentID := env.From

	if !state.HasAccount(agentID) {
		return []string{fmt.Sprintf("No account for agent '%s'", agentID)}
	}
	if !state.HasInventory(agentID, p.Item, p.Quantity) {
		return []string{fmt.Sprintf(
			"Agent '%s' has insufficient inventory: needs %d %s",
			agentID, p.Quantity, p.Item)}
	}

	state.AddOrder(Order{
		MsgID:        env.ID,
		Agent:        agentID,
		Side:         types.TypeOffer,
		Item:         p.Item,
		Quantity:     p.Quantity,
		PricePerUnit: p.PricePerUnit,
		Tick:         state.CurrentTick(),
		ExpiresTick:  p.ExpiresTick,
	})
	return nil
}

// processBid books a buy order once the buyer's account and funds check
// out. Funds are not locked either; a bidder can overspend elsewhere and
// the trade will simply fail at settlement.
func processBid(env types.Envelope, p *types.Bid, state *State) []string {
	agentID := env.From
	totalCost := float64(p.Quantity) * p.MaxPricePerUnit

	if !state.HasAccount(agentID) {
		return []string{fmt.Sprintf("No account for agent '%s'", agentID)}
	}
	account, _ := state.GetAccount(agentID)
	if account.Wallet < totalCost {
		return []string{fmt.Sprintf(
			"Agent '%s' has insufficient funds: needs %.2f, has %.2f",
			agentID, totalCost, account.Wallet)}
	}

	state.AddOrder(Order{
		MsgID:        env.ID,
		Agent:        agentID,
		Side:         types.TypeBid,
		Item:         p.Item,
		Quantity:     p.Quantity,
		PricePerUnit: p.MaxPricePerUnit,
		Tick:         state.CurrentTick(),
	})
	return nil
}

// processAccept settles a trade against a booked order.
//
// Accepting an offer makes the accepter the buyer; accepting a bid makes
// the accepter the seller. Partial fills are allowed: the traded
// quantity is the smaller of the accept's and the order's.
func processAccept(env types.Envelope, p *types.Accept, state *State) TradeResult {
	var result TradeResult
	accepter := env.From

	order, ok := state.GetOrder(p.ReferenceMsgID)
	if !ok {
		result.Errors = append(result.Errors,
			fmt.Sprintf("Referenced order '%s' not found in book", p.ReferenceMsgID))
		return result
	}

	var buyer, seller string
	if order.Side == types.TypeOffer {
		buyer, seller = accepter, order.Agent
	} else {
		buyer, seller = order.Agent, accepter
	}

	if buyer == seller {
		result.Errors = append(result.Errors, "Self-trade not allowed")
		return result
	}

	quantity := min(p.Quantity, order.Quantity)
	total := float64(quantity) * order.PricePerUnit

	if !state.HasAccount(buyer) {
		result.Errors = append(result.Errors, fmt.Sprintf("Buyer '%s' has no account", buyer))
		return result
	}
	if !state.HasAccount(seller) {
		result.Errors = append(result.Errors, fmt.Sprintf("Seller '%s' has no account", seller))
		return result
	}
	buyerAcct, _ := state.GetAccount(buyer)
	if buyerAcct.Wallet < total {
		result.Errors = append(result.Errors, fmt.Sprintf(
			"Buyer '%s' has insufficient funds: needs %.2f, has %.2f",
			buyer, total, buyerAcct.Wallet))
		return result
	}
	if !state.HasInventory(seller, order.Item, quantity) {
		result.Errors = append(result.Errors, fmt.Sprintf(
			"Seller '%s' has insufficient inventory: needs %d %s",
			seller, quantity, order.Item))
		return result
	}

	state.Transfer(buyer, seller, order.Item, quantity, total, order.MsgID)

	result.Buyer = buyer
	result.Seller = seller
	result.Item = order.Item
	result.Quantity = quantity
	result.TotalPrice = total
	result.ReferenceMsgID = order.MsgID
	return result
}

// processCraftStart debits every input from the crafter's inventory.
// All inputs must be present before any is taken.
func processCraftStart(env types.Envelope, p *types.CraftStart, state *State) []string {
	agentID := env.From

	if !state.HasAccount(agentID) {
		return []string{fmt.Sprintf("No account for agent '%s'", agentID)}
	}

	var errs []string
	items := slices.Sorted(maps.Keys(p.Inputs))
	for _, item := range items {
		if !state.HasInventory(agentID, item, p.Inputs[item]) {
			errs = append(errs, fmt.Sprintf(
				"Agent '%s' has insufficient %s: needs %d",
				agentID, item, p.Inputs[item]))
		}
	}
	if len(errs) > 0 {
		return errs
	}

	for _, item := range items {
		state.DebitInventory(agentID, item, p.Inputs[item])
	}
	return nil
}

// processCraftComplete credits every output to the crafter's inventory.
// There is no check that a craft_start ever happened; the Governor's
// craft state machine is the guard, so a buggy agent that skips it can
// mint goods here.
func processCraftComplete(env types.Envelope, p *types.CraftComplete, state *State) []string {
	agentID := env.From

	if !state.HasAccount(agentID) {
		return []string{fmt.Sprintf("No account for agent '%s'", agentID)}
	}
	for item, quantity := range p.Output {
		state.CreditInventory(agentID, item, quantity)
	}
	return nil
}

// processGatherResult credits a successful gather to the agent named in
// the payload. Agents can gather before joining, so a missing account is
// opened on the spot with the starting wallet.
func processGatherResult(p *types.GatherResult, state *State) []string {
	if p.AgentID == "" {
		return []string{"Missing agent_id in GATHER_RESULT"}
	}
	if p.Quantity <= 0 {
		return []string{fmt.Sprintf("Invalid quantity %d in GATHER_RESULT", p.Quantity)}
	}

	if !state.HasAccount(p.AgentID) {
		state.CreateAccount(p.AgentID, types.StartingWallet)
	}
	state.CreditInventory(p.AgentID, p.Item, p.Quantity)
	return nil
}
