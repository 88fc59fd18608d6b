package governor

import (
	"fmt"
	"maps"

	"streetmarket/pkg/types"
)

// checkRules applies the business rules to one structurally valid
// message and returns every reason it fails. It carries the rule side
// effects too: joins register the agent, heartbeats stamp liveness, and
// craft messages move the craft state machine.
//
// Wallet and inventory checks are not here. The Governor rules on form;
// the Banker rules on funds.
func checkRules(env types.Envelope, payload types.Payload, state *State) []string {
	agentID := env.From

	// The budget check stands alone: a rate-limited agent gets no
	// further analysis this tick.
	if state.IsRateLimited(agentID) {
		return []string{fmt.Sprintf("Rate limited: %s exceeded max actions this tick", agentID)}
	}

	var errs []string
	if state.IsInactive(agentID) {
		errs = append(errs, fmt.Sprintf("Agent '%s' is inactive (no heartbeat)", agentID))
	}

	switch p := payload.(type) {
	case *types.Offer:
		errs = append(errs, checkItem(p.Item)...)
	case *types.Bid:
		errs = append(errs, checkItem(p.Item)...)
	case *types.Accept:
		if p.ReferenceMsgID == "" {
			errs = append(errs, "Accept missing reference_msg_id")
		}
	case *types.Counter:
		if p.ReferenceMsgID == "" {
			errs = append(errs, "Counter missing reference_msg_id")
		}
	case *types.CraftStart:
		errs = append(errs, checkCraftStart(agentID, p, state)...)
	case *types.CraftComplete:
		errs = append(errs, checkCraftComplete(agentID, state)...)
	case *types.Join:
		id := p.AgentID
		if id == "" {
			id = agentID
		}
		state.RegisterAgent(id)
	case *types.Heartbeat:
		state.RecordHeartbeat(agentID)
	}

	return errs
}

func checkItem(item string) []string {
	if !types.ValidItem(item) {
		return []string{fmt.Sprintf("Unknown item: '%s'", item)}
	}
	return nil
}

// checkCraftStart verifies the recipe exists, the declared inputs and
// duration match it, and the agent is not already crafting. When all of
// that holds the craft is registered as started.
func checkCraftStart(agentID string, p *types.CraftStart, state *State) []string {
	if !types.ValidRecipe(p.Recipe) {
		return []string{fmt.Sprintf("Unknown recipe: '%s'", p.Recipe)}
	}
	recipe := types.Recipes[p.Recipe]

	var errs []string
	if !maps.Equal(p.Inputs, recipe.Inputs) {
		errs = append(errs, fmt.Sprintf(
			"Inputs mismatch for recipe '%s': expected %v, got %v",
			p.Recipe, recipe.Inputs, p.Inputs))
	}
	if p.EstimatedTicks != recipe.Ticks {
		errs = append(errs, fmt.Sprintf(
			"Estimated ticks mismatch for '%s': expected %d, got %d",
			p.Recipe, recipe.Ticks, p.EstimatedTicks))
	}
	if craft, ok := state.ActiveCraftFor(agentID); ok {
		errs = append(errs, fmt.Sprintf(
			"Agent '%s' is already crafting '%s'", agentID, craft.Recipe))
	}

	if len(errs) == 0 {
		state.StartCraft(agentID, p.Recipe, recipe.Ticks)
	}
	return errs
}

func checkCraftComplete(agentID string, state *State) []string {
	if _, ok := state.CompleteCraft(agentID); !ok {
		return []string{fmt.Sprintf("Agent '%s' has no active craft to complete", agentID)}
	}
	return nil
}
