package world

import (
	"fmt"

	"streetmarket/pkg/types"
)

// adjudicateGather validates one gather request and, when it passes,
// claims from the live pool. Checks run in a fixed order so the first
// failure decides the reason the requester sees. A partial grant still
// succeeds; the shortfall travels in the reason.
func adjudicateGather(req types.Gather, state *State) (granted int, success bool, reason string) {
	if req.SpawnID == "" {
		return 0, false, "Missing spawn_id"
	}
	if req.Item == "" {
		return 0, false, "Missing item"
	}
	if req.Quantity <= 0 {
		return 0, false, "Quantity must be positive"
	}

	granted, errReason := state.TryGather(req.SpawnID, req.Item, req.Quantity)
	if errReason != "" {
		return 0, false, errReason
	}
	if granted < req.Quantity {
		return granted, true, fmt.Sprintf("Partial: only %d remaining", granted)
	}
	return granted, true, ""
}
