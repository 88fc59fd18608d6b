package world

import (
	"testing"

	"streetmarket/pkg/types"
)

func TestAdjudicateGather(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		req         func(spawnID string) types.Gather
		wantGranted int
		wantSuccess bool
		wantReason  string
	}{
		{
			name:       "missing spawn id",
			req:        func(string) types.Gather { return types.Gather{Item: "potato", Quantity: 2} },
			wantReason: "Missing spawn_id",
		},
		{
			name:       "missing item",
			req:        func(id string) types.Gather { return types.Gather{SpawnID: id, Quantity: 2} },
			wantReason: "Missing item",
		},
		{
			name:       "zero quantity",
			req:        func(id string) types.Gather { return types.Gather{SpawnID: id, Item: "potato"} },
			wantReason: "Quantity must be positive",
		},
		{
			name:       "negative quantity",
			req:        func(id string) types.Gather { return types.Gather{SpawnID: id, Item: "potato", Quantity: -3} },
			wantReason: "Quantity must be positive",
		},
		{
			name:       "stale spawn",
			req:        func(string) types.Gather { return types.Gather{SpawnID: "long-gone", Item: "potato", Quantity: 2} },
			wantReason: "Spawn expired or not found",
		},
		{
			name:       "item not in spawn",
			req:        func(id string) types.Gather { return types.Gather{SpawnID: id, Item: "gold", Quantity: 2} },
			wantReason: "No gold remaining in spawn",
		},
		{
			name:        "full grant",
			req:         func(id string) types.Gather { return types.Gather{SpawnID: id, Item: "potato", Quantity: 3} },
			wantGranted: 3,
			wantSuccess: true,
		},
		{
			name:        "partial grant",
			req:         func(id string) types.Gather { return types.Gather{SpawnID: id, Item: "potato", Quantity: 9} },
			wantGranted: 5,
			wantSuccess: true,
			wantReason:  "Partial: only 5 remaining",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			state := NewState(map[string]int{"potato": 5})
			_, pool := state.AdvanceTick()

			granted, success, reason := adjudicateGather(tt.req(pool.SpawnID), state)
			if granted != tt.wantGranted {
				t.Errorf("granted = %d, want %d", granted, tt.wantGranted)
			}
			if success != tt.wantSuccess {
				t.Errorf("success = %v, want %v", success, tt.wantSuccess)
			}
			if reason != tt.wantReason {
				t.Errorf("reason = %q, want %q", reason, tt.wantReason)
			}
		})
	}
}
