package types

import "time"

// Economy constants shared by every service.
const (
	// StartingWallet is the balance a fresh account opens with.
	StartingWallet = 100.0

	// MaxActionsPerTick caps how many actions one agent may take in a
	// single tick. Enforced client-side by the agent runtime and
	// server-side by the Governor's rate limiter.
	MaxActionsPerTick = 5

	// HeartbeatInterval is how many ticks an agent waits between
	// heartbeats.
	HeartbeatInterval = 5

	// HeartbeatTimeoutTicks is how many ticks of heartbeat silence make
	// an agent count as inactive. Agents that never heartbeated at all
	// are exempt.
	HeartbeatTimeoutTicks = 10

	// DefaultTickInterval is the World Engine's default clock period.
	DefaultTickInterval = 5 * time.Second
)
