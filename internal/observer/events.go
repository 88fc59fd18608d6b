package observer

import "time"

// DashboardEvent is the wrapper for everything pushed over the dashboard
// stream.
type DashboardEvent struct {
	Type      string    `json:"type"` // "snapshot", "tick", "join", "order", "settlement", "verdict"
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

// TickEvent announces a new world tick.
type TickEvent struct {
	Tick int64 `json:"tick"`
}

// JoinEvent announces an agent entering the market.
type JoinEvent struct {
	AgentID string `json:"agent_id"`
	Name    string `json:"name,omitempty"`
	Tick    int64  `json:"tick"`
}

// NewTickEvent wraps a tick announcement.
func NewTickEvent(tick int64) DashboardEvent {
	return DashboardEvent{
		Type:      "tick",
		Timestamp: time.Now(),
		Data:      TickEvent{Tick: tick},
	}
}

// NewJoinEvent wraps an agent join.
func NewJoinEvent(agentID, name string, tick int64) DashboardEvent {
	return DashboardEvent{
		Type:      "join",
		Timestamp: time.Now(),
		Data:      JoinEvent{AgentID: agentID, Name: name, Tick: tick},
	}
}

// NewOrderEvent wraps a new offer or bid.
func NewOrderEvent(order OpenOrder) DashboardEvent {
	return DashboardEvent{
		Type:      "order",
		Timestamp: time.Now(),
		Data:      order,
	}
}

// NewSettlementEvent wraps a completed trade.
func NewSettlementEvent(record SettlementRecord) DashboardEvent {
	return DashboardEvent{
		Type:      "settlement",
		Timestamp: time.Now(),
		Data:      record,
	}
}

// NewVerdictEvent wraps a Governor rejection.
func NewVerdictEvent(record VerdictRecord) DashboardEvent {
	return DashboardEvent{
		Type:      "verdict",
		Timestamp: time.Now(),
		Data:      record,
	}
}

// NewSnapshotEvent wraps a full state snapshot. Sent to each client on
// connect so the dashboard can render before the first delta arrives.
func NewSnapshotEvent(snap Snapshot) DashboardEvent {
	return DashboardEvent{
		Type:      "snapshot",
		Timestamp: time.Now(),
		Data:      snap,
	}
}
