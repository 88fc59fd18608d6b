package observer

import (
	"sort"
	"time"

	"streetmarket/pkg/types"
)

// Snapshot is the full observer state document, served on /api/snapshot
// and pushed to each dashboard client on connect. It is also what the
// store exports to disk.
type Snapshot struct {
	Timestamp     time.Time                 `json:"timestamp"`
	Tick          int64                     `json:"tick"`
	Spawn         *SpawnInfo                `json:"spawn,omitempty"`
	Agents        []AgentInfo               `json:"agents"`
	OpenOrders    []OpenOrder               `json:"open_orders"`
	Settlements   []SettlementRecord        `json:"settlements"`
	Failures      []VerdictRecord           `json:"failures"`
	TotalWallets  float64                   `json:"total_wallets"` // sum of last reported wallets
	MessageCounts map[types.MessageType]int `json:"message_counts"`
}

// Snapshot assembles the tracker state into one document. Slices and
// maps are copied, so the caller can hold the result while the tracker
// keeps folding traffic.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()

	agents := make([]AgentInfo, 0, len(t.agents))
	var totalWallets float64
	for _, info := range t.agents {
		agents = append(agents, *info)
		totalWallets += info.Wallet
	}
	sort.Slice(agents, func(i, j int) bool { return agents[i].AgentID < agents[j].AgentID })

	orders := make([]OpenOrder, 0, len(t.orders))
	for _, order := range t.orders {
		orders = append(orders, *order)
	}
	sort.Slice(orders, func(i, j int) bool {
		if orders[i].Tick != orders[j].Tick {
			return orders[i].Tick < orders[j].Tick
		}
		return orders[i].MsgID < orders[j].MsgID
	})

	counts := make(map[types.MessageType]int, len(t.counts))
	for k, v := range t.counts {
		counts[k] = v
	}

	// Spawn payloads are replaced wholesale on each tick, never mutated,
	// so sharing the items map is fine.
	var spawn *SpawnInfo
	if t.spawn != nil {
		s := *t.spawn
		spawn = &s
	}

	return Snapshot{
		Timestamp:     time.Now(),
		Tick:          t.currentTick,
		Spawn:         spawn,
		Agents:        agents,
		OpenOrders:    orders,
		Settlements:   append([]SettlementRecord(nil), t.settlements...),
		Failures:      append([]VerdictRecord(nil), t.failures...),
		TotalWallets:  totalWallets,
		MessageCounts: counts,
	}
}
