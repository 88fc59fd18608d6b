// Package observer implements the read-only dashboard service. A Tracker
// folds every bus topic into a live picture of the economy, a WebSocket
// hub streams change events to connected dashboards, and a Poller
// enriches the picture with each agent's own status API. Nothing here
// publishes market traffic: the observer watches, it never plays.
package observer

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"streetmarket/internal/agent"
	"streetmarket/internal/bus"
	"streetmarket/pkg/types"
)

// historyLimit caps the settlement and failure logs kept in memory.
const historyLimit = 100

// senderLimit caps the message ids remembered for verdict attribution.
const senderLimit = 512

// AgentInfo is everything the observer knows about one agent.
type AgentInfo struct {
	AgentID           string        `json:"agent_id"`
	Name              string        `json:"name"`
	Description       string        `json:"description,omitempty"`
	APIURL            string        `json:"api_url,omitempty"`
	JoinedTick        int64         `json:"joined_tick"`
	LastHeartbeatTick int64         `json:"last_heartbeat_tick"`
	Wallet            float64       `json:"wallet"`           // from the last heartbeat
	InventoryCount    int           `json:"inventory_count"`  // from the last heartbeat
	Status            *agent.Status `json:"status,omitempty"` // from the poller, when the agent serves one
}

// OpenOrder is an offer or bid seen on the bus and not yet fully filled.
type OpenOrder struct {
	MsgID        string  `json:"msg_id"`
	Agent        string  `json:"agent"`
	Side         string  `json:"side"` // "offer" or "bid"
	Item         string  `json:"item"`
	Quantity     int     `json:"quantity"`
	PricePerUnit float64 `json:"price_per_unit"`
	Tick         int64   `json:"tick"`
}

// SettlementRecord is one completed trade.
type SettlementRecord struct {
	Buyer      string  `json:"buyer"`
	Seller     string  `json:"seller"`
	Item       string  `json:"item"`
	Quantity   int     `json:"quantity"`
	TotalPrice float64 `json:"total_price"`
	Tick       int64   `json:"tick"`
}

// VerdictRecord is one Governor rejection.
type VerdictRecord struct {
	Agent  string `json:"agent"`
	Action string `json:"action"`
	Reason string `json:"reason"`
	Tick   int64  `json:"tick"`
}

// SpawnInfo is the resource pool announced for the current tick.
type SpawnInfo struct {
	SpawnID string         `json:"spawn_id"`
	Tick    int64          `json:"tick"`
	Items   map[string]int `json:"items"`
}

// Tracker subscribes to every topic and folds the traffic into the
// observer's picture of the economy. Each interesting message also goes
// out on the event channel for the dashboard stream; the channel send is
// non-blocking, so a slow dashboard drops events rather than stalling
// the tracker.
type Tracker struct {
	bus    bus.Bus
	logger *slog.Logger
	events chan DashboardEvent

	mu          sync.RWMutex
	currentTick int64
	spawn       *SpawnInfo
	agents      map[string]*AgentInfo
	orders      map[string]*OpenOrder
	settlements []SettlementRecord
	failures    []VerdictRecord
	counts      map[types.MessageType]int
	senders     map[string]string // msg id -> sender, for verdict attribution
	senderIDs   []string          // insertion order, oldest first
}

// NewTracker builds a tracker on an already connected bus.
func NewTracker(b bus.Bus, logger *slog.Logger) *Tracker {
	return &Tracker{
		bus:     b,
		logger:  logger.With("component", "tracker"),
		events:  make(chan DashboardEvent, 256),
		agents:  make(map[string]*AgentInfo),
		orders:  make(map[string]*OpenOrder),
		counts:  make(map[types.MessageType]int),
		senders: make(map[string]string),
	}
}

// Events returns the stream the dashboard hub consumes.
func (t *Tracker) Events() <-chan DashboardEvent {
	return t.events
}

// Start subscribes to the clock, the world, and every market.
func (t *Tracker) Start() error {
	if err := t.bus.Subscribe(types.TopicTick, t.onTick); err != nil {
		return fmt.Errorf("subscribe %s: %w", types.TopicTick, err)
	}
	if err := t.bus.Subscribe(types.TopicAllWorld, t.onWorld); err != nil {
		return fmt.Errorf("subscribe %s: %w", types.TopicAllWorld, err)
	}
	if err := t.bus.Subscribe(types.TopicAllMarkets, t.onMarket); err != nil {
		return fmt.Errorf("subscribe %s: %w", types.TopicAllMarkets, err)
	}
	return nil
}

func (t *Tracker) onTick(env types.Envelope) {
	var p types.Tick
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		return
	}
	t.mu.Lock()
	t.currentTick = p.TickNumber
	t.counts[env.Type]++
	t.mu.Unlock()

	t.emit(NewTickEvent(p.TickNumber))
}

func (t *Tracker) onWorld(env types.Envelope) {
	t.mu.Lock()
	t.counts[env.Type]++
	t.mu.Unlock()

	if env.Type != types.TypeSpawn {
		return
	}
	var p types.Spawn
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		return
	}
	t.mu.Lock()
	t.spawn = &SpawnInfo{SpawnID: p.SpawnID, Tick: p.Tick, Items: p.Items}
	t.mu.Unlock()
}

func (t *Tracker) onMarket(env types.Envelope) {
	t.mu.Lock()
	t.counts[env.Type]++
	if env.Type != types.TypeValidationResult {
		t.rememberSender(env.ID, env.From)
	}
	t.mu.Unlock()

	switch env.Type {
	case types.TypeJoin:
		var p types.Join
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return
		}
		t.recordJoin(env, p)

	case types.TypeHeartbeat:
		var p types.Heartbeat
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return
		}
		t.recordHeartbeat(env, p)

	case types.TypeOffer:
		var p types.Offer
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return
		}
		t.recordOrder(env, "offer", p.Item, p.Quantity, p.PricePerUnit)

	case types.TypeBid:
		var p types.Bid
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return
		}
		t.recordOrder(env, "bid", p.Item, p.Quantity, p.MaxPricePerUnit)

	case types.TypeSettlement:
		var p types.Settlement
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return
		}
		t.recordSettlement(env, p)

	case types.TypeValidationResult:
		var p types.ValidationResult
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return
		}
		if !p.Valid {
			t.recordFailure(env, p)
		}
	}
}

func (t *Tracker) recordJoin(env types.Envelope, p types.Join) {
	agentID := p.AgentID
	if agentID == "" {
		agentID = env.From
	}

	t.mu.Lock()
	info, ok := t.agents[agentID]
	if !ok {
		info = &AgentInfo{AgentID: agentID, JoinedTick: env.Tick}
		t.agents[agentID] = info
	}
	info.Name = p.Name
	info.Description = p.Description
	info.APIURL = p.APIURL
	t.mu.Unlock()

	t.emit(NewJoinEvent(agentID, p.Name, env.Tick))
}

func (t *Tracker) recordHeartbeat(env types.Envelope, p types.Heartbeat) {
	agentID := p.AgentID
	if agentID == "" {
		agentID = env.From
	}

	t.mu.Lock()
	info, ok := t.agents[agentID]
	if !ok {
		// Heartbeat before the join reached us; cross-topic order is not
		// guaranteed.
		info = &AgentInfo{AgentID: agentID, JoinedTick: env.Tick}
		t.agents[agentID] = info
	}
	info.LastHeartbeatTick = env.Tick
	info.Wallet = p.Wallet
	info.InventoryCount = p.InventoryCount
	t.mu.Unlock()
}

func (t *Tracker) recordOrder(env types.Envelope, side, item string, quantity int, price float64) {
	order := &OpenOrder{
		MsgID:        env.ID,
		Agent:        env.From,
		Side:         side,
		Item:         item,
		Quantity:     quantity,
		PricePerUnit: price,
		Tick:         env.Tick,
	}

	t.mu.Lock()
	t.orders[env.ID] = order
	t.mu.Unlock()

	t.emit(NewOrderEvent(*order))
}

func (t *Tracker) recordSettlement(env types.Envelope, p types.Settlement) {
	record := SettlementRecord{
		Buyer:      p.Buyer,
		Seller:     p.Seller,
		Item:       p.Item,
		Quantity:   p.Quantity,
		TotalPrice: p.TotalPrice,
		Tick:       env.Tick,
	}

	t.mu.Lock()
	t.settlements = appendCapped(t.settlements, record)
	if order, ok := t.orders[p.ReferenceMsgID]; ok {
		order.Quantity -= p.Quantity
		if order.Quantity <= 0 {
			delete(t.orders, p.ReferenceMsgID)
		}
	}
	t.mu.Unlock()

	t.emit(NewSettlementEvent(record))
}

func (t *Tracker) recordFailure(env types.Envelope, p types.ValidationResult) {
	t.mu.Lock()
	record := VerdictRecord{
		Agent:  t.senders[p.ReferenceMsgID], // empty when the culprit scrolled out
		Action: p.Action,
		Reason: p.Reason,
		Tick:   env.Tick,
	}
	t.failures = appendCapped(t.failures, record)
	t.mu.Unlock()

	t.emit(NewVerdictEvent(record))
}

// rememberSender keeps a bounded msg id -> sender index so verdicts,
// which carry only a reference id, can be attributed. Caller holds t.mu.
func (t *Tracker) rememberSender(id, from string) {
	if _, ok := t.senders[id]; ok {
		return
	}
	t.senders[id] = from
	t.senderIDs = append(t.senderIDs, id)
	if len(t.senderIDs) > senderLimit {
		oldest := t.senderIDs[0]
		t.senderIDs = t.senderIDs[1:]
		delete(t.senders, oldest)
	}
}

// SetAgentStatus merges a poller result into the agent's entry.
func (t *Tracker) SetAgentStatus(agentID string, status agent.Status) {
	t.mu.Lock()
	defer t.mu.Unlock()
	info, ok := t.agents[agentID]
	if !ok {
		return
	}
	info.Status = &status
}

// PollTargets returns the agents that advertise a status API.
func (t *Tracker) PollTargets() []AgentInfo {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var targets []AgentInfo
	for _, info := range t.agents {
		if info.APIURL != "" {
			targets = append(targets, *info)
		}
	}
	return targets
}

// CurrentTick returns the last tick seen.
func (t *Tracker) CurrentTick() int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.currentTick
}

// emit hands an event to the dashboard stream without blocking.
func (t *Tracker) emit(evt DashboardEvent) {
	select {
	case t.events <- evt:
	default:
		t.logger.Warn("event stream full, dropping event", "type", evt.Type)
	}
}

// appendCapped appends and trims the log to historyLimit entries,
// keeping the newest.
func appendCapped[T any](log []T, entry T) []T {
	log = append(log, entry)
	if len(log) > historyLimit {
		log = log[len(log)-historyLimit:]
	}
	return log
}
