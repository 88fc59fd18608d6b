// Package agent hosts the runtime shared by every market participant:
// a local mirror of the agent's economic state, the bus handlers that
// keep the mirror current, and the action executor that turns strategy
// decisions into published messages. Strategies plug in behind the
// Strategy interface and never touch the bus directly.
package agent

import (
	"maps"
	"sync"

	"streetmarket/pkg/types"
)

// CraftingJob tracks one in-flight craft.
type CraftingJob struct {
	Recipe        string
	StartedTick   int64
	DurationTicks int
}

// Done reports whether the job has cooked long enough.
func (j CraftingJob) Done(tick int64) bool {
	return tick >= j.StartedTick+int64(j.DurationTicks)
}

// PendingOffer is an order this agent placed and has not yet seen settle.
type PendingOffer struct {
	MsgID        string
	Item         string
	Quantity     int
	PricePerUnit float64
	Tick         int64
	IsSell       bool
}

// ObservedOffer is market traffic from other agents, kept for one tick
// so strategies can react to it.
type ObservedOffer struct {
	MsgID        string
	Agent        string
	Item         string
	Quantity     int
	PricePerUnit float64
	IsSell       bool
}

// State is the agent's optimistic local mirror of its own holdings. It
// is updated immediately when the agent acts and reconciled when
// settlements and gather results come back. The banker's ledger is the
// truth; this is the agent's best guess at it.
//
// Handlers run on one goroutine per subscription, so every access goes
// through the mutex.
type State struct {
	mu sync.Mutex

	agentID string

	joined            bool
	wallet            float64
	inventory         map[string]int
	currentTick       int64
	lastHeartbeatTick int64

	spawnID    string
	spawnItems map[string]int

	activeCraft    *CraftingJob
	pendingOffers  map[string]PendingOffer
	observedOffers []ObservedOffer

	actionsThisTick int
}

// NewState returns an empty mirror for the given agent.
func NewState(agentID string) *State {
	return &State{
		agentID:       agentID,
		inventory:     make(map[string]int),
		spawnItems:    make(map[string]int),
		pendingOffers: make(map[string]PendingOffer),
	}
}

// AdvanceTick moves the mirror to a new tick. The action budget resets
// and observed offers from the previous tick are dropped; pending
// offers survive until they settle.
func (s *State) AdvanceTick(tick int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentTick = tick
	s.actionsThisTick = 0
	s.observedOffers = s.observedOffers[:0]
}

// CurrentTick returns the last tick seen.
func (s *State) CurrentTick() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentTick
}

// Joined reports whether the agent has announced itself.
func (s *State) Joined() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.joined
}

// MarkJoined records a successful join and seeds the optimistic wallet
// with the starting grant.
func (s *State) MarkJoined() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.joined = true
	s.wallet = types.StartingWallet
}

// Wallet returns the mirrored balance.
func (s *State) Wallet() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.wallet
}

// AdjustWallet applies a settlement delta to the mirrored balance.
func (s *State) AdjustWallet(delta float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wallet += delta
}

// AddInventory credits quantity of item.
func (s *State) AddInventory(item string, quantity int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inventory[item] += quantity
}

// RemoveInventory debits up to quantity of item, dropping the key at zero.
func (s *State) RemoveInventory(item string, quantity int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inventory[item] -= quantity
	if s.inventory[item] <= 0 {
		delete(s.inventory, item)
	}
}

// InventoryCount returns how many of item the mirror holds.
func (s *State) InventoryCount(item string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inventory[item]
}

// InventoryTotal sums every stack, the number heartbeats report.
func (s *State) InventoryTotal() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, n := range s.inventory {
		total += n
	}
	return total
}

// SetSpawn records the spawn announced for the current tick.
func (s *State) SetSpawn(id string, items map[string]int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.spawnID = id
	s.spawnItems = maps.Clone(items)
}

// Spawn returns the current spawn id and its remaining items.
func (s *State) Spawn() (string, map[string]int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.spawnID, maps.Clone(s.spawnItems)
}

// NeedsHeartbeat reports whether enough ticks have passed since the
// last heartbeat.
func (s *State) NeedsHeartbeat(interval int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentTick-s.lastHeartbeatTick >= interval
}

// MarkHeartbeat stamps the current tick as the last heartbeat.
func (s *State) MarkHeartbeat() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastHeartbeatTick = s.currentTick
}

// SetCraft records a newly started craft.
func (s *State) SetCraft(job CraftingJob) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeCraft = &job
}

// ClearCraft drops the active craft.
func (s *State) ClearCraft() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeCraft = nil
}

// Craft returns the active craft, if any.
func (s *State) Craft() (CraftingJob, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.activeCraft == nil {
		return CraftingJob{}, false
	}
	return *s.activeCraft, true
}

// AddPending records an order this agent placed.
func (s *State) AddPending(offer PendingOffer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pendingOffers[offer.MsgID] = offer
}

// PopPending removes and returns the pending order a settlement references.
func (s *State) PopPending(msgID string) (PendingOffer, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	offer, ok := s.pendingOffers[msgID]
	if ok {
		delete(s.pendingOffers, msgID)
	}
	return offer, ok
}

// PendingCount returns how many orders are awaiting settlement.
func (s *State) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pendingOffers)
}

// Observe records market traffic from another agent.
func (s *State) Observe(offer ObservedOffer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observedOffers = append(s.observedOffers, offer)
}

// CountAction consumes one unit of the per-tick budget.
func (s *State) CountAction() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.actionsThisTick++
}

// RemainingActions returns how much of the per-tick budget is left.
func (s *State) RemainingActions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remainingLocked()
}

func (s *State) remainingLocked() int {
	remaining := types.MaxActionsPerTick - s.actionsThisTick
	if remaining < 0 {
		return 0
	}
	return remaining
}

// View captures everything a strategy may look at when deciding. It is
// a snapshot: mutating it does not touch the live mirror.
type View struct {
	AgentID         string
	Tick            int64
	Wallet          float64
	Inventory       map[string]int
	SpawnID         string
	SpawnItems      map[string]int
	Crafting        bool
	ObservedOffers  []ObservedOffer
	RemainingBudget int
}

// InventoryCount returns how many of item the snapshot holds.
func (v View) InventoryCount(item string) int {
	return v.Inventory[item]
}

// HasItems reports whether the snapshot covers every required stack.
func (v View) HasItems(required map[string]int) bool {
	for item, quantity := range required {
		if v.Inventory[item] < quantity {
			return false
		}
	}
	return true
}

// View snapshots the mirror for a strategy decision.
func (s *State) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return View{
		AgentID:         s.agentID,
		Tick:            s.currentTick,
		Wallet:          s.wallet,
		Inventory:       maps.Clone(s.inventory),
		SpawnID:         s.spawnID,
		SpawnItems:      maps.Clone(s.spawnItems),
		Crafting:        s.activeCraft != nil,
		ObservedOffers:  append([]ObservedOffer(nil), s.observedOffers...),
		RemainingBudget: s.remainingLocked(),
	}
}
