// Package governor implements the market referee. The Governor watches
// every market topic, checks each message structurally and against the
// business rules, and publishes a verdict to /market/governance. It also
// tracks the per-tick action budget, heartbeat liveness, and who is
// crafting what.
package governor

import (
	"sync"

	"streetmarket/pkg/types"
)

// ActiveCraft tracks one in-progress crafting job.
type ActiveCraft struct {
	Recipe         string
	StartedTick    int64
	EstimatedTicks int
}

// State holds everything the Governor remembers: the tick it believes
// in, per-tick action counts, last heartbeats, active crafts, and the
// set of agents that have joined. In-memory only; a restart forgets it.
type State struct {
	mu              sync.RWMutex
	currentTick     int64
	actionsThisTick map[string]int
	lastHeartbeat   map[string]int64
	activeCrafts    map[string]ActiveCraft
	knownAgents     map[string]struct{}
}

// NewState returns empty governor state at tick 0.
func NewState() *State {
	return &State{
		actionsThisTick: make(map[string]int),
		lastHeartbeat:   make(map[string]int64),
		activeCrafts:    make(map[string]ActiveCraft),
		knownAgents:     make(map[string]struct{}),
	}
}

// AdvanceTick moves to a new tick and resets every per-tick counter.
func (s *State) AdvanceTick(tick int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentTick = tick
	s.actionsThisTick = make(map[string]int)
}

// CurrentTick returns the tick the Governor last advanced to.
func (s *State) CurrentTick() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentTick
}

// RecordAction counts one action for the agent this tick. Invalid
// messages count too; a flood of garbage burns budget like anything
// else.
func (s *State) RecordAction(agentID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.actionsThisTick[agentID]++
}

// ActionCount returns how many actions the agent has taken this tick.
func (s *State) ActionCount(agentID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.actionsThisTick[agentID]
}

// IsRateLimited reports whether the agent has already spent this tick's
// action budget. Checked before the current message is recorded, so the
// budget allows exactly MaxActionsPerTick messages through.
func (s *State) IsRateLimited(agentID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.actionsThisTick[agentID] >= types.MaxActionsPerTick
}

// RecordHeartbeat stamps the agent's last heartbeat with the current
// tick.
func (s *State) RecordHeartbeat(agentID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastHeartbeat[agentID] = s.currentTick
}

// IsInactive reports whether the agent has been silent past the
// heartbeat timeout. Agents that never heartbeated are not inactive;
// they may have only just joined.
func (s *State) IsInactive(agentID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	last, ok := s.lastHeartbeat[agentID]
	if !ok {
		return false
	}
	return s.currentTick-last > types.HeartbeatTimeoutTicks
}

// RegisterAgent marks an agent as joined.
func (s *State) RegisterAgent(agentID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.knownAgents[agentID] = struct{}{}
}

// IsKnownAgent reports whether the agent has joined.
func (s *State) IsKnownAgent(agentID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.knownAgents[agentID]
	return ok
}

// StartCraft records that the agent began crafting recipe now.
func (s *State) StartCraft(agentID, recipe string, estimatedTicks int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeCrafts[agentID] = ActiveCraft{
		Recipe:         recipe,
		StartedTick:    s.currentTick,
		EstimatedTicks: estimatedTicks,
	}
}

// CompleteCraft removes and returns the agent's active craft.
func (s *State) CompleteCraft(agentID string) (ActiveCraft, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	craft, ok := s.activeCrafts[agentID]
	if ok {
		delete(s.activeCrafts, agentID)
	}
	return craft, ok
}

// IsCrafting reports whether the agent has a craft in progress.
func (s *State) IsCrafting(agentID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.activeCrafts[agentID]
	return ok
}

// ActiveCraftFor returns the agent's craft in progress, if any.
func (s *State) ActiveCraftFor(agentID string) (ActiveCraft, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	craft, ok := s.activeCrafts[agentID]
	return craft, ok
}
