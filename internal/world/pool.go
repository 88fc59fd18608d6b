// Package world implements the World Engine: the simulation's tick
// clock, per-tick resource spawns, and the first-come-first-served
// gather protocol.
package world

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// DefaultSpawnTable is the per-tick resource pool used when the config
// does not override it.
func DefaultSpawnTable() map[string]int {
	return map[string]int{
		"potato": 20,
		"onion":  15,
		"wood":   15,
		"nails":  10,
		"stone":  10,
	}
}

// SpawnPool is one tick's worth of gatherable resources. Exactly one pool
// is live at a time; a new tick replaces it wholesale.
type SpawnPool struct {
	SpawnID   string
	Tick      int64
	Remaining map[string]int
}

// State tracks the tick counter and the live spawn pool. FCFS
// arbitration happens here: TryGather decrements the pool under one
// lock, so grants follow strict arrival order and the pool never goes
// negative.
type State struct {
	mu         sync.Mutex
	tick       int64
	active     *SpawnPool
	spawnTable map[string]int
}

// NewState builds world state around a spawn table; an empty table means
// the default one.
func NewState(spawnTable map[string]int) *State {
	if len(spawnTable) == 0 {
		spawnTable = DefaultSpawnTable()
	}
	table := make(map[string]int, len(spawnTable))
	for item, count := range spawnTable {
		table[item] = count
	}
	return &State{spawnTable: table}
}

// CurrentTick returns the latest tick number (0 before the first tick).
func (s *State) CurrentTick() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tick
}

// ActiveSpawn returns a snapshot of the live pool, if any.
func (s *State) ActiveSpawn() (SpawnPool, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return SpawnPool{}, false
	}
	return s.active.snapshot(), true
}

// AdvanceTick increments the tick counter and replaces the live spawn
// pool; unclaimed resources from the previous pool vanish. It returns
// the new tick number and a snapshot of the fresh pool.
func (s *State) AdvanceTick() (int64, SpawnPool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tick++
	pool := &SpawnPool{
		SpawnID:   uuid.NewString(),
		Tick:      s.tick,
		Remaining: make(map[string]int, len(s.spawnTable)),
	}
	for item, count := range s.spawnTable {
		pool.Remaining[item] = count
	}
	s.active = pool
	return s.tick, pool.snapshot()
}

// TryGather claims up to quantity of item from the live pool. Partial
// grants are allowed: when the pool holds fewer than requested, whatever
// is left is granted. The returned reason is empty on success.
func (s *State) TryGather(spawnID, item string, quantity int) (int, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return 0, "No active spawn"
	}
	if s.active.SpawnID != spawnID {
		return 0, "Spawn expired or not found"
	}
	available := s.active.Remaining[item]
	if available == 0 {
		return 0, fmt.Sprintf("No %s remaining in spawn", item)
	}
	granted := quantity
	if granted > available {
		granted = available
	}
	s.active.Remaining[item] = available - granted
	return granted, ""
}

func (p *SpawnPool) snapshot() SpawnPool {
	out := SpawnPool{SpawnID: p.SpawnID, Tick: p.Tick, Remaining: make(map[string]int, len(p.Remaining))}
	for item, count := range p.Remaining {
		out.Remaining[item] = count
	}
	return out
}
