package types

import (
	"encoding/json"
	"fmt"
)

// ————————————————————————————————————————————————————————————————————————
// Message types
// ————————————————————————————————————————————————————————————————————————

// MessageType tags the payload variant an Envelope carries.
type MessageType string

const (
	TypeOffer            MessageType = "offer"
	TypeBid              MessageType = "bid"
	TypeAccept           MessageType = "accept"
	TypeCounter          MessageType = "counter"
	TypeCraftStart       MessageType = "craft_start"
	TypeCraftComplete    MessageType = "craft_complete"
	TypeJoin             MessageType = "join"
	TypeHeartbeat        MessageType = "heartbeat"
	TypeTick             MessageType = "tick"
	TypeSpawn            MessageType = "spawn"
	TypeGather           MessageType = "gather"
	TypeGatherResult     MessageType = "gather_result"
	TypeSettlement       MessageType = "settlement"
	TypeValidationResult MessageType = "validation_result"
)

// KnownType reports whether t is one of the protocol's message types.
func KnownType(t MessageType) bool {
	switch t {
	case TypeOffer, TypeBid, TypeAccept, TypeCounter,
		TypeCraftStart, TypeCraftComplete, TypeJoin, TypeHeartbeat,
		TypeTick, TypeSpawn, TypeGather, TypeGatherResult,
		TypeSettlement, TypeValidationResult:
		return true
	}
	return false
}

// Payload is the typed body of an envelope. The interface is sealed: the
// fourteen implementations below are the whole protocol, and the type
// switch in ParsePayload is exhaustive over them.
type Payload interface {
	Kind() MessageType
	problems() []string
}

// ParsePayload decodes an envelope's raw payload into the typed struct
// for its kind. A nil or empty payload decodes like an empty object.
func ParsePayload(env Envelope) (Payload, error) {
	var p Payload
	switch env.Type {
	case TypeOffer:
		p = &Offer{}
	case TypeBid:
		p = &Bid{}
	case TypeAccept:
		p = &Accept{}
	case TypeCounter:
		p = &Counter{}
	case TypeCraftStart:
		p = &CraftStart{}
	case TypeCraftComplete:
		p = &CraftComplete{}
	case TypeJoin:
		p = &Join{}
	case TypeHeartbeat:
		p = &Heartbeat{}
	case TypeTick:
		p = &Tick{}
	case TypeSpawn:
		p = &Spawn{}
	case TypeGather:
		p = &Gather{}
	case TypeGatherResult:
		p = &GatherResult{}
	case TypeSettlement:
		p = &Settlement{}
	case TypeValidationResult:
		p = &ValidationResult{}
	default:
		return nil, fmt.Errorf("unknown message type: %s", env.Type)
	}
	raw := env.Payload
	if len(raw) == 0 {
		raw = []byte("{}")
	}
	if err := json.Unmarshal(raw, p); err != nil {
		return nil, fmt.Errorf("parse %s payload: %w", env.Type, err)
	}
	return p, nil
}

// ————————————————————————————————————————————————————————————————————————
// Market payloads
// ————————————————————————————————————————————————————————————————————————

// Offer is a sell listing: the sender wants to move Quantity of Item at a
// fixed unit price. ExpiresTick of zero means the offer never expires.
type Offer struct {
	Item         string  `json:"item"`
	Quantity     int     `json:"quantity"`
	PricePerUnit float64 `json:"price_per_unit"`
	ExpiresTick  int64   `json:"expires_tick,omitempty"`
}

func (Offer) Kind() MessageType { return TypeOffer }

// Bid is a buy order: the sender wants Quantity of Item and will pay at
// most MaxPricePerUnit. TargetAgent optionally addresses one seller.
type Bid struct {
	Item            string  `json:"item"`
	Quantity        int     `json:"quantity"`
	MaxPricePerUnit float64 `json:"max_price_per_unit"`
	TargetAgent     string  `json:"target_agent,omitempty"`
}

func (Bid) Kind() MessageType { return TypeBid }

// Accept takes a previously published offer or bid, addressed by the
// envelope id that carried it.
type Accept struct {
	ReferenceMsgID string `json:"reference_msg_id"`
	Quantity       int    `json:"quantity"`
}

func (Accept) Kind() MessageType { return TypeAccept }

// Counter proposes a different price against a previous offer or bid.
type Counter struct {
	ReferenceMsgID string  `json:"reference_msg_id"`
	ProposedPrice  float64 `json:"proposed_price"`
	Quantity       int     `json:"quantity"`
}

func (Counter) Kind() MessageType { return TypeCounter }

// CraftStart announces that the sender is consuming Inputs to craft a
// recipe that will take EstimatedTicks to finish.
type CraftStart struct {
	Recipe         string         `json:"recipe"`
	Inputs         map[string]int `json:"inputs"`
	EstimatedTicks int            `json:"estimated_ticks"`
}

func (CraftStart) Kind() MessageType { return TypeCraftStart }

// CraftComplete announces a finished craft and the produced output.
type CraftComplete struct {
	Recipe string         `json:"recipe"`
	Output map[string]int `json:"output"`
	Agent  string         `json:"agent"`
}

func (CraftComplete) Kind() MessageType { return TypeCraftComplete }

// Join announces an agent's arrival on the market square.
type Join struct {
	AgentID     string `json:"agent_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	APIURL      string `json:"api_url,omitempty"`
}

func (Join) Kind() MessageType { return TypeJoin }

// Heartbeat is the periodic liveness signal agents publish to the square.
type Heartbeat struct {
	AgentID        string  `json:"agent_id"`
	Wallet         float64 `json:"wallet"`
	InventoryCount int     `json:"inventory_count"` // total items across all stacks
}

func (Heartbeat) Kind() MessageType { return TypeHeartbeat }

// ————————————————————————————————————————————————————————————————————————
// World payloads
// ————————————————————————————————————————————————————————————————————————

// Tick is the World Engine's clock broadcast.
type Tick struct {
	TickNumber int64   `json:"tick_number"`
	Timestamp  float64 `json:"timestamp"`
}

func (Tick) Kind() MessageType { return TypeTick }

// Spawn announces a fresh resource pool. It fully replaces any earlier
// pool; gathers referencing an old SpawnID are rejected.
type Spawn struct {
	SpawnID string         `json:"spawn_id"`
	Tick    int64          `json:"tick"`
	Items   map[string]int `json:"items"`
}

func (Spawn) Kind() MessageType { return TypeSpawn }

// Gather asks the World Engine for Quantity of Item from a live spawn.
type Gather struct {
	SpawnID  string `json:"spawn_id"`
	Item     string `json:"item"`
	Quantity int    `json:"quantity"`
}

func (Gather) Kind() MessageType { return TypeGather }

// GatherResult is the World Engine's answer to a Gather. Quantity is the
// granted amount, zero when rejected; a partial grant still succeeds and
// carries the shortfall in Reason.
type GatherResult struct {
	ReferenceMsgID string `json:"reference_msg_id"`
	SpawnID        string `json:"spawn_id"`
	AgentID        string `json:"agent_id"`
	Item           string `json:"item"`
	Quantity       int    `json:"quantity"`
	Success        bool   `json:"success"`
	Reason         string `json:"reason,omitempty"`
}

func (GatherResult) Kind() MessageType { return TypeGatherResult }

// ————————————————————————————————————————————————————————————————————————
// Authority payloads
// ————————————————————————————————————————————————————————————————————————

// Settlement is the Banker's authoritative record of a completed trade.
type Settlement struct {
	ReferenceMsgID string  `json:"reference_msg_id"`
	Buyer          string  `json:"buyer"`
	Seller         string  `json:"seller"`
	Item           string  `json:"item"`
	Quantity       int     `json:"quantity"`
	TotalPrice     float64 `json:"total_price"`
	Status         string  `json:"status"`
}

func (Settlement) Kind() MessageType { return TypeSettlement }

// ValidationResult is the Governor's advisory verdict on one message.
// Verdicts never block settlement; they exist so agents and observers can
// see which traffic broke the rules.
type ValidationResult struct {
	ReferenceMsgID string `json:"reference_msg_id"`
	Valid          bool   `json:"valid"`
	Reason         string `json:"reason,omitempty"`
	Action         string `json:"action,omitempty"` // kind of the judged message
}

func (ValidationResult) Kind() MessageType { return TypeValidationResult }
