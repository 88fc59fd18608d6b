// Package types defines the wire vocabulary shared by every service.
//
// This package is the common language of the market — the envelope that
// wraps every bus message, the typed payloads it carries, the item and
// recipe catalogue, and the topic tree. It has no dependencies on internal
// packages, so it can be imported by any layer.
package types

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Envelope is the wire unit. Every message on the bus is exactly one
// Envelope serialized as a UTF-8 JSON object. Envelopes are immutable
// after construction: producers build them, subscribers read them,
// nothing mutates them in transit.
//
// Payload stays raw JSON until ParsePayload decodes it, so fields a
// newer producer added survive a relay through an older consumer.
type Envelope struct {
	ID        string          `json:"id"`
	From      string          `json:"from"`
	Topic     string          `json:"topic"`
	Timestamp float64         `json:"timestamp"` // unix seconds, fractional
	Tick      int64           `json:"tick"`
	Type      MessageType     `json:"type"`
	Payload   json.RawMessage `json:"payload"`
}

// NewMessage builds an Envelope around a typed payload. The envelope type
// is derived from the payload itself, the id is a fresh v4 UUID, and the
// timestamp is the current wall time.
func NewMessage(from, topic string, tick int64, payload Payload) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s payload: %w", payload.Kind(), err)
	}
	return Envelope{
		ID:        uuid.NewString(),
		From:      from,
		Topic:     topic,
		Timestamp: Now(),
		Tick:      tick,
		Type:      payload.Kind(),
		Payload:   raw,
	}, nil
}

// ParseEnvelope decodes raw bytes into an Envelope. The payload is kept
// raw; use ParsePayload to get the typed struct.
func ParseEnvelope(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("parse envelope: %w", err)
	}
	return env, nil
}

// Now returns the current wall time in the wire's timestamp format:
// unix seconds with a fractional part.
func Now() float64 {
	return float64(time.Now().UnixNano()) / 1e9
}
