package amqp

import (
	"encoding/json"
	"time"
)

// Event types published to the exchange.
const (
	TypeAutomationApplied = "automation.applied"
	TypeSnapshotSynced    = "snapshot.synced"
)

// EventMessage announces something that already happened to the local
// snapshot. Consumers must not expect it to carry the data itself.
type EventMessage struct {
	Type  string    `json:"type"`
	Count int       `json:"count"`
	Keys  []string  `json:"keys,omitempty"`
	Time  time.Time `json:"time"`
}

// NewAutomationApplied reports the idempotency keys recorded by one pass.
func NewAutomationApplied(keys []string, at time.Time) *EventMessage {
	return &EventMessage{
		Type:  TypeAutomationApplied,
		Count: len(keys),
		Keys:  keys,
		Time:  at,
	}
}

// NewSnapshotSynced reports a push of count transactions to the named targets.
func NewSnapshotSynced(count int, targets []string, at time.Time) *EventMessage {
	return &EventMessage{
		Type:  TypeSnapshotSynced,
		Count: count,
		Keys:  targets,
		Time:  at,
	}
}

// ToJSON converts the message to JSON bytes
func (m *EventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// EventMessageFromJSON creates a message from JSON bytes
func EventMessageFromJSON(data []byte) (*EventMessage, error) {
	var msg EventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
