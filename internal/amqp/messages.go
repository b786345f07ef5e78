package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

type EventType string

const (
	EventCreated EventType = "created"
	EventUpdated EventType = "updated"
	EventDeleted EventType = "deleted"
)

// TransactionEvent announces a committed change. It carries identifiers
// only; consumers read the current record from the store.
type TransactionEvent struct {
	Type      EventType `json:"type"`
	ID        string    `json:"id"`
	Owner     string    `json:"owner"`
	Title     string    `json:"title,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func NewTransactionEvent(t EventType, id, owner, title string) *TransactionEvent {
	return &TransactionEvent{
		Type:      t,
		ID:        id,
		Owner:     owner,
		Title:     title,
		Timestamp: time.Now().UTC(),
	}
}

// RoutingKey is "transaction.<type>".
func (e *TransactionEvent) RoutingKey() string {
	return "transaction." + string(e.Type)
}

func (e *TransactionEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// TransactionEventFromJSON decodes and sanity-checks an event body.
func TransactionEventFromJSON(data []byte) (*TransactionEvent, error) {
	var e TransactionEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	switch e.Type {
	case EventCreated, EventUpdated, EventDeleted:
	default:
		return nil, fmt.Errorf("unknown event type %q", e.Type)
	}
	if e.ID == "" || e.Owner == "" {
		return nil, fmt.Errorf("event is missing id or owner")
	}
	return &e, nil
}
