package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"expensetracker/internal/core"
)

const (
	EventReceiptCreated     EventType = "receipt.created"
	EventReceiptPaid        EventType = "receipt.paid"
	EventTransactionCreated EventType = "transaction.created"
	EventTransactionUpdated EventType = "transaction.updated"
	EventTransactionDeleted EventType = "transaction.deleted"
)

type EventType string

// MovementEvent announces a change to a movement. It carries the movement
// as written so consumers do not need to read the store back.
type MovementEvent struct {
	Type      EventType     `json:"type"`
	Group     string        `json:"group"`
	Movement  core.Movement `json:"movement"`
	Actor     string        `json:"actor,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

func NewMovementEvent(t EventType, m core.Movement, actor string) *MovementEvent {
	return &MovementEvent{
		Type:      t,
		Group:     m.Group,
		Movement:  m,
		Actor:     actor,
		Timestamp: time.Now().UTC(),
	}
}

func (e *MovementEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

func MovementEventFromJSON(data []byte) (*MovementEvent, error) {
	var e MovementEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	if e.Type == "" || e.Group == "" {
		return nil, fmt.Errorf("incomplete movement event")
	}
	return &e, nil
}
