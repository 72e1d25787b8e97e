package amqp

import (
	"encoding/json"
	"errors"
	"time"

	"ledger/internal/core"

	"github.com/google/uuid"
)

// LedgerMessage is the wire form of a committed ledger mutation. It names
// the entity only; consumers read current state from the database.
type LedgerMessage struct {
	ID          string         `json:"id"`
	Type        core.EventType `json:"type"`
	UserID      int64          `json:"user_id"`
	EntityID    int64          `json:"entity_id"`
	BudgetID    *int64         `json:"budget_id,omitempty"`
	AmountCents int64          `json:"amount_cents"`
	OccurredAt  time.Time      `json:"occurred_at"`
}

var errMissingType = errors.New("ledger message has no type")

// NewLedgerMessage wraps evt with a fresh message id.
func NewLedgerMessage(evt core.LedgerEvent) *LedgerMessage {
	occurred := evt.OccurredAt
	if occurred.IsZero() {
		occurred = time.Now().UTC()
	}
	return &LedgerMessage{
		ID:          uuid.NewString(),
		Type:        evt.Type,
		UserID:      evt.UserID,
		EntityID:    evt.EntityID,
		BudgetID:    evt.BudgetID,
		AmountCents: evt.AmountCents,
		OccurredAt:  occurred,
	}
}

// Event converts the message back into the domain event.
func (m *LedgerMessage) Event() core.LedgerEvent {
	return core.LedgerEvent{
		Type:        m.Type,
		UserID:      m.UserID,
		EntityID:    m.EntityID,
		BudgetID:    m.BudgetID,
		AmountCents: m.AmountCents,
		OccurredAt:  m.OccurredAt,
	}
}

// ToJSON converts the message to JSON bytes
func (m *LedgerMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerMessageFromJSON decodes a message and rejects ones without a type.
func LedgerMessageFromJSON(data []byte) (*LedgerMessage, error) {
	var msg LedgerMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Type == "" {
		return nil, errMissingType
	}
	return &msg, nil
}
