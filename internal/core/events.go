package core

import "time"

// EventType names a committed ledger mutation.
type EventType string

const (
	EventBudgetCreated      EventType = "budget.created"
	EventBudgetDeleted      EventType = "budget.deleted"
	EventTransactionCreated EventType = "transaction.created"
	EventTransactionDeleted EventType = "transaction.deleted"
	EventAccountDeleted     EventType = "account.deleted"
)

// LedgerEvent is published after a mutation commits so other processes
// can refresh derived views.
type LedgerEvent struct {
	Type        EventType
	UserID      int64
	EntityID    int64
	BudgetID    *int64
	AmountCents int64
	OccurredAt  time.Time
}
