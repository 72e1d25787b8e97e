package services

import (
	"context"
	"log/slog"
	"strings"

	"ledger/internal/core"
)

type TransactionStore interface {
	CreateTransaction(ctx context.Context, userID int64, nt core.NewTransaction) (core.Transaction, error)
	ListTransactions(ctx context.Context, userID int64, f core.TransactionFilter) ([]core.Transaction, error)
	DeleteTransaction(ctx context.Context, userID, id int64) (core.Transaction, error)
}

// TransactionService records income and expenses. Category agreement and
// budget ownership are checked by the store inside the insert transaction.
type TransactionService struct {
	store  TransactionStore
	events EventPublisher
}

func NewTransactionService(store TransactionStore, events EventPublisher) *TransactionService {
	return &TransactionService{store: store, events: events}
}

func (s *TransactionService) Create(ctx context.Context, userID int64, nt core.NewTransaction) (core.Transaction, error) {
	nt.Description = strings.TrimSpace(nt.Description)
	if err := nt.Validate(); err != nil {
		return core.Transaction{}, core.Validation("create transaction", err)
	}

	t, err := s.store.CreateTransaction(ctx, userID, nt)
	if err != nil {
		return core.Transaction{}, err
	}

	slog.InfoContext(ctx, "Transaction created",
		"transaction_id", t.ID,
		"type", t.Type,
		"amount_cents", t.Amount.Cents,
		"category", t.CategoryName)

	publishEvent(ctx, s.events, core.LedgerEvent{
		Type:        core.EventTransactionCreated,
		UserID:      userID,
		EntityID:    t.ID,
		BudgetID:    t.BudgetID,
		AmountCents: t.Amount.Cents,
	})
	return t, nil
}

func (s *TransactionService) List(ctx context.Context, userID int64, f core.TransactionFilter) ([]core.Transaction, error) {
	if err := f.Range.Validate(); err != nil {
		return nil, core.Validation("list transactions", err)
	}
	if f.Type != "" && !f.Type.Valid() {
		return nil, core.Validation("list transactions", core.ErrInvalidType)
	}
	return s.store.ListTransactions(ctx, userID, f)
}

func (s *TransactionService) Delete(ctx context.Context, userID, id int64) error {
	t, err := s.store.DeleteTransaction(ctx, userID, id)
	if err != nil {
		return err
	}
	publishEvent(ctx, s.events, core.LedgerEvent{
		Type:        core.EventTransactionDeleted,
		UserID:      userID,
		EntityID:    t.ID,
		BudgetID:    t.BudgetID,
		AmountCents: t.Amount.Cents,
	})
	return nil
}
