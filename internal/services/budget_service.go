package services

import (
	"context"
	"strings"

	"ledger/internal/core"
)

type BudgetStore interface {
	CreateBudget(ctx context.Context, userID int64, nb core.NewBudget) (core.Budget, error)
	ListBudgets(ctx context.Context, userID int64, f core.BudgetFilter) ([]core.Budget, error)
	GetBudget(ctx context.Context, userID, id int64) (core.Budget, error)
	DeleteBudget(ctx context.Context, userID, id int64) error
}

// BudgetService owns budget envelopes. Remaining amounts come back from
// the store already derived from the linked expenses.
type BudgetService struct {
	store  BudgetStore
	events EventPublisher
}

func NewBudgetService(store BudgetStore, events EventPublisher) *BudgetService {
	return &BudgetService{store: store, events: events}
}

func (s *BudgetService) Create(ctx context.Context, userID int64, nb core.NewBudget) (core.Budget, error) {
	nb.Title = strings.TrimSpace(nb.Title)
	nb.Description = strings.TrimSpace(nb.Description)
	if err := nb.Validate(); err != nil {
		return core.Budget{}, core.Validation("create budget", err)
	}

	b, err := s.store.CreateBudget(ctx, userID, nb)
	if err != nil {
		return core.Budget{}, err
	}
	publishEvent(ctx, s.events, core.LedgerEvent{
		Type:        core.EventBudgetCreated,
		UserID:      userID,
		EntityID:    b.ID,
		BudgetID:    &b.ID,
		AmountCents: b.Amount.Cents,
	})
	return b, nil
}

func (s *BudgetService) List(ctx context.Context, userID int64, f core.BudgetFilter) ([]core.Budget, error) {
	if err := f.Range.Validate(); err != nil {
		return nil, core.Validation("list budgets", err)
	}
	f.Title = strings.TrimSpace(f.Title)
	return s.store.ListBudgets(ctx, userID, f)
}

func (s *BudgetService) Get(ctx context.Context, userID, id int64) (core.Budget, error) {
	return s.store.GetBudget(ctx, userID, id)
}

// Delete removes the budget; its transactions survive unlinked.
func (s *BudgetService) Delete(ctx context.Context, userID, id int64) error {
	if err := s.store.DeleteBudget(ctx, userID, id); err != nil {
		return err
	}
	publishEvent(ctx, s.events, core.LedgerEvent{
		Type:     core.EventBudgetDeleted,
		UserID:   userID,
		EntityID: id,
		BudgetID: &id,
	})
	return nil
}
