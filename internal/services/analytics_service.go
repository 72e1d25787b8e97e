package services

import (
	"context"

	"ledger/internal/core"
)

type AnalyticsStore interface {
	CategoryTotals(ctx context.Context, userID int64, r core.DateRange) ([]core.CategoryTotal, error)
	CategoryCounts(ctx context.Context, userID int64, r core.DateRange) ([]core.CategoryCount, error)
	Summary(ctx context.Context, userID int64, r core.DateRange) (core.Summary, error)
}

// AnalyticsService answers read-only aggregate queries over a user's
// transactions.
type AnalyticsService struct {
	store AnalyticsStore
}

func NewAnalyticsService(store AnalyticsStore) *AnalyticsService {
	return &AnalyticsService{store: store}
}

// CategoryBreakdown returns per-category totals ordered by category name.
func (s *AnalyticsService) CategoryBreakdown(ctx context.Context, userID int64, r core.DateRange) ([]core.CategoryTotal, error) {
	if err := r.Validate(); err != nil {
		return nil, core.Validation("category breakdown", err)
	}
	return s.store.CategoryTotals(ctx, userID, r)
}

func (s *AnalyticsService) CategoryCounts(ctx context.Context, userID int64, r core.DateRange) ([]core.CategoryCount, error) {
	if err := r.Validate(); err != nil {
		return nil, core.Validation("category counts", err)
	}
	return s.store.CategoryCounts(ctx, userID, r)
}

// IncomeExpenseSummary totals both sides; Balance is exact.
func (s *AnalyticsService) IncomeExpenseSummary(ctx context.Context, userID int64, r core.DateRange) (core.Summary, error) {
	if err := r.Validate(); err != nil {
		return core.Summary{}, core.Validation("summary", err)
	}
	return s.store.Summary(ctx, userID, r)
}
