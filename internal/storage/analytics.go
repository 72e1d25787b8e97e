package storage

import (
	"context"

	"ledger/internal/core"
)

// CategoryTotals sums the user's transactions per category, ordered by
// category name. Categories with no rows in range are absent.
func (s *Store) CategoryTotals(ctx context.Context, userID int64, r core.DateRange) ([]core.CategoryTotal, error) {
	var f filter
	f.add("t.user_id = ?", userID)
	f.dateRange("t.date", r)

	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT c.name, c.type, CAST(SUM(t.amount_cents) AS BIGINT)
		FROM transactions t
		JOIN categories c ON c.id = t.category_id`+f.where()+`
		GROUP BY c.id, c.name, c.type
		ORDER BY c.name, c.type`), f.args...)
	if err != nil {
		return nil, core.StoreFailure("category totals", err)
	}
	defer rows.Close()

	totals := []core.CategoryTotal{}
	for rows.Next() {
		var ct core.CategoryTotal
		var typ string
		if err := rows.Scan(&ct.Category, &typ, &ct.Total.Cents); err != nil {
			return nil, core.StoreFailure("category totals", err)
		}
		ct.Type = core.TransactionType(typ)
		totals = append(totals, ct)
	}
	if err := rows.Err(); err != nil {
		return nil, core.StoreFailure("category totals", err)
	}
	return totals, nil
}

func (s *Store) CategoryCounts(ctx context.Context, userID int64, r core.DateRange) ([]core.CategoryCount, error) {
	var f filter
	f.add("t.user_id = ?", userID)
	f.dateRange("t.date", r)

	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT c.name, c.type, COUNT(t.id)
		FROM transactions t
		JOIN categories c ON c.id = t.category_id`+f.where()+`
		GROUP BY c.id, c.name, c.type
		ORDER BY c.name, c.type`), f.args...)
	if err != nil {
		return nil, core.StoreFailure("category counts", err)
	}
	defer rows.Close()

	counts := []core.CategoryCount{}
	for rows.Next() {
		var cc core.CategoryCount
		var typ string
		if err := rows.Scan(&cc.Category, &typ, &cc.Count); err != nil {
			return nil, core.StoreFailure("category counts", err)
		}
		cc.Type = core.TransactionType(typ)
		counts = append(counts, cc)
	}
	if err := rows.Err(); err != nil {
		return nil, core.StoreFailure("category counts", err)
	}
	return counts, nil
}

// Summary totals income and expense in range with exact integer sums.
func (s *Store) Summary(ctx context.Context, userID int64, r core.DateRange) (core.Summary, error) {
	var f filter
	f.add("user_id = ?", userID)
	f.dateRange("date", r)

	var sum core.Summary
	err := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT
			COALESCE(CAST(SUM(CASE WHEN type = 'income' THEN amount_cents ELSE 0 END) AS BIGINT), 0),
			COALESCE(CAST(SUM(CASE WHEN type = 'expense' THEN amount_cents ELSE 0 END) AS BIGINT), 0)
		FROM transactions`+f.where()), f.args...,
	).Scan(&sum.Income.Cents, &sum.Expense.Cents)
	if err != nil {
		return core.Summary{}, core.StoreFailure("summary", err)
	}
	return sum, nil
}
