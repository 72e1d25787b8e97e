package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"ledger/internal/core"
)

// budgetSelect derives spent from the linked expense rows in the same
// statement that reads the budget, so remaining is never stale.
const budgetSelect = `
	SELECT b.id, b.user_id, b.title, b.amount_cents, b.description, b.date,
		COALESCE((
			SELECT CAST(SUM(t.amount_cents) AS BIGINT)
			FROM transactions t
			WHERE t.budget_id = b.id AND t.type = 'expense'
		), 0) AS spent_cents
	FROM budgets b`

func scanBudget(row interface{ Scan(...any) error }) (core.Budget, error) {
	var b core.Budget
	var date string
	if err := row.Scan(&b.ID, &b.UserID, &b.Title, &b.Amount.Cents, &b.Description, &date, &b.Spent.Cents); err != nil {
		return core.Budget{}, err
	}
	d, err := parseStoredDate(date)
	if err != nil {
		return core.Budget{}, err
	}
	b.Date = d
	return b, nil
}

func (s *Store) CreateBudget(ctx context.Context, userID int64, nb core.NewBudget) (core.Budget, error) {
	const op = "create budget"
	var budget core.Budget
	err := s.withTx(ctx, op, func(tx *sql.Tx) error {
		var id int64
		err := tx.QueryRowContext(ctx,
			s.rebind("INSERT INTO budgets (user_id, title, amount_cents, description, date) VALUES (?, ?, ?, ?, ?) RETURNING id"),
			userID, nb.Title, nb.Amount.Cents, nb.Description, nb.Date.String(),
		).Scan(&id)
		if err != nil {
			return core.StoreFailure(op, fmt.Errorf("insert budget: %w", err))
		}
		budget, err = scanBudget(tx.QueryRowContext(ctx, s.rebind(budgetSelect+" WHERE b.id = ?"), id))
		if err != nil {
			return core.StoreFailure(op, fmt.Errorf("read budget: %w", err))
		}
		return nil
	})
	return budget, err
}

// ListBudgets returns the user's budgets ordered by date then id. Title
// matches exactly; the date bounds are inclusive.
func (s *Store) ListBudgets(ctx context.Context, userID int64, bf core.BudgetFilter) ([]core.Budget, error) {
	var f filter
	f.add("b.user_id = ?", userID)
	if bf.Title != "" {
		f.add("b.title = ?", bf.Title)
	}
	f.dateRange("b.date", bf.Range)

	rows, err := s.db.QueryContext(ctx, s.rebind(budgetSelect+f.where()+" ORDER BY b.date, b.id"), f.args...)
	if err != nil {
		return nil, core.StoreFailure("list budgets", err)
	}
	defer rows.Close()

	budgets := []core.Budget{}
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, core.StoreFailure("list budgets", err)
		}
		budgets = append(budgets, b)
	}
	if err := rows.Err(); err != nil {
		return nil, core.StoreFailure("list budgets", err)
	}
	return budgets, nil
}

func (s *Store) GetBudget(ctx context.Context, userID, id int64) (core.Budget, error) {
	b, err := scanBudget(s.db.QueryRowContext(ctx, s.rebind(budgetSelect+" WHERE b.id = ? AND b.user_id = ?"), id, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Budget{}, core.NotFound("get budget", core.ErrBudgetNotFound)
	}
	if err != nil {
		return core.Budget{}, core.StoreFailure("get budget", err)
	}
	return b, nil
}

// DeleteBudget removes a budget owned by userID. Linked transactions are
// kept with their budget reference cleared.
func (s *Store) DeleteBudget(ctx context.Context, userID, id int64) error {
	const op = "delete budget"
	return s.withTx(ctx, op, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			s.rebind(`UPDATE transactions SET budget_id = NULL
				WHERE budget_id = ? AND EXISTS (SELECT 1 FROM budgets WHERE id = ? AND user_id = ?)`),
			id, id, userID,
		); err != nil {
			return core.StoreFailure(op, fmt.Errorf("unlink transactions: %w", err))
		}
		res, err := tx.ExecContext(ctx, s.rebind("DELETE FROM budgets WHERE id = ? AND user_id = ?"), id, userID)
		if err != nil {
			return core.StoreFailure(op, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return core.NotFound(op, core.ErrBudgetNotFound)
		}
		return nil
	})
}
