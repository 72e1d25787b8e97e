package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"ledger/internal/core"
)

const transactionSelect = `
	SELECT t.id, t.user_id, t.type, t.amount_cents, t.category_id, c.name,
		t.budget_id, t.description, t.date, t.created_at
	FROM transactions t
	JOIN categories c ON c.id = t.category_id`

func scanTransaction(row interface{ Scan(...any) error }) (core.Transaction, error) {
	var (
		t        core.Transaction
		typ      string
		budgetID sql.NullInt64
		date     string
	)
	if err := row.Scan(&t.ID, &t.UserID, &typ, &t.Amount.Cents, &t.CategoryID, &t.CategoryName,
		&budgetID, &t.Description, &date, &t.CreatedAt); err != nil {
		return core.Transaction{}, err
	}
	t.Type = core.TransactionType(typ)
	if budgetID.Valid {
		id := budgetID.Int64
		t.BudgetID = &id
	}
	d, err := parseStoredDate(date)
	if err != nil {
		return core.Transaction{}, err
	}
	t.Date = d
	return t, nil
}

// CreateTransaction checks the category and budget ownership and inserts
// the row inside one transaction. The caller is expected to have run
// NewTransaction.Validate already.
func (s *Store) CreateTransaction(ctx context.Context, userID int64, nt core.NewTransaction) (core.Transaction, error) {
	const op = "create transaction"
	var created core.Transaction
	err := s.withTx(ctx, op, func(tx *sql.Tx) error {
		category, err := s.categoryByID(ctx, tx, nt.CategoryID)
		if err != nil {
			return err
		}
		if err := nt.ValidateCategory(category); err != nil {
			return core.Validation(op, err)
		}

		var budgetID sql.NullInt64
		if nt.BudgetID != nil {
			var owned int
			err := tx.QueryRowContext(ctx,
				s.rebind("SELECT COUNT(*) FROM budgets WHERE id = ? AND user_id = ?"),
				*nt.BudgetID, userID,
			).Scan(&owned)
			if err != nil {
				return core.StoreFailure(op, fmt.Errorf("check budget: %w", err))
			}
			if owned == 0 {
				return core.NotFound(op, core.ErrBudgetNotFound)
			}
			budgetID = sql.NullInt64{Int64: *nt.BudgetID, Valid: true}
		}

		var id int64
		err = tx.QueryRowContext(ctx,
			s.rebind(`INSERT INTO transactions (user_id, type, amount_cents, category_id, budget_id, description, date)
				VALUES (?, ?, ?, ?, ?, ?, ?) RETURNING id`),
			userID, string(nt.Type), nt.Amount.Cents, nt.CategoryID, budgetID, nt.Description, nt.Date.String(),
		).Scan(&id)
		if err != nil {
			return insertTransactionError(op, err)
		}

		created, err = scanTransaction(tx.QueryRowContext(ctx, s.rebind(transactionSelect+" WHERE t.id = ?"), id))
		if err != nil {
			return core.StoreFailure(op, fmt.Errorf("read transaction: %w", err))
		}
		return nil
	})
	return created, err
}

// insertTransactionError maps a failed insert. The budget can be deleted
// between the ownership check and the insert under READ COMMITTED; the
// category catalog is never deleted, so a dangling reference is the budget.
func insertTransactionError(op string, err error) error {
	if isForeignKeyViolation(err) {
		return core.NotFound(op, core.ErrBudgetNotFound)
	}
	return core.StoreFailure(op, fmt.Errorf("insert transaction: %w", err))
}

// ListTransactions returns the user's transactions ordered by date then id.
func (s *Store) ListTransactions(ctx context.Context, userID int64, tf core.TransactionFilter) ([]core.Transaction, error) {
	var f filter
	f.add("t.user_id = ?", userID)
	f.dateRange("t.date", tf.Range)
	if tf.Type != "" {
		f.add("t.type = ?", string(tf.Type))
	}
	if tf.BudgetID != nil {
		f.add("t.budget_id = ?", *tf.BudgetID)
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(transactionSelect+f.where()+" ORDER BY t.date, t.id"), f.args...)
	if err != nil {
		return nil, core.StoreFailure("list transactions", err)
	}
	defer rows.Close()

	transactions := []core.Transaction{}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, core.StoreFailure("list transactions", err)
		}
		transactions = append(transactions, t)
	}
	if err := rows.Err(); err != nil {
		return nil, core.StoreFailure("list transactions", err)
	}
	return transactions, nil
}

func (s *Store) GetTransaction(ctx context.Context, userID, id int64) (core.Transaction, error) {
	t, err := scanTransaction(s.db.QueryRowContext(ctx, s.rebind(transactionSelect+" WHERE t.id = ? AND t.user_id = ?"), id, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, core.NotFound("get transaction", core.ErrTransactionNotFound)
	}
	if err != nil {
		return core.Transaction{}, core.StoreFailure("get transaction", err)
	}
	return t, nil
}

// DeleteTransaction removes a transaction owned by userID and returns the
// deleted row.
func (s *Store) DeleteTransaction(ctx context.Context, userID, id int64) (core.Transaction, error) {
	const op = "delete transaction"
	var deleted core.Transaction
	err := s.withTx(ctx, op, func(tx *sql.Tx) error {
		var err error
		deleted, err = scanTransaction(tx.QueryRowContext(ctx, s.rebind(transactionSelect+" WHERE t.id = ? AND t.user_id = ?"), id, userID))
		if errors.Is(err, sql.ErrNoRows) {
			return core.NotFound(op, core.ErrTransactionNotFound)
		}
		if err != nil {
			return core.StoreFailure(op, err)
		}
		if _, err := tx.ExecContext(ctx, s.rebind("DELETE FROM transactions WHERE id = ? AND user_id = ?"), id, userID); err != nil {
			return core.StoreFailure(op, err)
		}
		return nil
	})
	return deleted, err
}
