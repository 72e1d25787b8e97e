package storage

import (
	"context"
	"database/sql"
	"errors"

	"ledger/internal/core"
)

// ListCategories returns the catalog ordered by name, optionally
// restricted to one type.
func (s *Store) ListCategories(ctx context.Context, typ core.TransactionType) ([]core.Category, error) {
	var f filter
	if typ != "" {
		f.add("type = ?", string(typ))
	}
	rows, err := s.db.QueryContext(ctx, s.rebind("SELECT id, name, type FROM categories"+f.where()+" ORDER BY name, type"), f.args...)
	if err != nil {
		return nil, core.StoreFailure("list categories", err)
	}
	defer rows.Close()

	categories := []core.Category{}
	for rows.Next() {
		var c core.Category
		var t string
		if err := rows.Scan(&c.ID, &c.Name, &t); err != nil {
			return nil, core.StoreFailure("list categories", err)
		}
		c.Type = core.TransactionType(t)
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, core.StoreFailure("list categories", err)
	}
	return categories, nil
}

func (s *Store) categoryByID(ctx context.Context, q interface {
	QueryRowContext(context.Context, string, ...any) *sql.Row
}, id int64) (core.Category, error) {
	var c core.Category
	var t string
	err := q.QueryRowContext(ctx, s.rebind("SELECT id, name, type FROM categories WHERE id = ?"), id).Scan(&c.ID, &c.Name, &t)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, core.Validation("get category", core.ErrUnknownCategory)
	}
	if err != nil {
		return core.Category{}, core.StoreFailure("get category", err)
	}
	c.Type = core.TransactionType(t)
	return c, nil
}

// Category looks up a single category. An unknown id is a validation
// failure because ids only ever come from client input.
func (s *Store) Category(ctx context.Context, id int64) (core.Category, error) {
	return s.categoryByID(ctx, s.db, id)
}
