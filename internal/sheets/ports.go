package sheets

import (
	"context"
	"errors"
	"strconv"

	"ledger/internal/core"
)

// ExportRow is one transaction mirrored to an export sink.
type ExportRow struct {
	TransactionID int64
	UserID        int64
	Date          core.Date
	Type          core.TransactionType
	Category      string
	Amount        core.Money
	Description   string
	BudgetTitle   string
}

var errMissingTransaction = errors.New("export row has no transaction id")

// NewExportRow builds the row for a stored transaction. budgetTitle is
// empty when the transaction is not linked to a budget.
func NewExportRow(t core.Transaction, budgetTitle string) ExportRow {
	return ExportRow{
		TransactionID: t.ID,
		UserID:        t.UserID,
		Date:          t.Date,
		Type:          t.Type,
		Category:      t.CategoryName,
		Amount:        t.Amount,
		Description:   t.Description,
		BudgetTitle:   budgetTitle,
	}
}

func (r ExportRow) Validate() error {
	if r.TransactionID <= 0 {
		return errMissingTransaction
	}
	if err := r.Date.Validate(); err != nil {
		return err
	}
	if !r.Type.Valid() {
		return core.ErrInvalidType
	}
	return r.Amount.Validate()
}

// Values renders the row in sheet column order:
// Date, Type, Category, Amount, Description, Budget, Transaction ID.
func (r ExportRow) Values() []any {
	return []any{
		r.Date.String(),
		string(r.Type),
		r.Category,
		r.Amount.String(),
		r.Description,
		r.BudgetTitle,
		strconv.FormatInt(r.TransactionID, 10),
	}
}

// ExportSink receives rows from the ledger worker.
type ExportSink interface {
	Append(ctx context.Context, row ExportRow) (rowRef string, err error)
}
