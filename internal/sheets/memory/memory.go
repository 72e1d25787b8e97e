package memory

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"ledger/internal/sheets"
)

const DefaultLimit = 500

// Sink keeps the most recent export rows in memory and logs each one.
// It stands in for Google Sheets when no spreadsheet is configured.
type Sink struct {
	mu       sync.Mutex
	limit    int
	rows     []sheets.ExportRow
	appended int
}

var _ sheets.ExportSink = (*Sink)(nil)

func New(limit int) *Sink {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Sink{limit: limit}
}

// Append stores the row and returns a synthetic row reference.
func (s *Sink) Append(ctx context.Context, row sheets.ExportRow) (string, error) {
	if err := row.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	s.rows = append(s.rows, row)
	if len(s.rows) > s.limit {
		// Drop the oldest rows; copy so the backing array does not grow forever.
		s.rows = append([]sheets.ExportRow(nil), s.rows[len(s.rows)-s.limit:]...)
	}
	s.appended++
	ref := fmt.Sprintf("mem:%d", s.appended)
	s.mu.Unlock()

	slog.InfoContext(ctx, "Exported transaction",
		"component", "sheets",
		"ref", ref,
		"transaction_id", row.TransactionID,
		"user_id", row.UserID,
		"date", row.Date.String(),
		"type", row.Type,
		"category", row.Category,
		"amount", row.Amount.String(),
		"budget", row.BudgetTitle)
	return ref, nil
}

// Rows returns the retained rows, oldest first.
func (s *Sink) Rows() []sheets.ExportRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sheets.ExportRow(nil), s.rows...)
}
