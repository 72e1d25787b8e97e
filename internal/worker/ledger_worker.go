package worker

import (
	"context"
	"fmt"
	"time"

	"ledger/internal/core"
	"ledger/internal/log"
	"ledger/internal/sheets"
)

// Store is the slice of storage the worker reads from.
type Store interface {
	GetTransaction(ctx context.Context, userID, id int64) (core.Transaction, error)
	GetBudget(ctx context.Context, userID, id int64) (core.Budget, error)
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}

// LedgerWorker reacts to ledger events: over-budget alerts and exports
// for new transactions, plus periodic session cleanup.
type LedgerWorker struct {
	store  Store
	sink   sheets.ExportSink
	logger *log.Logger
	now    func() time.Time
}

func NewLedgerWorker(store Store, sink sheets.ExportSink, logger *log.Logger) *LedgerWorker {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &LedgerWorker{
		store:  store,
		sink:   sink,
		logger: logger.WithComponent(log.ComponentWorker),
		now:    time.Now,
	}
}

// Handle processes one event. A returned error asks the broker to
// redeliver; events whose entity no longer exists are dropped.
func (w *LedgerWorker) Handle(ctx context.Context, evt core.LedgerEvent) error {
	switch evt.Type {
	case core.EventTransactionCreated:
		return w.handleTransactionCreated(ctx, evt)
	case core.EventAccountDeleted:
		w.logger.InfoContext(ctx, "Account deleted",
			log.FieldUserID, evt.UserID)
		return nil
	default:
		w.logger.DebugContext(ctx, "Ignoring ledger event",
			log.FieldEventType, evt.Type,
			log.FieldUserID, evt.UserID)
		return nil
	}
}

func (w *LedgerWorker) handleTransactionCreated(ctx context.Context, evt core.LedgerEvent) error {
	tx, err := w.store.GetTransaction(ctx, evt.UserID, evt.EntityID)
	if err != nil {
		if core.KindOf(err) == core.KindNotFound {
			w.logger.InfoContext(ctx, "Transaction gone before processing, skipping",
				log.FieldTransactionID, evt.EntityID,
				log.FieldUserID, evt.UserID)
			return nil
		}
		return fmt.Errorf("get transaction %d: %w", evt.EntityID, err)
	}

	var budgetTitle string
	if tx.BudgetID != nil {
		budget, err := w.store.GetBudget(ctx, tx.UserID, *tx.BudgetID)
		switch {
		case err == nil:
			budgetTitle = budget.Title
			if budget.OverBudget() {
				w.logger.WarnContext(ctx, "Budget exceeded",
					log.FieldUserID, tx.UserID,
					log.FieldBudgetID, budget.ID,
					log.FieldTransactionID, tx.ID,
					"title", budget.Title,
					"amount", budget.Amount.String(),
					"spent", budget.Spent.String(),
					"remaining", budget.Remaining().String())
			}
		case core.KindOf(err) == core.KindNotFound:
			// Budget deleted after the insert; export without it.
		default:
			return fmt.Errorf("get budget %d: %w", *tx.BudgetID, err)
		}
	}

	if w.sink == nil {
		return nil
	}
	ref, err := w.sink.Append(ctx, sheets.NewExportRow(tx, budgetTitle))
	if err != nil {
		return fmt.Errorf("export transaction %d: %w", tx.ID, err)
	}
	w.logger.InfoContext(ctx, "Transaction exported",
		log.FieldOperation, log.OpExport,
		log.FieldTransactionID, tx.ID,
		log.FieldAmountCents, tx.Amount.Cents,
		"ref", ref)
	return nil
}

// CleanupSessions deletes sessions that have expired.
func (w *LedgerWorker) CleanupSessions(ctx context.Context) (int64, error) {
	n, err := w.store.DeleteExpiredSessions(ctx, w.now())
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	if n > 0 {
		w.logger.InfoContext(ctx, "Expired sessions removed",
			log.FieldOperation, log.OpCleanup,
			"count", n)
	}
	return n, nil
}

// RunCleanup calls CleanupSessions every interval until ctx is done.
// Failures are logged and retried on the next tick.
func (w *LedgerWorker) RunCleanup(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := w.CleanupSessions(ctx); err != nil {
				w.logger.ErrorContext(ctx, "Session cleanup failed", log.FieldError, err.Error())
			}
		}
	}
}
