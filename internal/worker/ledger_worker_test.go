package worker

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"ledger/internal/core"
	"ledger/internal/log"
	"ledger/internal/sheets"
	"ledger/internal/sheets/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	transactions map[int64]core.Transaction
	budgets      map[int64]core.Budget
	txErr        error
	budgetErr    error
	cleanupErr   error
	cleanups     atomic.Int64
	cleanupAt    atomic.Value
}

func (f *fakeStore) GetTransaction(_ context.Context, userID, id int64) (core.Transaction, error) {
	if f.txErr != nil {
		return core.Transaction{}, f.txErr
	}
	t, ok := f.transactions[id]
	if !ok || t.UserID != userID {
		return core.Transaction{}, core.NotFound("get transaction", core.ErrTransactionNotFound)
	}
	return t, nil
}

func (f *fakeStore) GetBudget(_ context.Context, userID, id int64) (core.Budget, error) {
	if f.budgetErr != nil {
		return core.Budget{}, f.budgetErr
	}
	b, ok := f.budgets[id]
	if !ok || b.UserID != userID {
		return core.Budget{}, core.NotFound("get budget", core.ErrBudgetNotFound)
	}
	return b, nil
}

func (f *fakeStore) DeleteExpiredSessions(_ context.Context, now time.Time) (int64, error) {
	f.cleanups.Add(1)
	f.cleanupAt.Store(now)
	if f.cleanupErr != nil {
		return 0, f.cleanupErr
	}
	return 2, nil
}

type failingSink struct{}

func (failingSink) Append(context.Context, sheets.ExportRow) (string, error) {
	return "", errors.New("quota exceeded")
}

func newStore() *fakeStore {
	budgetID := int64(10)
	return &fakeStore{
		transactions: map[int64]core.Transaction{
			1: {ID: 1, UserID: 7, Type: core.Expense, Amount: core.Money{Cents: 4000}, CategoryName: "food & dining", BudgetID: &budgetID, Date: core.NewDate(2025, 1, 2)},
			2: {ID: 2, UserID: 7, Type: core.Income, Amount: core.Money{Cents: 100000}, CategoryName: "salary", Date: core.NewDate(2025, 1, 31)},
		},
		budgets: map[int64]core.Budget{
			10: {ID: 10, UserID: 7, Title: "Food", Amount: core.Money{Cents: 3000}, Spent: core.Money{Cents: 4000}},
		},
	}
}

func newTestWorker(store Store, sink sheets.ExportSink) (*LedgerWorker, *bytes.Buffer) {
	var buf bytes.Buffer
	logger := log.New(log.Config{Level: slog.LevelDebug, Format: "json", Output: &buf})
	return NewLedgerWorker(store, sink, logger), &buf
}

func created(userID, id int64) core.LedgerEvent {
	return core.LedgerEvent{Type: core.EventTransactionCreated, UserID: userID, EntityID: id}
}

func TestHandleTransactionCreatedExports(t *testing.T) {
	sink := memory.New(10)
	w, logs := newTestWorker(newStore(), sink)

	require.NoError(t, w.Handle(context.Background(), created(7, 1)))
	require.NoError(t, w.Handle(context.Background(), created(7, 2)))

	rows := sink.Rows()
	require.Len(t, rows, 2)
	assert.Equal(t, "Food", rows[0].BudgetTitle)
	assert.Equal(t, "food & dining", rows[0].Category)
	assert.Equal(t, int64(4000), rows[0].Amount.Cents)
	assert.Empty(t, rows[1].BudgetTitle)

	assert.Contains(t, logs.String(), `"msg":"Budget exceeded"`)
	assert.Contains(t, logs.String(), `"remaining":"-10.00"`)
	assert.Contains(t, logs.String(), `"component":"worker"`)
}

func TestHandleNoAlertWithinBudget(t *testing.T) {
	store := newStore()
	b := store.budgets[10]
	b.Amount = core.Money{Cents: 10000}
	store.budgets[10] = b

	w, logs := newTestWorker(store, memory.New(10))
	require.NoError(t, w.Handle(context.Background(), created(7, 1)))
	assert.NotContains(t, logs.String(), "Budget exceeded")
}

func TestHandleMissingEntities(t *testing.T) {
	sink := memory.New(10)
	store := newStore()
	w, _ := newTestWorker(store, sink)

	// Deleted before the worker saw it, or owned by someone else.
	require.NoError(t, w.Handle(context.Background(), created(7, 99)))
	require.NoError(t, w.Handle(context.Background(), created(8, 1)))
	assert.Empty(t, sink.Rows())

	delete(store.budgets, 10)
	require.NoError(t, w.Handle(context.Background(), created(7, 1)))
	require.Len(t, sink.Rows(), 1)
	assert.Empty(t, sink.Rows()[0].BudgetTitle)
}

func TestHandleErrorsAreRetryable(t *testing.T) {
	tests := []struct {
		name  string
		store func() *fakeStore
		sink  sheets.ExportSink
	}{
		{"transaction lookup fails", func() *fakeStore {
			s := newStore()
			s.txErr = core.StoreFailure("get transaction", errors.New("database is locked"))
			return s
		}, memory.New(10)},
		{"budget lookup fails", func() *fakeStore {
			s := newStore()
			s.budgetErr = core.StoreFailure("get budget", errors.New("database is locked"))
			return s
		}, memory.New(10)},
		{"sink fails", newStore, failingSink{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, _ := newTestWorker(tt.store(), tt.sink)
			assert.Error(t, w.Handle(context.Background(), created(7, 1)))
		})
	}
}

func TestHandleOtherEvents(t *testing.T) {
	sink := memory.New(10)
	w, logs := newTestWorker(newStore(), sink)

	for _, typ := range []core.EventType{core.EventBudgetCreated, core.EventBudgetDeleted, core.EventTransactionDeleted, core.EventAccountDeleted, "unknown"} {
		assert.NoError(t, w.Handle(context.Background(), core.LedgerEvent{Type: typ, UserID: 7, EntityID: 1}), typ)
	}
	assert.Empty(t, sink.Rows())
	assert.Contains(t, logs.String(), `"msg":"Account deleted"`)
}

func TestHandleWithoutSink(t *testing.T) {
	w, _ := newTestWorker(newStore(), nil)
	assert.NoError(t, w.Handle(context.Background(), created(7, 1)))
}

func TestCleanupSessions(t *testing.T) {
	store := newStore()
	w, logs := newTestWorker(store, nil)
	fixed := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	w.now = func() time.Time { return fixed }

	n, err := w.CleanupSessions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Equal(t, fixed, store.cleanupAt.Load())
	assert.Contains(t, logs.String(), `"operation":"cleanup"`)

	store.cleanupErr = errors.New("disk full")
	_, err = w.CleanupSessions(context.Background())
	assert.ErrorContains(t, err, "disk full")
}

func TestRunCleanupTicksUntilCancelled(t *testing.T) {
	store := newStore()
	store.cleanupErr = errors.New("transient")
	w := NewLedgerWorker(store, nil, log.New(log.Config{Output: &bytes.Buffer{}}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.RunCleanup(ctx, 5*time.Millisecond) }()

	require.Eventually(t, func() bool { return store.cleanups.Load() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("RunCleanup did not stop after cancel")
	}
}
