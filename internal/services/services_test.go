package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"ledger/internal/core"
	"ledger/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []core.LedgerEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, evt core.LedgerEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return p.err
}

func (p *recordingPublisher) types() []core.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]core.EventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

// LedgerServicesSuite wires every service to one in-memory store.
type LedgerServicesSuite struct {
	suite.Suite
	ctx          context.Context
	store        *storage.Store
	events       *recordingPublisher
	identity     *IdentityService
	budgets      *BudgetService
	transactions *TransactionService
	analytics    *AnalyticsService
	categories   *CategoryService
}

func (s *LedgerServicesSuite) SetupTest() {
	store, err := storage.OpenSQLite(":memory:")
	require.NoError(s.T(), err)
	s.ctx = context.Background()
	s.store = store
	s.events = &recordingPublisher{}
	s.identity, err = NewIdentityService(store, s.events, IdentityOptions{TokenTTL: time.Hour, BcryptCost: bcrypt.MinCost})
	require.NoError(s.T(), err)
	s.budgets = NewBudgetService(store, s.events)
	s.transactions = NewTransactionService(store, s.events)
	s.analytics = NewAnalyticsService(store)
	s.categories = NewCategoryService(store, time.Minute)
}

func (s *LedgerServicesSuite) TearDownTest() {
	s.store.Close()
}

func TestLedgerServicesSuite(t *testing.T) {
	suite.Run(t, new(LedgerServicesSuite))
}

func (s *LedgerServicesSuite) register(email string) Session {
	sess, err := s.identity.Register(s.ctx, email, "secret1", "")
	require.NoError(s.T(), err)
	return sess
}

func (s *LedgerServicesSuite) categoryID(name string) int64 {
	cats, err := s.categories.List(s.ctx, "")
	require.NoError(s.T(), err)
	for _, c := range cats {
		if c.Name == name {
			return c.ID
		}
	}
	s.T().Fatalf("no category %q", name)
	return 0
}

func (s *LedgerServicesSuite) TestRegisterAndAuthenticate() {
	sess, err := s.identity.Register(s.ctx, " A@X.com ", "secret1", "Ann")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "a@x.com", sess.User.Email)
	assert.Equal(s.T(), "Ann", sess.User.Name)
	assert.NotEmpty(s.T(), sess.Token)

	uid, err := s.identity.VerifyToken(s.ctx, sess.Token)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), sess.User.ID, uid)

	login, err := s.identity.Authenticate(s.ctx, "a@x.com", "secret1")
	require.NoError(s.T(), err)
	assert.NotEqual(s.T(), sess.Token, login.Token)

	_, err = s.identity.Authenticate(s.ctx, "a@x.com", "wrong-password")
	assert.Equal(s.T(), core.KindAuth, core.KindOf(err))

	_, err = s.identity.Authenticate(s.ctx, "nobody@x.com", "secret1")
	assert.Equal(s.T(), core.KindAuth, core.KindOf(err))
	assert.ErrorIs(s.T(), err, core.ErrInvalidCredentials, "unknown email and wrong password look the same")

	_, err = s.identity.Authenticate(s.ctx, "", "")
	assert.Equal(s.T(), core.KindValidation, core.KindOf(err))
}

func (s *LedgerServicesSuite) TestRegisterValidation() {
	_, err := s.identity.Register(s.ctx, "not-an-email", "secret1", "")
	assert.Equal(s.T(), core.KindValidation, core.KindOf(err))

	_, err = s.identity.Register(s.ctx, "a@x.com", "short", "")
	assert.Equal(s.T(), core.KindValidation, core.KindOf(err))
	assert.ErrorIs(s.T(), err, core.ErrPasswordTooShort)

	s.register("a@x.com")
	_, err = s.identity.Register(s.ctx, "A@x.com", "secret1", "")
	assert.Equal(s.T(), core.KindConflict, core.KindOf(err))
}

func (s *LedgerServicesSuite) TestRegisterHashesAtConfiguredCost() {
	identity, err := NewIdentityService(s.store, nil, IdentityOptions{BcryptCost: bcrypt.MinCost + 1})
	require.NoError(s.T(), err)

	_, err = identity.Register(s.ctx, "cost@x.com", "secret1", "")
	require.NoError(s.T(), err)
	user, err := s.store.UserByEmail(s.ctx, "cost@x.com")
	require.NoError(s.T(), err)
	cost, err := bcrypt.Cost([]byte(user.PasswordHash))
	require.NoError(s.T(), err)
	assert.Equal(s.T(), bcrypt.MinCost+1, cost)
}

func (s *LedgerServicesSuite) TestRegisterNameCountsCharacters() {
	_, err := s.identity.Register(s.ctx, "name@x.com", "secret1", strings.Repeat("é", core.MaxTitleLength))
	require.NoError(s.T(), err)

	_, err = s.identity.Register(s.ctx, "long@x.com", "secret1", strings.Repeat("é", core.MaxTitleLength+1))
	assert.Equal(s.T(), core.KindValidation, core.KindOf(err))
}

func (s *LedgerServicesSuite) TestVerifyTokenRejects() {
	sess := s.register("a@x.com")

	last := "0"
	if sess.Token[len(sess.Token)-1] == '0' {
		last = "1"
	}
	tampered := sess.Token[:len(sess.Token)-1] + last

	for _, token := range []string{"", "garbage", tampered} {
		_, err := s.identity.VerifyToken(s.ctx, token)
		assert.Equal(s.T(), core.KindAuth, core.KindOf(err), "token %q", token)
	}

	s.identity.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err := s.identity.VerifyToken(s.ctx, sess.Token)
	assert.Equal(s.T(), core.KindAuth, core.KindOf(err), "expired token")
}

func (s *LedgerServicesSuite) TestLogout() {
	sess := s.register("a@x.com")
	require.NoError(s.T(), s.identity.Logout(s.ctx, sess.Token))
	_, err := s.identity.VerifyToken(s.ctx, sess.Token)
	assert.Equal(s.T(), core.KindAuth, core.KindOf(err))
	assert.NoError(s.T(), s.identity.Logout(s.ctx, "junk"))
}

func (s *LedgerServicesSuite) TestChangePassword() {
	sess := s.register("a@x.com")
	other, err := s.identity.Authenticate(s.ctx, "a@x.com", "secret1")
	require.NoError(s.T(), err)

	_, err = s.identity.ChangePassword(s.ctx, sess.User.ID, "wrong1", "newsecret", "")
	assert.Equal(s.T(), core.KindAuth, core.KindOf(err))

	_, err = s.identity.ChangePassword(s.ctx, sess.User.ID, "secret1", "new", "")
	assert.Equal(s.T(), core.KindValidation, core.KindOf(err))

	_, err = s.identity.ChangePassword(s.ctx, sess.User.ID, "secret1", "newsecret", "different")
	assert.ErrorIs(s.T(), err, core.ErrPasswordMismatch)

	token, err := s.identity.ChangePassword(s.ctx, sess.User.ID, "secret1", "newsecret", "newsecret")
	require.NoError(s.T(), err)

	for _, old := range []string{sess.Token, other.Token} {
		_, err := s.identity.VerifyToken(s.ctx, old)
		assert.Equal(s.T(), core.KindAuth, core.KindOf(err), "old token must be revoked")
	}
	_, err = s.identity.VerifyToken(s.ctx, token)
	assert.NoError(s.T(), err)

	_, err = s.identity.Authenticate(s.ctx, "a@x.com", "newsecret")
	assert.NoError(s.T(), err)
}

func (s *LedgerServicesSuite) TestDeleteAccount() {
	sess := s.register("a@x.com")
	b, err := s.budgets.Create(s.ctx, sess.User.ID, core.NewBudget{Title: "Food", Amount: core.Money{Cents: 10000}, Date: core.NewDate(2025, 1, 1)})
	require.NoError(s.T(), err)
	_, err = s.transactions.Create(s.ctx, sess.User.ID, core.NewTransaction{
		Type: core.Expense, Amount: core.Money{Cents: 4000}, CategoryID: s.categoryID("food & dining"),
		BudgetID: &b.ID, Date: core.NewDate(2025, 1, 2),
	})
	require.NoError(s.T(), err)

	require.NoError(s.T(), s.identity.DeleteAccount(s.ctx, sess.User.ID))

	counts, err := s.store.RowCounts(s.ctx, sess.User.ID)
	require.NoError(s.T(), err)
	for table, n := range counts {
		assert.Zero(s.T(), n, "rows left in %s", table)
	}

	_, err = s.identity.VerifyToken(s.ctx, sess.Token)
	assert.Equal(s.T(), core.KindAuth, core.KindOf(err))

	err = s.identity.DeleteAccount(s.ctx, sess.User.ID)
	assert.Equal(s.T(), core.KindNotFound, core.KindOf(err))

	assert.Contains(s.T(), s.events.types(), core.EventAccountDeleted)
}

func (s *LedgerServicesSuite) TestBudgetScenario() {
	sess := s.register("a@x.com")
	uid := sess.User.ID

	b, err := s.budgets.Create(s.ctx, uid, core.NewBudget{Title: "Food", Amount: core.Money{Cents: 10000}, Date: core.NewDate(2025, 1, 1)})
	require.NoError(s.T(), err)
	assert.Equal(s.T(), int64(10000), b.Remaining().Cents)

	_, err = s.transactions.Create(s.ctx, uid, core.NewTransaction{
		Type: core.Expense, Amount: core.Money{Cents: 4000}, CategoryID: s.categoryID("food & dining"),
		BudgetID: &b.ID, Date: core.NewDate(2025, 1, 2),
	})
	require.NoError(s.T(), err)

	list, err := s.budgets.List(s.ctx, uid, core.BudgetFilter{})
	require.NoError(s.T(), err)
	require.Len(s.T(), list, 1)
	assert.Equal(s.T(), "60.00", list[0].Remaining().String())

	assert.Equal(s.T(), []core.EventType{core.EventBudgetCreated, core.EventTransactionCreated}, s.events.types())
}

func (s *LedgerServicesSuite) TestTransactionValidation() {
	sess := s.register("a@x.com")
	uid := sess.User.ID
	b, err := s.budgets.Create(s.ctx, uid, core.NewBudget{Title: "Food", Amount: core.Money{Cents: 1500}, Date: core.NewDate(2025, 1, 1)})
	require.NoError(s.T(), err)

	_, err = s.transactions.Create(s.ctx, uid, core.NewTransaction{
		Type: core.Income, Amount: core.Money{Cents: 100}, CategoryID: s.categoryID("salary"),
		BudgetID: &b.ID, Date: core.NewDate(2025, 1, 2),
	})
	assert.Equal(s.T(), core.KindValidation, core.KindOf(err))
	assert.ErrorIs(s.T(), err, core.ErrIncomeWithBudget)

	_, err = s.transactions.Create(s.ctx, uid, core.NewTransaction{
		Type: core.Income, Amount: core.Money{Cents: 100}, CategoryID: s.categoryID("shopping"),
		Date: core.NewDate(2025, 1, 2),
	})
	assert.Equal(s.T(), core.KindValidation, core.KindOf(err))
	assert.ErrorIs(s.T(), err, core.ErrCategoryMismatch)

	_, err = s.transactions.Create(s.ctx, uid, core.NewTransaction{
		Type: core.Expense, Amount: core.Money{Cents: 0}, CategoryID: s.categoryID("shopping"),
		Date: core.NewDate(2025, 1, 2),
	})
	assert.Equal(s.T(), core.KindValidation, core.KindOf(err))

	list, err := s.transactions.List(s.ctx, uid, core.TransactionFilter{})
	require.NoError(s.T(), err)
	assert.Empty(s.T(), list)
	assert.Equal(s.T(), []core.EventType{core.EventBudgetCreated}, s.events.types())
}

func (s *LedgerServicesSuite) TestPublishFailureDoesNotFailWrite() {
	s.events.err = errors.New("broker down")
	sess := s.register("a@x.com")

	b, err := s.budgets.Create(s.ctx, sess.User.ID, core.NewBudget{Title: "Food", Amount: core.Money{Cents: 100}, Date: core.NewDate(2025, 1, 1)})
	require.NoError(s.T(), err)
	_, err = s.budgets.Get(s.ctx, sess.User.ID, b.ID)
	assert.NoError(s.T(), err)
}

func (s *LedgerServicesSuite) TestDeleteBudgetOwnership() {
	owner := s.register("a@x.com")
	intruder := s.register("b@x.com")
	b, err := s.budgets.Create(s.ctx, owner.User.ID, core.NewBudget{Title: "Food", Amount: core.Money{Cents: 100}, Date: core.NewDate(2025, 1, 1)})
	require.NoError(s.T(), err)

	err = s.budgets.Delete(s.ctx, intruder.User.ID, b.ID)
	assert.Equal(s.T(), core.KindNotFound, core.KindOf(err))

	require.NoError(s.T(), s.budgets.Delete(s.ctx, owner.User.ID, b.ID))
	_, err = s.budgets.Get(s.ctx, owner.User.ID, b.ID)
	assert.Equal(s.T(), core.KindNotFound, core.KindOf(err))
}

func (s *LedgerServicesSuite) TestAnalytics() {
	sess := s.register("a@x.com")
	uid := sess.User.ID

	breakdown, err := s.analytics.CategoryBreakdown(s.ctx, uid, core.DateRange{})
	require.NoError(s.T(), err)
	assert.Empty(s.T(), breakdown)

	for _, nt := range []core.NewTransaction{
		{Type: core.Income, Amount: core.Money{Cents: 250000}, CategoryID: s.categoryID("salary"), Date: core.NewDate(2025, 1, 1)},
		{Type: core.Expense, Amount: core.Money{Cents: 1999}, CategoryID: s.categoryID("entertainment"), Date: core.NewDate(2025, 1, 5)},
		{Type: core.Expense, Amount: core.Money{Cents: 1}, CategoryID: s.categoryID("entertainment"), Date: core.NewDate(2025, 1, 6)},
	} {
		_, err := s.transactions.Create(s.ctx, uid, nt)
		require.NoError(s.T(), err)
	}

	breakdown, err = s.analytics.CategoryBreakdown(s.ctx, uid, core.DateRange{})
	require.NoError(s.T(), err)
	require.Len(s.T(), breakdown, 2)
	assert.Equal(s.T(), "entertainment", breakdown[0].Category)
	assert.Equal(s.T(), int64(2000), breakdown[0].Total.Cents)

	sum, err := s.analytics.IncomeExpenseSummary(s.ctx, uid, core.DateRange{})
	require.NoError(s.T(), err)
	assert.Equal(s.T(), sum.Income.Cents-sum.Expense.Cents, sum.Balance().Cents)
	assert.Equal(s.T(), int64(248000), sum.Balance().Cents)

	_, err = s.analytics.CategoryBreakdown(s.ctx, uid, core.DateRange{Start: core.NewDate(2025, 2, 1), End: core.NewDate(2025, 1, 1)})
	assert.Equal(s.T(), core.KindValidation, core.KindOf(err))
}

func (s *LedgerServicesSuite) TestCategoriesCached() {
	income, err := s.categories.List(s.ctx, core.Income)
	require.NoError(s.T(), err)
	assert.Len(s.T(), income, 4)

	_, err = s.categories.List(s.ctx, core.Income)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), int64(1), s.categories.Cache().Stats().Hits)

	_, err = s.categories.List(s.ctx, "transfer")
	assert.Equal(s.T(), core.KindValidation, core.KindOf(err))
}

func TestNilPublisherIsSkipped(t *testing.T) {
	assert.NotPanics(t, func() {
		publishEvent(context.Background(), nil, core.LedgerEvent{Type: core.EventBudgetCreated})
	})
}
