package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ledgerrepo "github.com/FACorreiaa/finance-assistant/internal/domain/ledger/repository"
	"github.com/FACorreiaa/finance-assistant/internal/domain/transactions/repository"
	"github.com/FACorreiaa/finance-assistant/pkg/apperrors"
	"github.com/FACorreiaa/finance-assistant/pkg/money"
)

// MockUserDirectory knows a fixed set of users
type MockUserDirectory struct {
	users map[uuid.UUID]bool
	err   error
}

func (m *MockUserDirectory) Exists(_ context.Context, id uuid.UUID) (bool, error) {
	return m.users[id], m.err
}

// leakyRepository ignores the user scope, standing in for a broken store
type leakyRepository struct {
	txs []*repository.Transaction
}

func (l *leakyRepository) Query(context.Context, uuid.UUID, repository.Criteria) ([]*repository.Transaction, error) {
	return l.txs, nil
}
func (l *leakyRepository) GetByID(context.Context, uuid.UUID, uuid.UUID) (*repository.Transaction, error) {
	return nil, apperrors.NotFound("transaction")
}
func (l *leakyRepository) Create(context.Context, *repository.Transaction) error { return nil }
func (l *leakyRepository) Update(context.Context, *repository.Transaction) error { return nil }
func (l *leakyRepository) Delete(context.Context, uuid.UUID, uuid.UUID) error    { return nil }

type fixture struct {
	svc       *Service
	repo      *repository.MemoryTransactionRepository
	ledger    *ledgerrepo.MemoryLedgerRepository
	userID    uuid.UUID
	otherID   uuid.UUID
	checking  uuid.UUID
	savings   uuid.UUID
	groceries uuid.UUID
	salary    uuid.UUID
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ptr[T any](v T) *T { return &v }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newFixture seeds the example dataset: income 1000+500+2000, expense 200+800+100,
// and one transfer of 500.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	f := &fixture{
		repo:    repository.NewMemoryTransactionRepository(),
		ledger:  ledgerrepo.NewMemoryLedgerRepository(),
		userID:  uuid.New(),
		otherID: uuid.New(),
	}
	users := &MockUserDirectory{users: map[uuid.UUID]bool{f.userID: true, f.otherID: true}}
	f.svc = NewService(f.repo, users, f.ledger, money.EUR, discardLogger())

	checking := &ledgerrepo.Account{UserID: f.userID, Name: "Checking", CurrencyCode: "EUR"}
	savings := &ledgerrepo.Account{UserID: f.userID, Name: "Savings", CurrencyCode: "EUR"}
	groceries := &ledgerrepo.Category{UserID: f.userID, Name: "Groceries", Kind: ledgerrepo.CategoryKindExpense}
	salary := &ledgerrepo.Category{UserID: f.userID, Name: "Salary", Kind: ledgerrepo.CategoryKindIncome}
	require.NoError(t, f.ledger.CreateAccount(ctx, checking))
	require.NoError(t, f.ledger.CreateAccount(ctx, savings))
	require.NoError(t, f.ledger.CreateCategory(ctx, groceries))
	require.NoError(t, f.ledger.CreateCategory(ctx, salary))
	f.checking, f.savings, f.groceries, f.salary = checking.ID, savings.ID, groceries.ID, salary.ID

	inputs := []TransactionInput{
		{Type: repository.TypeIncome, AmountMinor: 100000, Description: "Salary", Date: day(2023, 1, 15), AccountID: &f.checking, CategoryID: &f.salary},
		{Type: repository.TypeExpense, AmountMinor: 20000, Description: "Grocery store", Date: day(2023, 1, 5), AccountID: &f.checking, CategoryID: &f.groceries},
		{Type: repository.TypeIncome, AmountMinor: 50000, Description: "Freelance project", Date: day(2023, 2, 3), AccountID: &f.checking},
		{Type: repository.TypeIncome, AmountMinor: 200000, Description: "Annual bonus", Date: day(2023, 3, 1), AccountID: &f.checking, CategoryID: &f.salary},
		{Type: repository.TypeExpense, AmountMinor: 80000, Description: "Rent", Date: day(2023, 2, 1), AccountID: &f.checking},
		{Type: repository.TypeExpense, AmountMinor: 10000, Description: "Utilities", Date: day(2022, 12, 20), AccountID: &f.checking},
		{Type: repository.TypeTransfer, AmountMinor: 50000, Description: "Move to savings", Date: day(2023, 2, 10), FromAccountID: &f.checking, ToAccountID: &f.savings},
	}
	for _, in := range inputs {
		_, err := f.svc.Create(ctx, f.userID, in)
		require.NoError(t, err)
	}

	// Another user's grocery run must never leak into f.userID's results.
	otherAcct := &ledgerrepo.Account{UserID: f.otherID, Name: "Other", CurrencyCode: "EUR"}
	require.NoError(t, f.ledger.CreateAccount(ctx, otherAcct))
	_, err := f.svc.Create(ctx, f.otherID, TransactionInput{
		Type: repository.TypeExpense, AmountMinor: 20000, Description: "Grocery store", Date: day(2023, 1, 5), AccountID: &otherAcct.ID,
	})
	require.NoError(t, err)
	return f
}

func descriptions(txs []*repository.Transaction) []string {
	out := make([]string, len(txs))
	for i, tx := range txs {
		out[i] = tx.Description
	}
	return out
}

func TestQuery_DateRange(t *testing.T) {
	f := newFixture(t)
	txs, err := f.svc.Query(context.Background(), f.userID, repository.Criteria{
		StartDate: ptr(day(2023, 1, 1)),
		EndDate:   ptr(day(2023, 1, 31)),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Salary", "Grocery store"}, descriptions(txs))
}

func TestQuery_MinAmountIsTypeAgnostic(t *testing.T) {
	f := newFixture(t)
	txs, err := f.svc.Query(context.Background(), f.userID, repository.Criteria{MinAmountMinor: ptr(int64(50000))})
	require.NoError(t, err)
	assert.ElementsMatch(t,
		[]string{"Salary", "Freelance project", "Annual bonus", "Rent", "Move to savings"},
		descriptions(txs))
}

func TestQuery_CombinesCriteria(t *testing.T) {
	f := newFixture(t)
	txs, err := f.svc.Query(context.Background(), f.userID, repository.Criteria{
		Type:           ptr(repository.TypeIncome),
		MinAmountMinor: ptr(int64(50000)),
		MaxAmountMinor: ptr(int64(100000)),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Freelance project", "Salary"}, descriptions(txs))
}

func TestQuery_SearchIsCaseInsensitiveSubstring(t *testing.T) {
	f := newFixture(t)
	txs, err := f.svc.Query(context.Background(), f.userID, repository.Criteria{Search: "GROCER"})
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, f.userID, txs[0].UserID)
}

func TestQuery_EmptyResultIsNotAnError(t *testing.T) {
	f := newFixture(t)
	txs, err := f.svc.Query(context.Background(), f.userID, repository.Criteria{Search: "nothing like this"})
	require.NoError(t, err)
	assert.NotNil(t, txs)
	assert.Empty(t, txs)
}

func TestQuery_Idempotent(t *testing.T) {
	f := newFixture(t)
	c := repository.Criteria{StartDate: ptr(day(2022, 1, 1))}
	first, err := f.svc.Query(context.Background(), f.userID, c)
	require.NoError(t, err)
	second, err := f.svc.Query(context.Background(), f.userID, c)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestQuery_OrderedNewestFirst(t *testing.T) {
	f := newFixture(t)
	txs, err := f.svc.Query(context.Background(), f.userID, repository.Criteria{})
	require.NoError(t, err)
	for i := 1; i < len(txs); i++ {
		assert.False(t, txs[i].Date.After(txs[i-1].Date))
	}
}

func TestQuery_Paging(t *testing.T) {
	f := newFixture(t)
	all, err := f.svc.Query(context.Background(), f.userID, repository.Criteria{})
	require.NoError(t, err)

	page, err := f.svc.Query(context.Background(), f.userID, repository.Criteria{Limit: 2, Offset: 2})
	require.NoError(t, err)
	assert.Equal(t, descriptions(all[2:4]), descriptions(page))
}

func TestQuery_ValidationErrors(t *testing.T) {
	f := newFixture(t)
	cases := map[string]repository.Criteria{
		"reversed dates":   {StartDate: ptr(day(2023, 2, 1)), EndDate: ptr(day(2023, 1, 1))},
		"reversed amounts": {MinAmountMinor: ptr(int64(500)), MaxAmountMinor: ptr(int64(100))},
		"unknown type":     {Type: ptr(repository.TransactionType("refund"))},
		"negative amount":  {MinAmountMinor: ptr(int64(-1))},
		"limit too large":  {Limit: MaxPageSize + 1},
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.Query(context.Background(), f.userID, c)
			assert.ErrorIs(t, err, apperrors.ErrValidation)
		})
	}
}

func TestQuery_UnknownUser(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Query(context.Background(), uuid.New(), repository.Criteria{})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestQuery_TenantIsolationSurvivesLeakyStore(t *testing.T) {
	userID, otherID := uuid.New(), uuid.New()
	leaky := &leakyRepository{txs: []*repository.Transaction{
		{ID: uuid.New(), UserID: userID, Type: repository.TypeExpense, AmountMinor: 100, Description: "coffee", Date: day(2023, 1, 1)},
		{ID: uuid.New(), UserID: otherID, Type: repository.TypeExpense, AmountMinor: 100, Description: "coffee", Date: day(2023, 1, 1)},
		{ID: uuid.New(), UserID: userID, Type: repository.TypeIncome, AmountMinor: 100, Description: "refund", Date: day(2023, 1, 1)},
	}}
	users := &MockUserDirectory{users: map[uuid.UUID]bool{userID: true}}
	svc := NewService(leaky, users, ledgerrepo.NewMemoryLedgerRepository(), money.EUR, discardLogger())

	txs, err := svc.Query(context.Background(), userID, repository.Criteria{Search: "coffee"})
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, userID, txs[0].UserID)
}

func TestCreate_TypeRules(t *testing.T) {
	f := newFixture(t)
	other := uuid.New()
	cases := map[string]TransactionInput{
		"zero amount":             {Type: repository.TypeExpense, AmountMinor: 0, Date: day(2023, 1, 1), AccountID: &f.checking},
		"missing date":            {Type: repository.TypeExpense, AmountMinor: 1, AccountID: &f.checking},
		"expense without account": {Type: repository.TypeExpense, AmountMinor: 1, Date: day(2023, 1, 1)},
		"transfer same account":   {Type: repository.TypeTransfer, AmountMinor: 1, Date: day(2023, 1, 1), FromAccountID: &f.checking, ToAccountID: &f.checking},
		"transfer with category":  {Type: repository.TypeTransfer, AmountMinor: 1, Date: day(2023, 1, 1), FromAccountID: &f.checking, ToAccountID: &f.savings, CategoryID: &f.groceries},
		"debt without name":       {Type: repository.TypeDebtGive, AmountMinor: 1, Date: day(2023, 1, 1)},
		"bad debt status":         {Type: repository.TypeDebtGive, AmountMinor: 1, Date: day(2023, 1, 1), CounterpartyName: ptr("Ana"), CounterpartyStatus: ptr(repository.CounterpartyStatus("lost"))},
		"foreign account":         {Type: repository.TypeExpense, AmountMinor: 1, Date: day(2023, 1, 1), AccountID: &other},
		"foreign category":        {Type: repository.TypeExpense, AmountMinor: 1, Date: day(2023, 1, 1), AccountID: &f.checking, CategoryID: &other},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.Create(context.Background(), f.userID, in)
			assert.ErrorIs(t, err, apperrors.ErrValidation)
		})
	}
}

func TestCreate_DebtDefaultsToOpen(t *testing.T) {
	f := newFixture(t)
	tx, err := f.svc.Create(context.Background(), f.userID, TransactionInput{
		Type: repository.TypeDebtGive, AmountMinor: 5000, Date: day(2023, 1, 1), CounterpartyName: ptr("Ana"),
	})
	require.NoError(t, err)
	require.NotNil(t, tx.CounterpartyStatus)
	assert.Equal(t, repository.CounterpartyOpen, *tx.CounterpartyStatus)
	assert.Equal(t, money.EUR, tx.CurrencyCode)
}

func TestUpdateAndDelete_ScopedToOwner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tx, err := f.svc.Create(ctx, f.userID, TransactionInput{
		Type: repository.TypeExpense, AmountMinor: 999, Date: day(2023, 4, 1), AccountID: &f.checking, Description: "Book",
	})
	require.NoError(t, err)

	_, err = f.svc.Update(ctx, f.otherID, tx.ID, TransactionInput{Type: repository.TypeExpense, AmountMinor: 1, Date: day(2023, 4, 1), AccountID: &f.checking})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.ErrorIs(t, f.svc.Delete(ctx, f.otherID, tx.ID), apperrors.ErrNotFound)

	updated, err := f.svc.Update(ctx, f.userID, tx.ID, TransactionInput{
		Type: repository.TypeExpense, AmountMinor: 1500, Date: day(2023, 4, 2), AccountID: &f.checking, Description: "Two books",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1500), updated.AmountMinor)

	require.NoError(t, f.svc.Delete(ctx, f.userID, tx.ID))
	_, err = f.svc.Get(ctx, f.userID, tx.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestCreate_RejectsForeignCurrency(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, f.userID, TransactionInput{
		Type: repository.TypeExpense, AmountMinor: 1234, Currency: "USD", Date: day(2023, 1, 7), AccountID: &f.checking,
	})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	tx, err := f.svc.Create(ctx, f.userID, TransactionInput{
		Type: repository.TypeExpense, AmountMinor: 1234, Currency: " eur ", Date: day(2023, 1, 7), AccountID: &f.checking,
	})
	require.NoError(t, err)
	assert.Equal(t, money.EUR, tx.CurrencyCode)

	stats, err := f.svc.Statistics(ctx, f.userID, repository.Criteria{}, false)
	require.NoError(t, err)
	assert.Equal(t, "1112.34", stats.TotalExpense.String())
}
