package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	goalrepo "github.com/FACorreiaa/finance-assistant/internal/domain/goals/repository"
	goalservice "github.com/FACorreiaa/finance-assistant/internal/domain/goals/service"
	ledgerrepo "github.com/FACorreiaa/finance-assistant/internal/domain/ledger/repository"
	"github.com/FACorreiaa/finance-assistant/internal/domain/reports/repository"
	txrepo "github.com/FACorreiaa/finance-assistant/internal/domain/transactions/repository"
	txservice "github.com/FACorreiaa/finance-assistant/internal/domain/transactions/service"
	"github.com/FACorreiaa/finance-assistant/pkg/apperrors"
	"github.com/FACorreiaa/finance-assistant/pkg/storage"
)

type allUsers struct{}

func (allUsers) Exists(context.Context, uuid.UUID) (bool, error) { return true, nil }

type fixture struct {
	svc       *Service
	txs       *txservice.Service
	goals     *goalservice.Service
	ledger    *ledgerrepo.MemoryLedgerRepository
	userID    uuid.UUID
	groceries uuid.UUID
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ptr[T any](v T) *T { return &v }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureIn(t, "EUR")
}

// newFixtureIn seeds the example dataset with every amount in currency
func newFixtureIn(t *testing.T, currency string) *fixture {
	t.Helper()
	ctx := context.Background()

	files, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	f := &fixture{
		ledger: ledgerrepo.NewMemoryLedgerRepository(),
		userID: uuid.New(),
	}
	f.txs = txservice.NewService(txrepo.NewMemoryTransactionRepository(), allUsers{}, f.ledger, currency, discardLogger())
	f.goals = goalservice.NewService(goalrepo.NewMemoryGoalRepository(), currency, discardLogger())
	f.svc = NewService(repository.NewMemoryReportRepository(), f.txs, f.goals, f.ledger, files, discardLogger())

	checking := &ledgerrepo.Account{UserID: f.userID, Name: "Checking", CurrencyCode: currency}
	savings := &ledgerrepo.Account{UserID: f.userID, Name: "Savings", CurrencyCode: currency}
	groceries := &ledgerrepo.Category{UserID: f.userID, Name: "Groceries", Kind: ledgerrepo.CategoryKindExpense}
	salary := &ledgerrepo.Category{UserID: f.userID, Name: "Salary", Kind: ledgerrepo.CategoryKindIncome}
	require.NoError(t, f.ledger.CreateAccount(ctx, checking))
	require.NoError(t, f.ledger.CreateAccount(ctx, savings))
	require.NoError(t, f.ledger.CreateCategory(ctx, groceries))
	require.NoError(t, f.ledger.CreateCategory(ctx, salary))
	f.groceries = groceries.ID

	inputs := []txservice.TransactionInput{
		{Type: txrepo.TypeIncome, AmountMinor: 100000, Description: "Salary", Date: day(2023, 1, 15), AccountID: &checking.ID, CategoryID: &salary.ID},
		{Type: txrepo.TypeExpense, AmountMinor: 20000, Description: "Grocery store", Date: day(2023, 1, 5), AccountID: &checking.ID, CategoryID: &groceries.ID},
		{Type: txrepo.TypeIncome, AmountMinor: 50000, Description: "Freelance project", Date: day(2023, 2, 3), AccountID: &checking.ID},
		{Type: txrepo.TypeIncome, AmountMinor: 200000, Description: "Annual bonus", Date: day(2023, 3, 1), AccountID: &checking.ID, CategoryID: &salary.ID},
		{Type: txrepo.TypeExpense, AmountMinor: 80000, Description: "Rent", Date: day(2023, 2, 1), AccountID: &checking.ID},
		{Type: txrepo.TypeExpense, AmountMinor: 10000, Description: "Utilities", Date: day(2022, 12, 20), AccountID: &checking.ID},
		{Type: txrepo.TypeTransfer, AmountMinor: 50000, Description: "Move to savings", Date: day(2023, 2, 10), FromAccountID: &checking.ID, ToAccountID: &savings.ID},
	}
	for _, in := range inputs {
		_, err := f.txs.Create(ctx, f.userID, in)
		require.NoError(t, err)
	}
	return f
}

func TestGenerate_IncomeVsExpensesRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.Generate(ctx, f.userID, ReportRequest{Type: "income_vs_expenses"})
	require.NoError(t, err)
	assert.Equal(t, "INCOME_VS_EXPENSES", res.Report.Type)
	assert.Equal(t, "json", res.Report.Format)
	assert.Nil(t, res.Report.ExternalURL)

	stored, err := f.svc.GetReport(ctx, f.userID, res.Report.ID)
	require.NoError(t, err)
	decoded, ok := stored.Payload.(*IncomeVsExpensesPayload)
	require.True(t, ok)

	txs, err := f.txs.Query(ctx, f.userID, txrepo.Criteria{})
	require.NoError(t, err)
	want, err := txservice.Aggregate(txs, "EUR", true)
	require.NoError(t, err)

	assert.Equal(t, want.TotalIncome.String(), decoded.Statistics.TotalIncome.String())
	assert.Equal(t, want.TotalExpense.String(), decoded.Statistics.TotalExpense.String())
	assert.Equal(t, want.Net.String(), decoded.Statistics.Net.String())
	assert.Equal(t, want.TransactionCount, decoded.Statistics.TransactionCount)
	assert.Equal(t, "3500.00", decoded.Statistics.TotalIncome.String())
	assert.Equal(t, "1100.00", decoded.Statistics.TotalExpense.String())
	assert.Equal(t, "2400.00", decoded.Statistics.Net.String())
	assert.Equal(t, "68.57", decoded.SavingsRate.StringFixed(2))
	assert.Nil(t, decoded.StartDate)
}

func TestGetReport_DecodesInReportCurrency(t *testing.T) {
	for _, currency := range []string{"USD", "JPY", "KWD"} {
		t.Run(currency, func(t *testing.T) {
			f := newFixtureIn(t, currency)
			ctx := context.Background()

			goal, err := f.goals.CreateGoal(ctx, f.userID, goalservice.GoalInput{Title: "Car", TargetAmountMinor: 350001})
			require.NoError(t, err)
			_, _, err = f.goals.Contribute(ctx, f.userID, goal.ID, 1234, nil)
			require.NoError(t, err)

			for _, typ := range Types {
				res, err := f.svc.Generate(ctx, f.userID, ReportRequest{Type: string(typ), EndDate: ptr(day(2023, 3, 1))})
				require.NoError(t, err, typ)

				stored, err := f.svc.GetReport(ctx, f.userID, res.Report.ID)
				require.NoError(t, err, typ)

				if ive, ok := res.Payload.(*IncomeVsExpensesPayload); ok {
					decoded := stored.Payload.(*IncomeVsExpensesPayload)
					assert.Equal(t, ive.Statistics, decoded.Statistics)
					assert.Equal(t, currency, decoded.Statistics.TotalIncome.Currency())
					assert.Equal(t, int64(350000), decoded.Statistics.TotalIncome.Amount())
					continue
				}
				assert.Equal(t, res.Payload, stored.Payload, typ)
			}
		})
	}
}

func TestGenerate_MonthlySpending(t *testing.T) {
	f := newFixture(t)

	res, err := f.svc.Generate(context.Background(), f.userID, ReportRequest{Type: "MONTHLY_SPENDING"})
	require.NoError(t, err)
	p := res.Payload.(*MonthlySpendingPayload)

	require.Len(t, p.Months, 3)
	assert.Equal(t, "2022-12", p.Months[0].Month)
	assert.Equal(t, "100.00", p.Months[0].TotalExpense.String())
	assert.Equal(t, "2023-01", p.Months[1].Month)
	require.Len(t, p.Months[1].Categories, 1)
	assert.Equal(t, "Groceries", p.Months[1].Categories[0].Name)
	assert.Equal(t, "200.00", p.Months[1].Categories[0].Total.String())
	assert.Equal(t, "800.00", p.Months[2].TotalExpense.String())
}

func TestGenerate_MonthlySpendingZeroFillsRange(t *testing.T) {
	f := newFixture(t)

	res, err := f.svc.Generate(context.Background(), f.userID, ReportRequest{
		Type:      "MONTHLY_SPENDING",
		StartDate: ptr(day(2023, 3, 1)),
		EndDate:   ptr(day(2023, 4, 30)),
	})
	require.NoError(t, err)
	p := res.Payload.(*MonthlySpendingPayload)
	require.Len(t, p.Months, 2)
	for _, m := range p.Months {
		assert.True(t, m.TotalExpense.IsZero())
		assert.Empty(t, m.Categories)
	}
	require.NotNil(t, p.StartDate)
	assert.Equal(t, "2023-03-01", *p.StartDate)
}

func TestGenerate_CashFlow(t *testing.T) {
	f := newFixture(t)

	res, err := f.svc.Generate(context.Background(), f.userID, ReportRequest{
		Type:      "CASH_FLOW",
		StartDate: ptr(day(2023, 1, 1)),
		EndDate:   ptr(day(2023, 1, 31)),
	})
	require.NoError(t, err)
	p := res.Payload.(*CashFlowPayload)

	require.Len(t, p.Days, 31)
	assert.Equal(t, "2023-01-05", p.Days[4].Date)
	assert.Equal(t, "200.00", p.Days[4].Outflow.String())
	assert.Equal(t, "-200.00", p.Days[4].Cumulative.String())
	assert.Equal(t, "1000.00", p.Days[14].Inflow.String())
	assert.Equal(t, "800.00", p.Days[30].Cumulative.String())
}

func TestGenerate_CashFlowDefaultWindow(t *testing.T) {
	f := newFixture(t)

	res, err := f.svc.Generate(context.Background(), f.userID, ReportRequest{Type: "CASH_FLOW", EndDate: ptr(day(2023, 2, 10))})
	require.NoError(t, err)
	p := res.Payload.(*CashFlowPayload)

	require.Len(t, p.Days, DefaultCashFlowDays)
	assert.Equal(t, "2023-01-12", p.StartDate)
	// salary, rent and freelance fall in the window; the transfer does not count
	assert.Equal(t, "700.00", p.Days[len(p.Days)-1].Cumulative.String())
}

func TestGenerate_CategoryTrends(t *testing.T) {
	f := newFixture(t)

	res, err := f.svc.Generate(context.Background(), f.userID, ReportRequest{Type: "CATEGORY_TRENDS"})
	require.NoError(t, err)
	p := res.Payload.(*CategoryTrendsPayload)

	assert.Equal(t, []string{"2022-12", "2023-01", "2023-02"}, p.Months)
	require.Len(t, p.Series, 2)
	assert.Equal(t, "Groceries", p.Series[0].Name)
	assert.Equal(t, "200.00", p.Series[0].Totals[1].String())
	assert.True(t, p.Series[0].Totals[0].IsZero())
	assert.Equal(t, txservice.UncategorizedLabel, p.Series[1].Name)
	assert.Nil(t, p.Series[1].CategoryID)
	assert.Equal(t, "800.00", p.Series[1].Totals[2].String())
}

func TestGenerate_GoalProgress(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	car, err := f.goals.CreateGoal(ctx, f.userID, goalservice.GoalInput{Title: "Car", TargetAmountMinor: 100000})
	require.NoError(t, err)
	_, err = f.goals.CreateGoal(ctx, f.userID, goalservice.GoalInput{Title: "Trip", TargetAmountMinor: 50000})
	require.NoError(t, err)
	_, _, err = f.goals.Contribute(ctx, f.userID, car.ID, 25000, nil)
	require.NoError(t, err)

	all, err := f.svc.Generate(ctx, f.userID, ReportRequest{Type: "GOAL_PROGRESS"})
	require.NoError(t, err)
	assert.Len(t, all.Payload.(*GoalProgressPayload).Goals, 2)

	selected, err := f.svc.Generate(ctx, f.userID, ReportRequest{Type: "GOAL_PROGRESS", GoalIDs: []uuid.UUID{car.ID, car.ID}})
	require.NoError(t, err)
	goals := selected.Payload.(*GoalProgressPayload).Goals
	require.Len(t, goals, 1)
	assert.Equal(t, "Car", goals[0].Title)
	assert.Equal(t, 25.0, goals[0].ProgressPercent)
	assert.Equal(t, "250.00", goals[0].Saved.String())
	assert.Equal(t, "ongoing", goals[0].Status)
}

func TestGenerate_CSVDocument(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.Generate(ctx, f.userID, ReportRequest{Type: "INCOME_VS_EXPENSES", Format: "CSV"})
	require.NoError(t, err)
	require.NotNil(t, res.Report.ExternalURL)
	assert.Equal(t, "/files/"+res.Report.ID.String(), *res.Report.ExternalURL)

	rc, info, err := f.svc.OpenFile(ctx, f.userID, res.Report.ID)
	require.NoError(t, err)
	defer rc.Close()
	assert.Equal(t, "text/csv", info.ContentType)

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	var rows []metricRecord
	require.NoError(t, gocsv.UnmarshalBytes(data, &rows))
	require.NotEmpty(t, rows)
	assert.Equal(t, metricRecord{Metric: "totalIncome", Value: "3500.00"}, rows[0])

	_, _, err = f.svc.OpenFile(ctx, uuid.New(), res.Report.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

// failingReports rejects every write and remembers the last report it saw
type failingReports struct {
	repository.ReportRepository
	last *repository.Report
}

func (f *failingReports) Create(_ context.Context, r *repository.Report) error {
	f.last = r
	return errors.New("connection reset")
}

func TestGenerate_DocumentRemovedWhenReportNotSaved(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	files, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	reports := &failingReports{ReportRepository: repository.NewMemoryReportRepository()}
	svc := NewService(reports, f.txs, f.goals, f.ledger, files, discardLogger())

	_, err = svc.Generate(ctx, f.userID, ReportRequest{Type: "CASH_FLOW", Format: "csv", EndDate: ptr(day(2023, 2, 10))})
	require.Error(t, err)
	require.NotNil(t, reports.last)
	require.NotNil(t, reports.last.ExternalURL)

	_, err = files.GetInfo(ctx, f.userID, reports.last.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestGenerate_XLSXDocument(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.Generate(ctx, f.userID, ReportRequest{Type: "CASH_FLOW", Format: "xlsx",
		StartDate: ptr(day(2023, 1, 1)), EndDate: ptr(day(2023, 1, 7))})
	require.NoError(t, err)

	rc, _, err := f.svc.OpenFile(ctx, f.userID, res.Report.ID)
	require.NoError(t, err)
	defer rc.Close()

	book, err := excelize.OpenReader(rc)
	require.NoError(t, err)
	defer book.Close()
	rows, err := book.GetRows("CASH_FLOW")
	require.NoError(t, err)
	require.Len(t, rows, 8)
	assert.Equal(t, []string{"date", "inflow", "outflow", "net", "cumulative"}, rows[0])
	assert.Equal(t, []string{"2023-01-05", "0.00", "200.00", "-200.00", "-200.00"}, rows[5])

	// the structured payload is stored alongside the document
	var payload CashFlowPayload
	require.NoError(t, json.Unmarshal(res.Report.Payload, &payload))
	assert.Len(t, payload.Days, 7)
}

func TestGenerate_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	foreignCategory := &ledgerrepo.Category{UserID: uuid.New(), Name: "Theirs", Kind: ledgerrepo.CategoryKindExpense}
	require.NoError(t, f.ledger.CreateCategory(ctx, foreignCategory))

	cases := map[string]ReportRequest{
		"unknown type":     {Type: "NET_WORTH"},
		"unknown format":   {Type: "CASH_FLOW", Format: "pdf"},
		"reversed range":   {Type: "MONTHLY_SPENDING", StartDate: ptr(day(2023, 2, 1)), EndDate: ptr(day(2023, 1, 1))},
		"foreign category": {Type: "CATEGORY_TRENDS", CategoryIDs: []uuid.UUID{f.groceries, foreignCategory.ID}},
		"unknown goal":     {Type: "GOAL_PROGRESS", GoalIDs: []uuid.UUID{uuid.New()}},
		"foreign profile":  {Type: "INCOME_VS_EXPENSES", ProfileIDs: []uuid.UUID{uuid.New()}},
		"long cash flow":   {Type: "CASH_FLOW", StartDate: ptr(day(2022, 1, 1)), EndDate: ptr(day(2023, 6, 1))},
		"too many months":  {Type: "CATEGORY_TRENDS", StartDate: ptr(day(1990, 1, 1)), EndDate: ptr(day(2023, 1, 1))},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.Generate(ctx, f.userID, req)
			assert.ErrorIs(t, err, apperrors.ErrValidation)
		})
	}

	reports, err := f.svc.ListReports(ctx, f.userID)
	require.NoError(t, err)
	assert.Empty(t, reports)
}

func TestReports_ScopedToOwner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.Generate(ctx, f.userID, ReportRequest{Type: "CATEGORY_TRENDS", CategoryIDs: []uuid.UUID{f.groceries}})
	require.NoError(t, err)
	require.Len(t, res.Payload.(*CategoryTrendsPayload).Series, 1)

	_, err = f.svc.GetReport(ctx, uuid.New(), res.Report.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	mine, err := f.svc.ListReports(ctx, f.userID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Nil(t, mine[0].Payload)
}

func TestMonthKeys(t *testing.T) {
	months, err := monthKeys(ptr(day(2023, 11, 30)), ptr(day(2024, 2, 1)), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"2023-11", "2023-12", "2024-01", "2024-02"}, months)

	months, err = monthKeys(nil, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, months)

	old := []*txrepo.Transaction{{Date: day(2001, 6, 1)}, {Date: day(2023, 3, 1)}}
	months, err = monthKeys(nil, nil, old)
	require.NoError(t, err)
	require.Len(t, months, MaxMonths)
	assert.Equal(t, "2013-04", months[0])
	assert.Equal(t, "2023-03", months[len(months)-1])

	_, err = monthKeys(ptr(day(2001, 6, 1)), nil, old)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestGenerate_LongHistoryWithoutRangeKeepsRecentMonths(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	acct := &ledgerrepo.Account{UserID: f.userID, Name: "Old", CurrencyCode: "EUR"}
	require.NoError(t, f.ledger.CreateAccount(ctx, acct))
	_, err := f.txs.Create(ctx, f.userID, txservice.TransactionInput{
		Type: txrepo.TypeExpense, AmountMinor: 4200, Description: "Dial-up", Date: day(2005, 2, 1), AccountID: &acct.ID,
	})
	require.NoError(t, err)

	monthly, err := f.svc.Generate(ctx, f.userID, ReportRequest{Type: "MONTHLY_SPENDING"})
	require.NoError(t, err)
	months := monthly.Payload.(*MonthlySpendingPayload).Months
	require.Len(t, months, MaxMonths)
	assert.Equal(t, "2023-02", months[len(months)-1].Month)
	assert.Equal(t, "800.00", months[len(months)-1].TotalExpense.String())

	trends, err := f.svc.Generate(ctx, f.userID, ReportRequest{Type: "CATEGORY_TRENDS"})
	require.NoError(t, err)
	p := trends.Payload.(*CategoryTrendsPayload)
	require.Len(t, p.Months, MaxMonths)
	for _, series := range p.Series {
		for _, total := range series.Totals {
			assert.NotEqual(t, "42.00", total.String())
		}
	}
}
