// Package service implements the report generator. Spending, income and
// category reports reuse the statistics aggregator; goal reports read goals.
package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	goalrepo "github.com/FACorreiaa/finance-assistant/internal/domain/goals/repository"
	goalservice "github.com/FACorreiaa/finance-assistant/internal/domain/goals/service"
	ledgerrepo "github.com/FACorreiaa/finance-assistant/internal/domain/ledger/repository"
	"github.com/FACorreiaa/finance-assistant/internal/domain/reports/repository"
	txrepo "github.com/FACorreiaa/finance-assistant/internal/domain/transactions/repository"
	txservice "github.com/FACorreiaa/finance-assistant/internal/domain/transactions/service"
	"github.com/FACorreiaa/finance-assistant/pkg/apperrors"
	"github.com/FACorreiaa/finance-assistant/pkg/money"
	"github.com/FACorreiaa/finance-assistant/pkg/storage"
)

const (
	dateLayout  = "2006-01-02"
	monthLayout = "2006-01"

	// DefaultCashFlowDays is the cash flow window when no start date is given
	DefaultCashFlowDays = 30
	MaxCashFlowDays     = 366
	MaxMonths           = 120
)

// TransactionSource is the read side of the transactions service
type TransactionSource interface {
	Query(ctx context.Context, userID uuid.UUID, c txrepo.Criteria) ([]*txrepo.Transaction, error)
	Statistics(ctx context.Context, userID uuid.UUID, c txrepo.Criteria, withBreakdown bool) (*txservice.StatisticsResult, error)
	Currency() string
}

// GoalSource reads goals
type GoalSource interface {
	ListGoals(ctx context.Context, userID uuid.UUID, status *goalrepo.GoalStatus) ([]*goalrepo.Goal, error)
	GoalsByID(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) ([]*goalrepo.Goal, error)
}

// Ledger checks and names categories and profiles
type Ledger interface {
	CategoriesOwned(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) (bool, error)
	ProfilesOwned(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) (bool, error)
	ListCategories(ctx context.Context, userID uuid.UUID) ([]*ledgerrepo.Category, error)
}

// ReportRequest selects a report. Dates are inclusive days; ids narrow the data.
type ReportRequest struct {
	Type        string
	StartDate   *time.Time
	EndDate     *time.Time
	CategoryIDs []uuid.UUID
	GoalIDs     []uuid.UUID
	ProfileIDs  []uuid.UUID
	Format      string
}

// Result is a stored report with its decoded payload
type Result struct {
	Report  *repository.Report
	Payload Payload
}

// Service generates, stores and lists reports
type Service struct {
	repo   repository.ReportRepository
	txs    TransactionSource
	goals  GoalSource
	ledger Ledger
	files  storage.Storage
	logger *slog.Logger
	tracer trace.Tracer
	now    func() time.Time
}

// NewService creates a report generator
func NewService(repo repository.ReportRepository, txs TransactionSource, goals GoalSource, ledger Ledger, files storage.Storage, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		txs:    txs,
		goals:  goals,
		ledger: ledger,
		files:  files,
		logger: logger,
		tracer: otel.Tracer("reports/service"),
		now:    time.Now,
	}
}

// Generate validates the request, builds the payload for its type, renders
// the requested format and stores the report.
func (s *Service) Generate(ctx context.Context, userID uuid.UUID, req ReportRequest) (*Result, error) {
	reportType := ReportType(strings.ToUpper(strings.TrimSpace(req.Type)))
	if !reportType.Valid() {
		return nil, apperrors.Validation("unknown report type %q", req.Type)
	}
	format := Format(strings.ToLower(strings.TrimSpace(req.Format)))
	if format == "" {
		format = FormatJSON
	}
	if !format.Valid() {
		return nil, apperrors.Validation("unknown report format %q", req.Format)
	}
	if req.StartDate != nil && req.EndDate != nil && req.StartDate.After(*req.EndDate) {
		return nil, apperrors.Validation("startDate must not be after endDate")
	}

	ctx, span := s.tracer.Start(ctx, "reports.Generate", trace.WithAttributes(
		attribute.String("type", string(reportType)),
		attribute.String("format", string(format)),
	))
	defer span.End()

	req.CategoryIDs = ledgerrepo.Dedupe(req.CategoryIDs)
	req.ProfileIDs = ledgerrepo.Dedupe(req.ProfileIDs)
	req.GoalIDs = ledgerrepo.Dedupe(req.GoalIDs)
	goals, err := s.checkOwnership(ctx, userID, req)
	if err != nil {
		return nil, err
	}

	var payload Payload
	switch reportType {
	case TypeMonthlySpending:
		payload, err = s.monthlySpending(ctx, userID, req)
	case TypeIncomeVsExpenses:
		payload, err = s.incomeVsExpenses(ctx, userID, req)
	case TypeCashFlow:
		payload, err = s.cashFlow(ctx, userID, req)
	case TypeGoalProgress:
		payload, err = s.goalProgress(ctx, userID, goals)
	case TypeCategoryTrends:
		payload, err = s.categoryTrends(ctx, userID, req)
	}
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode report payload: %w", err)
	}
	rep := &repository.Report{
		ID:      uuid.New(),
		UserID:  userID,
		Type:    string(reportType),
		Format:  string(format),
		Payload: data,
	}

	if format != FormatJSON {
		if err := s.storeDocument(ctx, rep, payload, format); err != nil {
			return nil, err
		}
	}
	if err := s.repo.Create(ctx, rep); err != nil {
		if rep.ExternalURL != nil {
			if delErr := s.files.Delete(ctx, userID, rep.ID); delErr != nil {
				s.logger.WarnContext(ctx, "failed to remove orphaned report document",
					slog.String("report_id", rep.ID.String()),
					slog.Any("error", delErr),
				)
			}
		}
		return nil, err
	}

	s.logger.InfoContext(ctx, "report generated",
		slog.String("user_id", userID.String()),
		slog.String("report_id", rep.ID.String()),
		slog.String("type", rep.Type),
		slog.String("format", rep.Format),
	)
	return &Result{Report: rep, Payload: payload}, nil
}

// checkOwnership rejects ids the user does not own and returns the goals the report covers
func (s *Service) checkOwnership(ctx context.Context, userID uuid.UUID, req ReportRequest) ([]*goalrepo.Goal, error) {
	if len(req.CategoryIDs) > 0 {
		ok, err := s.ledger.CategoriesOwned(ctx, userID, req.CategoryIDs)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, apperrors.Validation("categoryIds must belong to the user")
		}
	}
	if len(req.ProfileIDs) > 0 {
		ok, err := s.ledger.ProfilesOwned(ctx, userID, req.ProfileIDs)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, apperrors.Validation("profileIds must belong to the user")
		}
	}
	if len(req.GoalIDs) > 0 {
		return s.goals.GoalsByID(ctx, userID, req.GoalIDs)
	}
	return nil, nil
}

func (s *Service) storeDocument(ctx context.Context, rep *repository.Report, payload Payload, format Format) error {
	var doc []byte
	var err error
	switch format {
	case FormatCSV:
		doc, err = renderCSV(payload)
	case FormatXLSX:
		doc, err = renderXLSX(payload)
	}
	if err != nil {
		return err
	}

	filename := fmt.Sprintf("%s-%s.%s", strings.ToLower(rep.Type), s.now().UTC().Format(dateLayout), format)
	if _, err := s.files.Save(ctx, rep.UserID, rep.ID, filename, format.contentType(), bytes.NewReader(doc)); err != nil {
		return fmt.Errorf("store report document: %w", err)
	}
	url := "/files/" + rep.ID.String()
	rep.ExternalURL = &url
	return nil
}

func baseCriteria(req ReportRequest) txrepo.Criteria {
	return txrepo.Criteria{
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		CategoryIDs: req.CategoryIDs,
		ProfileIDs:  req.ProfileIDs,
	}
}

func formatDatePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(dateLayout)
	return &s
}

func (s *Service) categoryNames(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]string, error) {
	categories, err := s.ledger.ListCategories(ctx, userID)
	if err != nil {
		return nil, err
	}
	names := make(map[uuid.UUID]string, len(categories))
	for _, c := range categories {
		names[c.ID] = c.Name
	}
	return names, nil
}

func (s *Service) expenses(ctx context.Context, userID uuid.UUID, req ReportRequest) ([]*txrepo.Transaction, error) {
	c := baseCriteria(req)
	expense := txrepo.TypeExpense
	c.Type = &expense
	return s.txs.Query(ctx, userID, c)
}

func (s *Service) monthlySpending(ctx context.Context, userID uuid.UUID, req ReportRequest) (Payload, error) {
	txs, err := s.expenses(ctx, userID, req)
	if err != nil {
		return nil, err
	}
	months, err := monthKeys(req.StartDate, req.EndDate, txs)
	if err != nil {
		return nil, err
	}
	names, err := s.categoryNames(ctx, userID)
	if err != nil {
		return nil, err
	}

	byMonth := make(map[string][]*txrepo.Transaction)
	for _, tx := range txs {
		key := tx.Date.Format(monthLayout)
		byMonth[key] = append(byMonth[key], tx)
	}

	currency := s.txs.Currency()
	p := &MonthlySpendingPayload{
		StartDate: formatDatePtr(req.StartDate),
		EndDate:   formatDatePtr(req.EndDate),
		Currency:  money.Zero(currency).Currency(),
		Months:    make([]MonthSpending, 0, len(months)),
	}
	for _, month := range months {
		stats, err := txservice.Aggregate(byMonth[month], currency, true)
		if err != nil {
			return nil, err
		}
		categories := stats.CategoryBreakdown
		if categories == nil {
			categories = []txservice.CategoryTotal{}
		}
		for i := range categories {
			if categories[i].CategoryID != nil {
				if name, ok := names[*categories[i].CategoryID]; ok {
					categories[i].Name = name
				}
			}
		}
		p.Months = append(p.Months, MonthSpending{
			Month:            month,
			TotalExpense:     stats.TotalExpense,
			TransactionCount: stats.TransactionCount,
			Categories:       categories,
		})
	}
	return p, nil
}

func (s *Service) incomeVsExpenses(ctx context.Context, userID uuid.UUID, req ReportRequest) (Payload, error) {
	stats, err := s.txs.Statistics(ctx, userID, baseCriteria(req), true)
	if err != nil {
		return nil, err
	}
	p := &IncomeVsExpensesPayload{
		StartDate:  formatDatePtr(req.StartDate),
		EndDate:    formatDatePtr(req.EndDate),
		Statistics: stats,
	}
	if stats.TotalIncome.IsPositive() {
		p.SavingsRate = stats.Net.PercentageOf(stats.TotalIncome)
	}
	return p, nil
}

func (s *Service) cashFlow(ctx context.Context, userID uuid.UUID, req ReportRequest) (Payload, error) {
	now := s.now().UTC()
	end := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if req.EndDate != nil {
		end = *req.EndDate
	}
	start := end.AddDate(0, 0, -(DefaultCashFlowDays - 1))
	if req.StartDate != nil {
		start = *req.StartDate
	}
	if start.After(end) {
		return nil, apperrors.Validation("startDate must not be after endDate")
	}
	days := int(end.Sub(start).Hours()/24) + 1
	if days > MaxCashFlowDays {
		return nil, apperrors.Validation("cash flow window must be at most %d days", MaxCashFlowDays)
	}

	c := baseCriteria(req)
	c.StartDate, c.EndDate = &start, &end
	txs, err := s.txs.Query(ctx, userID, c)
	if err != nil {
		return nil, err
	}

	inflow := make(map[string]int64)
	outflow := make(map[string]int64)
	for _, tx := range txs {
		key := tx.Date.Format(dateLayout)
		switch tx.Type {
		case txrepo.TypeIncome:
			inflow[key] += tx.AmountMinor
		case txrepo.TypeExpense:
			outflow[key] += tx.AmountMinor
		}
	}

	currency := money.Zero(s.txs.Currency()).Currency()
	p := &CashFlowPayload{
		StartDate: start.Format(dateLayout),
		EndDate:   end.Format(dateLayout),
		Currency:  currency,
		Days:      make([]CashFlowDay, 0, days),
	}
	var cumulative int64
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		key := d.Format(dateLayout)
		net := inflow[key] - outflow[key]
		cumulative += net
		p.Days = append(p.Days, CashFlowDay{
			Date:       key,
			Inflow:     money.New(inflow[key], currency),
			Outflow:    money.New(outflow[key], currency),
			Net:        money.New(net, currency),
			Cumulative: money.New(cumulative, currency),
		})
	}
	return p, nil
}

func (s *Service) goalProgress(ctx context.Context, userID uuid.UUID, selected []*goalrepo.Goal) (Payload, error) {
	goals := selected
	if goals == nil {
		var err error
		if goals, err = s.goals.ListGoals(ctx, userID, nil); err != nil {
			return nil, err
		}
	}

	now := s.now()
	p := &GoalProgressPayload{Goals: make([]GoalProgressEntry, 0, len(goals))}
	for _, g := range goals {
		progress := goalservice.Progress(g, now)
		p.Goals = append(p.Goals, GoalProgressEntry{
			GoalID:          g.ID,
			Title:           g.Title,
			Currency:        money.Zero(g.CurrencyCode).Currency(),
			Target:          money.New(g.TargetAmountMinor, g.CurrencyCode),
			Saved:           money.New(g.SavedAmountMinor, g.CurrencyCode),
			ProgressPercent: progress.ProgressPercent,
			Status:          string(progress.Status),
			Deadline:        formatDatePtr(g.Deadline),
		})
	}
	return p, nil
}

func (s *Service) categoryTrends(ctx context.Context, userID uuid.UUID, req ReportRequest) (Payload, error) {
	txs, err := s.expenses(ctx, userID, req)
	if err != nil {
		return nil, err
	}
	months, err := monthKeys(req.StartDate, req.EndDate, txs)
	if err != nil {
		return nil, err
	}
	names, err := s.categoryNames(ctx, userID)
	if err != nil {
		return nil, err
	}
	monthIndex := make(map[string]int, len(months))
	for i, m := range months {
		monthIndex[m] = i
	}

	totals := make(map[uuid.UUID][]int64)
	for _, id := range req.CategoryIDs {
		totals[id] = make([]int64, len(months))
	}
	for _, tx := range txs {
		idx, ok := monthIndex[tx.Date.Format(monthLayout)]
		if !ok {
			continue
		}
		key := uuid.Nil
		if tx.CategoryID != nil {
			key = *tx.CategoryID
		}
		if totals[key] == nil {
			totals[key] = make([]int64, len(months))
		}
		totals[key][idx] += tx.AmountMinor
	}

	currency := money.Zero(s.txs.Currency()).Currency()
	p := &CategoryTrendsPayload{
		StartDate: formatDatePtr(req.StartDate),
		EndDate:   formatDatePtr(req.EndDate),
		Currency:  currency,
		Months:    months,
		Series:    make([]CategorySeries, 0, len(totals)),
	}
	for id, series := range totals {
		cs := CategorySeries{Name: txservice.UncategorizedLabel, Totals: make([]*money.Money, len(series))}
		if id != uuid.Nil {
			cs.CategoryID = &id
			cs.Name = names[id]
		}
		for i, v := range series {
			cs.Totals[i] = money.New(v, currency)
		}
		p.Series = append(p.Series, cs)
	}
	sort.Slice(p.Series, func(i, j int) bool {
		a, b := p.Series[i], p.Series[j]
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return categoryKey(a.CategoryID) < categoryKey(b.CategoryID)
	})
	return p, nil
}

func categoryKey(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	return id.String()
}

// monthKeys lists every month from start to end as YYYY-MM. A missing end is
// the latest transaction. A missing start is the earliest transaction, kept
// within the last MaxMonths months of the range.
func monthKeys(start, end *time.Time, txs []*txrepo.Transaction) ([]string, error) {
	var from, to time.Time
	if start != nil {
		from = *start
	}
	if end != nil {
		to = *end
	}
	for _, tx := range txs {
		if start == nil && (from.IsZero() || tx.Date.Before(from)) {
			from = tx.Date
		}
		if end == nil && tx.Date.After(to) {
			to = tx.Date
		}
	}
	if from.IsZero() || to.IsZero() || from.After(to) {
		return []string{}, nil
	}

	cur := time.Date(from.Year(), from.Month(), 1, 0, 0, 0, 0, time.UTC)
	last := time.Date(to.Year(), to.Month(), 1, 0, 0, 0, 0, time.UTC)
	if earliest := last.AddDate(0, -(MaxMonths - 1), 0); start == nil && cur.Before(earliest) {
		cur = earliest
	}
	var months []string
	for !cur.After(last) {
		if len(months) == MaxMonths {
			return nil, apperrors.Validation("report range must span at most %d months", MaxMonths)
		}
		months = append(months, cur.Format(monthLayout))
		cur = cur.AddDate(0, 1, 0)
	}
	return months, nil
}

// GetReport returns a stored report owned by userID with its decoded payload
func (s *Service) GetReport(ctx context.Context, userID, id uuid.UUID) (*Result, error) {
	rep, err := s.repo.GetByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	payload, err := DecodePayload(ReportType(rep.Type), rep.Payload)
	if err != nil {
		return nil, err
	}
	return &Result{Report: rep, Payload: payload}, nil
}

// ListReports returns the user's reports without payloads, newest first
func (s *Service) ListReports(ctx context.Context, userID uuid.UUID) ([]*repository.Report, error) {
	return s.repo.ListByUserID(ctx, userID)
}

// OpenFile returns a rendered report document owned by userID
func (s *Service) OpenFile(ctx context.Context, userID, fileID uuid.UUID) (io.ReadCloser, *storage.FileInfo, error) {
	return s.files.Open(ctx, userID, fileID)
}
