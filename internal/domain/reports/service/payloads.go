package service

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	txservice "github.com/FACorreiaa/finance-assistant/internal/domain/transactions/service"
	"github.com/FACorreiaa/finance-assistant/pkg/apperrors"
	"github.com/FACorreiaa/finance-assistant/pkg/money"
)

// ReportType selects the aggregation behind a report
type ReportType string

const (
	TypeMonthlySpending  ReportType = "MONTHLY_SPENDING"
	TypeIncomeVsExpenses ReportType = "INCOME_VS_EXPENSES"
	TypeCashFlow         ReportType = "CASH_FLOW"
	TypeGoalProgress     ReportType = "GOAL_PROGRESS"
	TypeCategoryTrends   ReportType = "CATEGORY_TRENDS"
)

// Types lists every supported report type
var Types = []ReportType{TypeMonthlySpending, TypeIncomeVsExpenses, TypeCashFlow, TypeGoalProgress, TypeCategoryTrends}

// Valid reports whether t is a known report type
func (t ReportType) Valid() bool {
	for _, known := range Types {
		if t == known {
			return true
		}
	}
	return false
}

// Payload is the structured data of one report type. Records returns the
// flat rows used by the delimited and spreadsheet renderings.
type Payload interface {
	ReportType() ReportType
	Records() any
	// rebase rereads decoded amounts in the payload's own currency
	rebase() error
}

// MonthlySpendingPayload is expense totals per calendar month
type MonthlySpendingPayload struct {
	StartDate *string         `json:"startDate"`
	EndDate   *string         `json:"endDate"`
	Currency  string          `json:"currency"`
	Months    []MonthSpending `json:"months"`
}

type MonthSpending struct {
	Month            string                    `json:"month"`
	TotalExpense     *money.Money              `json:"totalExpense"`
	TransactionCount int                       `json:"transactionCount"`
	Categories       []txservice.CategoryTotal `json:"categories"`
}

type monthlySpendingRecord struct {
	Month    string `csv:"month"`
	Category string `csv:"category"`
	Total    string `csv:"total"`
	Count    int    `csv:"count"`
}

func (p *MonthlySpendingPayload) ReportType() ReportType { return TypeMonthlySpending }

func (p *MonthlySpendingPayload) rebase() error {
	for _, m := range p.Months {
		if err := rebaseAll(p.Currency, m.TotalExpense); err != nil {
			return err
		}
		if err := rebaseTotals(p.Currency, m.Categories); err != nil {
			return err
		}
	}
	return nil
}

func (p *MonthlySpendingPayload) Records() any {
	rows := []monthlySpendingRecord{}
	for _, m := range p.Months {
		for _, c := range m.Categories {
			rows = append(rows, monthlySpendingRecord{Month: m.Month, Category: c.Name, Total: c.Total.String(), Count: c.Count})
		}
		rows = append(rows, monthlySpendingRecord{Month: m.Month, Category: "TOTAL", Total: m.TotalExpense.String(), Count: m.TransactionCount})
	}
	return rows
}

// IncomeVsExpensesPayload is the statistics over a range plus the savings rate
type IncomeVsExpensesPayload struct {
	StartDate   *string                     `json:"startDate"`
	EndDate     *string                     `json:"endDate"`
	Statistics  *txservice.StatisticsResult `json:"statistics"`
	SavingsRate decimal.Decimal             `json:"savingsRate"`
}

type metricRecord struct {
	Metric string `csv:"metric"`
	Value  string `csv:"value"`
}

func (p *IncomeVsExpensesPayload) ReportType() ReportType { return TypeIncomeVsExpenses }

func (p *IncomeVsExpensesPayload) rebase() error {
	st := p.Statistics
	if st == nil {
		return nil
	}
	if err := rebaseAll(st.Currency, st.TotalIncome, st.TotalExpense, st.Net); err != nil {
		return err
	}
	return rebaseTotals(st.Currency, st.CategoryBreakdown)
}

func (p *IncomeVsExpensesPayload) Records() any {
	return []metricRecord{
		{Metric: "totalIncome", Value: p.Statistics.TotalIncome.String()},
		{Metric: "totalExpense", Value: p.Statistics.TotalExpense.String()},
		{Metric: "net", Value: p.Statistics.Net.String()},
		{Metric: "transactionCount", Value: fmt.Sprint(p.Statistics.TransactionCount)},
		{Metric: "savingsRate", Value: p.SavingsRate.StringFixed(2)},
		{Metric: "currency", Value: p.Statistics.Currency},
	}
}

// CashFlowPayload is daily inflow and outflow over a window
type CashFlowPayload struct {
	StartDate string        `json:"startDate"`
	EndDate   string        `json:"endDate"`
	Currency  string        `json:"currency"`
	Days      []CashFlowDay `json:"days"`
}

type CashFlowDay struct {
	Date       string       `json:"date"`
	Inflow     *money.Money `json:"inflow"`
	Outflow    *money.Money `json:"outflow"`
	Net        *money.Money `json:"net"`
	Cumulative *money.Money `json:"cumulative"`
}

type cashFlowRecord struct {
	Date       string `csv:"date"`
	Inflow     string `csv:"inflow"`
	Outflow    string `csv:"outflow"`
	Net        string `csv:"net"`
	Cumulative string `csv:"cumulative"`
}

func (p *CashFlowPayload) ReportType() ReportType { return TypeCashFlow }

func (p *CashFlowPayload) rebase() error {
	for _, d := range p.Days {
		if err := rebaseAll(p.Currency, d.Inflow, d.Outflow, d.Net, d.Cumulative); err != nil {
			return err
		}
	}
	return nil
}

func (p *CashFlowPayload) Records() any {
	rows := make([]cashFlowRecord, 0, len(p.Days))
	for _, d := range p.Days {
		rows = append(rows, cashFlowRecord{
			Date:       d.Date,
			Inflow:     d.Inflow.String(),
			Outflow:    d.Outflow.String(),
			Net:        d.Net.String(),
			Cumulative: d.Cumulative.String(),
		})
	}
	return rows
}

// GoalProgressPayload lists goals with their progress
type GoalProgressPayload struct {
	Goals []GoalProgressEntry `json:"goals"`
}

type GoalProgressEntry struct {
	GoalID          uuid.UUID    `json:"goalId"`
	Title           string       `json:"title"`
	Currency        string       `json:"currency"`
	Target          *money.Money `json:"target"`
	Saved           *money.Money `json:"saved"`
	ProgressPercent float64      `json:"progressPercent"`
	Status          string       `json:"status"`
	Deadline        *string      `json:"deadline"`
}

type goalRecord struct {
	GoalID          string  `csv:"goal_id"`
	Title           string  `csv:"title"`
	Currency        string  `csv:"currency"`
	Target          string  `csv:"target"`
	Saved           string  `csv:"saved"`
	ProgressPercent float64 `csv:"progress_percent"`
	Status          string  `csv:"status"`
	Deadline        string  `csv:"deadline"`
}

func (p *GoalProgressPayload) ReportType() ReportType { return TypeGoalProgress }

func (p *GoalProgressPayload) rebase() error {
	for _, g := range p.Goals {
		if err := rebaseAll(g.Currency, g.Target, g.Saved); err != nil {
			return err
		}
	}
	return nil
}

func (p *GoalProgressPayload) Records() any {
	rows := make([]goalRecord, 0, len(p.Goals))
	for _, g := range p.Goals {
		r := goalRecord{
			GoalID:          g.GoalID.String(),
			Title:           g.Title,
			Currency:        g.Currency,
			Target:          g.Target.String(),
			Saved:           g.Saved.String(),
			ProgressPercent: g.ProgressPercent,
			Status:          g.Status,
		}
		if g.Deadline != nil {
			r.Deadline = *g.Deadline
		}
		rows = append(rows, r)
	}
	return rows
}

// CategoryTrendsPayload is a monthly expense series per category
type CategoryTrendsPayload struct {
	StartDate *string          `json:"startDate"`
	EndDate   *string          `json:"endDate"`
	Currency  string           `json:"currency"`
	Months    []string         `json:"months"`
	Series    []CategorySeries `json:"series"`
}

type CategorySeries struct {
	CategoryID *uuid.UUID     `json:"categoryId"`
	Name       string         `json:"name"`
	Totals     []*money.Money `json:"totals"`
}

type trendRecord struct {
	Category string `csv:"category"`
	Month    string `csv:"month"`
	Total    string `csv:"total"`
}

func (p *CategoryTrendsPayload) ReportType() ReportType { return TypeCategoryTrends }

func (p *CategoryTrendsPayload) rebase() error {
	for _, series := range p.Series {
		if err := rebaseAll(p.Currency, series.Totals...); err != nil {
			return err
		}
	}
	return nil
}

func (p *CategoryTrendsPayload) Records() any {
	rows := []trendRecord{}
	for _, s := range p.Series {
		for i, month := range p.Months {
			rows = append(rows, trendRecord{Category: s.Name, Month: month, Total: s.Totals[i].String()})
		}
	}
	return rows
}

// DecodePayload parses a stored structured payload back into its variant
func DecodePayload(t ReportType, data []byte) (Payload, error) {
	var p Payload
	switch t {
	case TypeMonthlySpending:
		p = &MonthlySpendingPayload{}
	case TypeIncomeVsExpenses:
		p = &IncomeVsExpensesPayload{}
	case TypeCashFlow:
		p = &CashFlowPayload{}
	case TypeGoalProgress:
		p = &GoalProgressPayload{}
	case TypeCategoryTrends:
		p = &CategoryTrendsPayload{}
	default:
		return nil, apperrors.Validation("unknown report type %q", t)
	}
	if err := json.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", t, err)
	}
	if err := p.rebase(); err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", t, err)
	}
	return p, nil
}

func rebaseAll(currency string, amounts ...*money.Money) error {
	for _, m := range amounts {
		if err := m.Rebase(currency); err != nil {
			return err
		}
	}
	return nil
}

func rebaseTotals(currency string, totals []txservice.CategoryTotal) error {
	for _, t := range totals {
		if err := t.Total.Rebase(currency); err != nil {
			return err
		}
	}
	return nil
}
