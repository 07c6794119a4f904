package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	goalrepo "github.com/FACorreiaa/finance-assistant/internal/domain/goals/repository"
	ledgerrepo "github.com/FACorreiaa/finance-assistant/internal/domain/ledger/repository"
	txrepo "github.com/FACorreiaa/finance-assistant/internal/domain/transactions/repository"
	txservice "github.com/FACorreiaa/finance-assistant/internal/domain/transactions/service"
	"github.com/FACorreiaa/finance-assistant/pkg/money"
)

// statsWindowDays is the span of the snapshot's recent statistics, today included
const statsWindowDays = 30

// TransactionSource is the read side of the transactions service
type TransactionSource interface {
	Query(ctx context.Context, userID uuid.UUID, c txrepo.Criteria) ([]*txrepo.Transaction, error)
	Statistics(ctx context.Context, userID uuid.UUID, c txrepo.Criteria, withBreakdown bool) (*txservice.StatisticsResult, error)
	Currency() string
}

// GoalSource lists a user's goals
type GoalSource interface {
	ListGoals(ctx context.Context, userID uuid.UUID, status *goalrepo.GoalStatus) ([]*goalrepo.Goal, error)
}

// CategorySource lists a user's categories
type CategorySource interface {
	ListCategories(ctx context.Context, userID uuid.UUID) ([]*ledgerrepo.Category, error)
}

// Snapshot is the bounded bundle of user data that grounds a model request
type Snapshot struct {
	GeneratedAt  time.Time                   `json:"generatedAt"`
	Currency     string                      `json:"currency"`
	Last30Days   *txservice.StatisticsResult `json:"last30Days"`
	Transactions []SnapshotTransaction       `json:"transactions"`
	Goals        []SnapshotGoal              `json:"goals"`
	Categories   []SnapshotCategory          `json:"categories"`
	Truncated    bool                        `json:"truncated"`
}

type SnapshotTransaction struct {
	Date         string       `json:"date"`
	Type         string       `json:"type"`
	Amount       *money.Money `json:"amount"`
	Description  string       `json:"description,omitempty"`
	Category     string       `json:"category,omitempty"`
	Counterparty string       `json:"counterparty,omitempty"`
}

type SnapshotGoal struct {
	Title    string       `json:"title"`
	Target   *money.Money `json:"target"`
	Saved    *money.Money `json:"saved"`
	Deadline string       `json:"deadline,omitempty"`
}

type SnapshotCategory struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
}

// Encode serializes the snapshot as stored and sent to the model
func (s *Snapshot) Encode() ([]byte, error) {
	return json.Marshal(s)
}

// ContextBuilder assembles size-bounded snapshots. It only reads from the store.
type ContextBuilder struct {
	transactions TransactionSource
	goals        GoalSource
	categories   CategorySource
	txLimit      int
	maxBytes     int
	now          func() time.Time
}

// NewContextBuilder creates a builder that keeps at most txLimit recent
// transactions and maxBytes of encoded snapshot.
func NewContextBuilder(transactions TransactionSource, goals GoalSource, categories CategorySource, txLimit, maxBytes int) *ContextBuilder {
	return &ContextBuilder{
		transactions: transactions,
		goals:        goals,
		categories:   categories,
		txLimit:      txLimit,
		maxBytes:     maxBytes,
		now:          time.Now,
	}
}

// Build gathers recent transactions, ongoing goals, categories and the last
// 30 days of statistics for userID, then trims the snapshot to the size bound.
func (b *ContextBuilder) Build(ctx context.Context, userID uuid.UUID) (*Snapshot, error) {
	now := b.now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	txs, err := b.transactions.Query(ctx, userID, txrepo.Criteria{Limit: b.txLimit})
	if err != nil {
		return nil, fmt.Errorf("load recent transactions: %w", err)
	}

	from := today.AddDate(0, 0, -(statsWindowDays - 1))
	stats, err := b.transactions.Statistics(ctx, userID, txrepo.Criteria{StartDate: &from, EndDate: &today}, true)
	if err != nil {
		return nil, fmt.Errorf("load recent statistics: %w", err)
	}

	ongoing := goalrepo.GoalStatusOngoing
	goals, err := b.goals.ListGoals(ctx, userID, &ongoing)
	if err != nil {
		return nil, fmt.Errorf("load goals: %w", err)
	}

	categories, err := b.categories.ListCategories(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load categories: %w", err)
	}
	names := make(map[uuid.UUID]string, len(categories))
	for _, c := range categories {
		names[c.ID] = c.Name
	}

	snap := &Snapshot{
		GeneratedAt:  now,
		Currency:     b.transactions.Currency(),
		Last30Days:   stats,
		Transactions: make([]SnapshotTransaction, 0, len(txs)),
		Goals:        make([]SnapshotGoal, 0, len(goals)),
		Categories:   make([]SnapshotCategory, 0, len(categories)),
	}
	for _, tx := range txs {
		st := SnapshotTransaction{
			Date:        tx.Date.Format("2006-01-02"),
			Type:        string(tx.Type),
			Amount:      money.New(tx.AmountMinor, tx.CurrencyCode),
			Description: tx.Description,
		}
		if tx.CategoryID != nil {
			st.Category = names[*tx.CategoryID]
		}
		if tx.CounterpartyName != nil {
			st.Counterparty = *tx.CounterpartyName
		}
		snap.Transactions = append(snap.Transactions, st)
	}
	for _, g := range goals {
		sg := SnapshotGoal{
			Title:  g.Title,
			Target: money.New(g.TargetAmountMinor, g.CurrencyCode),
			Saved:  money.New(g.SavedAmountMinor, g.CurrencyCode),
		}
		if g.Deadline != nil {
			sg.Deadline = g.Deadline.Format("2006-01-02")
		}
		snap.Goals = append(snap.Goals, sg)
	}
	for _, c := range categories {
		snap.Categories = append(snap.Categories, SnapshotCategory{Name: c.Name, Kind: string(c.Kind)})
	}

	if err := b.fit(snap); err != nil {
		return nil, err
	}
	return snap, nil
}

// fit drops the oldest transactions first, then goals, then categories, then
// the category breakdown until the encoding fits maxBytes.
func (b *ContextBuilder) fit(snap *Snapshot) error {
	for {
		encoded, err := snap.Encode()
		if err != nil {
			return fmt.Errorf("encode snapshot: %w", err)
		}
		if len(encoded) <= b.maxBytes {
			return nil
		}

		snap.Truncated = true
		switch {
		case len(snap.Transactions) > 0:
			snap.Transactions = snap.Transactions[:len(snap.Transactions)-1]
		case len(snap.Goals) > 0:
			snap.Goals = snap.Goals[:len(snap.Goals)-1]
		case len(snap.Categories) > 0:
			snap.Categories = snap.Categories[:len(snap.Categories)-1]
		case snap.Last30Days != nil && len(snap.Last30Days.CategoryBreakdown) > 0:
			snap.Last30Days.CategoryBreakdown = snap.Last30Days.CategoryBreakdown[:len(snap.Last30Days.CategoryBreakdown)-1]
		default:
			// totals alone always fit the configured minimum
			return nil
		}
	}
}
