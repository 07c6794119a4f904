package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/FACorreiaa/finance-assistant/internal/domain/transactions/repository"
	"github.com/FACorreiaa/finance-assistant/pkg/money"
)

// UncategorizedLabel names the breakdown bucket for transactions without a category
const UncategorizedLabel = "uncategorized"

// StatisticsResult holds income/expense totals over a transaction set
type StatisticsResult struct {
	TotalIncome       *money.Money    `json:"totalIncome"`
	TotalExpense      *money.Money    `json:"totalExpense"`
	Net               *money.Money    `json:"net"`
	Currency          string          `json:"currency"`
	TransactionCount  int             `json:"transactionCount"`
	CategoryBreakdown []CategoryTotal `json:"categoryBreakdown,omitempty"`
}

// CategoryTotal is one bucket of the category breakdown
type CategoryTotal struct {
	CategoryID *uuid.UUID                 `json:"categoryId"`
	Name       string                     `json:"name"`
	Type       repository.TransactionType `json:"type"`
	Total      *money.Money               `json:"total"`
	Count      int                        `json:"count"`
}

type bucketKey struct {
	category uuid.UUID
	txType   repository.TransactionType
}

// Aggregate totals income and expense transactions in currency. Transfers and
// debts move money without earning or spending it and are skipped. The
// breakdown groups by category and type, largest total first.
func Aggregate(txs []*repository.Transaction, currency string, withBreakdown bool) (*StatisticsResult, error) {
	income := money.Zero(currency)
	expense := money.Zero(currency)
	currency = income.Currency()

	buckets := make(map[bucketKey]*CategoryTotal)
	count := 0

	for _, tx := range txs {
		var target **money.Money
		switch tx.Type {
		case repository.TypeIncome:
			target = &income
		case repository.TypeExpense:
			target = &expense
		default:
			continue
		}

		amount := money.New(tx.AmountMinor, tx.CurrencyCode)
		sum, err := (*target).Add(amount)
		if err != nil {
			return nil, fmt.Errorf("transaction %s: %w", tx.ID, err)
		}
		*target = sum
		count++

		if !withBreakdown {
			continue
		}
		key := bucketKey{txType: tx.Type}
		if tx.CategoryID != nil {
			key.category = *tx.CategoryID
		}
		b, ok := buckets[key]
		if !ok {
			b = &CategoryTotal{Type: tx.Type, Total: money.Zero(currency), Name: UncategorizedLabel}
			if tx.CategoryID != nil {
				id := *tx.CategoryID
				b.CategoryID = &id
				b.Name = ""
			}
			buckets[key] = b
		}
		if b.Total, err = b.Total.Add(amount); err != nil {
			return nil, fmt.Errorf("transaction %s: %w", tx.ID, err)
		}
		b.Count++
	}

	net, err := income.Subtract(expense)
	if err != nil {
		return nil, err
	}

	result := &StatisticsResult{
		TotalIncome:      income,
		TotalExpense:     expense,
		Net:              net,
		Currency:         currency,
		TransactionCount: count,
	}
	if withBreakdown {
		result.CategoryBreakdown = sortedBuckets(buckets)
	}
	return result, nil
}

func sortedBuckets(buckets map[bucketKey]*CategoryTotal) []CategoryTotal {
	out := make([]CategoryTotal, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Total.Compare(out[j].Total); c != 0 {
			return c > 0
		}
		if out[i].Type != out[j].Type {
			return out[i].Type < out[j].Type
		}
		return idString(out[i].CategoryID) < idString(out[j].CategoryID)
	})
	return out
}

func idString(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	return id.String()
}

// Statistics aggregates every transaction matching c. Paging fields are ignored.
func (s *Service) Statistics(ctx context.Context, userID uuid.UUID, c repository.Criteria, withBreakdown bool) (*StatisticsResult, error) {
	ctx, span := s.tracer.Start(ctx, "transactions.Statistics")
	defer span.End()

	c.Limit, c.Offset = 0, 0
	txs, err := s.Query(ctx, userID, c)
	if err != nil {
		return nil, err
	}

	result, err := Aggregate(txs, s.currency, withBreakdown)
	if err != nil {
		return nil, err
	}
	if withBreakdown && len(result.CategoryBreakdown) > 0 {
		if err := s.nameCategories(ctx, userID, result.CategoryBreakdown); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (s *Service) nameCategories(ctx context.Context, userID uuid.UUID, totals []CategoryTotal) error {
	categories, err := s.ledger.ListCategories(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to load category names: %w", err)
	}
	names := make(map[uuid.UUID]string, len(categories))
	for _, c := range categories {
		names[c.ID] = c.Name
	}
	for i := range totals {
		if totals[i].CategoryID != nil {
			totals[i].Name = names[*totals[i].CategoryID]
		}
	}
	return nil
}
