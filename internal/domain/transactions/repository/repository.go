// Package repository provides database operations for transactions.
package repository

import (
	"bytes"
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TransactionType classifies money movement
type TransactionType string

const (
	TypeIncome    TransactionType = "income"
	TypeExpense   TransactionType = "expense"
	TypeTransfer  TransactionType = "transfer"
	TypeDebtGive  TransactionType = "debt_give"
	TypeDebtRepay TransactionType = "debt_repay"
)

// Types lists every known transaction type
var Types = []TransactionType{TypeIncome, TypeExpense, TypeTransfer, TypeDebtGive, TypeDebtRepay}

// Valid reports whether t is a known type
func (t TransactionType) Valid() bool {
	switch t {
	case TypeIncome, TypeExpense, TypeTransfer, TypeDebtGive, TypeDebtRepay:
		return true
	}
	return false
}

// IsDebt reports whether t records lending or repayment
func (t TransactionType) IsDebt() bool {
	return t == TypeDebtGive || t == TypeDebtRepay
}

// CounterpartyStatus tracks whether a debt is still open
type CounterpartyStatus string

const (
	CounterpartyOpen    CounterpartyStatus = "open"
	CounterpartySettled CounterpartyStatus = "settled"
)

// Transaction is a single money movement owned by one user.
// Amounts are positive minor units; Date has day precision (midnight UTC).
type Transaction struct {
	ID                 uuid.UUID
	UserID             uuid.UUID
	ProfileID          *uuid.UUID
	AccountID          *uuid.UUID
	FromAccountID      *uuid.UUID
	ToAccountID        *uuid.UUID
	CategoryID         *uuid.UUID
	Type               TransactionType
	AmountMinor        int64
	CurrencyCode       string
	Description        string
	Date               time.Time
	CounterpartyName   *string
	CounterpartyPhone  *string
	CounterpartyStatus *CounterpartyStatus
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Criteria narrows a query. Nil or empty fields are not applied; the rest combine with AND.
// Limit 0 means no limit.
type Criteria struct {
	Type           *TransactionType
	StartDate      *time.Time
	EndDate        *time.Time
	MinAmountMinor *int64
	MaxAmountMinor *int64
	Search         string
	CategoryIDs    []uuid.UUID
	ProfileIDs     []uuid.UUID
	AccountID      *uuid.UUID
	Limit          int
	Offset         int
}

// Matches reports whether tx satisfies every filter in c. Paging is ignored.
func (c Criteria) Matches(tx *Transaction) bool {
	if c.Type != nil && tx.Type != *c.Type {
		return false
	}
	day := truncateDay(tx.Date)
	if c.StartDate != nil && day.Before(truncateDay(*c.StartDate)) {
		return false
	}
	if c.EndDate != nil && day.After(truncateDay(*c.EndDate)) {
		return false
	}
	if c.MinAmountMinor != nil && tx.AmountMinor < *c.MinAmountMinor {
		return false
	}
	if c.MaxAmountMinor != nil && tx.AmountMinor > *c.MaxAmountMinor {
		return false
	}
	if s := strings.TrimSpace(c.Search); s != "" &&
		!strings.Contains(strings.ToLower(tx.Description), strings.ToLower(s)) {
		return false
	}
	if len(c.CategoryIDs) > 0 && !containsID(c.CategoryIDs, tx.CategoryID) {
		return false
	}
	if len(c.ProfileIDs) > 0 && !containsID(c.ProfileIDs, tx.ProfileID) {
		return false
	}
	if c.AccountID != nil && !touchesAccount(tx, *c.AccountID) {
		return false
	}
	return true
}

// Less orders transactions newest first: date, then creation time, then id, all descending.
func Less(a, b *Transaction) bool {
	da, db := truncateDay(a.Date), truncateDay(b.Date)
	if !da.Equal(db) {
		return da.After(db)
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return bytes.Compare(a.ID[:], b.ID[:]) > 0
}

// TransactionRepository defines transaction persistence. Every method is scoped to userID.
type TransactionRepository interface {
	Query(ctx context.Context, userID uuid.UUID, c Criteria) ([]*Transaction, error)
	GetByID(ctx context.Context, userID, id uuid.UUID) (*Transaction, error)
	Create(ctx context.Context, tx *Transaction) error
	Update(ctx context.Context, tx *Transaction) error
	Delete(ctx context.Context, userID, id uuid.UUID) error
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func containsID(ids []uuid.UUID, id *uuid.UUID) bool {
	if id == nil {
		return false
	}
	for _, candidate := range ids {
		if candidate == *id {
			return true
		}
	}
	return false
}

func touchesAccount(tx *Transaction, accountID uuid.UUID) bool {
	for _, id := range []*uuid.UUID{tx.AccountID, tx.FromAccountID, tx.ToAccountID} {
		if id != nil && *id == accountID {
			return true
		}
	}
	return false
}
