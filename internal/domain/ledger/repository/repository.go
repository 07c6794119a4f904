// Package repository provides database operations for the reference data a
// user's transactions point at: profiles, accounts and categories.
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// CategoryKind says which transaction type a category groups
type CategoryKind string

const (
	CategoryKindIncome  CategoryKind = "income"
	CategoryKindExpense CategoryKind = "expense"
)

// Valid reports whether k is a known kind
func (k CategoryKind) Valid() bool {
	return k == CategoryKindIncome || k == CategoryKindExpense
}

// Profile groups transactions inside one user (e.g. personal, household)
type Profile struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"-"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// Account is a place money lives in
type Account struct {
	ID           uuid.UUID  `json:"id"`
	UserID       uuid.UUID  `json:"-"`
	ProfileID    *uuid.UUID `json:"profileId,omitempty"`
	Name         string     `json:"name"`
	Type         string     `json:"type"`
	CurrencyCode string     `json:"currency"`
	CreatedAt    time.Time  `json:"createdAt"`
}

// Category labels income or expense transactions
type Category struct {
	ID        uuid.UUID    `json:"id"`
	UserID    uuid.UUID    `json:"-"`
	Name      string       `json:"name"`
	Kind      CategoryKind `json:"kind"`
	CreatedAt time.Time    `json:"createdAt"`
}

// LedgerRepository defines persistence for profiles, accounts and categories.
// The *Owned checks return true only if every id exists and belongs to userID.
type LedgerRepository interface {
	CreateProfile(ctx context.Context, p *Profile) error
	ListProfiles(ctx context.Context, userID uuid.UUID) ([]*Profile, error)
	ProfilesOwned(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) (bool, error)

	CreateAccount(ctx context.Context, a *Account) error
	ListAccounts(ctx context.Context, userID uuid.UUID) ([]*Account, error)
	AccountsOwned(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) (bool, error)

	CreateCategory(ctx context.Context, c *Category) error
	ListCategories(ctx context.Context, userID uuid.UUID) ([]*Category, error)
	CategoriesOwned(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) (bool, error)
}

// Dedupe returns ids without duplicates or nil values, preserving order
func Dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
