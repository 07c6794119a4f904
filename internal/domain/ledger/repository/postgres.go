package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/FACorreiaa/finance-assistant/pkg/db"
)

// PostgresLedgerRepository implements LedgerRepository using PostgreSQL
type PostgresLedgerRepository struct {
	pool db.Querier
}

// NewPostgresLedgerRepository creates a new PostgreSQL ledger repository
func NewPostgresLedgerRepository(pool db.Querier) *PostgresLedgerRepository {
	return &PostgresLedgerRepository{pool: pool}
}

// CreateProfile inserts a profile
func (r *PostgresLedgerRepository) CreateProfile(ctx context.Context, p *Profile) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	query := `INSERT INTO profiles (id, user_id, name) VALUES ($1, $2, $3) RETURNING created_at`
	if err := r.pool.QueryRow(ctx, query, p.ID, p.UserID, p.Name).Scan(&p.CreatedAt); err != nil {
		return fmt.Errorf("failed to create profile: %w", err)
	}
	return nil
}

// ListProfiles returns a user's profiles by name
func (r *PostgresLedgerRepository) ListProfiles(ctx context.Context, userID uuid.UUID) ([]*Profile, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, name, created_at
		FROM profiles
		WHERE user_id = $1
		ORDER BY name, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	defer rows.Close()

	var profiles []*Profile
	for rows.Next() {
		p := &Profile{}
		if err := rows.Scan(&p.ID, &p.UserID, &p.Name, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

// ProfilesOwned checks that every id is a profile of userID
func (r *PostgresLedgerRepository) ProfilesOwned(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) (bool, error) {
	return r.owned(ctx, "profiles", userID, ids)
}

// CreateAccount inserts an account
func (r *PostgresLedgerRepository) CreateAccount(ctx context.Context, a *Account) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.Type == "" {
		a.Type = "checking"
	}
	query := `
		INSERT INTO accounts (id, user_id, profile_id, name, type, currency_code)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`
	err := r.pool.QueryRow(ctx, query, a.ID, a.UserID, a.ProfileID, a.Name, a.Type, a.CurrencyCode).Scan(&a.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

// ListAccounts returns a user's accounts by name
func (r *PostgresLedgerRepository) ListAccounts(ctx context.Context, userID uuid.UUID) ([]*Account, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, profile_id, name, type, currency_code, created_at
		FROM accounts
		WHERE user_id = $1
		ORDER BY name, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*Account
	for rows.Next() {
		a := &Account{}
		if err := rows.Scan(&a.ID, &a.UserID, &a.ProfileID, &a.Name, &a.Type, &a.CurrencyCode, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// AccountsOwned checks that every id is an account of userID
func (r *PostgresLedgerRepository) AccountsOwned(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) (bool, error) {
	return r.owned(ctx, "accounts", userID, ids)
}

// CreateCategory inserts a category
func (r *PostgresLedgerRepository) CreateCategory(ctx context.Context, c *Category) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	query := `
		INSERT INTO categories (id, user_id, name, kind)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, name, kind) DO UPDATE SET name = EXCLUDED.name
		RETURNING id, created_at`
	if err := r.pool.QueryRow(ctx, query, c.ID, c.UserID, c.Name, string(c.Kind)).Scan(&c.ID, &c.CreatedAt); err != nil {
		return fmt.Errorf("failed to create category: %w", err)
	}
	return nil
}

// ListCategories returns a user's categories grouped by kind
func (r *PostgresLedgerRepository) ListCategories(ctx context.Context, userID uuid.UUID) ([]*Category, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, name, kind, created_at
		FROM categories
		WHERE user_id = $1
		ORDER BY kind, name, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	var categories []*Category
	for rows.Next() {
		c := &Category{}
		var kind string
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &kind, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		c.Kind = CategoryKind(kind)
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// CategoriesOwned checks that every id is a category of userID
func (r *PostgresLedgerRepository) CategoriesOwned(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) (bool, error) {
	return r.owned(ctx, "categories", userID, ids)
}

// owned counts matching rows; table is always one of the constants above.
func (r *PostgresLedgerRepository) owned(ctx context.Context, table string, userID uuid.UUID, ids []uuid.UUID) (bool, error) {
	ids = Dedupe(ids)
	if len(ids) == 0 {
		return true, nil
	}

	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE user_id = $1 AND id = ANY($2)`, table)
	var n int
	if err := r.pool.QueryRow(ctx, query, userID, ids).Scan(&n); err != nil {
		return false, fmt.Errorf("failed to check %s ownership: %w", table, err)
	}
	return n == len(ids), nil
}
