package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/FACorreiaa/finance-assistant/pkg/apperrors"
	"github.com/FACorreiaa/finance-assistant/pkg/db"
)

const transactionColumns = `id, user_id, profile_id, account_id, from_account_id, to_account_id, category_id,
		type, amount_minor, currency_code, description, date,
		counterparty_name, counterparty_phone, counterparty_status, created_at, updated_at`

// PostgresTransactionRepository implements TransactionRepository using PostgreSQL
type PostgresTransactionRepository struct {
	pool db.Querier
}

// NewPostgresTransactionRepository creates a new PostgreSQL transaction repository
func NewPostgresTransactionRepository(pool db.Querier) *PostgresTransactionRepository {
	return &PostgresTransactionRepository{pool: pool}
}

// Query returns the user's transactions matching c, newest first
func (r *PostgresTransactionRepository) Query(ctx context.Context, userID uuid.UUID, c Criteria) ([]*Transaction, error) {
	query, args := buildQuery(userID, c)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var txs []*Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}
	return txs, nil
}

// buildQuery renders c as a parameterised statement. user_id is always $1.
func buildQuery(userID uuid.UUID, c Criteria) (string, []any) {
	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(transactionColumns)
	sb.WriteString("\n\t\tFROM transactions\n\t\tWHERE user_id = $1")

	args := []any{userID}
	add := func(clause string, v any) {
		args = append(args, v)
		fmt.Fprintf(&sb, " AND "+clause, len(args))
	}

	if c.Type != nil {
		add("type = $%d", string(*c.Type))
	}
	if c.StartDate != nil {
		add("date >= $%d", truncateDay(*c.StartDate))
	}
	if c.EndDate != nil {
		add("date <= $%d", truncateDay(*c.EndDate))
	}
	if c.MinAmountMinor != nil {
		add("amount_minor >= $%d", *c.MinAmountMinor)
	}
	if c.MaxAmountMinor != nil {
		add("amount_minor <= $%d", *c.MaxAmountMinor)
	}
	if s := strings.TrimSpace(c.Search); s != "" {
		add(`description ILIKE '%%' || $%d || '%%' ESCAPE '\'`, escapeLike(s))
	}
	if len(c.CategoryIDs) > 0 {
		add("category_id = ANY($%d)", c.CategoryIDs)
	}
	if len(c.ProfileIDs) > 0 {
		add("profile_id = ANY($%d)", c.ProfileIDs)
	}
	if c.AccountID != nil {
		args = append(args, *c.AccountID)
		n := len(args)
		fmt.Fprintf(&sb, " AND (account_id = $%d OR from_account_id = $%d OR to_account_id = $%d)", n, n, n)
	}

	sb.WriteString("\n\t\tORDER BY date DESC, created_at DESC, id DESC")

	if c.Limit > 0 {
		args = append(args, c.Limit)
		fmt.Fprintf(&sb, "\n\t\tLIMIT $%d", len(args))
	}
	if c.Offset > 0 {
		args = append(args, c.Offset)
		fmt.Fprintf(&sb, " OFFSET $%d", len(args))
	}
	return sb.String(), args
}

// escapeLike makes s match literally inside a LIKE pattern
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// GetByID retrieves a transaction owned by userID
func (r *PostgresTransactionRepository) GetByID(ctx context.Context, userID, id uuid.UUID) (*Transaction, error) {
	query := "SELECT " + transactionColumns + "\n\t\tFROM transactions\n\t\tWHERE id = $1 AND user_id = $2"

	tx, err := scanTransaction(r.pool.QueryRow(ctx, query, id, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFound("transaction")
	}
	if err != nil {
		return nil, err
	}
	return tx, nil
}

// Create inserts a new transaction
func (r *PostgresTransactionRepository) Create(ctx context.Context, tx *Transaction) error {
	if tx.ID == uuid.Nil {
		tx.ID = uuid.New()
	}
	query := `
		INSERT INTO transactions (id, user_id, profile_id, account_id, from_account_id, to_account_id, category_id,
			type, amount_minor, currency_code, description, date,
			counterparty_name, counterparty_phone, counterparty_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING created_at, updated_at`

	err := r.pool.QueryRow(ctx, query,
		tx.ID,
		tx.UserID,
		tx.ProfileID,
		tx.AccountID,
		tx.FromAccountID,
		tx.ToAccountID,
		tx.CategoryID,
		string(tx.Type),
		tx.AmountMinor,
		tx.CurrencyCode,
		tx.Description,
		truncateDay(tx.Date),
		tx.CounterpartyName,
		tx.CounterpartyPhone,
		statusArg(tx.CounterpartyStatus),
	).Scan(&tx.CreatedAt, &tx.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

// Update replaces every mutable field of an existing transaction
func (r *PostgresTransactionRepository) Update(ctx context.Context, tx *Transaction) error {
	query := `
		UPDATE transactions
		SET profile_id = $3, account_id = $4, from_account_id = $5, to_account_id = $6, category_id = $7,
			type = $8, amount_minor = $9, currency_code = $10, description = $11, date = $12,
			counterparty_name = $13, counterparty_phone = $14, counterparty_status = $15
		WHERE id = $1 AND user_id = $2
		RETURNING created_at, updated_at`

	err := r.pool.QueryRow(ctx, query,
		tx.ID,
		tx.UserID,
		tx.ProfileID,
		tx.AccountID,
		tx.FromAccountID,
		tx.ToAccountID,
		tx.CategoryID,
		string(tx.Type),
		tx.AmountMinor,
		tx.CurrencyCode,
		tx.Description,
		truncateDay(tx.Date),
		tx.CounterpartyName,
		tx.CounterpartyPhone,
		statusArg(tx.CounterpartyStatus),
	).Scan(&tx.CreatedAt, &tx.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NotFound("transaction")
	}
	if err != nil {
		return fmt.Errorf("failed to update transaction: %w", err)
	}
	return nil
}

// Delete removes a transaction owned by userID
func (r *PostgresTransactionRepository) Delete(ctx context.Context, userID, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM transactions WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.NotFound("transaction")
	}
	return nil
}

func scanTransaction(row pgx.Row) (*Transaction, error) {
	tx := &Transaction{}
	var txType string
	var status *string
	err := row.Scan(
		&tx.ID,
		&tx.UserID,
		&tx.ProfileID,
		&tx.AccountID,
		&tx.FromAccountID,
		&tx.ToAccountID,
		&tx.CategoryID,
		&txType,
		&tx.AmountMinor,
		&tx.CurrencyCode,
		&tx.Description,
		&tx.Date,
		&tx.CounterpartyName,
		&tx.CounterpartyPhone,
		&status,
		&tx.CreatedAt,
		&tx.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan transaction: %w", err)
	}
	tx.Type = TransactionType(txType)
	if status != nil {
		s := CounterpartyStatus(*status)
		tx.CounterpartyStatus = &s
	}
	return tx, nil
}

func statusArg(s *CounterpartyStatus) *string {
	if s == nil {
		return nil
	}
	v := string(*s)
	return &v
}

var _ TransactionRepository = (*PostgresTransactionRepository)(nil)
