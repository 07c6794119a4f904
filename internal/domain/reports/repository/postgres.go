package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/FACorreiaa/finance-assistant/pkg/apperrors"
	"github.com/FACorreiaa/finance-assistant/pkg/db"
)

// PostgresReportRepository implements ReportRepository using PostgreSQL
type PostgresReportRepository struct {
	pool db.Querier
}

// NewPostgresReportRepository creates a new repository
func NewPostgresReportRepository(pool db.Querier) *PostgresReportRepository {
	return &PostgresReportRepository{pool: pool}
}

// Create inserts a report
func (r *PostgresReportRepository) Create(ctx context.Context, rep *Report) error {
	if rep.ID == uuid.Nil {
		rep.ID = uuid.New()
	}
	query := `
		INSERT INTO reports (id, user_id, type, format, payload, external_url)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING generated_at`
	err := r.pool.QueryRow(ctx, query,
		rep.ID,
		rep.UserID,
		rep.Type,
		rep.Format,
		[]byte(rep.Payload),
		rep.ExternalURL,
	).Scan(&rep.GeneratedAt)
	if err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}
	return nil
}

// GetByID retrieves a report owned by userID
func (r *PostgresReportRepository) GetByID(ctx context.Context, userID, id uuid.UUID) (*Report, error) {
	query := `
		SELECT id, user_id, type, format, payload, external_url, generated_at
		FROM reports
		WHERE id = $1 AND user_id = $2`

	rep := &Report{}
	var payload []byte
	err := r.pool.QueryRow(ctx, query, id, userID).Scan(
		&rep.ID, &rep.UserID, &rep.Type, &rep.Format, &payload, &rep.ExternalURL, &rep.GeneratedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFound("report")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get report: %w", err)
	}
	rep.Payload = payload
	return rep, nil
}

// ListByUserID returns report metadata, newest first. Payloads are omitted.
func (r *PostgresReportRepository) ListByUserID(ctx context.Context, userID uuid.UUID) ([]*Report, error) {
	query := `
		SELECT id, user_id, type, format, external_url, generated_at
		FROM reports
		WHERE user_id = $1
		ORDER BY generated_at DESC, id DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	defer rows.Close()

	var out []*Report
	for rows.Next() {
		rep := &Report{}
		if err := rows.Scan(&rep.ID, &rep.UserID, &rep.Type, &rep.Format, &rep.ExternalURL, &rep.GeneratedAt); err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		out = append(out, rep)
	}
	return out, rows.Err()
}

var _ ReportRepository = (*PostgresReportRepository)(nil)
