package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/FACorreiaa/finance-assistant/pkg/apperrors"
	"github.com/FACorreiaa/finance-assistant/pkg/db"
)

// PostgresGoalRepository implements GoalRepository using PostgreSQL
type PostgresGoalRepository struct {
	pool db.Querier
}

// NewPostgresGoalRepository creates a new PostgreSQL goal repository
func NewPostgresGoalRepository(pool db.Querier) *PostgresGoalRepository {
	return &PostgresGoalRepository{pool: pool}
}

// Create inserts a new goal
func (r *PostgresGoalRepository) Create(ctx context.Context, goal *Goal) error {
	query := `
		INSERT INTO goals (id, user_id, title, target_amount_minor, saved_amount_minor, currency_code, deadline)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at`

	if goal.ID == uuid.Nil {
		goal.ID = uuid.New()
	}

	err := r.pool.QueryRow(ctx, query,
		goal.ID,
		goal.UserID,
		goal.Title,
		goal.TargetAmountMinor,
		goal.SavedAmountMinor,
		goal.CurrencyCode,
		goal.Deadline,
	).Scan(&goal.CreatedAt, &goal.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create goal: %w", err)
	}
	return nil
}

// GetByID retrieves a goal owned by userID
func (r *PostgresGoalRepository) GetByID(ctx context.Context, userID, id uuid.UUID) (*Goal, error) {
	query := `
		SELECT id, user_id, title, target_amount_minor, saved_amount_minor, currency_code, deadline, created_at, updated_at
		FROM goals
		WHERE id = $1 AND user_id = $2`

	goal := &Goal{}
	err := r.pool.QueryRow(ctx, query, id, userID).Scan(
		&goal.ID,
		&goal.UserID,
		&goal.Title,
		&goal.TargetAmountMinor,
		&goal.SavedAmountMinor,
		&goal.CurrencyCode,
		&goal.Deadline,
		&goal.CreatedAt,
		&goal.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFound("goal")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get goal: %w", err)
	}
	return goal, nil
}

// Update updates the title, target and deadline of a goal
func (r *PostgresGoalRepository) Update(ctx context.Context, goal *Goal) error {
	query := `
		UPDATE goals
		SET title = $3, target_amount_minor = $4, deadline = $5
		WHERE id = $1 AND user_id = $2
		RETURNING updated_at`

	err := r.pool.QueryRow(ctx, query,
		goal.ID,
		goal.UserID,
		goal.Title,
		goal.TargetAmountMinor,
		goal.Deadline,
	).Scan(&goal.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NotFound("goal")
	}
	if err != nil {
		return fmt.Errorf("failed to update goal: %w", err)
	}
	return nil
}

// Delete removes a goal
func (r *PostgresGoalRepository) Delete(ctx context.Context, userID, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM goals WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete goal: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.NotFound("goal")
	}
	return nil
}

// ListByUserID retrieves all goals for a user, earliest deadline first
func (r *PostgresGoalRepository) ListByUserID(ctx context.Context, userID uuid.UUID) ([]*Goal, error) {
	query := `
		SELECT id, user_id, title, target_amount_minor, saved_amount_minor, currency_code, deadline, created_at, updated_at
		FROM goals
		WHERE user_id = $1
		ORDER BY deadline ASC NULLS LAST, created_at ASC, id ASC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list goals: %w", err)
	}
	defer rows.Close()

	var goals []*Goal
	for rows.Next() {
		goal := &Goal{}
		err := rows.Scan(
			&goal.ID,
			&goal.UserID,
			&goal.Title,
			&goal.TargetAmountMinor,
			&goal.SavedAmountMinor,
			&goal.CurrencyCode,
			&goal.Deadline,
			&goal.CreatedAt,
			&goal.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan goal: %w", err)
		}
		goals = append(goals, goal)
	}
	return goals, rows.Err()
}

// AddContribution raises the goal's saved amount and records the contribution in one transaction
func (r *PostgresGoalRepository) AddContribution(ctx context.Context, userID uuid.UUID, contribution *GoalContribution) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if contribution.ID == uuid.Nil {
		contribution.ID = uuid.New()
	}
	if contribution.ContributedAt.IsZero() {
		contribution.ContributedAt = time.Now()
	}

	updateQuery := `
		UPDATE goals
		SET saved_amount_minor = saved_amount_minor + $3
		WHERE id = $1 AND user_id = $2`
	result, err := tx.Exec(ctx, updateQuery, contribution.GoalID, userID, contribution.AmountMinor)
	if err != nil {
		return fmt.Errorf("failed to update goal amount: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.NotFound("goal")
	}

	insertQuery := `
		INSERT INTO goal_contributions (id, goal_id, amount_minor, note, contributed_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`
	err = tx.QueryRow(ctx, insertQuery,
		contribution.ID,
		contribution.GoalID,
		contribution.AmountMinor,
		contribution.Note,
		contribution.ContributedAt,
	).Scan(&contribution.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert contribution: %w", err)
	}

	return tx.Commit(ctx)
}

// ListContributions retrieves recent contributions for a goal
func (r *PostgresGoalRepository) ListContributions(ctx context.Context, goalID uuid.UUID, limit int) ([]*GoalContribution, error) {
	query := `
		SELECT id, goal_id, amount_minor, note, contributed_at, created_at
		FROM goal_contributions
		WHERE goal_id = $1
		ORDER BY contributed_at DESC
		LIMIT $2`

	rows, err := r.pool.Query(ctx, query, goalID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list contributions: %w", err)
	}
	defer rows.Close()

	var contributions []*GoalContribution
	for rows.Next() {
		c := &GoalContribution{}
		if err := rows.Scan(&c.ID, &c.GoalID, &c.AmountMinor, &c.Note, &c.ContributedAt, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan contribution: %w", err)
		}
		contributions = append(contributions, c)
	}
	return contributions, rows.Err()
}

var _ GoalRepository = (*PostgresGoalRepository)(nil)
