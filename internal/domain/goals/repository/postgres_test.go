package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/finance-assistant/pkg/apperrors"
)

func TestAddContribution_Commits(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	userID, goalID := uuid.New(), uuid.New()
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE goals\s+SET saved_amount_minor = saved_amount_minor \+ \$3`).
		WithArgs(goalID, userID, int64(2500)).
		WillReturnResult(pgconn.NewCommandTag("UPDATE 1"))
	mock.ExpectQuery(`INSERT INTO goal_contributions`).
		WithArgs(pgxmock.AnyArg(), goalID, int64(2500), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(now))
	mock.ExpectCommit()

	repo := NewPostgresGoalRepository(mock)
	c := &GoalContribution{GoalID: goalID, AmountMinor: 2500}
	require.NoError(t, repo.AddContribution(context.Background(), userID, c))
	assert.Equal(t, now, c.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddContribution_ForeignGoalRollsBack(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	userID, goalID := uuid.New(), uuid.New()
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE goals`).
		WithArgs(goalID, userID, int64(100)).
		WillReturnResult(pgconn.NewCommandTag("UPDATE 0"))
	mock.ExpectRollback()

	err = NewPostgresGoalRepository(mock).AddContribution(context.Background(), userID, &GoalContribution{GoalID: goalID, AmountMinor: 100})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByID_NotOwned(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	userID, id := uuid.New(), uuid.New()
	mock.ExpectQuery(`FROM goals\s+WHERE id = \$1 AND user_id = \$2`).
		WithArgs(id, userID).
		WillReturnError(pgx.ErrNoRows)

	_, err = NewPostgresGoalRepository(mock).GetByID(context.Background(), userID, id)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestGoalStatus(t *testing.T) {
	g := &Goal{TargetAmountMinor: 1000, SavedAmountMinor: 999}
	assert.Equal(t, GoalStatusOngoing, g.Status())
	g.SavedAmountMinor = 1000
	assert.Equal(t, GoalStatusCompleted, g.Status())
	g.SavedAmountMinor = 5000
	assert.Equal(t, GoalStatusCompleted, g.Status())
}
