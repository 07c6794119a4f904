package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/finance-assistant/pkg/apperrors"
)

func TestCreate_ReturnsGeneratedAt(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	userID := uuid.New()
	now := time.Now()
	payload := []byte(`{"type":"CASH_FLOW"}`)
	mock.ExpectQuery(`INSERT INTO reports`).
		WithArgs(pgxmock.AnyArg(), userID, "CASH_FLOW", "json", payload, pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"generated_at"}).AddRow(now))

	rep := &Report{UserID: userID, Type: "CASH_FLOW", Format: "json", Payload: payload}
	require.NoError(t, NewPostgresReportRepository(mock).Create(context.Background(), rep))
	assert.NotEqual(t, uuid.Nil, rep.ID)
	assert.Equal(t, now, rep.GeneratedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByID_ScopedToOwner(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	userID, id := uuid.New(), uuid.New()
	mock.ExpectQuery(`FROM reports\s+WHERE id = \$1 AND user_id = \$2`).
		WithArgs(id, userID).
		WillReturnError(pgx.ErrNoRows)

	_, err = NewPostgresReportRepository(mock).GetByID(context.Background(), userID, id)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestListByUserID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	userID := uuid.New()
	url := "/files/abc"
	now := time.Now()
	mock.ExpectQuery(`FROM reports\s+WHERE user_id = \$1\s+ORDER BY generated_at DESC`).
		WithArgs(userID).
		WillReturnRows(pgxmock.NewRows([]string{"id", "user_id", "type", "format", "external_url", "generated_at"}).
			AddRow(uuid.New(), userID, "GOAL_PROGRESS", "csv", &url, now).
			AddRow(uuid.New(), userID, "CASH_FLOW", "json", nil, now.Add(-time.Hour)))

	reports, err := NewPostgresReportRepository(mock).ListByUserID(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, reports, 2)
	require.NotNil(t, reports[0].ExternalURL)
	assert.Equal(t, url, *reports[0].ExternalURL)
	assert.Nil(t, reports[1].ExternalURL)
}
