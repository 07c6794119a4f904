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

func TestGetByID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id := uuid.New()
	now := time.Now()
	mock.ExpectQuery(`SELECT id, email, display_name, currency_code, created_at FROM users`).
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"id", "email", "display_name", "currency_code", "created_at"}).
			AddRow(id, "ana@example.com", "Ana", "EUR", now))

	repo := NewPostgresUserRepository(mock)
	u, err := repo.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", u.Email)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByID_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id := uuid.New()
	mock.ExpectQuery(`SELECT id, email`).WithArgs(id).WillReturnError(pgx.ErrNoRows)

	_, err = NewPostgresUserRepository(mock).GetByID(context.Background(), id)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestExists(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id := uuid.New()
	mock.ExpectQuery(`SELECT EXISTS`).WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))

	ok, err := NewPostgresUserRepository(mock).Exists(context.Background(), id)
	require.NoError(t, err)
	assert.False(t, ok)
}
