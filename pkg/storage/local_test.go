package storage

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/finance-assistant/pkg/apperrors"
)

func TestLocalStorage_SaveAndOpen(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	userID, fileID := uuid.New(), uuid.New()
	info, err := s.Save(ctx, userID, fileID, "report.csv", "text/csv", strings.NewReader("a,b\n1,2\n"))
	require.NoError(t, err)
	assert.Equal(t, fileID, info.ID)
	assert.Equal(t, int64(8), info.Size)

	rc, got, err := s.Open(ctx, userID, fileID)
	require.NoError(t, err)
	defer rc.Close()

	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "a,b\n1,2\n", string(body))
	assert.Equal(t, "text/csv", got.ContentType)
}

func TestLocalStorage_OtherUserCannotOpen(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	owner, fileID := uuid.New(), uuid.New()
	_, err = s.Save(ctx, owner, fileID, "r.json", "application/json", strings.NewReader("{}"))
	require.NoError(t, err)

	_, _, err = s.Open(ctx, uuid.New(), fileID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestLocalStorage_Delete(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	userID, fileID := uuid.New(), uuid.New()
	_, err = s.Save(ctx, userID, fileID, "x.xlsx", "application/octet-stream", strings.NewReader("data"))
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, userID, fileID))
	_, err = s.GetInfo(ctx, userID, fileID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "__etc_passwd", sanitizeFilename("../etc/passwd"))
	assert.Equal(t, "report_2024.csv", sanitizeFilename("report:2024.csv"))
}
