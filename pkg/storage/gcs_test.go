package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	gcs "cloud.google.com/go/storage"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/finance-assistant/pkg/apperrors"
)

func TestObjectName(t *testing.T) {
	userID := uuid.MustParse("11111111-1111-1111-1111-111111111111")
	fileID := uuid.MustParse("22222222-2222-2222-2222-222222222222")
	assert.Equal(t, "11111111-1111-1111-1111-111111111111/22222222-2222-2222-2222-222222222222", objectName(userID, fileID))
}

func TestInfoFromAttrs(t *testing.T) {
	fileID := uuid.New()
	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	info := infoFromAttrs(fileID, &gcs.ObjectAttrs{
		Name:        "u/f",
		Size:        42,
		ContentType: "text/csv",
		Metadata:    map[string]string{filenameKey: "cash_flow.csv"},
		Created:     created,
	})
	assert.Equal(t, fileID, info.ID)
	assert.Equal(t, "cash_flow.csv", info.Name)
	assert.Equal(t, int64(42), info.Size)
	assert.Equal(t, "text/csv", info.ContentType)
	assert.Equal(t, created, info.CreatedAt)

	bare := infoFromAttrs(fileID, &gcs.ObjectAttrs{})
	assert.Equal(t, fileID.String(), bare.Name)
}

func TestGCSError(t *testing.T) {
	assert.ErrorIs(t, gcsError(gcs.ErrObjectNotExist), apperrors.ErrNotFound)

	err := gcsError(errors.New("permission denied"))
	assert.NotErrorIs(t, err, apperrors.ErrNotFound)
}

func TestNew_Backends(t *testing.T) {
	ctx := context.Background()

	s, err := New(ctx, Config{LocalPath: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &LocalStorage{}, s)

	_, err = New(ctx, Config{Backend: "ftp"})
	assert.Error(t, err)

	_, err = New(ctx, Config{Backend: BackendGCS})
	assert.Error(t, err)
}
