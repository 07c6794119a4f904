package interceptors

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/finance-assistant/pkg/apperrors"
)

func TestParseDate(t *testing.T) {
	want := time.Date(2023, 1, 15, 0, 0, 0, 0, time.UTC)

	got, err := ParseDate("2023-01-15")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	got, err = ParseDate("2023-01-15T18:30:00Z")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = ParseDate("15/01/2023")
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestQueryHelpers(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?startDate=2023-01-01&limit=10&offset=x", nil)

	d, err := QueryDate(req, "startDate")
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, "2023-01-01", FormatDate(*d))

	d, err = QueryDate(req, "endDate")
	require.NoError(t, err)
	assert.Nil(t, d)

	n, err := QueryInt(req, "limit", 50)
	require.NoError(t, err)
	assert.Equal(t, 10, n)

	_, err = QueryInt(req, "offset", 0)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}
