package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/finance-assistant/internal/domain/ledger/repository"
	"github.com/FACorreiaa/finance-assistant/pkg/interceptors"
)

func authed(r *http.Request, userID uuid.UUID) *http.Request {
	return r.WithContext(interceptors.WithUserID(r.Context(), userID.String()))
}

func TestCreateCategory(t *testing.T) {
	repo := repository.NewMemoryLedgerRepository()
	h := NewLedgerHandler(repo, "EUR")
	userID := uuid.New()

	req := authed(httptest.NewRequest(http.MethodPost, "/categories", strings.NewReader(`{"name":"Groceries","kind":"expense"}`)), userID)
	rec := httptest.NewRecorder()
	h.CreateCategory(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = httptest.NewRecorder()
	h.ListCategories(rec, authed(httptest.NewRequest(http.MethodGet, "/categories", nil), userID))
	var body struct {
		Categories []repository.Category `json:"categories"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Categories, 1)
	assert.Equal(t, "Groceries", body.Categories[0].Name)
}

func TestCreateCategory_BadKind(t *testing.T) {
	h := NewLedgerHandler(repository.NewMemoryLedgerRepository(), "EUR")
	req := authed(httptest.NewRequest(http.MethodPost, "/categories", strings.NewReader(`{"name":"X","kind":"transfer"}`)), uuid.New())
	rec := httptest.NewRecorder()
	h.CreateCategory(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateAccount_ForeignProfile(t *testing.T) {
	repo := repository.NewMemoryLedgerRepository()
	h := NewLedgerHandler(repo, "EUR")

	p := &repository.Profile{UserID: uuid.New(), Name: "someone else"}
	require.NoError(t, repo.CreateProfile(t.Context(), p))

	body := `{"name":"Checking","profileId":"` + p.ID.String() + `"}`
	rec := httptest.NewRecorder()
	h.CreateAccount(rec, authed(httptest.NewRequest(http.MethodPost, "/accounts", strings.NewReader(body)), uuid.New()))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListAccounts_RequiresAuth(t *testing.T) {
	h := NewLedgerHandler(repository.NewMemoryLedgerRepository(), "EUR")
	rec := httptest.NewRecorder()
	h.ListAccounts(rec, httptest.NewRequest(http.MethodGet, "/accounts", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
