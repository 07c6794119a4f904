// Package handler exposes profiles, accounts and categories over HTTP.
package handler

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/FACorreiaa/finance-assistant/internal/domain/ledger/repository"
	"github.com/FACorreiaa/finance-assistant/pkg/apperrors"
	"github.com/FACorreiaa/finance-assistant/pkg/interceptors"
)

// LedgerHandler serves the reference data endpoints
type LedgerHandler struct {
	repo            repository.LedgerRepository
	defaultCurrency string
}

// NewLedgerHandler creates a new ledger handler
func NewLedgerHandler(repo repository.LedgerRepository, defaultCurrency string) *LedgerHandler {
	return &LedgerHandler{repo: repo, defaultCurrency: defaultCurrency}
}

type nameRequest struct {
	Name string `json:"name"`
}

type accountRequest struct {
	Name      string     `json:"name"`
	Type      string     `json:"type"`
	Currency  string     `json:"currency"`
	ProfileID *uuid.UUID `json:"profileId"`
}

type categoryRequest struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
}

// ListProfiles handles GET /profiles
func (h *LedgerHandler) ListProfiles(w http.ResponseWriter, r *http.Request) {
	userID, err := interceptors.UserID(r.Context())
	if err != nil {
		interceptors.WriteError(w, r, err)
		return
	}
	profiles, err := h.repo.ListProfiles(r.Context(), userID)
	if err != nil {
		interceptors.WriteError(w, r, err)
		return
	}
	interceptors.WriteJSON(w, http.StatusOK, map[string]any{"profiles": nonNil(profiles)})
}

// CreateProfile handles POST /profiles
func (h *LedgerHandler) CreateProfile(w http.ResponseWriter, r *http.Request) {
	userID, err := interceptors.UserID(r.Context())
	if err != nil {
		interceptors.WriteError(w, r, err)
		return
	}
	var req nameRequest
	if err := interceptors.DecodeJSON(r, &req); err != nil {
		interceptors.WriteError(w, r, err)
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		interceptors.WriteError(w, r, apperrors.Validation("name is required"))
		return
	}

	p := &repository.Profile{UserID: userID, Name: name}
	if err := h.repo.CreateProfile(r.Context(), p); err != nil {
		interceptors.WriteError(w, r, err)
		return
	}
	interceptors.WriteJSON(w, http.StatusCreated, p)
}

// ListAccounts handles GET /accounts
func (h *LedgerHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	userID, err := interceptors.UserID(r.Context())
	if err != nil {
		interceptors.WriteError(w, r, err)
		return
	}
	accounts, err := h.repo.ListAccounts(r.Context(), userID)
	if err != nil {
		interceptors.WriteError(w, r, err)
		return
	}
	interceptors.WriteJSON(w, http.StatusOK, map[string]any{"accounts": nonNil(accounts)})
}

// CreateAccount handles POST /accounts
func (h *LedgerHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	userID, err := interceptors.UserID(r.Context())
	if err != nil {
		interceptors.WriteError(w, r, err)
		return
	}
	var req accountRequest
	if err := interceptors.DecodeJSON(r, &req); err != nil {
		interceptors.WriteError(w, r, err)
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		interceptors.WriteError(w, r, apperrors.Validation("name is required"))
		return
	}
	if req.ProfileID != nil {
		ok, err := h.repo.ProfilesOwned(r.Context(), userID, []uuid.UUID{*req.ProfileID})
		if err != nil {
			interceptors.WriteError(w, r, err)
			return
		}
		if !ok {
			interceptors.WriteError(w, r, apperrors.Validation("profileId does not belong to the user"))
			return
		}
	}

	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = h.defaultCurrency
	}
	a := &repository.Account{UserID: userID, ProfileID: req.ProfileID, Name: name, Type: req.Type, CurrencyCode: currency}
	if err := h.repo.CreateAccount(r.Context(), a); err != nil {
		interceptors.WriteError(w, r, err)
		return
	}
	interceptors.WriteJSON(w, http.StatusCreated, a)
}

// ListCategories handles GET /categories
func (h *LedgerHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	userID, err := interceptors.UserID(r.Context())
	if err != nil {
		interceptors.WriteError(w, r, err)
		return
	}
	categories, err := h.repo.ListCategories(r.Context(), userID)
	if err != nil {
		interceptors.WriteError(w, r, err)
		return
	}
	interceptors.WriteJSON(w, http.StatusOK, map[string]any{"categories": nonNil(categories)})
}

// CreateCategory handles POST /categories
func (h *LedgerHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	userID, err := interceptors.UserID(r.Context())
	if err != nil {
		interceptors.WriteError(w, r, err)
		return
	}
	var req categoryRequest
	if err := interceptors.DecodeJSON(r, &req); err != nil {
		interceptors.WriteError(w, r, err)
		return
	}
	name := strings.TrimSpace(req.Name)
	kind := repository.CategoryKind(strings.ToLower(strings.TrimSpace(req.Kind)))
	if name == "" {
		interceptors.WriteError(w, r, apperrors.Validation("name is required"))
		return
	}
	if !kind.Valid() {
		interceptors.WriteError(w, r, apperrors.Validation("kind must be income or expense"))
		return
	}

	c := &repository.Category{UserID: userID, Name: name, Kind: kind}
	if err := h.repo.CreateCategory(r.Context(), c); err != nil {
		interceptors.WriteError(w, r, err)
		return
	}
	interceptors.WriteJSON(w, http.StatusCreated, c)
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
