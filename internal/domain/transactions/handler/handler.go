// Package handler exposes transaction queries, statistics and CRUD over HTTP.
package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/FACorreiaa/finance-assistant/internal/domain/transactions/repository"
	"github.com/FACorreiaa/finance-assistant/internal/domain/transactions/service"
	"github.com/FACorreiaa/finance-assistant/pkg/apperrors"
	"github.com/FACorreiaa/finance-assistant/pkg/interceptors"
	"github.com/FACorreiaa/finance-assistant/pkg/money"
)

// DefaultPageSize applies when a list request has no limit
const DefaultPageSize = 50

// TransactionHandler serves /transactions
type TransactionHandler struct {
	svc *service.Service
}

// NewTransactionHandler creates a new transaction handler
func NewTransactionHandler(svc *service.Service) *TransactionHandler {
	return &TransactionHandler{svc: svc}
}

// TransactionResponse is the wire form of a transaction
type TransactionResponse struct {
	ID                 uuid.UUID    `json:"id"`
	Type               string       `json:"type"`
	Amount             *money.Money `json:"amount"`
	Currency           string       `json:"currency"`
	Description        string       `json:"description"`
	Date               string       `json:"date"`
	ProfileID          *uuid.UUID   `json:"profileId,omitempty"`
	AccountID          *uuid.UUID   `json:"accountId,omitempty"`
	FromAccountID      *uuid.UUID   `json:"fromAccountId,omitempty"`
	ToAccountID        *uuid.UUID   `json:"toAccountId,omitempty"`
	CategoryID         *uuid.UUID   `json:"categoryId,omitempty"`
	CounterpartyName   *string      `json:"counterpartyName,omitempty"`
	CounterpartyPhone  *string      `json:"counterpartyPhone,omitempty"`
	CounterpartyStatus *string      `json:"counterpartyStatus,omitempty"`
	CreatedAt          time.Time    `json:"createdAt"`
	UpdatedAt          time.Time    `json:"updatedAt"`
}

// ListResponse is a page of transactions. NextOffset is set when more rows may follow.
type ListResponse struct {
	Transactions []TransactionResponse `json:"transactions"`
	NextOffset   *int                  `json:"nextOffset"`
}

type transactionRequest struct {
	Type               string     `json:"type"`
	Amount             string     `json:"amount"`
	Currency           string     `json:"currency"`
	Description        string     `json:"description"`
	Date               string     `json:"date"`
	ProfileID          *uuid.UUID `json:"profileId"`
	AccountID          *uuid.UUID `json:"accountId"`
	FromAccountID      *uuid.UUID `json:"fromAccountId"`
	ToAccountID        *uuid.UUID `json:"toAccountId"`
	CategoryID         *uuid.UUID `json:"categoryId"`
	CounterpartyName   *string    `json:"counterpartyName"`
	CounterpartyPhone  *string    `json:"counterpartyPhone"`
	CounterpartyStatus *string    `json:"counterpartyStatus"`
}

// ToResponse converts a stored transaction to its wire form
func ToResponse(tx *repository.Transaction) TransactionResponse {
	resp := TransactionResponse{
		ID:                tx.ID,
		Type:              string(tx.Type),
		Amount:            money.New(tx.AmountMinor, tx.CurrencyCode),
		Currency:          tx.CurrencyCode,
		Description:       tx.Description,
		Date:              interceptors.FormatDate(tx.Date),
		ProfileID:         tx.ProfileID,
		AccountID:         tx.AccountID,
		FromAccountID:     tx.FromAccountID,
		ToAccountID:       tx.ToAccountID,
		CategoryID:        tx.CategoryID,
		CounterpartyName:  tx.CounterpartyName,
		CounterpartyPhone: tx.CounterpartyPhone,
		CreatedAt:         tx.CreatedAt,
		UpdatedAt:         tx.UpdatedAt,
	}
	if tx.CounterpartyStatus != nil {
		s := string(*tx.CounterpartyStatus)
		resp.CounterpartyStatus = &s
	}
	return resp
}

// ParseCriteria reads type, startDate, endDate, minAmount, maxAmount and search
// from the query string. Amounts are decimal strings in currency.
func ParseCriteria(r *http.Request, currency string) (repository.Criteria, error) {
	q := r.URL.Query()
	var c repository.Criteria

	if raw := strings.TrimSpace(q.Get("type")); raw != "" {
		t := repository.TransactionType(strings.ToLower(raw))
		c.Type = &t
	}

	var err error
	if c.StartDate, err = interceptors.QueryDate(r, "startDate"); err != nil {
		return c, err
	}
	if c.EndDate, err = interceptors.QueryDate(r, "endDate"); err != nil {
		return c, err
	}
	if c.MinAmountMinor, err = queryAmount(q.Get("minAmount"), "minAmount", currency); err != nil {
		return c, err
	}
	if c.MaxAmountMinor, err = queryAmount(q.Get("maxAmount"), "maxAmount", currency); err != nil {
		return c, err
	}
	c.Search = strings.TrimSpace(q.Get("search"))
	return c, nil
}

func queryAmount(raw, name, currency string) (*int64, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	m, err := money.Parse(raw, currency)
	if err != nil {
		return nil, apperrors.Validation("%s: %v", name, err)
	}
	minor := m.Amount()
	return &minor, nil
}

// List handles GET /transactions
func (h *TransactionHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, err := interceptors.UserID(r.Context())
	if err != nil {
		interceptors.WriteError(w, r, err)
		return
	}

	c, err := ParseCriteria(r, h.svc.Currency())
	if err != nil {
		interceptors.WriteError(w, r, err)
		return
	}
	if c.Limit, err = interceptors.QueryInt(r, "limit", DefaultPageSize); err != nil {
		interceptors.WriteError(w, r, err)
		return
	}
	if c.Limit < 1 {
		interceptors.WriteError(w, r, apperrors.Validation("limit must be at least 1"))
		return
	}
	if c.Offset, err = interceptors.QueryInt(r, "offset", 0); err != nil {
		interceptors.WriteError(w, r, err)
		return
	}

	txs, err := h.svc.Query(r.Context(), userID, c)
	if err != nil {
		interceptors.WriteError(w, r, err)
		return
	}

	resp := ListResponse{Transactions: make([]TransactionResponse, 0, len(txs))}
	for _, tx := range txs {
		resp.Transactions = append(resp.Transactions, ToResponse(tx))
	}
	if len(txs) == c.Limit {
		next := c.Offset + c.Limit
		resp.NextOffset = &next
	}
	interceptors.WriteJSON(w, http.StatusOK, resp)
}

// Statistics handles GET /transactions/statistics
func (h *TransactionHandler) Statistics(w http.ResponseWriter, r *http.Request) {
	userID, err := interceptors.UserID(r.Context())
	if err != nil {
		interceptors.WriteError(w, r, err)
		return
	}

	c, err := ParseCriteria(r, h.svc.Currency())
	if err != nil {
		interceptors.WriteError(w, r, err)
		return
	}

	var withBreakdown bool
	switch b := r.URL.Query().Get("breakdown"); b {
	case "":
	case "category":
		withBreakdown = true
	default:
		interceptors.WriteError(w, r, apperrors.Validation("unsupported breakdown %q", b))
		return
	}

	stats, err := h.svc.Statistics(r.Context(), userID, c, withBreakdown)
	if err != nil {
		interceptors.WriteError(w, r, err)
		return
	}
	interceptors.WriteJSON(w, http.StatusOK, stats)
}

// Get handles GET /transactions/{id}
func (h *TransactionHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, err := interceptors.UserID(r.Context())
	if err != nil {
		interceptors.WriteError(w, r, err)
		return
	}
	id, err := interceptors.PathUUID(r, "id")
	if err != nil {
		interceptors.WriteError(w, r, apperrors.NotFound("transaction"))
		return
	}

	tx, err := h.svc.Get(r.Context(), userID, id)
	if err != nil {
		interceptors.WriteError(w, r, err)
		return
	}
	interceptors.WriteJSON(w, http.StatusOK, ToResponse(tx))
}

// Create handles POST /transactions
func (h *TransactionHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, err := interceptors.UserID(r.Context())
	if err != nil {
		interceptors.WriteError(w, r, err)
		return
	}
	in, err := h.decodeInput(r)
	if err != nil {
		interceptors.WriteError(w, r, err)
		return
	}

	tx, err := h.svc.Create(r.Context(), userID, in)
	if err != nil {
		interceptors.WriteError(w, r, err)
		return
	}
	interceptors.WriteJSON(w, http.StatusCreated, ToResponse(tx))
}

// Update handles PUT /transactions/{id}
func (h *TransactionHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, err := interceptors.UserID(r.Context())
	if err != nil {
		interceptors.WriteError(w, r, err)
		return
	}
	id, err := interceptors.PathUUID(r, "id")
	if err != nil {
		interceptors.WriteError(w, r, apperrors.NotFound("transaction"))
		return
	}
	in, err := h.decodeInput(r)
	if err != nil {
		interceptors.WriteError(w, r, err)
		return
	}

	tx, err := h.svc.Update(r.Context(), userID, id, in)
	if err != nil {
		interceptors.WriteError(w, r, err)
		return
	}
	interceptors.WriteJSON(w, http.StatusOK, ToResponse(tx))
}

// Delete handles DELETE /transactions/{id}
func (h *TransactionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, err := interceptors.UserID(r.Context())
	if err != nil {
		interceptors.WriteError(w, r, err)
		return
	}
	id, err := interceptors.PathUUID(r, "id")
	if err != nil {
		interceptors.WriteError(w, r, apperrors.NotFound("transaction"))
		return
	}

	if err := h.svc.Delete(r.Context(), userID, id); err != nil {
		interceptors.WriteError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *TransactionHandler) decodeInput(r *http.Request) (service.TransactionInput, error) {
	var req transactionRequest
	if err := interceptors.DecodeJSON(r, &req); err != nil {
		return service.TransactionInput{}, err
	}

	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = h.svc.Currency()
	}
	amount, err := money.Parse(req.Amount, currency)
	if err != nil {
		return service.TransactionInput{}, apperrors.Validation("amount: %v", err)
	}
	if req.Date == "" {
		return service.TransactionInput{}, apperrors.Validation("date is required")
	}
	date, err := interceptors.ParseDate(req.Date)
	if err != nil {
		return service.TransactionInput{}, err
	}

	in := service.TransactionInput{
		Type:              repository.TransactionType(strings.ToLower(strings.TrimSpace(req.Type))),
		AmountMinor:       amount.Amount(),
		Currency:          currency,
		Description:       req.Description,
		Date:              date,
		ProfileID:         req.ProfileID,
		AccountID:         req.AccountID,
		FromAccountID:     req.FromAccountID,
		ToAccountID:       req.ToAccountID,
		CategoryID:        req.CategoryID,
		CounterpartyName:  req.CounterpartyName,
		CounterpartyPhone: req.CounterpartyPhone,
	}
	if req.CounterpartyStatus != nil {
		s := repository.CounterpartyStatus(strings.ToLower(*req.CounterpartyStatus))
		in.CounterpartyStatus = &s
	}
	return in, nil
}
