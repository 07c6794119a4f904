// Package service implements the transaction query engine, the statistics
// aggregator and transaction CRUD with ownership checks.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	ledgerrepo "github.com/FACorreiaa/finance-assistant/internal/domain/ledger/repository"
	"github.com/FACorreiaa/finance-assistant/internal/domain/transactions/repository"
	"github.com/FACorreiaa/finance-assistant/pkg/apperrors"
)

const (
	// MaxPageSize bounds Criteria.Limit
	MaxPageSize          = 500
	maxDescriptionLength = 500
	maxSearchLength      = 200
)

// UserDirectory resolves user ids
type UserDirectory interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}

// Ledger answers ownership questions about referenced entities
type Ledger interface {
	AccountsOwned(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) (bool, error)
	CategoriesOwned(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) (bool, error)
	ProfilesOwned(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) (bool, error)
	ListCategories(ctx context.Context, userID uuid.UUID) ([]*ledgerrepo.Category, error)
}

// Service provides transaction business logic
type Service struct {
	repo     repository.TransactionRepository
	users    UserDirectory
	ledger   Ledger
	currency string
	logger   *slog.Logger
	tracer   trace.Tracer
}

// NewService creates a new transactions service. currency is the reporting currency.
func NewService(repo repository.TransactionRepository, users UserDirectory, ledger Ledger, currency string, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		users:    users,
		ledger:   ledger,
		currency: strings.ToUpper(strings.TrimSpace(currency)),
		logger:   logger,
		tracer:   otel.Tracer("finance-assistant/transactions"),
	}
}

// Currency returns the reporting currency used for totals
func (s *Service) Currency() string {
	return s.currency
}

// Query returns the user's transactions matching c, ordered by date, creation
// time and id, all descending. Rows are re-checked against the user and the
// criteria before they leave the service.
func (s *Service) Query(ctx context.Context, userID uuid.UUID, c repository.Criteria) ([]*repository.Transaction, error) {
	ctx, span := s.tracer.Start(ctx, "transactions.Query")
	defer span.End()

	if err := ValidateCriteria(c); err != nil {
		return nil, err
	}
	if err := s.ensureUser(ctx, userID); err != nil {
		return nil, err
	}

	txs, err := s.repo.Query(ctx, userID, c)
	if err != nil {
		return nil, err
	}

	out := make([]*repository.Transaction, 0, len(txs))
	dropped := 0
	for _, tx := range txs {
		if tx.UserID != userID || !c.Matches(tx) {
			dropped++
			continue
		}
		out = append(out, tx)
	}
	if dropped > 0 {
		s.logger.WarnContext(ctx, "dropped transactions outside query scope",
			slog.String("user_id", userID.String()),
			slog.Int("dropped", dropped),
		)
	}
	span.SetAttributes(attribute.Int("transactions.count", len(out)))
	return out, nil
}

// ValidateCriteria rejects contradictory or malformed filters
func ValidateCriteria(c repository.Criteria) error {
	if c.Type != nil && !c.Type.Valid() {
		return apperrors.Validation("unknown transaction type %q", *c.Type)
	}
	if c.StartDate != nil && c.EndDate != nil && c.StartDate.After(*c.EndDate) {
		return apperrors.Validation("startDate must not be after endDate")
	}
	if c.MinAmountMinor != nil && *c.MinAmountMinor < 0 {
		return apperrors.Validation("minAmount must not be negative")
	}
	if c.MaxAmountMinor != nil && *c.MaxAmountMinor < 0 {
		return apperrors.Validation("maxAmount must not be negative")
	}
	if c.MinAmountMinor != nil && c.MaxAmountMinor != nil && *c.MinAmountMinor > *c.MaxAmountMinor {
		return apperrors.Validation("minAmount must not be greater than maxAmount")
	}
	if utf8.RuneCountInString(c.Search) > maxSearchLength {
		return apperrors.Validation("search must be at most %d characters", maxSearchLength)
	}
	if c.Limit < 0 || c.Limit > MaxPageSize {
		return apperrors.Validation("limit must be between 0 and %d", MaxPageSize)
	}
	if c.Offset < 0 {
		return apperrors.Validation("offset must not be negative")
	}
	return nil
}

func (s *Service) ensureUser(ctx context.Context, userID uuid.UUID) error {
	ok, err := s.users.Exists(ctx, userID)
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.NotFound("user")
	}
	return nil
}

// TransactionInput carries the writable fields of a transaction
type TransactionInput struct {
	Type               repository.TransactionType
	AmountMinor        int64
	Currency           string
	Description        string
	Date               time.Time
	ProfileID          *uuid.UUID
	AccountID          *uuid.UUID
	FromAccountID      *uuid.UUID
	ToAccountID        *uuid.UUID
	CategoryID         *uuid.UUID
	CounterpartyName   *string
	CounterpartyPhone  *string
	CounterpartyStatus *repository.CounterpartyStatus
}

// Get returns a single transaction owned by userID
func (s *Service) Get(ctx context.Context, userID, id uuid.UUID) (*repository.Transaction, error) {
	return s.repo.GetByID(ctx, userID, id)
}

// Create validates and stores a new transaction
func (s *Service) Create(ctx context.Context, userID uuid.UUID, in TransactionInput) (*repository.Transaction, error) {
	tx, err := s.build(ctx, userID, in)
	if err != nil {
		return nil, err
	}
	tx.ID = uuid.New()
	if err := s.repo.Create(ctx, tx); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "transaction created",
		slog.String("user_id", userID.String()),
		slog.String("transaction_id", tx.ID.String()),
		slog.String("type", string(tx.Type)),
	)
	return tx, nil
}

// Update replaces the writable fields of an existing transaction
func (s *Service) Update(ctx context.Context, userID, id uuid.UUID, in TransactionInput) (*repository.Transaction, error) {
	if _, err := s.repo.GetByID(ctx, userID, id); err != nil {
		return nil, err
	}
	tx, err := s.build(ctx, userID, in)
	if err != nil {
		return nil, err
	}
	tx.ID = id
	if err := s.repo.Update(ctx, tx); err != nil {
		return nil, err
	}
	return tx, nil
}

// Delete removes a transaction owned by userID
func (s *Service) Delete(ctx context.Context, userID, id uuid.UUID) error {
	return s.repo.Delete(ctx, userID, id)
}

func (s *Service) build(ctx context.Context, userID uuid.UUID, in TransactionInput) (*repository.Transaction, error) {
	if err := validateInput(&in); err != nil {
		return nil, err
	}
	if err := s.ensureUser(ctx, userID); err != nil {
		return nil, err
	}
	if err := s.checkOwnership(ctx, userID, in); err != nil {
		return nil, err
	}

	// Totals are kept in one currency per user, so a foreign amount would
	// poison every aggregate that includes it.
	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	if currency == "" {
		currency = s.currency
	}
	if currency != s.currency {
		return nil, apperrors.Validation("currency must be %s", s.currency)
	}
	return &repository.Transaction{
		UserID:             userID,
		ProfileID:          in.ProfileID,
		AccountID:          in.AccountID,
		FromAccountID:      in.FromAccountID,
		ToAccountID:        in.ToAccountID,
		CategoryID:         in.CategoryID,
		Type:               in.Type,
		AmountMinor:        in.AmountMinor,
		CurrencyCode:       currency,
		Description:        strings.TrimSpace(in.Description),
		Date:               in.Date,
		CounterpartyName:   in.CounterpartyName,
		CounterpartyPhone:  in.CounterpartyPhone,
		CounterpartyStatus: in.CounterpartyStatus,
	}, nil
}

// validateInput enforces the per-type shape of a transaction and fills defaults
func validateInput(in *TransactionInput) error {
	if !in.Type.Valid() {
		return apperrors.Validation("unknown transaction type %q", in.Type)
	}
	if in.AmountMinor <= 0 {
		return apperrors.Validation("amount must be positive")
	}
	if in.Date.IsZero() {
		return apperrors.Validation("date is required")
	}
	if utf8.RuneCountInString(in.Description) > maxDescriptionLength {
		return apperrors.Validation("description must be at most %d characters", maxDescriptionLength)
	}

	hasCounterparty := in.CounterpartyName != nil || in.CounterpartyPhone != nil || in.CounterpartyStatus != nil

	switch {
	case in.Type == repository.TypeTransfer:
		if in.FromAccountID == nil || in.ToAccountID == nil {
			return apperrors.Validation("transfer requires fromAccountId and toAccountId")
		}
		if *in.FromAccountID == *in.ToAccountID {
			return apperrors.Validation("transfer accounts must differ")
		}
		if in.AccountID != nil || in.CategoryID != nil {
			return apperrors.Validation("transfer must not set accountId or categoryId")
		}
		if hasCounterparty {
			return apperrors.Validation("transfer must not set counterparty fields")
		}

	case in.Type.IsDebt():
		if in.CounterpartyName == nil || strings.TrimSpace(*in.CounterpartyName) == "" {
			return apperrors.Validation("%s requires counterpartyName", in.Type)
		}
		if in.FromAccountID != nil || in.ToAccountID != nil {
			return apperrors.Validation("%s must not set transfer accounts", in.Type)
		}
		if in.CounterpartyStatus == nil {
			open := repository.CounterpartyOpen
			in.CounterpartyStatus = &open
		}
		switch *in.CounterpartyStatus {
		case repository.CounterpartyOpen, repository.CounterpartySettled:
		default:
			return apperrors.Validation("counterpartyStatus must be open or settled")
		}

	default:
		if in.AccountID == nil {
			return apperrors.Validation("%s requires accountId", in.Type)
		}
		if in.FromAccountID != nil || in.ToAccountID != nil {
			return apperrors.Validation("%s must not set transfer accounts", in.Type)
		}
		if hasCounterparty {
			return apperrors.Validation("%s must not set counterparty fields", in.Type)
		}
	}
	return nil
}

func (s *Service) checkOwnership(ctx context.Context, userID uuid.UUID, in TransactionInput) error {
	var accounts []uuid.UUID
	for _, id := range []*uuid.UUID{in.AccountID, in.FromAccountID, in.ToAccountID} {
		if id != nil {
			accounts = append(accounts, *id)
		}
	}
	checks := []struct {
		name string
		ids  []uuid.UUID
		fn   func(context.Context, uuid.UUID, []uuid.UUID) (bool, error)
	}{
		{"account", accounts, s.ledger.AccountsOwned},
		{"category", ptrIDs(in.CategoryID), s.ledger.CategoriesOwned},
		{"profile", ptrIDs(in.ProfileID), s.ledger.ProfilesOwned},
	}
	for _, check := range checks {
		if len(check.ids) == 0 {
			continue
		}
		ok, err := check.fn(ctx, userID, check.ids)
		if err != nil {
			return fmt.Errorf("failed to verify %s ownership: %w", check.name, err)
		}
		if !ok {
			return apperrors.Validation("%s does not belong to the user", check.name)
		}
	}
	return nil
}

func ptrIDs(id *uuid.UUID) []uuid.UUID {
	if id == nil {
		return nil
	}
	return []uuid.UUID{*id}
}
