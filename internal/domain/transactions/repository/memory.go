package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/FACorreiaa/finance-assistant/pkg/apperrors"
)

// MemoryTransactionRepository is an in-process TransactionRepository with the
// same filtering and ordering as the SQL implementation.
type MemoryTransactionRepository struct {
	mu  sync.RWMutex
	txs map[uuid.UUID]*Transaction
	now func() time.Time
}

// NewMemoryTransactionRepository creates an empty repository
func NewMemoryTransactionRepository() *MemoryTransactionRepository {
	return &MemoryTransactionRepository{txs: make(map[uuid.UUID]*Transaction), now: time.Now}
}

// Query filters, orders and pages like the SQL statement built by buildQuery
func (r *MemoryTransactionRepository) Query(_ context.Context, userID uuid.UUID, c Criteria) ([]*Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Transaction
	for _, tx := range r.txs {
		if tx.UserID == userID && c.Matches(tx) {
			cp := *tx
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return Less(out[i], out[j]) })

	if c.Offset > 0 {
		if c.Offset >= len(out) {
			return nil, nil
		}
		out = out[c.Offset:]
	}
	if c.Limit > 0 && len(out) > c.Limit {
		out = out[:c.Limit]
	}
	return out, nil
}

// GetByID retrieves a transaction owned by userID
func (r *MemoryTransactionRepository) GetByID(_ context.Context, userID, id uuid.UUID) (*Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tx, ok := r.txs[id]
	if !ok || tx.UserID != userID {
		return nil, apperrors.NotFound("transaction")
	}
	cp := *tx
	return &cp, nil
}

// Create stores a copy of tx
func (r *MemoryTransactionRepository) Create(_ context.Context, tx *Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if tx.ID == uuid.Nil {
		tx.ID = uuid.New()
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = r.now()
	}
	tx.UpdatedAt = tx.CreatedAt
	tx.Date = truncateDay(tx.Date)
	cp := *tx
	r.txs[tx.ID] = &cp
	return nil
}

// Update replaces a stored transaction owned by tx.UserID
func (r *MemoryTransactionRepository) Update(_ context.Context, tx *Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.txs[tx.ID]
	if !ok || existing.UserID != tx.UserID {
		return apperrors.NotFound("transaction")
	}
	tx.CreatedAt = existing.CreatedAt
	tx.UpdatedAt = r.now()
	tx.Date = truncateDay(tx.Date)
	cp := *tx
	r.txs[tx.ID] = &cp
	return nil
}

// Delete removes a transaction owned by userID
func (r *MemoryTransactionRepository) Delete(_ context.Context, userID, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, ok := r.txs[id]
	if !ok || tx.UserID != userID {
		return apperrors.NotFound("transaction")
	}
	delete(r.txs, id)
	return nil
}

var _ TransactionRepository = (*MemoryTransactionRepository)(nil)
