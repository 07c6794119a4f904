package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryLedgerRepository is an in-process LedgerRepository used by tests and the seed dry run.
type MemoryLedgerRepository struct {
	mu         sync.RWMutex
	profiles   map[uuid.UUID]*Profile
	accounts   map[uuid.UUID]*Account
	categories map[uuid.UUID]*Category
}

// NewMemoryLedgerRepository creates an empty repository
func NewMemoryLedgerRepository() *MemoryLedgerRepository {
	return &MemoryLedgerRepository{
		profiles:   make(map[uuid.UUID]*Profile),
		accounts:   make(map[uuid.UUID]*Account),
		categories: make(map[uuid.UUID]*Category),
	}
}

func (r *MemoryLedgerRepository) CreateProfile(_ context.Context, p *Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.CreatedAt = time.Now()
	cp := *p
	r.profiles[p.ID] = &cp
	return nil
}

func (r *MemoryLedgerRepository) ListProfiles(_ context.Context, userID uuid.UUID) ([]*Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Profile
	for _, p := range r.profiles {
		if p.UserID == userID {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *MemoryLedgerRepository) ProfilesOwned(_ context.Context, userID uuid.UUID, ids []uuid.UUID) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, id := range Dedupe(ids) {
		p, ok := r.profiles[id]
		if !ok || p.UserID != userID {
			return false, nil
		}
	}
	return true, nil
}

func (r *MemoryLedgerRepository) CreateAccount(_ context.Context, a *Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.CreatedAt = time.Now()
	cp := *a
	r.accounts[a.ID] = &cp
	return nil
}

func (r *MemoryLedgerRepository) ListAccounts(_ context.Context, userID uuid.UUID) ([]*Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Account
	for _, a := range r.accounts {
		if a.UserID == userID {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *MemoryLedgerRepository) AccountsOwned(_ context.Context, userID uuid.UUID, ids []uuid.UUID) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, id := range Dedupe(ids) {
		a, ok := r.accounts[id]
		if !ok || a.UserID != userID {
			return false, nil
		}
	}
	return true, nil
}

func (r *MemoryLedgerRepository) CreateCategory(_ context.Context, c *Category) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	c.CreatedAt = time.Now()
	cp := *c
	r.categories[c.ID] = &cp
	return nil
}

func (r *MemoryLedgerRepository) ListCategories(_ context.Context, userID uuid.UUID) ([]*Category, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Category
	for _, c := range r.categories {
		if c.UserID == userID {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (r *MemoryLedgerRepository) CategoriesOwned(_ context.Context, userID uuid.UUID, ids []uuid.UUID) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, id := range Dedupe(ids) {
		c, ok := r.categories[id]
		if !ok || c.UserID != userID {
			return false, nil
		}
	}
	return true, nil
}

var _ LedgerRepository = (*MemoryLedgerRepository)(nil)
var _ LedgerRepository = (*PostgresLedgerRepository)(nil)
