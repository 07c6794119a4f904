package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/FACorreiaa/finance-assistant/pkg/apperrors"
)

// MemoryReportRepository is an in-process ReportRepository
type MemoryReportRepository struct {
	mu      sync.RWMutex
	reports map[uuid.UUID]*Report
}

// NewMemoryReportRepository creates an empty repository
func NewMemoryReportRepository() *MemoryReportRepository {
	return &MemoryReportRepository{reports: make(map[uuid.UUID]*Report)}
}

func (r *MemoryReportRepository) Create(_ context.Context, rep *Report) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rep.ID == uuid.Nil {
		rep.ID = uuid.New()
	}
	rep.GeneratedAt = time.Now()
	cp := *rep
	r.reports[rep.ID] = &cp
	return nil
}

func (r *MemoryReportRepository) GetByID(_ context.Context, userID, id uuid.UUID) (*Report, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rep, ok := r.reports[id]
	if !ok || rep.UserID != userID {
		return nil, apperrors.NotFound("report")
	}
	cp := *rep
	return &cp, nil
}

func (r *MemoryReportRepository) ListByUserID(_ context.Context, userID uuid.UUID) ([]*Report, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Report
	for _, rep := range r.reports {
		if rep.UserID == userID {
			cp := *rep
			cp.Payload = nil
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].GeneratedAt.Equal(out[j].GeneratedAt) {
			return out[i].GeneratedAt.After(out[j].GeneratedAt)
		}
		return out[i].ID.String() > out[j].ID.String()
	})
	return out, nil
}

var _ ReportRepository = (*MemoryReportRepository)(nil)
