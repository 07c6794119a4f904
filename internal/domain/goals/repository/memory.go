package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/FACorreiaa/finance-assistant/pkg/apperrors"
)

// MemoryGoalRepository is an in-process GoalRepository
type MemoryGoalRepository struct {
	mu            sync.RWMutex
	goals         map[uuid.UUID]*Goal
	contributions map[uuid.UUID][]*GoalContribution
}

// NewMemoryGoalRepository creates an empty repository
func NewMemoryGoalRepository() *MemoryGoalRepository {
	return &MemoryGoalRepository{
		goals:         make(map[uuid.UUID]*Goal),
		contributions: make(map[uuid.UUID][]*GoalContribution),
	}
}

func (r *MemoryGoalRepository) Create(_ context.Context, goal *Goal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if goal.ID == uuid.Nil {
		goal.ID = uuid.New()
	}
	now := time.Now()
	goal.CreatedAt, goal.UpdatedAt = now, now
	cp := *goal
	r.goals[goal.ID] = &cp
	return nil
}

func (r *MemoryGoalRepository) GetByID(_ context.Context, userID, id uuid.UUID) (*Goal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.goals[id]
	if !ok || g.UserID != userID {
		return nil, apperrors.NotFound("goal")
	}
	cp := *g
	return &cp, nil
}

func (r *MemoryGoalRepository) Update(_ context.Context, goal *Goal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.goals[goal.ID]
	if !ok || g.UserID != goal.UserID {
		return apperrors.NotFound("goal")
	}
	g.Title = goal.Title
	g.TargetAmountMinor = goal.TargetAmountMinor
	g.Deadline = goal.Deadline
	g.UpdatedAt = time.Now()
	goal.UpdatedAt = g.UpdatedAt
	return nil
}

func (r *MemoryGoalRepository) Delete(_ context.Context, userID, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.goals[id]
	if !ok || g.UserID != userID {
		return apperrors.NotFound("goal")
	}
	delete(r.goals, id)
	delete(r.contributions, id)
	return nil
}

func (r *MemoryGoalRepository) ListByUserID(_ context.Context, userID uuid.UUID) ([]*Goal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Goal
	for _, g := range r.goals {
		if g.UserID == userID {
			cp := *g
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		switch {
		case a.Deadline != nil && b.Deadline == nil:
			return true
		case a.Deadline == nil && b.Deadline != nil:
			return false
		case a.Deadline != nil && !a.Deadline.Equal(*b.Deadline):
			return a.Deadline.Before(*b.Deadline)
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
	return out, nil
}

func (r *MemoryGoalRepository) AddContribution(_ context.Context, userID uuid.UUID, c *GoalContribution) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.goals[c.GoalID]
	if !ok || g.UserID != userID {
		return apperrors.NotFound("goal")
	}
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.ContributedAt.IsZero() {
		c.ContributedAt = time.Now()
	}
	c.CreatedAt = time.Now()
	g.SavedAmountMinor += c.AmountMinor
	cp := *c
	r.contributions[c.GoalID] = append(r.contributions[c.GoalID], &cp)
	return nil
}

func (r *MemoryGoalRepository) ListContributions(_ context.Context, goalID uuid.UUID, limit int) ([]*GoalContribution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	src := r.contributions[goalID]
	out := make([]*GoalContribution, 0, len(src))
	for i := len(src) - 1; i >= 0 && len(out) < limit; i-- {
		cp := *src[i]
		out = append(out, &cp)
	}
	return out, nil
}

var _ GoalRepository = (*MemoryGoalRepository)(nil)
