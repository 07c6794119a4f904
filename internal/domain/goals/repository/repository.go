// Package repository provides database operations for goals.
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// GoalStatus is derived from the saved and target amounts
type GoalStatus string

const (
	GoalStatusOngoing   GoalStatus = "ongoing"
	GoalStatusCompleted GoalStatus = "completed"
)

// Valid reports whether s is a known status
func (s GoalStatus) Valid() bool {
	return s == GoalStatusOngoing || s == GoalStatusCompleted
}

// Goal represents a savings goal
type Goal struct {
	ID                uuid.UUID
	UserID            uuid.UUID
	Title             string
	TargetAmountMinor int64
	SavedAmountMinor  int64
	CurrencyCode      string
	Deadline          *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Status is completed once the saved amount reaches the target
func (g *Goal) Status() GoalStatus {
	if g.SavedAmountMinor >= g.TargetAmountMinor {
		return GoalStatusCompleted
	}
	return GoalStatusOngoing
}

// GoalContribution represents money put towards a goal
type GoalContribution struct {
	ID            uuid.UUID
	GoalID        uuid.UUID
	AmountMinor   int64
	Note          *string
	ContributedAt time.Time
	CreatedAt     time.Time
}

// GoalRepository defines the interface for goal persistence operations.
// Reads and writes are scoped to the owning user.
type GoalRepository interface {
	Create(ctx context.Context, goal *Goal) error
	GetByID(ctx context.Context, userID, id uuid.UUID) (*Goal, error)
	Update(ctx context.Context, goal *Goal) error
	Delete(ctx context.Context, userID, id uuid.UUID) error
	ListByUserID(ctx context.Context, userID uuid.UUID) ([]*Goal, error)

	// AddContribution records the contribution and raises the saved amount atomically
	AddContribution(ctx context.Context, userID uuid.UUID, contribution *GoalContribution) error
	ListContributions(ctx context.Context, goalID uuid.UUID, limit int) ([]*GoalContribution, error)
}
