// Package service provides business logic for goals management.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/FACorreiaa/finance-assistant/internal/domain/goals/repository"
	"github.com/FACorreiaa/finance-assistant/pkg/apperrors"
)

const maxTitleLength = 120

// GoalProgress contains calculated progress information
type GoalProgress struct {
	Goal                *repository.Goal
	Status              repository.GoalStatus
	ProgressPercent     float64 // 0-100, saved/target
	PacePercent         float64 // 100 = on track, <100 = behind; 100 when there is no deadline
	IsBehindPace        bool
	PaceMessage         string
	DaysRemaining       int
	AmountNeededPerDay  int64 // minor units per day to reach the target by the deadline
	Milestones          []Milestone
	RecentContributions []*repository.GoalContribution
}

// Milestone represents a progress checkpoint
type Milestone struct {
	Percent int // 25, 50, 75, 100
	Reached bool
}

// MilestoneReached contains info about a milestone crossed by a contribution
type MilestoneReached struct {
	Percent int
	Message string
}

// GoalInput carries the writable fields of a goal
type GoalInput struct {
	Title             string
	TargetAmountMinor int64
	Currency          string
	Deadline          *time.Time
}

// Service provides goal management business logic
type Service struct {
	repo     repository.GoalRepository
	currency string
	logger   *slog.Logger
	now      func() time.Time
}

// NewService creates a new goals service
func NewService(repo repository.GoalRepository, currency string, logger *slog.Logger) *Service {
	return &Service{repo: repo, currency: currency, logger: logger, now: time.Now}
}

// Currency returns the default goal currency
func (s *Service) Currency() string {
	return s.currency
}

func validateGoal(in GoalInput) error {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return apperrors.Validation("title is required")
	}
	if utf8.RuneCountInString(title) > maxTitleLength {
		return apperrors.Validation("title must be at most %d characters", maxTitleLength)
	}
	if in.TargetAmountMinor <= 0 {
		return apperrors.Validation("target amount must be positive")
	}
	return nil
}

// CreateGoal creates a new goal with nothing saved yet
func (s *Service) CreateGoal(ctx context.Context, userID uuid.UUID, in GoalInput) (*repository.Goal, error) {
	if err := validateGoal(in); err != nil {
		return nil, err
	}
	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	if currency == "" {
		currency = s.currency
	}

	goal := &repository.Goal{
		ID:                uuid.New(),
		UserID:            userID,
		Title:             strings.TrimSpace(in.Title),
		TargetAmountMinor: in.TargetAmountMinor,
		CurrencyCode:      currency,
		Deadline:          in.Deadline,
	}
	if err := s.repo.Create(ctx, goal); err != nil {
		return nil, err
	}
	return goal, nil
}

// GetGoal retrieves a goal owned by userID
func (s *Service) GetGoal(ctx context.Context, userID, goalID uuid.UUID) (*repository.Goal, error) {
	return s.repo.GetByID(ctx, userID, goalID)
}

// UpdateGoal replaces title, target and deadline
func (s *Service) UpdateGoal(ctx context.Context, userID, goalID uuid.UUID, in GoalInput) (*repository.Goal, error) {
	if err := validateGoal(in); err != nil {
		return nil, err
	}
	goal, err := s.repo.GetByID(ctx, userID, goalID)
	if err != nil {
		return nil, err
	}

	goal.Title = strings.TrimSpace(in.Title)
	goal.TargetAmountMinor = in.TargetAmountMinor
	goal.Deadline = in.Deadline

	if err := s.repo.Update(ctx, goal); err != nil {
		return nil, err
	}
	return goal, nil
}

// DeleteGoal removes a goal
func (s *Service) DeleteGoal(ctx context.Context, userID, goalID uuid.UUID) error {
	return s.repo.Delete(ctx, userID, goalID)
}

// ListGoals retrieves the user's goals, optionally only those in status
func (s *Service) ListGoals(ctx context.Context, userID uuid.UUID, status *repository.GoalStatus) ([]*repository.Goal, error) {
	goals, err := s.repo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if status == nil {
		return goals, nil
	}
	filtered := make([]*repository.Goal, 0, len(goals))
	for _, g := range goals {
		if g.Status() == *status {
			filtered = append(filtered, g)
		}
	}
	return filtered, nil
}

// GoalsByID returns the listed goals. Every id must belong to userID.
func (s *Service) GoalsByID(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) ([]*repository.Goal, error) {
	goals, err := s.repo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*repository.Goal, len(goals))
	for _, g := range goals {
		byID[g.ID] = g
	}

	out := make([]*repository.Goal, 0, len(ids))
	seen := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		g, ok := byID[id]
		if !ok {
			return nil, apperrors.Validation("goal %s does not belong to the user", id)
		}
		if !seen[id] {
			seen[id] = true
			out = append(out, g)
		}
	}
	return out, nil
}

// GetGoalProgress calculates detailed progress for a goal
func (s *Service) GetGoalProgress(ctx context.Context, userID, goalID uuid.UUID) (*GoalProgress, error) {
	goal, err := s.repo.GetByID(ctx, userID, goalID)
	if err != nil {
		return nil, err
	}

	contributions, err := s.repo.ListContributions(ctx, goalID, 10)
	if err != nil {
		return nil, err
	}

	progress := Progress(goal, s.now())
	progress.RecentContributions = contributions
	return progress, nil
}

// Progress derives percentages, pace and milestones for goal at now
func Progress(goal *repository.Goal, now time.Time) *GoalProgress {
	progress := &GoalProgress{
		Goal:   goal,
		Status: goal.Status(),
	}

	if goal.TargetAmountMinor > 0 {
		progress.ProgressPercent = float64(goal.SavedAmountMinor) / float64(goal.TargetAmountMinor) * 100
		if progress.ProgressPercent > 100 {
			progress.ProgressPercent = 100
		}
	}
	progress.ProgressPercent = math.Round(progress.ProgressPercent*100) / 100

	progress.PacePercent = 100
	if goal.Deadline != nil {
		if now.Before(*goal.Deadline) {
			progress.DaysRemaining = int(goal.Deadline.Sub(now).Hours() / 24)
		}

		totalDays := goal.Deadline.Sub(goal.CreatedAt).Hours() / 24
		elapsedDays := math.Max(0, math.Min(now.Sub(goal.CreatedAt).Hours()/24, totalDays))
		if totalDays > 0 && elapsedDays > 0 {
			expected := elapsedDays / totalDays * 100
			progress.PacePercent = progress.ProgressPercent / expected * 100
		}

		remaining := max(goal.TargetAmountMinor-goal.SavedAmountMinor, 0)
		if progress.DaysRemaining > 0 {
			progress.AmountNeededPerDay = remaining / int64(progress.DaysRemaining)
		}
	}
	progress.IsBehindPace = progress.Status == repository.GoalStatusOngoing && progress.PacePercent < 100
	progress.PaceMessage = paceMessage(progress)

	for _, pct := range []int{25, 50, 75, 100} {
		progress.Milestones = append(progress.Milestones, Milestone{
			Percent: pct,
			Reached: goal.SavedAmountMinor >= goal.TargetAmountMinor*int64(pct)/100,
		})
	}
	return progress
}

func paceMessage(progress *GoalProgress) string {
	if progress.Status == repository.GoalStatusCompleted {
		return "Goal completed!"
	}
	if progress.Goal.Deadline == nil {
		return fmtPercent("Saved %s%% so far", progress.ProgressPercent)
	}
	if progress.DaysRemaining <= 0 {
		return fmtPercent("Deadline passed (%s%% complete)", progress.ProgressPercent)
	}
	if progress.PacePercent >= 100 {
		if progress.PacePercent-100 > 10 {
			return fmtPercent("Ahead of schedule by %s%%", progress.PacePercent-100)
		}
		return "On track"
	}
	if behind := 100 - progress.PacePercent; behind > 25 {
		return fmtPercent("Behind by %s%%", behind)
	}
	return fmtPercent("Slightly behind (%s%% of expected)", progress.PacePercent)
}

func fmtPercent(format string, v float64) string {
	return fmt.Sprintf(format, strconv.FormatFloat(math.Round(v), 'f', 0, 64))
}

// Contribute adds money to a goal and reports the milestone it crossed, if any
func (s *Service) Contribute(ctx context.Context, userID, goalID uuid.UUID, amountMinor int64, note *string) (*GoalProgress, *MilestoneReached, error) {
	if amountMinor <= 0 {
		return nil, nil, apperrors.Validation("contribution amount must be positive")
	}
	goal, err := s.repo.GetByID(ctx, userID, goalID)
	if err != nil {
		return nil, nil, err
	}
	previousAmount := goal.SavedAmountMinor

	contribution := &repository.GoalContribution{
		ID:          uuid.New(),
		GoalID:      goalID,
		AmountMinor: amountMinor,
		Note:        note,
	}
	if err := s.repo.AddContribution(ctx, userID, contribution); err != nil {
		return nil, nil, err
	}

	progress, err := s.GetGoalProgress(ctx, userID, goalID)
	if err != nil {
		return nil, nil, err
	}

	var reached *MilestoneReached
	newAmount := previousAmount + amountMinor
	for _, pct := range []int{100, 75, 50, 25} {
		threshold := goal.TargetAmountMinor * int64(pct) / 100
		if previousAmount < threshold && newAmount >= threshold {
			reached = &MilestoneReached{Percent: pct, Message: milestoneMessage(pct)}
			break
		}
	}

	if progress.Status == repository.GoalStatusCompleted && previousAmount < goal.TargetAmountMinor {
		s.logger.InfoContext(ctx, "goal completed",
			slog.String("user_id", userID.String()),
			slog.String("goal_id", goalID.String()),
		)
	}
	return progress, reached, nil
}

func milestoneMessage(percent int) string {
	switch percent {
	case 25:
		return "Great start! You're 25% of the way there!"
	case 50:
		return "Halfway there! Keep up the momentum!"
	case 75:
		return "Amazing progress! Just 25% left to go!"
	default:
		return "Congratulations! You've reached your goal!"
	}
}
