// Package handler exposes savings goals over HTTP.
package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/FACorreiaa/finance-assistant/internal/domain/goals/repository"
	"github.com/FACorreiaa/finance-assistant/internal/domain/goals/service"
	"github.com/FACorreiaa/finance-assistant/pkg/apperrors"
	"github.com/FACorreiaa/finance-assistant/pkg/interceptors"
	"github.com/FACorreiaa/finance-assistant/pkg/money"
)

// GoalsHandler serves /goals
type GoalsHandler struct {
	svc *service.Service
}

// NewGoalsHandler constructs a new handler
func NewGoalsHandler(svc *service.Service) *GoalsHandler {
	return &GoalsHandler{svc: svc}
}

// GoalResponse is the wire form of a goal
type GoalResponse struct {
	ID        uuid.UUID    `json:"id"`
	Title     string       `json:"title"`
	Target    *money.Money `json:"targetAmount"`
	Saved     *money.Money `json:"savedAmount"`
	Currency  string       `json:"currency"`
	Deadline  *string      `json:"deadline"`
	Status    string       `json:"status"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

// ProgressResponse adds pace and milestones to a goal
type ProgressResponse struct {
	Goal                GoalResponse           `json:"goal"`
	ProgressPercent     float64                `json:"progressPercent"`
	PacePercent         float64                `json:"pacePercent"`
	IsBehindPace        bool                   `json:"isBehindPace"`
	PaceMessage         string                 `json:"paceMessage"`
	DaysRemaining       int                    `json:"daysRemaining"`
	AmountNeededPerDay  *money.Money           `json:"amountNeededPerDay"`
	Milestones          []MilestoneResponse    `json:"milestones"`
	RecentContributions []ContributionResponse `json:"recentContributions"`
}

type MilestoneResponse struct {
	Percent int  `json:"percent"`
	Reached bool `json:"reached"`
}

type ContributionResponse struct {
	ID            uuid.UUID    `json:"id"`
	Amount        *money.Money `json:"amount"`
	Note          *string      `json:"note,omitempty"`
	ContributedAt time.Time    `json:"contributedAt"`
}

// ContributeResponse is returned after a contribution
type ContributeResponse struct {
	Progress  ProgressResponse  `json:"progress"`
	Milestone *MilestoneReached `json:"milestone,omitempty"`
}

// MilestoneReached names the checkpoint a contribution crossed
type MilestoneReached struct {
	Percent int    `json:"percent"`
	Message string `json:"message"`
}

type goalRequest struct {
	Title        string  `json:"title"`
	TargetAmount string  `json:"targetAmount"`
	Currency     string  `json:"currency"`
	Deadline     *string `json:"deadline"`
}

type contributionRequest struct {
	Amount string  `json:"amount"`
	Note   *string `json:"note"`
}

// ToResponse converts a goal to its wire form
func ToResponse(g *repository.Goal) GoalResponse {
	resp := GoalResponse{
		ID:        g.ID,
		Title:     g.Title,
		Target:    money.New(g.TargetAmountMinor, g.CurrencyCode),
		Saved:     money.New(g.SavedAmountMinor, g.CurrencyCode),
		Currency:  g.CurrencyCode,
		Status:    string(g.Status()),
		CreatedAt: g.CreatedAt,
		UpdatedAt: g.UpdatedAt,
	}
	if g.Deadline != nil {
		d := interceptors.FormatDate(*g.Deadline)
		resp.Deadline = &d
	}
	return resp
}

func toProgressResponse(p *service.GoalProgress) ProgressResponse {
	resp := ProgressResponse{
		Goal:                ToResponse(p.Goal),
		ProgressPercent:     p.ProgressPercent,
		PacePercent:         p.PacePercent,
		IsBehindPace:        p.IsBehindPace,
		PaceMessage:         p.PaceMessage,
		DaysRemaining:       p.DaysRemaining,
		AmountNeededPerDay:  money.New(p.AmountNeededPerDay, p.Goal.CurrencyCode),
		Milestones:          make([]MilestoneResponse, 0, len(p.Milestones)),
		RecentContributions: make([]ContributionResponse, 0, len(p.RecentContributions)),
	}
	for _, m := range p.Milestones {
		resp.Milestones = append(resp.Milestones, MilestoneResponse{Percent: m.Percent, Reached: m.Reached})
	}
	for _, c := range p.RecentContributions {
		resp.RecentContributions = append(resp.RecentContributions, ContributionResponse{
			ID:            c.ID,
			Amount:        money.New(c.AmountMinor, p.Goal.CurrencyCode),
			Note:          c.Note,
			ContributedAt: c.ContributedAt,
		})
	}
	return resp
}

// List handles GET /goals
func (h *GoalsHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, err := interceptors.UserID(r.Context())
	if err != nil {
		interceptors.WriteError(w, r, err)
		return
	}

	var status *repository.GoalStatus
	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		s := repository.GoalStatus(strings.ToLower(raw))
		if !s.Valid() {
			interceptors.WriteError(w, r, apperrors.Validation("unknown goal status %q", raw))
			return
		}
		status = &s
	}

	goals, err := h.svc.ListGoals(r.Context(), userID, status)
	if err != nil {
		interceptors.WriteError(w, r, err)
		return
	}
	out := make([]GoalResponse, 0, len(goals))
	for _, g := range goals {
		out = append(out, ToResponse(g))
	}
	interceptors.WriteJSON(w, http.StatusOK, map[string]any{"goals": out})
}

// Create handles POST /goals
func (h *GoalsHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, err := interceptors.UserID(r.Context())
	if err != nil {
		interceptors.WriteError(w, r, err)
		return
	}
	in, err := h.decodeGoal(r)
	if err != nil {
		interceptors.WriteError(w, r, err)
		return
	}

	goal, err := h.svc.CreateGoal(r.Context(), userID, in)
	if err != nil {
		interceptors.WriteError(w, r, err)
		return
	}
	interceptors.WriteJSON(w, http.StatusCreated, ToResponse(goal))
}

// Get handles GET /goals/{id} and returns the goal with its progress
func (h *GoalsHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, goalID, ok := h.ids(w, r)
	if !ok {
		return
	}

	progress, err := h.svc.GetGoalProgress(r.Context(), userID, goalID)
	if err != nil {
		interceptors.WriteError(w, r, err)
		return
	}
	interceptors.WriteJSON(w, http.StatusOK, toProgressResponse(progress))
}

// Update handles PUT /goals/{id}
func (h *GoalsHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, goalID, ok := h.ids(w, r)
	if !ok {
		return
	}
	in, err := h.decodeGoal(r)
	if err != nil {
		interceptors.WriteError(w, r, err)
		return
	}

	goal, err := h.svc.UpdateGoal(r.Context(), userID, goalID, in)
	if err != nil {
		interceptors.WriteError(w, r, err)
		return
	}
	interceptors.WriteJSON(w, http.StatusOK, ToResponse(goal))
}

// Delete handles DELETE /goals/{id}
func (h *GoalsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, goalID, ok := h.ids(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeleteGoal(r.Context(), userID, goalID); err != nil {
		interceptors.WriteError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Contribute handles POST /goals/{id}/contributions
func (h *GoalsHandler) Contribute(w http.ResponseWriter, r *http.Request) {
	userID, goalID, ok := h.ids(w, r)
	if !ok {
		return
	}

	var req contributionRequest
	if err := interceptors.DecodeJSON(r, &req); err != nil {
		interceptors.WriteError(w, r, err)
		return
	}
	goal, err := h.svc.GetGoal(r.Context(), userID, goalID)
	if err != nil {
		interceptors.WriteError(w, r, err)
		return
	}
	amount, err := money.Parse(req.Amount, goal.CurrencyCode)
	if err != nil {
		interceptors.WriteError(w, r, apperrors.Validation("amount: %v", err))
		return
	}

	progress, reached, err := h.svc.Contribute(r.Context(), userID, goalID, amount.Amount(), req.Note)
	if err != nil {
		interceptors.WriteError(w, r, err)
		return
	}

	resp := ContributeResponse{Progress: toProgressResponse(progress)}
	if reached != nil {
		resp.Milestone = &MilestoneReached{Percent: reached.Percent, Message: reached.Message}
	}
	interceptors.WriteJSON(w, http.StatusCreated, resp)
}

func (h *GoalsHandler) ids(w http.ResponseWriter, r *http.Request) (uuid.UUID, uuid.UUID, bool) {
	userID, err := interceptors.UserID(r.Context())
	if err != nil {
		interceptors.WriteError(w, r, err)
		return uuid.Nil, uuid.Nil, false
	}
	goalID, err := interceptors.PathUUID(r, "id")
	if err != nil {
		interceptors.WriteError(w, r, apperrors.NotFound("goal"))
		return uuid.Nil, uuid.Nil, false
	}
	return userID, goalID, true
}

func (h *GoalsHandler) decodeGoal(r *http.Request) (service.GoalInput, error) {
	var req goalRequest
	if err := interceptors.DecodeJSON(r, &req); err != nil {
		return service.GoalInput{}, err
	}

	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = h.svc.Currency()
	}
	target, err := money.Parse(req.TargetAmount, currency)
	if err != nil {
		return service.GoalInput{}, apperrors.Validation("targetAmount: %v", err)
	}

	in := service.GoalInput{
		Title:             req.Title,
		TargetAmountMinor: target.Amount(),
		Currency:          currency,
	}
	if req.Deadline != nil && *req.Deadline != "" {
		d, err := interceptors.ParseDate(*req.Deadline)
		if err != nil {
			return service.GoalInput{}, err
		}
		in.Deadline = &d
	}
	return in, nil
}
