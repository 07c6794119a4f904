// Package handler exposes the authenticated user's profile over HTTP.
package handler

import (
	"net/http"

	"github.com/FACorreiaa/finance-assistant/internal/domain/user/repository"
	"github.com/FACorreiaa/finance-assistant/pkg/interceptors"
)

// UserHandler serves /me.
type UserHandler struct {
	repo repository.UserRepository
}

// NewUserHandler constructs a new handler.
func NewUserHandler(repo repository.UserRepository) *UserHandler {
	return &UserHandler{repo: repo}
}

// GetMe returns the caller's profile.
func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	userID, err := interceptors.UserID(r.Context())
	if err != nil {
		interceptors.WriteError(w, r, err)
		return
	}

	u, err := h.repo.GetByID(r.Context(), userID)
	if err != nil {
		interceptors.WriteError(w, r, err)
		return
	}
	interceptors.WriteJSON(w, http.StatusOK, u)
}
