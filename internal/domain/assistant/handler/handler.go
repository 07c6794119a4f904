// Package handler exposes the AI assistant chat over HTTP.
package handler

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/FACorreiaa/finance-assistant/internal/domain/assistant/repository"
	"github.com/FACorreiaa/finance-assistant/internal/domain/assistant/service"
	"github.com/FACorreiaa/finance-assistant/pkg/apperrors"
	"github.com/FACorreiaa/finance-assistant/pkg/interceptors"
)

// AssistantHandler serves /ai-assistant chat and conversation routes
type AssistantHandler struct {
	svc *service.Service
}

// NewAssistantHandler creates a new handler
func NewAssistantHandler(svc *service.Service) *AssistantHandler {
	return &AssistantHandler{svc: svc}
}

type chatRequest struct {
	Message        string  `json:"message"`
	ContextID      string  `json:"contextId"`
	ConversationID *string `json:"conversationId"`
}

// Chat handles POST /ai-assistant/chat
func (h *AssistantHandler) Chat(w http.ResponseWriter, r *http.Request) {
	userID, err := interceptors.UserID(r.Context())
	if err != nil {
		interceptors.WriteError(w, r, err)
		return
	}

	var req chatRequest
	if err := interceptors.DecodeJSON(r, &req); err != nil {
		interceptors.WriteError(w, r, err)
		return
	}

	in := service.SendMessageInput{Message: req.Message, ContextID: req.ContextID}
	if req.ConversationID != nil && *req.ConversationID != "" {
		id, err := uuid.Parse(*req.ConversationID)
		if err != nil {
			interceptors.WriteError(w, r, apperrors.NotFound("conversation"))
			return
		}
		in.ConversationID = &id
	}

	resp, err := h.svc.SendMessage(r.Context(), userID, in)
	if err != nil {
		interceptors.WriteError(w, r, err)
		return
	}
	interceptors.WriteJSON(w, http.StatusOK, resp)
}

// ListConversations handles GET /ai-assistant/conversations
func (h *AssistantHandler) ListConversations(w http.ResponseWriter, r *http.Request) {
	userID, err := interceptors.UserID(r.Context())
	if err != nil {
		interceptors.WriteError(w, r, err)
		return
	}

	convs, err := h.svc.ListConversations(r.Context(), userID)
	if err != nil {
		interceptors.WriteError(w, r, err)
		return
	}
	if convs == nil {
		convs = []*repository.Conversation{}
	}
	interceptors.WriteJSON(w, http.StatusOK, map[string]any{"conversations": convs})
}

// GetConversation handles GET /ai-assistant/conversations/{id}
func (h *AssistantHandler) GetConversation(w http.ResponseWriter, r *http.Request) {
	userID, err := interceptors.UserID(r.Context())
	if err != nil {
		interceptors.WriteError(w, r, err)
		return
	}
	id, err := interceptors.PathUUID(r, "id")
	if err != nil {
		interceptors.WriteError(w, r, apperrors.NotFound("conversation"))
		return
	}

	detail, err := h.svc.GetConversation(r.Context(), userID, id)
	if err != nil {
		interceptors.WriteError(w, r, err)
		return
	}
	interceptors.WriteJSON(w, http.StatusOK, detail)
}
