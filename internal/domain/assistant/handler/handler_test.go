package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/finance-assistant/internal/domain/assistant/gateway"
	"github.com/FACorreiaa/finance-assistant/internal/domain/assistant/repository"
	"github.com/FACorreiaa/finance-assistant/internal/domain/assistant/service"
	goalrepo "github.com/FACorreiaa/finance-assistant/internal/domain/goals/repository"
	goalservice "github.com/FACorreiaa/finance-assistant/internal/domain/goals/service"
	ledgerrepo "github.com/FACorreiaa/finance-assistant/internal/domain/ledger/repository"
	txrepo "github.com/FACorreiaa/finance-assistant/internal/domain/transactions/repository"
	txservice "github.com/FACorreiaa/finance-assistant/internal/domain/transactions/service"
	"github.com/FACorreiaa/finance-assistant/pkg/interceptors"
)

type allUsers struct{}

func (allUsers) Exists(context.Context, uuid.UUID) (bool, error) { return true, nil }

type scriptedGateway struct {
	err error
}

func (g *scriptedGateway) Model() string { return "scripted" }

func (g *scriptedGateway) Complete(_ context.Context, p gateway.Prompt) (string, error) {
	if g.err != nil {
		return "", g.err
	}
	return "echo: " + p.Turns[len(p.Turns)-1].Text, nil
}

func newRouter(gw gateway.Gateway) http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ledger := ledgerrepo.NewMemoryLedgerRepository()
	txSvc := txservice.NewService(txrepo.NewMemoryTransactionRepository(), allUsers{}, ledger, "EUR", logger)
	goals := goalservice.NewService(goalrepo.NewMemoryGoalRepository(), "EUR", logger)
	builder := service.NewContextBuilder(txSvc, goals, ledger, 50, 16*1024)
	svc := service.NewService(repository.NewMemoryAssistantRepository(), builder, gw,
		service.Config{HistoryLimit: 20, ContextTTL: time.Hour}, nil, logger)
	h := NewAssistantHandler(svc)

	r := chi.NewRouter()
	r.Post("/ai-assistant/chat", h.Chat)
	r.Get("/ai-assistant/conversations", h.ListConversations)
	r.Get("/ai-assistant/conversations/{id}", h.GetConversation)
	return r
}

func do(t *testing.T, router http.Handler, userID uuid.UUID, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	req = req.WithContext(interceptors.WithUserID(req.Context(), userID.String()))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestChatRoundTrip(t *testing.T) {
	router := newRouter(&scriptedGateway{})
	userID := uuid.New()

	rec := do(t, router, userID, http.MethodPost, "/ai-assistant/chat", `{"message":"hello"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp service.ConversationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "echo: hello", resp.Reply.Content)

	rec = do(t, router, userID, http.MethodPost, "/ai-assistant/chat",
		`{"message":"again","contextId":"`+resp.ContextID.String()+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, router, userID, http.MethodGet, "/ai-assistant/conversations", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Conversations []repository.Conversation `json:"conversations"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Conversations, 1)

	rec = do(t, router, userID, http.MethodGet, "/ai-assistant/conversations/"+resp.ConversationID.String(), "")
	require.Equal(t, http.StatusOK, rec.Code)
	var detail struct {
		ID       uuid.UUID                `json:"id"`
		Title    string                   `json:"title"`
		Messages []repository.ChatMessage `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &detail))
	assert.Equal(t, resp.ConversationID, detail.ID)
	assert.Equal(t, "hello", detail.Title)
	require.Len(t, detail.Messages, 4)
	assert.Equal(t, "echo: again", detail.Messages[3].Content)
}

func TestChatGatewayFailure(t *testing.T) {
	gw := &scriptedGateway{err: errors.New("unreachable")}
	router := newRouter(gw)
	userID := uuid.New()

	rec := do(t, router, userID, http.MethodPost, "/ai-assistant/chat", `{"message":"hello"}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), `"kind":"upstream"`)

	rec = do(t, router, userID, http.MethodGet, "/ai-assistant/conversations", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Conversations []repository.Conversation `json:"conversations"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Conversations, 1)

	rec = do(t, router, userID, http.MethodGet, "/ai-assistant/conversations/"+list.Conversations[0].ID.String(), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"content":"hello"`)
}

func TestChatGatewayFailureReturnsResumeIDs(t *testing.T) {
	gw := &scriptedGateway{err: errors.New("unreachable")}
	router := newRouter(gw)
	userID := uuid.New()

	rec := do(t, router, userID, http.MethodPost, "/ai-assistant/chat", `{"message":"hello"}`)
	require.Equal(t, http.StatusBadGateway, rec.Code)
	var failed struct {
		Kind    string `json:"kind"`
		Details struct {
			ConversationID string `json:"conversationId"`
			ContextID      string `json:"contextId"`
		} `json:"details"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &failed))
	assert.Equal(t, "upstream", failed.Kind)
	require.NotEmpty(t, failed.Details.ConversationID)

	gw.err = nil
	rec = do(t, router, userID, http.MethodPost, "/ai-assistant/chat",
		`{"message":"hello","conversationId":"`+failed.Details.ConversationID+`","contextId":"`+failed.Details.ContextID+`"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp service.ConversationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, failed.Details.ConversationID, resp.ConversationID.String())

	rec = do(t, router, userID, http.MethodGet, "/ai-assistant/conversations/"+failed.Details.ConversationID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var detail struct {
		Messages []repository.ChatMessage `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &detail))
	require.Len(t, detail.Messages, 2)
	assert.Equal(t, "echo: hello", detail.Messages[1].Content)

	rec = do(t, router, userID, http.MethodGet, "/ai-assistant/conversations", "")
	var list struct {
		Conversations []repository.Conversation `json:"conversations"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list.Conversations, 1)
}

func TestChatErrors(t *testing.T) {
	router := newRouter(&scriptedGateway{})
	userID := uuid.New()

	rec := do(t, router, userID, http.MethodPost, "/ai-assistant/chat", `{"message":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, userID, http.MethodPost, "/ai-assistant/chat", `{"message":"hi","conversationId":"nope"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, router, userID, http.MethodGet, "/ai-assistant/conversations/"+uuid.NewString(), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, router, userID, http.MethodGet, "/ai-assistant/conversations", "")
	assert.JSONEq(t, `{"conversations":[]}`, rec.Body.String())
}
