// Package service implements the AI assistant: context building, the
// conversation manager and the grounded prompt sent to the gateway.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/finance-assistant/internal/domain/assistant/gateway"
	"github.com/FACorreiaa/finance-assistant/internal/domain/assistant/repository"
	"github.com/FACorreiaa/finance-assistant/pkg/apperrors"
)

const (
	MaxMessageLength = 4000
	titleLength      = 60
)

// Config bounds a conversation turn
type Config struct {
	HistoryLimit int
	ContextTTL   time.Duration
}

// SendMessageInput is one user turn. ContextID and ConversationID are optional.
type SendMessageInput struct {
	Message        string
	ContextID      string
	ConversationID *uuid.UUID
}

// ConversationResponse is the result of a successful turn
type ConversationResponse struct {
	ConversationID   uuid.UUID               `json:"conversationId"`
	ContextID        uuid.UUID               `json:"contextId"`
	ContextTruncated bool                    `json:"contextTruncated"`
	UserMessage      *repository.ChatMessage `json:"userMessage"`
	Reply            *repository.ChatMessage `json:"reply"`
}

// ConversationDetail is a conversation with its full history
type ConversationDetail struct {
	*repository.Conversation
	Messages []*repository.ChatMessage `json:"messages"`
}

// Service is the conversation manager
type Service struct {
	repo     repository.AssistantRepository
	contexts *ContextBuilder
	gateway  gateway.Gateway
	cfg      Config
	logger   *slog.Logger
	tracer   trace.Tracer
	turns    *prometheus.CounterVec
	now      func() time.Time
}

// NewService creates the conversation manager. reg may be nil.
func NewService(repo repository.AssistantRepository, contexts *ContextBuilder, gw gateway.Gateway, cfg Config, reg prometheus.Registerer, logger *slog.Logger) *Service {
	s := &Service{
		repo:     repo,
		contexts: contexts,
		gateway:  gw,
		cfg:      cfg,
		logger:   logger,
		tracer:   otel.Tracer("assistant/service"),
		turns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "assistant_turns_total",
			Help: "Assistant conversation turns by outcome.",
		}, []string{"outcome"}),
		now: time.Now,
	}
	if reg != nil {
		reg.MustRegister(s.turns)
	}
	return s
}

// TurnError is a failed turn whose user message was kept. Sending the same
// message with these ids resumes the conversation instead of starting another.
type TurnError struct {
	ConversationID uuid.UUID
	ContextID      uuid.UUID
	Err            error
}

func (e *TurnError) Error() string { return e.Err.Error() }

func (e *TurnError) Unwrap() error { return e.Err }

// ErrorDetails is written into the error response body
func (e *TurnError) ErrorDetails() any {
	return map[string]string{
		"conversationId": e.ConversationID.String(),
		"contextId":      e.ContextID.String(),
	}
}

func validateMessage(msg string) (string, error) {
	msg = strings.TrimSpace(msg)
	if msg == "" {
		return "", apperrors.Validation("message is required")
	}
	if utf8.RuneCountInString(msg) > MaxMessageLength {
		return "", apperrors.Validation("message must be at most %d characters", MaxMessageLength)
	}
	return msg, nil
}

// SendMessage appends the user's message, asks the gateway for a grounded
// reply and appends it. The user message is persisted before the gateway is
// called, so a failed turn keeps it and a retry with the same text resumes.
func (s *Service) SendMessage(ctx context.Context, userID uuid.UUID, in SendMessageInput) (*ConversationResponse, error) {
	ctx, span := s.tracer.Start(ctx, "assistant.SendMessage", trace.WithAttributes(
		attribute.String("user_id", userID.String()),
	))
	defer span.End()

	msg, err := validateMessage(in.Message)
	if err != nil {
		return nil, err
	}

	snap, err := s.liveSnapshot(ctx, userID, in.ContextID)
	if err != nil {
		return nil, err
	}

	conv, err := s.resolveConversation(ctx, userID, in.ConversationID, snap, msg)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("conversation_id", conv.ID.String()))

	userMsg, err := s.appendUserMessage(ctx, conv.ID, msg)
	if err != nil {
		return nil, err
	}

	if snap == nil {
		if snap, err = s.freshSnapshot(ctx, userID, conv.ID); err != nil {
			return nil, err
		}
	}

	history, err := s.repo.ListMessages(ctx, conv.ID, s.cfg.HistoryLimit)
	if err != nil {
		return nil, err
	}
	prompt := buildPrompt(snap.Payload, history)

	start := time.Now()
	text, err := s.gateway.Complete(ctx, prompt)
	exchange := &repository.Exchange{
		UserID:         userID,
		ConversationID: &conv.ID,
		Model:          s.gateway.Model(),
		Status:         repository.ExchangeOK,
		Latency:        time.Since(start),
		PromptBytes:    prompt.Size(),
		ResponseBytes:  len(text),
	}
	if err != nil {
		exchange.Status = repository.ExchangeFailed
		reason := err.Error()
		exchange.Error = &reason
		s.logExchange(ctx, exchange)
		s.turns.WithLabelValues("upstream_error").Inc()
		s.logger.WarnContext(ctx, "assistant gateway failed",
			slog.String("conversation_id", conv.ID.String()),
			slog.Any("error", err),
		)
		return nil, &TurnError{
			ConversationID: conv.ID,
			ContextID:      snap.ID,
			Err:            apperrors.Upstream("assistant is unavailable, retry later", err),
		}
	}
	s.logExchange(ctx, exchange)

	reply := &repository.ChatMessage{ConversationID: conv.ID, Role: repository.RoleAssistant, Content: text}
	if err := s.repo.AppendMessage(ctx, reply); err != nil {
		return nil, err
	}
	s.turns.WithLabelValues("ok").Inc()

	return &ConversationResponse{
		ConversationID:   conv.ID,
		ContextID:        snap.ID,
		ContextTruncated: payloadTruncated(snap.Payload),
		UserMessage:      userMsg,
		Reply:            reply,
	}, nil
}

// liveSnapshot returns the stored snapshot for contextID, or nil when the id
// is empty, malformed, unknown, expired or owned by someone else.
func (s *Service) liveSnapshot(ctx context.Context, userID uuid.UUID, contextID string) (*repository.ContextSnapshot, error) {
	contextID = strings.TrimSpace(contextID)
	if contextID == "" {
		return nil, nil
	}
	id, err := uuid.Parse(contextID)
	if err != nil {
		return nil, nil
	}
	snap, err := s.repo.GetSnapshot(ctx, userID, id, s.now())
	if errors.Is(err, apperrors.ErrNotFound) {
		s.logger.DebugContext(ctx, "context snapshot unavailable, rebuilding", slog.String("context_id", contextID))
		return nil, nil
	}
	return snap, err
}

func (s *Service) resolveConversation(ctx context.Context, userID uuid.UUID, explicit *uuid.UUID, snap *repository.ContextSnapshot, msg string) (*repository.Conversation, error) {
	if explicit != nil {
		return s.repo.GetConversation(ctx, userID, *explicit)
	}
	if snap != nil && snap.ConversationID != nil {
		conv, err := s.repo.GetConversation(ctx, userID, *snap.ConversationID)
		if err == nil {
			return conv, nil
		}
		if !errors.Is(err, apperrors.ErrNotFound) {
			return nil, err
		}
	}

	title := msg
	if utf8.RuneCountInString(title) > titleLength {
		title = string([]rune(title)[:titleLength])
	}
	conv := &repository.Conversation{UserID: userID, Title: &title}
	if err := s.repo.CreateConversation(ctx, conv); err != nil {
		return nil, err
	}
	return conv, nil
}

func (s *Service) freshSnapshot(ctx context.Context, userID, conversationID uuid.UUID) (*repository.ContextSnapshot, error) {
	built, err := s.contexts.Build(ctx, userID)
	if err != nil {
		return nil, err
	}
	payload, err := built.Encode()
	if err != nil {
		return nil, err
	}
	snap := &repository.ContextSnapshot{
		UserID:         userID,
		ConversationID: &conversationID,
		Payload:        payload,
		ExpiresAt:      s.now().Add(s.cfg.ContextTTL),
	}
	if err := s.repo.SaveSnapshot(ctx, snap); err != nil {
		return nil, err
	}
	return snap, nil
}

// appendUserMessage reuses a trailing unanswered message with the same text
func (s *Service) appendUserMessage(ctx context.Context, conversationID uuid.UUID, msg string) (*repository.ChatMessage, error) {
	last, err := s.repo.ListMessages(ctx, conversationID, 1)
	if err != nil {
		return nil, err
	}
	if len(last) == 1 && last[0].Role == repository.RoleUser && last[0].Content == msg {
		return last[0], nil
	}

	userMsg := &repository.ChatMessage{ConversationID: conversationID, Role: repository.RoleUser, Content: msg}
	if err := s.repo.AppendMessage(ctx, userMsg); err != nil {
		return nil, err
	}
	return userMsg, nil
}

func (s *Service) logExchange(ctx context.Context, e *repository.Exchange) {
	if err := s.repo.LogExchange(ctx, e); err != nil {
		s.logger.ErrorContext(ctx, "failed to log ai exchange", slog.Any("error", err))
	}
}

func payloadTruncated(payload []byte) bool {
	var head struct {
		Truncated bool `json:"truncated"`
	}
	if err := json.Unmarshal(payload, &head); err != nil {
		return false
	}
	return head.Truncated
}

// ListConversations returns the user's conversations, most recently active first
func (s *Service) ListConversations(ctx context.Context, userID uuid.UUID) ([]*repository.Conversation, error) {
	return s.repo.ListConversations(ctx, userID)
}

// GetConversation returns a conversation owned by userID with its full history
func (s *Service) GetConversation(ctx context.Context, userID, id uuid.UUID) (*ConversationDetail, error) {
	conv, err := s.repo.GetConversation(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	msgs, err := s.repo.ListMessages(ctx, id, 0)
	if err != nil {
		return nil, err
	}
	if msgs == nil {
		msgs = []*repository.ChatMessage{}
	}
	return &ConversationDetail{Conversation: conv, Messages: msgs}, nil
}

// PurgeExpiredContexts deletes snapshots past their TTL
func (s *Service) PurgeExpiredContexts(ctx context.Context) (int64, error) {
	return s.repo.DeleteExpiredSnapshots(ctx, s.now())
}
