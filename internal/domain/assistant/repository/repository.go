// Package repository persists conversations, chat messages, context snapshots
// and the AI exchange log.
package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Role is the author of a chat message
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Conversation groups the messages of one chat thread
type Conversation struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"-"`
	Title     *string   `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ChatMessage is one turn of a conversation. Seq is dense and starts at 1.
type ChatMessage struct {
	ID             uuid.UUID `json:"id"`
	ConversationID uuid.UUID `json:"conversationId"`
	Seq            int       `json:"seq"`
	Role           Role      `json:"role"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"createdAt"`
}

// ContextSnapshot is a stored grounding payload addressed by a random contextId
type ContextSnapshot struct {
	ID             uuid.UUID
	UserID         uuid.UUID
	ConversationID *uuid.UUID
	Payload        json.RawMessage
	CreatedAt      time.Time
	ExpiresAt      time.Time
}

// ExchangeStatus records whether a model call succeeded
type ExchangeStatus string

const (
	ExchangeOK     ExchangeStatus = "ok"
	ExchangeFailed ExchangeStatus = "failed"
)

// Exchange is one logged model call
type Exchange struct {
	ID             uuid.UUID
	UserID         uuid.UUID
	ConversationID *uuid.UUID
	Model          string
	Status         ExchangeStatus
	Latency        time.Duration
	PromptBytes    int
	ResponseBytes  int
	Error          *string
	CreatedAt      time.Time
}

// AssistantRepository defines persistence for the conversation manager.
// Conversation reads are scoped to the owning user.
type AssistantRepository interface {
	CreateConversation(ctx context.Context, c *Conversation) error
	GetConversation(ctx context.Context, userID, id uuid.UUID) (*Conversation, error)
	ListConversations(ctx context.Context, userID uuid.UUID) ([]*Conversation, error)

	// AppendMessage assigns the next seq and bumps the conversation's updated_at
	AppendMessage(ctx context.Context, msg *ChatMessage) error
	// ListMessages returns the last limit messages in seq order; limit <= 0 returns all
	ListMessages(ctx context.Context, conversationID uuid.UUID, limit int) ([]*ChatMessage, error)

	SaveSnapshot(ctx context.Context, s *ContextSnapshot) error
	// GetSnapshot returns NotFound for unknown, foreign or expired snapshots
	GetSnapshot(ctx context.Context, userID, id uuid.UUID, now time.Time) (*ContextSnapshot, error)
	DeleteExpiredSnapshots(ctx context.Context, now time.Time) (int64, error)

	LogExchange(ctx context.Context, e *Exchange) error
}
