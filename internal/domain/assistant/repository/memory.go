package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/FACorreiaa/finance-assistant/pkg/apperrors"
)

// MemoryAssistantRepository is an in-process AssistantRepository
type MemoryAssistantRepository struct {
	mu            sync.Mutex
	conversations map[uuid.UUID]*Conversation
	messages      map[uuid.UUID][]*ChatMessage
	snapshots     map[uuid.UUID]*ContextSnapshot
	exchanges     []*Exchange
	// tick orders conversations touched within the same clock reading
	tick time.Duration
}

// NewMemoryAssistantRepository creates an empty repository
func NewMemoryAssistantRepository() *MemoryAssistantRepository {
	return &MemoryAssistantRepository{
		conversations: make(map[uuid.UUID]*Conversation),
		messages:      make(map[uuid.UUID][]*ChatMessage),
		snapshots:     make(map[uuid.UUID]*ContextSnapshot),
	}
}

func (r *MemoryAssistantRepository) now() time.Time {
	r.tick += time.Microsecond
	return time.Now().Add(r.tick)
}

func (r *MemoryAssistantRepository) CreateConversation(_ context.Context, c *Conversation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	now := r.now()
	c.CreatedAt, c.UpdatedAt = now, now
	cp := *c
	r.conversations[c.ID] = &cp
	return nil
}

func (r *MemoryAssistantRepository) GetConversation(_ context.Context, userID, id uuid.UUID) (*Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.conversations[id]
	if !ok || c.UserID != userID {
		return nil, apperrors.NotFound("conversation")
	}
	cp := *c
	return &cp, nil
}

func (r *MemoryAssistantRepository) ListConversations(_ context.Context, userID uuid.UUID) ([]*Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*Conversation
	for _, c := range r.conversations {
		if c.UserID == userID {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID.String() > out[j].ID.String()
	})
	return out, nil
}

func (r *MemoryAssistantRepository) AppendMessage(_ context.Context, msg *ChatMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.conversations[msg.ConversationID]
	if !ok {
		return apperrors.NotFound("conversation")
	}
	if msg.ID == uuid.Nil {
		msg.ID = uuid.New()
	}
	msg.Seq = len(r.messages[msg.ConversationID]) + 1
	msg.CreatedAt = r.now()
	c.UpdatedAt = msg.CreatedAt
	cp := *msg
	r.messages[msg.ConversationID] = append(r.messages[msg.ConversationID], &cp)
	return nil
}

func (r *MemoryAssistantRepository) ListMessages(_ context.Context, conversationID uuid.UUID, limit int) ([]*ChatMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	src := r.messages[conversationID]
	if limit > 0 && len(src) > limit {
		src = src[len(src)-limit:]
	}
	out := make([]*ChatMessage, 0, len(src))
	for _, m := range src {
		cp := *m
		out = append(out, &cp)
	}
	return out, nil
}

func (r *MemoryAssistantRepository) SaveSnapshot(_ context.Context, s *ContextSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	s.CreatedAt = time.Now()
	cp := *s
	r.snapshots[s.ID] = &cp
	return nil
}

func (r *MemoryAssistantRepository) GetSnapshot(_ context.Context, userID, id uuid.UUID, now time.Time) (*ContextSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.snapshots[id]
	if !ok || s.UserID != userID || !s.ExpiresAt.After(now) {
		return nil, apperrors.NotFound("context")
	}
	cp := *s
	return &cp, nil
}

func (r *MemoryAssistantRepository) DeleteExpiredSnapshots(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, s := range r.snapshots {
		if !s.ExpiresAt.After(now) {
			delete(r.snapshots, id)
			n++
		}
	}
	return n, nil
}

func (r *MemoryAssistantRepository) LogExchange(_ context.Context, e *Exchange) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	e.CreatedAt = time.Now()
	cp := *e
	r.exchanges = append(r.exchanges, &cp)
	return nil
}

// Exchanges returns the logged exchanges in insertion order
func (r *MemoryAssistantRepository) Exchanges() []*Exchange {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Exchange, len(r.exchanges))
	copy(out, r.exchanges)
	return out
}

var _ AssistantRepository = (*MemoryAssistantRepository)(nil)
