package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/FACorreiaa/finance-assistant/pkg/apperrors"
	"github.com/FACorreiaa/finance-assistant/pkg/db"
)

// PostgresAssistantRepository implements AssistantRepository using PostgreSQL
type PostgresAssistantRepository struct {
	pool db.Querier
}

// NewPostgresAssistantRepository creates a new repository
func NewPostgresAssistantRepository(pool db.Querier) *PostgresAssistantRepository {
	return &PostgresAssistantRepository{pool: pool}
}

func (r *PostgresAssistantRepository) CreateConversation(ctx context.Context, c *Conversation) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	query := `
		INSERT INTO conversations (id, user_id, title)
		VALUES ($1, $2, $3)
		RETURNING created_at, updated_at`
	if err := r.pool.QueryRow(ctx, query, c.ID, c.UserID, c.Title).Scan(&c.CreatedAt, &c.UpdatedAt); err != nil {
		return fmt.Errorf("failed to create conversation: %w", err)
	}
	return nil
}

func (r *PostgresAssistantRepository) GetConversation(ctx context.Context, userID, id uuid.UUID) (*Conversation, error) {
	query := `
		SELECT id, user_id, title, created_at, updated_at
		FROM conversations
		WHERE id = $1 AND user_id = $2`

	c := &Conversation{}
	err := r.pool.QueryRow(ctx, query, id, userID).Scan(&c.ID, &c.UserID, &c.Title, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFound("conversation")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	return c, nil
}

func (r *PostgresAssistantRepository) ListConversations(ctx context.Context, userID uuid.UUID) ([]*Conversation, error) {
	query := `
		SELECT id, user_id, title, created_at, updated_at
		FROM conversations
		WHERE user_id = $1
		ORDER BY updated_at DESC, id DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer rows.Close()

	var out []*Conversation
	for rows.Next() {
		c := &Conversation{}
		if err := rows.Scan(&c.ID, &c.UserID, &c.Title, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// AppendMessage locks the conversation row so concurrent appends get distinct seq values
func (r *PostgresAssistantRepository) AppendMessage(ctx context.Context, msg *ChatMessage) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var locked uuid.UUID
	err = tx.QueryRow(ctx, `SELECT id FROM conversations WHERE id = $1 FOR UPDATE`, msg.ConversationID).Scan(&locked)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NotFound("conversation")
	}
	if err != nil {
		return fmt.Errorf("failed to lock conversation: %w", err)
	}

	var seq int
	err = tx.QueryRow(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM chat_messages WHERE conversation_id = $1`, msg.ConversationID).Scan(&seq)
	if err != nil {
		return fmt.Errorf("failed to read next seq: %w", err)
	}

	if msg.ID == uuid.Nil {
		msg.ID = uuid.New()
	}
	msg.Seq = seq
	insert := `
		INSERT INTO chat_messages (id, conversation_id, seq, role, content)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`
	if err := tx.QueryRow(ctx, insert, msg.ID, msg.ConversationID, msg.Seq, string(msg.Role), msg.Content).Scan(&msg.CreatedAt); err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}

	if _, err := tx.Exec(ctx, `UPDATE conversations SET updated_at = now() WHERE id = $1`, msg.ConversationID); err != nil {
		return fmt.Errorf("failed to touch conversation: %w", err)
	}
	return tx.Commit(ctx)
}

func (r *PostgresAssistantRepository) ListMessages(ctx context.Context, conversationID uuid.UUID, limit int) ([]*ChatMessage, error) {
	query := `
		SELECT id, conversation_id, seq, role, content, created_at
		FROM chat_messages
		WHERE conversation_id = $1
		ORDER BY seq ASC`
	args := []any{conversationID}
	if limit > 0 {
		query = `
		SELECT id, conversation_id, seq, role, content, created_at FROM (
			SELECT id, conversation_id, seq, role, content, created_at
			FROM chat_messages
			WHERE conversation_id = $1
			ORDER BY seq DESC
			LIMIT $2
		) recent
		ORDER BY seq ASC`
		args = append(args, limit)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	var out []*ChatMessage
	for rows.Next() {
		m := &ChatMessage{}
		var role string
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Seq, &role, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		m.Role = Role(role)
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *PostgresAssistantRepository) SaveSnapshot(ctx context.Context, s *ContextSnapshot) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	query := `
		INSERT INTO context_snapshots (id, user_id, conversation_id, payload, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`
	err := r.pool.QueryRow(ctx, query, s.ID, s.UserID, s.ConversationID, []byte(s.Payload), s.ExpiresAt).Scan(&s.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save context snapshot: %w", err)
	}
	return nil
}

func (r *PostgresAssistantRepository) GetSnapshot(ctx context.Context, userID, id uuid.UUID, now time.Time) (*ContextSnapshot, error) {
	query := `
		SELECT id, user_id, conversation_id, payload, created_at, expires_at
		FROM context_snapshots
		WHERE id = $1 AND user_id = $2 AND expires_at > $3`

	s := &ContextSnapshot{}
	var payload []byte
	err := r.pool.QueryRow(ctx, query, id, userID, now).Scan(&s.ID, &s.UserID, &s.ConversationID, &payload, &s.CreatedAt, &s.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFound("context")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get context snapshot: %w", err)
	}
	s.Payload = payload
	return s, nil
}

func (r *PostgresAssistantRepository) DeleteExpiredSnapshots(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.pool.Exec(ctx, `DELETE FROM context_snapshots WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired snapshots: %w", err)
	}
	return result.RowsAffected(), nil
}

func (r *PostgresAssistantRepository) LogExchange(ctx context.Context, e *Exchange) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	query := `
		INSERT INTO ai_exchanges (id, user_id, conversation_id, model, status, latency_ms, prompt_bytes, response_bytes, error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.pool.Exec(ctx, query,
		e.ID,
		e.UserID,
		e.ConversationID,
		e.Model,
		string(e.Status),
		e.Latency.Milliseconds(),
		e.PromptBytes,
		e.ResponseBytes,
		e.Error,
	)
	if err != nil {
		return fmt.Errorf("failed to log exchange: %w", err)
	}
	return nil
}

var _ AssistantRepository = (*PostgresAssistantRepository)(nil)
