package conversations

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

// Create inserts a new conversation.
func (r *PGRepo) Create(ctx context.Context, conv Conversation) error {
	const query = `
INSERT INTO conversations (id, tenant_id, user_id, current_project_id, context, last_message_at, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

	var contextJSON []byte
	if conv.Context != nil {
		raw, err := json.Marshal(conv.Context)
		if err != nil {
			return fmt.Errorf("marshal conversation context: %w", err)
		}
		contextJSON = raw
	}

	_, err := r.DB.ExecContext(
		ctx,
		query,
		conv.ID,
		nullable(conv.TenantID),
		nullable(conv.UserID),
		nullable(conv.CurrentProjectID),
		contextJSON,
		conv.LastMessageAt,
		conv.CreatedAt,
	)
	return err
}

// GetByID returns a conversation by id.
func (r *PGRepo) GetByID(ctx context.Context, conversationID string) (Conversation, error) {
	const query = `
SELECT id, tenant_id, user_id, current_project_id, context, last_message_at, created_at
FROM conversations
WHERE id = $1`
	return scanConversation(r.DB.QueryRowContext(ctx, query, conversationID))
}

// GetLatestByUser returns the user's most recently active conversation.
func (r *PGRepo) GetLatestByUser(ctx context.Context, userID string) (Conversation, error) {
	const query = `
SELECT id, tenant_id, user_id, current_project_id, context, last_message_at, created_at
FROM conversations
WHERE user_id = $1
ORDER BY last_message_at DESC
LIMIT 1`
	return scanConversation(r.DB.QueryRowContext(ctx, query, userID))
}

// Touch bumps the conversation's last activity timestamp.
func (r *PGRepo) Touch(ctx context.Context, conversationID string, at time.Time) error {
	const query = `UPDATE conversations SET last_message_at = $1 WHERE id = $2`
	_, err := r.DB.ExecContext(ctx, query, at, conversationID)
	return err
}

// AddMessage inserts one message row.
func (r *PGRepo) AddMessage(ctx context.Context, msg Message) error {
	const query = `
INSERT INTO messages (id, conversation_id, tenant_id, direction, message_type, content, whatsapp_message_id, processing_time_ms, agent_model, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	var processingTime sql.NullInt64
	if msg.ProcessingTimeMs > 0 {
		processingTime = sql.NullInt64{Int64: int64(msg.ProcessingTimeMs), Valid: true}
	}

	_, err := r.DB.ExecContext(
		ctx,
		query,
		msg.ID,
		msg.ConversationID,
		nullable(msg.TenantID),
		msg.Direction,
		msg.MessageType,
		msg.Content,
		nullable(msg.WhatsAppMessageID),
		processingTime,
		nullable(msg.AgentModel),
		msg.CreatedAt,
	)
	return err
}

func scanConversation(row *sql.Row) (Conversation, error) {
	var conv Conversation
	var tenantID, userID, projectID sql.NullString
	var contextJSON []byte
	err := row.Scan(&conv.ID, &tenantID, &userID, &projectID, &contextJSON, &conv.LastMessageAt, &conv.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Conversation{}, ErrNotFound
		}
		return Conversation{}, err
	}
	if tenantID.Valid {
		conv.TenantID = tenantID.String
	}
	if userID.Valid {
		conv.UserID = userID.String
	}
	if projectID.Valid {
		conv.CurrentProjectID = projectID.String
	}
	if len(contextJSON) > 0 {
		if err := json.Unmarshal(contextJSON, &conv.Context); err != nil {
			return Conversation{}, fmt.Errorf("unmarshal conversation context: %w", err)
		}
	}
	return conv, nil
}

func nullable(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

var _ Repo = (*PGRepo)(nil)
