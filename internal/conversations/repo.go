package conversations

import (
	"context"
	"time"
)

// Repo defines persistence operations for conversations and their messages.
type Repo interface {
	Create(ctx context.Context, conv Conversation) error
	GetByID(ctx context.Context, conversationID string) (Conversation, error)
	// GetLatestByUser returns the user's most recently active conversation.
	GetLatestByUser(ctx context.Context, userID string) (Conversation, error)
	Touch(ctx context.Context, conversationID string, at time.Time) error
	AddMessage(ctx context.Context, msg Message) error
}
