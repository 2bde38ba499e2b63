package conversations

import (
	"context"
	"sync"
	"time"
)

// MemoryRepo stores conversations in memory and is safe for concurrent use.
type MemoryRepo struct {
	mu       sync.RWMutex
	byID     map[string]Conversation
	messages map[string][]Message
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		byID:     make(map[string]Conversation),
		messages: make(map[string][]Message),
	}
}

// Create stores the conversation.
func (r *MemoryRepo) Create(ctx context.Context, conv Conversation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[conv.ID] = conv
	return nil
}

// GetByID returns a conversation by id.
func (r *MemoryRepo) GetByID(ctx context.Context, conversationID string) (Conversation, error) {
	if err := ctx.Err(); err != nil {
		return Conversation{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	conv, ok := r.byID[conversationID]
	if !ok {
		return Conversation{}, ErrNotFound
	}
	return conv, nil
}

// GetLatestByUser returns the user's most recently active conversation.
func (r *MemoryRepo) GetLatestByUser(ctx context.Context, userID string) (Conversation, error) {
	if err := ctx.Err(); err != nil {
		return Conversation{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var best Conversation
	found := false
	for _, conv := range r.byID {
		if conv.UserID != userID {
			continue
		}
		if !found || conv.LastMessageAt.After(best.LastMessageAt) {
			best = conv
			found = true
		}
	}
	if !found {
		return Conversation{}, ErrNotFound
	}
	return best, nil
}

// Touch bumps the conversation's last activity timestamp.
func (r *MemoryRepo) Touch(ctx context.Context, conversationID string, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	conv, ok := r.byID[conversationID]
	if !ok {
		return ErrNotFound
	}
	conv.LastMessageAt = at
	r.byID[conversationID] = conv
	return nil
}

// AddMessage appends one message to the conversation's history.
func (r *MemoryRepo) AddMessage(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages[msg.ConversationID] = append(r.messages[msg.ConversationID], msg)
	return nil
}

// MessagesByConversation returns a copy of the stored messages; used by tests.
func (r *MemoryRepo) MessagesByConversation(conversationID string) []Message {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Message(nil), r.messages[conversationID]...)
}

var _ Repo = (*MemoryRepo)(nil)
