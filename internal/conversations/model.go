package conversations

import (
	"errors"
	"time"
)

// ErrNotFound indicates the conversation does not exist.
var ErrNotFound = errors.New("conversation not found")

// Message directions.
const (
	DirectionInbound  = "inbound"
	DirectionOutbound = "outbound"
)

// Conversation is one WhatsApp thread. TenantID and UserID may be empty for
// threads started by unknown numbers awaiting onboarding.
type Conversation struct {
	ID               string         `json:"id"`
	TenantID         string         `json:"tenantId,omitempty"`
	UserID           string         `json:"userId,omitempty"`
	CurrentProjectID string         `json:"currentProjectId,omitempty"`
	Context          map[string]any `json:"context,omitempty"`
	LastMessageAt    time.Time      `json:"lastMessageAt"`
	CreatedAt        time.Time      `json:"createdAt"`
}

// Message is one inbound or outbound message within a conversation.
type Message struct {
	ID                string    `json:"id"`
	ConversationID    string    `json:"conversationId"`
	TenantID          string    `json:"tenantId,omitempty"`
	Direction         string    `json:"direction"`
	MessageType       string    `json:"messageType"`
	Content           string    `json:"content"`
	WhatsAppMessageID string    `json:"whatsappMessageId,omitempty"`
	ProcessingTimeMs  int       `json:"processingTimeMs,omitempty"`
	AgentModel        string    `json:"agentModel,omitempty"`
	CreatedAt         time.Time `json:"createdAt"`
}
