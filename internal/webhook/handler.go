package webhook

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"roofing-backend/internal/agent"
	"roofing-backend/internal/conversations"
	"roofing-backend/internal/queue"
	"roofing-backend/internal/shared/metrics"
	"roofing-backend/internal/shared/telemetry"
	"roofing-backend/internal/usage"
	"roofing-backend/internal/users"
)

// TextSender sends a plain text message to a phone number.
type TextSender interface {
	SendText(ctx context.Context, to, body string) error
}

// Handler receives WhatsApp Business webhook calls. Media messages are
// enqueued for the intake worker; text messages go to the agent.
type Handler struct {
	VerifyToken   string
	Users         users.Repo
	Conversations conversations.Repo
	Queue         queue.Client
	Sender        TextSender
	Agent         agent.Agent
	Usage         *usage.Service

	now func() time.Time
}

// NewHandler constructs a Handler.
func NewHandler(verifyToken string, userRepo users.Repo, convRepo conversations.Repo, queueClient queue.Client, sender TextSender, asst agent.Agent, usageSvc *usage.Service) *Handler {
	return &Handler{
		VerifyToken:   verifyToken,
		Users:         userRepo,
		Conversations: convRepo,
		Queue:         queueClient,
		Sender:        sender,
		Agent:         asst,
		Usage:         usageSvc,
		now:           time.Now,
	}
}

// Verify answers the Graph API subscription handshake.
func (h *Handler) Verify(c *gin.Context) {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	if mode == "subscribe" && token != "" && token == h.VerifyToken {
		c.String(http.StatusOK, challenge)
		return
	}
	c.String(http.StatusForbidden, "verification failed")
}

// Receive handles an inbound event batch. WhatsApp expects a fast 200
// regardless of per-message outcomes, so everything inside is best effort.
func (h *Handler) Receive(c *gin.Context) {
	var payload eventPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		telemetry.Warn("webhook.payload.invalid", map[string]any{"err": err.Error()})
		c.Status(http.StatusOK)
		return
	}

	ctx := c.Request.Context()
	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			for _, msg := range change.Value.Messages {
				h.handleMessage(ctx, msg)
			}
		}
	}
	c.Status(http.StatusOK)
}

func (h *Handler) handleMessage(ctx context.Context, msg inboundMessage) {
	metrics.IncWhatsAppInbound()

	user, err := h.Users.GetByPhone(ctx, msg.From)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			telemetry.Info("webhook.unknown_sender", map[string]any{"from": msg.From})
			if h.Sender != nil {
				_ = h.Sender.SendText(ctx, msg.From, "Sorry, this number isn't registered with us yet. Ask your company admin to add you.")
			}
			return
		}
		telemetry.Error("webhook.user_lookup_failed", map[string]any{"from": msg.From, "err": err.Error()})
		return
	}

	if h.Usage != nil {
		if err := h.Usage.Increment(ctx, user.TenantID, h.now(), usage.Delta{WhatsAppReceived: 1}); err != nil {
			telemetry.Warn("webhook.usage.increment_failed", map[string]any{"tenant_id": user.TenantID, "err": err.Error()})
		}
	}

	conv := h.conversationFor(ctx, user)
	h.recordInbound(ctx, user, conv, msg)

	if media, mediaType := msg.media(); media != nil {
		h.enqueueMedia(ctx, user, conv, msg, media, mediaType)
		return
	}
	if msg.Type == "text" && msg.Text != nil {
		h.respondText(ctx, user, conv, msg.Text.Body)
	}
}

// conversationFor returns the user's current thread, creating one on first
// contact. Failures fall back to an unsaved conversation so the message is
// still handled.
func (h *Handler) conversationFor(ctx context.Context, user users.User) conversations.Conversation {
	now := h.now().UTC()
	conv, err := h.Conversations.GetLatestByUser(ctx, user.ID)
	if err == nil {
		if err := h.Conversations.Touch(ctx, conv.ID, now); err != nil {
			telemetry.Warn("webhook.conversation.touch_failed", map[string]any{"conversation_id": conv.ID, "err": err.Error()})
		}
		return conv
	}

	conv = conversations.Conversation{
		ID:            uuid.NewString(),
		TenantID:      user.TenantID,
		UserID:        user.ID,
		LastMessageAt: now,
		CreatedAt:     now,
	}
	if !errors.Is(err, conversations.ErrNotFound) {
		telemetry.Error("webhook.conversation.lookup_failed", map[string]any{"user_id": user.ID, "err": err.Error()})
		return conv
	}
	if err := h.Conversations.Create(ctx, conv); err != nil {
		telemetry.Error("webhook.conversation.create_failed", map[string]any{"user_id": user.ID, "err": err.Error()})
	}
	return conv
}

func (h *Handler) recordInbound(ctx context.Context, user users.User, conv conversations.Conversation, msg inboundMessage) {
	content := ""
	if msg.Text != nil {
		content = msg.Text.Body
	} else if media, _ := msg.media(); media != nil {
		content = media.Caption
	}

	err := h.Conversations.AddMessage(ctx, conversations.Message{
		ID:                uuid.NewString(),
		ConversationID:    conv.ID,
		TenantID:          user.TenantID,
		Direction:         conversations.DirectionInbound,
		MessageType:       msg.Type,
		Content:           content,
		WhatsAppMessageID: msg.ID,
		CreatedAt:         h.now().UTC(),
	})
	if err != nil {
		telemetry.Warn("webhook.message.record_failed", map[string]any{"conversation_id": conv.ID, "err": err.Error()})
	}
}

func (h *Handler) enqueueMedia(ctx context.Context, user users.User, conv conversations.Conversation, msg inboundMessage, media *mediaRef, mediaType string) {
	if h.Queue == nil {
		telemetry.Error("webhook.enqueue.unconfigured", map[string]any{"media_id": media.ID})
		return
	}

	job := queue.Message{
		Type:           queue.TypeWhatsAppMedia,
		TenantID:       user.TenantID,
		UserID:         user.ID,
		ProjectID:      conv.CurrentProjectID,
		ConversationID: conv.ID,
		MediaID:        media.ID,
		MediaType:      mediaType,
		Filename:       media.Filename,
		MessageText:    media.Caption,
	}
	if err := h.Queue.Send(ctx, job); err != nil {
		telemetry.Error("webhook.enqueue.failed", map[string]any{
			"tenant_id": user.TenantID,
			"media_id":  media.ID,
			"err":       err.Error(),
		})
		return
	}

	telemetry.Info("webhook.media.enqueued", map[string]any{
		"tenant_id": user.TenantID,
		"media_id":  media.ID,
		"type":      msg.Type,
	})
}

func (h *Handler) respondText(ctx context.Context, user users.User, conv conversations.Conversation, text string) {
	if h.Agent == nil || h.Sender == nil {
		return
	}

	reply, err := h.Agent.Respond(ctx, user.TenantID, conv.ID, text)
	if err != nil {
		telemetry.Error("webhook.agent.failed", map[string]any{"conversation_id": conv.ID, "err": err.Error()})
		return
	}
	if reply.Text == "" {
		return
	}

	if err := h.Sender.SendText(ctx, user.PhoneNumber, reply.Text); err != nil {
		telemetry.Error("webhook.reply.send_failed", map[string]any{"conversation_id": conv.ID, "err": err.Error()})
		return
	}

	if err := h.Conversations.AddMessage(ctx, conversations.Message{
		ID:             uuid.NewString(),
		ConversationID: conv.ID,
		TenantID:       user.TenantID,
		Direction:      conversations.DirectionOutbound,
		MessageType:    "text",
		Content:        reply.Text,
		AgentModel:     reply.Model,
		CreatedAt:      h.now().UTC(),
	}); err != nil {
		telemetry.Warn("webhook.message.record_failed", map[string]any{"conversation_id": conv.ID, "err": err.Error()})
	}

	if h.Usage != nil {
		delta := usage.Delta{
			WhatsAppSent:      1,
			AgentInputTokens:  reply.InputTokens,
			AgentOutputTokens: reply.OutputTokens,
		}
		if err := h.Usage.Increment(ctx, user.TenantID, h.now(), delta); err != nil {
			telemetry.Warn("webhook.usage.increment_failed", map[string]any{"tenant_id": user.TenantID, "err": err.Error()})
		}
	}
}
