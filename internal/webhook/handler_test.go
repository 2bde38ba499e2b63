package webhook

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"roofing-backend/internal/agent"
	"roofing-backend/internal/conversations"
	"roofing-backend/internal/queue"
	"roofing-backend/internal/usage"
	"roofing-backend/internal/users"
)

type fakeQueue struct {
	sent []queue.Message
	err  error
}

func (f *fakeQueue) Send(ctx context.Context, msg queue.Message) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

type fakeSender struct {
	to   []string
	body []string
}

func (f *fakeSender) SendText(ctx context.Context, to, body string) error {
	f.to = append(f.to, to)
	f.body = append(f.body, body)
	return nil
}

type webhookFixture struct {
	handler *Handler
	router  *gin.Engine
	users   *users.MemoryRepo
	convs   *conversations.MemoryRepo
	queue   *fakeQueue
	sender  *fakeSender
	usage   *usage.Service
}

func newWebhookFixture(t *testing.T) *webhookFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	fx := &webhookFixture{
		users:  users.NewMemoryRepo(),
		convs:  conversations.NewMemoryRepo(),
		queue:  &fakeQueue{},
		sender: &fakeSender{},
		usage:  usage.NewService(usage.NewMemoryStore()),
	}
	fx.handler = NewHandler("verify-secret", fx.users, fx.convs, fx.queue, fx.sender, agent.EchoAgent{}, fx.usage)

	fx.router = gin.New()
	fx.router.GET("/webhook/whatsapp", fx.handler.Verify)
	fx.router.POST("/webhook/whatsapp", fx.handler.Receive)
	return fx
}

func (fx *webhookFixture) post(t *testing.T, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhook/whatsapp", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	fx.router.ServeHTTP(rec, req)
	return rec
}

func imageEvent(from, mediaID, caption string) string {
	return `{
		"object": "whatsapp_business_account",
		"entry": [{"id": "waba-1", "changes": [{"field": "messages", "value": {
			"messaging_product": "whatsapp",
			"messages": [{
				"id": "wamid.1",
				"from": "` + from + `",
				"timestamp": "1756600000",
				"type": "image",
				"image": {"id": "` + mediaID + `", "mime_type": "image/jpeg", "caption": "` + caption + `"}
			}]
		}}]}]
	}`
}

func TestVerifyHandshake(t *testing.T) {
	fx := newWebhookFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/webhook/whatsapp?hub.mode=subscribe&hub.verify_token=verify-secret&hub.challenge=42", nil)
	rec := httptest.NewRecorder()
	fx.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Body.String() != "42" {
		t.Fatalf("body = %q, want challenge echo", rec.Body.String())
	}
}

func TestVerifyRejectsBadToken(t *testing.T) {
	fx := newWebhookFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/webhook/whatsapp?hub.mode=subscribe&hub.verify_token=wrong&hub.challenge=42", nil)
	rec := httptest.NewRecorder()
	fx.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
}

func TestReceiveImageEnqueuesIntakeJob(t *testing.T) {
	fx := newWebhookFixture(t)
	fx.users.Put(users.User{ID: "u1", TenantID: "t1", PhoneNumber: "15550001111"})
	_ = fx.convs.Create(context.Background(), conversations.Conversation{
		ID: "c1", TenantID: "t1", UserID: "u1", CurrentProjectID: "p1",
		LastMessageAt: time.Now(), CreatedAt: time.Now(),
	})

	rec := fx.post(t, imageEvent("15550001111", "media-9", "invoice from supplier"))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	if len(fx.queue.sent) != 1 {
		t.Fatalf("enqueued %d messages, want 1", len(fx.queue.sent))
	}
	job := fx.queue.sent[0]
	if job.Type != queue.TypeWhatsAppMedia {
		t.Errorf("type = %q", job.Type)
	}
	if job.TenantID != "t1" || job.UserID != "u1" || job.ConversationID != "c1" {
		t.Errorf("routing fields = %+v", job)
	}
	if job.ProjectID != "p1" {
		t.Errorf("project id = %q, want conversation's current project", job.ProjectID)
	}
	if job.MediaID != "media-9" || job.MediaType != "image/jpeg" {
		t.Errorf("media fields = %+v", job)
	}
	if job.MessageText != "invoice from supplier" {
		t.Errorf("message text = %q", job.MessageText)
	}

	msgs := fx.convs.MessagesByConversation("c1")
	if len(msgs) != 1 || msgs[0].Direction != conversations.DirectionInbound {
		t.Fatalf("recorded messages = %+v", msgs)
	}

	u, _ := fx.usage.Current(context.Background(), "t1", time.Now())
	if u.WhatsAppReceived != 1 {
		t.Errorf("whatsapp received = %d", u.WhatsAppReceived)
	}
}

func TestReceiveUnknownSenderDoesNotEnqueue(t *testing.T) {
	fx := newWebhookFixture(t)

	rec := fx.post(t, imageEvent("19998887777", "media-9", ""))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, webhook must always ack", rec.Code)
	}
	if len(fx.queue.sent) != 0 {
		t.Fatalf("unexpected enqueue: %+v", fx.queue.sent)
	}
	if len(fx.sender.to) != 1 || fx.sender.to[0] != "19998887777" {
		t.Fatalf("expected a not-registered reply, got %v", fx.sender.to)
	}
}

func TestReceiveTextGetsAgentReply(t *testing.T) {
	fx := newWebhookFixture(t)
	fx.users.Put(users.User{ID: "u1", TenantID: "t1", PhoneNumber: "15550001111"})

	rec := fx.post(t, `{
		"object": "whatsapp_business_account",
		"entry": [{"id": "waba-1", "changes": [{"field": "messages", "value": {
			"messaging_product": "whatsapp",
			"messages": [{"id": "wamid.2", "from": "15550001111", "timestamp": "1756600000", "type": "text", "text": {"body": "hi"}}]
		}}]}]
	}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	if len(fx.sender.body) != 1 {
		t.Fatalf("replies = %v", fx.sender.body)
	}
	if len(fx.queue.sent) != 0 {
		t.Fatalf("text message must not enqueue: %+v", fx.queue.sent)
	}

	// A conversation was created on first contact; the reply is recorded as
	// an outbound row alongside the inbound one.
	conv, err := fx.convs.GetLatestByUser(context.Background(), "u1")
	if err != nil {
		t.Fatalf("GetLatestByUser: %v", err)
	}
	msgs := fx.convs.MessagesByConversation(conv.ID)
	if len(msgs) != 2 {
		t.Fatalf("messages = %d, want inbound + outbound", len(msgs))
	}
	if msgs[1].Direction != conversations.DirectionOutbound {
		t.Fatalf("second message direction = %q", msgs[1].Direction)
	}

	u, _ := fx.usage.Current(context.Background(), "t1", time.Now())
	if u.WhatsAppReceived != 1 || u.WhatsAppSent != 1 {
		t.Errorf("usage = %+v", u)
	}
}

func TestReceiveMalformedPayloadStillAcks(t *testing.T) {
	fx := newWebhookFixture(t)

	rec := fx.post(t, "{{{")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}
