package mailpoll

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"roofing-backend/internal/queue"
	"roofing-backend/internal/shared/storage/object"
	"roofing-backend/internal/usage"
)

type fakeStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: make(map[string][]byte), types: make(map[string]string)}
}

func (s *fakeStore) Put(ctx context.Context, key, contentType string, metadata map[string]string, r io.Reader) (int64, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = data
	s.types[key] = contentType
	return int64(len(data)), nil
}

func (s *fakeStore) Get(ctx context.Context, key string) (io.ReadCloser, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[key]
	if !ok {
		return nil, "", object.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), s.types[key], nil
}

type fakeQueue struct {
	sent []queue.Message
}

func (f *fakeQueue) Send(ctx context.Context, msg queue.Message) error {
	f.sent = append(f.sent, msg)
	return nil
}

// gmailServer emulates the four Gmail endpoints the poller touches.
func gmailServer(t *testing.T, attachment []byte) (*httptest.Server, *[]string) {
	t.Helper()
	var modified []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/users/me/messages" && r.Method == http.MethodGet:
			if got := r.URL.Query().Get("q"); got != "is:unread has:attachment" {
				t.Errorf("query = %q", got)
			}
			_ = json.NewEncoder(w).Encode(map[string]any{
				"messages": []map[string]string{{"id": "msg-1"}},
			})
		case r.URL.Path == "/users/me/messages/msg-1" && r.Method == http.MethodGet:
			_ = json.NewEncoder(w).Encode(map[string]any{
				"id": "msg-1",
				"payload": map[string]any{
					"mimeType": "multipart/mixed",
					"headers":  []map[string]string{{"name": "Subject", "value": "Permit for Oak St"}},
					"parts": []map[string]any{
						{
							"partId":   "0",
							"mimeType": "text/plain",
							"filename": "",
							"body":     map[string]any{"size": 12},
						},
						{
							"partId":   "1",
							"mimeType": "application/pdf",
							"filename": "permit.pdf",
							"body":     map[string]any{"attachmentId": "att-1", "size": len(attachment)},
						},
					},
				},
			})
		case r.URL.Path == "/users/me/messages/msg-1/attachments/att-1" && r.Method == http.MethodGet:
			_ = json.NewEncoder(w).Encode(map[string]any{
				"size": len(attachment),
				"data": base64.RawURLEncoding.EncodeToString(attachment),
			})
		case r.URL.Path == "/users/me/messages/msg-1/modify" && r.Method == http.MethodPost:
			raw, _ := io.ReadAll(r.Body)
			modified = append(modified, string(raw))
			_, _ = w.Write([]byte(`{}`))
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &modified
}

func TestPollAllStagesAttachments(t *testing.T) {
	attachment := []byte("pdf bytes")
	srv, modified := gmailServer(t, attachment)

	accounts := NewMemoryAccountSource()
	accounts.Put(Account{ID: "acct-1", TenantID: "t1", EmailAddress: "docs@roofco.example", RefreshToken: "rt", IsActive: true})

	store := newFakeStore()
	q := &fakeQueue{}
	usageSvc := usage.NewService(usage.NewMemoryStore())

	poller := NewPoller(accounts, nil, store, "docs-bucket", "email-inbox", q, usageSvc, "is:unread has:attachment")
	poller.BaseURL = srv.URL
	poller.HTTPClientFor = func(ctx context.Context, acct Account) (*http.Client, error) {
		return srv.Client(), nil
	}
	poller.now = func() time.Time { return time.UnixMilli(1756600000000) }

	if err := poller.PollAll(context.Background()); err != nil {
		t.Fatalf("PollAll: %v", err)
	}

	wantKey := "email-inbox/t1/1756600000000-permit.pdf"
	if got, ok := store.objects[wantKey]; !ok || !bytes.Equal(got, attachment) {
		t.Fatalf("stored objects = %v", store.objects)
	}
	if store.types[wantKey] != "application/pdf" {
		t.Errorf("content type = %q", store.types[wantKey])
	}

	if len(q.sent) != 1 {
		t.Fatalf("enqueued %d messages", len(q.sent))
	}
	job := q.sent[0]
	if job.Type != queue.TypeS3Object || job.TenantID != "t1" || job.S3Key != wantKey {
		t.Errorf("job = %+v", job)
	}
	if job.Source != "email" {
		t.Errorf("source = %q, want email", job.Source)
	}
	if job.MessageText != "Permit for Oak St" {
		t.Errorf("message text = %q, want subject", job.MessageText)
	}

	if len(*modified) != 1 || !strings.Contains((*modified)[0], "UNREAD") {
		t.Errorf("modify calls = %v", *modified)
	}

	u, _ := usageSvc.Current(context.Background(), "t1", time.UnixMilli(1756600000000))
	if u.EmailsProcessed != 1 {
		t.Errorf("emails processed = %d", u.EmailsProcessed)
	}

	active, _ := accounts.ListActive(context.Background())
	if len(active) != 1 || active[0].LastSyncAt.IsZero() {
		t.Errorf("account not marked synced: %+v", active)
	}
}

func TestPollAllSkipsFailedAccounts(t *testing.T) {
	accounts := NewMemoryAccountSource()
	accounts.Put(Account{ID: "acct-1", TenantID: "t1", RefreshToken: "rt", IsActive: true})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	t.Cleanup(srv.Close)

	poller := NewPoller(accounts, nil, newFakeStore(), "docs-bucket", "email-inbox", &fakeQueue{}, nil, "is:unread")
	poller.BaseURL = srv.URL
	poller.HTTPClientFor = func(ctx context.Context, acct Account) (*http.Client, error) {
		return srv.Client(), nil
	}

	if err := poller.PollAll(context.Background()); err != nil {
		t.Fatalf("PollAll should not fail the sweep: %v", err)
	}
	active, _ := accounts.ListActive(context.Background())
	if !active[0].LastSyncAt.IsZero() {
		t.Error("failed account must not be marked synced")
	}
}

func TestCollectAttachmentsWalksNestedParts(t *testing.T) {
	payload := gmailPart{
		MimeType: "multipart/mixed",
		Parts: []gmailPart{
			{MimeType: "multipart/alternative", Parts: []gmailPart{
				{MimeType: "text/plain"},
				{MimeType: "text/html"},
			}},
			{MimeType: "application/pdf", Filename: "a.pdf", Body: gmailPartBody{AttachmentID: "att-1"}},
			{MimeType: "image/jpeg", Filename: "b.jpg", Body: gmailPartBody{AttachmentID: "att-2"}},
			{MimeType: "application/pdf", Filename: "inline.pdf"},
		},
	}

	got := collectAttachments(payload)
	if len(got) != 2 {
		t.Fatalf("attachments = %d, want 2", len(got))
	}
	if got[0].Filename != "a.pdf" || got[1].Filename != "b.jpg" {
		t.Fatalf("attachments = %+v", got)
	}
}
