package mailpoll

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"roofing-backend/internal/queue"
	"roofing-backend/internal/secrets"
	"roofing-backend/internal/shared/storage/object"
	"roofing-backend/internal/shared/telemetry"
	"roofing-backend/internal/shared/util"
	"roofing-backend/internal/usage"
)

const (
	defaultGmailBaseURL = "https://gmail.googleapis.com/gmail/v1"
	googleTokenURL      = "https://oauth2.googleapis.com/token"
)

// maxAttachmentBytes caps a single attachment download.
const maxAttachmentBytes = 50 << 20

// OAuthCredentialsProvider supplies the Google OAuth client credentials; the
// secrets cache satisfies it.
type OAuthCredentialsProvider interface {
	MailOAuth(ctx context.Context) (secrets.MailOAuthCredentials, error)
}

// Poller pulls unread attachment-bearing mail from each tenant mailbox,
// stages the attachments in the object store and enqueues them for intake.
type Poller struct {
	Accounts AccountSource
	Creds    OAuthCredentialsProvider
	Store    object.Store
	Bucket   string
	Prefix   string
	Queue    queue.Client
	Usage    *usage.Service
	Query    string

	// BaseURL and HTTPClientFor are overridable for tests.
	BaseURL       string
	HTTPClientFor func(ctx context.Context, acct Account) (*http.Client, error)

	now func() time.Time
}

// NewPoller constructs a Poller. query selects which mail to fetch, in Gmail
// search syntax.
func NewPoller(accounts AccountSource, creds OAuthCredentialsProvider, store object.Store, bucket, prefix string, queueClient queue.Client, usageSvc *usage.Service, query string) *Poller {
	p := &Poller{
		Accounts: accounts,
		Creds:    creds,
		Store:    store,
		Bucket:   bucket,
		Prefix:   strings.Trim(prefix, "/"),
		Queue:    queueClient,
		Usage:    usageSvc,
		Query:    query,
		BaseURL:  defaultGmailBaseURL,
		now:      time.Now,
	}
	p.HTTPClientFor = p.oauthClient
	return p
}

// PollAll polls every active mailbox once. Per-account failures are logged
// and do not stop the sweep.
func (p *Poller) PollAll(ctx context.Context) error {
	accounts, err := p.Accounts.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("list mail accounts: %w", err)
	}
	for _, acct := range accounts {
		if err := p.pollAccount(ctx, acct); err != nil {
			telemetry.Error("mailpoll.account.failed", map[string]any{
				"account_id": acct.ID,
				"tenant_id":  acct.TenantID,
				"err":        err.Error(),
			})
			continue
		}
		if err := p.Accounts.MarkSynced(ctx, acct.ID, p.now().UTC()); err != nil {
			telemetry.Warn("mailpoll.mark_synced.failed", map[string]any{"account_id": acct.ID, "err": err.Error()})
		}
	}
	return nil
}

func (p *Poller) oauthClient(ctx context.Context, acct Account) (*http.Client, error) {
	creds, err := p.Creds.MailOAuth(ctx)
	if err != nil {
		return nil, fmt.Errorf("mail oauth credentials: %w", err)
	}
	conf := &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		Endpoint:     oauth2.Endpoint{TokenURL: googleTokenURL},
	}
	token := &oauth2.Token{RefreshToken: acct.RefreshToken}
	return oauth2.NewClient(ctx, conf.TokenSource(ctx, token)), nil
}

func (p *Poller) pollAccount(ctx context.Context, acct Account) error {
	client, err := p.HTTPClientFor(ctx, acct)
	if err != nil {
		return err
	}

	ids, err := p.listMessages(ctx, client)
	if err != nil {
		return fmt.Errorf("list messages: %w", err)
	}

	for _, id := range ids {
		if err := p.handleMessage(ctx, client, acct, id); err != nil {
			telemetry.Warn("mailpoll.message.skipped", map[string]any{
				"account_id": acct.ID,
				"message_id": id,
				"err":        err.Error(),
			})
		}
	}
	return nil
}

type messageList struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

func (p *Poller) listMessages(ctx context.Context, client *http.Client) ([]string, error) {
	endpoint := fmt.Sprintf("%s/users/me/messages?q=%s", p.BaseURL, url.QueryEscape(p.Query))
	var list messageList
	if err := p.getJSON(ctx, client, endpoint, &list); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(list.Messages))
	for _, m := range list.Messages {
		ids = append(ids, m.ID)
	}
	return ids, nil
}

type gmailMessage struct {
	ID      string    `json:"id"`
	Payload gmailPart `json:"payload"`
}

type gmailPart struct {
	PartID   string        `json:"partId"`
	MimeType string        `json:"mimeType"`
	Filename string        `json:"filename"`
	Headers  []gmailHeader `json:"headers"`
	Body     gmailPartBody `json:"body"`
	Parts    []gmailPart   `json:"parts"`
}

type gmailHeader struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type gmailPartBody struct {
	AttachmentID string `json:"attachmentId"`
	Size         int64  `json:"size"`
	Data         string `json:"data"`
}

type gmailAttachment struct {
	Size int64  `json:"size"`
	Data string `json:"data"`
}

func (p *Poller) handleMessage(ctx context.Context, client *http.Client, acct Account, messageID string) error {
	var msg gmailMessage
	endpoint := fmt.Sprintf("%s/users/me/messages/%s", p.BaseURL, messageID)
	if err := p.getJSON(ctx, client, endpoint, &msg); err != nil {
		return fmt.Errorf("get message: %w", err)
	}

	subject := headerValue(msg.Payload.Headers, "Subject")

	staged := 0
	for _, att := range collectAttachments(msg.Payload) {
		if err := p.stageAttachment(ctx, client, acct, messageID, subject, att); err != nil {
			telemetry.Warn("mailpoll.attachment.skipped", map[string]any{
				"account_id": acct.ID,
				"message_id": messageID,
				"filename":   att.Filename,
				"err":        err.Error(),
			})
			continue
		}
		staged++
	}

	if staged > 0 {
		if p.Usage != nil {
			if err := p.Usage.Increment(ctx, acct.TenantID, p.now(), usage.Delta{EmailsProcessed: 1}); err != nil {
				telemetry.Warn("mailpoll.usage.increment_failed", map[string]any{"tenant_id": acct.TenantID, "err": err.Error()})
			}
		}
		if err := p.markRead(ctx, client, messageID); err != nil {
			telemetry.Warn("mailpoll.mark_read.failed", map[string]any{"message_id": messageID, "err": err.Error()})
		}
	}
	return nil
}

// collectAttachments walks the MIME tree and returns parts that carry a real
// attachment.
func collectAttachments(part gmailPart) []gmailPart {
	var out []gmailPart
	if part.Filename != "" && part.Body.AttachmentID != "" {
		out = append(out, part)
	}
	for _, child := range part.Parts {
		out = append(out, collectAttachments(child)...)
	}
	return out
}

func (p *Poller) stageAttachment(ctx context.Context, client *http.Client, acct Account, messageID, subject string, part gmailPart) error {
	endpoint := fmt.Sprintf("%s/users/me/messages/%s/attachments/%s", p.BaseURL, messageID, part.Body.AttachmentID)
	var att gmailAttachment
	if err := p.getJSON(ctx, client, endpoint, &att); err != nil {
		return fmt.Errorf("get attachment: %w", err)
	}

	data, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(att.Data, "="))
	if err != nil {
		return fmt.Errorf("decode attachment: %w", err)
	}
	if len(data) > maxAttachmentBytes {
		return fmt.Errorf("attachment exceeds size limit")
	}

	filename := util.SanitizeFileName(part.Filename)
	contentType := part.MimeType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	key := fmt.Sprintf("%s/%s/%d-%s", p.Prefix, acct.TenantID, p.now().UnixMilli(), filename)
	if _, err := p.Store.Put(ctx, key, contentType, map[string]string{"tenant-id": acct.TenantID}, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("store attachment: %w", err)
	}

	job := queue.Message{
		Type:        queue.TypeS3Object,
		TenantID:    acct.TenantID,
		S3Bucket:    p.Bucket,
		S3Key:       key,
		Filename:    filename,
		MediaType:   contentType,
		MessageText: subject,
		Source:      "email",
	}
	if p.Queue == nil {
		return fmt.Errorf("no intake queue configured")
	}
	if err := p.Queue.Send(ctx, job); err != nil {
		return fmt.Errorf("enqueue: %w", err)
	}

	telemetry.Info("mailpoll.attachment.staged", map[string]any{
		"tenant_id": acct.TenantID,
		"key":       key,
		"filename":  filename,
	})
	return nil
}

func (p *Poller) markRead(ctx context.Context, client *http.Client, messageID string) error {
	endpoint := fmt.Sprintf("%s/users/me/messages/%s/modify", p.BaseURL, messageID)
	body := strings.NewReader(`{"removeLabelIds":["UNREAD"]}`)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("gmail modify status %d: %s", resp.StatusCode, string(raw))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func (p *Poller) getJSON(ctx context.Context, client *http.Client, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("gmail api status %d: %s", resp.StatusCode, string(raw))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func headerValue(headers []gmailHeader, name string) string {
	for _, h := range headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}
