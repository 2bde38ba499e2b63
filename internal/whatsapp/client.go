package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"roofing-backend/internal/secrets"
)

const defaultGraphBaseURL = "https://graph.facebook.com/v21.0"

// maxMediaBytes caps a media download; WhatsApp documents top out well below
// this.
const maxMediaBytes = 100 << 20

// CredentialsProvider supplies Graph API credentials; the secrets cache
// satisfies it.
type CredentialsProvider interface {
	WhatsApp(ctx context.Context) (secrets.WhatsAppCredentials, error)
}

// StatusError reports a non-2xx Graph API response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("whatsapp api status %d: %s", e.StatusCode, e.Body)
}

// Client talks to the WhatsApp Business (Graph) API.
type Client struct {
	creds      CredentialsProvider
	baseURL    string
	httpClient *http.Client
}

// NewClient constructs a Graph API client. baseURL is overridable for tests.
func NewClient(creds CredentialsProvider, baseURL string) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultGraphBaseURL
	}
	return &Client{
		creds:   creds,
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type mediaURLResponse struct {
	URL      string `json:"url"`
	MimeType string `json:"mime_type"`
}

// DownloadMedia resolves a short-lived media id to a signed URL and downloads
// the bytes. Both hops are bearer-authenticated and can fail independently.
func (c *Client) DownloadMedia(ctx context.Context, mediaID string) ([]byte, string, error) {
	creds, err := c.creds.WhatsApp(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("whatsapp credentials: %w", err)
	}

	body, err := c.get(ctx, c.baseURL+"/"+mediaID, creds.AccessToken)
	if err != nil {
		return nil, "", fmt.Errorf("resolve media url id=%s: %w", mediaID, err)
	}

	var resolved mediaURLResponse
	if err := json.Unmarshal(body, &resolved); err != nil {
		return nil, "", fmt.Errorf("resolve media url id=%s: parse: %w", mediaID, err)
	}
	if resolved.URL == "" {
		return nil, "", fmt.Errorf("resolve media url id=%s: empty url", mediaID)
	}

	data, err := c.get(ctx, resolved.URL, creds.AccessToken)
	if err != nil {
		return nil, "", fmt.Errorf("download media id=%s: %w", mediaID, err)
	}

	mimeType := resolved.MimeType
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	return data, mimeType, nil
}

type sendTextRequest struct {
	MessagingProduct string   `json:"messaging_product"`
	RecipientType    string   `json:"recipient_type"`
	To               string   `json:"to"`
	Type             string   `json:"type"`
	Text             textBody `json:"text"`
}

type textBody struct {
	Body string `json:"body"`
}

// SendText sends a plain text message to the given phone number.
func (c *Client) SendText(ctx context.Context, to, body string) error {
	creds, err := c.creds.WhatsApp(ctx)
	if err != nil {
		return fmt.Errorf("whatsapp credentials: %w", err)
	}

	payload, err := json.Marshal(sendTextRequest{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               to,
		Type:             "text",
		Text:             textBody{Body: body},
	})
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/%s/messages", c.baseURL, creds.PhoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+creds.AccessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("whatsapp send to=%s: %w", to, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("whatsapp send to=%s: %w", to, &StatusError{StatusCode: resp.StatusCode, Body: string(raw)})
	}
	return nil
}

func (c *Client) get(ctx context.Context, url, token string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	return io.ReadAll(io.LimitReader(resp.Body, maxMediaBytes))
}
