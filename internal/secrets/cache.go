package secrets

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// WhatsAppCredentials holds the Graph API identity for the tenant-facing
// WhatsApp Business number.
type WhatsAppCredentials struct {
	PhoneNumberID string `json:"phone_number_id"`
	AccessToken   string `json:"access_token"`
}

// MailOAuthCredentials holds the OAuth client used to mint mail API tokens.
type MailOAuthCredentials struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

type api interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// Cache fetches external credentials once per process lifetime and memoizes
// them. The mutex is held across the fetch so concurrent first users wait for
// a single in-flight call instead of issuing duplicates.
type Cache struct {
	client api

	whatsappARN string
	mailARN     string

	mu       sync.Mutex
	whatsapp *WhatsAppCredentials
	mail     *MailOAuthCredentials
}

// NewCache constructs a Secrets Manager backed credential cache.
func NewCache(ctx context.Context, region, whatsappARN, mailARN string) (*Cache, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{}
	if region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &Cache{
		client:      secretsmanager.NewFromConfig(cfg),
		whatsappARN: whatsappARN,
		mailARN:     mailARN,
	}, nil
}

// NewCacheWithClient wires an explicit API client; used by tests.
func NewCacheWithClient(client api, whatsappARN, mailARN string) *Cache {
	return &Cache{client: client, whatsappARN: whatsappARN, mailARN: mailARN}
}

// WhatsApp returns the WhatsApp Graph API credentials, fetching them on first
// use.
func (c *Cache) WhatsApp(ctx context.Context) (WhatsAppCredentials, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.whatsapp != nil {
		return *c.whatsapp, nil
	}

	var creds WhatsAppCredentials
	if err := c.fetch(ctx, c.whatsappARN, &creds); err != nil {
		return WhatsAppCredentials{}, err
	}
	c.whatsapp = &creds
	return creds, nil
}

// MailOAuth returns the mail OAuth client credentials, fetching them on first
// use.
func (c *Cache) MailOAuth(ctx context.Context) (MailOAuthCredentials, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mail != nil {
		return *c.mail, nil
	}

	var creds MailOAuthCredentials
	if err := c.fetch(ctx, c.mailARN, &creds); err != nil {
		return MailOAuthCredentials{}, err
	}
	c.mail = &creds
	return creds, nil
}

func (c *Cache) fetch(ctx context.Context, arn string, out any) error {
	if strings.TrimSpace(arn) == "" {
		return fmt.Errorf("secret ARN is not configured")
	}
	resp, err := c.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: &arn,
	})
	if err != nil {
		return fmt.Errorf("get secret %s: %w", arn, err)
	}
	raw := ""
	if resp.SecretString != nil {
		raw = *resp.SecretString
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return fmt.Errorf("parse secret %s: %w", arn, err)
	}
	return nil
}
