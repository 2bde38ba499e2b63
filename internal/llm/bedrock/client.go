package bedrock

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"roofing-backend/internal/llm"
)

const (
	anthropicVersion = "bedrock-2023-05-31"
	maxTokens        = 2000
)

// Client implements llm.Extractor using Anthropic models on Amazon Bedrock.
type Client struct {
	client  *bedrockruntime.Client
	modelID string
}

// NewClient constructs a Bedrock-backed extractor.
func NewClient(ctx context.Context, region, modelID string) (*Client, error) {
	if strings.TrimSpace(modelID) == "" {
		return nil, fmt.Errorf("BEDROCK_MODEL_ID is required")
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{}
	if region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return &Client{
		client:  bedrockruntime.NewFromConfig(cfg),
		modelID: modelID,
	}, nil
}

type contentBlock struct {
	Type   string       `json:"type"`
	Text   string       `json:"text,omitempty"`
	Source *blockSource `json:"source,omitempty"`
}

type blockSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type message struct {
	Role    string         `json:"role"`
	Content []contentBlock `json:"content"`
}

type invokeRequest struct {
	AnthropicVersion string    `json:"anthropic_version"`
	MaxTokens        int       `json:"max_tokens"`
	Messages         []message `json:"messages"`
}

type invokeResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// ExtractDocument sends the artifact bytes plus the extraction prompt in one
// user message and returns the model's raw text answer.
func (c *Client) ExtractDocument(ctx context.Context, input llm.ExtractInput) (string, error) {
	payloadType := "image"
	if input.Mode == llm.ModeDocument {
		payloadType = "document"
	}

	req := invokeRequest{
		AnthropicVersion: anthropicVersion,
		MaxTokens:        maxTokens,
		Messages: []message{
			{
				Role: "user",
				Content: []contentBlock{
					{
						Type: payloadType,
						Source: &blockSource{
							Type:      "base64",
							MediaType: input.MediaType,
							Data:      base64.StdEncoding.EncodeToString(input.Data),
						},
					},
					{
						Type: "text",
						Text: llm.BuildExtractionPrompt(input.Mode, input.Context, input.DocumentText),
					},
				},
			},
		},
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", err
	}

	resp, err := c.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(c.modelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return "", fmt.Errorf("bedrock invoke model=%s: %w", c.modelID, err)
	}

	var parsed invokeResponse
	if err := json.Unmarshal(resp.Body, &parsed); err != nil {
		return "", fmt.Errorf("bedrock response parse: %w", err)
	}

	var text strings.Builder
	for _, block := range parsed.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if strings.TrimSpace(text.String()) == "" {
		return "", fmt.Errorf("bedrock response empty content")
	}
	return text.String(), nil
}

var _ llm.Extractor = (*Client)(nil)
