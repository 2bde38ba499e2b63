package llm

import (
	"context"
	"errors"
)

// Mode selects the model-side content block used for the payload.
type Mode string

const (
	// ModeVision sends the payload as an image content block.
	ModeVision Mode = "vision"
	// ModeDocument sends the payload as a document content block (PDF).
	ModeDocument Mode = "document"
)

// ExtractInput carries one artifact into a document-extraction model call.
type ExtractInput struct {
	Data      []byte
	MediaType string
	Mode      Mode
	// Context is free text the sender attached to the artifact.
	Context string
	// DocumentText is locally extracted text (PDF only), given to the
	// model as additional grounding.
	DocumentText string
}

// Extractor abstracts the vision/document-capable model. It returns the raw
// model text; the intake engine owns parsing and degradation.
type Extractor interface {
	ExtractDocument(ctx context.Context, input ExtractInput) (string, error)
}

// ErrNotImplemented is returned by the placeholder extractor.
var ErrNotImplemented = errors.New("extractor not implemented")

// PlaceholderExtractor is a stub implementation used when no model backend is
// configured; the engine degrades every extraction to a stub result.
type PlaceholderExtractor struct{}

// ExtractDocument returns ErrNotImplemented.
func (PlaceholderExtractor) ExtractDocument(ctx context.Context, input ExtractInput) (string, error) {
	_ = ctx
	_ = input
	return "", ErrNotImplemented
}
