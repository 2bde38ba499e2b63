package intake

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"roofing-backend/internal/llm"
)

// Image media types the model accepts natively. Anything else declared as
// image/* is relabeled as PNG, which the Graph API sometimes mislabels.
var supportedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// Extraction is the outcome of analyzing one artifact. Extraction never
// fails outright: when the model is unreachable or answers garbage the
// result degrades to a low-confidence stub and Reason says why.
type Extraction struct {
	Result   ExtractionResult
	Degraded bool
	Reason   string
}

// Engine turns artifact bytes into a classification via the model backend.
type Engine struct {
	Extractor llm.Extractor
}

// Extract analyzes the payload according to its media type. PDFs go through
// the document path with locally extracted text as grounding; images go
// through the vision path; everything else is unsupported.
func (e *Engine) Extract(ctx context.Context, data []byte, mediaType, contextText string) Extraction {
	mediaType = strings.ToLower(strings.TrimSpace(strings.Split(mediaType, ";")[0]))

	switch {
	case mediaType == "application/pdf":
		return e.extractPDF(ctx, data, contextText)
	case strings.HasPrefix(mediaType, "image/"):
		return e.extractImage(ctx, data, mediaType, contextText)
	default:
		return Extraction{
			Result: ExtractionResult{
				DocumentType: DocTypeOther,
				Confidence:   0,
				Summary:      "Unsupported file type",
			},
			Degraded: true,
			Reason:   fmt.Sprintf("unsupported media type %q", mediaType),
		}
	}
}

func (e *Engine) extractPDF(ctx context.Context, data []byte, contextText string) Extraction {
	localText := pdfText(data)

	raw, err := e.Extractor.ExtractDocument(ctx, llm.ExtractInput{
		Data:         data,
		MediaType:    "application/pdf",
		Mode:         llm.ModeDocument,
		Context:      contextText,
		DocumentText: localText,
	})
	if err != nil {
		return pdfStub(localText, fmt.Sprintf("model call failed: %v", err))
	}

	result, err := ParseModelOutput(raw)
	if err != nil {
		return pdfStub(localText, fmt.Sprintf("unparseable model output: %v", err))
	}
	return Extraction{Result: result}
}

func (e *Engine) extractImage(ctx context.Context, data []byte, mediaType, contextText string) Extraction {
	if !supportedImageTypes[mediaType] {
		mediaType = "image/png"
	}

	raw, err := e.Extractor.ExtractDocument(ctx, llm.ExtractInput{
		Data:      data,
		MediaType: mediaType,
		Mode:      llm.ModeVision,
		Context:   contextText,
	})
	if err != nil {
		return imageStub(fmt.Sprintf("model call failed: %v", err))
	}

	result, err := ParseModelOutput(raw)
	if err != nil {
		return imageStub(fmt.Sprintf("unparseable model output: %v", err))
	}
	return Extraction{Result: result}
}

func pdfStub(localText, reason string) Extraction {
	return Extraction{
		Result: ExtractionResult{
			DocumentType:  DocTypeOther,
			Confidence:    0.5,
			ExtractedText: localText,
			Summary:       "Unable to analyze PDF",
		},
		Degraded: true,
		Reason:   reason,
	}
}

func imageStub(reason string) Extraction {
	return Extraction{
		Result: ExtractionResult{
			DocumentType: DocTypeOther,
			Confidence:   0.5,
			Summary:      "Unable to analyze document",
		},
		Degraded: true,
		Reason:   reason,
	}
}

// pdfText extracts plain text from a PDF, best effort. The parser panics on
// some malformed files, so the whole thing runs behind a recover.
func pdfText(data []byte) (text string) {
	defer func() {
		if recover() != nil {
			text = ""
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return ""
	}
	plain, err := reader.GetPlainText()
	if err != nil {
		return ""
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return ""
	}
	return strings.TrimSpace(buf.String())
}
