package llm

import (
	"fmt"
	"strings"
)

const extractionSchema = `{
  "document_type": "permit|invoice|receipt|photo|insurance_scope|change_order|contract|estimate|inspection_report|material_list|other",
  "confidence": 0.0-1.0,
  "extracted_text": "Full text content extracted from the document",
  "structured_data": {
    "addresses": ["Any addresses found"],
    "dates": ["Any dates found in ISO format YYYY-MM-DD"],
    "amounts": [{"value": 1234.56, "currency": "USD", "description": "what the amount is for"}],
    "names": ["Customer or company names"],
    "phone_numbers": ["Any phone numbers"],
    "permit_number": "if this is a permit",
    "invoice_number": "if this is an invoice",
    "policy_number": "if this is insurance related"
  },
  "summary": "1-2 sentence summary of what this document is",
  "suggested_project": "If an address is found, suggest using it as project name"
}`

// BuildExtractionPrompt returns the instruction text for a document or image
// extraction call. The model must answer with a single JSON object matching
// the extraction schema.
func BuildExtractionPrompt(mode Mode, contextText, documentText string) string {
	var b strings.Builder
	b.WriteString("You are analyzing a document for a roofing contractor's business management system.\n\n")
	if mode == ModeDocument {
		b.WriteString("Analyze this PDF document and extract all relevant information.\n")
	} else {
		b.WriteString("Analyze this image and extract all relevant information.\n")
	}
	if trimmed := strings.TrimSpace(contextText); trimmed != "" {
		fmt.Fprintf(&b, "\nContext from user: %q\n", trimmed)
	}
	if trimmed := strings.TrimSpace(documentText); trimmed != "" {
		fmt.Fprintf(&b, "\nText extracted from the document:\n%s\n", trimmed)
	}
	b.WriteString("\nRespond with JSON only in this exact format:\n")
	b.WriteString(extractionSchema)
	return b.String()
}
