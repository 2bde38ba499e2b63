package intake

import (
	"encoding/json"
	"fmt"
	"time"
)

// Document classifications the model may assign. Anything else is coerced to
// DocTypeOther.
const (
	DocTypePermit           = "permit"
	DocTypeInvoice          = "invoice"
	DocTypeReceipt          = "receipt"
	DocTypePhoto            = "photo"
	DocTypeInsuranceScope   = "insurance_scope"
	DocTypeChangeOrder      = "change_order"
	DocTypeContract         = "contract"
	DocTypeEstimate         = "estimate"
	DocTypeInspectionReport = "inspection_report"
	DocTypeMaterialList     = "material_list"
	DocTypeOther            = "other"
)

var knownDocTypes = map[string]bool{
	DocTypePermit:           true,
	DocTypeInvoice:          true,
	DocTypeReceipt:          true,
	DocTypePhoto:            true,
	DocTypeInsuranceScope:   true,
	DocTypeChangeOrder:      true,
	DocTypeContract:         true,
	DocTypeEstimate:         true,
	DocTypeInspectionReport: true,
	DocTypeMaterialList:     true,
	DocTypeOther:            true,
}

// Amount is a monetary figure found in a document.
type Amount struct {
	Value       float64 `json:"value"`
	Currency    string  `json:"currency,omitempty"`
	Description string  `json:"description,omitempty"`
}

// StructuredData holds the typed fields pulled out of a document.
type StructuredData struct {
	Addresses     []string `json:"addresses,omitempty"`
	Dates         []string `json:"dates,omitempty"`
	Amounts       []Amount `json:"amounts,omitempty"`
	Names         []string `json:"names,omitempty"`
	PhoneNumbers  []string `json:"phone_numbers,omitempty"`
	PermitNumber  string   `json:"permit_number,omitempty"`
	InvoiceNumber string   `json:"invoice_number,omitempty"`
	PolicyNumber  string   `json:"policy_number,omitempty"`
}

// ExtractionResult is the model's answer for one artifact, normalized.
type ExtractionResult struct {
	DocumentType     string         `json:"document_type"`
	Confidence       float64        `json:"confidence"`
	ExtractedText    string         `json:"extracted_text"`
	StructuredData   StructuredData `json:"structured_data"`
	Summary          string         `json:"summary"`
	SuggestedProject string         `json:"suggested_project,omitempty"`
}

// FirstJSONObject returns the first balanced {...} span in s. Models often
// wrap their JSON in prose or markdown fences; this pulls the object out.
// Braces inside JSON strings do not count toward nesting.
func FirstJSONObject(s string) (string, bool) {
	start := -1
	depth := 0
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			if depth > 0 {
				inString = true
			}
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth > 0 {
				depth--
				if depth == 0 {
					return s[start : i+1], true
				}
			}
		}
	}
	return "", false
}

// ParseModelOutput extracts and normalizes the model's JSON answer.
func ParseModelOutput(raw string) (ExtractionResult, error) {
	span, ok := FirstJSONObject(raw)
	if !ok {
		return ExtractionResult{}, fmt.Errorf("no JSON object in model output")
	}
	var result ExtractionResult
	if err := json.Unmarshal([]byte(span), &result); err != nil {
		return ExtractionResult{}, fmt.Errorf("parse model output: %w", err)
	}
	result.normalize()
	return result, nil
}

func (r *ExtractionResult) normalize() {
	if !knownDocTypes[r.DocumentType] {
		r.DocumentType = DocTypeOther
	}
	if r.Confidence < 0 {
		r.Confidence = 0
	}
	if r.Confidence > 1 {
		r.Confidence = 1
	}
	if len(r.StructuredData.Dates) > 0 {
		kept := r.StructuredData.Dates[:0]
		for _, d := range r.StructuredData.Dates {
			if _, err := time.Parse("2006-01-02", d); err == nil {
				kept = append(kept, d)
			}
		}
		r.StructuredData.Dates = kept
	}
}
