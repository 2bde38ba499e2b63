package intake

import (
	"reflect"
	"testing"
)

func TestFirstJSONObject(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
		ok   bool
	}{
		{"bare object", `{"a":1}`, `{"a":1}`, true},
		{"prose wrapped", "Here is the result:\n{\"a\":1}\nDone.", `{"a":1}`, true},
		{"markdown fence", "```json\n{\"a\":{\"b\":2}}\n```", `{"a":{"b":2}}`, true},
		{"brace inside string", `{"summary":"uses {braces} and \"quotes\""}`, `{"summary":"uses {braces} and \"quotes\""}`, true},
		{"nested objects", `x {"a":{"b":{"c":3}}} y`, `{"a":{"b":{"c":3}}}`, true},
		{"multiple spans", `prose {"a":1} more {"b":2}`, `{"a":1}`, true},
		{"no object", "no json here", "", false},
		{"unbalanced", `{"a":1`, "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := FirstJSONObject(tc.in)
			if ok != tc.ok {
				t.Fatalf("ok = %v, want %v", ok, tc.ok)
			}
			if got != tc.want {
				t.Fatalf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestParseModelOutputNormalizes(t *testing.T) {
	raw := `The document appears to be a permit.
{
  "document_type": "building_permit",
  "confidence": 1.7,
  "extracted_text": "CITY OF AUSTIN PERMIT",
  "structured_data": {
    "dates": ["2026-03-15", "March 15th", "2026-3-1"],
    "permit_number": "BP-2026-0042"
  },
  "summary": "A building permit.",
  "suggested_project": "123 Oak St"
}`
	result, err := ParseModelOutput(raw)
	if err != nil {
		t.Fatalf("ParseModelOutput: %v", err)
	}
	if result.DocumentType != DocTypeOther {
		t.Errorf("unknown type should map to other, got %q", result.DocumentType)
	}
	if result.Confidence != 1 {
		t.Errorf("confidence should clamp to 1, got %v", result.Confidence)
	}
	if want := []string{"2026-03-15"}; !reflect.DeepEqual(result.StructuredData.Dates, want) {
		t.Errorf("dates = %v, want %v", result.StructuredData.Dates, want)
	}
	if result.StructuredData.PermitNumber != "BP-2026-0042" {
		t.Errorf("permit_number = %q", result.StructuredData.PermitNumber)
	}
	if result.SuggestedProject != "123 Oak St" {
		t.Errorf("suggested_project = %q", result.SuggestedProject)
	}
}

func TestParseModelOutputKeepsKnownType(t *testing.T) {
	result, err := ParseModelOutput(`{"document_type":"invoice","confidence":-0.2,"summary":"ok"}`)
	if err != nil {
		t.Fatalf("ParseModelOutput: %v", err)
	}
	if result.DocumentType != DocTypeInvoice {
		t.Errorf("document_type = %q, want invoice", result.DocumentType)
	}
	if result.Confidence != 0 {
		t.Errorf("confidence should clamp to 0, got %v", result.Confidence)
	}
}

func TestParseModelOutputRejectsNonJSON(t *testing.T) {
	if _, err := ParseModelOutput("I could not read the document."); err == nil {
		t.Fatal("expected error for output without JSON")
	}
}
