package documents

import (
	"encoding/json"
	"errors"
	"time"
)

// ErrNotFound indicates the document does not exist within the tenant.
var ErrNotFound = errors.New("document not found")

// Document source channels.
const (
	SourceWhatsApp = "whatsapp"
	SourceUpload   = "upload"
	SourceEmail    = "email"
)

// Metadata is the free-form JSON blob persisted alongside a document row.
// StructuredData is kept raw so this package does not depend on the intake
// schema types.
type Metadata struct {
	Confidence       float64         `json:"confidence"`
	StructuredData   json.RawMessage `json:"structured_data,omitempty"`
	Summary          string          `json:"summary"`
	Source           string          `json:"source"`
	OriginalMimeType string          `json:"original_mime_type"`
}

// Document is one classified artifact with full provenance. TenantID is
// immutable and always set; an empty ProjectID means the document is unfiled
// and may be linked later.
type Document struct {
	ID            string    `json:"id"`
	TenantID      string    `json:"tenantId"`
	ProjectID     string    `json:"projectId,omitempty"`
	DocumentType  string    `json:"documentType"`
	Filename      string    `json:"filename"`
	BlobKey       string    `json:"blobKey"`
	BlobBucket    string    `json:"blobBucket"`
	ExtractedText string    `json:"extractedText"`
	Metadata      Metadata  `json:"metadata"`
	Source        string    `json:"source"`
	CreatedAt     time.Time `json:"createdAt"`
}
