package intake

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"roofing-backend/internal/documents"
	"roofing-backend/internal/shared/storage/object"
	"roofing-backend/internal/shared/util"
)

// Write failure stages.
const (
	StageBlob   = "blob"
	StageRecord = "record"
)

// WriteError reports which persistence stage failed. A blob failure leaves
// nothing behind; a record failure leaves an orphaned blob, which is accepted
// over losing the bytes.
type WriteError struct {
	Stage string
	Err   error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write %s: %v", e.Stage, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// Writer persists the artifact bytes to the object store and then the
// document row, in that order.
type Writer struct {
	Store  object.Store
	Bucket string
	Docs   documents.Repo

	now func() time.Time
}

// NewWriter constructs a Writer.
func NewWriter(store object.Store, bucket string, docs documents.Repo) *Writer {
	return &Writer{Store: store, Bucket: bucket, Docs: docs, now: time.Now}
}

// BlobKey builds the canonical storage key for a document. Documents linked
// to a project live under the project; unfiled documents go under a general
// prefix keyed by type.
func BlobKey(tenantID, projectID, docType, filename string, at time.Time) string {
	filename = util.SanitizeFileName(filename)
	millis := at.UnixMilli()
	if projectID != "" {
		if docType == "" {
			docType = "general"
		}
		return fmt.Sprintf("%s/projects/%s/%s/%d-%s", tenantID, projectID, docType, millis, filename)
	}
	if docType == "" {
		docType = "unclassified"
	}
	return fmt.Sprintf("%s/general/%s/%d-%s", tenantID, docType, millis, filename)
}

// Write stores the blob and creates the document row, returning the persisted
// document.
func (w *Writer) Write(ctx context.Context, art Artifact, projectID, mediaType string, data []byte, ext Extraction) (documents.Document, error) {
	now := w.now().UTC()
	key := BlobKey(art.TenantID, projectID, ext.Result.DocumentType, art.Filename, now)

	meta := map[string]string{
		"tenant-id":     art.TenantID,
		"document-type": ext.Result.DocumentType,
	}
	if projectID != "" {
		meta["project-id"] = projectID
	}

	if _, err := w.Store.Put(ctx, key, mediaType, meta, bytes.NewReader(data)); err != nil {
		return documents.Document{}, &WriteError{Stage: StageBlob, Err: err}
	}

	structured, err := json.Marshal(ext.Result.StructuredData)
	if err != nil {
		structured = nil
	}

	doc := documents.Document{
		ID:            uuid.NewString(),
		TenantID:      art.TenantID,
		ProjectID:     projectID,
		DocumentType:  ext.Result.DocumentType,
		Filename:      util.SanitizeFileName(art.Filename),
		BlobKey:       key,
		BlobBucket:    w.Bucket,
		ExtractedText: ext.Result.ExtractedText,
		Metadata: documents.Metadata{
			Confidence:       ext.Result.Confidence,
			StructuredData:   structured,
			Summary:          ext.Result.Summary,
			Source:           art.Source,
			OriginalMimeType: mediaType,
		},
		Source:    art.Source,
		CreatedAt: now,
	}

	if err := w.Docs.Create(ctx, doc); err != nil {
		return documents.Document{}, &WriteError{Stage: StageRecord, Err: err}
	}
	return doc, nil
}
