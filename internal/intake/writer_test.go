package intake

import (
	"context"
	"errors"
	"testing"
	"time"

	"roofing-backend/internal/documents"
	"roofing-backend/internal/queue"
)

func TestBlobKeyWithProject(t *testing.T) {
	at := time.UnixMilli(1756600000000).UTC()

	key := BlobKey("t1", "p1", "invoice", "bill.pdf", at)
	if key != "t1/projects/p1/invoice/1756600000000-bill.pdf" {
		t.Fatalf("key = %q", key)
	}

	key = BlobKey("t1", "p1", "", "bill.pdf", at)
	if key != "t1/projects/p1/general/1756600000000-bill.pdf" {
		t.Fatalf("key with empty type = %q", key)
	}
}

func TestBlobKeyWithoutProject(t *testing.T) {
	at := time.UnixMilli(1756600000000).UTC()

	key := BlobKey("t1", "", "permit", "permit.jpg", at)
	if key != "t1/general/permit/1756600000000-permit.jpg" {
		t.Fatalf("key = %q", key)
	}

	key = BlobKey("t1", "", "", "permit.jpg", at)
	if key != "t1/general/unclassified/1756600000000-permit.jpg" {
		t.Fatalf("key with empty type = %q", key)
	}
}

func TestBlobKeySanitizesFilename(t *testing.T) {
	at := time.UnixMilli(1756600000000).UTC()
	key := BlobKey("t1", "", "other", "../../etc/passwd", at)
	if key != "t1/general/other/1756600000000-etc_passwd" {
		t.Fatalf("key = %q", key)
	}
}

func TestWriteBlobThenRow(t *testing.T) {
	store := newMemStore()
	repo := documents.NewMemoryRepo()
	writer := NewWriter(store, "docs-bucket", repo)
	at := time.UnixMilli(1756600000000).UTC()
	writer.now = func() time.Time { return at }

	art := Artifact{
		Type:     queue.TypeWhatsAppMedia,
		TenantID: "t1",
		UserID:   "u1",
		Source:   documents.SourceWhatsApp,
		Filename: "roof.jpg",
	}
	ext := Extraction{Result: ExtractionResult{
		DocumentType:  DocTypePhoto,
		Confidence:    0.9,
		ExtractedText: "roof",
		Summary:       "A roof photo.",
	}}

	doc, err := writer.Write(context.Background(), art, "p1", "image/jpeg", []byte("jpeg"), ext)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	wantKey := "t1/projects/p1/photo/1756600000000-roof.jpg"
	if doc.BlobKey != wantKey {
		t.Fatalf("blob key = %q, want %q", doc.BlobKey, wantKey)
	}
	if _, ok := store.objects[wantKey]; !ok {
		t.Fatal("blob not stored")
	}
	if store.meta[wantKey]["tenant-id"] != "t1" || store.meta[wantKey]["project-id"] != "p1" {
		t.Fatalf("blob metadata = %v", store.meta[wantKey])
	}

	stored, err := repo.GetByID(context.Background(), "t1", doc.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.DocumentType != DocTypePhoto || stored.ProjectID != "p1" {
		t.Fatalf("stored doc = %+v", stored)
	}
	if stored.Metadata.Source != documents.SourceWhatsApp {
		t.Fatalf("metadata source = %q", stored.Metadata.Source)
	}
	if stored.Metadata.OriginalMimeType != "image/jpeg" {
		t.Fatalf("metadata mime = %q", stored.Metadata.OriginalMimeType)
	}
}

func TestWriteBlobFailureSkipsRow(t *testing.T) {
	store := newMemStore()
	store.putErr = errors.New("bucket unavailable")
	repo := documents.NewMemoryRepo()
	writer := NewWriter(store, "docs-bucket", repo)

	art := Artifact{Type: queue.TypeWhatsAppMedia, TenantID: "t1", Source: documents.SourceWhatsApp, Filename: "roof.jpg"}
	_, err := writer.Write(context.Background(), art, "", "image/jpeg", []byte("jpeg"), Extraction{Result: ExtractionResult{DocumentType: DocTypePhoto}})

	var writeErr *WriteError
	if !errors.As(err, &writeErr) {
		t.Fatalf("expected WriteError, got %v", err)
	}
	if writeErr.Stage != StageBlob {
		t.Fatalf("stage = %q, want blob", writeErr.Stage)
	}
	docs, _ := repo.ListByTenant(context.Background(), "t1", 10, 0)
	if len(docs) != 0 {
		t.Fatalf("no row should exist after blob failure, got %d", len(docs))
	}
}

type failingDocsRepo struct {
	documents.Repo
}

func (failingDocsRepo) Create(ctx context.Context, doc documents.Document) error {
	return errors.New("db down")
}

func TestWriteRowFailureLeavesBlob(t *testing.T) {
	store := newMemStore()
	writer := NewWriter(store, "docs-bucket", failingDocsRepo{})

	art := Artifact{Type: queue.TypeWhatsAppMedia, TenantID: "t1", Source: documents.SourceWhatsApp, Filename: "roof.jpg"}
	_, err := writer.Write(context.Background(), art, "", "image/jpeg", []byte("jpeg"), Extraction{Result: ExtractionResult{DocumentType: DocTypePhoto}})

	var writeErr *WriteError
	if !errors.As(err, &writeErr) {
		t.Fatalf("expected WriteError, got %v", err)
	}
	if writeErr.Stage != StageRecord {
		t.Fatalf("stage = %q, want record", writeErr.Stage)
	}
	if len(store.objects) != 1 {
		t.Fatalf("blob should remain after row failure, got %d objects", len(store.objects))
	}
}
