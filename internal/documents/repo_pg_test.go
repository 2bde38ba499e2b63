package documents

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestPGRepoCreate(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	doc := Document{
		ID:            "doc-1",
		TenantID:      "t1",
		ProjectID:     "p1",
		DocumentType:  "invoice",
		Filename:      "bill.pdf",
		BlobKey:       "t1/projects/p1/invoice/1756600000000-bill.pdf",
		BlobBucket:    "docs-bucket",
		ExtractedText: "INVOICE #42",
		Metadata: Metadata{
			Confidence: 0.9,
			Summary:    "An invoice.",
			Source:     SourceWhatsApp,
		},
		Source:    SourceWhatsApp,
		CreatedAt: time.Now().UTC(),
	}

	mock.ExpectExec("INSERT INTO documents").
		WithArgs(
			doc.ID,
			doc.TenantID,
			doc.ProjectID,
			doc.DocumentType,
			doc.Filename,
			doc.BlobKey,
			doc.BlobBucket,
			doc.ExtractedText,
			sqlmock.AnyArg(), // metadata json
			doc.Source,
			doc.CreatedAt,
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.Create(context.Background(), doc); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoCreateNullsEmptyProject(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	doc := Document{
		ID:           "doc-1",
		TenantID:     "t1",
		DocumentType: "receipt",
		Filename:     "r.jpg",
		BlobKey:      "t1/general/receipt/1-r.jpg",
		BlobBucket:   "docs-bucket",
		Source:       SourceUpload,
		CreatedAt:    time.Now().UTC(),
	}

	mock.ExpectExec("INSERT INTO documents").
		WithArgs(
			doc.ID,
			doc.TenantID,
			nil, // project_id
			doc.DocumentType,
			doc.Filename,
			doc.BlobKey,
			doc.BlobBucket,
			doc.ExtractedText,
			sqlmock.AnyArg(),
			doc.Source,
			doc.CreatedAt,
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.Create(context.Background(), doc); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoGetByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	createdAt := time.Now().UTC()
	metadata, _ := json.Marshal(Metadata{Confidence: 0.8, Summary: "A permit.", Source: SourceEmail})

	mock.ExpectQuery("FROM documents").
		WithArgs("t1", "doc-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "tenant_id", "project_id", "document_type", "filename",
			"blob_key", "blob_bucket", "extracted_text", "metadata", "source", "created_at",
		}).AddRow(
			"doc-1", "t1", nil, "permit", "permit.pdf",
			"t1/general/permit/1-permit.pdf", "docs-bucket", "PERMIT", metadata, SourceEmail, createdAt,
		))

	doc, err := repo.GetByID(context.Background(), "t1", "doc-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if doc.ProjectID != "" {
		t.Errorf("project id = %q, want empty for null column", doc.ProjectID)
	}
	if doc.Metadata.Confidence != 0.8 || doc.Metadata.Source != SourceEmail {
		t.Errorf("metadata = %+v", doc.Metadata)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoGetByIDNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	mock.ExpectQuery("FROM documents").
		WithArgs("t1", "missing").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "tenant_id", "project_id", "document_type", "filename",
			"blob_key", "blob_bucket", "extracted_text", "metadata", "source", "created_at",
		}))

	_, err = repo.GetByID(context.Background(), "t1", "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestPGRepoLinkProjectNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	mock.ExpectExec("UPDATE documents").
		WithArgs("p1", "t1", "missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = repo.LinkProject(context.Background(), "t1", "missing", "p1")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}
