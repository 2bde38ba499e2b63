package documents

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

// Create inserts a new document row.
func (r *PGRepo) Create(ctx context.Context, doc Document) error {
	const query = `
INSERT INTO documents (
    id,
    tenant_id,
    project_id,
    document_type,
    filename,
    blob_key,
    blob_bucket,
    extracted_text,
    metadata,
    source,
    created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	metadata, err := json.Marshal(doc.Metadata)
	if err != nil {
		return fmt.Errorf("marshal document metadata: %w", err)
	}

	var projectID sql.NullString
	if doc.ProjectID != "" {
		projectID = sql.NullString{String: doc.ProjectID, Valid: true}
	}

	_, err = r.DB.ExecContext(
		ctx,
		query,
		doc.ID,
		doc.TenantID,
		projectID,
		doc.DocumentType,
		doc.Filename,
		doc.BlobKey,
		doc.BlobBucket,
		doc.ExtractedText,
		metadata,
		doc.Source,
		doc.CreatedAt,
	)
	return err
}

// GetByID fetches a document by id within a tenant.
func (r *PGRepo) GetByID(ctx context.Context, tenantID, documentID string) (Document, error) {
	const query = `
SELECT id, tenant_id, project_id, document_type, filename, blob_key, blob_bucket, extracted_text, metadata, source, created_at
FROM documents
WHERE tenant_id = $1 AND id = $2`
	return scanDocument(r.DB.QueryRowContext(ctx, query, tenantID, documentID))
}

// ListByTenant lists documents newest-first.
func (r *PGRepo) ListByTenant(ctx context.Context, tenantID string, limit, offset int) ([]Document, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	const query = `
SELECT id, tenant_id, project_id, document_type, filename, blob_key, blob_bucket, extracted_text, metadata, source, created_at
FROM documents
WHERE tenant_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`

	rows, err := r.DB.QueryContext(ctx, query, tenantID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

// LinkProject attaches a document to a project within the same tenant.
func (r *PGRepo) LinkProject(ctx context.Context, tenantID, documentID, projectID string) error {
	const query = `
UPDATE documents
SET project_id = $1
WHERE tenant_id = $2 AND id = $3`
	res, err := r.DB.ExecContext(ctx, query, projectID, tenantID, documentID)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (Document, error) {
	var doc Document
	var projectID sql.NullString
	var metadata []byte
	err := row.Scan(
		&doc.ID,
		&doc.TenantID,
		&projectID,
		&doc.DocumentType,
		&doc.Filename,
		&doc.BlobKey,
		&doc.BlobBucket,
		&doc.ExtractedText,
		&metadata,
		&doc.Source,
		&doc.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Document{}, ErrNotFound
		}
		return Document{}, err
	}
	if projectID.Valid {
		doc.ProjectID = projectID.String
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &doc.Metadata); err != nil {
			return Document{}, fmt.Errorf("unmarshal document metadata: %w", err)
		}
	}
	return doc, nil
}

var _ Repo = (*PGRepo)(nil)
