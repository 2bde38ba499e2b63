package documents

import "context"

// Repo defines persistence operations for documents. All reads and writes are
// tenant-scoped; this pipeline never deletes documents.
type Repo interface {
	Create(ctx context.Context, doc Document) error
	GetByID(ctx context.Context, tenantID, documentID string) (Document, error)
	ListByTenant(ctx context.Context, tenantID string, limit, offset int) ([]Document, error)
	// LinkProject attaches an unfiled document to a project.
	LinkProject(ctx context.Context, tenantID, documentID, projectID string) error
}
