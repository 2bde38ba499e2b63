package projects

import "context"

// Repo defines persistence operations for projects.
type Repo interface {
	Create(ctx context.Context, project Project) error
	GetByID(ctx context.Context, tenantID, projectID string) (Project, error)
	ListByTenant(ctx context.Context, tenantID string, limit, offset int) ([]Project, error)
	// FindByHint returns the newest project whose name or address contains
	// hint (case-insensitive), scoped to tenantID, or ErrNotFound.
	FindByHint(ctx context.Context, tenantID, hint string) (Project, error)
}
