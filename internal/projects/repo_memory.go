package projects

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemoryRepo stores projects in memory and is safe for concurrent use.
type MemoryRepo struct {
	mu       sync.RWMutex
	byTenant map[string][]Project
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byTenant: make(map[string][]Project)}
}

// Create stores the project.
func (r *MemoryRepo) Create(ctx context.Context, project Project) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byTenant[project.TenantID] = append(r.byTenant[project.TenantID], project)
	return nil
}

// GetByID returns a project by id within a tenant.
func (r *MemoryRepo) GetByID(ctx context.Context, tenantID, projectID string) (Project, error) {
	if err := ctx.Err(); err != nil {
		return Project{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, project := range r.byTenant[tenantID] {
		if project.ID == projectID {
			return project, nil
		}
	}
	return Project{}, ErrNotFound
}

// ListByTenant lists projects newest-first.
func (r *MemoryRepo) ListByTenant(ctx context.Context, tenantID string, limit, offset int) ([]Project, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	sorted := append([]Project(nil), r.byTenant[tenantID]...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})
	if offset >= len(sorted) {
		return nil, nil
	}
	end := offset + limit
	if end > len(sorted) {
		end = len(sorted)
	}
	return sorted[offset:end], nil
}

// FindByHint returns the most recently created project matching the hint.
func (r *MemoryRepo) FindByHint(ctx context.Context, tenantID, hint string) (Project, error) {
	if err := ctx.Err(); err != nil {
		return Project{}, err
	}
	needle := strings.ToLower(hint)
	r.mu.RLock()
	defer r.mu.RUnlock()

	var best Project
	found := false
	for _, project := range r.byTenant[tenantID] {
		if !strings.Contains(strings.ToLower(project.Name), needle) &&
			!strings.Contains(strings.ToLower(project.Address), needle) {
			continue
		}
		if !found || project.CreatedAt.After(best.CreatedAt) {
			best = project
			found = true
		}
	}
	if !found {
		return Project{}, ErrNotFound
	}
	return best, nil
}

var _ Repo = (*MemoryRepo)(nil)
