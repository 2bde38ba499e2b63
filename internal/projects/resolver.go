package projects

import (
	"context"
	"errors"
	"strings"
)

// Resolver matches a suggested project name or address against the tenant's
// project catalog. It never creates projects; an unresolved hint is the
// caller's decision to act on.
type Resolver struct {
	Repo Repo
}

// Resolve returns the id of the best-matching project, or "" when the hint is
// empty or nothing matches. When several projects match, the most recently
// created one wins.
func (r *Resolver) Resolve(ctx context.Context, tenantID, hint string) (string, error) {
	hint = strings.TrimSpace(hint)
	if hint == "" {
		return "", nil
	}

	project, err := r.Repo.FindByHint(ctx, tenantID, hint)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", nil
		}
		return "", err
	}
	return project.ID, nil
}
