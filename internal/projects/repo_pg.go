package projects

import (
	"context"
	"database/sql"
	"errors"
	"strings"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

// Create inserts a new project.
func (r *PGRepo) Create(ctx context.Context, project Project) error {
	const query = `
INSERT INTO projects (id, tenant_id, name, address, customer_name, status, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

	status := project.Status
	if status == "" {
		status = "active"
	}

	_, err := r.DB.ExecContext(
		ctx,
		query,
		project.ID,
		project.TenantID,
		project.Name,
		nullable(project.Address),
		nullable(project.CustomerName),
		status,
		project.CreatedAt,
	)
	return err
}

// GetByID returns a project by id within a tenant.
func (r *PGRepo) GetByID(ctx context.Context, tenantID, projectID string) (Project, error) {
	const query = `
SELECT id, tenant_id, name, address, customer_name, status, created_at
FROM projects
WHERE tenant_id = $1 AND id = $2`
	return r.scanOne(r.DB.QueryRowContext(ctx, query, tenantID, projectID))
}

// ListByTenant lists projects newest-first.
func (r *PGRepo) ListByTenant(ctx context.Context, tenantID string, limit, offset int) ([]Project, error) {
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
SELECT id, tenant_id, name, address, customer_name, status, created_at
FROM projects
WHERE tenant_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`

	rows, err := r.DB.QueryContext(ctx, query, tenantID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Project
	for rows.Next() {
		project, err := r.scanOne(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, project)
	}
	return out, rows.Err()
}

// FindByHint returns the most recently created project matching the hint.
// The newest-first order makes the multi-match tie-break deterministic.
func (r *PGRepo) FindByHint(ctx context.Context, tenantID, hint string) (Project, error) {
	const query = `
SELECT id, tenant_id, name, address, customer_name, status, created_at
FROM projects
WHERE tenant_id = $1
  AND (name ILIKE '%' || $2 || '%' OR address ILIKE '%' || $2 || '%')
ORDER BY created_at DESC
LIMIT 1`
	return r.scanOne(r.DB.QueryRowContext(ctx, query, tenantID, escapeLike(hint)))
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *PGRepo) scanOne(row rowScanner) (Project, error) {
	var project Project
	var address sql.NullString
	var customerName sql.NullString
	err := row.Scan(
		&project.ID,
		&project.TenantID,
		&project.Name,
		&address,
		&customerName,
		&project.Status,
		&project.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Project{}, ErrNotFound
		}
		return Project{}, err
	}
	if address.Valid {
		project.Address = address.String
	}
	if customerName.Valid {
		project.CustomerName = customerName.String
	}
	return project, nil
}

func nullable(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// escapeLike neutralizes LIKE metacharacters so the hint matches literally.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}

var _ Repo = (*PGRepo)(nil)
