package users

import (
	"context"
	"database/sql"
	"errors"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

// GetByID returns a user by id.
func (r *PGRepo) GetByID(ctx context.Context, userID string) (User, error) {
	const query = `
SELECT id, tenant_id, name, phone_number, role, created_at
FROM users
WHERE id = $1`
	return r.scanOne(r.DB.QueryRowContext(ctx, query, userID))
}

// GetByPhone returns a user by phone number.
func (r *PGRepo) GetByPhone(ctx context.Context, phoneNumber string) (User, error) {
	const query = `
SELECT id, tenant_id, name, phone_number, role, created_at
FROM users
WHERE phone_number = $1
LIMIT 1`
	return r.scanOne(r.DB.QueryRowContext(ctx, query, phoneNumber))
}

func (r *PGRepo) scanOne(row *sql.Row) (User, error) {
	var user User
	var tenantID sql.NullString
	var name sql.NullString
	var phone sql.NullString
	err := row.Scan(&user.ID, &tenantID, &name, &phone, &user.Role, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	if tenantID.Valid {
		user.TenantID = tenantID.String
	}
	if name.Valid {
		user.Name = name.String
	}
	if phone.Valid {
		user.PhoneNumber = phone.String
	}
	return user, nil
}

var _ Repo = (*PGRepo)(nil)
