package users

import "context"

// Repo defines persistence operations for users.
type Repo interface {
	GetByID(ctx context.Context, userID string) (User, error)
	GetByPhone(ctx context.Context, phoneNumber string) (User, error)
}
