package users

import (
	"errors"
	"time"
)

// ErrNotFound indicates the user does not exist.
var ErrNotFound = errors.New("user not found")

// User is a person reachable over WhatsApp, belonging to at most one tenant.
type User struct {
	ID          string    `json:"id"`
	TenantID    string    `json:"tenantId,omitempty"`
	Name        string    `json:"name,omitempty"`
	PhoneNumber string    `json:"phoneNumber,omitempty"`
	Role        string    `json:"role"`
	CreatedAt   time.Time `json:"createdAt"`
}
