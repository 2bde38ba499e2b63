package projects

import (
	"errors"
	"time"
)

// ErrNotFound indicates no project matched the lookup.
var ErrNotFound = errors.New("project not found")

// Project is one job site within a tenant. Lookups are always tenant-scoped.
type Project struct {
	ID           string    `json:"id"`
	TenantID     string    `json:"tenantId"`
	Name         string    `json:"name"`
	Address      string    `json:"address,omitempty"`
	CustomerName string    `json:"customerName,omitempty"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"createdAt"`
}
