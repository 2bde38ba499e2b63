package usage

import (
	"context"
	"time"
)

// Store persists per-tenant monthly counters.
type Store interface {
	// Increment applies the delta to the tenant's row for the given month,
	// creating the row if it does not exist yet.
	Increment(ctx context.Context, tenantID string, monthStart time.Time, delta Delta) error
	// Get returns the tenant's counters for the given month. A missing row
	// is returned as a zero-valued Usage, not an error.
	Get(ctx context.Context, tenantID string, monthStart time.Time) (Usage, error)
}
