package usage

import (
	"context"
	"fmt"
	"time"
)

// Service wraps a Store with month bucketing. Callers pass wall-clock time
// and the service picks the month row.
type Service struct {
	Store Store
}

// NewService constructs a Service.
func NewService(store Store) *Service {
	return &Service{Store: store}
}

// Increment applies the delta to the tenant's counters for at's month.
func (s *Service) Increment(ctx context.Context, tenantID string, at time.Time, delta Delta) error {
	if tenantID == "" {
		return fmt.Errorf("tenant id is required")
	}
	return s.Store.Increment(ctx, tenantID, MonthStart(at), delta)
}

// Current returns the tenant's counters for at's month.
func (s *Service) Current(ctx context.Context, tenantID string, at time.Time) (Usage, error) {
	if tenantID == "" {
		return Usage{}, fmt.Errorf("tenant id is required")
	}
	return s.Store.Get(ctx, tenantID, MonthStart(at))
}
