package usage

import (
	"context"
	"sync"
	"time"
)

type usageKey struct {
	tenantID   string
	monthStart time.Time
}

// MemoryStore stores counters in memory and is safe for concurrent use.
type MemoryStore struct {
	mu   sync.Mutex
	rows map[usageKey]Usage
}

// NewMemoryStore constructs a MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rows: make(map[usageKey]Usage)}
}

// Increment applies the delta to the (tenant, month) row, creating it on first use.
func (s *MemoryStore) Increment(ctx context.Context, tenantID string, monthStart time.Time, delta Delta) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := usageKey{tenantID: tenantID, monthStart: monthStart}
	u, ok := s.rows[key]
	if !ok {
		u = Usage{TenantID: tenantID, MonthStart: monthStart}
	}
	u.DocumentsProcessed += delta.DocumentsProcessed
	u.WhatsAppReceived += delta.WhatsAppReceived
	u.WhatsAppSent += delta.WhatsAppSent
	u.EmailsProcessed += delta.EmailsProcessed
	u.AgentInputTokens += delta.AgentInputTokens
	u.AgentOutputTokens += delta.AgentOutputTokens
	u.UpdatedAt = time.Now().UTC()
	s.rows[key] = u
	return nil
}

// Get returns the tenant's counters for the month, zero-valued when absent.
func (s *MemoryStore) Get(ctx context.Context, tenantID string, monthStart time.Time) (Usage, error) {
	if err := ctx.Err(); err != nil {
		return Usage{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.rows[usageKey{tenantID: tenantID, monthStart: monthStart}]
	if !ok {
		return Usage{TenantID: tenantID, MonthStart: monthStart}, nil
	}
	return u, nil
}

var _ Store = (*MemoryStore)(nil)
