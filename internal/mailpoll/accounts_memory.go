package mailpoll

import (
	"context"
	"sync"
	"time"
)

// MemoryAccountSource holds accounts in memory; used in tests and local dev.
type MemoryAccountSource struct {
	mu       sync.RWMutex
	accounts map[string]Account
}

// NewMemoryAccountSource constructs a MemoryAccountSource.
func NewMemoryAccountSource() *MemoryAccountSource {
	return &MemoryAccountSource{accounts: make(map[string]Account)}
}

// Put stores or replaces an account.
func (s *MemoryAccountSource) Put(acct Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[acct.ID] = acct
}

// ListActive returns all mailboxes flagged for polling.
func (s *MemoryAccountSource) ListActive(ctx context.Context) ([]Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Account
	for _, acct := range s.accounts {
		if acct.IsActive {
			out = append(out, acct)
		}
	}
	return out, nil
}

// MarkSynced records a successful poll.
func (s *MemoryAccountSource) MarkSynced(ctx context.Context, accountID string, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.accounts[accountID]
	if !ok {
		return nil
	}
	acct.LastSyncAt = at
	s.accounts[accountID] = acct
	return nil
}

var _ AccountSource = (*MemoryAccountSource)(nil)
