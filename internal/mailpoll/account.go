package mailpoll

import (
	"context"
	"time"
)

// Account is one tenant mailbox polled for document attachments.
type Account struct {
	ID           string
	TenantID     string
	EmailAddress string
	RefreshToken string
	IsActive     bool
	LastSyncAt   time.Time
	CreatedAt    time.Time
}

// AccountSource lists mailboxes to poll and records sync progress.
type AccountSource interface {
	ListActive(ctx context.Context) ([]Account, error)
	MarkSynced(ctx context.Context, accountID string, at time.Time) error
}
