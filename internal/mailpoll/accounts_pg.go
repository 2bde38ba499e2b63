package mailpoll

import (
	"context"
	"database/sql"
	"time"
)

// PGAccountSource reads email accounts from Postgres.
type PGAccountSource struct {
	DB *sql.DB
}

// ListActive returns all mailboxes flagged for polling.
func (s *PGAccountSource) ListActive(ctx context.Context) ([]Account, error) {
	const query = `
SELECT id, tenant_id, email_address, refresh_token, is_active, last_sync_at, created_at
FROM email_accounts
WHERE is_active = TRUE
ORDER BY created_at`

	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []Account
	for rows.Next() {
		var acct Account
		var lastSync sql.NullTime
		if err := rows.Scan(&acct.ID, &acct.TenantID, &acct.EmailAddress, &acct.RefreshToken, &acct.IsActive, &lastSync, &acct.CreatedAt); err != nil {
			return nil, err
		}
		if lastSync.Valid {
			acct.LastSyncAt = lastSync.Time
		}
		accounts = append(accounts, acct)
	}
	return accounts, rows.Err()
}

// MarkSynced records a successful poll.
func (s *PGAccountSource) MarkSynced(ctx context.Context, accountID string, at time.Time) error {
	const query = `UPDATE email_accounts SET last_sync_at = $1 WHERE id = $2`
	_, err := s.DB.ExecContext(ctx, query, at, accountID)
	return err
}

var _ AccountSource = (*PGAccountSource)(nil)
