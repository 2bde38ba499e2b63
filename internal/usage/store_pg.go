package usage

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// PGStore implements Store using Postgres. Increments are a single upsert so
// concurrent workers never lose counts.
type PGStore struct {
	DB *sql.DB
}

// Increment applies the delta to the (tenant, month) row, creating it on first use.
func (s *PGStore) Increment(ctx context.Context, tenantID string, monthStart time.Time, delta Delta) error {
	const query = `
INSERT INTO usage_counters (tenant_id, month_start, documents_processed, whatsapp_received, whatsapp_sent, emails_processed, agent_input_tokens, agent_output_tokens, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
ON CONFLICT (tenant_id, month_start) DO UPDATE SET
    documents_processed = usage_counters.documents_processed + EXCLUDED.documents_processed,
    whatsapp_received   = usage_counters.whatsapp_received + EXCLUDED.whatsapp_received,
    whatsapp_sent       = usage_counters.whatsapp_sent + EXCLUDED.whatsapp_sent,
    emails_processed    = usage_counters.emails_processed + EXCLUDED.emails_processed,
    agent_input_tokens  = usage_counters.agent_input_tokens + EXCLUDED.agent_input_tokens,
    agent_output_tokens = usage_counters.agent_output_tokens + EXCLUDED.agent_output_tokens,
    updated_at          = now()`

	_, err := s.DB.ExecContext(
		ctx,
		query,
		tenantID,
		monthStart,
		delta.DocumentsProcessed,
		delta.WhatsAppReceived,
		delta.WhatsAppSent,
		delta.EmailsProcessed,
		delta.AgentInputTokens,
		delta.AgentOutputTokens,
	)
	return err
}

// Get returns the tenant's counters for the month, zero-valued when absent.
func (s *PGStore) Get(ctx context.Context, tenantID string, monthStart time.Time) (Usage, error) {
	const query = `
SELECT tenant_id, month_start, documents_processed, whatsapp_received, whatsapp_sent, emails_processed, agent_input_tokens, agent_output_tokens, updated_at
FROM usage_counters
WHERE tenant_id = $1 AND month_start = $2`

	var u Usage
	err := s.DB.QueryRowContext(ctx, query, tenantID, monthStart).Scan(
		&u.TenantID,
		&u.MonthStart,
		&u.DocumentsProcessed,
		&u.WhatsAppReceived,
		&u.WhatsAppSent,
		&u.EmailsProcessed,
		&u.AgentInputTokens,
		&u.AgentOutputTokens,
		&u.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Usage{TenantID: tenantID, MonthStart: monthStart}, nil
	}
	if err != nil {
		return Usage{}, err
	}
	return u, nil
}

var _ Store = (*PGStore)(nil)
