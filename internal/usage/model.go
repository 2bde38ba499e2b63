package usage

import "time"

// Usage is one tenant's accumulated counters for one calendar month.
type Usage struct {
	TenantID           string    `json:"tenantId"`
	MonthStart         time.Time `json:"monthStart"`
	DocumentsProcessed int64     `json:"documentsProcessed"`
	WhatsAppReceived   int64     `json:"whatsappReceived"`
	WhatsAppSent       int64     `json:"whatsappSent"`
	EmailsProcessed    int64     `json:"emailsProcessed"`
	AgentInputTokens   int64     `json:"agentInputTokens"`
	AgentOutputTokens  int64     `json:"agentOutputTokens"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

// Delta is a set of counter increments to apply atomically. Zero fields are
// added as zero, which leaves the stored value unchanged.
type Delta struct {
	DocumentsProcessed int64
	WhatsAppReceived   int64
	WhatsAppSent       int64
	EmailsProcessed    int64
	AgentInputTokens   int64
	AgentOutputTokens  int64
}

// MonthStart truncates t to the first instant of its calendar month in UTC.
func MonthStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
