package intake

import (
	"context"
	"fmt"

	"roofing-backend/internal/documents"
	"roofing-backend/internal/shared/metrics"
	"roofing-backend/internal/shared/telemetry"
	"roofing-backend/internal/users"
)

// TextSender sends a plain text message to a phone number.
type TextSender interface {
	SendText(ctx context.Context, to, body string) error
}

// Notifier sends the sender a confirmation once their document is filed.
// Notification is best effort and never fails the record.
type Notifier struct {
	Users  users.Repo
	Sender TextSender
}

// Notify confirms a processed document back to the WhatsApp sender. Records
// from other channels, or without a sending user, are skipped. It reports
// whether a message went out.
func (n *Notifier) Notify(ctx context.Context, art Artifact, doc documents.Document, projectName string) bool {
	if art.Source != documents.SourceWhatsApp || art.UserID == "" {
		return false
	}
	if n.Sender == nil {
		return false
	}

	user, err := n.Users.GetByID(ctx, art.UserID)
	if err != nil {
		telemetry.Warn("intake.notify.user_lookup_failed", map[string]any{
			"tenant_id": art.TenantID,
			"user_id":   art.UserID,
			"err":       err.Error(),
		})
		return false
	}
	if user.PhoneNumber == "" {
		return false
	}

	filed := " (Not linked to a project yet)"
	if doc.ProjectID != "" && projectName != "" {
		filed = " Filed to: " + projectName
	}
	body := fmt.Sprintf("📄 Document processed!\n\nType: %s\n%s%s", doc.DocumentType, doc.Metadata.Summary, filed)

	if err := n.Sender.SendText(ctx, user.PhoneNumber, body); err != nil {
		telemetry.Warn("intake.notify.failed", map[string]any{
			"tenant_id":   art.TenantID,
			"user_id":     art.UserID,
			"document_id": doc.ID,
			"err":         err.Error(),
		})
		return false
	}
	metrics.IncNotificationsSent()
	return true
}
