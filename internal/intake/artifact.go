package intake

import (
	"fmt"
	"strings"

	"roofing-backend/internal/documents"
	"roofing-backend/internal/queue"
)

// Artifact is a validated intake job derived from a queue message. All
// downstream stages work off this struct rather than the raw message.
type Artifact struct {
	Type           string
	TenantID       string
	UserID         string
	ProjectID      string
	ConversationID string
	Source         string

	MediaID   string
	MediaType string

	Bucket string
	Key    string

	Filename    string
	MessageText string
}

// ArtifactFromMessage validates a queue message and fills in the fields the
// producer may have omitted. Validation failures are permanent: retrying the
// same payload can never succeed.
func ArtifactFromMessage(msg queue.Message) (Artifact, error) {
	if strings.TrimSpace(msg.TenantID) == "" {
		return Artifact{}, fmt.Errorf("message missing tenant_id")
	}

	art := Artifact{
		Type:           msg.Type,
		TenantID:       msg.TenantID,
		UserID:         msg.UserID,
		ProjectID:      msg.ProjectID,
		ConversationID: msg.ConversationID,
		MediaID:        msg.MediaID,
		MediaType:      msg.MediaType,
		Bucket:         msg.S3Bucket,
		Key:            msg.S3Key,
		Filename:       msg.Filename,
		MessageText:    msg.MessageText,
	}

	switch msg.Type {
	case queue.TypeWhatsAppMedia:
		if strings.TrimSpace(msg.MediaID) == "" {
			return Artifact{}, fmt.Errorf("whatsapp_media message missing media_id")
		}
		art.Source = documents.SourceWhatsApp
	case queue.TypeS3Object:
		if strings.TrimSpace(msg.S3Bucket) == "" || strings.TrimSpace(msg.S3Key) == "" {
			return Artifact{}, fmt.Errorf("s3_object message missing bucket or key")
		}
		art.Source = documents.SourceUpload
	default:
		return Artifact{}, fmt.Errorf("unknown message type %q", msg.Type)
	}

	// Producers such as the mail poller enqueue s3_object records but tag
	// the true channel themselves.
	if msg.Source != "" {
		art.Source = msg.Source
	}

	if art.Filename == "" {
		art.Filename = deriveFilename(art)
	}
	return art, nil
}

func deriveFilename(art Artifact) string {
	if art.Type == queue.TypeWhatsAppMedia {
		return "whatsapp-" + art.MediaID
	}
	if art.Key != "" {
		parts := strings.Split(art.Key, "/")
		if last := parts[len(parts)-1]; last != "" {
			return last
		}
	}
	return "document"
}
