package queue

import "encoding/json"

// Artifact origin types carried in the queue record.
const (
	TypeWhatsAppMedia = "whatsapp_media"
	TypeS3Object      = "s3_object"
)

// Message is one document-intake job as delivered by the queue. Exactly one
// of the whatsapp_media or s3_object field groups is populated depending on
// Type.
type Message struct {
	Type           string `json:"type"`
	TenantID       string `json:"tenant_id"`
	UserID         string `json:"user_id,omitempty"`
	ProjectID      string `json:"project_id,omitempty"`
	ConversationID string `json:"conversation_id,omitempty"`

	// whatsapp_media
	MediaID   string `json:"media_id,omitempty"`
	MediaType string `json:"media_type,omitempty"`
	Filename  string `json:"filename,omitempty"`

	// s3_object
	S3Bucket string `json:"s3_bucket,omitempty"`
	S3Key    string `json:"s3_key,omitempty"`

	MessageText string `json:"message_text,omitempty"`

	// Source overrides the document source derived from Type; the mail
	// poller sets it to "email".
	Source string `json:"source,omitempty"`
}

// EncodeMessage returns the JSON representation of a message.
func EncodeMessage(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}

// DecodeMessage parses a JSON payload into a Message.
func DecodeMessage(payload []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return Message{}, err
	}
	return msg, nil
}
