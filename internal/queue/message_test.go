package queue

import (
	"strings"
	"testing"
)

func TestMessageRoundTrip(t *testing.T) {
	msg := Message{
		Type:           TypeWhatsAppMedia,
		TenantID:       "t1",
		UserID:         "u1",
		ProjectID:      "p1",
		ConversationID: "c1",
		MediaID:        "m1",
		MediaType:      "image/jpeg",
		MessageText:    "receipt from the supplier",
	}

	payload, err := EncodeMessage(msg)
	if err != nil {
		t.Fatalf("EncodeMessage: %v", err)
	}
	decoded, err := DecodeMessage(payload)
	if err != nil {
		t.Fatalf("DecodeMessage: %v", err)
	}
	if decoded != msg {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", decoded, msg)
	}
}

func TestMessageOmitsEmptyFields(t *testing.T) {
	payload, err := EncodeMessage(Message{Type: TypeS3Object, TenantID: "t1", S3Bucket: "docs", S3Key: "inbox/t1/a.pdf"})
	if err != nil {
		t.Fatalf("EncodeMessage: %v", err)
	}
	body := string(payload)
	for _, absent := range []string{"media_id", "project_id", "source", "message_text"} {
		if strings.Contains(body, absent) {
			t.Errorf("payload should omit %q: %s", absent, body)
		}
	}
	for _, present := range []string{`"type":"s3_object"`, `"tenant_id":"t1"`, `"s3_key":"inbox/t1/a.pdf"`} {
		if !strings.Contains(body, present) {
			t.Errorf("payload missing %s: %s", present, body)
		}
	}
}

func TestDecodeMessageRejectsGarbage(t *testing.T) {
	if _, err := DecodeMessage([]byte("{{{")); err == nil {
		t.Fatal("expected decode error")
	}
}
