package workerproc

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"

	"roofing-backend/internal/intake"
	"roofing-backend/internal/queue"
)

// MessageMeta captures details useful for logging and diagnostics.
type MessageMeta struct {
	BodyLen int
	BodySHA string
}

// ComputeMeta returns the body length and SHA-256 hash.
func ComputeMeta(body string) MessageMeta {
	if body == "" {
		return MessageMeta{BodyLen: 0, BodySHA: ""}
	}
	sum := sha256.Sum256([]byte(body))
	return MessageMeta{BodyLen: len(body), BodySHA: hex.EncodeToString(sum[:])}
}

// ErrEmptyBody indicates an empty queue payload.
type ErrEmptyBody struct {
	Meta MessageMeta
}

func (e ErrEmptyBody) Error() string { return "empty message body" }

// ErrDecode indicates a JSON decode failure.
type ErrDecode struct {
	Meta MessageMeta
	Err  error
}

func (e ErrDecode) Error() string {
	if e.Err == nil {
		return "decode message"
	}
	return "decode message: " + e.Err.Error()
}

// ErrMissingTenant indicates a message without a tenant id.
type ErrMissingTenant struct {
	Meta MessageMeta
}

func (e ErrMissingTenant) Error() string { return "missing tenant id" }

// ParseMessage validates and decodes the queue payload. It only checks the
// fields every record must carry; per-type validation belongs to the intake
// processor.
func ParseMessage(body string) (queue.Message, MessageMeta, error) {
	meta := ComputeMeta(body)
	if strings.TrimSpace(body) == "" {
		return queue.Message{}, meta, ErrEmptyBody{Meta: meta}
	}

	msg, err := queue.DecodeMessage([]byte(body))
	if err != nil {
		return queue.Message{}, meta, ErrDecode{Meta: meta, Err: err}
	}
	if strings.TrimSpace(msg.TenantID) == "" {
		return msg, meta, ErrMissingTenant{Meta: meta}
	}
	return msg, meta, nil
}

// ParseRecord adapts ParseMessage to the intake processor's parse hook, so
// record decode failures surface as the typed errors above.
func ParseRecord(body string) (queue.Message, error) {
	msg, _, err := ParseMessage(body)
	return msg, err
}

// HandleBatch runs one receive batch through the intake processor.
func HandleBatch(ctx context.Context, processor *intake.Processor, records []intake.Record) (intake.Report, error) {
	if processor == nil {
		return intake.Report{}, errors.New("intake processor not configured")
	}
	return processor.ProcessBatch(ctx, records), nil
}
