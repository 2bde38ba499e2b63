// Package agent defines the conversational assistant boundary. The document
// pipeline treats the agent as opaque: text messages are handed over and a
// reply comes back.
package agent

import "context"

// Reply is the agent's answer to one inbound text message.
type Reply struct {
	Text         string
	Model        string
	InputTokens  int64
	OutputTokens int64
}

// Agent answers free-text messages within a conversation.
type Agent interface {
	Respond(ctx context.Context, tenantID, conversationID, text string) (Reply, error)
}

// EchoAgent is a stand-in used when no assistant backend is configured. It
// acknowledges the message so senders are not left hanging.
type EchoAgent struct{}

// Respond returns a canned acknowledgement.
func (EchoAgent) Respond(ctx context.Context, tenantID, conversationID, text string) (Reply, error) {
	_ = ctx
	_ = tenantID
	_ = conversationID
	_ = text
	return Reply{Text: "Got it! Send me a photo or PDF and I'll file it for you."}, nil
}
