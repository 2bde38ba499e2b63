package webhook

// Graph API webhook payload shapes, trimmed to the fields this service reads.

type eventPayload struct {
	Object string  `json:"object"`
	Entry  []entry `json:"entry"`
}

type entry struct {
	ID      string   `json:"id"`
	Changes []change `json:"changes"`
}

type change struct {
	Field string      `json:"field"`
	Value changeValue `json:"value"`
}

type changeValue struct {
	MessagingProduct string           `json:"messaging_product"`
	Messages         []inboundMessage `json:"messages"`
}

type inboundMessage struct {
	ID        string    `json:"id"`
	From      string    `json:"from"`
	Timestamp string    `json:"timestamp"`
	Type      string    `json:"type"`
	Text      *textBody `json:"text,omitempty"`
	Image     *mediaRef `json:"image,omitempty"`
	Document  *mediaRef `json:"document,omitempty"`
	Video     *mediaRef `json:"video,omitempty"`
}

type textBody struct {
	Body string `json:"body"`
}

type mediaRef struct {
	ID       string `json:"id"`
	MimeType string `json:"mime_type"`
	SHA256   string `json:"sha256,omitempty"`
	Caption  string `json:"caption,omitempty"`
	Filename string `json:"filename,omitempty"`
}

// media returns the message's media reference and its declared mime type, or
// nil for non-media messages.
func (m inboundMessage) media() (*mediaRef, string) {
	switch {
	case m.Image != nil:
		return m.Image, m.Image.MimeType
	case m.Document != nil:
		return m.Document, m.Document.MimeType
	case m.Video != nil:
		return m.Video, m.Video.MimeType
	}
	return nil, ""
}
