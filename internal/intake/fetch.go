package intake

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"roofing-backend/internal/queue"
	"roofing-backend/internal/shared/storage/object"
	"roofing-backend/internal/whatsapp"
)

// Fetch failure causes. auth_expired and not_found are permanent for a given
// record; network failures are worth a redelivery.
const (
	CauseAuthExpired = "auth_expired"
	CauseNotFound    = "not_found"
	CauseNetwork     = "network"
)

// FetchError wraps a payload retrieval failure with its cause class.
type FetchError struct {
	Cause string
	Err   error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Cause, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// MediaDownloader resolves a WhatsApp media id to raw bytes and a mime type.
type MediaDownloader interface {
	DownloadMedia(ctx context.Context, mediaID string) ([]byte, string, error)
}

// Fetcher retrieves artifact payloads from their origin channel.
type Fetcher struct {
	Media MediaDownloader
	Store object.Store
}

// Fetch returns the artifact's bytes and its effective media type. The queue
// message's declared media type wins over what the channel reports.
func (f *Fetcher) Fetch(ctx context.Context, art Artifact) ([]byte, string, error) {
	switch art.Type {
	case queue.TypeWhatsAppMedia:
		return f.fetchMedia(ctx, art)
	case queue.TypeS3Object:
		return f.fetchObject(ctx, art)
	default:
		return nil, "", &FetchError{Cause: CauseNotFound, Err: fmt.Errorf("unknown artifact type %q", art.Type)}
	}
}

func (f *Fetcher) fetchMedia(ctx context.Context, art Artifact) ([]byte, string, error) {
	if f.Media == nil {
		return nil, "", &FetchError{Cause: CauseNetwork, Err: fmt.Errorf("no media downloader configured")}
	}
	data, mimeType, err := f.Media.DownloadMedia(ctx, art.MediaID)
	if err != nil {
		return nil, "", &FetchError{Cause: classifyMediaError(err), Err: err}
	}
	if art.MediaType != "" {
		mimeType = art.MediaType
	}
	return data, mimeType, nil
}

func (f *Fetcher) fetchObject(ctx context.Context, art Artifact) ([]byte, string, error) {
	body, contentType, err := f.Store.Get(ctx, art.Key)
	if err != nil {
		cause := CauseNetwork
		if errors.Is(err, object.ErrNotFound) {
			cause = CauseNotFound
		}
		return nil, "", &FetchError{Cause: cause, Err: err}
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, "", &FetchError{Cause: CauseNetwork, Err: err}
	}

	if art.MediaType != "" {
		contentType = art.MediaType
	}
	if contentType == "" || contentType == "application/octet-stream" {
		if byExt := mime.TypeByExtension(filepath.Ext(art.Key)); byExt != "" {
			contentType = strings.Split(byExt, ";")[0]
		}
	}
	return data, contentType, nil
}

func classifyMediaError(err error) string {
	var statusErr *whatsapp.StatusError
	if errors.As(err, &statusErr) {
		switch statusErr.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return CauseAuthExpired
		case http.StatusNotFound:
			return CauseNotFound
		}
	}
	return CauseNetwork
}
