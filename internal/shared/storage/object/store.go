package object

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound indicates the requested key does not exist in the store.
var ErrNotFound = errors.New("object not found")

// Store defines the contract for saving and retrieving binary objects by key.
// Metadata is attached where the backing store supports object metadata and
// silently dropped where it does not.
type Store interface {
	Put(ctx context.Context, key string, contentType string, metadata map[string]string, r io.Reader) (sizeBytes int64, err error)
	Get(ctx context.Context, key string) (body io.ReadCloser, contentType string, err error)
}
