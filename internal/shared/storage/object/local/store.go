package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"roofing-backend/internal/shared/storage/object"
)

// Store implements object.Store using the local filesystem. Object metadata
// is not supported and is dropped on Put; content type is re-sniffed on Get.
type Store struct {
	baseDir string
}

// New creates a new local object store rooted at baseDir.
func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

// Put writes the reader contents to disk under the given key.
func (s *Store) Put(ctx context.Context, key string, contentType string, metadata map[string]string, r io.Reader) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if strings.Contains(key, "..") {
		return 0, errors.New("invalid storage key")
	}

	fullPath := filepath.Join(s.baseDir, filepath.FromSlash(strings.TrimLeft(key, "/")))
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return 0, fmt.Errorf("mkdir: %w", err)
	}

	f, err := os.OpenFile(fullPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	written, err := io.Copy(f, r)
	if err != nil {
		return 0, fmt.Errorf("write body: %w", err)
	}
	return written, nil
}

// Get opens a stored object for reading and sniffs its content type.
func (s *Store) Get(ctx context.Context, key string) (io.ReadCloser, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}
	if strings.Contains(key, "..") {
		return nil, "", errors.New("invalid storage key")
	}

	fullPath := filepath.Join(s.baseDir, filepath.FromSlash(strings.TrimLeft(key, "/")))
	f, err := os.Open(fullPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, "", fmt.Errorf("local get key=%s: %w", key, object.ErrNotFound)
		}
		return nil, "", fmt.Errorf("local get key=%s: %w", key, err)
	}

	var sniff [512]byte
	n, readErr := f.Read(sniff[:])
	if readErr != nil && readErr != io.EOF {
		f.Close()
		return nil, "", fmt.Errorf("local get key=%s: read sniff: %w", key, readErr)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		f.Close()
		return nil, "", fmt.Errorf("local get key=%s: seek: %w", key, err)
	}

	return f, http.DetectContentType(sniff[:n]), nil
}

var _ object.Store = (*Store)(nil)
