package blob

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// LocalStore keeps blobs as files in a directory. The content type is kept
// in a sidecar file so downloads can be served with the original type.
type LocalStore struct {
	dir           string
	publicBaseURL string
}

// NewLocalStore creates a directory-backed blob store
func NewLocalStore(dir, publicBaseURL string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create blob directory: %w", err)
	}
	return &LocalStore{
		dir:           dir,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
	}, nil
}

// Put stores the blob and returns its identifier
func (s *LocalStore) Put(ctx context.Context, r io.Reader, contentType string) (string, error) {
	id := uuid.New().String()

	f, err := os.Create(s.blobPath(id))
	if err != nil {
		return "", fmt.Errorf("failed to create blob file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		os.Remove(s.blobPath(id))
		return "", fmt.Errorf("failed to write blob: %w", err)
	}

	if contentType != "" {
		if err := os.WriteFile(s.typePath(id), []byte(contentType), 0o644); err != nil {
			return "", fmt.Errorf("failed to write blob content type: %w", err)
		}
	}

	return id, nil
}

// URL resolves an identifier to a fetchable URL under the service's own
// audio route
func (s *LocalStore) URL(ctx context.Context, id string) (string, error) {
	if _, err := os.Stat(s.blobPath(id)); err != nil {
		if os.IsNotExist(err) {
			return "", ErrNotFound
		}
		return "", err
	}
	return s.publicBaseURL + "/api/audio/" + id, nil
}

// Open returns the blob contents and content type for serving
func (s *LocalStore) Open(id string) (io.ReadCloser, string, error) {
	f, err := os.Open(s.blobPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", ErrNotFound
		}
		return nil, "", err
	}

	contentType := "application/octet-stream"
	if raw, err := os.ReadFile(s.typePath(id)); err == nil && len(raw) > 0 {
		contentType = string(raw)
	}

	return f, contentType, nil
}

func (s *LocalStore) blobPath(id string) string {
	return filepath.Join(s.dir, filepath.Base(id))
}

func (s *LocalStore) typePath(id string) string {
	return filepath.Join(s.dir, filepath.Base(id)+".type")
}
