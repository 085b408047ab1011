package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"google.golang.org/api/option"
)

// GCSStore keeps blobs as objects in a Google Cloud Storage bucket.
type GCSStore struct {
	client        *storage.Client
	bucket        string
	publicBaseURL string
}

// NewGCSStore creates a bucket-backed blob store. When publicBaseURL is
// empty, the standard storage.googleapis.com URL form is used.
func NewGCSStore(ctx context.Context, bucket, publicBaseURL string) (*GCSStore, error) {
	if bucket == "" {
		return nil, fmt.Errorf("gcs bucket name is required")
	}

	client, err := storage.NewClient(ctx, option.WithScopes(storage.ScopeReadWrite))
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	return &GCSStore{
		client:        client,
		bucket:        bucket,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
	}, nil
}

// Put uploads the blob and returns its object key
func (s *GCSStore) Put(ctx context.Context, r io.Reader, contentType string) (string, error) {
	key := "audio/" + uuid.New().String()

	w := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	w.ContentType = contentType

	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		return "", fmt.Errorf("failed to upload blob: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to finish blob upload: %w", err)
	}

	return key, nil
}

// URL resolves an object key to a fetchable URL
func (s *GCSStore) URL(ctx context.Context, id string) (string, error) {
	_, err := s.client.Bucket(s.bucket).Object(id).Attrs(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to look up blob: %w", err)
	}

	if s.publicBaseURL != "" {
		return fmt.Sprintf("%s/%s/%s", s.publicBaseURL, s.bucket, id), nil
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", s.bucket, id), nil
}
