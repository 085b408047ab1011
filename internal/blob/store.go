package blob

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned when a blob identifier does not resolve to a
// stored object.
var ErrNotFound = errors.New("blob not found")

// Store persists uploaded audio clips. Put returns an opaque identifier;
// URL resolves an identifier to a fetchable URL.
type Store interface {
	Put(ctx context.Context, r io.Reader, contentType string) (string, error)
	URL(ctx context.Context, id string) (string, error)
}
