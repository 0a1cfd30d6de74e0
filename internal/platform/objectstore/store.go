package objectstore

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound reports that no object exists at the requested key.
var ErrNotFound = errors.New("object not found")

// Store persists uploaded document files outside the database. Keys are
// opaque to callers; the documents domain derives them from case and
// document identifiers.
type Store interface {
	Put(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete removes the object. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	Close() error
}
