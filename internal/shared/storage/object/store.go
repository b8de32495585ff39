package object

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned by Open and Delete implementations that can tell a missing key apart.
var ErrNotFound = errors.New("object not found")

// Store defines the contract for staging binary objects.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// Locator is implemented by stores whose objects can be referenced by URI
// from other cloud services (e.g. s3://bucket/key).
type Locator interface {
	URI(key string) string
}
