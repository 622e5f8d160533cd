// Package store provides object storage backends for shipping completed
// segment files off the benchmark host.
package store

import (
	"context"
	"io"
)

// Store is the interface for remote object storage backends.
// Implementations must be safe for concurrent use and must allow
// overwrite: putting the same key twice replaces the object rather than
// failing, so a partially failed upload batch can be re-run.
type Store interface {
	// Put writes one object under key. size is the exact body length.
	Put(ctx context.Context, key string, body io.Reader, size int64) error

	// Close releases any backend resources.
	Close() error
}
