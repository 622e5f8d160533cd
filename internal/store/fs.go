package store

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// FSStore copies objects into a local directory. Keys containing slashes
// become subdirectories. Intended for local benchmark runs and tests.
type FSStore struct {
	dir string
}

// NewFSStore creates an FSStore rooted at dir. The directory is created
// on first Put, not here, so constructing a store is side-effect free.
func NewFSStore(dir string) *FSStore {
	return &FSStore{dir: dir}
}

// Put writes the object to <dir>/<key>, replacing any existing file.
func (s *FSStore) Put(_ context.Context, key string, body io.Reader, _ int64) error {
	dest := filepath.Join(s.dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dest), 0o750); err != nil {
		return fmt.Errorf("store: creating directory for %s: %w", key, err)
	}

	f, err := os.Create(dest) //nolint:gosec // G304: dir validated by config layer
	if err != nil {
		return fmt.Errorf("store: creating %s: %w", key, err)
	}
	if _, err := io.Copy(f, body); err != nil {
		_ = f.Close()
		return fmt.Errorf("store: writing %s: %w", key, err)
	}
	return f.Close()
}

// Close is a no-op for the filesystem backend.
func (s *FSStore) Close() error { return nil }
