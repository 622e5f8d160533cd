package sink

import (
	"fmt"
	"os"
	"path/filepath"
)

// segment is one append-only output file. Lifecycle: created open, written
// through the owning Writer's lock, retired on rotation, closed exactly
// once by reclaim or drain, never written after close.
type segment struct {
	path   string
	index  int
	file   *os.File
	closed bool
}

// createSegment creates (or reopens for append) the segment file for index.
func createSegment(dir, base string, index int) (*segment, error) {
	path := filepath.Join(dir, segmentName(base, index))
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600) //nolint:gosec // G304: dir validated by config layer
	if err != nil {
		return nil, fmt.Errorf("sink: creating segment %s: %w", path, err)
	}
	return &segment{path: path, index: index, file: f}, nil
}

// close flushes and closes the segment file. Idempotent: closing an
// already-closed segment is a no-op. On failure the segment stays open so
// the next reclaim cycle can try again.
func (s *segment) close() error {
	if s.closed {
		return nil
	}
	_ = s.file.Sync()
	if err := s.file.Close(); err != nil {
		return err
	}
	s.closed = true
	return nil
}
