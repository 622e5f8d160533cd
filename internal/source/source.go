// Package source adapts a line-oriented input stream into diagnostic
// records. The sink never controls emission rate; it only consumes.
package source

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/bambriz/diagsink/internal/sink"
)

// maxLineBytes caps a single input line. Diagnostics payloads can be
// large JSON blobs, so the cap is generous.
const maxLineBytes = 4 * 1024 * 1024

// Handler receives one record per input line.
type Handler func(sink.Record)

// Reader is an event source backed by an io.Reader, one record per line
// in "name;payload" form. The first semicolon splits the columns; lines
// without one become a record with an empty payload. Both columns are
// passed through verbatim.
type Reader struct {
	r io.Reader
}

// NewReader creates a source over r.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

// Subscribe delivers records to h until EOF or context cancellation.
// Blank lines are skipped. Returns nil on EOF, ctx.Err() on cancellation,
// or a scan error (e.g. a line exceeding the size cap).
func (s *Reader) Subscribe(ctx context.Context, h Handler) error {
	sc := bufio.NewScanner(s.r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	for sc.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := sc.Text()
		if line == "" {
			continue
		}
		name, payload, _ := strings.Cut(line, ";")
		h(sink.Record{Name: name, Payload: payload})
	}

	if err := sc.Err(); err != nil {
		return fmt.Errorf("source: reading input: %w", err)
	}
	return nil
}
