package sink

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/bambriz/diagsink/internal/metrics"
	"github.com/bambriz/diagsink/internal/oplog"
	"github.com/bambriz/diagsink/internal/store"
)

// UploadFailure records one segment that could not be shipped.
type UploadFailure struct {
	Path string
	Err  error
}

// Report summarizes an UploadAll batch: object keys that made it, and the
// local paths (with errors) that did not.
type Report struct {
	Succeeded []string
	Failed    []UploadFailure
}

// Uploader drains the writer at end of run and ships every local segment
// to the object store. One bad segment never aborts the batch.
type Uploader struct {
	writer  *Writer
	store   store.Store
	prefix  string
	host    string
	log     *oplog.Logger
	metrics *metrics.Metrics // nil-safe
}

// NewUploader creates an Uploader over w's segment directory. host is the
// host identifier baked into remote object names; prefix is optional.
func NewUploader(w *Writer, st store.Store, prefix, host string, log *oplog.Logger, m *metrics.Metrics) *Uploader {
	if log == nil {
		log = oplog.NewNop()
	}
	return &Uploader{
		writer:  w,
		store:   st,
		prefix:  prefix,
		host:    host,
		log:     log,
		metrics: m,
	}
}

// Flush ends the writing phase: reclaims all retired handles and closes
// the active one. Must be called before UploadAll. Idempotent.
func (u *Uploader) Flush() error {
	if err := u.writer.Drain(); err != nil {
		return err
	}
	u.log.LogFlush(u.writer.SegmentCount())
	return nil
}

// UploadAll enumerates every local segment matching the sink's naming
// pattern and puts each to the object store in ascending sequence order.
// Ordering is for debuggability, not correctness. Per-segment failures
// are recorded in the report and the batch continues; re-running after a
// partial failure is safe because Put overwrites.
func (u *Uploader) UploadAll(ctx context.Context) Report {
	var report Report

	segs, err := listSegments(u.writer.dir, u.writer.base)
	if err != nil {
		report.Failed = append(report.Failed, UploadFailure{Path: u.writer.dir, Err: err})
		return report
	}

	for i, seg := range segs {
		key := objectKey(u.prefix, u.host, i)

		if err := u.put(ctx, key, seg.path); err != nil {
			u.log.LogUploadError(seg.path, key, err)
			if u.metrics != nil {
				u.metrics.RecordUploadError()
			}
			report.Failed = append(report.Failed, UploadFailure{Path: seg.path, Err: err})
			continue
		}

		report.Succeeded = append(report.Succeeded, key)
	}

	return report
}

// put ships one segment file.
func (u *Uploader) put(ctx context.Context, key, path string) error {
	f, err := os.Open(path) //nolint:gosec // G304: path from our own enumeration
	if err != nil {
		return fmt.Errorf("sink: opening segment %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	fi, err := f.Stat()
	if err != nil {
		return fmt.Errorf("sink: sizing segment %s: %w", path, err)
	}

	start := time.Now()
	if err := u.store.Put(ctx, key, f, fi.Size()); err != nil {
		return err
	}

	u.log.LogUploaded(path, key, fi.Size(), time.Since(start))
	if u.metrics != nil {
		u.metrics.RecordUpload(fi.Size(), time.Since(start))
	}
	return nil
}
