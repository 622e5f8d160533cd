package sink

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"github.com/bambriz/diagsink/internal/metrics"
	"github.com/bambriz/diagsink/internal/oplog"
)

// ErrClosed is returned by Append and Rotate after the writer has been
// drained. The recording phase is one-way: a drained writer never accepts
// records again.
var ErrClosed = errors.New("sink: writer drained")

// SegmentInfo is a point-in-time identification of the active segment.
type SegmentInfo struct {
	Path  string
	Index int
}

// Writer owns the single active segment and the set of retired segments
// awaiting close. Append is safe under concurrent invocation from any
// number of producer goroutines; Rotate, Reclaim, and Drain may race with
// appends and with each other.
type Writer struct {
	dir  string
	base string

	mu        sync.Mutex // guards active, retired, nextIndex, drained
	active    *segment
	retired   []*segment
	nextIndex int
	drained   bool

	// Lock-free snapshot for the monitor: the active segment's identity
	// and an approximate size. Approximate is fine — rotation only needs
	// to observe a threshold crossing, not an exact byte count.
	info atomic.Pointer[SegmentInfo]
	size atomic.Int64

	log     *oplog.Logger
	metrics *metrics.Metrics // nil-safe; nil disables instrumentation
}

// NewWriter creates the sink directory if needed, opens segment 0, and
// returns a Writer in the recording state. The metrics parameter is
// optional (nil disables counter/gauge updates); a nil logger is replaced
// with a no-op logger.
func NewWriter(dir, base string, log *oplog.Logger, m *metrics.Metrics) (*Writer, error) {
	if log == nil {
		log = oplog.NewNop()
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("sink: creating directory %s: %w", dir, err)
	}

	seg, err := createSegment(dir, base, 0)
	if err != nil {
		return nil, err
	}

	w := &Writer{
		dir:       dir,
		base:      base,
		active:    seg,
		nextIndex: 1,
		log:       log,
		metrics:   m,
	}
	w.info.Store(&SegmentInfo{Path: seg.path, Index: seg.index})
	return w, nil
}

// Append writes one record as a single newline-terminated line to the
// active segment. The mutex serializes writes, so a record is never
// interleaved mid-line, and a concurrent Rotate can never tear the active
// reference out from under an in-flight write: whichever of the two holds
// the lock first wins, and the append lands fully in exactly one segment.
//
// On failure the record is gone; callers log and drop rather than retry,
// since retrying inside the event callback would stall the producer.
func (w *Writer) Append(rec Record) error {
	line := rec.encode()

	w.mu.Lock()
	if w.drained {
		w.mu.Unlock()
		return ErrClosed
	}
	n, err := w.active.file.Write(line)
	if err == nil {
		w.size.Add(int64(n))
	}
	path := w.active.path
	w.mu.Unlock()

	if err != nil {
		if w.metrics != nil {
			w.metrics.RecordAppendError()
		}
		return fmt.Errorf("sink: appending to %s: %w", path, err)
	}
	if w.metrics != nil {
		w.metrics.RecordAppend(n)
		w.metrics.SetActiveSegmentBytes(w.size.Load())
	}
	return nil
}

// Rotate creates the next segment file, publishes it as the active handle,
// and retires the previous one. Appends that start after Rotate returns
// land in the new segment; appends already holding the lock complete
// against the old one first. If creating the new file fails, the old
// segment stays active (it will be oversized until the next successful
// attempt) and the retired set is untouched.
func (w *Writer) Rotate() (SegmentInfo, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.drained {
		return SegmentInfo{}, ErrClosed
	}

	seg, err := createSegment(w.dir, w.base, w.nextIndex)
	if err != nil {
		if w.metrics != nil {
			w.metrics.RecordRotationError()
		}
		return SegmentInfo{}, err
	}

	w.retired = append(w.retired, w.active)
	w.active = seg
	w.nextIndex++

	info := SegmentInfo{Path: seg.path, Index: seg.index}
	w.info.Store(&info)
	w.size.Store(0)

	if w.metrics != nil {
		w.metrics.RecordRotation()
		w.metrics.SetActiveSegmentBytes(0)
		w.metrics.SetRetiredSegments(len(w.retired))
	}
	return info, nil
}

// CurrentInfo returns a non-blocking snapshot of the active segment and
// its approximate on-disk size.
func (w *Writer) CurrentInfo() (SegmentInfo, int64) {
	return *w.info.Load(), w.size.Load()
}

// Reclaim attempts to close every retired segment: one attempt per handle
// per call. Successfully closed handles leave the set for good; failures
// are logged and kept for the next cycle. Taking the whole set out under
// the lock means a concurrent Reclaim (e.g. monitor tick racing a drain)
// can never close the same handle twice. Returns the number of handles
// still awaiting close.
func (w *Writer) Reclaim() int {
	w.mu.Lock()
	retired := w.retired
	w.retired = nil
	w.mu.Unlock()

	var kept []*segment
	for _, s := range retired {
		if err := s.close(); err != nil {
			w.log.LogReclaimError(s.path, err)
			if w.metrics != nil {
				w.metrics.RecordReclaimFailure()
			}
			kept = append(kept, s)
		}
	}

	w.mu.Lock()
	// Rotations may have retired more handles while we were closing;
	// re-adding only the failures preserves add-once/remove-once.
	w.retired = append(w.retired, kept...)
	remaining := len(w.retired)
	w.mu.Unlock()

	if w.metrics != nil {
		w.metrics.SetRetiredSegments(remaining)
	}
	return remaining
}

// Drain ends the recording phase: reclaim all retired handles, then close
// the active one. One-way and idempotent — after the first call every
// Append returns ErrClosed. A reclaim failure does not stop the active
// handle from closing; the leaked retired handle is logged and abandoned
// (the file itself is still on disk and will be uploaded).
func (w *Writer) Drain() error {
	w.mu.Lock()
	if w.drained {
		w.mu.Unlock()
		return nil
	}
	w.drained = true
	active := w.active
	w.mu.Unlock()

	w.Reclaim()

	if err := active.close(); err != nil {
		return fmt.Errorf("sink: closing active segment %s: %w", active.path, err)
	}
	return nil
}

// SegmentCount returns the number of segments created so far.
func (w *Writer) SegmentCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.nextIndex
}
