package sink

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/bambriz/diagsink/internal/oplog"
)

// Rotation policy defaults.
const (
	DefaultMaxBytes = 100_000_000
	DefaultInterval = 5 * time.Second
)

// Policy is the rotation policy the monitor enforces. The check interval
// also paces reclaim: one tick performs both, which matches the sink's
// observed behavior and avoids a second timer.
type Policy struct {
	MaxBytes int64
	Interval time.Duration
}

// Monitor periodically checks the active segment's size, rotates when the
// threshold is crossed, and reclaims retired segments. Runs for the life
// of the recording phase and is stopped by cancelling the context passed
// to Run.
type Monitor struct {
	writer *Writer
	policy atomic.Pointer[Policy]
	log    *oplog.Logger
}

// NewMonitor creates a monitor for w. Zero policy fields get defaults.
func NewMonitor(w *Writer, pol Policy, log *oplog.Logger) *Monitor {
	if pol.MaxBytes <= 0 {
		pol.MaxBytes = DefaultMaxBytes
	}
	if pol.Interval <= 0 {
		pol.Interval = DefaultInterval
	}
	if log == nil {
		log = oplog.NewNop()
	}

	m := &Monitor{writer: w, log: log}
	m.policy.Store(&pol)
	return m
}

// UpdatePolicy swaps the rotation policy. The new threshold applies to the
// next size check; the new interval takes effect after the current tick.
func (m *Monitor) UpdatePolicy(pol Policy) {
	if pol.MaxBytes <= 0 {
		pol.MaxBytes = DefaultMaxBytes
	}
	if pol.Interval <= 0 {
		pol.Interval = DefaultInterval
	}
	m.policy.Store(&pol)
}

// Run blocks until ctx is cancelled. Cancellation is observed between
// iterations: a tick in progress completes before Run returns.
// Uses a timer (not a ticker) so interval changes from UpdatePolicy take
// effect on the next iteration.
func (m *Monitor) Run(ctx context.Context) {
	timer := time.NewTimer(m.policy.Load().Interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			m.tick()
			timer.Reset(m.policy.Load().Interval)
		}
	}
}

// tick performs one rotation check followed by one reclaim pass. Every
// failure inside a tick is logged and contained: a failed rotation keeps
// the old segment active until the next cycle, and a failed reclaim never
// prevents the rotation check from running again.
func (m *Monitor) tick() {
	pol := m.policy.Load()

	_, size := m.writer.CurrentInfo()
	if size >= pol.MaxBytes {
		info, err := m.writer.Rotate()
		switch {
		case err == nil:
			m.log.LogRotated(info.Path, info.Index, size)
		case errors.Is(err, ErrClosed):
			// Drained under us during shutdown; nothing left to rotate.
		default:
			m.log.LogRotationError(err)
		}
	}

	m.writer.Reclaim()
}
