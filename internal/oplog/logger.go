// Package oplog provides structured JSON logging for sink lifecycle events.
package oplog

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// EventType describes the kind of operational event.
type EventType string

// Event type constants for structured log entries.
const (
	EventAppendError   EventType = "append_error"
	EventRotated       EventType = "rotated"
	EventRotationError EventType = "rotation_error"
	EventReclaimError  EventType = "reclaim_error"
	EventFlush         EventType = "flush"
	EventUploaded      EventType = "uploaded"
	EventUploadError   EventType = "upload_error"
	EventConfigReload  EventType = "config_reload"
)

// Logger handles structured operational logging using zerolog.
type Logger struct {
	zl         zerolog.Logger
	fileHandle *os.File // non-nil if logging to file
}

// New creates a new logger. The caller should call Close when done.
func New(format, output, filePath string) (*Logger, error) {
	var writers []io.Writer

	if output == "stdout" || output == "both" {
		if format == "text" {
			writers = append(writers, zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
		} else {
			writers = append(writers, os.Stdout)
		}
	}

	var fileHandle *os.File
	if output == "file" || output == "both" {
		f, err := os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600) //nolint:gosec // G304: path validated by config layer
		if err != nil {
			return nil, err
		}
		writers = append(writers, f)
		fileHandle = f
	}

	if len(writers) == 0 {
		writers = append(writers, os.Stdout)
	}

	var w io.Writer
	if len(writers) == 1 {
		w = writers[0]
	} else {
		w = zerolog.MultiLevelWriter(writers...)
	}

	zl := zerolog.New(w).With().
		Timestamp().
		Str("component", "diagsink").
		Logger()

	return &Logger{
		zl:         zl,
		fileHandle: fileHandle,
	}, nil
}

// NewNop returns a no-op logger that discards all events.
func NewNop() *Logger {
	return &Logger{
		zl: zerolog.Nop(),
	}
}

// LogStartup logs that the sink has started.
func (l *Logger) LogStartup(dir, baseName string, maxBytes int64, interval time.Duration) {
	l.zl.Info().
		Str("event", "startup").
		Str("dir", dir).
		Str("base_name", baseName).
		Int64("max_file_bytes", maxBytes).
		Dur("check_interval", interval).
		Msg("diagsink started")
}

// LogShutdown logs that the sink is shutting down.
func (l *Logger) LogShutdown(reason string) {
	l.zl.Info().
		Str("event", "shutdown").
		Str("reason", reason).
		Msg("diagsink stopping")
}

// LogAppendError logs a failed append. The record itself is dropped by the
// caller; retrying inside the emission path would stall the producer.
func (l *Logger) LogAppendError(path string, err error) {
	l.zl.Error().
		Str("event", string(EventAppendError)).
		Str("path", path).
		Err(err).
		Msg("append failed, record dropped")
}

// LogRotated logs a completed rotation to a new segment file.
func (l *Logger) LogRotated(path string, index int, oldSize int64) {
	l.zl.Info().
		Str("event", string(EventRotated)).
		Str("path", path).
		Int("index", index).
		Int64("previous_size_bytes", oldSize).
		Msg("segment rotated")
}

// LogRotationError logs a failed rotation. The old segment stays active
// until the next successful attempt.
func (l *Logger) LogRotationError(err error) {
	l.zl.Error().
		Str("event", string(EventRotationError)).
		Err(err).
		Msg("rotation failed, keeping current segment")
}

// LogReclaimError logs a failed close of a retired segment. The handle is
// retried on the next monitor cycle.
func (l *Logger) LogReclaimError(path string, err error) {
	l.zl.Warn().
		Str("event", string(EventReclaimError)).
		Str("path", path).
		Err(err).
		Msg("retired segment close failed")
}

// LogFlush logs the one-way transition out of the recording phase.
func (l *Logger) LogFlush(segments int) {
	l.zl.Info().
		Str("event", string(EventFlush)).
		Int("segments", segments).
		Msg("all writers drained")
}

// LogUploaded logs a successful segment upload.
func (l *Logger) LogUploaded(path, key string, sizeBytes int64, duration time.Duration) {
	l.zl.Info().
		Str("event", string(EventUploaded)).
		Str("path", path).
		Str("key", key).
		Int64("size_bytes", sizeBytes).
		Dur("duration_ms", duration).
		Msg("segment uploaded")
}

// LogUploadError logs a failed segment upload. The batch continues with
// the remaining segments.
func (l *Logger) LogUploadError(path, key string, err error) {
	l.zl.Error().
		Str("event", string(EventUploadError)).
		Str("path", path).
		Str("key", key).
		Err(err).
		Msg("segment upload failed")
}

// LogConfigReload logs a configuration reload event.
func (l *Logger) LogConfigReload(status, detail string) {
	l.zl.Info().
		Str("event", string(EventConfigReload)).
		Str("status", status).
		Str("detail", detail).
		Msg("configuration reloaded")
}

// With returns a sub-logger that includes the given key-value pair in every
// log entry. The sub-logger shares the parent's file handle and does NOT
// own the file — only the root logger should be Close()'d.
func (l *Logger) With(key, value string) *Logger {
	return &Logger{
		zl: l.zl.With().Str(key, value).Logger(),
	}
}

// Close cleans up the logger, flushing and closing any open file handles.
// Close is idempotent and safe to call multiple times.
func (l *Logger) Close() {
	if l.fileHandle != nil {
		_ = l.fileHandle.Sync()
		_ = l.fileHandle.Close()
		l.fileHandle = nil
	}
}
