// Package metrics provides Prometheus instrumentation and a JSON stats
// endpoint for the diagnostic sink.
package metrics

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects Prometheus counters and gauges for the sink.
type Metrics struct {
	registry *prometheus.Registry

	appendsTotal    *prometheus.CounterVec
	appendBytes     prometheus.Counter
	rotationsTotal  *prometheus.CounterVec
	reclaimFailures prometheus.Counter
	retiredSegments prometheus.Gauge
	activeBytes     prometheus.Gauge

	uploadsTotal   *prometheus.CounterVec
	uploadBytes    prometheus.Counter
	uploadDuration prometheus.Histogram

	mu            sync.Mutex
	startTime     time.Time
	appendCount   int64
	dropCount     int64
	rotationCount int64
	uploadOK      int64
	uploadFailed  int64
}

// New creates a Metrics instance with its own Prometheus registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	appendsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "diagsink",
		Name:      "appends_total",
		Help:      "Total number of record appends by result.",
	}, []string{"result"})

	appendBytes := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "diagsink",
		Name:      "append_bytes_total",
		Help:      "Total bytes written to segment files.",
	})

	rotationsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "diagsink",
		Name:      "rotations_total",
		Help:      "Total segment rotations by result.",
	}, []string{"result"})

	reclaimFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "diagsink",
		Name:      "reclaim_failures_total",
		Help:      "Total failed close attempts on retired segments.",
	})

	retiredSegments := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "diagsink",
		Name:      "retired_segments",
		Help:      "Current number of retired segments awaiting close.",
	})

	activeBytes := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "diagsink",
		Name:      "active_segment_bytes",
		Help:      "Approximate size of the active segment file.",
	})

	uploadsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "diagsink",
		Name:      "uploads_total",
		Help:      "Total segment uploads by result.",
	}, []string{"result"})

	uploadBytes := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "diagsink",
		Name:      "upload_bytes_total",
		Help:      "Total bytes shipped to the object store.",
	})

	uploadDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "diagsink",
		Name:      "upload_duration_seconds",
		Help:      "Per-segment upload duration in seconds.",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	})

	reg.MustRegister(appendsTotal, appendBytes, rotationsTotal, reclaimFailures,
		retiredSegments, activeBytes, uploadsTotal, uploadBytes, uploadDuration)

	return &Metrics{
		registry:        reg,
		appendsTotal:    appendsTotal,
		appendBytes:     appendBytes,
		rotationsTotal:  rotationsTotal,
		reclaimFailures: reclaimFailures,
		retiredSegments: retiredSegments,
		activeBytes:     activeBytes,
		uploadsTotal:    uploadsTotal,
		uploadBytes:     uploadBytes,
		uploadDuration:  uploadDuration,
		startTime:       time.Now(),
	}
}

// RecordAppend records a successful append of n bytes.
func (m *Metrics) RecordAppend(n int) {
	m.appendsTotal.WithLabelValues("ok").Inc()
	m.appendBytes.Add(float64(n))

	m.mu.Lock()
	m.appendCount++
	m.mu.Unlock()
}

// RecordAppendError records a failed append (record dropped).
func (m *Metrics) RecordAppendError() {
	m.appendsTotal.WithLabelValues("error").Inc()

	m.mu.Lock()
	m.dropCount++
	m.mu.Unlock()
}

// RecordRotation records a successful rotation.
func (m *Metrics) RecordRotation() {
	m.rotationsTotal.WithLabelValues("ok").Inc()

	m.mu.Lock()
	m.rotationCount++
	m.mu.Unlock()
}

// RecordRotationError records a failed rotation attempt.
func (m *Metrics) RecordRotationError() {
	m.rotationsTotal.WithLabelValues("error").Inc()
}

// RecordReclaimFailure records a failed close of a retired segment.
func (m *Metrics) RecordReclaimFailure() {
	m.reclaimFailures.Inc()
}

// SetRetiredSegments updates the retired-segment gauge.
func (m *Metrics) SetRetiredSegments(n int) {
	m.retiredSegments.Set(float64(n))
}

// SetActiveSegmentBytes updates the active-segment size gauge.
func (m *Metrics) SetActiveSegmentBytes(n int64) {
	m.activeBytes.Set(float64(n))
}

// RecordUpload records a successful segment upload.
func (m *Metrics) RecordUpload(sizeBytes int64, duration time.Duration) {
	m.uploadsTotal.WithLabelValues("ok").Inc()
	m.uploadBytes.Add(float64(sizeBytes))
	m.uploadDuration.Observe(duration.Seconds())

	m.mu.Lock()
	m.uploadOK++
	m.mu.Unlock()
}

// RecordUploadError records a failed segment upload.
func (m *Metrics) RecordUploadError() {
	m.uploadsTotal.WithLabelValues("error").Inc()

	m.mu.Lock()
	m.uploadFailed++
	m.mu.Unlock()
}

// PrometheusHandler returns an HTTP handler that serves /metrics in Prometheus text format.
func (m *Metrics) PrometheusHandler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// StatsHandler returns an HTTP handler that serves a JSON stats summary.
func (m *Metrics) StatsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		m.mu.Lock()
		stats := statsResponse{
			UptimeSeconds: time.Since(m.startTime).Seconds(),
			Appends: appendStats{
				Written: m.appendCount,
				Dropped: m.dropCount,
			},
			Rotations: m.rotationCount,
			Uploads: uploadStats{
				Succeeded: m.uploadOK,
				Failed:    m.uploadFailed,
			},
		}
		m.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(stats)
	}
}

type statsResponse struct {
	UptimeSeconds float64     `json:"uptime_seconds"`
	Appends       appendStats `json:"appends"`
	Rotations     int64       `json:"rotations"`
	Uploads       uploadStats `json:"uploads"`
}

type appendStats struct {
	Written int64 `json:"written"`
	Dropped int64 `json:"dropped"`
}

type uploadStats struct {
	Succeeded int64 `json:"succeeded"`
	Failed    int64 `json:"failed"`
}
