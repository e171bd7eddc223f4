package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nesiel/class-bank/internal/models"
)

// Import and sync outcomes used as metric labels.
const (
	outcomeSuccess = "success"
	outcomeFailure = "failure"
	outcomeDryRun  = "dry_run"
)

// MetricsService encapsulates Prometheus instrumentation and provides lightweight snapshots for API consumption.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	importTotal     *prometheus.CounterVec
	importDuration  *prometheus.HistogramVec
	importRows      *prometheus.CounterVec
	importStudents  *prometheus.HistogramVec
	stateDuration   *prometheus.HistogramVec
	syncTotal       *prometheus.CounterVec

	requestCount         uint64
	requestDurationTotal uint64
	importCount          uint64
	importFailureCount   uint64
	syncPushCount        uint64
	syncFailureCount     uint64
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	importTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "classbank_imports_total",
		Help: "Spreadsheet imports by kind and outcome",
	}, []string{"kind", "outcome"})

	importDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "classbank_import_duration_seconds",
		Help:    "Time spent decoding, parsing and merging an import",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})

	importRows := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "classbank_import_rows_total",
		Help: "Data rows seen by imports, split into accepted and skipped",
	}, []string{"kind", "result"})

	importStudents := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "classbank_import_students",
		Help:    "Distinct students per imported file",
		Buckets: []float64{1, 5, 10, 20, 40, 80, 160},
	}, []string{"kind"})

	stateDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "classbank_state_operation_seconds",
		Help:    "Duration of state store reads and writes",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	syncTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "classbank_sync_total",
		Help: "Remote sync operations by direction and outcome",
	}, []string{"direction", "outcome"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, importTotal, importDuration, importRows, importStudents, stateDuration, syncTotal, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:        registry,
		handler:         handler,
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		importTotal:     importTotal,
		importDuration:  importDuration,
		importRows:      importRows,
		importStudents:  importStudents,
		stateDuration:   stateDuration,
		syncTotal:       syncTotal,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics and aggregates simple stats for snapshots.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
	atomic.AddUint64(&m.requestCount, 1)
	atomic.AddUint64(&m.requestDurationTotal, uint64(duration.Nanoseconds()))
}

// RecordImport records the outcome of one import.
func (m *MetricsService) RecordImport(kind, outcome string, rowsRead, rowsSkipped, students int, duration time.Duration) {
	if m == nil {
		return
	}
	m.importTotal.WithLabelValues(kind, outcome).Inc()
	m.importDuration.WithLabelValues(kind).Observe(duration.Seconds())
	atomic.AddUint64(&m.importCount, 1)
	if outcome == outcomeFailure {
		atomic.AddUint64(&m.importFailureCount, 1)
		return
	}
	m.importRows.WithLabelValues(kind, "accepted").Add(float64(rowsRead - rowsSkipped))
	m.importRows.WithLabelValues(kind, "skipped").Add(float64(rowsSkipped))
	m.importStudents.WithLabelValues(kind).Observe(float64(students))
}

// ObserveStateOperation records state store timing.
func (m *MetricsService) ObserveStateOperation(operation string, duration time.Duration) {
	if m == nil {
		return
	}
	m.stateDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordSync records a remote push or pull.
func (m *MetricsService) RecordSync(direction string, success bool) {
	if m == nil {
		return
	}
	outcome := outcomeSuccess
	if !success {
		outcome = outcomeFailure
		atomic.AddUint64(&m.syncFailureCount, 1)
	}
	if direction == syncDirectionPush {
		atomic.AddUint64(&m.syncPushCount, 1)
	}
	m.syncTotal.WithLabelValues(direction, outcome).Inc()
}

// Snapshot returns aggregated counters.
func (m *MetricsService) Snapshot() models.SystemMetrics {
	if m == nil {
		return models.SystemMetrics{}
	}
	requests := atomic.LoadUint64(&m.requestCount)
	reqDuration := atomic.LoadUint64(&m.requestDurationTotal)

	var avgRequestMs float64
	if requests > 0 {
		avgRequestMs = float64(reqDuration) / float64(requests) / float64(time.Millisecond)
	}

	return models.SystemMetrics{
		RequestsTotal:            requests,
		AverageRequestDurationMs: avgRequestMs,
		ImportsTotal:             atomic.LoadUint64(&m.importCount),
		ImportFailures:           atomic.LoadUint64(&m.importFailureCount),
		SyncPushes:               atomic.LoadUint64(&m.syncPushCount),
		SyncFailures:             atomic.LoadUint64(&m.syncFailureCount),
		Goroutines:               runtime.NumGoroutine(),
		GeneratedAt:              time.Now().UTC(),
	}
}
