package models

import "time"

// SystemMetrics is a lightweight snapshot of runtime counters.
type SystemMetrics struct {
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	ImportsTotal             uint64    `json:"imports_total"`
	ImportFailures           uint64    `json:"import_failures"`
	SyncPushes               uint64    `json:"sync_pushes"`
	SyncFailures             uint64    `json:"sync_failures"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
