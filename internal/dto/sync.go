package dto

import "time"

// SyncResult reports a push or pull against the remote spreadsheet endpoint.
type SyncResult struct {
	Direction string    `json:"direction"`
	Students  int       `json:"students"`
	Queued    bool      `json:"queued,omitempty"`
	JobID     string    `json:"job_id,omitempty"`
	At        time.Time `json:"at"`
}
