package dto

import "github.com/nesiel/class-bank/internal/ingest"

// ImportStudentPreview summarises one parsed student in a dry run.
type ImportStudentPreview struct {
	Name        string  `json:"name"`
	Class       string  `json:"class,omitempty"`
	Total       float64 `json:"total"`
	LogEntries  int     `json:"log_entries"`
	Grades      int     `json:"grades,omitempty"`
	FromSummary bool    `json:"from_summary,omitempty"`
}

// ImportResult describes the outcome of a spreadsheet import.
type ImportResult struct {
	Kind       string                 `json:"kind"`
	Filename   string                 `json:"filename"`
	DryRun     bool                   `json:"dry_run"`
	Students   int                    `json:"students"`
	Stats      ingest.Stats           `json:"stats"`
	Created    []string               `json:"created"`
	Updated    []string               `json:"updated"`
	Preview    []ImportStudentPreview `json:"preview,omitempty"`
	SyncQueued bool                   `json:"sync_queued"`
}
