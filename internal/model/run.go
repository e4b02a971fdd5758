package model

import "time"

// RunStatus represents the current state of an export run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Run represents a single orchestrated export run for a benchmark.
type Run struct {
	ID        string     `json:"id"`
	Benchmark string     `json:"benchmark"`
	Status    RunStatus  `json:"status"`
	Result    *RunResult `json:"result,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// RunResult holds the final outcome of a run.
type RunResult struct {
	RunID       string             `json:"run_id,omitempty"`
	Stages      []StageResult      `json:"stages"`
	Spreadsheet *SpreadsheetReport `json:"spreadsheet,omitempty"`
	Bundle      *BundleResult      `json:"bundle,omitempty"`
	Uploaded    []string           `json:"uploaded,omitempty"`
	Error       string             `json:"error,omitempty"`
}

// RunStage represents one stage within a run.
type RunStage struct {
	ID        string       `json:"id"`
	RunID     string       `json:"run_id"`
	Name      string       `json:"name"`
	Status    StageStatus  `json:"status"`
	Result    *StageResult `json:"result,omitempty"`
	StartedAt time.Time    `json:"started_at"`
}

// StageStatus represents the current state of a pipeline stage.
type StageStatus string

const (
	StageStatusRunning  StageStatus = "running"
	StageStatusComplete StageStatus = "complete"
	StageStatusFailed   StageStatus = "failed"
	StageStatusSkipped  StageStatus = "skipped"
)

// StageResult holds the outcome of a pipeline stage.
type StageResult struct {
	Name     string         `json:"name"`
	Status   StageStatus    `json:"status"`
	Fatal    bool           `json:"fatal"`
	Duration int64          `json:"duration_ms"`
	Error    string         `json:"error,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}
