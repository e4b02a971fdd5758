// Package store persists the run ledger: one row per orchestrated run and one
// per stage it executed.
package store

import (
	"context"

	"github.com/sells-group/bench-export/internal/model"
)

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status    model.RunStatus `json:"status,omitempty"`
	Benchmark string          `json:"benchmark,omitempty"`
	Limit     int             `json:"limit,omitempty"`
	Offset    int             `json:"offset,omitempty"`
}

// Store defines the persistence interface for the run ledger.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, benchmark string) (*model.Run, error)
	UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error
	UpdateRunResult(ctx context.Context, runID string, result *model.RunResult) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// Stages
	CreateStage(ctx context.Context, runID string, name string) (*model.RunStage, error)
	CompleteStage(ctx context.Context, stageID string, result *model.StageResult) error
	ListStages(ctx context.Context, runID string) ([]model.RunStage, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// resultStatus is the run status recorded alongside a final result.
func resultStatus(result *model.RunResult) model.RunStatus {
	if result != nil && result.Error != "" {
		return model.RunStatusFailed
	}
	return model.RunStatusComplete
}

const defaultListLimit = 100
