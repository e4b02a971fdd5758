package pipeline

import (
	"context"

	"github.com/sells-group/bench-export/internal/model"
)

// Policy decides what a stage failure does to the run.
type Policy int

const (
	// PolicyFatal stops the run on failure.
	PolicyFatal Policy = iota
	// PolicyLogAndContinue logs the failure and moves on to the next stage.
	PolicyLogAndContinue
)

func (p Policy) String() string {
	if p == PolicyLogAndContinue {
		return "log_and_continue"
	}
	return "fatal"
}

// Stage names, in run order.
const (
	StageFetchInput         = "fetch-input"
	StageExtract            = "extract"
	StageMaterializeConfig  = "materialize-config"
	StageGenerate           = "generate"
	StageExportSpreadsheets = "export-spreadsheets"
	StageExportBundle       = "export-bundle"
	StageUploadOutput       = "upload-output"
)

// Stage is one step of a run. Run may return a result with Status set to
// skipped to record that the stage had nothing to do.
type Stage struct {
	Name   string
	Policy Policy
	Run    func(ctx context.Context) (*model.StageResult, error)
}
