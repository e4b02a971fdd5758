package model

// OutcomeStatus is the per-subset result of a spreadsheet export.
type OutcomeStatus string

const (
	OutcomeExported OutcomeStatus = "exported"
	OutcomeSkipped  OutcomeStatus = "skipped"
	OutcomeFailed   OutcomeStatus = "failed"
)

// SubsetOutcome records what happened to one catalog subset during export.
type SubsetOutcome struct {
	Subset Subset        `json:"subset"`
	Status OutcomeStatus `json:"status"`
	Path   string        `json:"path,omitempty"`
	Rows   int           `json:"rows,omitempty"`
	Reason string        `json:"reason,omitempty"`
}

// SpreadsheetReport collects one outcome per catalog subset, in catalog order.
type SpreadsheetReport struct {
	OutputDir string          `json:"output_dir"`
	Outcomes  []SubsetOutcome `json:"outcomes"`
}

// Exported returns the outcomes of subsets written to disk.
func (r *SpreadsheetReport) Exported() []SubsetOutcome {
	return r.filter(OutcomeExported)
}

// Skipped returns the outcomes of subsets absent from the dataset root.
func (r *SpreadsheetReport) Skipped() []SubsetOutcome {
	return r.filter(OutcomeSkipped)
}

// Failed returns the outcomes of subsets that could not be loaded or written.
func (r *SpreadsheetReport) Failed() []SubsetOutcome {
	return r.filter(OutcomeFailed)
}

func (r *SpreadsheetReport) filter(status OutcomeStatus) []SubsetOutcome {
	if r == nil {
		return nil
	}
	var out []SubsetOutcome
	for _, o := range r.Outcomes {
		if o.Status == status {
			out = append(out, o)
		}
	}
	return out
}

// BundleResult describes a committed evaluation bundle.
type BundleResult struct {
	Name        string   `json:"name"`
	Path        string   `json:"path"`
	Files       []string `json:"files"`
	PromptCount int      `json:"prompt_count"`
}
