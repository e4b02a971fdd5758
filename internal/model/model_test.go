package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCatalogOrder(t *testing.T) {
	assert.Equal(t, []Subset{
		"ingested", "summarized", "chunked", "single_shot_questions", "multi_hop_questions", "lighteval",
	}, Catalog())
}

func TestCatalogReturnsCopy(t *testing.T) {
	c := Catalog()
	c[0] = "mutated"
	assert.Equal(t, SubsetIngested, Catalog()[0])
}

func TestTableHelpers(t *testing.T) {
	var nilTable *Table
	assert.Equal(t, 0, nilTable.Len())

	tbl := &Table{Columns: []string{"question", "citations"}, Rows: []Record{{"question": "q"}}}
	assert.Equal(t, 1, tbl.Len())
	assert.True(t, tbl.HasColumn("citations"))
	assert.False(t, tbl.HasColumn("answer"))
}

func TestSpreadsheetReportFilters(t *testing.T) {
	r := &SpreadsheetReport{Outcomes: []SubsetOutcome{
		{Subset: SubsetIngested, Status: OutcomeExported},
		{Subset: SubsetSummarized, Status: OutcomeSkipped},
		{Subset: SubsetChunked, Status: OutcomeFailed, Reason: "boom"},
		{Subset: SubsetLighteval, Status: OutcomeExported},
	}}

	assert.Len(t, r.Exported(), 2)
	assert.Len(t, r.Skipped(), 1)
	failed := r.Failed()
	if assert.Len(t, failed, 1) {
		assert.Equal(t, "boom", failed[0].Reason)
	}

	var nilReport *SpreadsheetReport
	assert.Nil(t, nilReport.Exported())
}

func TestStatusValues(t *testing.T) {
	assert.Equal(t, "running", string(RunStatusRunning))
	assert.Equal(t, "complete", string(RunStatusComplete))
	assert.Equal(t, "failed", string(RunStatusFailed))
	assert.Equal(t, "skipped", string(StageStatusSkipped))
	assert.Equal(t, "failed", string(OutcomeFailed))
}
