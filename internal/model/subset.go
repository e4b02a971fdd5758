package model

// Subset names a partition of the generated benchmark dataset.
type Subset string

const (
	SubsetIngested            Subset = "ingested"
	SubsetSummarized          Subset = "summarized"
	SubsetChunked             Subset = "chunked"
	SubsetSingleShotQuestions Subset = "single_shot_questions"
	SubsetMultiHopQuestions   Subset = "multi_hop_questions"
	SubsetLighteval           Subset = "lighteval"
)

// Catalog returns the fixed subset catalog in export priority order.
// A fresh slice is returned on every call so callers cannot reorder the catalog.
func Catalog() []Subset {
	return []Subset{
		SubsetIngested,
		SubsetSummarized,
		SubsetChunked,
		SubsetSingleShotQuestions,
		SubsetMultiHopQuestions,
		SubsetLighteval,
	}
}

// Record is one row of a subset, keyed by field name.
type Record map[string]any

// Table is a fully loaded subset: its column names in schema order and every row.
type Table struct {
	Columns []string `json:"columns"`
	Rows    []Record `json:"rows"`
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// HasColumn reports whether the table schema contains name.
func (t *Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}
