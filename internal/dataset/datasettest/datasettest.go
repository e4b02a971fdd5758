// Package datasettest writes small Arrow datasets in the on-disk layout the
// generation pipeline produces, for use in tests.
package datasettest

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/bench-export/internal/model"
)

// Column describes one field of a fixture dataset.
type Column struct {
	Name string
	Type arrow.DataType
}

// String, Int64, Float64, Bool and StringList are shorthands for common column types.
func String(name string) Column  { return Column{Name: name, Type: arrow.BinaryTypes.String} }
func Int64(name string) Column   { return Column{Name: name, Type: arrow.PrimitiveTypes.Int64} }
func Float64(name string) Column { return Column{Name: name, Type: arrow.PrimitiveTypes.Float64} }
func Bool(name string) Column    { return Column{Name: name, Type: arrow.FixedWidthTypes.Boolean} }
func StringList(name string) Column {
	return Column{Name: name, Type: arrow.ListOf(arrow.BinaryTypes.String)}
}

// WriteArrow writes rows as a single-batch Arrow IPC stream at path.
func WriteArrow(t testing.TB, path string, cols []Column, rows [][]any) {
	t.Helper()

	fields := make([]arrow.Field, len(cols))
	for i, c := range cols {
		fields[i] = arrow.Field{Name: c.Name, Type: c.Type, Nullable: true}
	}
	schema := arrow.NewSchema(fields, nil)

	b := array.NewRecordBuilder(memory.NewGoAllocator(), schema)
	defer b.Release()
	for _, row := range rows {
		require.Len(t, row, len(cols), "fixture row width")
		for i, v := range row {
			appendValue(t, b.Field(i), v)
		}
	}
	rec := b.NewRecord()
	defer rec.Release()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck

	w := ipc.NewWriter(f, ipc.WithSchema(schema))
	require.NoError(t, w.Write(rec))
	require.NoError(t, w.Close())
}

// WriteDataset writes a plain dataset directory (state.json plus one Arrow file).
func WriteDataset(t testing.TB, dir string, cols []Column, rows [][]any) {
	t.Helper()
	const dataFile = "data-00000-of-00001.arrow"
	WriteArrow(t, filepath.Join(dir, dataFile), cols, rows)

	state := map[string]any{
		"_data_files":  []map[string]string{{"filename": dataFile}},
		"_fingerprint": "fixture",
		"_split":       nil,
	}
	writeJSON(t, filepath.Join(dir, "state.json"), state)
}

// WriteSubset writes subset under root the way the generation pipeline saves
// it: a dataset dict with a single split named after the subset.
func WriteSubset(t testing.TB, root string, subset model.Subset, cols []Column, rows [][]any) string {
	t.Helper()
	dir := filepath.Join(root, string(subset))
	WriteDataset(t, filepath.Join(dir, string(subset)), cols, rows)
	writeJSON(t, filepath.Join(dir, "dataset_dict.json"), map[string]any{"splits": []string{string(subset)}})
	return dir
}

// WriteQA writes a lighteval-style subset with n question/answer rows.
func WriteQA(t testing.TB, root string, n int) string {
	t.Helper()
	rows := make([][]any, n)
	for i := range rows {
		rows[i] = []any{
			"question " + string(rune('A'+i%26)),
			"answer " + string(rune('A'+i%26)),
			[]string{"doc" + string(rune('A'+i%26))},
		}
	}
	return WriteSubset(t, root, model.SubsetLighteval,
		[]Column{String("question"), String("ground_truth_answer"), StringList("citations")}, rows)
}

func appendValue(t testing.TB, b array.Builder, v any) {
	t.Helper()
	if v == nil {
		b.AppendNull()
		return
	}
	switch bb := b.(type) {
	case *array.StringBuilder:
		bb.Append(v.(string))
	case *array.Int64Builder:
		switch n := v.(type) {
		case int:
			bb.Append(int64(n))
		default:
			bb.Append(n.(int64))
		}
	case *array.Float64Builder:
		bb.Append(v.(float64))
	case *array.BooleanBuilder:
		bb.Append(v.(bool))
	case *array.ListBuilder:
		bb.Append(true)
		for _, s := range v.([]string) {
			appendValue(t, bb.ValueBuilder(), s)
		}
	default:
		t.Fatalf("datasettest: unsupported builder %T", b)
	}
}

func writeJSON(t testing.TB, path string, v any) {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o644))
}
