// Package dataset reads datasets saved on disk by the generation pipeline.
//
// The on-disk layout is the HuggingFace save_to_disk format: a directory with
// a state.json listing Arrow IPC stream files, optionally wrapped in a
// dataset_dict.json whose splits live in sub-directories.
package dataset

import (
	"encoding/json"
	"os"
	"path/filepath"
	"slices"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/rotisserie/eris"

	"github.com/sells-group/bench-export/internal/jsontext"
	"github.com/sells-group/bench-export/internal/model"
)

const (
	dictFile  = "dataset_dict.json"
	stateFile = "state.json"
)

type datasetDict struct {
	Splits []string `json:"splits"`
}

type datasetState struct {
	DataFiles []struct {
		Filename string `json:"filename"`
	} `json:"_data_files"`
}

// Load reads every row of the dataset stored at path. Splits of a dataset
// dict are concatenated in the order the dict lists them.
func Load(path string) (*model.Table, error) {
	if data, err := os.ReadFile(filepath.Join(path, dictFile)); err == nil {
		var dict datasetDict
		if err := json.Unmarshal(data, &dict); err != nil {
			return nil, eris.Wrapf(err, "dataset: parse %s", dictFile)
		}
		return loadSplits(path, dict.Splits)
	} else if !os.IsNotExist(err) {
		return nil, eris.Wrapf(err, "dataset: read %s", dictFile)
	}

	data, err := os.ReadFile(filepath.Join(path, stateFile))
	if os.IsNotExist(err) {
		return nil, eris.Errorf("dataset: no dataset at %s", path)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "dataset: read %s", stateFile)
	}

	var state datasetState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, eris.Wrapf(err, "dataset: parse %s", stateFile)
	}
	if len(state.DataFiles) == 0 {
		return nil, eris.Errorf("dataset: %s lists no data files", filepath.Join(path, stateFile))
	}

	table := &model.Table{}
	for i, df := range state.DataFiles {
		part, err := ReadArrowFile(filepath.Join(path, df.Filename))
		if err != nil {
			return nil, err
		}
		if i == 0 {
			table.Columns = part.Columns
		} else if !slices.Equal(table.Columns, part.Columns) {
			return nil, eris.Errorf("dataset: %s has columns %v, expected %v", df.Filename, part.Columns, table.Columns)
		}
		table.Rows = append(table.Rows, part.Rows...)
	}
	return table, nil
}

func loadSplits(path string, splits []string) (*model.Table, error) {
	if len(splits) == 0 {
		return nil, eris.Errorf("dataset: %s lists no splits", filepath.Join(path, dictFile))
	}

	table := &model.Table{}
	for i, split := range splits {
		part, err := Load(filepath.Join(path, split))
		if err != nil {
			return nil, eris.Wrapf(err, "dataset: load split %q", split)
		}
		if i == 0 {
			table.Columns = part.Columns
		} else if !slices.Equal(table.Columns, part.Columns) {
			return nil, eris.Errorf("dataset: split %q has columns %v, expected %v", split, part.Columns, table.Columns)
		}
		table.Rows = append(table.Rows, part.Rows...)
	}
	return table, nil
}

// ReadArrowFile reads a single Arrow IPC stream file into a table.
func ReadArrowFile(path string) (*model.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "dataset: open arrow file")
	}
	defer f.Close() //nolint:errcheck

	rdr, err := ipc.NewReader(f)
	if err != nil {
		return nil, eris.Wrapf(err, "dataset: read arrow stream %s", filepath.Base(path))
	}
	defer rdr.Release()

	schema := rdr.Schema()
	table := &model.Table{Columns: make([]string, schema.NumFields())}
	for i, field := range schema.Fields() {
		table.Columns[i] = field.Name
	}

	for rdr.Next() {
		rec := rdr.Record()
		rows := int(rec.NumRows())
		for r := 0; r < rows; r++ {
			row := make(model.Record, len(table.Columns))
			for c, name := range table.Columns {
				row[name] = Value(rec.Column(c), r)
			}
			table.Rows = append(table.Rows, row)
		}
	}
	if err := rdr.Err(); err != nil {
		return nil, eris.Wrapf(err, "dataset: read arrow stream %s", filepath.Base(path))
	}
	return table, nil
}

// Value converts the element at index i of arr into a plain Go value:
// strings, int64, uint64, float64, bool, []any for lists and
// jsontext.Object for structs. Nulls become nil.
func Value(arr arrow.Array, i int) any {
	if arr.IsNull(i) {
		return nil
	}
	switch a := arr.(type) {
	case *array.String:
		return a.Value(i)
	case *array.LargeString:
		return a.Value(i)
	case *array.Binary:
		return string(a.Value(i))
	case *array.Boolean:
		return a.Value(i)
	case *array.Int8:
		return int64(a.Value(i))
	case *array.Int16:
		return int64(a.Value(i))
	case *array.Int32:
		return int64(a.Value(i))
	case *array.Int64:
		return a.Value(i)
	case *array.Uint8:
		return uint64(a.Value(i))
	case *array.Uint16:
		return uint64(a.Value(i))
	case *array.Uint32:
		return uint64(a.Value(i))
	case *array.Uint64:
		return a.Value(i)
	case *array.Float32:
		return float64(a.Value(i))
	case *array.Float64:
		return a.Value(i)
	case *array.List:
		start, end := a.ValueOffsets(i)
		return listValues(a.ListValues(), start, end)
	case *array.LargeList:
		start, end := a.ValueOffsets(i)
		return listValues(a.ListValues(), start, end)
	case *array.FixedSizeList:
		n := int64(a.DataType().(*arrow.FixedSizeListType).Len())
		start := int64(a.Offset()+i) * n
		return listValues(a.ListValues(), start, start+n)
	case *array.Struct:
		st := a.DataType().(*arrow.StructType)
		obj := make(jsontext.Object, a.NumField())
		for f := 0; f < a.NumField(); f++ {
			obj[f] = jsontext.Field{Key: st.Field(f).Name, Value: Value(a.Field(f), i)}
		}
		return obj
	default:
		return arr.GetOneForMarshal(i)
	}
}

func listValues(values arrow.Array, start, end int64) []any {
	out := make([]any, 0, end-start)
	for j := start; j < end; j++ {
		out = append(out, Value(values, int(j)))
	}
	return out
}
