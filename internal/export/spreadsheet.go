package export

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/sells-group/bench-export/internal/dataset"
	"github.com/sells-group/bench-export/internal/model"
	"github.com/sells-group/bench-export/internal/sanitize"
)

// SheetName is the worksheet every spreadsheet artifact is written to.
const SheetName = "Sheet1"

// SpreadsheetExporter writes one spreadsheet per present catalog subset.
type SpreadsheetExporter struct {
	opts options
}

// NewSpreadsheetExporter creates an exporter over the standard catalog.
func NewSpreadsheetExporter(opts ...Option) *SpreadsheetExporter {
	return &SpreadsheetExporter{opts: newOptions(opts)}
}

// ExportSpreadsheets exports every catalog subset under datasetRoot to
// outputDir using the default exporter.
func ExportSpreadsheets(datasetRoot, outputDir string) (*model.SpreadsheetReport, error) {
	return NewSpreadsheetExporter().Export(datasetRoot, outputDir)
}

// Export writes <outputDir>/<subset>.xlsx for every present subset. Subsets
// are handled independently: a missing subset is recorded as skipped and a
// load or write failure as failed, and neither stops the remaining subsets.
// The only error returned is a failure to create outputDir.
func (e *SpreadsheetExporter) Export(datasetRoot, outputDir string) (*model.SpreadsheetReport, error) {
	log := zap.L().With(zap.String("dataset_root", datasetRoot), zap.String("output_dir", outputDir))

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, eris.Wrap(err, "export: create spreadsheet output dir")
	}

	present := make(map[model.Subset]dataset.Handle)
	for _, h := range dataset.Resolve(datasetRoot, e.opts.catalog) {
		present[h.Subset] = h
	}

	report := &model.SpreadsheetReport{OutputDir: outputDir}
	for _, subset := range e.opts.catalog {
		h, ok := present[subset]
		if !ok {
			log.Warn("export: subset not found, skipping",
				zap.String("subset", string(subset)),
				zap.String("path", dataset.SubsetPath(datasetRoot, subset)),
			)
			report.Outcomes = append(report.Outcomes, model.SubsetOutcome{Subset: subset, Status: model.OutcomeSkipped})
			continue
		}

		outcome := e.exportSubset(h, outputDir)
		if outcome.Status == model.OutcomeFailed {
			log.Error("export: subset failed",
				zap.String("subset", string(subset)),
				zap.String("reason", outcome.Reason),
			)
		} else {
			log.Info("export: subset exported",
				zap.String("subset", string(subset)),
				zap.String("path", outcome.Path),
				zap.Int("rows", outcome.Rows),
			)
		}
		report.Outcomes = append(report.Outcomes, outcome)
	}

	log.Info("export: spreadsheet conversion complete",
		zap.Int("exported", len(report.Exported())),
		zap.Int("skipped", len(report.Skipped())),
		zap.Int("failed", len(report.Failed())),
	)
	return report, nil
}

func (e *SpreadsheetExporter) exportSubset(h dataset.Handle, outputDir string) model.SubsetOutcome {
	failed := func(err error) model.SubsetOutcome {
		return model.SubsetOutcome{Subset: h.Subset, Status: model.OutcomeFailed, Reason: err.Error()}
	}

	table, err := e.opts.load(h.Path)
	if err != nil {
		return failed(err)
	}

	rows := make([]model.Record, len(table.Rows))
	for i, rec := range table.Rows {
		rows[i] = sanitize.Record(rec)
	}

	path := filepath.Join(outputDir, string(h.Subset)+".xlsx")
	if err := WriteSpreadsheet(path, table.Columns, rows); err != nil {
		_ = os.Remove(path)
		return failed(err)
	}

	return model.SubsetOutcome{Subset: h.Subset, Status: model.OutcomeExported, Path: path, Rows: len(rows)}
}

// WriteSpreadsheet writes a header row of columns followed by one row per
// record. Records must already be sanitized to scalar values.
func WriteSpreadsheet(path string, columns []string, rows []model.Record) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(SheetName)
	if err != nil {
		return eris.Wrap(err, "xlsx: add sheet")
	}

	header := sheet.AddRow()
	for _, c := range columns {
		header.AddCell().SetString(sanitize.String(c))
	}

	for _, rec := range rows {
		row := sheet.AddRow()
		for _, c := range columns {
			setCell(row.AddCell(), rec[c])
		}
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "xlsx: save %s", filepath.Base(path))
	}
	return nil
}

func setCell(cell *xlsx.Cell, v any) {
	switch x := v.(type) {
	case nil:
	case string:
		cell.SetString(x)
	case bool:
		cell.SetBool(x)
	case int:
		cell.SetInt64(int64(x))
	case int8:
		cell.SetInt64(int64(x))
	case int16:
		cell.SetInt64(int64(x))
	case int32:
		cell.SetInt64(int64(x))
	case int64:
		cell.SetInt64(x)
	case uint8:
		cell.SetInt64(int64(x))
	case uint16:
		cell.SetInt64(int64(x))
	case uint32:
		cell.SetInt64(int64(x))
	case uint:
		setUint(cell, uint64(x))
	case uint64:
		setUint(cell, x)
	case float32:
		setFloat(cell, float64(x))
	case float64:
		setFloat(cell, x)
	default:
		cell.SetString(sanitize.String(fmt.Sprint(x)))
	}
}

func setUint(cell *xlsx.Cell, n uint64) {
	if n > math.MaxInt64 {
		cell.SetString(strconv.FormatUint(n, 10))
		return
	}
	cell.SetInt64(int64(n))
}

// Spreadsheets have no NaN or infinity, so those are written as text.
func setFloat(cell *xlsx.Cell, f float64) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		cell.SetString(strconv.FormatFloat(f, 'g', -1, 64))
		return
	}
	cell.SetFloat(f)
}
