package main

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/bench-export/internal/dataset"
	"github.com/sells-group/bench-export/internal/export"
	"github.com/sells-group/bench-export/internal/model"
)

var exportCmd = &cobra.Command{
	Use:   "export <dataset-root> <output-dir>",
	Short: "Export a local dataset as spreadsheets and an evaluation bundle",
	Long:  "Writes one .xlsx per present subset into the output directory. With --name and --system-prompt set, also writes the evaluation bundle from the lighteval subset.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")
		prompt, _ := cmd.Flags().GetString("system-prompt")
		if name == "" {
			name = cfg.Benchmark.Name
		}
		if prompt == "" {
			prompt = cfg.Benchmark.SystemPrompt
		}

		var bundle *export.BundleParams
		if name != "" {
			p := bundleParams(cfg.Benchmark, name, prompt)
			bundle = &p
		}
		return runExport(os.Stdout, args[0], args[1], bundle)
	},
}

type exportSummary struct {
	Spreadsheet *model.SpreadsheetReport `json:"spreadsheet"`
	Bundle      *model.BundleResult      `json:"bundle,omitempty"`
}

// runExport exports datasetRoot into outputDir and writes a JSON summary to
// out. A nil bundle skips the evaluation bundle; a missing lighteval subset
// is logged and skipped.
func runExport(out io.Writer, datasetRoot, outputDir string, bundle *export.BundleParams) error {
	if info, err := os.Stat(datasetRoot); err != nil || !info.IsDir() {
		return eris.Errorf("export: dataset root %s is not a directory", datasetRoot)
	}

	report, err := export.ExportSpreadsheets(datasetRoot, outputDir)
	if err != nil {
		return eris.Wrap(err, "export spreadsheets")
	}
	summary := exportSummary{Spreadsheet: report}

	if bundle != nil {
		src := dataset.SubsetPath(datasetRoot, model.SubsetLighteval)
		res, err := export.ExportBundle(src, *bundle, outputDir)
		switch {
		case eris.Is(err, export.ErrSubsetMissing):
			zap.L().Warn("lighteval subset not found, skipping bundle", zap.String("path", src))
		case err != nil:
			return eris.Wrap(err, "export bundle")
		default:
			summary.Bundle = res
		}
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		return eris.Wrap(err, "encode export summary")
	}
	zap.L().Info("export complete",
		zap.String("output_dir", filepath.Clean(outputDir)),
		zap.Int("spreadsheets", len(report.Exported())),
		zap.Bool("bundle", summary.Bundle != nil),
	)
	return nil
}

func init() {
	exportCmd.Flags().String("name", "", "benchmark name for the evaluation bundle (defaults to BENCHMARK_NAME)")
	exportCmd.Flags().String("system-prompt", "", "system prompt for the transcript (defaults to BENCHMARK_SYSTEM_PROMPT)")
	rootCmd.AddCommand(exportCmd)
}
