package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/bench-export/internal/config"
	"github.com/sells-group/bench-export/internal/export"
	"github.com/sells-group/bench-export/internal/generate"
	"github.com/sells-group/bench-export/internal/pipeline"
	"github.com/sells-group/bench-export/internal/storage"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full fetch, generate, export and upload job",
	Long:  "Downloads the input archive, runs the dataset generator, exports spreadsheets and the evaluation bundle, and uploads the output directory.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.ValidateRun(); err != nil {
			return err
		}

		st, err := openStore(ctx, cfg.Store)
		if err != nil {
			return err
		}
		if st != nil {
			defer st.Close() //nolint:errcheck
		}

		router := storage.NewRouter(storageOptions(cfg.Storage))
		gen := generate.NewRunner(cfg.Generate.Command, cfg.Generate.Args)

		p := pipeline.New(runSettings(cfg), st, router, router, gen)
		result, runErr := p.Run(ctx)
		if result != nil {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(result); err != nil {
				zap.L().Warn("failed to encode run result", zap.Error(err))
			}
		}
		if runErr != nil {
			return eris.Wrap(runErr, "run")
		}
		return nil
	},
}

// bundleParams overlays the configured descriptions on the defaults for the
// named benchmark.
func bundleParams(b config.BenchmarkConfig, name, systemPrompt string) export.BundleParams {
	p := export.DefaultBundleParams(name, systemPrompt)
	if b.FullDescription != "" {
		p.FullDescription = b.FullDescription
	}
	if b.ShortDescription != "" {
		p.ShortDescription = b.ShortDescription
	}
	if b.Category != "" {
		p.Category = b.Category
	}
	return p
}

// runSettings builds the pipeline settings from a validated config.
func runSettings(c *config.Config) pipeline.Settings {
	return pipeline.Settings{
		Bundle:         bundleParams(c.Benchmark, c.Benchmark.Name, c.Benchmark.SystemPrompt),
		InputURL:       c.Input.Resolve(),
		OutputURL:      c.Output.Resolve(),
		WorkDir:        c.WorkDir,
		ConfigTemplate: c.Generate.ConfigTemplate,
		Generation: generate.ConfigParams{
			Model:         c.Generate.Model,
			BaseURL:       c.Generate.BaseURL,
			MaxConcurrent: c.Generate.MaxConcurrent,
		},
	}
}

func init() {
	rootCmd.AddCommand(runCmd)
}
