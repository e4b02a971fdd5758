// Package pipeline runs the end-to-end benchmark job: fetch the document
// archive, generate the dataset, export it and upload the results.
package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/bench-export/internal/dataset"
	"github.com/sells-group/bench-export/internal/export"
	"github.com/sells-group/bench-export/internal/fetcher"
	"github.com/sells-group/bench-export/internal/generate"
	"github.com/sells-group/bench-export/internal/model"
	"github.com/sells-group/bench-export/internal/store"
)

// Downloader fetches the input archive.
type Downloader interface {
	Download(ctx context.Context, rawURL, dest string) (int64, error)
}

// Uploader publishes the output directory.
type Uploader interface {
	UploadDir(ctx context.Context, dir, rawURL string) ([]string, error)
}

// Generator produces the dataset from a generation config.
type Generator interface {
	Generate(ctx context.Context, configPath string) error
}

// Settings are the per-run inputs.
type Settings struct {
	Bundle    export.BundleParams
	InputURL  string
	OutputURL string
	WorkDir   string
	// ConfigTemplate overrides the built-in generation config template.
	ConfigTemplate string
	Generation     generate.ConfigParams
}

func (s Settings) validate() error {
	var missing []string
	if s.Bundle.Name == "" {
		missing = append(missing, "benchmark name")
	}
	if s.Bundle.SystemPrompt == "" {
		missing = append(missing, "system prompt")
	}
	if s.InputURL == "" {
		missing = append(missing, "input location")
	}
	if s.OutputURL == "" {
		missing = append(missing, "output location")
	}
	if s.WorkDir == "" {
		missing = append(missing, "work directory")
	}
	if len(missing) > 0 {
		return eris.Errorf("pipeline: missing %v", missing)
	}
	return nil
}

// Pipeline runs the stages of a benchmark job in order.
type Pipeline struct {
	settings     Settings
	layout       Layout
	store        store.Store
	downloader   Downloader
	uploader     Uploader
	generator    Generator
	spreadsheets *export.SpreadsheetExporter
	bundles      *export.BundleExporter
}

// New creates a Pipeline. st may be nil, in which case the run is not
// recorded in the ledger.
func New(settings Settings, st store.Store, dl Downloader, ul Uploader, gen Generator) *Pipeline {
	return &Pipeline{
		settings:     settings,
		layout:       NewLayout(settings.WorkDir),
		store:        st,
		downloader:   dl,
		uploader:     ul,
		generator:    gen,
		spreadsheets: export.NewSpreadsheetExporter(),
		bundles:      export.NewBundleExporter(),
	}
}

// Layout returns the run's work directory layout.
func (p *Pipeline) Layout() Layout { return p.layout }

// Stages returns the run's stages in order.
func (p *Pipeline) Stages(result *model.RunResult) []Stage {
	l := p.layout
	return []Stage{
		{Name: StageFetchInput, Policy: PolicyFatal, Run: func(ctx context.Context) (*model.StageResult, error) {
			n, err := p.downloader.Download(ctx, p.settings.InputURL, l.InputArchive)
			if err != nil {
				return nil, err
			}
			return &model.StageResult{Metadata: map[string]any{"source": p.settings.InputURL, "bytes": n}}, nil
		}},
		{Name: StageExtract, Policy: PolicyFatal, Run: func(context.Context) (*model.StageResult, error) {
			files, err := fetcher.ExtractZIP(l.InputArchive, l.RawDir)
			if err != nil {
				return nil, err
			}
			if len(files) == 0 {
				zap.L().Warn("pipeline: input archive is empty", zap.String("path", l.InputArchive))
			}
			return &model.StageResult{Metadata: map[string]any{"files": len(files)}}, nil
		}},
		{Name: StageMaterializeConfig, Policy: PolicyFatal, Run: func(context.Context) (*model.StageResult, error) {
			params := p.settings.Generation
			params.DatasetDir = l.DatasetDir
			params.RawDir = l.RawDir
			params.ProcessedDir = l.ProcessedDir
			if err := generate.MaterializeConfig(p.settings.ConfigTemplate, params, l.ConfigPath); err != nil {
				return nil, err
			}
			return &model.StageResult{Metadata: map[string]any{"path": l.ConfigPath}}, nil
		}},
		{Name: StageGenerate, Policy: PolicyFatal, Run: func(ctx context.Context) (*model.StageResult, error) {
			return nil, p.generator.Generate(ctx, l.ConfigPath)
		}},
		{Name: StageExportSpreadsheets, Policy: PolicyFatal, Run: func(context.Context) (*model.StageResult, error) {
			report, err := p.spreadsheets.Export(l.DatasetDir, l.OutputDir)
			if err != nil {
				return nil, err
			}
			result.Spreadsheet = report
			return &model.StageResult{Metadata: map[string]any{
				"exported": len(report.Exported()),
				"skipped":  len(report.Skipped()),
				"failed":   len(report.Failed()),
			}}, nil
		}},
		{Name: StageExportBundle, Policy: PolicyLogAndContinue, Run: func(context.Context) (*model.StageResult, error) {
			src := dataset.SubsetPath(l.DatasetDir, model.SubsetLighteval)
			bundle, err := p.bundles.Export(src, p.settings.Bundle, l.OutputDir)
			if errors.Is(err, export.ErrSubsetMissing) {
				return &model.StageResult{Status: model.StageStatusSkipped, Error: err.Error()}, nil
			}
			if err != nil {
				return nil, err
			}
			result.Bundle = bundle
			return &model.StageResult{Metadata: map[string]any{"path": bundle.Path, "prompt_count": bundle.PromptCount}}, nil
		}},
		{Name: StageUploadOutput, Policy: PolicyFatal, Run: func(ctx context.Context) (*model.StageResult, error) {
			uploaded, err := p.uploader.UploadDir(ctx, l.OutputDir, p.settings.OutputURL)
			result.Uploaded = uploaded
			if err != nil {
				return nil, err
			}
			return &model.StageResult{Metadata: map[string]any{"destination": p.settings.OutputURL, "files": len(uploaded)}}, nil
		}},
	}
}

// Run executes every stage in order. A fatal stage failure stops the run and
// is returned; a log-and-continue failure is logged and recorded, and the run
// goes on. The result is returned in both cases.
func (p *Pipeline) Run(ctx context.Context) (*model.RunResult, error) {
	if err := p.settings.validate(); err != nil {
		return nil, err
	}
	log := zap.L().With(zap.String("benchmark", p.settings.Bundle.Name))
	log.Info("pipeline: starting run", zap.String("workdir", p.layout.Root))

	result := &model.RunResult{}
	var runID string
	if p.store != nil {
		run, err := p.store.CreateRun(ctx, p.settings.Bundle.Name)
		if err != nil {
			return nil, eris.Wrap(err, "pipeline: create run")
		}
		runID = run.ID
		result.RunID = run.ID
		log = log.With(zap.String("run_id", run.ID))
	}

	finish := func(runErr error) (*model.RunResult, error) {
		if runErr != nil {
			result.Error = runErr.Error()
		}
		if p.store != nil {
			if saveErr := p.store.UpdateRunResult(ctx, runID, result); saveErr != nil {
				log.Warn("pipeline: failed to save run result", zap.Error(saveErr))
			}
		}
		return result, runErr
	}

	if err := p.layout.Prepare(); err != nil {
		return finish(err)
	}

	trackStage := func(s Stage) (*model.StageResult, error) {
		var stage *model.RunStage
		if p.store != nil {
			var stageErr error
			stage, stageErr = p.store.CreateStage(ctx, runID, s.Name)
			if stageErr != nil {
				log.Warn("pipeline: failed to create stage", zap.String("stage", s.Name), zap.Error(stageErr))
			}
		}

		start := time.Now()
		stageResult, fnErr := s.Run(ctx)
		duration := time.Since(start).Milliseconds()

		if stageResult == nil {
			stageResult = &model.StageResult{}
		}
		stageResult.Name = s.Name
		stageResult.Fatal = s.Policy == PolicyFatal
		stageResult.Duration = duration

		switch {
		case fnErr != nil:
			stageResult.Status = model.StageStatusFailed
			stageResult.Error = fnErr.Error()
			log.Error("pipeline: stage failed",
				zap.String("stage", s.Name),
				zap.String("policy", s.Policy.String()),
				zap.Int64("duration_ms", duration),
				zap.Error(fnErr),
			)
		case stageResult.Status == model.StageStatusSkipped:
			log.Warn("pipeline: stage skipped",
				zap.String("stage", s.Name),
				zap.String("reason", stageResult.Error),
			)
		default:
			stageResult.Status = model.StageStatusComplete
			log.Info("pipeline: stage complete",
				zap.String("stage", s.Name),
				zap.Int64("duration_ms", duration),
			)
		}

		if stage != nil {
			if err := p.store.CompleteStage(ctx, stage.ID, stageResult); err != nil {
				log.Warn("pipeline: failed to complete stage", zap.String("stage", s.Name), zap.Error(err))
			}
		}
		result.Stages = append(result.Stages, *stageResult)
		return stageResult, fnErr
	}

	for _, s := range p.Stages(result) {
		if _, err := trackStage(s); err != nil {
			if s.Policy == PolicyFatal {
				return finish(eris.Wrapf(err, "pipeline: stage %s", s.Name))
			}
			log.Warn("pipeline: continuing after stage failure", zap.String("stage", s.Name))
		}
	}

	log.Info("pipeline: run complete", zap.Int("uploaded", len(result.Uploaded)))
	return finish(nil)
}
