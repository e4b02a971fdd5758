package export

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/bench-export/internal/jsontext"
	"github.com/sells-group/bench-export/internal/model"
)

// Defaults used when a bundle is exported without explicit descriptions.
const (
	DefaultFullDescription  = "Dataset for evaluating built-in knowledge"
	DefaultShortDescription = "Fact-based knowledge"
	DefaultCategory         = "YourBench"
)

const (
	questionField = "question"
	answerField   = "ground_truth_answer"
	bundleSubset  = "default"
	metadataFile  = "metadata.yaml"
)

// ErrSubsetMissing is returned when the subset a bundle is built from was never generated.
var ErrSubsetMissing = eris.New("export: subset not found")

// BundleParams names and describes an evaluation bundle.
type BundleParams struct {
	Name             string
	SystemPrompt     string
	FullDescription  string
	ShortDescription string
	Category         string
}

// DefaultBundleParams returns params with the default descriptions filled in.
func DefaultBundleParams(name, systemPrompt string) BundleParams {
	return BundleParams{
		Name:             name,
		SystemPrompt:     systemPrompt,
		FullDescription:  DefaultFullDescription,
		ShortDescription: DefaultShortDescription,
		Category:         DefaultCategory,
	}
}

func (p BundleParams) validate() error {
	switch {
	case p.Name == "":
		return eris.New("export: bundle name is required")
	case p.Name == "." || p.Name == ".." || strings.ContainsAny(p.Name, `/\`):
		return eris.Errorf("export: bundle name %q is not a valid directory name", p.Name)
	}
	return nil
}

// TranscriptFile returns the transcript file name for benchmark name.
func TranscriptFile(name string) string { return name + "-formatted.jsonl" }

// ScorerFile returns the grading rubric file name for benchmark name.
func ScorerFile(name string) string { return name + ".yaml" }

// BundleExporter builds evaluation bundles from the lighteval subset.
type BundleExporter struct {
	opts options
}

// NewBundleExporter creates a BundleExporter.
func NewBundleExporter(opts ...Option) *BundleExporter {
	return &BundleExporter{opts: newOptions(opts)}
}

// ExportBundle builds a bundle with the default exporter.
func ExportBundle(lightevalPath string, p BundleParams, outputDir string) (*model.BundleResult, error) {
	return NewBundleExporter().Export(lightevalPath, p, outputDir)
}

// Export writes <outputDir>/<name>/ containing the transcript, the grading
// rubric and metadata.yaml. The bundle is assembled in a staging directory
// and moved into place only once all three files are written, so the target
// directory either holds a complete bundle or is left untouched.
func (e *BundleExporter) Export(lightevalPath string, p BundleParams, outputDir string) (*model.BundleResult, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	log := zap.L().With(zap.String("benchmark", p.Name), zap.String("source", lightevalPath))

	if info, err := os.Stat(lightevalPath); err != nil || !info.IsDir() {
		return nil, eris.Wrapf(ErrSubsetMissing, "export: lighteval subset at %s", lightevalPath)
	}

	table, err := e.opts.load(lightevalPath)
	if err != nil {
		return nil, eris.Wrap(err, "export: load lighteval subset")
	}
	for _, col := range []string{questionField, answerField} {
		if !table.HasColumn(col) {
			return nil, eris.Errorf("export: lighteval subset has no %q column", col)
		}
	}

	scorer, err := RenderScorer(p.Name)
	if err != nil {
		return nil, err
	}
	metadata, err := RenderMetadata(MetadataParams{
		Key:              p.Name,
		FullDescription:  p.FullDescription,
		ShortDescription: p.ShortDescription,
		Category:         p.Category,
		PromptCount:      table.Len(),
	})
	if err != nil {
		return nil, err
	}
	if err := checkRendered(p.Name, scorer, metadata, table.Len()); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, eris.Wrap(err, "export: create bundle output dir")
	}
	staging, err := os.MkdirTemp(outputDir, "."+p.Name+"-staging-")
	if err != nil {
		return nil, eris.Wrap(err, "export: create staging dir")
	}
	committed := false
	defer func() {
		if !committed {
			_ = os.RemoveAll(staging)
		}
	}()

	files := []string{TranscriptFile(p.Name), ScorerFile(p.Name), metadataFile}
	if err := writeTranscript(filepath.Join(staging, files[0]), p, table); err != nil {
		return nil, err
	}
	if err := e.opts.write(filepath.Join(staging, files[1]), []byte(scorer)); err != nil {
		return nil, eris.Wrap(err, "export: write scorer")
	}
	if err := e.opts.write(filepath.Join(staging, files[2]), []byte(metadata)); err != nil {
		return nil, eris.Wrap(err, "export: write metadata")
	}

	target := filepath.Join(outputDir, p.Name)
	if err := commitDir(staging, target); err != nil {
		return nil, err
	}
	committed = true

	log.Info("export: bundle written", zap.String("path", target), zap.Int("prompt_count", table.Len()))
	return &model.BundleResult{
		Name:        p.Name,
		Path:        target,
		Files:       files,
		PromptCount: table.Len(),
	}, nil
}

// TranscriptLine builds the transcript entry for the record at index i.
func TranscriptLine(name, systemPrompt string, i int, rec model.Record) jsontext.Object {
	return jsontext.Object{
		{Key: "id", Value: fmt.Sprintf("%s%06d", name, i)},
		{Key: "input", Value: []any{
			jsontext.Object{{Key: "role", Value: "system"}, {Key: "content", Value: systemPrompt}},
			jsontext.Object{{Key: "role", Value: "user"}, {Key: "content", Value: rec[questionField]}},
		}},
		{Key: "truth", Value: rec[answerField]},
		{Key: "subset", Value: bundleSubset},
	}
}

func writeTranscript(path string, p BundleParams, table *model.Table) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrap(err, "export: create transcript")
	}
	defer f.Close() //nolint:errcheck

	w := bufio.NewWriter(f)
	for i, rec := range table.Rows {
		if _, err := w.WriteString(jsontext.Encode(TranscriptLine(p.Name, p.SystemPrompt, i, rec), false)); err != nil {
			return eris.Wrap(err, "export: write transcript")
		}
		if err := w.WriteByte('\n'); err != nil {
			return eris.Wrap(err, "export: write transcript")
		}
	}
	if err := w.Flush(); err != nil {
		return eris.Wrap(err, "export: flush transcript")
	}
	return eris.Wrap(f.Close(), "export: close transcript")
}

// checkRendered parses the rendered descriptors back and confirms they
// describe this bundle.
func checkRendered(name, scorer, metadata string, count int) error {
	var s struct {
		Name   string `yaml:"name"`
		Scorer struct {
			Type string `yaml:"type"`
		} `yaml:"scorer"`
	}
	if err := yaml.Unmarshal([]byte(scorer), &s); err != nil {
		return eris.Wrap(err, "export: rendered scorer is not valid yaml")
	}
	if s.Name != name || s.Scorer.Type != "llm_judge" {
		return eris.Errorf("export: rendered scorer names %q, expected %q", s.Name, name)
	}

	var m struct {
		Key         string `yaml:"key"`
		PromptCount int    `yaml:"prompt_count"`
	}
	if err := yaml.Unmarshal([]byte(metadata), &m); err != nil {
		return eris.Wrap(err, "export: rendered metadata is not valid yaml")
	}
	if m.Key != name || m.PromptCount != count {
		return eris.Errorf("export: rendered metadata has key %q and prompt_count %d, expected %q and %d",
			m.Key, m.PromptCount, name, count)
	}
	return nil
}

// commitDir replaces target with the fully written staging directory.
func commitDir(staging, target string) error {
	if err := os.Chmod(staging, 0o755); err != nil {
		return eris.Wrap(err, "export: chmod staging dir")
	}
	if err := os.RemoveAll(target); err != nil {
		return eris.Wrap(err, "export: remove previous bundle")
	}
	if err := os.Rename(staging, target); err != nil {
		return eris.Wrap(err, "export: commit bundle")
	}
	return nil
}
