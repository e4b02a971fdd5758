package pipeline

import (
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
)

// Layout is the on-disk arrangement of a run's work directory.
type Layout struct {
	Root         string
	InputArchive string
	RawDir       string
	ProcessedDir string
	// DatasetDir is the dataset root the generator writes subsets into.
	DatasetDir string
	ConfigPath string
	// OutputDir holds the spreadsheets and the bundle directory, and is what
	// gets uploaded.
	OutputDir string
}

// NewLayout returns the layout rooted at workDir.
func NewLayout(workDir string) Layout {
	task := filepath.Join(workDir, "task")
	dataset := filepath.Join(task, "dataset")
	return Layout{
		Root:         workDir,
		InputArchive: filepath.Join(workDir, "input.zip"),
		RawDir:       filepath.Join(task, "data", "raw"),
		ProcessedDir: filepath.Join(task, "data", "processed"),
		DatasetDir:   dataset,
		ConfigPath:   filepath.Join(dataset, "config.yaml"),
		OutputDir:    filepath.Join(task, "output"),
	}
}

// Prepare creates the layout's directories.
func (l Layout) Prepare() error {
	for _, dir := range []string{l.RawDir, l.ProcessedDir, l.DatasetDir, l.OutputDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return eris.Wrapf(err, "pipeline: create %s", dir)
		}
	}
	return nil
}
