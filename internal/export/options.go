// Package export turns a generated benchmark dataset into review spreadsheets
// and an evaluation bundle for the grading harness.
package export

import (
	"os"

	"github.com/sells-group/bench-export/internal/dataset"
	"github.com/sells-group/bench-export/internal/model"
)

// LoadFunc loads a subset table from its on-disk location.
type LoadFunc func(path string) (*model.Table, error)

// WriteFunc writes a finished file to path.
type WriteFunc func(path string, data []byte) error

type options struct {
	catalog []model.Subset
	load    LoadFunc
	write   WriteFunc
}

// Option configures an exporter.
type Option func(*options)

// WithCatalog overrides the subset catalog.
func WithCatalog(catalog []model.Subset) Option {
	return func(o *options) { o.catalog = catalog }
}

// WithLoader overrides how subset tables are loaded.
func WithLoader(fn LoadFunc) Option {
	return func(o *options) { o.load = fn }
}

// WithFileWriter overrides how the bundle's rubric and metadata files are written.
func WithFileWriter(fn WriteFunc) Option {
	return func(o *options) { o.write = fn }
}

func writeFile(path string, data []byte) error {
	return os.WriteFile(path, data, 0o644)
}

func newOptions(opts []Option) options {
	o := options{
		catalog: model.Catalog(),
		load:    dataset.Load,
		write:   writeFile,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
