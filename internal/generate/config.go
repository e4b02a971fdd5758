// Package generate prepares the dataset generator's configuration and runs
// the generator as an external command.
package generate

import (
	"bytes"
	_ "embed"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

//go:embed templates/config.yaml.tmpl
var defaultConfigTemplate string

// DefaultConfigTemplate returns the built-in generation config template.
func DefaultConfigTemplate() string { return defaultConfigTemplate }

// ConfigParams fills the generation config template.
type ConfigParams struct {
	DatasetDir    string
	RawDir        string
	ProcessedDir  string
	Model         string
	BaseURL       string
	MaxConcurrent int
}

// RenderConfig executes tmpl with p (templates may quote values with the
// scalar function) and normalizes the result through a YAML
// decode and re-encode, which sorts keys and drops comments. An empty tmpl
// selects the built-in template.
func RenderConfig(tmpl string, p ConfigParams) ([]byte, error) {
	if tmpl == "" {
		tmpl = defaultConfigTemplate
	}
	t, err := template.New("config").
		Option("missingkey=error").
		Funcs(template.FuncMap{"scalar": yamlScalar}).
		Parse(tmpl)
	if err != nil {
		return nil, eris.Wrap(err, "generate: parse config template")
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, p); err != nil {
		return nil, eris.Wrap(err, "generate: render config template")
	}

	var doc map[string]any
	if err := yaml.Unmarshal(buf.Bytes(), &doc); err != nil {
		return nil, eris.Wrap(err, "generate: rendered config is not valid yaml")
	}
	if len(doc) == 0 {
		return nil, eris.New("generate: rendered config is empty")
	}
	out, err := yaml.Marshal(doc)
	if err != nil {
		return nil, eris.Wrap(err, "generate: encode config")
	}
	return out, nil
}

// yamlScalar renders s as an inline YAML string scalar, quoting it when YAML
// would otherwise misread it.
func yamlScalar(s string) (string, error) {
	node := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
	if strings.ContainsAny(s, "\n\r") {
		node.Style = yaml.DoubleQuotedStyle
	}
	out, err := yaml.Marshal(node)
	if err != nil {
		return "", eris.Wrap(err, "generate: quote yaml scalar")
	}
	return strings.TrimSuffix(string(out), "\n"), nil
}

// MaterializeConfig renders the generation config and writes it to path,
// creating parent directories.
func MaterializeConfig(tmpl string, p ConfigParams, path string) error {
	data, err := RenderConfig(tmpl, p)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrap(err, "generate: create config dir")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrap(err, "generate: write config")
	}
	zap.L().Info("generate: config written", zap.String("path", path))
	return nil
}
