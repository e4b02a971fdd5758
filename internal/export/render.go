package export

import (
	"bytes"
	"embed"
	"strings"
	"text/template"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var templates = template.Must(
	template.New("bundle").
		Funcs(template.FuncMap{"scalar": yamlScalar}).
		Option("missingkey=error").
		ParseFS(templateFS, "templates/*.tmpl"),
)

const (
	scorerTemplate   = "scorer.yaml.tmpl"
	metadataTemplate = "metadata.yaml.tmpl"
)

// MetadataParams fills the bundle metadata descriptor.
type MetadataParams struct {
	Key              string
	FullDescription  string
	ShortDescription string
	Category         string
	PromptCount      int
}

// RenderScorer returns the grading rubric for benchmark name. The judge
// prompt, grade categories and extraction pattern are fixed; only the name
// varies.
func RenderScorer(name string) (string, error) {
	return render(scorerTemplate, struct{ Name string }{Name: name})
}

// RenderMetadata returns the metadata descriptor for a bundle.
func RenderMetadata(p MetadataParams) (string, error) {
	return render(metadataTemplate, p)
}

func render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", eris.Wrapf(err, "export: render %s", name)
	}
	return buf.String(), nil
}

// yamlScalar renders s as an inline YAML scalar. Plain-safe strings come back
// unchanged; anything YAML would misread is quoted.
func yamlScalar(s string) (string, error) {
	node := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
	if strings.ContainsAny(s, "\n\r") {
		node.Style = yaml.DoubleQuotedStyle
	}
	out, err := yaml.Marshal(node)
	if err != nil {
		return "", eris.Wrap(err, "export: quote yaml scalar")
	}
	return strings.TrimSuffix(string(out), "\n"), nil
}
