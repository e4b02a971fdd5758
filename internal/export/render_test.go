package export

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestRenderMetadata_Defaults(t *testing.T) {
	got, err := RenderMetadata(MetadataParams{
		Key:              "demo",
		FullDescription:  DefaultFullDescription,
		ShortDescription: DefaultShortDescription,
		Category:         DefaultCategory,
		PromptCount:      3,
	})
	require.NoError(t, err)

	want := `name: Dataset for evaluating built-in knowledge
key: demo
full_description: Dataset for evaluating built-in knowledge
short_description: Fact-based knowledge
subsets:
- default
categories:
- YourBench
key_takeaways:
additional_insights:
- ""
prompt_count: 3
`
	assert.Equal(t, want, got)
}

func TestRenderMetadata_QuotesUnsafeValues(t *testing.T) {
	got, err := RenderMetadata(MetadataParams{
		Key:              "123",
		FullDescription:  "Facts: dates, names",
		ShortDescription: "multi\nline",
		Category:         "- dash",
		PromptCount:      1,
	})
	require.NoError(t, err)

	var m struct {
		Name       string   `yaml:"name"`
		Key        string   `yaml:"key"`
		Short      string   `yaml:"short_description"`
		Categories []string `yaml:"categories"`
	}
	require.NoError(t, yaml.Unmarshal([]byte(got), &m))
	assert.Equal(t, "Facts: dates, names", m.Name)
	assert.Equal(t, "123", m.Key)
	assert.Equal(t, "multi\nline", m.Short)
	assert.Equal(t, []string{"- dash"}, m.Categories)
}

func TestRenderScorer(t *testing.T) {
	got, err := RenderScorer("my_bench")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(got, "name: my_bench\n\nscorer:\n  type: llm_judge\n"))
	assert.Contains(t, got, `assign a grade of either ["CORRECT", "INCORRECT", "NOT_ATTEMPTED"]`)
	assert.Contains(t, got, "      Question: {prompt}\n      Gold target: {truth}\n      Predicted answer: {response}\n")
	assert.Contains(t, got, `pattern: "Grade: (?:\\[)?([ABC])(?:\\])?"`)
	assert.True(t, strings.HasSuffix(got, "categories:\n- general\nsubsets:\n- default\n"))

	var doc struct {
		Name   string `yaml:"name"`
		Scorer struct {
			Type    string `yaml:"type"`
			Options struct {
				RegexPattern string `yaml:"regex_pattern"`
				JudgeModel   string `yaml:"judge_model"`
				JudgePrompt  string `yaml:"judge_prompt"`
				Criteria     map[string]struct {
					Weight  float64            `yaml:"weight"`
					Pattern string             `yaml:"pattern"`
					Type    string             `yaml:"type"`
					Options map[string]float64 `yaml:"options"`
				} `yaml:"criteria"`
			} `yaml:"options"`
		} `yaml:"scorer"`
		Categories []string `yaml:"categories"`
		Subsets    []string `yaml:"subsets"`
	}
	require.NoError(t, yaml.Unmarshal([]byte(got), &doc))
	assert.Equal(t, "my_bench", doc.Name)
	assert.Equal(t, "llm_judge", doc.Scorer.Type)
	assert.Equal(t, "google/gemini-2.5-flash-preview-05-20", doc.Scorer.Options.JudgeModel)
	assert.Equal(t, "", doc.Scorer.Options.RegexPattern)
	assert.True(t, strings.HasSuffix(doc.Scorer.Options.JudgePrompt, "Grade: [A/B/C]"))

	grade := doc.Scorer.Options.Criteria["grade"]
	assert.Equal(t, `Grade: (?:\[)?([ABC])(?:\])?`, grade.Pattern)
	assert.Equal(t, "mapped", grade.Type)
	assert.Equal(t, map[string]float64{"A": 1, "B": 0, "C": 0}, grade.Options)
	assert.Equal(t, []string{"general"}, doc.Categories)
	assert.Equal(t, []string{"default"}, doc.Subsets)
}

func TestRenderScorer_OnlyNameVaries(t *testing.T) {
	a, err := RenderScorer("alpha")
	require.NoError(t, err)
	b, err := RenderScorer("beta")
	require.NoError(t, err)
	assert.Equal(t, strings.TrimPrefix(a, "name: alpha"), strings.TrimPrefix(b, "name: beta"))
}

func TestYAMLScalar(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain words", "plain words"},
		{"bench_1", "bench_1"},
		{"", `""`},
		{"true", `"true"`},
		{"42", `"42"`},
	}
	for _, tt := range tests {
		got, err := yamlScalar(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "input %q", tt.in)
	}
}
