package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/bench-export/internal/config"
)

func TestRunSettings(t *testing.T) {
	c := &config.Config{
		Benchmark: config.BenchmarkConfig{
			Name:         "demo",
			SystemPrompt: "Answer briefly.",
			Category:     "Custom",
		},
		Input:   config.LocationConfig{Bucket: "in", Key: "docs/input.zip"},
		Output:  config.LocationConfig{URL: "file:///tmp/out"},
		WorkDir: "/app",
		Generate: config.GenerateConfig{
			ConfigTemplate: "custom: {{ .DatasetDir }}",
			Model:          "openai/gpt-4.1",
			BaseURL:        "https://openrouter.ai/api/v1",
			MaxConcurrent:  8,
		},
	}

	s := runSettings(c)
	assert.Equal(t, "demo", s.Bundle.Name)
	assert.Equal(t, "Answer briefly.", s.Bundle.SystemPrompt)
	assert.Equal(t, "Custom", s.Bundle.Category)
	assert.Equal(t, "Dataset for evaluating built-in knowledge", s.Bundle.FullDescription)
	assert.Equal(t, "Fact-based knowledge", s.Bundle.ShortDescription)
	assert.Equal(t, "s3://in/docs/input.zip", s.InputURL)
	assert.Equal(t, "file:///tmp/out", s.OutputURL)
	assert.Equal(t, "/app", s.WorkDir)
	assert.Equal(t, "custom: {{ .DatasetDir }}", s.ConfigTemplate)
	assert.Equal(t, "openai/gpt-4.1", s.Generation.Model)
	assert.Equal(t, 8, s.Generation.MaxConcurrent)
}

func TestBundleParams_OverlaysConfig(t *testing.T) {
	p := bundleParams(config.BenchmarkConfig{
		FullDescription:  "Tax code questions",
		ShortDescription: "Tax",
		Category:         "Finance",
	}, "tax", "Answer briefly.")
	assert.Equal(t, "tax", p.Name)
	assert.Equal(t, "Answer briefly.", p.SystemPrompt)
	assert.Equal(t, "Tax code questions", p.FullDescription)
	assert.Equal(t, "Tax", p.ShortDescription)
	assert.Equal(t, "Finance", p.Category)

	defaults := bundleParams(config.BenchmarkConfig{}, "tax", "p")
	assert.Equal(t, "Dataset for evaluating built-in knowledge", defaults.FullDescription)
	assert.Equal(t, "Fact-based knowledge", defaults.ShortDescription)
	assert.Equal(t, "YourBench", defaults.Category)
}
