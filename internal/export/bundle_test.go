package export

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/bench-export/internal/dataset/datasettest"
	"github.com/sells-group/bench-export/internal/model"
)

func readLines(t *testing.T, path string) []string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	require.NoError(t, sc.Err())
	return lines
}

func TestExportBundle_ThreeRecords(t *testing.T) {
	root := t.TempDir()
	out := t.TempDir()
	lighteval := datasettest.WriteQA(t, root, 3)

	res, err := ExportBundle(lighteval, DefaultBundleParams("demo", "Be brief."), out)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(out, "demo"), res.Path)
	assert.Equal(t, 3, res.PromptCount)
	assert.Equal(t, []string{"demo-formatted.jsonl", "demo.yaml", "metadata.yaml"}, res.Files)

	entries, err := os.ReadDir(res.Path)
	require.NoError(t, err)
	assert.Len(t, entries, 3)

	lines := readLines(t, filepath.Join(res.Path, "demo-formatted.jsonl"))
	require.Len(t, lines, 3)
	assert.Equal(t,
		`{"id": "demo000000", "input": [{"role": "system", "content": "Be brief."}, {"role": "user", "content": "question A"}], "truth": "answer A", "subset": "default"}`,
		lines[0],
	)
	for i, line := range lines {
		var entry struct {
			ID    string `json:"id"`
			Input []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"input"`
			Truth  string `json:"truth"`
			Subset string `json:"subset"`
		}
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		assert.Equal(t, fmt.Sprintf("demo%06d", i), entry.ID)
		require.Len(t, entry.Input, 2)
		assert.Equal(t, "system", entry.Input[0].Role)
		assert.Equal(t, "user", entry.Input[1].Role)
		assert.Equal(t, "default", entry.Subset)
	}

	meta, err := os.ReadFile(filepath.Join(res.Path, "metadata.yaml"))
	require.NoError(t, err)
	var m struct {
		Key         string `yaml:"key"`
		PromptCount int    `yaml:"prompt_count"`
	}
	require.NoError(t, yaml.Unmarshal(meta, &m))
	assert.Equal(t, "demo", m.Key)
	assert.Equal(t, 3, m.PromptCount)

	scorer, err := os.ReadFile(filepath.Join(res.Path, "demo.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(scorer), "name: demo\n")
}

func TestExportBundle_IDsFollowSourceOrder(t *testing.T) {
	root := t.TempDir()
	rows := make([][]any, 12)
	for i := range rows {
		rows[i] = []any{fmt.Sprintf("q%d", i), fmt.Sprintf("a%d", i)}
	}
	path := datasettest.WriteSubset(t, root, model.SubsetLighteval,
		[]datasettest.Column{datasettest.String("question"), datasettest.String("ground_truth_answer")}, rows)

	res, err := ExportBundle(path, DefaultBundleParams("b", "sys"), t.TempDir())
	require.NoError(t, err)

	lines := readLines(t, filepath.Join(res.Path, TranscriptFile("b")))
	require.Len(t, lines, 12)
	seen := map[string]bool{}
	prev := ""
	for i, line := range lines {
		var entry struct {
			ID    string `json:"id"`
			Truth string `json:"truth"`
		}
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		assert.False(t, seen[entry.ID], "duplicate id %s", entry.ID)
		seen[entry.ID] = true
		assert.Greater(t, entry.ID, prev)
		prev = entry.ID
		assert.Equal(t, fmt.Sprintf("a%d", i), entry.Truth)
	}
	assert.Equal(t, "b000011", prev)
}

func TestExportBundle_NonASCIIKeptVerbatim(t *testing.T) {
	root := t.TempDir()
	path := datasettest.WriteSubset(t, root, model.SubsetLighteval,
		[]datasettest.Column{datasettest.String("question"), datasettest.String("ground_truth_answer")},
		[][]any{{"Qu'est-ce que « café » ?", "Une boisson — chaude"}},
	)

	res, err := ExportBundle(path, DefaultBundleParams("fr", "Réponds."), t.TempDir())
	require.NoError(t, err)
	lines := readLines(t, filepath.Join(res.Path, TranscriptFile("fr")))
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], `"content": "Qu'est-ce que « café » ?"`)
	assert.Contains(t, lines[0], `"truth": "Une boisson — chaude"`)
}

func TestExportBundle_MissingSubset(t *testing.T) {
	out := t.TempDir()
	_, err := ExportBundle(filepath.Join(t.TempDir(), "lighteval"), DefaultBundleParams("demo", "p"), out)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSubsetMissing))
	assert.NoDirExists(t, filepath.Join(out, "demo"))
}

func TestExportBundle_LoadFailureLeavesNothing(t *testing.T) {
	root := t.TempDir()
	out := t.TempDir()
	path := datasettest.WriteQA(t, root, 2)

	exp := NewBundleExporter(WithLoader(func(string) (*model.Table, error) {
		return nil, eris.New("corrupt arrow")
	}))
	_, err := exp.Export(path, DefaultBundleParams("demo", "p"), out)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrSubsetMissing))
	assert.Contains(t, err.Error(), "corrupt arrow")

	entries, err := os.ReadDir(out)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestExportBundle_WriteFailureLeavesNothing(t *testing.T) {
	for _, failing := range []string{"demo.yaml", "metadata.yaml"} {
		t.Run(failing, func(t *testing.T) {
			root := t.TempDir()
			out := t.TempDir()
			path := datasettest.WriteQA(t, root, 2)

			var written []string
			exp := NewBundleExporter(WithFileWriter(func(p string, data []byte) error {
				if filepath.Base(p) == failing {
					return eris.New("disk full")
				}
				written = append(written, filepath.Base(p))
				return os.WriteFile(p, data, 0o644)
			}))
			_, err := exp.Export(path, DefaultBundleParams("demo", "p"), out)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "disk full")
			assert.NotContains(t, written, failing)

			assert.NoDirExists(t, filepath.Join(out, "demo"))
			entries, err := os.ReadDir(out)
			require.NoError(t, err)
			assert.Empty(t, entries, "no staging directory left behind")
		})
	}
}

func TestExportBundle_WriteFailureKeepsPreviousBundle(t *testing.T) {
	root := t.TempDir()
	out := t.TempDir()
	stale := filepath.Join(out, "demo")
	require.NoError(t, os.MkdirAll(stale, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(stale, "metadata.yaml"), []byte("old"), 0o644))

	exp := NewBundleExporter(WithFileWriter(func(string, []byte) error {
		return eris.New("disk full")
	}))
	_, err := exp.Export(datasettest.WriteQA(t, root, 1), DefaultBundleParams("demo", "p"), out)
	require.Error(t, err)

	data, err := os.ReadFile(filepath.Join(stale, "metadata.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "old", string(data))

	entries, err := os.ReadDir(out)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "demo", entries[0].Name())
}

func TestExportBundle_MissingRequiredColumn(t *testing.T) {
	root := t.TempDir()
	path := datasettest.WriteSubset(t, root, model.SubsetLighteval,
		[]datasettest.Column{datasettest.String("question")}, [][]any{{"q"}})

	_, err := ExportBundle(path, DefaultBundleParams("demo", "p"), t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ground_truth_answer")
}

func TestExportBundle_ReplacesPreviousBundle(t *testing.T) {
	root := t.TempDir()
	out := t.TempDir()
	stale := filepath.Join(out, "demo")
	require.NoError(t, os.MkdirAll(stale, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(stale, "leftover.txt"), []byte("old"), 0o644))

	res, err := ExportBundle(datasettest.WriteQA(t, root, 1), DefaultBundleParams("demo", "p"), out)
	require.NoError(t, err)
	assert.NoFileExists(t, filepath.Join(res.Path, "leftover.txt"))

	entries, err := os.ReadDir(out)
	require.NoError(t, err)
	require.Len(t, entries, 1, "no staging directory left behind")
	assert.Equal(t, "demo", entries[0].Name())
}

func TestExportBundle_EmptySubset(t *testing.T) {
	root := t.TempDir()
	path := datasettest.WriteSubset(t, root, model.SubsetLighteval,
		[]datasettest.Column{datasettest.String("question"), datasettest.String("ground_truth_answer")}, nil)

	res, err := ExportBundle(path, DefaultBundleParams("empty", "p"), t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, 0, res.PromptCount)
	assert.Empty(t, readLines(t, filepath.Join(res.Path, TranscriptFile("empty"))))
}

func TestExportBundle_InvalidName(t *testing.T) {
	for _, name := range []string{"", ".", "..", "a/b", `a\b`} {
		_, err := ExportBundle(t.TempDir(), DefaultBundleParams(name, "p"), t.TempDir())
		assert.Error(t, err, "name %q", name)
	}
}

func TestExportBundle_UsesDefaultLoader(t *testing.T) {
	exp := NewBundleExporter()
	table, err := exp.opts.load(datasettest.WriteQA(t, t.TempDir(), 2))
	require.NoError(t, err)
	assert.Equal(t, 2, table.Len())
	assert.Equal(t, model.Catalog(), exp.opts.catalog)
}
