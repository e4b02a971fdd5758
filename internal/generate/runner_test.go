package generate

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func observeLogs(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.InfoLevel)
	restore := zap.ReplaceGlobals(zap.New(core))
	t.Cleanup(restore)
	return logs
}

func TestRunnerGenerate_PassesConfigAndStreamsOutput(t *testing.T) {
	requireShell(t)
	logs := observeLogs(t)

	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("a: 1\n"), 0o644))

	script := `test "$1" = run && test "$2" = --config && cp "$3" "$3.seen" && echo "ingesting documents" && echo "warming up" >&2`
	r := &Runner{Command: "sh", Args: []string{"-c", script, "yourbench", "run"}}
	require.NoError(t, r.Generate(context.Background(), configPath))

	assert.FileExists(t, configPath+".seen")
	lines := logs.FilterMessage("generate: output").All()
	require.Len(t, lines, 2)
	var got []string
	for _, e := range lines {
		got = append(got, e.ContextMap()["stream"].(string)+": "+e.ContextMap()["line"].(string))
	}
	assert.ElementsMatch(t, []string{"stdout: ingesting documents", "stderr: warming up"}, got)
}

func TestRunnerGenerate_NonZeroExit(t *testing.T) {
	requireShell(t)
	observeLogs(t)

	r := &Runner{Command: "sh", Args: []string{"-c", `echo "model quota exceeded" >&2; exit 3`, "yourbench"}}
	err := r.Generate(context.Background(), "/nonexistent/config.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model quota exceeded")
	assert.Contains(t, err.Error(), "exit status 3")
}

func TestRunnerGenerate_MissingBinary(t *testing.T) {
	observeLogs(t)
	r := NewRunner("definitely-not-a-generator-binary", nil)
	err := r.Generate(context.Background(), "config.yaml")
	require.Error(t, err)
}

func TestNewRunnerDefaults(t *testing.T) {
	r := NewRunner("", nil)
	assert.Equal(t, "yourbench", r.Command)
	assert.Equal(t, []string{"run"}, r.Args)

	r = NewRunner("python", []string{"-m", "yourbench", "run"})
	assert.Equal(t, "python", r.Command)
	assert.Equal(t, []string{"-m", "yourbench", "run"}, r.Args)
}

func TestLineLogger_TailAndPartialLines(t *testing.T) {
	logs := observeLogs(t)
	l := newLineLogger(zap.L(), "stderr", 2)

	_, _ = l.Write([]byte("one\ntw"))
	_, _ = l.Write([]byte("o\r\nthree\n\nfour"))
	l.Flush()

	assert.Equal(t, "three\nfour", l.Tail())
	assert.Equal(t, 4, logs.FilterMessage("generate: output").Len())
}
