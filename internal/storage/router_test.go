package storage

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouter_LocalRoundTrip(t *testing.T) {
	src := filepath.Join(t.TempDir(), "docs.zip")
	require.NoError(t, os.WriteFile(src, []byte("zip"), 0o644))

	r := NewRouter(Options{})
	dest := filepath.Join(t.TempDir(), "work", "input.zip")
	n, err := r.Download(context.Background(), "file://"+filepath.ToSlash(src), dest)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	outDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(outDir, "demo"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(outDir, "demo", "demo.yaml"), []byte("name: demo\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(outDir, "chunked.xlsx"), []byte("x"), 0o644))

	target := t.TempDir()
	uploaded, err := r.UploadDir(context.Background(), outDir, target)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(target, "chunked.xlsx"),
		filepath.Join(target, "demo", "demo.yaml"),
	}, uploaded)

	data, err := os.ReadFile(filepath.Join(target, "demo", "demo.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "name: demo\n", string(data))
}

func TestRouter_HTTPDownload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("remote"))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "input.zip")
	n, err := NewRouter(Options{}).Download(context.Background(), srv.URL+"/docs.zip", dest)
	require.NoError(t, err)
	assert.Equal(t, int64(6), n)
}

func TestRouter_S3UsesInjectedBackend(t *testing.T) {
	fake := newFakeS3()
	fake.objects["in/docs.zip"] = []byte("abc")
	r := NewRouter(Options{}).WithS3(NewS3Store(fake, fastRetry))

	dest := filepath.Join(t.TempDir(), "input.zip")
	_, err := r.Download(context.Background(), "s3://in/docs.zip", dest)
	require.NoError(t, err)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "lighteval.xlsx"), []byte("x"), 0o644))
	keys, err := r.UploadDir(context.Background(), dir, "s3://out/prefix")
	require.NoError(t, err)
	assert.Equal(t, []string{"prefix/lighteval.xlsx"}, keys)
}

func TestRouter_UploadUnsupportedScheme(t *testing.T) {
	_, err := NewRouter(Options{}).UploadDir(context.Background(), t.TempDir(), "https://example.com/out")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not supported")
}

func TestRouter_LocalDownloadMissing(t *testing.T) {
	_, err := NewRouter(Options{}).Download(context.Background(), filepath.Join(t.TempDir(), "absent.zip"), filepath.Join(t.TempDir(), "x"))
	require.Error(t, err)
}
