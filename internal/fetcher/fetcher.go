// Package fetcher retrieves input archives over HTTP(S) and FTP and unpacks them.
package fetcher

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
)

// Fetcher downloads a remote file.
type Fetcher interface {
	// DownloadToFile fetches rawURL into path and returns the bytes written.
	DownloadToFile(ctx context.Context, rawURL, path string) (int64, error)
}

// writeFile copies r into path, creating parent directories. A partially
// written file is removed on error.
func writeFile(path string, r io.Reader) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, eris.Wrap(err, "fetcher: create parent dir")
	}
	f, err := os.Create(path)
	if err != nil {
		return 0, eris.Wrap(err, "fetcher: create file")
	}

	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return n, eris.Wrap(err, "fetcher: write file")
	}
	return n, nil
}
