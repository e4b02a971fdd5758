package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// LocalStore serves file:// locations.
type LocalStore struct{}

// Download copies the file at loc to dest.
func (LocalStore) Download(_ context.Context, loc Location, dest string) (int64, error) {
	src, err := os.Open(loc.Key)
	if err != nil {
		return 0, eris.Wrapf(err, "storage: open %s", loc.Key)
	}
	defer src.Close() //nolint:errcheck

	n, err := writeFile(dest, src)
	if err != nil {
		return n, err
	}
	zap.L().Info("storage: copied input", zap.String("from", loc.Key), zap.String("path", dest), zap.Int64("bytes", n))
	return n, nil
}

// UploadDir copies the tree under dir into loc's directory and returns the
// destination paths.
func (LocalStore) UploadDir(_ context.Context, dir string, loc Location) ([]string, error) {
	files, err := listFiles(dir)
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, len(files))
	for _, rel := range files {
		src, err := os.Open(filepath.Join(dir, rel))
		if err != nil {
			return out, eris.Wrap(err, "storage: open upload file")
		}
		dest := filepath.Join(loc.Key, rel)
		_, err = writeFile(dest, src)
		_ = src.Close()
		if err != nil {
			return out, err
		}
		out = append(out, dest)
	}
	return out, nil
}

// listFiles returns the regular files under dir as sorted relative paths.
// Dot-prefixed entries, such as abandoned staging directories, are skipped.
func listFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p != dir && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		files = append(files, rel)
		return nil
	})
	if err != nil {
		return nil, eris.Wrapf(err, "storage: list %s", dir)
	}
	sort.Strings(files)
	return files, nil
}

// writeFile copies r to path, creating parents and removing a partial file on
// error.
func writeFile(path string, r io.Reader) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, eris.Wrap(err, "storage: create parent dir")
	}
	f, err := os.Create(path)
	if err != nil {
		return 0, eris.Wrap(err, "storage: create file")
	}
	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return n, eris.Wrap(err, "storage: write file")
	}
	return n, nil
}
