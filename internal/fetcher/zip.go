package fetcher

import (
	"archive/zip"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// MaxExtractBytes caps the total uncompressed size ExtractZIP writes.
const MaxExtractBytes int64 = 8 << 30

// ExtractZIP unpacks the document archive at zipPath under destDir and returns
// the written file paths in archive order. Entries resolving outside destDir
// are rejected; macOS resource forks and .DS_Store files are skipped.
func ExtractZIP(zipPath, destDir string) ([]string, error) {
	return extractZIP(zipPath, destDir, MaxExtractBytes)
}

func extractZIP(zipPath, destDir string, limit int64) ([]string, error) {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, eris.Wrap(err, "zip: open archive")
	}
	defer r.Close() //nolint:errcheck

	root := filepath.Clean(destDir)
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, eris.Wrap(err, "zip: create destination")
	}

	var (
		files   []string
		written int64
		skipped int
	)
	for _, f := range r.File {
		if archiveMetadata(f.Name) {
			skipped++
			continue
		}
		target, err := entryTarget(root, f.Name)
		if err != nil {
			return files, err
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return files, eris.Wrap(err, "zip: create directory")
			}
			continue
		}

		n, err := extractEntry(f, target, limit-written)
		written += n
		if err != nil {
			return files, err
		}
		files = append(files, target)
	}

	zap.L().Info("zip: extracted archive",
		zap.String("archive", zipPath),
		zap.Int("files", len(files)),
		zap.Int("skipped", skipped),
		zap.Int64("bytes", written),
	)
	return files, nil
}

// entryTarget maps an archive name onto a path under root.
func entryTarget(root, name string) (string, error) {
	target := filepath.Join(root, filepath.FromSlash(name))
	if !strings.HasPrefix(target, root+string(os.PathSeparator)) {
		return "", eris.Errorf("zip: illegal path %q (zip slip attempt)", name)
	}
	return target, nil
}

func extractEntry(f *zip.File, target string, remaining int64) (int64, error) {
	rc, err := f.Open()
	if err != nil {
		return 0, eris.Wrapf(err, "zip: open entry %s", f.Name)
	}
	defer rc.Close() //nolint:errcheck

	n, err := writeFile(target, io.LimitReader(rc, remaining+1))
	if err != nil {
		return n, eris.Wrapf(err, "zip: extract %s", f.Name)
	}
	if n > remaining {
		_ = os.Remove(target)
		return n, eris.Errorf("zip: archive expands past %d bytes", remaining)
	}
	return n, nil
}

func archiveMetadata(name string) bool {
	if strings.HasPrefix(name, "__MACOSX/") {
		return true
	}
	return path.Base(name) == ".DS_Store"
}
