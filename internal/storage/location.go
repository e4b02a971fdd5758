// Package storage moves run inputs and outputs between the work directory and
// object storage, local paths or remote servers.
package storage

import (
	"net/url"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// Supported location schemes.
const (
	SchemeS3    = "s3"
	SchemeFile  = "file"
	SchemeHTTP  = "http"
	SchemeHTTPS = "https"
	SchemeFTP   = "ftp"
)

// Location is a parsed storage URL.
type Location struct {
	Scheme string
	// Bucket is set for s3 locations.
	Bucket string
	// Key is the object key for s3 and the filesystem path for file.
	Key string
	URL string
}

func (l Location) String() string { return l.URL }

// ParseLocation parses s3://bucket/key, file:///path, http(s):// and ftp://
// URLs. A value without a scheme is treated as a local path.
func ParseLocation(raw string) (Location, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Location{}, eris.New("storage: empty location")
	}
	if !strings.Contains(raw, "://") {
		abs, err := filepath.Abs(raw)
		if err != nil {
			return Location{}, eris.Wrap(err, "storage: resolve local path")
		}
		return Location{Scheme: SchemeFile, Key: abs, URL: "file://" + filepath.ToSlash(abs)}, nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return Location{}, eris.Wrapf(err, "storage: parse location %q", raw)
	}
	switch scheme := strings.ToLower(u.Scheme); scheme {
	case SchemeS3:
		if u.Host == "" {
			return Location{}, eris.Errorf("storage: s3 location %q has no bucket", raw)
		}
		return Location{Scheme: SchemeS3, Bucket: u.Host, Key: strings.TrimPrefix(u.Path, "/"), URL: raw}, nil
	case SchemeFile:
		if u.Path == "" {
			return Location{}, eris.Errorf("storage: file location %q has no path", raw)
		}
		return Location{Scheme: SchemeFile, Key: filepath.FromSlash(u.Path), URL: raw}, nil
	case SchemeHTTP, SchemeHTTPS, SchemeFTP:
		return Location{Scheme: scheme, URL: raw}, nil
	default:
		return Location{}, eris.Errorf("storage: unsupported scheme %q", u.Scheme)
	}
}

// S3URL composes an s3:// URL from a bucket and key.
func S3URL(bucket, key string) string {
	return "s3://" + bucket + "/" + strings.TrimPrefix(key, "/")
}
