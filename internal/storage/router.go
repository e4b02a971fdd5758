package storage

import (
	"context"
	"sync"

	"github.com/rotisserie/eris"

	"github.com/sells-group/bench-export/internal/fetcher"
	"github.com/sells-group/bench-export/internal/resilience"
)

// Backend moves files for one storage scheme.
type Backend interface {
	Download(ctx context.Context, loc Location, dest string) (int64, error)
	UploadDir(ctx context.Context, dir string, loc Location) ([]string, error)
}

// Options configures a Router.
type Options struct {
	S3    S3Config
	HTTP  fetcher.HTTPOptions
	FTP   fetcher.FTPOptions
	Retry resilience.RetryConfig
}

// Router dispatches transfers to a backend by location scheme. The S3 client
// is built on first use.
type Router struct {
	opts    Options
	local   Backend
	fetches map[string]fetcher.Fetcher

	s3Once sync.Once
	s3     Backend
	s3Err  error
}

// NewRouter creates a Router.
func NewRouter(opts Options) *Router {
	httpFetcher := fetcher.NewHTTPFetcher(opts.HTTP)
	return &Router{
		opts:  opts,
		local: LocalStore{},
		fetches: map[string]fetcher.Fetcher{
			SchemeHTTP:  httpFetcher,
			SchemeHTTPS: httpFetcher,
			SchemeFTP:   fetcher.NewFTPFetcher(opts.FTP),
		},
	}
}

// WithS3 sets the backend used for s3 locations.
func (r *Router) WithS3(b Backend) *Router {
	r.s3Once.Do(func() {})
	r.s3 = b
	return r
}

func (r *Router) s3Backend(ctx context.Context) (Backend, error) {
	r.s3Once.Do(func() {
		client, err := NewS3Client(ctx, r.opts.S3)
		if err != nil {
			r.s3Err = err
			return
		}
		r.s3 = NewS3Store(client, r.opts.Retry)
	})
	return r.s3, r.s3Err
}

// Download fetches the file at rawURL to dest.
func (r *Router) Download(ctx context.Context, rawURL, dest string) (int64, error) {
	loc, err := ParseLocation(rawURL)
	if err != nil {
		return 0, err
	}
	switch loc.Scheme {
	case SchemeS3:
		b, err := r.s3Backend(ctx)
		if err != nil {
			return 0, err
		}
		return b.Download(ctx, loc, dest)
	case SchemeFile:
		return r.local.Download(ctx, loc, dest)
	default:
		f, ok := r.fetches[loc.Scheme]
		if !ok {
			return 0, eris.Errorf("storage: no downloader for scheme %q", loc.Scheme)
		}
		return f.DownloadToFile(ctx, loc.URL, dest)
	}
}

// UploadDir uploads the tree under dir to rawURL. Only s3 and file
// locations accept uploads.
func (r *Router) UploadDir(ctx context.Context, dir, rawURL string) ([]string, error) {
	loc, err := ParseLocation(rawURL)
	if err != nil {
		return nil, err
	}
	switch loc.Scheme {
	case SchemeS3:
		b, err := r.s3Backend(ctx)
		if err != nil {
			return nil, err
		}
		return b.UploadDir(ctx, dir, loc)
	case SchemeFile:
		return r.local.UploadDir(ctx, dir, loc)
	default:
		return nil, eris.Errorf("storage: uploads to %q locations are not supported", loc.Scheme)
	}
}
