package fetcher

import (
	"context"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/bench-export/internal/resilience"
)

// HTTPOptions configures the HTTP fetcher.
type HTTPOptions struct {
	UserAgent string
	// Timeout bounds a whole request including the body transfer.
	Timeout    time.Duration
	MaxRetries int
	// RatePerHost limits requests per second to any one host.
	RatePerHost rate.Limit
	Retry       resilience.RetryConfig
}

// HTTPFetcher downloads files over HTTP(S) with per-host rate limiting and
// retries on transient failures.
type HTTPFetcher struct {
	client *http.Client
	opts   HTTPOptions

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewHTTPFetcher creates an HTTPFetcher.
func NewHTTPFetcher(opts HTTPOptions) *HTTPFetcher {
	if opts.Timeout == 0 {
		opts.Timeout = 10 * time.Minute
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = 3
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "bench-export/1.0"
	}
	if opts.RatePerHost == 0 {
		opts.RatePerHost = 5
	}
	opts.Retry.MaxAttempts = opts.MaxRetries
	if opts.Retry.OnRetry == nil {
		opts.Retry.OnRetry = resilience.RetryLogger("http", "download")
	}
	return &HTTPFetcher{
		client:   &http.Client{Timeout: opts.Timeout},
		opts:     opts,
		limiters: make(map[string]*rate.Limiter),
	}
}

func (f *HTTPFetcher) limiterFor(host string) *rate.Limiter {
	f.mu.Lock()
	defer f.mu.Unlock()
	lim, ok := f.limiters[host]
	if !ok {
		lim = rate.NewLimiter(f.opts.RatePerHost, 1)
		f.limiters[host] = lim
	}
	return lim
}

// DownloadToFile fetches rawURL into path.
func (f *HTTPFetcher) DownloadToFile(ctx context.Context, rawURL, path string) (int64, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return 0, eris.Wrap(err, "fetcher: parse url")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return 0, eris.Errorf("fetcher: expected http(s) scheme, got %q", u.Scheme)
	}
	lim := f.limiterFor(u.Host)

	n, err := resilience.DoVal(ctx, f.opts.Retry, func(ctx context.Context) (int64, error) {
		if err := lim.Wait(ctx); err != nil {
			return 0, eris.Wrap(err, "fetcher: rate limiter wait")
		}
		return f.get(ctx, rawURL, path)
	})
	if err != nil {
		return 0, eris.Wrapf(err, "fetcher: download %s", rawURL)
	}
	zap.L().Info("fetcher: downloaded", zap.String("url", rawURL), zap.String("path", path), zap.Int64("bytes", n))
	return n, nil
}

func (f *HTTPFetcher) get(ctx context.Context, rawURL, path string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, eris.Wrap(err, "fetcher: create request")
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		statusErr := eris.Errorf("fetcher: unexpected status %d", resp.StatusCode)
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return 0, resilience.NewTransientError(statusErr, resp.StatusCode)
		}
		return 0, statusErr
	}
	return writeFile(path, resp.Body)
}
