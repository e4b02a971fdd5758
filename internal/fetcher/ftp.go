package fetcher

import (
	"context"
	"net"
	"net/url"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/bench-export/internal/resilience"
)

// FTPOptions configures the FTP fetcher.
type FTPOptions struct {
	Timeout time.Duration
	Retry   resilience.RetryConfig
}

// FTPFetcher downloads files over FTP. Credentials come from the URL's
// userinfo and default to anonymous.
type FTPFetcher struct {
	opts FTPOptions
}

// NewFTPFetcher creates an FTPFetcher.
func NewFTPFetcher(opts FTPOptions) *FTPFetcher {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Retry.OnRetry == nil {
		opts.Retry.OnRetry = resilience.RetryLogger("ftp", "download")
	}
	return &FTPFetcher{opts: opts}
}

type ftpTarget struct {
	host     string
	path     string
	user     string
	password string
}

func parseFTPURL(rawURL string) (ftpTarget, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ftpTarget{}, eris.Wrap(err, "fetcher: parse ftp url")
	}
	if u.Scheme != "ftp" {
		return ftpTarget{}, eris.Errorf("fetcher: expected ftp scheme, got %q", u.Scheme)
	}
	if u.Path == "" || u.Path == "/" {
		return ftpTarget{}, eris.New("fetcher: empty path in ftp url")
	}

	t := ftpTarget{host: u.Host, path: u.Path, user: "anonymous", password: "anonymous@"}
	if _, _, err := net.SplitHostPort(t.host); err != nil {
		t.host = net.JoinHostPort(t.host, "21")
	}
	if u.User != nil {
		t.user = u.User.Username()
		t.password, _ = u.User.Password()
	}
	return t, nil
}

// DownloadToFile retrieves rawURL into path.
func (f *FTPFetcher) DownloadToFile(ctx context.Context, rawURL, path string) (int64, error) {
	target, err := parseFTPURL(rawURL)
	if err != nil {
		return 0, err
	}

	n, err := resilience.DoVal(ctx, f.opts.Retry, func(ctx context.Context) (int64, error) {
		return f.retrieve(ctx, target, path)
	})
	if err != nil {
		return 0, eris.Wrapf(err, "fetcher: ftp download %s%s", target.host, target.path)
	}
	zap.L().Info("fetcher: downloaded",
		zap.String("host", target.host),
		zap.String("remote_path", target.path),
		zap.String("path", path),
		zap.Int64("bytes", n),
	)
	return n, nil
}

func (f *FTPFetcher) retrieve(ctx context.Context, t ftpTarget, path string) (int64, error) {
	conn, err := ftp.Dial(t.host, ftp.DialWithTimeout(f.opts.Timeout), ftp.DialWithContext(ctx))
	if err != nil {
		return 0, eris.Wrap(err, "fetcher: ftp dial")
	}
	defer conn.Quit() //nolint:errcheck

	if err := conn.Login(t.user, t.password); err != nil {
		return 0, eris.Wrap(err, "fetcher: ftp login")
	}
	resp, err := conn.Retr(t.path)
	if err != nil {
		return 0, eris.Wrap(err, "fetcher: ftp retrieve")
	}
	defer resp.Close() //nolint:errcheck

	return writeFile(path, resp)
}
