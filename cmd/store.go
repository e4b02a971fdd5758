package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/bench-export/internal/config"
	"github.com/sells-group/bench-export/internal/fetcher"
	"github.com/sells-group/bench-export/internal/resilience"
	"github.com/sells-group/bench-export/internal/storage"
	"github.com/sells-group/bench-export/internal/store"
)

// initStore opens the run ledger selected by cfg. Driver "none" yields a nil
// store and no error.
func initStore(ctx context.Context, c config.StoreConfig) (store.Store, error) {
	switch c.Driver {
	case "none", "":
		return nil, nil
	case "sqlite":
		dsn := c.SQLitePath
		if dsn == "" {
			dsn = "bench-export.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		if c.DatabaseURL == "" {
			return nil, eris.New("store: database_url is required for the postgres driver (BENCH_STORE_DATABASE_URL)")
		}
		return store.NewPostgres(ctx, c.DatabaseURL, &store.PoolConfig{
			MaxConns: c.MaxConns,
			MinConns: c.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", c.Driver)
	}
}

// openStore opens and migrates the ledger. The returned store may be nil.
func openStore(ctx context.Context, c config.StoreConfig) (store.Store, error) {
	st, err := initStore(ctx, c)
	if err != nil || st == nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

// retryConfig maps the configured retry knobs onto the defaults.
func retryConfig(c config.RetryConfig) resilience.RetryConfig {
	rc := resilience.DefaultRetryConfig()
	if c.MaxAttempts > 0 {
		rc.MaxAttempts = c.MaxAttempts
	}
	if c.InitialBackoffMs > 0 {
		rc.InitialBackoff = time.Duration(c.InitialBackoffMs) * time.Millisecond
	}
	return rc
}

// storageOptions builds the transfer router options from cfg.
func storageOptions(c config.StorageConfig) storage.Options {
	retry := retryConfig(c.Retry)
	return storage.Options{
		S3: storage.S3Config{
			Region:          c.S3.Region,
			Endpoint:        c.S3.Endpoint,
			AccessKeyID:     c.S3.AccessKeyID,
			SecretAccessKey: c.S3.SecretAccessKey,
			UsePathStyle:    c.S3.UsePathStyle,
		},
		HTTP: fetcher.HTTPOptions{
			UserAgent:   c.HTTP.UserAgent,
			Timeout:     time.Duration(c.HTTP.TimeoutSecs) * time.Second,
			MaxRetries:  retry.MaxAttempts,
			RatePerHost: rate.Limit(c.HTTP.RatePerHost),
			Retry:       retry,
		},
		FTP: fetcher.FTPOptions{
			Timeout: time.Duration(c.FTP.TimeoutSecs) * time.Second,
			Retry:   retry,
		},
		Retry: retry,
	}
}
