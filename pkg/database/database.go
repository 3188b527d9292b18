package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"time"
)

type Options struct {
	Driver          string
	DataSource      string
	Params          url.Values
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	RetryAttempts   int
	RetryDelay      time.Duration
	PingTimeout     time.Duration
}

type Option func(*Options)

func WithDriver(driver string) Option {
	return func(o *Options) { o.Driver = driver }
}

func WithDataSource(dsn string) Option {
	return func(o *Options) { o.DataSource = dsn }
}

// WithParam appends a driver query parameter to the data source, e.g. _busy_timeout for sqlite3.
func WithParam(key, value string) Option {
	return func(o *Options) { o.Params.Set(key, value) }
}

func WithMaxOpenConns(count int) Option {
	return func(o *Options) { o.MaxOpenConns = count }
}

func WithMaxIdleConns(count int) Option {
	return func(o *Options) { o.MaxIdleConns = count }
}

func WithConnMaxLifetime(duration time.Duration) Option {
	return func(o *Options) { o.ConnMaxLifetime = duration }
}

func WithConnMaxIdleTime(duration time.Duration) Option {
	return func(o *Options) { o.ConnMaxIdleTime = duration }
}

func WithRetry(attempts int, delay time.Duration) Option {
	return func(o *Options) {
		o.RetryAttempts = attempts
		o.RetryDelay = delay
	}
}

func WithPingTimeout(timeout time.Duration) Option {
	return func(o *Options) { o.PingTimeout = timeout }
}

func defaultOptions() *Options {
	return &Options{
		Driver:          "sqlite3",
		DataSource:      ":memory:",
		Params:          url.Values{},
		MaxOpenConns:    8,
		MaxIdleConns:    2,
		ConnMaxLifetime: 30 * time.Minute,
		ConnMaxIdleTime: 5 * time.Minute,
		RetryAttempts:   3,
		RetryDelay:      time.Second,
		PingTimeout:     5 * time.Second,
	}
}

// DSN returns the data source with the configured parameters appended.
func (o *Options) DSN() string {
	params := url.Values{}
	for k, v := range o.Params {
		params[k] = v
	}
	if o.Driver == "sqlite3" && params.Get("_busy_timeout") == "" {
		// sqlite writers otherwise fail immediately with SQLITE_BUSY
		params.Set("_busy_timeout", "5000")
	}
	if len(params) == 0 {
		return o.DataSource
	}

	sep := "?"
	if strings.Contains(o.DataSource, "?") {
		sep = "&"
	}
	return o.DataSource + sep + params.Encode()
}

// New opens a connection pool and pings it, retrying with linear backoff.
func New(ctx context.Context, opts ...Option) (*sql.DB, error) {
	options := defaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	if options.Driver == "" {
		return nil, fmt.Errorf("database driver cannot be empty")
	}
	if options.DataSource == "" {
		return nil, fmt.Errorf("database data source cannot be empty")
	}
	if options.RetryAttempts < 1 {
		options.RetryAttempts = 1
	}

	dsn := options.DSN()

	var lastErr error
	for attempt := 1; attempt <= options.RetryAttempts; attempt++ {
		db, err := open(ctx, options, dsn)
		if err == nil {
			return db, nil
		}
		lastErr = err

		if attempt == options.RetryAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("database connect canceled: %w", ctx.Err())
		case <-time.After(time.Duration(attempt) * options.RetryDelay):
		}
	}

	return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", options.RetryAttempts, lastErr)
}

func open(ctx context.Context, o *Options, dsn string) (*sql.DB, error) {
	db, err := sql.Open(o.Driver, dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(o.MaxOpenConns)
	db.SetMaxIdleConns(o.MaxIdleConns)
	db.SetConnMaxLifetime(o.ConnMaxLifetime)
	db.SetConnMaxIdleTime(o.ConnMaxIdleTime)

	pingCtx, cancel := context.WithTimeout(ctx, o.PingTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
