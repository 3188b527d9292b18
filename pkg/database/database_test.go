package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptionsDSN(t *testing.T) {
	t.Run("sqlite gets a busy timeout", func(t *testing.T) {
		o := defaultOptions()
		o.DataSource = "./data/catsurvey.db"
		assert.Equal(t, "./data/catsurvey.db?_busy_timeout=5000", o.DSN())
	})

	t.Run("explicit params are kept", func(t *testing.T) {
		o := defaultOptions()
		o.DataSource = "file:test.db?cache=shared"
		WithParam("_busy_timeout", "100")(o)
		WithParam("_foreign_keys", "1")(o)
		assert.Equal(t, "file:test.db?cache=shared&_busy_timeout=100&_foreign_keys=1", o.DSN())
	})

	t.Run("other drivers are left alone", func(t *testing.T) {
		o := defaultOptions()
		o.Driver = "postgres"
		o.DataSource = "postgres://localhost/db"
		assert.Equal(t, "postgres://localhost/db", o.DSN())
	})
}

func TestNew(t *testing.T) {
	ctx := context.Background()

	t.Run("opens a file database", func(t *testing.T) {
		db, err := New(ctx,
			WithDriver("sqlite3"),
			WithDataSource(filepath.Join(t.TempDir(), "pool.db")),
			WithMaxOpenConns(2),
		)
		require.NoError(t, err)
		defer db.Close()

		assert.Equal(t, 2, db.Stats().MaxOpenConnections)
		_, err = db.Exec(`CREATE TABLE t (id INTEGER PRIMARY KEY)`)
		assert.NoError(t, err)
	})

	t.Run("empty driver", func(t *testing.T) {
		_, err := New(ctx, WithDriver(""))
		assert.ErrorContains(t, err, "driver cannot be empty")
	})

	t.Run("empty data source", func(t *testing.T) {
		_, err := New(ctx, WithDataSource(""))
		assert.ErrorContains(t, err, "data source cannot be empty")
	})

	t.Run("unknown driver fails after retries", func(t *testing.T) {
		_, err := New(ctx,
			WithDriver("nope"),
			WithRetry(2, time.Millisecond),
		)
		assert.ErrorContains(t, err, "after 2 attempts")
	})

	t.Run("canceled context stops retrying", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		_, err := New(cctx,
			WithDriver("nope"),
			WithRetry(3, time.Hour),
		)
		assert.ErrorIs(t, err, context.Canceled)
	})
}
