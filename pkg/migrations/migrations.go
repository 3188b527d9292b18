package migrations

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

//go:embed sql/*.sql
var embedded embed.FS

// Migrator applies the embedded schema to a database.
type Migrator struct {
	provider *goose.Provider
	logger   *zap.Logger
}

// New creates a Migrator for the given sqlite database.
func New(db *sql.DB, logger *zap.Logger) (*Migrator, error) {
	if db == nil {
		return nil, fmt.Errorf("migrations: db is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	fsys, err := fs.Sub(embedded, "sql")
	if err != nil {
		return nil, fmt.Errorf("migrations: open embedded scripts: %w", err)
	}

	provider, err := goose.NewProvider(goose.DialectSQLite3, db, fsys)
	if err != nil {
		return nil, fmt.Errorf("migrations: create provider: %w", err)
	}

	return &Migrator{provider: provider, logger: logger.Named("migrations")}, nil
}

// Up applies all pending migrations and returns the resulting version.
func (m *Migrator) Up(ctx context.Context) (int64, error) {
	results, err := m.provider.Up(ctx)
	if err != nil {
		return 0, fmt.Errorf("migrations: up: %w", err)
	}
	for _, r := range results {
		m.logger.Info("migration applied",
			zap.Int64("version", r.Source.Version),
			zap.String("path", r.Source.Path),
			zap.Duration("duration", r.Duration))
	}
	return m.Version(ctx)
}

// Down rolls back the given number of migrations.
func (m *Migrator) Down(ctx context.Context, steps int) (int64, error) {
	for i := 0; i < steps; i++ {
		r, err := m.provider.Down(ctx)
		if errors.Is(err, goose.ErrNoNextVersion) {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("migrations: down: %w", err)
		}
		m.logger.Info("migration rolled back",
			zap.Int64("version", r.Source.Version),
			zap.String("path", r.Source.Path))
	}
	return m.Version(ctx)
}

// Reset rolls back every applied migration.
func (m *Migrator) Reset(ctx context.Context) error {
	if _, err := m.provider.DownTo(ctx, 0); err != nil {
		return fmt.Errorf("migrations: reset: %w", err)
	}
	return nil
}

func (m *Migrator) Version(ctx context.Context) (int64, error) {
	v, err := m.provider.GetDBVersion(ctx)
	if err != nil {
		return 0, fmt.Errorf("migrations: read version: %w", err)
	}
	return v, nil
}

// Status describes one migration script and whether it has been applied.
type Status struct {
	Version int64
	Path    string
	Applied bool
}

func (m *Migrator) Status(ctx context.Context) ([]Status, error) {
	statuses, err := m.provider.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("migrations: status: %w", err)
	}

	out := make([]Status, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, Status{
			Version: s.Source.Version,
			Path:    s.Source.Path,
			Applied: s.State == goose.StateApplied,
		})
	}
	return out, nil
}
