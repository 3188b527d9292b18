package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/godilite/catsurvey/internal/repository/models"
)

type CategoryConfigRepository struct {
	db *sql.DB
}

func NewCategoryConfigRepository(db *sql.DB) *CategoryConfigRepository {
	return &CategoryConfigRepository{db: db}
}

const selectConfigs = `
	SELECT
		c.category_id,
		COALESCE(cat.name, ''),
		c.survey_type,
		c.sample_rate,
		c.delay_days,
		c.max_close_time
	FROM catsurvey_configs AS c
	LEFT JOIN itil_categories AS cat ON cat.id = c.category_id
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConfig(row rowScanner) (models.CategoryConfig, error) {
	var (
		cfg       models.CategoryConfig
		watermark sql.NullString
	)
	if err := row.Scan(&cfg.CategoryID, &cfg.CategoryName, &cfg.SurveyType, &cfg.SampleRate, &cfg.DelayDays, &watermark); err != nil {
		return models.CategoryConfig{}, err
	}

	wm, err := parseNullTime(watermark)
	if err != nil {
		return models.CategoryConfig{}, err
	}
	cfg.Watermark = wm
	return cfg, nil
}

func (r *CategoryConfigRepository) queryConfigs(ctx context.Context, op, query string, args ...any) ([]models.CategoryConfig, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", op, err)
	}
	defer rows.Close()

	var configs []models.CategoryConfig
	for rows.Next() {
		cfg, err := scanConfig(rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s row: %w", op, err)
		}
		configs = append(configs, cfg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", op, err)
	}
	return configs, nil
}

// ListActiveConfigs returns every configuration with a positive sample rate, ordered by category.
func (r *CategoryConfigRepository) ListActiveConfigs(ctx context.Context) ([]models.CategoryConfig, error) {
	return r.queryConfigs(ctx, "ListActiveConfigs",
		selectConfigs+` WHERE c.sample_rate > 0 ORDER BY c.category_id`)
}

func (r *CategoryConfigRepository) ListConfigs(ctx context.Context) ([]models.CategoryConfig, error) {
	return r.queryConfigs(ctx, "ListConfigs", selectConfigs+` ORDER BY c.category_id`)
}

func (r *CategoryConfigRepository) GetConfig(ctx context.Context, categoryID int64) (models.CategoryConfig, error) {
	row := r.db.QueryRowContext(ctx, selectConfigs+` WHERE c.category_id = ?`, categoryID)

	cfg, err := scanConfig(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.CategoryConfig{}, fmt.Errorf("category %d config: %w", categoryID, ErrNotFound)
	}
	if err != nil {
		return models.CategoryConfig{}, fmt.Errorf("query GetConfig: %w", err)
	}
	return cfg, nil
}

// EnsureConfig inserts the default configuration row for an existing category.
// It reports whether a row was created; an unknown category yields ErrNotFound.
func (r *CategoryConfigRepository) EnsureConfig(ctx context.Context, categoryID int64) (bool, error) {
	const query = `
		INSERT OR IGNORE INTO catsurvey_configs (category_id)
		SELECT id FROM itil_categories WHERE id = ?
	`

	res, err := r.db.ExecContext(ctx, query, categoryID)
	if err != nil {
		return false, fmt.Errorf("exec EnsureConfig: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected EnsureConfig: %w", err)
	}
	if n > 0 {
		return true, nil
	}

	var exists int
	err = r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM catsurvey_configs WHERE category_id = ?`, categoryID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("query EnsureConfig: %w", err)
	}
	if exists == 0 {
		return false, fmt.Errorf("category %d: %w", categoryID, ErrNotFound)
	}
	return false, nil
}

// SaveConfig overwrites the editable fields of an existing configuration row.
// The stored watermark is only written when withWatermark is set, so an edit of
// the rate or delay never rolls back progress saved by a concurrent run.
func (r *CategoryConfigRepository) SaveConfig(ctx context.Context, cfg models.CategoryConfig, withWatermark bool) error {
	const query = `
		UPDATE catsurvey_configs
		SET survey_type = ?, sample_rate = ?, delay_days = ?,
			max_close_time = CASE WHEN ? THEN ? ELSE max_close_time END
		WHERE category_id = ?
	`

	res, err := r.db.ExecContext(ctx, query, cfg.SurveyType, cfg.SampleRate, cfg.DelayDays, withWatermark, nullTime(cfg.Watermark), cfg.CategoryID)
	if err != nil {
		return fmt.Errorf("exec SaveConfig: %w", err)
	}
	return expectOneRow(res, "SaveConfig", cfg.CategoryID)
}

func (r *CategoryConfigRepository) UpdateWatermark(ctx context.Context, categoryID int64, watermark time.Time) error {
	const query = `UPDATE catsurvey_configs SET max_close_time = ? WHERE category_id = ?`

	res, err := r.db.ExecContext(ctx, query, formatTime(watermark), categoryID)
	if err != nil {
		return fmt.Errorf("exec UpdateWatermark: %w", err)
	}
	return expectOneRow(res, "UpdateWatermark", categoryID)
}

func expectOneRow(res sql.Result, op string, categoryID int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected %s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s category %d: %w", op, categoryID, ErrNotFound)
	}
	return nil
}
