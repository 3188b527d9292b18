package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/godilite/catsurvey/internal/repository"
	"github.com/godilite/catsurvey/internal/repository/models"
)

const (
	MinDelayDays = -90
	MaxDelayDays = 90

	configCachePrefix = "catsurvey:category_config"
)

// ConfigCacheKey is the cache key of a category configuration served by the
// admin API. Writers of the configuration row drop it.
func ConfigCacheKey(categoryID int64) string {
	return fmt.Sprintf("%s:%d", configCachePrefix, categoryID)
}

// CategoryConfigService edits the per-category survey configuration.
type CategoryConfigService struct {
	store  ConfigAdminStore
	logger *zap.Logger
}

func NewCategoryConfigService(store ConfigAdminStore, logger *zap.Logger) *CategoryConfigService {
	if store == nil {
		panic("store must not be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CategoryConfigService{store: store, logger: logger.Named("config-admin")}
}

// GetConfig returns the configuration of a category, creating the default row on first access.
func (s *CategoryConfigService) GetConfig(ctx context.Context, categoryID int64) (models.CategoryConfig, error) {
	dbCtx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	created, err := s.store.EnsureConfig(dbCtx, categoryID)
	if err != nil {
		return models.CategoryConfig{}, mapStoreError(err)
	}
	if created {
		s.logger.Info("default survey config created", zap.Int64("category_id", categoryID))
	}

	cfg, err := s.store.GetConfig(dbCtx, categoryID)
	if err != nil {
		return models.CategoryConfig{}, mapStoreError(err)
	}
	return cfg, nil
}

func (s *CategoryConfigService) ListConfigs(ctx context.Context) ([]models.CategoryConfig, error) {
	dbCtx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	configs, err := s.store.ListConfigs(dbCtx)
	if err != nil {
		return nil, mapStoreError(err)
	}
	return configs, nil
}

// UpdateConfig applies a partial edit after validating the resulting configuration.
func (s *CategoryConfigService) UpdateConfig(ctx context.Context, upd ConfigUpdate) (models.CategoryConfig, error) {
	cfg, err := s.GetConfig(ctx, upd.CategoryID)
	if err != nil {
		return models.CategoryConfig{}, err
	}

	if upd.SurveyType != nil {
		cfg.SurveyType = *upd.SurveyType
	}
	if upd.SampleRate != nil {
		cfg.SampleRate = *upd.SampleRate
	}
	if upd.DelayDays != nil {
		cfg.DelayDays = *upd.DelayDays
	}
	withWatermark := upd.ClearWatermark || upd.Watermark != nil
	switch {
	case upd.ClearWatermark:
		cfg.Watermark = nil
	case upd.Watermark != nil:
		wm := upd.Watermark.UTC()
		cfg.Watermark = &wm
	}

	if err := ValidateConfig(cfg); err != nil {
		return models.CategoryConfig{}, err
	}

	dbCtx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	if err := s.store.SaveConfig(dbCtx, cfg, withWatermark); err != nil {
		return models.CategoryConfig{}, mapStoreError(err)
	}

	s.logger.Info("survey config updated",
		zap.Int64("category_id", cfg.CategoryID),
		zap.Int("sample_rate", cfg.SampleRate),
		zap.Int("delay_days", cfg.DelayDays),
		zap.Stringer("survey_type", cfg.SurveyType))
	return cfg, nil
}

// ValidateConfig checks the editable fields of a configuration.
func ValidateConfig(cfg models.CategoryConfig) error {
	if !cfg.SurveyType.Valid() {
		return fmt.Errorf("%w: unknown survey type %d", ErrInvalidConfig, cfg.SurveyType)
	}
	if cfg.SampleRate < 0 || cfg.SampleRate > ratePercentMax {
		return fmt.Errorf("%w: sample rate %d outside [0, %d]", ErrInvalidConfig, cfg.SampleRate, ratePercentMax)
	}
	if cfg.DelayDays < MinDelayDays || cfg.DelayDays > MaxDelayDays {
		return fmt.Errorf("%w: delay %d days outside [%d, %d]", ErrInvalidConfig, cfg.DelayDays, MinDelayDays, MaxDelayDays)
	}
	return nil
}

func mapStoreError(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%w: %v", ErrCategoryNotFound, err)
	}
	return fmt.Errorf("%w: %v", ErrStorageFailure, err)
}
