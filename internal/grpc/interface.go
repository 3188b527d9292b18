package grpc

import (
	"context"
	"time"

	"github.com/godilite/catsurvey/internal/repository/models"
	"github.com/godilite/catsurvey/internal/service"
)

// Cacher defines the interface for cache operations.
type Cacher interface {
	Get(ctx context.Context, key string, dest any) error
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// RunService triggers survey runs.
type RunService interface {
	RunOnce(ctx context.Context) (service.RunReport, error)
}

// ConfigService edits category survey configurations.
type ConfigService interface {
	GetConfig(ctx context.Context, categoryID int64) (models.CategoryConfig, error)
	ListConfigs(ctx context.Context) ([]models.CategoryConfig, error)
	UpdateConfig(ctx context.Context, upd service.ConfigUpdate) (models.CategoryConfig, error)
}
