package grpc

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/godilite/catsurvey/internal/repository/models"
	"github.com/godilite/catsurvey/internal/scheduler"
	"github.com/godilite/catsurvey/internal/service"
)

const (
	defaultCacheDuration = 5 * time.Minute
	defaultGRPCTimeout   = 10 * time.Second

	runNowKey = "run-now"
)

type AdminHandlers struct {
	runs     RunService
	configs  ConfigService
	cache    Cacher
	logger   *zap.Logger
	sfGroup  singleflight.Group
	cacheTTL time.Duration
}

var _ SurveyAdminServer = (*AdminHandlers)(nil)

// NewAdminHandlers initializes the admin handlers. cache may be nil.
func NewAdminHandlers(runs RunService, configs ConfigService, cache Cacher, logger *zap.Logger, ttl time.Duration) *AdminHandlers {
	if runs == nil || configs == nil {
		panic("nil service provided to NewAdminHandlers")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = defaultCacheDuration
	}
	return &AdminHandlers{
		runs:     runs,
		configs:  configs,
		cache:    cache,
		logger:   logger.Named("grpc-handler"),
		cacheTTL: ttl,
	}
}

func configKey(categoryID int64) string {
	return service.ConfigCacheKey(categoryID)
}

func (s *AdminHandlers) handleError(ctx context.Context, op string, err error) error {
	switch ctx.Err() {
	case context.Canceled:
		s.logger.Warn("request canceled", zap.String("op", op))
		return status.Error(codes.Canceled, "request canceled")
	case context.DeadlineExceeded:
		s.logger.Warn("request timeout", zap.String("op", op))
		return status.Error(codes.DeadlineExceeded, "request timed out")
	}

	switch {
	case errors.Is(err, service.ErrCategoryNotFound):
		s.logger.Info("category not found", zap.String("op", op))
		return status.Error(codes.NotFound, "category not found")
	case errors.Is(err, service.ErrInvalidConfig):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, service.ErrRunInProgress):
		s.logger.Info("run already in progress", zap.String("op", op))
		return status.Error(codes.Aborted, "a survey run is already in progress")
	case errors.Is(err, service.ErrStorageFailure), errors.Is(err, service.ErrConfigRead):
		s.logger.Error("storage failure", zap.String("op", op), zap.Error(err))
		return status.Error(codes.Internal, "database error")
	default:
		s.logger.Error("unexpected error", zap.String("op", op), zap.Error(err))
		return status.Errorf(codes.Internal, "%s failed: %v", op, err)
	}
}

// RunNow triggers a run. Concurrent callers share the same run; per-category
// failures are reported in the returned report rather than as an RPC error.
func (s *AdminHandlers) RunNow(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	v, err, _ := s.sfGroup.Do(runNowKey, func() (any, error) {
		report, err := s.runs.RunOnce(context.WithoutCancel(ctx))
		if err != nil && (errors.Is(err, service.ErrRunInProgress) || errors.Is(err, service.ErrConfigRead) || report.RunID == "") {
			return nil, err
		}
		return report, nil
	})
	if err != nil {
		return nil, s.handleError(ctx, "RunNow", err)
	}

	out, err := toStruct(v.(service.RunReport))
	if err != nil {
		return nil, s.handleError(ctx, "RunNow", err)
	}
	return out, nil
}

func (s *AdminHandlers) GetLastRun(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	if s.cache == nil {
		return nil, status.Error(codes.Unavailable, "run history requires redis")
	}

	ctx, cancel := context.WithTimeout(ctx, defaultGRPCTimeout)
	defer cancel()

	var report service.RunReport
	if err := s.cache.Get(ctx, scheduler.LastRunKey, &report); err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, status.Error(codes.NotFound, "no run recorded yet")
		}
		return nil, s.handleError(ctx, "GetLastRun", err)
	}

	out, err := toStruct(report)
	if err != nil {
		return nil, s.handleError(ctx, "GetLastRun", err)
	}
	return out, nil
}

func (s *AdminHandlers) GetCategoryConfig(ctx context.Context, req *wrapperspb.Int64Value) (*structpb.Struct, error) {
	categoryID := req.GetValue()
	if categoryID <= 0 {
		return nil, status.Error(codes.InvalidArgument, "category id must be positive")
	}

	ctx, cancel := context.WithTimeout(ctx, defaultGRPCTimeout)
	defer cancel()

	cfg, err := FindAndCache(ctx, s.cache, &s.sfGroup, configKey(categoryID), s.cacheTTL, s.logger, func(fetchCtx context.Context) (models.CategoryConfig, error) {
		return s.configs.GetConfig(fetchCtx, categoryID)
	})
	if err != nil {
		return nil, s.handleError(ctx, "GetCategoryConfig", err)
	}

	out, err := toStruct(cfg)
	if err != nil {
		return nil, s.handleError(ctx, "GetCategoryConfig", err)
	}
	return out, nil
}

func (s *AdminHandlers) ListCategoryConfigs(ctx context.Context, _ *emptypb.Empty) (*structpb.ListValue, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultGRPCTimeout)
	defer cancel()

	configs, err := s.configs.ListConfigs(ctx)
	if err != nil {
		return nil, s.handleError(ctx, "ListCategoryConfigs", err)
	}

	out, err := toList(configs)
	if err != nil {
		return nil, s.handleError(ctx, "ListCategoryConfigs", err)
	}
	return out, nil
}

func (s *AdminHandlers) UpdateCategoryConfig(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	upd, err := parseConfigUpdate(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	ctx, cancel := context.WithTimeout(ctx, defaultGRPCTimeout)
	defer cancel()

	cfg, err := s.configs.UpdateConfig(ctx, upd)
	if err != nil {
		return nil, s.handleError(ctx, "UpdateCategoryConfig", err)
	}
	invalidate(ctx, s.cache, s.logger, configKey(upd.CategoryID))

	out, err := toStruct(cfg)
	if err != nil {
		return nil, s.handleError(ctx, "UpdateCategoryConfig", err)
	}
	return out, nil
}
