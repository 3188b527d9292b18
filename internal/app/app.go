package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/godilite/catsurvey/internal/config"
	handler "github.com/godilite/catsurvey/internal/grpc"
	"github.com/godilite/catsurvey/internal/repository"
	"github.com/godilite/catsurvey/internal/scheduler"
	"github.com/godilite/catsurvey/internal/service"
	"github.com/godilite/catsurvey/internal/telemetry"
	"github.com/godilite/catsurvey/pkg/cache"
	dbbuilder "github.com/godilite/catsurvey/pkg/database"
	grpcsrv "github.com/godilite/catsurvey/pkg/grpc/server"
	"github.com/godilite/catsurvey/pkg/migrations"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	cfg      *config.Config
	logger   *zap.Logger
	dbPool   *sql.DB
	cache    *cache.Cache
	registry *prometheus.Registry

	runner        *scheduler.Runner
	configService *service.CategoryConfigService
	tracing       telemetry.ShutdownFunc
}

// OpenDatabase opens the configured connection pool.
func OpenDatabase(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	db, err := dbbuilder.New(ctx,
		dbbuilder.WithDriver(cfg.DBDriver),
		dbbuilder.WithDataSource(cfg.DBPath),
	)
	if err != nil {
		return nil, fmt.Errorf("database init failed: %w", err)
	}
	return db, nil
}

var initTracing = telemetry.InitTracing

// New wires storage, redis, telemetry and the survey runner. Network
// listeners are only opened by Serve.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (_ *App, err error) {
	shutdownTracing, err := initTracing(telemetry.TracingConfig{
		Enabled:     cfg.TracingEnabled,
		Endpoint:    cfg.JaegerEndpoint,
		ServiceName: "catsurvey",
		Environment: cfg.AppEnv,
	})
	if err != nil {
		return nil, fmt.Errorf("tracing init failed: %w", err)
	}
	defer func() {
		if err == nil {
			return
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if shutdownErr := shutdownTracing(shutdownCtx); shutdownErr != nil {
			logger.Warn("tracing shutdown failed", zap.Error(shutdownErr))
		}
	}()

	dbPool, err := OpenDatabase(ctx, cfg)
	if err != nil {
		return nil, err
	}
	logger.Info("Database pool initialized", zap.String("path", cfg.DBPath))

	if cfg.MigrateOnStart {
		m, err := migrations.New(dbPool, logger)
		if err != nil {
			dbPool.Close()
			return nil, err
		}
		version, err := m.Up(ctx)
		if err != nil {
			dbPool.Close()
			return nil, err
		}
		logger.Info("Schema up to date", zap.Int64("version", version))
	}

	var cacheClient *cache.Cache
	if cfg.RedisAddr != "" {
		cacheClient, err = cache.New(ctx, cache.WithAddress(cfg.RedisAddr))
		if err != nil {
			dbPool.Close()
			return nil, fmt.Errorf("cache init failed: %w", err)
		}
		logger.Info("Cache client initialized", zap.String("addr", cfg.RedisAddr))
	} else {
		logger.Warn("Redis disabled, runs are only serialized within this process")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	configRepo := repository.NewCategoryConfigRepository(dbPool)
	ticketRepo := repository.NewTicketRepository(dbPool)
	surveyRepo := repository.NewSurveyRepository(dbPool)
	taskLogRepo := repository.NewTaskLogRepository(dbPool)

	sampler := service.NewSurveySampler(configRepo, ticketRepo, surveyRepo, logger,
		service.WithPageSize(cfg.PageSize))
	recorder := telemetry.NewRecorder(taskLogRepo, telemetry.NewMetrics(registry), logger)

	var runnerOpts []scheduler.RunnerOption
	if cacheClient != nil {
		runnerOpts = append(runnerOpts,
			scheduler.WithLocker(scheduler.RedisLocker(cacheClient, cfg.LockTTL, logger)),
			scheduler.WithRunCache(cacheClient))
	}

	return &App{
		cfg:           cfg,
		logger:        logger,
		dbPool:        dbPool,
		cache:         cacheClient,
		registry:      registry,
		runner:        scheduler.NewRunner(sampler, recorder, logger, runnerOpts...),
		configService: service.NewCategoryConfigService(configRepo, logger),
		tracing:       shutdownTracing,
	}, nil
}

// RunOnce performs a single survey run.
func (a *App) RunOnce(ctx context.Context) (service.RunReport, error) {
	return a.runner.RunOnce(ctx)
}

// Serve runs the scheduler, the admin gRPC server and the metrics endpoint
// until ctx is canceled.
func (a *App) Serve(ctx context.Context) error {
	a.logger.Info("application starting")

	var cacher handler.Cacher
	if a.cache != nil {
		cacher = a.cache
	}
	adminHandlers := handler.NewAdminHandlers(a.runner, a.configService, cacher, a.logger, a.cfg.ConfigCacheTTL)

	grpcServer, err := grpcsrv.New(
		grpcsrv.WithPort(a.cfg.GRPCPort),
		grpcsrv.WithLogger(a.logger),
		grpcsrv.WithReflection(a.cfg.GRPCReflectionEnabled),
		grpcsrv.WithLogging(true),
		grpcsrv.WithRecovery(true),
	)
	if err != nil {
		return fmt.Errorf("failed to create gRPC server: %w", err)
	}
	grpcServer.RegisterServiceWithHealth(handler.ServiceName, func(s *grpc.Server) {
		handler.RegisterSurveyAdminServer(s, adminHandlers)
	})

	sched := scheduler.New(a.runner, a.cfg.RunInterval, a.cfg.RunOnStart, a.logger)

	var metricsServer *http.Server
	if a.cfg.MetricsAddr != "" {
		metricsServer = &http.Server{
			Addr:              a.cfg.MetricsAddr,
			Handler:           telemetry.NewHandler(a.registry, a.healthChecks()),
			ReadHeaderTimeout: 5 * time.Second,
		}
	}

	grpcServer.Start()
	sched.Start(ctx)

	g, gctx := errgroup.WithContext(ctx)
	if metricsServer != nil {
		g.Go(func() error {
			a.logger.Info("metrics server starting", zap.String("addr", metricsServer.Addr))
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("application shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		sched.Stop()

		var errs []error
		if err := grpcServer.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("grpc shutdown: %w", err))
		}
		if metricsServer != nil {
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, fmt.Errorf("metrics shutdown: %w", err))
			}
		}
		return errors.Join(errs...)
	})

	return g.Wait()
}

func (a *App) healthChecks() map[string]telemetry.HealthCheck {
	checks := map[string]telemetry.HealthCheck{
		"database": a.dbPool.PingContext,
	}
	if a.cache != nil {
		checks["redis"] = a.cache.Ping
	}
	return checks
}

// Close releases redis, the database pool and the tracer provider.
func (a *App) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var errs []error
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			errs = append(errs, fmt.Errorf("cache shutdown: %w", err))
		}
	}
	if err := a.dbPool.Close(); err != nil {
		errs = append(errs, fmt.Errorf("database shutdown: %w", err))
	}
	if err := a.tracing(ctx); err != nil {
		errs = append(errs, fmt.Errorf("tracing shutdown: %w", err))
	}

	_ = a.logger.Sync()
	return errors.Join(errs...)
}
