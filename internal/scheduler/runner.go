package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/godilite/catsurvey/internal/service"
	"github.com/godilite/catsurvey/internal/telemetry"
	"github.com/godilite/catsurvey/pkg/cache"
)

const (
	LockKey    = "catsurvey:run_lock"
	LastRunKey = "catsurvey:last_run"

	cacheTimeout = 2 * time.Second
)

// Sampler performs one sampling pass.
type Sampler interface {
	Run(ctx context.Context, sink service.Telemetry) (service.RunReport, error)
}

// Locker guards a run across processes. Lock returns cache.ErrLockHeld when
// another process is running.
type Locker interface {
	Lock(ctx context.Context) (unlock func(context.Context) error, err error)
}

// LockerFunc adapts a function to Locker.
type LockerFunc func(ctx context.Context) (func(context.Context) error, error)

func (f LockerFunc) Lock(ctx context.Context) (func(context.Context) error, error) { return f(ctx) }

// RedisLocker locks LockKey in redis for ttl. The lock is extended every ttl/3
// while the run holds it, so a run longer than ttl keeps other processes out.
func RedisLocker(c *cache.Cache, ttl time.Duration, logger *zap.Logger) Locker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return LockerFunc(func(ctx context.Context) (func(context.Context) error, error) {
		lock, err := c.TryLock(ctx, LockKey, ttl)
		if err != nil {
			return nil, err
		}
		stop := keepAlive(ttl/3, func(ctx context.Context) error { return lock.Extend(ctx, ttl) }, logger)
		return func(ctx context.Context) error {
			stop()
			return lock.Release(ctx)
		}, nil
	})
}

// keepAlive calls extend every interval until stop is called or the lock is lost.
func keepAlive(interval time.Duration, extend func(context.Context) error, logger *zap.Logger) (stop func()) {
	if interval <= 0 {
		return func() {}
	}

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), cacheTimeout)
				err := extend(ctx)
				cancel()
				if err == nil {
					continue
				}
				if errors.Is(err, cache.ErrLockLost) {
					logger.Error("run lock lost", zap.Error(err))
					return
				}
				logger.Warn("failed to extend run lock", zap.Error(err))
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(done)
			wg.Wait()
		})
	}
}

// RunCache stores the last run report and drops cached category configs
// whose watermark a run has moved.
type RunCache interface {
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

type RunnerOption func(*Runner)

func WithLocker(l Locker) RunnerOption {
	return func(r *Runner) { r.locker = l }
}

func WithRunCache(c RunCache) RunnerOption {
	return func(r *Runner) { r.cache = c }
}

// Runner executes sampling runs one at a time and records their telemetry.
type Runner struct {
	sampler  Sampler
	recorder *telemetry.Recorder
	locker   Locker
	cache    RunCache
	logger   *zap.Logger
	running  atomic.Bool
}

func NewRunner(sampler Sampler, recorder *telemetry.Recorder, logger *zap.Logger, opts ...RunnerOption) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if recorder == nil {
		recorder = telemetry.NewRecorder(nil, nil, logger)
	}
	r := &Runner{
		sampler:  sampler,
		recorder: recorder,
		logger:   logger.Named("runner"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RunOnce performs a single run. It returns service.ErrRunInProgress when a
// run is already active in this or another process.
func (r *Runner) RunOnce(ctx context.Context) (service.RunReport, error) {
	if !r.running.CompareAndSwap(false, true) {
		return service.RunReport{}, service.ErrRunInProgress
	}
	defer r.running.Store(false)

	if r.locker != nil {
		unlock, err := r.locker.Lock(ctx)
		if errors.Is(err, cache.ErrLockHeld) {
			return service.RunReport{}, fmt.Errorf("%w: %v", service.ErrRunInProgress, err)
		}
		if err != nil {
			return service.RunReport{}, fmt.Errorf("acquire run lock: %w", err)
		}
		defer func() {
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				r.logger.Warn("failed to release run lock", zap.Error(err))
			}
		}()
	}

	task := r.recorder.Start()
	report, runErr := r.sampler.Run(ctx, task)
	if err := task.Finish(ctx, report, runErr); err != nil {
		r.logger.Warn("task log not saved", zap.String("run_id", report.RunID), zap.Error(err))
		report.TaskLogError = err.Error()
	}

	if r.cache != nil {
		r.updateCache(ctx, report)
	}

	return report, runErr
}

func (r *Runner) updateCache(ctx context.Context, report service.RunReport) {
	cacheCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cacheTimeout)
	defer cancel()

	if err := r.cache.Set(cacheCtx, LastRunKey, report, 0); err != nil {
		r.logger.Warn("failed to cache last run", zap.Error(err))
	}

	// a category with considered tickets had its watermark moved
	var stale []string
	for _, c := range report.Categories {
		if c.Considered > 0 {
			stale = append(stale, service.ConfigCacheKey(c.CategoryID))
		}
	}
	if len(stale) == 0 {
		return
	}
	if err := r.cache.Delete(cacheCtx, stale...); err != nil {
		r.logger.Warn("failed to invalidate category configs", zap.Strings("keys", stale), zap.Error(err))
	}
}
