package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/godilite/catsurvey/internal/repository/models"
	"github.com/godilite/catsurvey/internal/service"
	"github.com/godilite/catsurvey/internal/telemetry"
	"github.com/godilite/catsurvey/pkg/cache"
)

type fakeSampler struct {
	report  service.RunReport
	err     error
	block   chan struct{}
	started chan struct{}
	runIDs  []string
}

func (f *fakeSampler) Run(ctx context.Context, sink service.Telemetry) (service.RunReport, error) {
	if ri, ok := sink.(service.RunIdentifier); ok {
		f.runIDs = append(f.runIDs, ri.RunID())
	}
	if f.started != nil {
		close(f.started)
	}
	if f.block != nil {
		<-f.block
	}
	sink.AddVolume(f.report.Created)
	return f.report, f.err
}

type fakeRunCache struct {
	mu      sync.Mutex
	sets    map[string]any
	deleted []string
}

func (f *fakeRunCache) Delete(_ context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, keys...)
	return nil
}

func (f *fakeRunCache) Set(_ context.Context, key string, value any, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sets == nil {
		f.sets = map[string]any{}
	}
	f.sets[key] = value
	return nil
}

type fakeLogStore struct {
	entries []models.TaskLogEntry
	err     error
}

func (f *fakeLogStore) AppendTaskLogs(_ context.Context, e []models.TaskLogEntry) error {
	if f.err != nil {
		return f.err
	}
	f.entries = append(f.entries, e...)
	return nil
}

func TestRunner_RunOnce(t *testing.T) {
	sampler := &fakeSampler{report: service.RunReport{Created: 4}}
	reports := &fakeRunCache{}
	logs := &fakeLogStore{}

	var locked, unlocked int
	locker := LockerFunc(func(ctx context.Context) (func(context.Context) error, error) {
		locked++
		return func(context.Context) error { unlocked++; return nil }, nil
	})

	logger := zaptest.NewLogger(t)
	r := NewRunner(sampler, telemetry.NewRecorder(logs, nil, logger), logger,
		WithLocker(locker), WithRunCache(reports))

	report, err := r.RunOnce(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 4, report.Created)
	assert.Equal(t, 1, locked)
	assert.Equal(t, 1, unlocked)
	assert.Equal(t, report, reports.sets[LastRunKey])
	require.Len(t, sampler.runIDs, 1)
	require.NotEmpty(t, logs.entries)
	assert.Equal(t, sampler.runIDs[0], logs.entries[0].RunID)
}

func TestRunner_RunFailureStillRecorded(t *testing.T) {
	runErr := errors.Join(service.Failure{Kind: service.ErrTicketQuery, CategoryID: 1, Err: errors.New("boom")})
	sampler := &fakeSampler{report: service.RunReport{Error: runErr.Error()}, err: runErr}
	reports := &fakeRunCache{}

	r := NewRunner(sampler, nil, nil, WithRunCache(reports))
	_, err := r.RunOnce(context.Background())

	assert.ErrorIs(t, err, service.ErrTicketQuery)
	assert.Contains(t, reports.sets, LastRunKey)
}

func TestRunner_LockHeldElsewhere(t *testing.T) {
	sampler := &fakeSampler{}
	locker := LockerFunc(func(ctx context.Context) (func(context.Context) error, error) {
		return nil, cache.ErrLockHeld
	})

	r := NewRunner(sampler, nil, nil, WithLocker(locker))
	_, err := r.RunOnce(context.Background())

	assert.ErrorIs(t, err, service.ErrRunInProgress)
	assert.Empty(t, sampler.runIDs)
}

func TestRunner_LockFailure(t *testing.T) {
	locker := LockerFunc(func(ctx context.Context) (func(context.Context) error, error) {
		return nil, errors.New("dial tcp: connection refused")
	})

	r := NewRunner(&fakeSampler{}, nil, nil, WithLocker(locker))
	_, err := r.RunOnce(context.Background())

	assert.ErrorContains(t, err, "acquire run lock")
	assert.NotErrorIs(t, err, service.ErrRunInProgress)
}

func TestRunner_RejectsOverlappingRuns(t *testing.T) {
	sampler := &fakeSampler{block: make(chan struct{}), started: make(chan struct{})}
	r := NewRunner(sampler, nil, nil)

	done := make(chan error, 1)
	go func() {
		_, err := r.RunOnce(context.Background())
		done <- err
	}()
	<-sampler.started

	_, err := r.RunOnce(context.Background())
	assert.ErrorIs(t, err, service.ErrRunInProgress)

	close(sampler.block)
	assert.NoError(t, <-done)
}

func TestRunner_InvalidatesMovedCategoryConfigs(t *testing.T) {
	sampler := &fakeSampler{report: service.RunReport{Categories: []service.CategoryReport{
		{CategoryID: 1, Considered: 3, Created: 1},
		{CategoryID: 2, Skipped: true},
		{CategoryID: 3},
		{CategoryID: 4, Considered: 1},
	}}}
	runCache := &fakeRunCache{}

	r := NewRunner(sampler, nil, zaptest.NewLogger(t), WithRunCache(runCache))
	_, err := r.RunOnce(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{service.ConfigCacheKey(1), service.ConfigCacheKey(4)}, runCache.deleted)
}

func TestRunner_TaskLogFailureIsReported(t *testing.T) {
	sampler := &fakeSampler{report: service.RunReport{RunID: "run-1", Created: 2}}
	runCache := &fakeRunCache{}
	logs := &fakeLogStore{err: errors.New("database is locked")}

	logger := zaptest.NewLogger(t)
	r := NewRunner(sampler, telemetry.NewRecorder(logs, nil, logger), logger, WithRunCache(runCache))
	report, err := r.RunOnce(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, report.Created)
	assert.Contains(t, report.TaskLogError, "database is locked")

	cached, ok := runCache.sets[LastRunKey].(service.RunReport)
	require.True(t, ok)
	assert.Equal(t, report.TaskLogError, cached.TaskLogError)
}

func TestKeepAlive(t *testing.T) {
	t.Run("extends until stopped", func(t *testing.T) {
		var calls atomic.Int32
		stop := keepAlive(5*time.Millisecond, func(context.Context) error {
			calls.Add(1)
			return nil
		}, zaptest.NewLogger(t))

		assert.Eventually(t, func() bool { return calls.Load() >= 3 }, time.Second, time.Millisecond)
		stop()
		stop()

		n := calls.Load()
		time.Sleep(20 * time.Millisecond)
		assert.Equal(t, n, calls.Load())
	})

	t.Run("transient errors keep trying", func(t *testing.T) {
		var calls atomic.Int32
		stop := keepAlive(5*time.Millisecond, func(context.Context) error {
			calls.Add(1)
			return errors.New("i/o timeout")
		}, zaptest.NewLogger(t))
		defer stop()

		assert.Eventually(t, func() bool { return calls.Load() >= 2 }, time.Second, time.Millisecond)
	})

	t.Run("gives up once the lock is lost", func(t *testing.T) {
		var calls atomic.Int32
		stop := keepAlive(5*time.Millisecond, func(context.Context) error {
			calls.Add(1)
			return cache.ErrLockLost
		}, zaptest.NewLogger(t))
		defer stop()

		assert.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)
		time.Sleep(30 * time.Millisecond)
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("non-positive interval is a no-op", func(t *testing.T) {
		stop := keepAlive(0, func(context.Context) error {
			t.Fatal("extend must not be called")
			return nil
		}, zap.NewNop())
		stop()
	})
}
