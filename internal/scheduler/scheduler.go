package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/godilite/catsurvey/internal/service"
)

// Job is the unit of work the scheduler repeats.
type Job interface {
	RunOnce(ctx context.Context) (service.RunReport, error)
}

// Scheduler runs the survey job on a fixed interval.
type Scheduler struct {
	job        Job
	interval   time.Duration
	runOnStart bool
	logger     *zap.Logger
	stopChan   chan struct{}
	stopOnce   sync.Once
	wg         sync.WaitGroup
}

func New(job Job, interval time.Duration, runOnStart bool, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &Scheduler{
		job:        job,
		interval:   interval,
		runOnStart: runOnStart,
		logger:     logger.Named("scheduler"),
		stopChan:   make(chan struct{}),
	}
}

// Start launches the loop and returns immediately.
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("starting survey scheduler",
		zap.Duration("interval", s.interval),
		zap.Bool("run_on_start", s.runOnStart))

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop(ctx)
	}()
}

// Stop cancels an in-flight run and waits for the loop to exit. Safe to call more than once.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
		s.wg.Wait()
		s.logger.Info("survey scheduler stopped")
	})
}

func (s *Scheduler) loop(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-s.stopChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	if s.runOnStart {
		s.tick(ctx)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	start := time.Now()
	report, err := s.job.RunOnce(ctx)
	switch {
	case errors.Is(err, service.ErrRunInProgress):
		s.logger.Info("survey run skipped, another run is active")
	case err != nil:
		s.logger.Error("survey run failed",
			zap.String("run_id", report.RunID),
			zap.Int("created", report.Created),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err))
	case report.Created > 0:
		s.logger.Info("survey run completed",
			zap.String("run_id", report.RunID),
			zap.Int("created", report.Created),
			zap.Duration("duration", time.Since(start)))
	}
}
