package telemetry

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/godilite/catsurvey/internal/repository/models"
	"github.com/godilite/catsurvey/internal/service"
)

// TaskName is the cron task the sampler runs under.
const TaskName = "createinquestbycat"

const persistTimeout = 5 * time.Second

// TaskLogStore persists the log lines of a task run.
type TaskLogStore interface {
	AppendTaskLogs(ctx context.Context, entries []models.TaskLogEntry) error
}

// Recorder starts task runs that report to zap, prometheus and the task log table.
type Recorder struct {
	store   TaskLogStore
	metrics *Metrics
	logger  *zap.Logger
	now     func() time.Time
}

// NewRecorder builds a recorder. store and metrics are optional.
func NewRecorder(store TaskLogStore, metrics *Metrics, logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{
		store:   store,
		metrics: metrics,
		logger:  logger.Named("task"),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Start opens a task run under a fresh run id. The returned Task implements service.Telemetry.
func (r *Recorder) Start() *Task {
	runID := uuid.NewString()
	return &Task{
		rec:     r,
		runID:   runID,
		started: r.now(),
		logger:  r.logger.With(zap.String("run_id", runID), zap.String("task", TaskName)),
	}
}

// Task collects the volume, log lines and failures of one run.
type Task struct {
	rec     *Recorder
	runID   string
	started time.Time
	logger  *zap.Logger

	mu      sync.Mutex
	volume  int
	entries []models.TaskLogEntry
}

var _ service.Telemetry = (*Task)(nil)

func (t *Task) RunID() string { return t.runID }

func (t *Task) AddVolume(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.volume += n
}

func (t *Task) Volume() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.volume
}

// Log records a "<category>: <count>" style line.
func (t *Task) Log(_ context.Context, line string) {
	t.logger.Info(line)
	t.append("info", 0, line)
}

func (t *Task) Failure(_ context.Context, f service.Failure) {
	kind := FailureKind(f.Kind)
	t.logger.Error("task failure", zap.String("kind", kind), zap.Error(f))
	if t.rec.metrics != nil {
		t.rec.metrics.failures.WithLabelValues(kind).Inc()
	}
	t.append("error", 0, f.Error())
}

// Finish records the run outcome and persists the buffered lines.
func (t *Task) Finish(ctx context.Context, report service.RunReport, runErr error) error {
	finished := t.rec.now()
	result := "success"
	if runErr != nil {
		result = "failure"
	}

	if m := t.rec.metrics; m != nil {
		m.runs.WithLabelValues(result).Inc()
		m.runDuration.Observe(finished.Sub(t.started).Seconds())
		m.lastRun.Set(float64(finished.Unix()))
		for _, c := range report.Categories {
			if c.Created > 0 {
				m.surveysCreated.WithLabelValues(strconv.FormatInt(c.CategoryID, 10)).Add(float64(c.Created))
			}
		}
	}

	t.append("info", t.Volume(), "run "+result)

	t.mu.Lock()
	entries := append([]models.TaskLogEntry(nil), t.entries...)
	t.mu.Unlock()

	t.logger.Info("task finished",
		zap.Int("volume", t.Volume()),
		zap.Duration("duration", finished.Sub(t.started)),
		zap.String("result", result))

	if t.rec.store == nil {
		return nil
	}
	dbCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()
	if err := t.rec.store.AppendTaskLogs(dbCtx, entries); err != nil {
		t.logger.Error("failed to persist task log", zap.Error(err))
		return err
	}
	return nil
}

func (t *Task) append(level string, volume int, content string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = append(t.entries, models.TaskLogEntry{
		RunID:     t.runID,
		Task:      TaskName,
		Level:     level,
		Volume:    volume,
		Content:   content,
		CreatedAt: t.rec.now(),
	})
}

// FailureKind maps a failure sentinel to a metric label.
func FailureKind(kind error) string {
	switch {
	case errors.Is(kind, service.ErrConfigRead):
		return "config_read"
	case errors.Is(kind, service.ErrTicketQuery):
		return "ticket_query"
	case errors.Is(kind, service.ErrSurveyInsert):
		return "survey_insert"
	case errors.Is(kind, service.ErrWatermarkPersist):
		return "watermark_persist"
	default:
		return "other"
	}
}
