package telemetry

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/godilite/catsurvey/internal/repository/models"
	"github.com/godilite/catsurvey/internal/service"
)

type fakeLogStore struct {
	entries []models.TaskLogEntry
	err     error
}

func (f *fakeLogStore) AppendTaskLogs(_ context.Context, entries []models.TaskLogEntry) error {
	if f.err != nil {
		return f.err
	}
	f.entries = append(f.entries, entries...)
	return nil
}

func TestTask_Finish(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	store := &fakeLogStore{}

	rec := NewRecorder(store, metrics, zaptest.NewLogger(t))
	fixed := time.Date(2025, 10, 18, 3, 0, 0, 0, time.UTC)
	rec.now = func() time.Time { return fixed }

	task := rec.Start()
	require.NotEmpty(t, task.RunID())

	ctx := context.Background()
	task.AddVolume(3)
	task.Log(ctx, "Network: 3")
	task.Failure(ctx, service.Failure{Kind: service.ErrSurveyInsert, CategoryID: 1, TicketID: 9, Err: errors.New("disk I/O error")})

	report := service.RunReport{
		RunID:   task.RunID(),
		Created: 3,
		Categories: []service.CategoryReport{
			{CategoryID: 1, Created: 3},
			{CategoryID: 2},
		},
	}
	require.NoError(t, task.Finish(ctx, report, errors.New("partial")))

	assert.Equal(t, 3, task.Volume())
	require.Len(t, store.entries, 3)
	assert.Equal(t, "Network: 3", store.entries[0].Content)
	assert.Equal(t, "info", store.entries[0].Level)
	assert.Equal(t, "error", store.entries[1].Level)
	assert.Contains(t, store.entries[1].Content, "ticket 9")
	assert.Equal(t, "run failure", store.entries[2].Content)
	assert.Equal(t, 3, store.entries[2].Volume)
	for _, e := range store.entries {
		assert.Equal(t, task.RunID(), e.RunID)
		assert.Equal(t, TaskName, e.Task)
		assert.Equal(t, fixed, e.CreatedAt)
	}

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.runs.WithLabelValues("failure")))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.runs.WithLabelValues("success")))
	assert.Equal(t, 3.0, testutil.ToFloat64(metrics.surveysCreated.WithLabelValues("1")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.failures.WithLabelValues("survey_insert")))
	assert.Equal(t, float64(fixed.Unix()), testutil.ToFloat64(metrics.lastRun))

	expected := `
# HELP catsurvey_surveys_created_total Surveys created by category.
# TYPE catsurvey_surveys_created_total counter
catsurvey_surveys_created_total{category="1"} 3
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "catsurvey_surveys_created_total"))
}

func TestTask_FinishPersistFailure(t *testing.T) {
	store := &fakeLogStore{err: errors.New("readonly database")}
	task := NewRecorder(store, nil, nil).Start()

	err := task.Finish(context.Background(), service.RunReport{}, nil)
	assert.ErrorContains(t, err, "readonly database")
}

func TestTask_WithoutStore(t *testing.T) {
	task := NewRecorder(nil, NewMetrics(nil), nil).Start()
	task.Log(context.Background(), "Printers: 1")
	assert.NoError(t, task.Finish(context.Background(), service.RunReport{}, nil))
}

func TestTask_RunIDFlowsIntoSamplerReport(t *testing.T) {
	task := NewRecorder(nil, nil, nil).Start()
	var sink service.Telemetry = task

	ri, ok := sink.(service.RunIdentifier)
	require.True(t, ok)
	assert.Equal(t, task.RunID(), ri.RunID())
}

func TestFailureKind(t *testing.T) {
	assert.Equal(t, "config_read", FailureKind(service.ErrConfigRead))
	assert.Equal(t, "ticket_query", FailureKind(service.ErrTicketQuery))
	assert.Equal(t, "survey_insert", FailureKind(service.ErrSurveyInsert))
	assert.Equal(t, "watermark_persist", FailureKind(service.ErrWatermarkPersist))
	assert.Equal(t, "other", FailureKind(errors.New("boom")))
}
