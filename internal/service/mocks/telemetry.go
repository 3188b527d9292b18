package mocks

import (
	"context"
	"sync"

	"github.com/godilite/catsurvey/internal/service"
)

// RecordingTelemetry captures everything a sampling run reports.
type RecordingTelemetry struct {
	mu       sync.Mutex
	Volume   int
	Lines    []string
	Failures []service.Failure
}

func (r *RecordingTelemetry) AddVolume(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Volume += n
}

func (r *RecordingTelemetry) Log(_ context.Context, line string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Lines = append(r.Lines, line)
}

func (r *RecordingTelemetry) Failure(_ context.Context, f service.Failure) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Failures = append(r.Failures, f)
}
