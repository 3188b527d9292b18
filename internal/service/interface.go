package service

import (
	"context"
	"time"

	"github.com/godilite/catsurvey/internal/repository/models"
)

// ConfigStore reads survey configurations and advances their watermark.
type ConfigStore interface {
	ListActiveConfigs(ctx context.Context) ([]models.CategoryConfig, error)
	UpdateWatermark(ctx context.Context, categoryID int64, watermark time.Time) error
}

// TicketStore pages through closed tickets that have no survey yet.
type TicketStore interface {
	ListEligibleTickets(ctx context.Context, q models.TicketQuery) ([]models.ClosedTicket, error)
}

// SurveyStore creates surveys; a duplicate ticket returns false and no error.
type SurveyStore interface {
	CreateSurvey(ctx context.Context, rec models.SurveyRecord) (bool, error)
}

// ConfigAdminStore backs the category configuration editor. SaveConfig leaves
// the stored watermark untouched unless withWatermark is set.
type ConfigAdminStore interface {
	ListConfigs(ctx context.Context) ([]models.CategoryConfig, error)
	GetConfig(ctx context.Context, categoryID int64) (models.CategoryConfig, error)
	EnsureConfig(ctx context.Context, categoryID int64) (bool, error)
	SaveConfig(ctx context.Context, cfg models.CategoryConfig, withWatermark bool) error
}

// Randomizer draws uniform integers in [0, n). *rand.Rand from math/rand/v2 satisfies it.
type Randomizer interface {
	IntN(n int) int
}

// Telemetry receives the observable output of a sampling run.
type Telemetry interface {
	AddVolume(n int)
	Log(ctx context.Context, line string)
	Failure(ctx context.Context, f Failure)
}

// RunIdentifier is implemented by sinks that already carry a run id.
type RunIdentifier interface {
	RunID() string
}

type nopTelemetry struct{}

func (nopTelemetry) AddVolume(int)                    {}
func (nopTelemetry) Log(context.Context, string)      {}
func (nopTelemetry) Failure(context.Context, Failure) {}
