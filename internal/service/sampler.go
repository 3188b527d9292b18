package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/godilite/catsurvey/internal/repository/models"
)

const (
	storeTimeout    = 5 * time.Second
	defaultPageSize = 500
	ratePercentMax  = 100
)

type globalRand struct{}

func (globalRand) IntN(n int) int { return rand.IntN(n) }

type SamplerOption func(*SurveySampler)

// WithRandomizer replaces the auto-seeded generator, e.g. with a seeded PCG in tests.
func WithRandomizer(r Randomizer) SamplerOption {
	return func(s *SurveySampler) { s.rng = r }
}

func WithClock(now func() time.Time) SamplerOption {
	return func(s *SurveySampler) { s.now = now }
}

func WithPageSize(n int) SamplerOption {
	return func(s *SurveySampler) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

func WithTracer(t trace.Tracer) SamplerOption {
	return func(s *SurveySampler) { s.tracer = t }
}

// SurveySampler selects closed tickets for satisfaction surveys, category by category.
type SurveySampler struct {
	configs  ConfigStore
	tickets  TicketStore
	surveys  SurveyStore
	logger   *zap.Logger
	rng      Randomizer
	now      func() time.Time
	pageSize int
	tracer   trace.Tracer
}

// NewSurveySampler creates a sampler over the given stores.
func NewSurveySampler(configs ConfigStore, tickets TicketStore, surveys SurveyStore, logger *zap.Logger, opts ...SamplerOption) *SurveySampler {
	if configs == nil || tickets == nil || surveys == nil {
		panic("sampler stores must not be nil")
	}
	if logger == nil {
		l, _ := zap.NewProduction()
		logger = l
	}

	s := &SurveySampler{
		configs:  configs,
		tickets:  tickets,
		surveys:  surveys,
		logger:   logger.Named("sampler"),
		rng:      globalRand{},
		now:      func() time.Time { return time.Now().UTC() },
		pageSize: defaultPageSize,
		tracer:   otel.Tracer("github.com/godilite/catsurvey/internal/service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run performs one sampling pass over every active category. A config read
// failure aborts the run; per-category failures are joined into the returned
// error while the remaining categories are still processed.
func (s *SurveySampler) Run(ctx context.Context, sink Telemetry) (RunReport, error) {
	if sink == nil {
		sink = nopTelemetry{}
	}

	now := s.now()
	report := RunReport{RunID: runID(sink), StartedAt: now}

	ctx, span := s.tracer.Start(ctx, "SurveySampler.Run",
		trace.WithAttributes(attribute.String("catsurvey.run_id", report.RunID)))
	defer span.End()

	configs, err := s.listConfigs(ctx)
	if err != nil {
		err = s.fail(ctx, sink, Failure{Kind: ErrConfigRead, Err: err})
		return s.finish(span, report, err), err
	}

	var errs []error
	for _, cfg := range configs {
		if ctx.Err() != nil {
			break
		}

		cr, err := s.processCategory(ctx, cfg, now, sink)
		report.Categories = append(report.Categories, cr)
		report.Created += cr.Created
		if err != nil {
			errs = append(errs, err)
		}
	}

	err = errors.Join(errs...)
	if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
		err = errors.Join(err, ctxErr)
	}
	return s.finish(span, report, err), err
}

func (s *SurveySampler) finish(span trace.Span, report RunReport, err error) RunReport {
	report.FinishedAt = s.now()
	span.SetAttributes(attribute.Int("catsurvey.created", report.Created))
	if err != nil {
		report.Error = err.Error()
		span.RecordError(err)
		span.SetStatus(codes.Error, "survey run failed")
	}

	s.logger.Info("survey run finished",
		zap.String("run_id", report.RunID),
		zap.Int("categories", len(report.Categories)),
		zap.Int("created", report.Created),
		zap.Duration("duration", report.FinishedAt.Sub(report.StartedAt)),
		zap.Error(err))
	return report
}

func (s *SurveySampler) processCategory(ctx context.Context, cfg models.CategoryConfig, now time.Time, sink Telemetry) (CategoryReport, error) {
	cr := CategoryReport{
		CategoryID:   cfg.CategoryID,
		CategoryName: cfg.CategoryName,
		Watermark:    cfg.Watermark,
	}
	if cfg.SampleRate <= 0 {
		cr.Skipped = true
		return cr, nil
	}

	ctx, span := s.tracer.Start(ctx, "SurveySampler.processCategory",
		trace.WithAttributes(
			attribute.Int64("catsurvey.category_id", cfg.CategoryID),
			attribute.Int("catsurvey.sample_rate", cfg.SampleRate),
			attribute.Int("catsurvey.delay_days", cfg.DelayDays),
		))
	defer span.End()

	var (
		errs      []error
		watermark = cfg.Watermark
		advanced  bool
	)

	query := models.TicketQuery{
		CategoryID: cfg.CategoryID,
		Watermark:  cfg.Watermark,
		DueBy:      now.AddDate(0, 0, -cfg.DelayDays),
		Limit:      s.pageSize,
	}

scan:
	for {
		page, err := s.listTickets(ctx, query)
		if err != nil {
			errs = append(errs, s.fail(ctx, sink, Failure{Kind: ErrTicketQuery, CategoryID: cfg.CategoryID, Err: err}))
			break
		}

		for _, t := range page {
			if err := ctx.Err(); err != nil {
				errs = append(errs, err)
				break scan
			}
			// tickets arrive in close-time order, so the first one not yet due ends the category
			if t.CloseTime.AddDate(0, 0, cfg.DelayDays).After(now) {
				break scan
			}

			if s.rng.IntN(ratePercentMax)+1 <= cfg.SampleRate {
				created, err := s.createSurvey(ctx, models.SurveyRecord{
					TicketID:     t.TicketID,
					CategoryID:   cfg.CategoryID,
					SurveyType:   cfg.SurveyType,
					CreationTime: now,
				})
				switch {
				case err != nil && ctx.Err() != nil:
					// interrupted insert: the watermark stays before this ticket so the next run retries it
					errs = append(errs, ctx.Err())
					break scan
				case err != nil:
					cr.Failed++
					errs = append(errs, s.fail(ctx, sink, Failure{Kind: ErrSurveyInsert, CategoryID: cfg.CategoryID, TicketID: t.TicketID, Err: err}))
				case created:
					cr.Created++
				}
			}

			cr.Considered++
			if watermark == nil || t.CloseTime.After(*watermark) {
				closeTime := t.CloseTime
				watermark = &closeTime
				advanced = true
			}
		}

		if len(page) < query.Limit {
			break
		}
		query.After = &page[len(page)-1]
	}

	if advanced {
		// progress is kept even when the run was canceled mid-category
		persistCtx := context.WithoutCancel(ctx)
		if err := s.persistWatermark(persistCtx, cfg.CategoryID, *watermark); err != nil {
			errs = append(errs, s.fail(ctx, sink, Failure{Kind: ErrWatermarkPersist, CategoryID: cfg.CategoryID, Err: err}))
		} else {
			cr.Watermark = watermark
		}
	}

	if cr.Created > 0 {
		sink.AddVolume(cr.Created)
		sink.Log(ctx, fmt.Sprintf("%s: %d", categoryLabel(cfg), cr.Created))
	}

	span.SetAttributes(
		attribute.Int("catsurvey.considered", cr.Considered),
		attribute.Int("catsurvey.created", cr.Created),
	)

	err := errors.Join(errs...)
	if err != nil {
		cr.Error = err.Error()
		span.RecordError(err)
		span.SetStatus(codes.Error, "category failed")
	}
	return cr, err
}

func (s *SurveySampler) fail(ctx context.Context, sink Telemetry, f Failure) error {
	sink.Failure(ctx, f)
	s.logger.Error("survey run failure",
		zap.String("kind", f.Kind.Error()),
		zap.Int64("category_id", f.CategoryID),
		zap.Int64("ticket_id", f.TicketID),
		zap.Error(f.Err))
	return f
}

func (s *SurveySampler) listConfigs(ctx context.Context) ([]models.CategoryConfig, error) {
	dbCtx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()
	return s.configs.ListActiveConfigs(dbCtx)
}

func (s *SurveySampler) listTickets(ctx context.Context, q models.TicketQuery) ([]models.ClosedTicket, error) {
	dbCtx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()
	return s.tickets.ListEligibleTickets(dbCtx, q)
}

func (s *SurveySampler) createSurvey(ctx context.Context, rec models.SurveyRecord) (bool, error) {
	dbCtx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()
	return s.surveys.CreateSurvey(dbCtx, rec)
}

func (s *SurveySampler) persistWatermark(ctx context.Context, categoryID int64, watermark time.Time) error {
	dbCtx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()
	return s.configs.UpdateWatermark(dbCtx, categoryID, watermark)
}

func runID(sink Telemetry) string {
	if ri, ok := sink.(RunIdentifier); ok && ri.RunID() != "" {
		return ri.RunID()
	}
	return uuid.NewString()
}

func categoryLabel(cfg models.CategoryConfig) string {
	if cfg.CategoryName != "" {
		return cfg.CategoryName
	}
	return fmt.Sprintf("category %d", cfg.CategoryID)
}
