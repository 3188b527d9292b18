package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "catsurvey"

// Metrics are the prometheus collectors updated by survey runs.
type Metrics struct {
	runs           *prometheus.CounterVec
	surveysCreated *prometheus.CounterVec
	failures       *prometheus.CounterVec
	runDuration    prometheus.Histogram
	lastRun        prometheus.Gauge
}

// NewMetrics registers the run collectors with reg. A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		runs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Survey sampling runs by result.",
		}, []string{"result"}),
		surveysCreated: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "surveys_created_total",
			Help:      "Surveys created by category.",
		}, []string{"category"}),
		failures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "failures_total",
			Help:      "Run failures by kind.",
		}, []string{"kind"}),
		runDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of a survey sampling run.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
		}),
		lastRun: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last survey run finished.",
		}),
	}
}
