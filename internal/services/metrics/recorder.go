package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/alphapicks/internal/models"
)

// Run outcomes
const (
	OutcomeSuccess        = "success"
	OutcomeFetchFailed    = "fetch_failed"
	OutcomeDispatchFailed = "dispatch_failed"
)

const DefaultJob = "alphapicks"

// DefaultPushTimeout bounds a single Pushgateway request
const DefaultPushTimeout = 10 * time.Second

// Recorder collects per-run pipeline metrics on its own registry.
// A nil *Recorder is valid and records nothing.
type Recorder struct {
	registry       *prometheus.Registry
	runs           *prometheus.CounterVec
	marketsFetched prometheus.Gauge
	picksSelected  prometheus.Gauge
	research       *prometheus.CounterVec
	stageDuration  *prometheus.HistogramVec
	lastSuccess    prometheus.Gauge

	pushURL     string
	job         string
	pushTimeout time.Duration
	logger      arbor.ILogger
}

// New creates a recorder. pushURL may be empty to disable Pushgateway pushes.
// A non-positive pushTimeout falls back to DefaultPushTimeout.
func New(pushURL, job string, pushTimeout time.Duration, logger arbor.ILogger) *Recorder {
	if job == "" {
		job = DefaultJob
	}
	if pushTimeout <= 0 {
		pushTimeout = DefaultPushTimeout
	}

	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Recorder{
		registry: registry,
		runs: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "alphapicks_runs_total",
				Help: "Total number of pipeline runs by outcome",
			},
			[]string{"outcome"},
		),
		marketsFetched: factory.NewGauge(prometheus.GaugeOpts{
			Name: "alphapicks_markets_fetched",
			Help: "Markets returned by the source in the last run",
		}),
		picksSelected: factory.NewGauge(prometheus.GaugeOpts{
			Name: "alphapicks_picks_selected",
			Help: "Markets selected in the last run",
		}),
		research: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "alphapicks_research_total",
				Help: "Research summaries by outcome",
			},
			[]string{"status"},
		),
		stageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "alphapicks_stage_duration_seconds",
				Help:    "Duration of pipeline stages in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"stage"},
		),
		lastSuccess: factory.NewGauge(prometheus.GaugeOpts{
			Name: "alphapicks_last_success_timestamp_seconds",
			Help: "Unix time of the last successfully dispatched run",
		}),
		pushURL:     pushURL,
		job:         job,
		pushTimeout: pushTimeout,
		logger:      logger,
	}
}

// Registry exposes the underlying registry
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// RecordRun records the outcome of a finished run
func (r *Recorder) RecordRun(outcome string, finishedAt time.Time) {
	if r == nil {
		return
	}
	r.runs.WithLabelValues(outcome).Inc()
	if outcome == OutcomeSuccess {
		r.lastSuccess.Set(float64(finishedAt.Unix()))
	}
}

func (r *Recorder) RecordMarketsFetched(n int) {
	if r == nil {
		return
	}
	r.marketsFetched.Set(float64(n))
}

func (r *Recorder) RecordPicks(n int) {
	if r == nil {
		return
	}
	r.picksSelected.Set(float64(n))
}

func (r *Recorder) RecordResearch(status models.ResearchStatus) {
	if r == nil {
		return
	}
	r.research.WithLabelValues(string(status)).Inc()
}

// ObserveStage records how long a pipeline stage took
func (r *Recorder) ObserveStage(stage string, d time.Duration) {
	if r == nil {
		return
	}
	r.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// Push sends the registry to the configured Pushgateway, giving up after the
// push timeout. Returns nil without I/O when no gateway is configured.
func (r *Recorder) Push(ctx context.Context) error {
	if r == nil || r.pushURL == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, r.pushTimeout)
	defer cancel()

	pusher := push.New(r.pushURL, r.job).
		Client(&http.Client{Timeout: r.pushTimeout}).
		Gatherer(r.registry)
	if err := pusher.PushContext(ctx); err != nil {
		return fmt.Errorf("failed to push metrics to %s: %w", r.pushURL, err)
	}

	r.logger.Debug().Str("url", r.pushURL).Str("job", r.job).Msg("Metrics pushed")
	return nil
}
