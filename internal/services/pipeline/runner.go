// -----------------------------------------------------------------------
// Pipeline Runner - fetch, normalize, score, select, enrich, build, dispatch
// -----------------------------------------------------------------------

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/alphapicks/internal/interfaces"
	"github.com/ternarybob/alphapicks/internal/models"
	"github.com/ternarybob/alphapicks/internal/services/markets"
	"github.com/ternarybob/alphapicks/internal/services/metrics"
	"github.com/ternarybob/alphapicks/internal/services/scoring"
)

var (
	// ErrFetch marks a run that stopped because markets could not be fetched
	ErrFetch = errors.New("market fetch failed")

	// ErrDispatch marks a run whose report was built but not delivered
	ErrDispatch = errors.New("report dispatch failed")
)

// Stage names used in logs and metrics
const (
	StageFetch    = "fetch"
	StageSelect   = "select"
	StageEnrich   = "enrich"
	StageBuild    = "build"
	StageDispatch = "dispatch"
)

const DefaultFetchTimeout = 30 * time.Second

// Config holds the per-run settings of a Runner
type Config struct {
	Recipient    string
	TopK         int
	FetchTimeout time.Duration
}

// Runner executes one pipeline run at a time. Stages run sequentially.
type Runner struct {
	config     Config
	source     interfaces.MarketSource
	enricher   interfaces.Enricher
	builder    interfaces.ReportBuilder
	dispatcher interfaces.ReportDispatcher
	metrics    *metrics.Recorder
	logger     arbor.ILogger
	now        func() time.Time
}

// NewRunner wires the pipeline stages. recorder may be nil.
func NewRunner(
	config Config,
	source interfaces.MarketSource,
	enricher interfaces.Enricher,
	builder interfaces.ReportBuilder,
	dispatcher interfaces.ReportDispatcher,
	recorder *metrics.Recorder,
	logger arbor.ILogger,
) *Runner {
	if config.TopK <= 0 {
		config.TopK = scoring.DefaultTopK
	}
	if config.FetchTimeout <= 0 {
		config.FetchTimeout = DefaultFetchTimeout
	}

	return &Runner{
		config:     config,
		source:     source,
		enricher:   enricher,
		builder:    builder,
		dispatcher: dispatcher,
		metrics:    recorder,
		logger:     logger,
		now:        time.Now,
	}
}

// Run executes a single pass. A fetch failure returns ErrFetch before any
// report exists; an undelivered report returns ErrDispatch. The result is
// non-nil in every case.
func (r *Runner) Run(ctx context.Context) (*models.RunResult, error) {
	result := &models.RunResult{
		RunID:          uuid.New().String(),
		StartedAt:      r.now(),
		ResearchCounts: make(map[models.ResearchStatus]int),
	}
	logger := r.logger.WithCorrelationId(result.RunID)

	logger.Info().
		Str("run_id", result.RunID).
		Int("top_k", r.config.TopK).
		Msg("Pipeline run started")

	// Fetch
	stageStart := r.now()
	fetchCtx, cancel := context.WithTimeout(ctx, r.config.FetchTimeout)
	raw, err := r.source.FetchMarkets(fetchCtx)
	cancel()
	r.metrics.ObserveStage(StageFetch, r.now().Sub(stageStart))
	if err != nil {
		logger.Error().Err(err).Str("stage", StageFetch).Msg("Pipeline run aborted: markets could not be fetched")
		r.finish(ctx, result, metrics.OutcomeFetchFailed)
		return result, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	result.MarketsFetched = len(raw)
	r.metrics.RecordMarketsFetched(len(raw))
	logger.Info().Str("stage", StageFetch).Int("markets", len(raw)).Msg("Markets fetched")

	// Normalize, score, select
	stageStart = r.now()
	selection := scoring.Select(markets.NormalizeAll(raw), r.config.TopK)
	r.metrics.ObserveStage(StageSelect, r.now().Sub(stageStart))
	r.metrics.RecordPicks(len(selection))
	logger.Info().Str("stage", StageSelect).Int("selected", len(selection)).Msg("Markets scored and selected")

	for i, sm := range selection {
		logger.Debug().
			Int("rank", i+1).
			Str("identifier", sm.Market.Identifier).
			Float64("price", sm.Market.Price).
			Float64("volume", sm.Market.Volume).
			Float64("score", sm.Score).
			Msg("Selected market")
	}

	// Enrich
	stageStart = r.now()
	result.Picks = r.enricher.EnrichAll(ctx, selection)
	r.metrics.ObserveStage(StageEnrich, r.now().Sub(stageStart))
	for _, pick := range result.Picks {
		result.ResearchCounts[pick.Research.Status]++
		r.metrics.RecordResearch(pick.Research.Status)
	}
	logger.Info().
		Str("stage", StageEnrich).
		Int("success", result.ResearchCounts[models.ResearchStatusSuccess]).
		Int("rate_limited", result.ResearchCounts[models.ResearchStatusRateLimited]).
		Int("unavailable", result.ResearchCounts[models.ResearchStatusUnavailable]).
		Msg("Picks enriched")

	// Build
	stageStart = r.now()
	report := r.builder.Build(result.Picks)
	result.Report = &report
	r.metrics.ObserveStage(StageBuild, r.now().Sub(stageStart))
	logger.Debug().Str("stage", StageBuild).Int("text_len", len(report.Text)).Msg("Report built")

	// Dispatch
	stageStart = r.now()
	dispatch := r.dispatcher.Dispatch(ctx, report, r.config.Recipient)
	result.Dispatch = &dispatch
	r.metrics.ObserveStage(StageDispatch, r.now().Sub(stageStart))
	if !dispatch.Delivered {
		logger.Error().
			Str("stage", StageDispatch).
			Str("channel", dispatch.Channel).
			Str("reason", dispatch.Reason).
			Msg("Pipeline run failed: report not delivered")
		r.finish(ctx, result, metrics.OutcomeDispatchFailed)
		return result, fmt.Errorf("%w via %s: %s", ErrDispatch, dispatch.Channel, dispatch.Reason)
	}

	r.finish(ctx, result, metrics.OutcomeSuccess)
	logger.Info().
		Str("channel", dispatch.Channel).
		Str("message_id", dispatch.MessageID).
		Dur("duration", result.Duration).
		Msg("Pipeline run completed")

	return result, nil
}

// finish stamps the duration, records the outcome and pushes metrics.
// A push failure is logged only.
func (r *Runner) finish(ctx context.Context, result *models.RunResult, outcome string) {
	finishedAt := r.now()
	result.Duration = finishedAt.Sub(result.StartedAt)
	r.metrics.RecordRun(outcome, finishedAt)

	if err := r.metrics.Push(ctx); err != nil {
		r.logger.Warn().Err(err).Str("run_id", result.RunID).Msg("Failed to push run metrics")
	}
}
