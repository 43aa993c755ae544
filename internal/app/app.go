package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/alphapicks/internal/common"
	"github.com/ternarybob/alphapicks/internal/kalshi"
	"github.com/ternarybob/alphapicks/internal/models"
	"github.com/ternarybob/alphapicks/internal/services/mailer"
	"github.com/ternarybob/alphapicks/internal/services/metrics"
	"github.com/ternarybob/alphapicks/internal/services/pipeline"
	"github.com/ternarybob/alphapicks/internal/services/report"
	"github.com/ternarybob/alphapicks/internal/services/research"
	"github.com/ternarybob/alphapicks/internal/services/scheduler"
)

// App holds all application components and dependencies
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	MarketSource *kalshi.Client
	Research     *research.Service
	Builder      *report.Builder
	Dispatcher   *mailer.Dispatcher
	Metrics      *metrics.Recorder
	Runner       *pipeline.Runner
	Scheduler    *scheduler.Service
}

// New initializes every component from the explicit configuration.
// No component reads the process environment after this point.
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	app := &App{
		Config: cfg,
		Logger: logger,
	}

	httpClient := &http.Client{}

	// Market source
	app.MarketSource = kalshi.NewClient(cfg.Kalshi.APIKey,
		kalshi.WithBaseURL(cfg.Kalshi.BaseURL),
		kalshi.WithTimeout(common.ParseDuration(cfg.Kalshi.Timeout, kalshi.DefaultTimeout)),
		kalshi.WithLogger(logger),
		kalshi.WithRateLimit(cfg.Kalshi.RateLimit),
		kalshi.WithStatus(cfg.Kalshi.Status),
		kalshi.WithPagination(cfg.Kalshi.PageLimit, cfg.Kalshi.MaxPages),
		kalshi.WithRetries(cfg.Kalshi.Retries),
	)

	// Research
	summarizer, err := research.NewSummarizer(context.Background(), &cfg.Research, httpClient, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize research provider: %w", err)
	}
	app.Research = research.NewService(
		summarizer,
		common.ParseDuration(cfg.Research.Timeout, research.DefaultTimeout),
		cfg.Research.MaxTokens,
		research.Temperature(&cfg.Research),
		logger,
	)

	// Report and delivery
	app.Builder = report.NewBuilder(cfg.Kalshi.MarketURLTemplate, logger)

	app.Dispatcher, err = mailer.NewDispatcherFromConfig(&cfg.Mailer, httpClient, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize mail channel: %w", err)
	}

	app.Metrics = metrics.New(
		cfg.Metrics.PushgatewayURL,
		cfg.Metrics.Job,
		common.ParseDuration(cfg.Metrics.Timeout, metrics.DefaultPushTimeout),
		logger,
	)

	app.Runner = pipeline.NewRunner(
		pipeline.Config{
			Recipient:    cfg.Mailer.Recipient,
			TopK:         cfg.Selection.TopK,
			FetchTimeout: common.ParseDuration(cfg.Kalshi.Timeout, pipeline.DefaultFetchTimeout),
		},
		app.MarketSource,
		app.Research,
		app.Builder,
		app.Dispatcher,
		app.Metrics,
		logger,
	)

	if cfg.Schedule.Enabled {
		app.Scheduler = scheduler.NewService(cfg.Schedule.Cron, func(ctx context.Context) error {
			_, err := app.Runner.Run(ctx)
			return err
		}, logger)
	}

	logger.Debug().
		Str("research_provider", cfg.Research.Provider).
		Bool("research_enabled", app.Research.Enabled()).
		Str("mail_channel", app.Dispatcher.Channel()).
		Int("top_k", cfg.Selection.TopK).
		Bool("schedule_enabled", cfg.Schedule.Enabled).
		Msg("Application initialized")

	return app, nil
}

// RunOnce executes a single pipeline run
func (a *App) RunOnce(ctx context.Context) (*models.RunResult, error) {
	return a.Runner.Run(ctx)
}

// StartScheduler starts the cron trigger. Requires schedule.enabled.
func (a *App) StartScheduler() error {
	if a.Scheduler == nil {
		return fmt.Errorf("schedule is not enabled")
	}
	return a.Scheduler.Start(a.Config.Schedule.RunOnStart)
}

// Close stops the scheduler, waiting for an in-flight run
func (a *App) Close() error {
	if a.Scheduler != nil {
		if err := a.Scheduler.Stop(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to stop scheduler")
			return err
		}
	}
	return nil
}
