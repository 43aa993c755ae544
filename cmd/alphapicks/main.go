package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/alphapicks/internal/app"
	"github.com/ternarybob/alphapicks/internal/common"
	"github.com/ternarybob/alphapicks/internal/services/pipeline"
)

// Exit codes
const (
	exitOK             = 0
	exitConfig         = 1
	exitFetchFailed    = 2
	exitDispatchFailed = 3
)

// configPaths is a custom flag type that allows multiple -config flags
type configPaths []string

func (c *configPaths) String() string {
	return fmt.Sprintf("%v", *c)
}

func (c *configPaths) Set(value string) error {
	*c = append(*c, value)
	return nil
}

var (
	configFiles  configPaths
	runOnce      = flag.Bool("once", false, "Run the pipeline once and exit (ignores schedule)")
	showVersion  = flag.Bool("version", false, "Print version information")
	showVersionV = flag.Bool("v", false, "Print version information (shorthand)")
)

func init() {
	flag.Var(&configFiles, "config", "Configuration file path (can be specified multiple times, later files override earlier ones)")
	flag.Var(&configFiles, "c", "Configuration file path (shorthand)")
}

func main() {
	flag.Parse()

	if *showVersion || *showVersionV {
		fmt.Printf("AlphaPicks version %s\n", common.GetFullVersion())
		os.Exit(exitOK)
	}

	// Startup sequence:
	// 1. Load config (defaults -> file1 -> file2 -> ... -> env)
	// 2. Initialize logger
	// 3. Print banner
	if len(configFiles) == 0 {
		if _, err := os.Stat("alphapicks.toml"); err == nil {
			configFiles = append(configFiles, "alphapicks.toml")
		}
	}

	config, err := common.LoadFromFiles(configFiles...)
	if err != nil {
		tempLogger := arbor.NewLogger()
		tempLogger.Error().Strs("paths", configFiles).Err(err).Msg("Failed to load configuration files")
		os.Exit(exitConfig)
	}

	// CLI overrides the schedule
	if *runOnce {
		config.Schedule.Enabled = false
	}

	logger := common.InitLogger(config)
	common.PrintBanner(common.GetVersion())

	logger.Info().
		Strs("config_files", configFiles).
		Str("environment", config.Environment).
		Str("research_provider", config.Research.Provider).
		Str("mail_channel", config.Mailer.Channel).
		Bool("schedule", config.Schedule.Enabled).
		Msg("Application configuration loaded")

	application, err := app.New(config, logger)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to initialize application")
		os.Exit(exitConfig)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !config.Schedule.Enabled {
		os.Exit(runSingle(ctx, application, logger))
	}

	if err := application.StartScheduler(); err != nil {
		logger.Error().Err(err).Msg("Failed to start scheduler")
		os.Exit(exitConfig)
	}

	logger.Info().Str("schedule", config.Schedule.Cron).Msg("Waiting for scheduled runs - Press Ctrl+C to stop")
	<-ctx.Done()

	logger.Info().Msg("Interrupt signal received, shutting down")
	if err := application.Close(); err != nil {
		logger.Error().Err(err).Msg("Shutdown failed")
	}
	logger.Info().Msg("Stopped")
}

// runSingle executes one run and maps the outcome to an exit code
func runSingle(ctx context.Context, application *app.App, logger arbor.ILogger) int {
	result, err := application.RunOnce(ctx)
	switch {
	case err == nil:
		logger.Info().
			Str("run_id", result.RunID).
			Int("picks", len(result.Picks)).
			Dur("duration", result.Duration).
			Msg("Run succeeded")
		return exitOK
	case errors.Is(err, pipeline.ErrFetch):
		logger.Error().Err(err).Msg("Run failed: no report produced")
		return exitFetchFailed
	case errors.Is(err, pipeline.ErrDispatch):
		logger.Error().Err(err).Msg("Run failed: report not delivered")
		return exitDispatchFailed
	default:
		logger.Error().Err(err).Msg("Run failed")
		return exitConfig
	}
}
