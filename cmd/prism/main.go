package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/prism/internal/app"
	"github.com/ternarybob/prism/internal/common"
	"github.com/ternarybob/prism/internal/models"
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
	daemon       = flag.Bool("daemon", false, "Run cycles on the configured cron schedule instead of once")
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
		fmt.Printf("Prism version %s\n", common.GetFullVersion())
		os.Exit(0)
	}

	defer func() {
		if r := recover(); r != nil {
			path := common.WriteCrashFile(r, common.GetStackTrace())
			fmt.Fprintf(os.Stderr, "prism crashed: %v (report: %s)\n", r, path)
		}
		// Cycle failures are reported in the log, never through the exit status
		os.Exit(0)
	}()

	run()
}

func run() {
	// Startup sequence: config (defaults -> files -> env) -> logger -> banner
	if len(configFiles) == 0 {
		if _, err := os.Stat("prism.toml"); err == nil {
			configFiles = append(configFiles, "prism.toml")
		} else if _, err := os.Stat("deployments/local/prism.toml"); err == nil {
			configFiles = append(configFiles, "deployments/local/prism.toml")
		}
	}

	config, err := common.LoadFromFiles(configFiles...)
	if err != nil {
		arbor.NewLogger().Error().Strs("paths", configFiles).Err(err).Msg("Failed to load configuration files")
		return
	}

	logger := common.InitLogger(config)
	common.PrintBanner(common.GetVersion())

	if err := config.Validate(); err != nil {
		logger.Error().Err(err).Msg("Configuration is invalid")
		return
	}

	logger.Debug().
		Strs("config_files", configFiles).
		Str("market_provider", config.Market.Provider).
		Str("llm_provider", string(config.LLM.DefaultProvider)).
		Str("state_path", config.Storage.StatePath).
		Str("log_level", config.Logging.Level).
		Msg("Resolved configuration (sanitized)")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, config, logger)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to initialize application")
		return
	}
	defer application.Close()

	if !*daemon {
		logResult(logger, application.RunOnce(ctx))
		return
	}

	if err := application.StartScheduler(ctx); err != nil {
		logger.Error().Err(err).Msg("Failed to start scheduler")
		return
	}

	logger.Info().Str("schedule", config.Schedule.Cron).Msg("Daemon running - Press Ctrl+C to stop")
	<-ctx.Done()
	logger.Info().Msg("Interrupt signal received, shutting down")
}

func logResult(logger arbor.ILogger, result *models.CycleResult) {
	for _, o := range result.Outcomes {
		if o.Status == models.OutcomeSuccess {
			continue
		}
		logger.Warn().
			Str("collaborator", o.Collaborator).
			Str("target", o.Target).
			Str("status", string(o.Status)).
			Str("error", o.Error).
			Msg("Collaborator outcome")
	}

	event := logger.Info()
	if result.Err != nil {
		event = logger.Error().Err(result.Err)
	}
	event.
		Str("cycle_id", result.CycleID).
		Str("status", string(result.Status)).
		Str("phase", string(result.Phase)).
		Msg("Cycle result")
}
