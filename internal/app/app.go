// Package app wires configuration into a runnable cycle engine.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/prism/internal/common"
	"github.com/ternarybob/prism/internal/httpclient"
	"github.com/ternarybob/prism/internal/interfaces"
	"github.com/ternarybob/prism/internal/models"
	"github.com/ternarybob/prism/internal/services/cycle"
	"github.com/ternarybob/prism/internal/services/exchange"
	"github.com/ternarybob/prism/internal/services/llm"
	"github.com/ternarybob/prism/internal/services/marketdata"
	"github.com/ternarybob/prism/internal/services/news"
	"github.com/ternarybob/prism/internal/services/notify"
	"github.com/ternarybob/prism/internal/services/performance"
	"github.com/ternarybob/prism/internal/services/report"
	"github.com/ternarybob/prism/internal/services/scheduler"
	"github.com/ternarybob/prism/internal/storage"
)

// App holds all application components and dependencies
type App struct {
	Config         *common.Config
	Logger         arbor.ILogger
	StorageManager *storage.Manager

	MarketData interfaces.MarketDataProvider
	Resolver   *common.TickerResolver
	Sessions   *exchange.Service
	Verifier   *performance.Verifier
	News       *news.Service
	Model      interfaces.LanguageModelProvider
	Notifiers  *notify.Dispatcher
	Engine     *cycle.Engine
	Scheduler  *scheduler.Service
}

// New initializes every component in dependency order
func New(ctx context.Context, cfg *common.Config, logger arbor.ILogger) (*App, error) {
	a := &App{
		Config: cfg,
		Logger: logger,
	}

	if err := a.initStorage(); err != nil {
		return nil, err
	}

	if err := a.initServices(ctx); err != nil {
		a.Close()
		return nil, err
	}

	logger.Info().
		Str("market_provider", a.MarketData.Name()).
		Int("indices", len(cfg.Market.Indices)).
		Int("feeds", len(cfg.News.Feeds)).
		Int("notifiers", a.Notifiers.Len()).
		Msg("Application initialized")

	return a, nil
}

func (a *App) initStorage() error {
	manager, err := storage.NewStorageManager(a.Logger, a.Config)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	a.StorageManager = manager

	if manager.Cache != nil {
		if purged, err := manager.Cache.PurgeExpired(context.Background()); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to purge expired cache entries")
		} else if purged > 0 {
			a.Logger.Debug().Int("purged", purged).Msg("Expired cache entries removed")
		}
	}
	return nil
}

func (a *App) initServices(ctx context.Context) error {
	cfg := a.Config
	var err error

	// 1. Market data and symbol resolution
	a.MarketData, err = marketdata.NewProvider(cfg, a.StorageManager.Cache, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize market data provider: %w", err)
	}

	a.Resolver, err = common.NewTickerResolver(cfg.Tickers)
	if err != nil {
		return fmt.Errorf("failed to initialize ticker resolver: %w", err)
	}

	requestTimeout := marketdata.RequestTimeout(cfg)

	// 2. Market sessions and performance verification
	a.Sessions, err = exchange.NewService(a.MarketData, cfg.Market.Indices, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize session service: %w", err)
	}
	a.Sessions.
		WithLookbackDays(cfg.Market.LookbackDays).
		WithConcurrency(cfg.Market.Concurrency).
		WithRequestTimeout(requestTimeout)

	a.Verifier = performance.NewVerifier(a.MarketData, a.Resolver, a.Logger).
		WithLookbackDays(cfg.Market.LookbackDays).
		WithConcurrency(cfg.Market.Concurrency).
		WithRequestTimeout(requestTimeout)

	// 3. News
	newsTimeout := common.ParseDurationOr(cfg.News.Timeout, news.DefaultTimeout)
	feedClient := news.NewFeedClient(httpclient.NewDefaultHTTPClient(newsTimeout), cfg.News.UserAgent, a.Logger)
	a.News = news.NewService(feedClient, cfg.News.Feeds, a.Logger).
		WithItemsPerFeed(cfg.News.ItemsPerFeed).
		WithTimeout(newsTimeout)

	// 4. Language model
	a.Model, err = llm.NewProvider(ctx, cfg, report.SystemInstruction, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize language model: %w", err)
	}

	// 5. Delivery
	a.Notifiers = notify.NewDispatcher(notify.NewNotifiers(cfg, a.Logger), a.Logger)

	// 6. Cycle engine
	a.Engine, err = cycle.NewEngine(cycle.Dependencies{
		State:       a.StorageManager.State,
		History:     a.StorageManager.History,
		Sessions:    a.Sessions,
		Performance: a.Verifier,
		News:        a.News,
		Model:       a.Model,
		Merger:      report.NewMerger(a.Resolver),
		Delivery:    a.Notifiers,
	}, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize cycle engine: %w", err)
	}

	loc, err := time.LoadLocation(cfg.Schedule.Timezone)
	if err != nil {
		loc = time.UTC
	}
	a.Engine.
		WithTimeout(common.ParseDurationOr(cfg.Cycle.Timeout, cycle.DefaultTimeout)).
		WithLocation(loc).
		WithMessageLimit(cfg.Cycle.MessageLimit)

	return nil
}

// RunOnce executes a single cycle.
func (a *App) RunOnce(ctx context.Context) *models.CycleResult {
	return a.Engine.Run(ctx)
}

// StartScheduler starts daemon mode. The scheduler runs until ctx is cancelled or Close is called.
func (a *App) StartScheduler(ctx context.Context) error {
	if a.Config.Schedule.Cron == "" {
		return fmt.Errorf("daemon mode requires schedule.cron")
	}

	s, err := scheduler.NewService(a.Config.Schedule, a.Engine, a.Logger)
	if err != nil {
		return err
	}
	if err := s.Start(ctx); err != nil {
		return err
	}
	a.Scheduler = s
	return nil
}

// Close stops the scheduler and releases storage
func (a *App) Close() error {
	if a.Scheduler != nil {
		if err := a.Scheduler.Stop(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to stop scheduler")
		}
	}

	if a.StorageManager != nil {
		if err := a.StorageManager.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close storage")
			return err
		}
	}

	a.Logger.Info().Msg("Application closed")
	return nil
}
