package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"scenario-advisor/internal/advisor"
	"scenario-advisor/internal/brokerage"
	"scenario-advisor/internal/brokerage/brokerageobs"
	"scenario-advisor/internal/clock"
	"scenario-advisor/internal/fundamentals"
	"scenario-advisor/internal/interfaces"
	"scenario-advisor/internal/journal"
	"scenario-advisor/internal/logger"
	"scenario-advisor/internal/news"
	"scenario-advisor/internal/portfolio"
	"scenario-advisor/internal/store"
	"scenario-advisor/internal/trace"
)

// components holds everything built once at startup.
type components struct {
	cfg  *store.Config
	app  *advisor.App
	sink *journal.FileSink
}

// initializeSystem initializes logger and tracer
func initializeSystem() error {
	// Load environment variables
	_ = godotenv.Load()

	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	trace.Init(logger.IsTracingEnabled())
	return nil
}

// loadConfig loads and returns the configuration
func loadConfig(ctx context.Context, path string) (*store.Config, error) {
	cfg, err := store.LoadConfig(path)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to load config", err, "path", path)
		return nil, err
	}
	return cfg, nil
}

// initializeJournal returns the file mirror, or nil when journal.dir is unset.
func initializeJournal(ctx context.Context, cfg *store.Config) *journal.FileSink {
	if cfg.Journal.Dir == "" {
		return nil
	}
	sink := journal.NewFileSink(cfg.Journal.Dir)
	if cfg.Journal.RetentionDays > 0 {
		if err := sink.CompressOlder(cfg.Journal.RetentionDays); err != nil {
			logger.Warn(ctx, "Failed to compress old journal files", "error", err)
		}
	}
	return sink
}

// initializeNewsSource picks the keyed API when a key is present, else the scraper,
// behind a circuit breaker either way.
func initializeNewsSource(ctx context.Context, cfg *store.Config, secrets store.Secrets) interfaces.NewsSource {
	var src interfaces.NewsSource
	if secrets.NewsAPIKey != "" {
		src = news.NewAPISource(cfg.News.APIBaseURL, secrets.NewsAPIKey, cfg.News.Language, cfg.News.MaxItems, cfg.News.Timeout)
	} else {
		logger.Warn(ctx, "No news API key configured - scraping news search results", "env", cfg.News.APIKeyEnv)
		src = news.NewScrapeSource(cfg.News.ScrapeBaseURL, cfg.News.Language, cfg.News.Country, cfg.News.MaxItems, cfg.News.Timeout)
	}
	logger.Info(ctx, "News source selected", "source", src.Name())
	return news.NewGuarded(src, cfg.News.Breaker.ConsecutiveFailures, cfg.News.Breaker.OpenTimeout)
}

// initializeBrokerage builds the order client wrapped with observability
func initializeBrokerage(ctx context.Context, cfg *store.Config, secrets store.Secrets, ledger *portfolio.Ledger, sink *journal.FileSink) interfaces.Brokerage {
	if secrets.BrokerAppKey == "" || secrets.BrokerAppSecret == "" {
		logger.Warn(ctx, "Brokerage credentials missing - orders will be rejected",
			"app_key_env", cfg.Brokerage.AppKeyEnv, "app_secret_env", cfg.Brokerage.AppSecretEnv)
	}
	var opts []brokerage.Option
	if sink != nil {
		opts = append(opts, brokerage.WithTradeRecorder(sink))
	}
	client := brokerage.NewClient(brokerage.ConfigFrom(cfg, secrets), ledger, opts...)
	return brokerageobs.Wrap(client)
}

func bootstrap(ctx context.Context, configPath string) (*components, error) {
	if err := initializeSystem(); err != nil {
		return nil, err
	}
	cfg, err := loadConfig(ctx, configPath)
	if err != nil {
		return nil, err
	}
	secrets := cfg.Secrets()

	sink := initializeJournal(ctx, cfg)
	ledger := portfolio.NewLedger()

	funds, err := fundamentals.New(cfg, secrets, clock.System{})
	if err != nil {
		return nil, err
	}
	logger.Info(ctx, "Fundamentals provider selected", "provider", cfg.Fundamentals.Provider)

	app, err := advisor.New(cfg, advisor.Options{
		NewsSource:   initializeNewsSource(ctx, cfg, secrets),
		Fundamentals: funds,
		Brokerage:    initializeBrokerage(ctx, cfg, secrets, ledger, sink),
		Ledger:       ledger,
		NewsLog:      journal.NewNewsLog(sink),
	})
	if err != nil {
		return nil, err
	}
	return &components{cfg: cfg, app: app, sink: sink}, nil
}

// writeSummary writes today's trade summary when the journal is enabled.
func (r *components) writeSummary(ctx context.Context) {
	if r.sink == nil {
		return
	}
	p, err := r.sink.WriteTodaySummary()
	if err != nil {
		logger.Warn(ctx, "Failed to write trade summary", "error", err)
		return
	}
	if p != "" {
		logger.Info(ctx, "Trade summary written", "path", p)
	}
}

func (r *components) shutdown(ctx context.Context) {
	if err := logger.Shutdown(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to flush traces: %v\n", err)
	}
}
