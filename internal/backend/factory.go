// Package backend assembles the store, cache, publisher and services from
// configuration.
package backend

import (
	"context"
	"fmt"
	"log/slog"

	"fintrack/internal/amqp"
	"fintrack/internal/analysis"
	"fintrack/internal/auth"
	"fintrack/internal/cache"
	"fintrack/internal/chart"
	applog "fintrack/internal/log"
	"fintrack/internal/services"
	"fintrack/internal/sheets"
	gsheet "fintrack/internal/sheets/google"
	"fintrack/internal/sheets/memory"
	"fintrack/internal/storage"
)

// Build opens the store and wires every service. Optional dependencies
// (Redis, AMQP) that cannot be reached are logged and replaced by their
// in-process fallback or disabled.
func Build(ctx context.Context, cfg Config) (*Backend, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	b := &Backend{
		Store:  repo,
		Issuer: auth.NewIssuer(cfg.SessionSecret, cfg.SessionTTL),
	}
	b.onClose(repo.Close)

	dashCache := newDashboardCache(ctx, cfg, b)

	agg := analysis.NewAggregator(repo, repo, cfg.DefaultCurrency)
	b.Dashboards = services.NewDashboardService(agg, analysis.NewAdvisor(repo), dashCache)

	var publisher services.Publisher
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			slog.WarnContext(ctx, "Failed to initialize AMQP client, continuing without export events",
				applog.FieldComponent, applog.ComponentAMQP,
				applog.FieldError, err)
		} else {
			b.Publisher = client
			publisher = client
			b.onClose(client.Close)
			slog.InfoContext(ctx, "Initialized AMQP client",
				"exchange", cfg.AMQPExchange,
				"queue", cfg.AMQPQueue)
		}
	}

	b.Transactions = services.NewTransactionService(repo, publisher, b.Dashboards)
	b.Accounts = services.NewAccountService(repo, b.Issuer, b.Dashboards, cfg.DefaultCurrency)
	b.Reports = services.NewReportService(analysis.NewRangeFilter(repo), agg, chart.NewRenderer(repo), repo)

	slog.InfoContext(ctx, "Initialized backend",
		"db_path", cfg.SQLiteDBPath,
		"cache", cfg.Cache.String(),
		"amqp_enabled", b.Publisher != nil)

	return b, nil
}

func newDashboardCache(ctx context.Context, cfg Config, b *Backend) cache.Cache[services.Dashboard] {
	if cfg.Cache == RedisCache {
		client, err := cache.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err == nil {
			b.onClose(client.Close)
			slog.InfoContext(ctx, "Using Redis dashboard cache", "addr", cfg.RedisAddr)
			return cache.NewRedisCache[services.Dashboard](client, "fintrack", cfg.CacheTTL)
		}
		slog.WarnContext(ctx, "Redis unavailable, falling back to in-memory cache",
			applog.FieldComponent, applog.ComponentCache,
			applog.FieldError, err)
	}

	size := cfg.CacheSize
	if size <= 0 {
		size = defaultCacheSize
	}
	lru := cache.NewLRUCache[services.Dashboard](size, cfg.CacheTTL)
	sweeper := cache.NewSweeper(cfg.CacheTTL, lru)
	sweeper.Start()
	b.onClose(func() error {
		sweeper.Stop()
		return nil
	})
	return lru
}

// NewExporter returns the Google Sheets exporter when a spreadsheet is
// configured and the in-memory one otherwise.
func NewExporter(ctx context.Context, cfg Config) (sheets.TransactionExporter, error) {
	if cfg.GoogleSpreadsheetID == "" {
		slog.InfoContext(ctx, "No spreadsheet configured, exporting to memory")
		return memory.New(), nil
	}

	exp, err := gsheet.New(ctx, gsheet.Options{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		SheetName:       cfg.GoogleSheetName,
		CredentialsJSON: cfg.GoogleServiceAccountJSON,
		CredentialsFile: cfg.GoogleServiceAccountFile,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets exporter: %w", err)
	}
	return exp, nil
}
