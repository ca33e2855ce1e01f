// Package app wires configuration into the report service components shared
// by the server and the CLI.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/yks-coach/coach-hub/config"
	"github.com/yks-coach/coach-hub/internal/application/command"
	"github.com/yks-coach/coach-hub/internal/application/query"
	"github.com/yks-coach/coach-hub/internal/domain/archive"
	"github.com/yks-coach/coach-hub/internal/infrastructure/external/coachapi"
	"github.com/yks-coach/coach-hub/internal/infrastructure/persistence/memory"
	"github.com/yks-coach/coach-hub/internal/infrastructure/persistence/postgres"
	"github.com/yks-coach/coach-hub/internal/infrastructure/persistence/redis"
	"github.com/yks-coach/coach-hub/internal/infrastructure/service"
	"github.com/yks-coach/coach-hub/internal/report"
)

// App holds the wired components. DB and Cache are nil when not configured.
type App struct {
	Config *config.Config
	Logger *slog.Logger

	Coach     *coachapi.Client
	Generator *report.Generator
	DB        *postgres.Connection
	Cache     *redis.ReportCache
	Archive   archive.Repository

	GenerateReport *command.GenerateReportHandler
	ReportHistory  *query.GetReportHistoryHandler
	TaskWeeks      *query.GetTaskWeeksHandler
	LastBatch      *query.GetLastBatchHandler

	closers []func()
}

// Options controls optional wiring.
type Options struct {
	// Migrate applies pending archive migrations after connecting.
	Migrate bool

	// DisableCache skips Redis even when REDIS_URL is set.
	DisableCache bool
}

// Build connects the configured backends and creates the handlers. A
// configured database that cannot be reached is an error; an unreachable
// cache only disables caching.
func Build(ctx context.Context, cfg *config.Config, log *slog.Logger, opts Options) (*App, error) {
	if log == nil {
		log = slog.Default()
	}
	a := &App{Config: cfg, Logger: log}

	// ─────────────────────────────────────────────────────────────────────────
	// Coach API and renderer
	// ─────────────────────────────────────────────────────────────────────────
	coachCfg := coachapi.DefaultClientConfig(cfg.CoachAPI.BaseURL)
	coachCfg.APIKey = cfg.CoachAPI.APIKey
	coachCfg.Timeout = cfg.CoachAPI.RequestTimeout
	coachCfg.MaxAttempts = cfg.CoachAPI.MaxAttempts
	coachCfg.Logger = log
	a.Coach = coachapi.NewClient(coachCfg)

	a.Generator = report.NewGenerator(a.Coach,
		report.WithLocale(cfg.Report.Locale, cfg.App.Location),
		report.WithFontDir(cfg.Report.FontDir),
		report.WithLogger(log),
	)

	// ─────────────────────────────────────────────────────────────────────────
	// Report archive
	// ─────────────────────────────────────────────────────────────────────────
	if cfg.Database.URL != "" {
		conn, err := postgres.Open(ctx, cfg.Database.URL, postgres.PoolSettings{
			MaxConns:        int32(cfg.Database.MaxOpenConns),
			MinConns:        int32(cfg.Database.MaxIdleConns),
			MaxConnLifetime: cfg.Database.ConnMaxLifetime,
			MaxConnIdleTime: cfg.Database.ConnMaxIdleTime,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		a.DB = conn
		a.closers = append(a.closers, conn.Close)

		if opts.Migrate {
			n, err := postgres.NewMigrator(conn).Migrate(ctx)
			if err != nil {
				a.Close()
				return nil, fmt.Errorf("failed to run migrations: %w", err)
			}
			log.Info("database schema is up to date", "applied", n)
		}
		a.Archive = postgres.NewArchiveRepository(conn)
	} else {
		log.Info("DATABASE_URL not set, report archive kept in memory")
		a.Archive = memory.NewArchive()
	}

	// ─────────────────────────────────────────────────────────────────────────
	// Report cache
	// ─────────────────────────────────────────────────────────────────────────
	var cache command.ReportCache
	if cfg.Redis.URL != "" && !opts.DisableCache {
		rc, err := redis.NewReportCache(ctx, redis.Config{
			URL:          cfg.Redis.URL,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
			TTL:          cfg.Report.CacheTTL,
		})
		if err != nil {
			log.Warn("failed to connect to Redis, caching disabled", "error", err)
		} else {
			a.Cache = rc
			a.closers = append(a.closers, func() { _ = rc.Close() })
			cache = service.NewReportCacheAdapter(rc)
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// Handlers
	// ─────────────────────────────────────────────────────────────────────────
	a.GenerateReport = command.NewGenerateReportHandler(a.Generator, cache, a.Archive, log)
	a.ReportHistory = query.NewGetReportHistoryHandler(a.Archive)
	a.TaskWeeks = query.NewGetTaskWeeksHandler(a.Coach)
	a.LastBatch = query.NewGetLastBatchHandler(a.Archive)

	return a, nil
}

// Close releases connections in reverse order of creation.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
