// Command server runs the report API and, when enabled, the weekly report
// batch.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/yks-coach/coach-hub/config"
	"github.com/yks-coach/coach-hub/internal/app"
	"github.com/yks-coach/coach-hub/internal/infrastructure/scheduler"
	"github.com/yks-coach/coach-hub/internal/infrastructure/scheduler/jobs"
	httpapi "github.com/yks-coach/coach-hub/internal/interface/http"
	"github.com/yks-coach/coach-hub/internal/interface/http/handlers"
	"github.com/yks-coach/coach-hub/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. Configuration and logging
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.New(logger.Options{
		Level:  cfg.Observability.LogLevel,
		Format: cfg.Observability.LogFormat,
		Attrs: []slog.Attr{
			slog.String("service", cfg.App.Name),
			slog.String("version", cfg.App.Version),
		},
	})
	slog.SetDefault(log)
	log.Info("starting report server",
		"env", cfg.App.Environment,
		"timezone", cfg.App.Timezone,
		"coach_api", cfg.CoachAPI.BaseURL,
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 2. Components
	// ─────────────────────────────────────────────────────────────────────────
	a, err := app.Build(ctx, cfg, log, app.Options{Migrate: true})
	if err != nil {
		return err
	}
	defer func() {
		log.Info("closing connections")
		a.Close()
	}()

	health := handlers.NewCompositeHealthChecker(cfg.App.Version)
	health.AddOptionalCheck("coach_api", handlers.NewExternalAPICheck(a.Coach))
	if a.DB != nil {
		health.AddCheck("database", handlers.NewPingCheck(a.DB))
	}
	if a.Cache != nil {
		// The service renders without the cache.
		health.AddOptionalCheck("cache", handlers.NewPingCheck(a.Cache))
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 3. Weekly batch
	// ─────────────────────────────────────────────────────────────────────────
	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		sched = scheduler.New(scheduler.Config{
			Location:   cfg.App.Location,
			JobTimeout: cfg.Scheduler.JobTimeout,
			Logger:     log,
		})
		weekly := jobs.NewWeeklyReportsJob(a.Coach, a.GenerateReport, a.Archive, log, jobs.WeeklyReportsConfig{
			OutputDir:   cfg.Report.OutputDir,
			Concurrency: cfg.Scheduler.MaxConcurrent,
		})
		if err := sched.Register(weekly, cfg.Scheduler.WeeklyCron); err != nil {
			return err
		}
		sched.Start()
		if next, ok := sched.NextRun(weekly.Name()); ok {
			log.Info("weekly reports scheduled", "next_run", next)
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 4. HTTP server
	// ─────────────────────────────────────────────────────────────────────────
	srv := httpapi.NewServer(httpapi.Config{
		Port:           cfg.HTTP.Port,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxBodyBytes:   cfg.HTTP.MaxBodyBytes,
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		APIKeys:        cfg.HTTP.APIKeys,
		Version:        cfg.App.Version,
	}, httpapi.Dependencies{
		GenerateReport: a.GenerateReport,
		ReportHistory:  a.ReportHistory,
		TaskWeeks:      a.TaskWeeks,
		LastBatch:      a.LastBatch,
		HealthChecker:  health,
		Logger:         log,
	})
	errCh := srv.StartAsync()

	// ─────────────────────────────────────────────────────────────────────────
	// 5. Graceful shutdown
	// ─────────────────────────────────────────────────────────────────────────
	select {
	case <-ctx.Done():
		log.Info("received shutdown signal")
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.App.ShutdownTimeout)
	defer cancel()

	if sched != nil {
		sched.Stop()
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown failed", "error", err)
	}

	log.Info("shutdown completed")
	return nil
}
