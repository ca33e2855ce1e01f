// Package jobs contains the scheduled jobs.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yks-coach/coach-hub/internal/application/command"
	"github.com/yks-coach/coach-hub/internal/domain/archive"
	"github.com/yks-coach/coach-hub/internal/domain/progress"
	"github.com/yks-coach/coach-hub/internal/report"
	"github.com/yks-coach/coach-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// WEEKLY REPORTS JOB
// ══════════════════════════════════════════════════════════════════════════════

// WeeklyReportsJob renders a PDF report for every student of the coach
// platform and writes it under OutputDir/<date>/.
type WeeklyReportsJob struct {
	students StudentLister
	reports  ReportGenerator
	batches  archive.Repository
	logger   *slog.Logger
	config   WeeklyReportsConfig
	now      func() time.Time

	lastStats atomic.Pointer[BatchStats]
}

// WeeklyReportsConfig contains configuration for the job.
type WeeklyReportsConfig struct {
	OutputDir string

	// Concurrency is the number of reports rendered in parallel.
	Concurrency int
}

// StudentLister lists the students to report on.
type StudentLister interface {
	ListStudents(ctx context.Context) ([]progress.Student, error)
}

// ReportGenerator renders one report.
type ReportGenerator interface {
	Handle(ctx context.Context, cmd command.GenerateReportCommand) (*command.GenerateReportResult, error)
}

// BatchStats summarizes one run.
type BatchStats struct {
	Batch    *archive.BatchRun
	Files    []string
	Failures map[string]error
}

// NewWeeklyReportsJob creates the job. batches may be nil.
func NewWeeklyReportsJob(
	students StudentLister,
	reports ReportGenerator,
	batches archive.Repository,
	logger *slog.Logger,
	config WeeklyReportsConfig,
) *WeeklyReportsJob {
	if logger == nil {
		logger = slog.Default()
	}
	if config.Concurrency <= 0 {
		config.Concurrency = 4
	}
	if config.OutputDir == "" {
		config.OutputDir = "reports"
	}
	return &WeeklyReportsJob{
		students: students,
		reports:  reports,
		batches:  batches,
		logger:   logger,
		config:   config,
		now:      timeutil.Now,
	}
}

// Name returns the job name.
func (j *WeeklyReportsJob) Name() string {
	return "weekly_reports"
}

// Description returns a human-readable description.
func (j *WeeklyReportsJob) Description() string {
	return "Renders and stores the weekly progress report of every student"
}

// LastStats returns the stats of the previous run, if any.
func (j *WeeklyReportsJob) LastStats() (*BatchStats, bool) {
	s := j.lastStats.Load()
	return s, s != nil
}

// Run executes the job. Individual report failures are recorded and do not
// stop the batch; the job fails only when the student list cannot be loaded
// or every report failed.
func (j *WeeklyReportsJob) Run(ctx context.Context) error {
	batch := archive.NewBatchRun(j.now())
	stats := &BatchStats{Batch: batch, Failures: map[string]error{}}
	defer j.lastStats.Store(stats)

	j.saveBatch(ctx, batch)

	students, err := j.students.ListStudents(ctx)
	if err != nil {
		err = fmt.Errorf("failed to list students: %w", err)
		j.finish(ctx, batch, err)
		return err
	}
	batch.Students = len(students)
	j.logger.Info("weekly reports started", "batch_id", batch.ID, "students", len(students))

	dir := filepath.Join(j.config.OutputDir, batch.StartedAt.Format(timeutil.FormatDate))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		err = fmt.Errorf("failed to create output dir: %w", err)
		j.finish(ctx, batch, err)
		return err
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(j.config.Concurrency)

	for _, s := range students {
		s := s
		g.Go(func() error {
			path, err := j.renderOne(gctx, s, batch.ID, dir)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				batch.Failed++
				stats.Failures[studentKey(s)] = err
				j.logger.Warn("weekly report failed", "batch_id", batch.ID, "student_id", s.ID, "error", err)
				return nil
			}
			batch.Succeeded++
			stats.Files = append(stats.Files, path)
			return nil
		})
	}
	_ = g.Wait()

	var runErr error
	if batch.Students > 0 && batch.Succeeded == 0 {
		runErr = fmt.Errorf("all %d reports failed", batch.Students)
	}
	if ctx.Err() != nil {
		runErr = errors.Join(runErr, ctx.Err())
	}
	j.finish(ctx, batch, runErr)

	j.logger.Info("weekly reports finished",
		"batch_id", batch.ID,
		"succeeded", batch.Succeeded,
		"failed", batch.Failed,
	)
	return runErr
}

func (j *WeeklyReportsJob) renderOne(ctx context.Context, s progress.Student, batchID, dir string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s.ID == "" {
		return "", errors.New("student has no id")
	}

	res, err := j.reports.Handle(ctx, command.GenerateReportCommand{
		StudentID: s.ID,
		Student:   s,
		Format:    "pdf",
		Trigger:   archive.TriggerSchedule,
		BatchID:   batchID,
		SkipCache: true,
	})
	if err != nil {
		return "", err
	}

	// Names are not unique; the id prefix is. Both come from the platform.
	path := filepath.Join(dir, report.SafeFilename(s.ID+"_"+res.Filename))
	if err := os.WriteFile(path, res.Bytes, 0o644); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	return path, nil
}

func (j *WeeklyReportsJob) saveBatch(ctx context.Context, batch *archive.BatchRun) {
	if j.batches == nil {
		return
	}
	if err := j.batches.SaveBatch(context.WithoutCancel(ctx), batch); err != nil {
		j.logger.Warn("failed to save batch run", "batch_id", batch.ID, "error", err)
	}
}

func (j *WeeklyReportsJob) finish(ctx context.Context, batch *archive.BatchRun, err error) {
	batch.Finish(j.now(), err)
	j.saveBatch(ctx, batch)
}

func studentKey(s progress.Student) string {
	if s.ID != "" {
		return s.ID
	}
	return s.FullName()
}
