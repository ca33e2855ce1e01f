// Package scheduler runs background jobs on cron schedules.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
)

// ══════════════════════════════════════════════════════════════════════════════
// JOB INTERFACE
// ══════════════════════════════════════════════════════════════════════════════

// Job is a unit of scheduled work.
type Job interface {
	// Name returns the unique name of the job.
	Name() string

	// Description returns a human-readable description of the job.
	Description() string

	// Run executes the job. The context carries the job timeout.
	Run(ctx context.Context) error
}

// JobResult is the outcome of one job execution.
type JobResult struct {
	JobName     string        `json:"job_name"`
	StartedAt   time.Time     `json:"started_at"`
	CompletedAt time.Time     `json:"completed_at"`
	Duration    time.Duration `json:"duration"`
	Success     bool          `json:"success"`
	Error       string        `json:"error,omitempty"`
}

var (
	// ErrNilJob is returned when registering a nil job.
	ErrNilJob = errors.New("scheduler: job is nil")

	// ErrJobExists is returned when a job name is registered twice.
	ErrJobExists = errors.New("scheduler: job already registered")

	// ErrJobNotFound is returned for an unknown job name.
	ErrJobNotFound = errors.New("scheduler: job not found")
)

// ══════════════════════════════════════════════════════════════════════════════
// SCHEDULER
// ══════════════════════════════════════════════════════════════════════════════

// Config holds scheduler settings.
type Config struct {
	// Location the cron expressions are evaluated in.
	Location *time.Location

	// JobTimeout bounds every run; zero means no timeout.
	JobTimeout time.Duration

	Logger *slog.Logger
}

// Scheduler runs registered jobs on their cron expressions. A job never
// overlaps with itself.
type Scheduler struct {
	cron       *gocron.Scheduler
	jobTimeout time.Duration
	logger     *slog.Logger

	// ctx is cancelled by Stop so running jobs can wind down.
	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.RWMutex
	jobs     map[string]Job
	lastRuns map[string]JobResult
}

// New creates a stopped scheduler.
func New(cfg Config) *Scheduler {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:       gocron.NewScheduler(cfg.Location),
		jobTimeout: cfg.JobTimeout,
		logger:     cfg.Logger.With("component", "scheduler"),
		ctx:        ctx,
		cancel:     cancel,
		jobs:       make(map[string]Job),
		lastRuns:   make(map[string]JobResult),
	}
}

// Register schedules job on a five-field cron expression.
func (s *Scheduler) Register(job Job, cronExpr string) error {
	if job == nil {
		return ErrNilJob
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[job.Name()]; ok {
		return fmt.Errorf("%w: %s", ErrJobExists, job.Name())
	}

	_, err := s.cron.Cron(cronExpr).Tag(job.Name()).SingletonMode().Do(func() {
		s.execute(s.ctx, job)
	})
	if err != nil {
		return fmt.Errorf("scheduler: register %s: %w", job.Name(), err)
	}

	s.jobs[job.Name()] = job
	s.logger.Info("job registered", "job", job.Name(), "cron", cronExpr, "description", job.Description())
	return nil
}

// Start runs the scheduler in the background.
func (s *Scheduler) Start() {
	s.cron.StartAsync()
	s.logger.Info("scheduler started", "jobs", s.cron.Len())
}

// Stop cancels running jobs and stops the scheduler.
func (s *Scheduler) Stop() {
	s.cancel()
	s.cron.Stop()
	s.logger.Info("scheduler stopped")
}

// RunNow runs a registered job synchronously, outside its schedule.
func (s *Scheduler) RunNow(ctx context.Context, name string) (JobResult, error) {
	s.mu.RLock()
	job, ok := s.jobs[name]
	s.mu.RUnlock()
	if !ok {
		return JobResult{}, fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}
	return s.execute(ctx, job), nil
}

// LastResult returns the last recorded run of a job.
func (s *Scheduler) LastResult(name string) (JobResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.lastRuns[name]
	return r, ok
}

// NextRun returns when a job fires next.
func (s *Scheduler) NextRun(name string) (time.Time, bool) {
	jobs, err := s.cron.FindJobsByTag(name)
	if err != nil || len(jobs) == 0 {
		return time.Time{}, false
	}
	return jobs[0].NextRun(), true
}

func (s *Scheduler) execute(ctx context.Context, job Job) JobResult {
	if s.jobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.jobTimeout)
		defer cancel()
	}

	result := JobResult{JobName: job.Name(), StartedAt: time.Now()}
	log := s.logger.With("job", job.Name())
	log.Info("job started")

	err := func() (err error) {
		defer func() {
			if p := recover(); p != nil {
				err = fmt.Errorf("panic: %v", p)
			}
		}()
		return job.Run(ctx)
	}()

	result.CompletedAt = time.Now()
	result.Duration = result.CompletedAt.Sub(result.StartedAt)
	result.Success = err == nil
	if err != nil {
		result.Error = err.Error()
		log.Error("job failed", "error", err, "duration", result.Duration)
	} else {
		log.Info("job completed", "duration", result.Duration)
	}

	s.mu.Lock()
	s.lastRuns[job.Name()] = result
	s.mu.Unlock()
	return result
}
