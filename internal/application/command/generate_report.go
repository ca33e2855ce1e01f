// Package command contains write operations (CQRS - Commands).
package command

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/yks-coach/coach-hub/internal/domain/archive"
	"github.com/yks-coach/coach-hub/internal/domain/progress"
	"github.com/yks-coach/coach-hub/internal/domain/shared"
	"github.com/yks-coach/coach-hub/internal/report"
	"github.com/yks-coach/coach-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// GENERATE REPORT COMMAND
// Fetches a student's data, renders the report unless a cached copy of the
// same rendering exists, and records the run in the archive.
// ══════════════════════════════════════════════════════════════════════════════

// GenerateReportCommand contains the data needed to render a report.
type GenerateReportCommand struct {
	// StudentID selects the topics and exams to load.
	StudentID string

	// Student is the descriptor printed in the report header.
	Student progress.Student

	// Format is "pdf" (default) or "xlsx".
	Format string

	Trigger archive.Trigger

	// BatchID links a scheduled run to its batch.
	BatchID string

	// SkipCache forces a fresh rendering.
	SkipCache bool
}

// Validate validates the command.
func (c GenerateReportCommand) Validate() error {
	if c.StudentID == "" {
		return shared.ErrStudentIDMissing
	}
	return c.Student.Validate()
}

// GenerateReportResult is a rendered report plus its bookkeeping.
type GenerateReportResult struct {
	RunID       string
	Format      report.Format
	Bytes       []byte
	Filename    string
	ContentType string
	Fingerprint string
	Pages       int
	Sections    []string
	CacheHit    bool
	GeneratedAt time.Time

	// SectionErrors maps each skipped section to its fetch error.
	SectionErrors map[string]string
}

// Degraded reports whether a section was skipped because of a fetch error.
func (r *GenerateReportResult) Degraded() bool {
	return len(r.SectionErrors) > 0
}

// ══════════════════════════════════════════════════════════════════════════════
// DEPENDENCIES (Interfaces)
// ══════════════════════════════════════════════════════════════════════════════

// ReportRenderer fetches report data and renders it in both formats.
type ReportRenderer interface {
	Fetch(ctx context.Context, studentID string) *report.Data
	Render(ctx context.Context, student progress.Student, studentID string, data *report.Data) (*report.Result, error)
	RenderWorkbook(ctx context.Context, student progress.Student, studentID string, data *report.Data) (*report.Result, error)
}

// CachedReport is a rendering kept by a ReportCache.
type CachedReport struct {
	Bytes         []byte
	Filename      string
	ContentType   string
	Pages         int
	Sections      []string
	SectionErrors map[string]string
	GeneratedAt   time.Time
}

// ReportCache keeps renderings by fingerprint. Get returns nil, nil on a miss.
// The fingerprint covers the fetched data, so a hit only saves rendering.
type ReportCache interface {
	Get(ctx context.Context, fingerprint string) (*CachedReport, error)
	Set(ctx context.Context, fingerprint string, report *CachedReport) error
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// GenerateReportHandler handles GenerateReportCommand.
type GenerateReportHandler struct {
	renderer ReportRenderer
	cache    ReportCache
	runs     archive.Repository
	now      func() time.Time
	logger   *slog.Logger
}

// NewGenerateReportHandler creates a handler. cache and runs may be nil.
func NewGenerateReportHandler(
	renderer ReportRenderer,
	cache ReportCache,
	runs archive.Repository,
	logger *slog.Logger,
) *GenerateReportHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &GenerateReportHandler{
		renderer: renderer,
		cache:    cache,
		runs:     runs,
		now:      timeutil.Now,
		logger:   logger,
	}
}

// WithClock sets the clock used for the cache fingerprint.
func (h *GenerateReportHandler) WithClock(now func() time.Time) *GenerateReportHandler {
	h.now = now
	return h
}

// Handle executes the command.
func (h *GenerateReportHandler) Handle(ctx context.Context, cmd GenerateReportCommand) (*GenerateReportResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("generate_report: validation failed: %w", err)
	}

	format, err := report.ParseFormat(cmd.Format)
	if err != nil {
		return nil, fmt.Errorf("generate_report: %w", err)
	}

	data := h.renderer.Fetch(ctx, cmd.StudentID)
	fingerprint := report.Fingerprint(cmd.Student, cmd.StudentID, format, h.now(), data)
	log := h.logger.With("student_id", cmd.StudentID, "format", string(format), "fingerprint", fingerprint)

	result := h.cached(ctx, fingerprint, cmd.SkipCache, log)
	if result == nil {
		result, err = h.render(ctx, cmd, format, data)
		if err != nil {
			return nil, fmt.Errorf("generate_report: %w", err)
		}
		result.Fingerprint = fingerprint
		h.store(ctx, result, log)
	}
	result.Format = format

	h.archive(ctx, cmd, result, log)
	return result, nil
}

func (h *GenerateReportHandler) cached(ctx context.Context, fingerprint string, skip bool, log *slog.Logger) *GenerateReportResult {
	if h.cache == nil || skip {
		return nil
	}

	hit, err := h.cache.Get(ctx, fingerprint)
	if err != nil {
		log.Warn("report cache lookup failed", "error", err)
		return nil
	}
	if hit == nil {
		return nil
	}

	log.Debug("report served from cache")
	return &GenerateReportResult{
		Bytes:         hit.Bytes,
		Filename:      hit.Filename,
		ContentType:   hit.ContentType,
		Fingerprint:   fingerprint,
		Pages:         hit.Pages,
		Sections:      hit.Sections,
		SectionErrors: hit.SectionErrors,
		GeneratedAt:   hit.GeneratedAt,
		CacheHit:      true,
	}
}

func (h *GenerateReportHandler) render(ctx context.Context, cmd GenerateReportCommand, format report.Format, data *report.Data) (*GenerateReportResult, error) {
	var (
		res *report.Result
		err error
	)
	switch format {
	case report.FormatXLSX:
		res, err = h.renderer.RenderWorkbook(ctx, cmd.Student, cmd.StudentID, data)
	default:
		res, err = h.renderer.Render(ctx, cmd.Student, cmd.StudentID, data)
	}
	if err != nil {
		return nil, err
	}

	out := &GenerateReportResult{
		Bytes:       res.Bytes,
		Filename:    res.Filename,
		ContentType: res.ContentType,
		Pages:       res.Pages,
		Sections:    make([]string, 0, len(res.Sections)),
		GeneratedAt: res.GeneratedAt,
	}
	for _, s := range res.Sections {
		out.Sections = append(out.Sections, string(s))
	}
	if len(res.SectionErrors) > 0 {
		out.SectionErrors = make(map[string]string, len(res.SectionErrors))
		for s, e := range res.SectionErrors {
			out.SectionErrors[string(s)] = e.Error()
		}
	}
	return out, nil
}

// store caches complete renderings only, so a transient fetch failure is not
// served again for the rest of the TTL.
func (h *GenerateReportHandler) store(ctx context.Context, r *GenerateReportResult, log *slog.Logger) {
	if h.cache == nil || r.Degraded() {
		return
	}

	err := h.cache.Set(ctx, r.Fingerprint, &CachedReport{
		Bytes:       r.Bytes,
		Filename:    r.Filename,
		ContentType: r.ContentType,
		Pages:       r.Pages,
		Sections:    r.Sections,
		GeneratedAt: r.GeneratedAt,
	})
	if err != nil {
		log.Warn("report cache store failed", "error", err)
	}
}

func (h *GenerateReportHandler) archive(ctx context.Context, cmd GenerateReportCommand, r *GenerateReportResult, log *slog.Logger) {
	if h.runs == nil {
		return
	}

	trigger := cmd.Trigger
	if trigger == "" {
		trigger = archive.TriggerAPI
	}

	run := archive.NewReportRun(cmd.StudentID, trigger, h.now())
	run.StudentName = cmd.Student.FullName()
	run.Format = string(r.Format)
	run.Filename = r.Filename
	run.Fingerprint = r.Fingerprint
	run.Pages = r.Pages
	run.SizeBytes = len(r.Bytes)
	run.Sections = r.Sections
	run.SectionErrors = r.SectionErrors
	run.BatchID = cmd.BatchID
	run.CacheHit = r.CacheHit

	if err := h.runs.SaveRun(ctx, run); err != nil {
		log.Warn("failed to archive report run", "error", err)
		return
	}
	r.RunID = run.ID
}

