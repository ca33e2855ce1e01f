// Package archive holds the record of every report that was rendered and of
// every scheduled batch run, so coaches can see what was sent and when.
package archive

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPORT RUN
// ══════════════════════════════════════════════════════════════════════════════

// Trigger tells what started a report run.
type Trigger string

const (
	TriggerAPI      Trigger = "api"
	TriggerCLI      Trigger = "cli"
	TriggerSchedule Trigger = "schedule"
)

// ReportRun is one rendered report.
type ReportRun struct {
	ID          string    `json:"id"`
	StudentID   string    `json:"student_id"`
	StudentName string    `json:"student_name"`
	Format      string    `json:"format"`
	Filename    string    `json:"filename"`
	Fingerprint string    `json:"fingerprint"`
	Pages       int       `json:"pages"`
	SizeBytes   int       `json:"size_bytes"`
	Sections    []string  `json:"sections"`
	Trigger     Trigger   `json:"trigger"`
	BatchID     string    `json:"batch_id,omitempty"`
	CacheHit    bool      `json:"cache_hit"`
	GeneratedAt time.Time `json:"generated_at"`

	// SectionErrors maps a skipped section to the fetch error message.
	SectionErrors map[string]string `json:"section_errors,omitempty"`
}

// NewReportRun assigns a fresh ID.
func NewReportRun(studentID string, trigger Trigger, generatedAt time.Time) *ReportRun {
	return &ReportRun{
		ID:          uuid.NewString(),
		StudentID:   studentID,
		Trigger:     trigger,
		GeneratedAt: generatedAt,
	}
}

// Degraded reports whether any section was skipped because of a fetch error.
func (r *ReportRun) Degraded() bool {
	return len(r.SectionErrors) > 0
}

// ══════════════════════════════════════════════════════════════════════════════
// BATCH RUN
// ══════════════════════════════════════════════════════════════════════════════

// BatchRun is one execution of the weekly report batch.
type BatchRun struct {
	ID         string     `json:"id"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Students   int        `json:"students"`
	Succeeded  int        `json:"succeeded"`
	Failed     int        `json:"failed"`
	Error      string     `json:"error,omitempty"`
}

// NewBatchRun starts a batch record.
func NewBatchRun(startedAt time.Time) *BatchRun {
	return &BatchRun{ID: uuid.NewString(), StartedAt: startedAt}
}

// Finish closes the batch record.
func (b *BatchRun) Finish(at time.Time, err error) {
	b.FinishedAt = &at
	if err != nil {
		b.Error = err.Error()
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// Implementations live in infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// ListOptions pages a listing, newest first.
type ListOptions struct {
	Limit  int
	Offset int
}

// DefaultListLimit applies when ListOptions.Limit is zero.
const DefaultListLimit = 20

// Normalize clamps the options to sane values.
func (o ListOptions) Normalize() ListOptions {
	if o.Limit <= 0 {
		o.Limit = DefaultListLimit
	}
	if o.Limit > 100 {
		o.Limit = 100
	}
	if o.Offset < 0 {
		o.Offset = 0
	}
	return o
}

// Repository stores report and batch runs.
type Repository interface {
	// SaveRun records a rendered report.
	SaveRun(ctx context.Context, run *ReportRun) error

	// ListRuns returns the runs of a student, newest first.
	ListRuns(ctx context.Context, studentID string, opts ListOptions) ([]*ReportRun, error)

	// SaveBatch inserts or updates a batch record.
	SaveBatch(ctx context.Context, batch *BatchRun) error

	// LastBatch returns the most recently started batch, or ErrNotFound.
	LastBatch(ctx context.Context) (*BatchRun, error)
}
