// Package query contains read operations (CQRS - Queries).
package query

import (
	"context"
	"fmt"

	"github.com/yks-coach/coach-hub/internal/domain/archive"
	"github.com/yks-coach/coach-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET REPORT HISTORY QUERY
// Lists the reports rendered for a student, newest first.
// ══════════════════════════════════════════════════════════════════════════════

// GetReportHistoryQuery contains the query parameters.
type GetReportHistoryQuery struct {
	StudentID string
	Limit     int
	Offset    int
}

// Validate validates the query.
func (q GetReportHistoryQuery) Validate() error {
	if q.StudentID == "" {
		return shared.ErrStudentIDMissing
	}
	if q.Limit < 0 || q.Offset < 0 {
		return shared.NewDomainError("archive", "ListRuns", shared.ErrInvalidInput, "limit and offset cannot be negative")
	}
	return nil
}

// GetReportHistoryResult is one page of runs.
type GetReportHistoryResult struct {
	StudentID string               `json:"student_id"`
	Runs      []*archive.ReportRun `json:"runs"`
	Limit     int                  `json:"limit"`
	Offset    int                  `json:"offset"`
}

// GetReportHistoryHandler handles GetReportHistoryQuery.
type GetReportHistoryHandler struct {
	runs archive.Repository
}

// NewGetReportHistoryHandler creates a new handler.
func NewGetReportHistoryHandler(runs archive.Repository) *GetReportHistoryHandler {
	return &GetReportHistoryHandler{runs: runs}
}

// Handle executes the query.
func (h *GetReportHistoryHandler) Handle(ctx context.Context, q GetReportHistoryQuery) (*GetReportHistoryResult, error) {
	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("get_report_history: %w", err)
	}

	opts := archive.ListOptions{Limit: q.Limit, Offset: q.Offset}.Normalize()
	runs, err := h.runs.ListRuns(ctx, q.StudentID, opts)
	if err != nil {
		return nil, fmt.Errorf("get_report_history: %w", err)
	}

	return &GetReportHistoryResult{
		StudentID: q.StudentID,
		Runs:      runs,
		Limit:     opts.Limit,
		Offset:    opts.Offset,
	}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// GET LAST BATCH QUERY
// ══════════════════════════════════════════════════════════════════════════════

// GetLastBatchHandler returns the most recent weekly batch.
type GetLastBatchHandler struct {
	runs archive.Repository
}

// NewGetLastBatchHandler creates a new handler.
func NewGetLastBatchHandler(runs archive.Repository) *GetLastBatchHandler {
	return &GetLastBatchHandler{runs: runs}
}

// Handle returns the batch, or an error matching shared.ErrNotFound.
func (h *GetLastBatchHandler) Handle(ctx context.Context) (*archive.BatchRun, error) {
	batch, err := h.runs.LastBatch(ctx)
	if err != nil {
		return nil, fmt.Errorf("get_last_batch: %w", err)
	}
	return batch, nil
}
