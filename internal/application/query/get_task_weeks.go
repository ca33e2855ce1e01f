package query

import (
	"context"
	"fmt"
	"time"

	"github.com/yks-coach/coach-hub/internal/domain/progress"
	"github.com/yks-coach/coach-hub/internal/domain/shared"
	"github.com/yks-coach/coach-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET TASK WEEKS QUERY
// Groups a student's past tasks into Monday-start weeks for the history view.
// ══════════════════════════════════════════════════════════════════════════════

// GetTaskWeeksQuery contains the query parameters.
type GetTaskWeeksQuery struct {
	StudentID string
}

// TaskWeeksResult lists past weeks, newest first.
type TaskWeeksResult struct {
	StudentID string          `json:"student_id"`
	Weeks     []progress.Week `json:"weeks"`

	// Completion over every listed week.
	Completed int `json:"completed"`
	Total     int `json:"total"`
	Percent   int `json:"percent"`
}

// TaskSource loads a student's tasks.
type TaskSource interface {
	GetTasks(ctx context.Context, studentID string) ([]progress.Task, error)
}

// GetTaskWeeksHandler handles GetTaskWeeksQuery.
type GetTaskWeeksHandler struct {
	tasks TaskSource
	now   func() time.Time
}

// NewGetTaskWeeksHandler creates a new handler.
func NewGetTaskWeeksHandler(tasks TaskSource) *GetTaskWeeksHandler {
	return &GetTaskWeeksHandler{tasks: tasks, now: timeutil.Now}
}

// Handle executes the query. Unlike report generation, a failed fetch is
// returned since there is nothing else to show.
func (h *GetTaskWeeksHandler) Handle(ctx context.Context, q GetTaskWeeksQuery) (*TaskWeeksResult, error) {
	if q.StudentID == "" {
		return nil, fmt.Errorf("get_task_weeks: %w", shared.ErrStudentIDMissing)
	}

	tasks, err := h.tasks.GetTasks(ctx, q.StudentID)
	if err != nil {
		return nil, fmt.Errorf("get_task_weeks: %w", err)
	}

	weeks := progress.GroupTasksByWeek(tasks, h.now())
	res := &TaskWeeksResult{StudentID: q.StudentID, Weeks: weeks}
	for _, w := range weeks {
		res.Completed += w.Completed
		res.Total += len(w.Tasks)
	}
	res.Percent = progress.Percent(res.Completed, res.Total)
	return res, nil
}
