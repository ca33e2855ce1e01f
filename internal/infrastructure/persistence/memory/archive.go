// Package memory implements the archive repository in process memory. It is
// used when no database is configured; the contents are lost on restart.
package memory

import (
	"context"
	"maps"
	"slices"
	"sort"
	"sync"

	"github.com/yks-coach/coach-hub/internal/domain/archive"
	"github.com/yks-coach/coach-hub/internal/domain/shared"
)

// DefaultMaxRunsPerStudent bounds the runs kept per student.
const DefaultMaxRunsPerStudent = 50

// Archive is an in-memory archive.Repository.
type Archive struct {
	mu      sync.RWMutex
	runs    map[string][]*archive.ReportRun
	batches []*archive.BatchRun
	maxRuns int
}

// NewArchive creates an empty archive.
func NewArchive() *Archive {
	return &Archive{
		runs:    make(map[string][]*archive.ReportRun),
		maxRuns: DefaultMaxRunsPerStudent,
	}
}

func (a *Archive) SaveRun(ctx context.Context, run *archive.ReportRun) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	runs := append(a.runs[run.StudentID], cloneRun(run))
	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].GeneratedAt.After(runs[j].GeneratedAt)
	})
	if len(runs) > a.maxRuns {
		runs = runs[:a.maxRuns]
	}
	a.runs[run.StudentID] = runs
	return nil
}

func (a *Archive) ListRuns(ctx context.Context, studentID string, opts archive.ListOptions) ([]*archive.ReportRun, error) {
	opts = opts.Normalize()

	a.mu.RLock()
	defer a.mu.RUnlock()

	runs := a.runs[studentID]
	if opts.Offset >= len(runs) {
		return []*archive.ReportRun{}, nil
	}
	end := opts.Offset + opts.Limit
	if end > len(runs) {
		end = len(runs)
	}

	out := make([]*archive.ReportRun, 0, end-opts.Offset)
	for _, r := range runs[opts.Offset:end] {
		out = append(out, cloneRun(r))
	}
	return out, nil
}

func (a *Archive) SaveBatch(ctx context.Context, batch *archive.BatchRun) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	cp := cloneBatch(batch)
	for i, b := range a.batches {
		if b.ID == batch.ID {
			a.batches[i] = cp
			return nil
		}
	}
	a.batches = append(a.batches, cp)
	return nil
}

func (a *Archive) LastBatch(ctx context.Context) (*archive.BatchRun, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	var last *archive.BatchRun
	for _, b := range a.batches {
		if last == nil || b.StartedAt.After(last.StartedAt) {
			last = b
		}
	}
	if last == nil {
		return nil, shared.ErrNoBatchRun
	}
	return cloneBatch(last), nil
}

// cloneRun deep-copies run so stored records never alias the caller's.
func cloneRun(run *archive.ReportRun) *archive.ReportRun {
	cp := *run
	cp.Sections = slices.Clone(run.Sections)
	cp.SectionErrors = maps.Clone(run.SectionErrors)
	return &cp
}

func cloneBatch(batch *archive.BatchRun) *archive.BatchRun {
	cp := *batch
	if batch.FinishedAt != nil {
		finished := *batch.FinishedAt
		cp.FinishedAt = &finished
	}
	return &cp
}

var _ archive.Repository = (*Archive)(nil)
