package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/yks-coach/coach-hub/internal/domain/archive"
	"github.com/yks-coach/coach-hub/internal/domain/shared"
)

// ArchiveRepository implements archive.Repository for PostgreSQL.
type ArchiveRepository struct {
	conn *Connection
}

// NewArchiveRepository creates a new ArchiveRepository.
func NewArchiveRepository(conn *Connection) *ArchiveRepository {
	return &ArchiveRepository{conn: conn}
}

// ══════════════════════════════════════════════════════════════════════════════
// REPORT RUNS
// ══════════════════════════════════════════════════════════════════════════════

func (r *ArchiveRepository) SaveRun(ctx context.Context, run *archive.ReportRun) error {
	q, err := r.conn.querier()
	if err != nil {
		return err
	}

	sectionErrors, err := json.Marshal(nonNilMap(run.SectionErrors))
	if err != nil {
		return fmt.Errorf("failed to marshal section errors: %w", err)
	}
	sections := run.Sections
	if sections == nil {
		sections = []string{}
	}

	_, err = q.Exec(ctx, `
		INSERT INTO report_runs (
			id, student_id, student_name, format, filename, fingerprint, pages,
			size_bytes, sections, section_errors, trigger, batch_id, cache_hit, generated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NULLIF($12, '')::uuid, $13, $14)`,
		run.ID, run.StudentID, run.StudentName, run.Format, run.Filename, run.Fingerprint, run.Pages,
		run.SizeBytes, sections, sectionErrors, string(run.Trigger), run.BatchID, run.CacheHit, run.GeneratedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.WrapError("archive", "SaveRun", shared.ErrInvalidEntity, "duplicate report run", err)
		}
		return fmt.Errorf("failed to insert report run: %w", err)
	}
	return nil
}

func (r *ArchiveRepository) ListRuns(ctx context.Context, studentID string, opts archive.ListOptions) ([]*archive.ReportRun, error) {
	opts = opts.Normalize()
	q, err := r.conn.querier()
	if err != nil {
		return nil, err
	}

	rows, err := q.Query(ctx, `
		SELECT id::text, student_id, student_name, format, filename, fingerprint, pages,
		       size_bytes, sections, section_errors, trigger, COALESCE(batch_id::text, ''),
		       cache_hit, generated_at
		FROM report_runs
		WHERE student_id = $1
		ORDER BY generated_at DESC
		LIMIT $2 OFFSET $3`,
		studentID, opts.Limit, opts.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query report runs: %w", err)
	}
	defer rows.Close()

	runs := make([]*archive.ReportRun, 0, opts.Limit)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func scanRun(row pgx.Row) (*archive.ReportRun, error) {
	var (
		run           archive.ReportRun
		trigger       string
		sectionErrors []byte
	)
	err := row.Scan(
		&run.ID, &run.StudentID, &run.StudentName, &run.Format, &run.Filename, &run.Fingerprint, &run.Pages,
		&run.SizeBytes, &run.Sections, &sectionErrors, &trigger, &run.BatchID,
		&run.CacheHit, &run.GeneratedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan report run: %w", err)
	}
	run.Trigger = archive.Trigger(trigger)

	if len(sectionErrors) > 0 {
		if err := json.Unmarshal(sectionErrors, &run.SectionErrors); err != nil {
			return nil, fmt.Errorf("failed to unmarshal section errors: %w", err)
		}
		if len(run.SectionErrors) == 0 {
			run.SectionErrors = nil
		}
	}
	return &run, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// BATCH RUNS
// ══════════════════════════════════════════════════════════════════════════════

func (r *ArchiveRepository) SaveBatch(ctx context.Context, batch *archive.BatchRun) error {
	q, err := r.conn.querier()
	if err != nil {
		return err
	}

	_, err = q.Exec(ctx, `
		INSERT INTO batch_runs (id, started_at, finished_at, students, succeeded, failed, error)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			finished_at = EXCLUDED.finished_at,
			students = EXCLUDED.students,
			succeeded = EXCLUDED.succeeded,
			failed = EXCLUDED.failed,
			error = EXCLUDED.error`,
		batch.ID, batch.StartedAt, batch.FinishedAt, batch.Students, batch.Succeeded, batch.Failed, batch.Error,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert batch run: %w", err)
	}
	return nil
}

func (r *ArchiveRepository) LastBatch(ctx context.Context) (*archive.BatchRun, error) {
	q, err := r.conn.querier()
	if err != nil {
		return nil, err
	}

	var b archive.BatchRun
	err = q.QueryRow(ctx, `
		SELECT id::text, started_at, finished_at, students, succeeded, failed, error
		FROM batch_runs
		ORDER BY started_at DESC
		LIMIT 1`,
	).Scan(&b.ID, &b.StartedAt, &b.FinishedAt, &b.Students, &b.Succeeded, &b.Failed, &b.Error)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrNoBatchRun
		}
		return nil, fmt.Errorf("failed to query last batch: %w", err)
	}
	return &b, nil
}

func nonNilMap(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}

var _ archive.Repository = (*ArchiveRepository)(nil)
