package postgres

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 001: REPORT RUNS
// ══════════════════════════════════════════════════════════════════════════════

const migration001Up = `
CREATE TABLE IF NOT EXISTS report_runs (
    id UUID PRIMARY KEY,
    student_id VARCHAR(100) NOT NULL,
    student_name VARCHAR(200) NOT NULL DEFAULT '',
    format VARCHAR(10) NOT NULL,
    filename VARCHAR(255) NOT NULL,
    fingerprint CHAR(32) NOT NULL,
    pages INTEGER NOT NULL DEFAULT 0,
    size_bytes INTEGER NOT NULL DEFAULT 0,
    sections TEXT[] NOT NULL DEFAULT '{}',
    section_errors JSONB NOT NULL DEFAULT '{}'::jsonb,
    trigger VARCHAR(20) NOT NULL,
    batch_id UUID,
    cache_hit BOOLEAN NOT NULL DEFAULT FALSE,
    generated_at TIMESTAMP WITH TIME ZONE NOT NULL,

    CONSTRAINT valid_format CHECK (format IN ('pdf', 'xlsx')),
    CONSTRAINT valid_trigger CHECK (trigger IN ('api', 'cli', 'schedule')),
    CONSTRAINT valid_pages CHECK (pages >= 0)
);

CREATE INDEX IF NOT EXISTS idx_report_runs_student_date ON report_runs(student_id, generated_at DESC);
CREATE INDEX IF NOT EXISTS idx_report_runs_batch ON report_runs(batch_id) WHERE batch_id IS NOT NULL;
`

const migration001Down = `
DROP TABLE IF EXISTS report_runs;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 002: BATCH RUNS
// ══════════════════════════════════════════════════════════════════════════════

const migration002Up = `
CREATE TABLE IF NOT EXISTS batch_runs (
    id UUID PRIMARY KEY,
    started_at TIMESTAMP WITH TIME ZONE NOT NULL,
    finished_at TIMESTAMP WITH TIME ZONE,
    students INTEGER NOT NULL DEFAULT 0,
    succeeded INTEGER NOT NULL DEFAULT 0,
    failed INTEGER NOT NULL DEFAULT 0,
    error TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_batch_runs_started_at ON batch_runs(started_at DESC);
`

const migration002Down = `
DROP TABLE IF EXISTS batch_runs;
`

// Migrations returns the embedded migrations in version order.
func Migrations() []Migration {
	return []Migration{
		{Version: 1, Name: "create_report_runs", UpSQL: migration001Up, DownSQL: migration001Down},
		{Version: 2, Name: "create_batch_runs", UpSQL: migration002Up, DownSQL: migration002Down},
	}
}
