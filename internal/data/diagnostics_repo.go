package data

import (
	"context"
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	apperrors "github.com/nemde-api/jobs-api/internal/errors"
)

// PgxDiagnosticsRepo records raw failure diagnostics to Postgres for
// offline analysis. Diagnostics are captured once per job; the results view
// only ever exposes a generic marker to callers.
type PgxDiagnosticsRepo struct {
	pool *pgxpool.Pool
}

// NewPgxDiagnosticsRepo creates a diagnostics repository on the given pool.
func NewPgxDiagnosticsRepo(pool *pgxpool.Pool) *PgxDiagnosticsRepo {
	return &PgxDiagnosticsRepo{pool: pool}
}

// EnsureSchema creates the diagnostics table if it does not exist.
func (r *PgxDiagnosticsRepo) EnsureSchema(ctx context.Context) error {
	const ddl = `
		CREATE TABLE IF NOT EXISTS job_failures (
			job_id      TEXT PRIMARY KEY,
			exc_info    TEXT NOT NULL,
			recorded_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`
	if _, err := r.pool.Exec(ctx, ddl); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeStore, "ensure diagnostics schema")
	}
	return nil
}

// Record stores the raw failure info for a job. A duplicate insert for the
// same job is a benign no-op; the first capture wins.
func (r *PgxDiagnosticsRepo) Record(ctx context.Context, jobID, failureInfo string) error {
	const stmt = `INSERT INTO job_failures (job_id, exc_info) VALUES ($1, $2)`
	if _, err := r.pool.Exec(ctx, stmt, jobID, failureInfo); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return nil
		}
		return apperrors.Wrapf(err, apperrors.ErrCodeStore, "record diagnostics for job %s", jobID)
	}
	return nil
}
