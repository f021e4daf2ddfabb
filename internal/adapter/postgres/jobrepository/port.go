// Package jobrepository is the PostgreSQL job store.
package jobrepository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"gitlab.com/coderunner.net/internal/core/ports/primary"
	"gitlab.com/coderunner.net/internal/core/ports/secondary"
	"gitlab.com/coderunner.net/internal/domain"
	"gitlab.com/coderunner.net/internal/static/errs"
	querybuilder "gitlab.com/coderunner.net/internal/utils"
)

var (
	_ secondary.JobRepository = (*JobRepository)(nil)
	_ secondary.JobPurger     = (*JobRepository)(nil)
)

const schema = "public"

const createTable = `
CREATE TABLE IF NOT EXISTS public.execution_jobs (
	id            TEXT PRIMARY KEY,
	language      TEXT NOT NULL,
	status        TEXT NOT NULL,
	result        JSONB,
	error_message TEXT NOT NULL DEFAULT '',
	created_at    TIMESTAMPTZ NOT NULL,
	started_at    TIMESTAMPTZ,
	completed_at  TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS execution_jobs_completed_at_idx ON public.execution_jobs (completed_at);
`

// JobRepository implements the JobRepository interface with PostgreSQL.
// Transitions are single conditional UPDATEs, so the status guard is
// enforced by the database rather than by a read-modify-write.
type JobRepository struct {
	db     *sqlx.DB
	logger primary.Logger
}

// NewJobRepository creates a new PostgreSQL job repository
func NewJobRepository(db *sqlx.DB, logger primary.Logger) *JobRepository {
	return &JobRepository{
		db:     db,
		logger: logger,
	}
}

// Connect opens and pings a lib/pq connection pool.
func Connect(ctx context.Context, url string) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", url)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return db, nil
}

// EnsureSchema creates the jobs table when it does not exist.
func (r *JobRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createTable); err != nil {
		return fmt.Errorf("create jobs table: %w", err)
	}
	return nil
}

type jobRow struct {
	ID           string       `db:"id"`
	Language     string       `db:"language"`
	Status       string       `db:"status"`
	Result       []byte       `db:"result"`
	ErrorMessage string       `db:"error_message"`
	CreatedAt    time.Time    `db:"created_at"`
	StartedAt    sql.NullTime `db:"started_at"`
	CompletedAt  sql.NullTime `db:"completed_at"`
}

func (row jobRow) toDomain() (*domain.Job, error) {
	job := &domain.Job{
		ID:           row.ID,
		Language:     row.Language,
		Status:       domain.JobStatus(row.Status),
		ErrorMessage: row.ErrorMessage,
		CreatedAt:    row.CreatedAt.UTC(),
	}
	if row.StartedAt.Valid {
		t := row.StartedAt.Time.UTC()
		job.StartedAt = &t
	}
	if row.CompletedAt.Valid {
		t := row.CompletedAt.Time.UTC()
		job.CompletedAt = &t
	}
	if len(row.Result) > 0 {
		var v domain.Verdict
		if err := json.Unmarshal(row.Result, &v); err != nil {
			return nil, fmt.Errorf("failed to unmarshal verdict: %w", err)
		}
		job.Result = &v
	}
	return job, nil
}

func (r *JobRepository) CreateJob(ctx context.Context, job *domain.Job) error {
	tbl := domain.GetJobTable()
	query, args := querybuilder.NewQueryBuilder(schema).
		Insert(tbl.ID, tbl.Language, tbl.Status, tbl.ErrorMessage, tbl.CreatedAt).
		Into(tbl.TableName()).
		Values(job.ID, job.Language, string(job.Status), job.ErrorMessage, job.CreatedAt).
		OnConflict(tbl.ID).DoNothing().
		Build()

	res, err := r.db.ExecContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		r.logger.Error("Failed to save job", "jobId", job.ID, "error", err)
		return fmt.Errorf("failed to save job: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", errs.ErrJobExists, job.ID)
	}
	return nil
}

func (r *JobRepository) MarkRunning(ctx context.Context, jobID string) error {
	tbl := domain.GetJobTable()
	qb := querybuilder.NewQueryBuilder(schema).
		Update(tbl.TableName()).
		Set(tbl.Status, string(domain.JobStatusRunning)).
		Set(tbl.StartedAt, time.Now().UTC()).
		Where(tbl.ID+" = ?", jobID).
		And(tbl.Status+" = ?", string(domain.JobStatusPending))
	return r.transition(ctx, jobID, domain.JobStatusRunning, qb)
}

func (r *JobRepository) CompleteJob(ctx context.Context, jobID string, verdict *domain.Verdict) error {
	if verdict == nil {
		return fmt.Errorf("complete job %s: verdict is required", jobID)
	}
	data, err := json.Marshal(verdict)
	if err != nil {
		return fmt.Errorf("failed to marshal verdict: %w", err)
	}
	tbl := domain.GetJobTable()
	qb := querybuilder.NewQueryBuilder(schema).
		Update(tbl.TableName()).
		Set(tbl.Status, string(domain.JobStatusCompleted)).
		Set(tbl.Result, string(data)).
		Set(tbl.CompletedAt, time.Now().UTC())
	return r.transition(ctx, jobID, domain.JobStatusCompleted, nonTerminal(qb, jobID))
}

func (r *JobRepository) FailJob(ctx context.Context, jobID string, message string) error {
	tbl := domain.GetJobTable()
	qb := querybuilder.NewQueryBuilder(schema).
		Update(tbl.TableName()).
		Set(tbl.Status, string(domain.JobStatusFailed)).
		Set(tbl.ErrorMessage, message).
		Set(tbl.CompletedAt, time.Now().UTC())
	return r.transition(ctx, jobID, domain.JobStatusFailed, nonTerminal(qb, jobID))
}

func nonTerminal(qb querybuilder.QueryBuilder, jobID string) querybuilder.QueryBuilder {
	tbl := domain.GetJobTable()
	return qb.Where(tbl.ID+" = ?", jobID).
		And(tbl.Status+" = ANY(?)", pq.Array([]string{string(domain.JobStatusPending), string(domain.JobStatusRunning)}))
}

// transition runs a guarded UPDATE. When no row matched it tells a missing
// job apart from a disallowed transition.
func (r *JobRepository) transition(ctx context.Context, jobID string, to domain.JobStatus, qb querybuilder.QueryBuilder) error {
	query, args := qb.Build()
	res, err := r.db.ExecContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		r.logger.Error("Failed to update job", "jobId", jobID, "status", to, "error", err)
		return fmt.Errorf("failed to update job: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update job: %w", err)
	}
	if n > 0 {
		return nil
	}
	current, err := r.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	return fmt.Errorf("job %s: %s -> %s: %w", jobID, current.Status, to, errs.ErrInvalidTransition)
}

// GetJob retrieves a job from PostgreSQL by ID
func (r *JobRepository) GetJob(ctx context.Context, jobID string) (*domain.Job, error) {
	tbl := domain.GetJobTable()
	query, args := querybuilder.NewQueryBuilder(schema).
		Select(tbl.ID, tbl.Language, tbl.Status, tbl.Result, tbl.ErrorMessage, tbl.CreatedAt, tbl.StartedAt, tbl.CompletedAt).
		From(tbl.TableName()).
		Where(tbl.ID+" = ?", jobID).
		Build()

	var row jobRow
	if err := r.db.GetContext(ctx, &row, r.db.Rebind(query), args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", errs.ErrJobNotFound, jobID)
		}
		r.logger.Error("Failed to get job", "jobId", jobID, "error", err)
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return row.toDomain()
}

// PurgeExpired deletes terminal jobs completed before the cutoff.
func (r *JobRepository) PurgeExpired(ctx context.Context, before time.Time) (int64, error) {
	tbl := domain.GetJobTable()
	query, args := querybuilder.NewQueryBuilder(schema).
		Delete(tbl.TableName()).
		Where(tbl.CompletedAt+" < ?", before).
		And(tbl.Status+" = ANY(?)", pq.Array([]string{string(domain.JobStatusCompleted), string(domain.JobStatusFailed)})).
		Build()

	res, err := r.db.ExecContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		return 0, fmt.Errorf("failed to purge jobs: %w", err)
	}
	return res.RowsAffected()
}
