package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"nppflow/database"
	"nppflow/domain/contracts"
	"nppflow/domain/jobs"
	"nppflow/infrastructure/serialization"
)

const jobColumns = `job_id, job_type, status, entity_id, state_json, context_json, result, error, started_at, completed_at`

// SQLJobRepository implements contracts.JobRepository with read/write separation.
type SQLJobRepository struct {
	*BaseRepository
	serializer *serialization.JobStateSerializer
}

// NewSQLJobRepository creates a new job repository with read/write database separation.
func NewSQLJobRepository(database *database.Database) contracts.JobRepository {
	return &SQLJobRepository{
		BaseRepository: NewBaseRepository(database),
		serializer:     serialization.NewJobStateSerializer(),
	}
}

// CreateJob creates a new job in the database.
func (r *SQLJobRepository) CreateJob(ctx context.Context, job *jobs.Job) error {
	stateJSON, err := r.serializer.SerializeState(job.State)
	if err != nil {
		return err
	}
	contextJSON, err := r.serializer.SerializeContextData(job.Context)
	if err != nil {
		return err
	}

	_, err = r.WriteDB().ExecContext(ctx, `
		INSERT INTO jobs (job_id, job_type, status, entity_id, site_url, state_json, context_json, started_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID, string(job.Type), string(job.Status), job.EntityID, job.GetSiteURL(),
		stateJSON, contextJSON, r.FormatTime(job.StartedAt), r.FormatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("failed to insert job %s: %w", job.ID, err)
	}
	return nil
}

// UpdateJob updates a complete job record
func (r *SQLJobRepository) UpdateJob(ctx context.Context, job *jobs.Job) error {
	stateJSON, err := r.serializer.SerializeState(job.State)
	if err != nil {
		return err
	}

	res, err := r.WriteDB().ExecContext(ctx, `
		UPDATE jobs
		SET status = ?, state_json = ?, result = ?, error = ?, started_at = ?, completed_at = ?, updated_at = ?
		WHERE job_id = ?`,
		string(job.Status), stateJSON, job.Result, job.Error,
		r.FormatTime(job.StartedAt), r.ToNullTime(job.CompletedAt), r.FormatTime(time.Now()), job.ID)
	if err != nil {
		return fmt.Errorf("failed to update job %s: %w", job.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("job %s: %w", job.ID, contracts.ErrNotFound)
	}
	return nil
}

// GetJob retrieves a single job by ID. A missing job is (nil, nil).
func (r *SQLJobRepository) GetJob(ctx context.Context, jobID string) (*jobs.Job, error) {
	row := r.ReadDB().QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE job_id = ?`, jobID)
	job, err := r.scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil // Job not found
	}
	return job, err
}

// ListJobs retrieves all jobs, newest first
func (r *SQLJobRepository) ListJobs(ctx context.Context) ([]*jobs.Job, error) {
	return r.queryJobs(ctx, `SELECT `+jobColumns+` FROM jobs ORDER BY started_at DESC`)
}

// ListJobsByType retrieves jobs filtered by type
func (r *SQLJobRepository) ListJobsByType(ctx context.Context, jobType jobs.JobType) ([]*jobs.Job, error) {
	return r.queryJobs(ctx, `SELECT `+jobColumns+` FROM jobs WHERE job_type = ? ORDER BY started_at DESC`, string(jobType))
}

// ListActiveJobs retrieves all active (pending/running) jobs.
func (r *SQLJobRepository) ListActiveJobs(ctx context.Context) ([]*jobs.Job, error) {
	return r.queryJobs(ctx, `SELECT `+jobColumns+` FROM jobs WHERE status IN (?, ?) ORDER BY started_at DESC`,
		string(jobs.JobStatusPending), string(jobs.JobStatusRunning))
}

// DeleteOldJobs deletes finished jobs that completed before olderThan
func (r *SQLJobRepository) DeleteOldJobs(ctx context.Context, olderThan time.Time) error {
	_, err := r.WriteDB().ExecContext(ctx, `
		DELETE FROM jobs
		WHERE completed_at IS NOT NULL AND completed_at < ? AND status NOT IN (?, ?)`,
		r.FormatTime(olderThan), string(jobs.JobStatusPending), string(jobs.JobStatusRunning))
	if err != nil {
		return fmt.Errorf("failed to delete old jobs: %w", err)
	}
	return nil
}

func (r *SQLJobRepository) queryJobs(ctx context.Context, query string, args ...any) ([]*jobs.Job, error) {
	rows, err := r.ReadDB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query jobs: %w", err)
	}
	defer rows.Close()

	jobList := make([]*jobs.Job, 0)
	for rows.Next() {
		job, err := r.scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobList = append(jobList, job)
	}
	return jobList, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanJob converts a jobs row into a domain job
func (r *SQLJobRepository) scanJob(row rowScanner) (*jobs.Job, error) {
	var (
		job                    jobs.Job
		jobType, status        string
		stateJSON, contextJSON string
		startedAt, completedAt sql.NullString
	)
	if err := row.Scan(&job.ID, &jobType, &status, &job.EntityID, &stateJSON, &contextJSON,
		&job.Result, &job.Error, &startedAt, &completedAt); err != nil {
		return nil, err
	}

	job.Type = jobs.JobType(jobType)
	job.Status = jobs.JobStatus(status)
	if t := r.FromNullTime(startedAt); t != nil {
		job.StartedAt = *t
	}
	job.CompletedAt = r.FromNullTime(completedAt)

	if state, err := r.serializer.DeserializeState(stateJSON); err == nil {
		job.State = state
	} else {
		// Initialize default state if deserialization fails
		job.InitializeState()
	}

	if jobCtx, err := r.serializer.DeserializeContextData(job.Type, contextJSON); err == nil {
		job.Context = jobCtx
	}

	return &job, nil
}
