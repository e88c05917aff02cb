package contracts

import (
	"context"
	"time"

	"nppflow/domain/jobs"
)

// JobRepository persists background job records.
type JobRepository interface {
	GetJob(ctx context.Context, jobID string) (*jobs.Job, error)
	ListJobs(ctx context.Context) ([]*jobs.Job, error)
	ListJobsByType(ctx context.Context, jobType jobs.JobType) ([]*jobs.Job, error)
	ListActiveJobs(ctx context.Context) ([]*jobs.Job, error)
	CreateJob(ctx context.Context, job *jobs.Job) error
	UpdateJob(ctx context.Context, job *jobs.Job) error
	DeleteOldJobs(ctx context.Context, olderThan time.Time) error
}
