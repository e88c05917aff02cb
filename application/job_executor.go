package application

import (
	"context"

	"nppflow/domain/jobs"
)

// JobExecutor defines the interface for executing specific job types
type JobExecutor interface {
	Execute(ctx context.Context, job *jobs.Job, progressCallback ProgressCallback) error
}

// ProgressCallback is called during job execution to report progress
type ProgressCallback func(stage, description string, percentage, itemsDone, itemsTotal int)

// ProgressReporter defines the interface for progress reporting in long operations
type ProgressReporter interface {
	ReportProgress(stage, description string, percentage int)
	ReportItemProgress(stage, description string, percentage, itemsDone, itemsTotal int)
}
