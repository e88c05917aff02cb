package application

import (
	"nppflow/domain/jobs"
)

// UpdateNotifier defines interface for update notifications.
type UpdateNotifier interface {
	NotifyUpdate()
	NotifyJobUpdate(jobID string, job *jobs.Job)
}

// JobService runs rollover and access-sync jobs in the background.
type JobService interface {
	// Job creation and execution (unified operation)
	StartJob(jobType jobs.JobType, jobCtx jobs.JobContextData) (*jobs.Job, error)

	// Job lifecycle operations
	CreateJob(jobType jobs.JobType, jobCtx jobs.JobContextData) (*jobs.Job, error)
	GetJob(jobID string) (*jobs.Job, bool)
	CancelJob(jobID string) (*jobs.Job, error)

	// Job listing and filtering
	ListAllJobs() []*jobs.Job
	ListJobsByType(jobType jobs.JobType) []*jobs.Job
	ListActiveJobs() []*jobs.Job
	ActiveJobFor(jobType jobs.JobType, entityID int) (*jobs.Job, bool)

	// Job progress tracking
	UpdateJobProgress(jobID string, stage, description string, percentage, itemsDone, itemsTotal int) error

	// Notifications
	SetUpdateNotifier(notifier UpdateNotifier)
}
