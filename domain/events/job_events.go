package events

import (
	"time"

	"nppflow/domain/jobs"
)

// JobCompletedEvent represents a job that has completed successfully
type JobCompletedEvent struct {
	Job       *jobs.Job
	Timestamp time.Time
}

// JobFailedEvent represents a job that has failed
type JobFailedEvent struct {
	Job       *jobs.Job
	Error     string
	Timestamp time.Time
}

// JobCancelledEvent represents a job that was cancelled
type JobCancelledEvent struct {
	Job       *jobs.Job
	Timestamp time.Time
}
