package jobs

import (
	"fmt"
	"time"
)

const (
	StageCompleted = "completed"
	StageFailed    = "failed"
	StageCancelled = "cancelled"

	maxMessages = 10
)

// JobLifecycle moves jobs between statuses. The zero value uses the wall clock.
type JobLifecycle struct {
	Now func() time.Time
}

func (jl *JobLifecycle) now() time.Time {
	if jl.Now != nil {
		return jl.Now()
	}
	return time.Now()
}

// StartJob moves a pending job to running.
func (jl *JobLifecycle) StartJob(job *Job) error {
	if job.Status != JobStatusPending {
		return fmt.Errorf("cannot start job in status: %s", job.Status)
	}

	job.Status = JobStatusRunning
	job.StartedAt = jl.now()
	job.InitializeState()
	return nil
}

// CompleteJob finishes a running job. A run whose items all failed still
// completes; the summary carries the failure count.
func (jl *JobLifecycle) CompleteJob(job *Job) error {
	if !job.IsActive() {
		return fmt.Errorf("cannot complete inactive job")
	}
	jl.finish(job, JobStatusCompleted)
	jl.finalizeJobState(job, StageCompleted, job.Summary())
	return nil
}

// FailJob ends a job that could not run to the end.
func (jl *JobLifecycle) FailJob(job *Job, errorMsg string) error {
	if !job.IsActive() {
		return fmt.Errorf("cannot fail inactive job")
	}
	job.Error = errorMsg
	jl.finish(job, JobStatusFailed)
	jl.finalizeJobState(job, StageFailed, fmt.Sprintf("Failed: %s (%s)", errorMsg, job.Summary()))
	return nil
}

// CancelJob ends a job on request. Work already done is not undone.
func (jl *JobLifecycle) CancelJob(job *Job) error {
	if !job.IsActive() {
		return fmt.Errorf("cannot cancel inactive job")
	}
	jl.finish(job, JobStatusCancelled)
	jl.finalizeJobState(job, StageCancelled, fmt.Sprintf("Cancelled: %s", job.Summary()))
	return nil
}

func (jl *JobLifecycle) finish(job *Job, status JobStatus) {
	job.Status = status
	now := jl.now()
	job.CompletedAt = &now
}

func (jl *JobLifecycle) finalizeJobState(job *Job, stage, operation string) {
	now := jl.now()

	if n := len(job.State.Timeline); n > 0 {
		last := &job.State.Timeline[n-1]
		if last.Completed == nil {
			last.Completed = &now
			last.Duration = now.Sub(last.Started).String()
		}
	}

	job.State.Stage = stage
	job.State.CurrentOperation = operation
	job.State.StageStartedAt = now
	if stage == StageCompleted {
		job.State.Progress.Percentage = 100
	}

	job.State.Messages = append(job.State.Messages, fmt.Sprintf("[%s] %s", stage, operation))
	if len(job.State.Messages) > maxMessages {
		job.State.Messages = job.State.Messages[len(job.State.Messages)-maxMessages:]
	}
}

// Summary describes what the job has done so far in terms of its type.
func (j *Job) Summary() string {
	s := j.State.Stats
	switch j.Type {
	case JobTypeForecastRollover:
		return fmt.Sprintf("%d of %d geographies rolled over, %d files archived, %d reset, %d failed",
			s.GeographiesProcessed, s.GeographiesFound, s.FilesArchived, s.FilesReset, s.GeographiesFailed)
	case JobTypeRLSSync:
		return fmt.Sprintf("%d of %d RLS groups synced, %d members added, %d removed, %d failed",
			s.GroupsSynced, s.EntitiesFound, s.MembersAdded, s.MembersRemoved, s.ErrorsEncountered)
	}
	return fmt.Sprintf("%d errors", s.ErrorsEncountered)
}
