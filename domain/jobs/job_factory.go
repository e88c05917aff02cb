package jobs

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// JobFactory creates new jobs with proper initialization
type JobFactory struct{}

// CreateRolloverJob creates a pending forecast rollover for an entity
func (jf *JobFactory) CreateRolloverJob(ctx RolloverJobContext) *Job {
	job := jf.newJob(JobTypeForecastRollover, ctx)
	job.EntityID = ctx.EntityID
	return job
}

// CreateRLSSyncJob creates a pending analytics access sync
func (jf *JobFactory) CreateRLSSyncJob(ctx RLSSyncJobContext) *Job {
	job := jf.newJob(JobTypeRLSSync, ctx)
	if len(ctx.EntityIDs) == 1 {
		job.EntityID = ctx.EntityIDs[0]
	}
	return job
}

func (jf *JobFactory) newJob(jobType JobType, jobCtx JobContextData) *Job {
	job := &Job{
		ID:        jf.generateJobID(jobType),
		Type:      jobType,
		Status:    JobStatusPending,
		StartedAt: time.Now(),
		Context:   jobCtx,
	}

	// Initialize progress tracking and rich state
	job.UpdateProgress("initializing", "Preparing job...", 0, 0, 0)
	job.InitializeState()

	return job
}

// generateJobID creates a unique job identifier
func (jf *JobFactory) generateJobID(jobType JobType) string {
	// Generate random component for uniqueness
	bytes := make([]byte, 4)
	if _, err := rand.Read(bytes); err != nil {
		// Fallback to timestamp-only if random fails
		return fmt.Sprintf("%s_%s", jobType, time.Now().Format("20060102_150405"))
	}

	return fmt.Sprintf("%s_%s_%s",
		jobType,
		time.Now().Format("20060102_150405"),
		hex.EncodeToString(bytes))
}
