package jobs

import (
	"fmt"
	"time"
)

// JobStatus represents the status of a job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// JobType represents the type of job.
type JobType string

const (
	JobTypeForecastRollover JobType = "forecast_rollover"
	JobTypeRLSSync          JobType = "rls_sync"
)

// JobProgress represents detailed progress information.
type JobProgress struct {
	Stage       string `json:"stage"`       // Current stage (e.g., "Archiving", "Resetting")
	Description string `json:"description"` // Detailed description
	Percentage  int    `json:"percentage"`  // Progress percentage (0-100)
	ItemsTotal  int    `json:"items_total"` // Total items to process (if known)
	ItemsDone   int    `json:"items_done"`  // Items processed so far
}

// JobStageInfo represents information about a stage in the job timeline.
type JobStageInfo struct {
	Stage     string     `json:"stage"`
	Started   time.Time  `json:"started"`
	Completed *time.Time `json:"completed,omitempty"`
	Duration  string     `json:"duration,omitempty"`
}

// JobContext represents what the job is working on right now.
type JobContext struct {
	EntityID     int    `json:"entity_id,omitempty"`
	EntityTitle  string `json:"entity_title,omitempty"`
	GeographyID  int    `json:"geography_id,omitempty"`
	DepartmentID int    `json:"department_id,omitempty"`
	CurrentFile  string `json:"current_file,omitempty"`
	GroupName    string `json:"group_name,omitempty"`
}

// JobStats represents statistics about the job execution.
type JobStats struct {
	GeographiesFound     int `json:"geographies_found"`
	GeographiesProcessed int `json:"geographies_processed"`
	GeographiesFailed    int `json:"geographies_failed"`
	FilesArchived        int `json:"files_archived"`
	FilesReset           int `json:"files_reset"`
	EntitiesFound        int `json:"entities_found"`
	GroupsSynced         int `json:"groups_synced"`
	MembersAdded         int `json:"members_added"`
	MembersRemoved       int `json:"members_removed"`
	ErrorsEncountered    int `json:"errors_encountered"`
}

// JobContextData represents the generic interface for job-specific context data.
type JobContextData interface {
	GetType() string
}

// RolloverJobContext is the input of a forecast-cycle rollover.
type RolloverJobContext struct {
	SiteURL     string `json:"site_url"`
	EntityID    int    `json:"entity_id"`
	RequestedBy int    `json:"requested_by,omitempty"`
	CycleTitle  string `json:"cycle_title,omitempty"`
}

// GetType implements JobContextData interface.
func (c RolloverJobContext) GetType() string {
	return "rollover"
}

// RLSSyncJobContext is the input of a row-level security group sync.
// An empty EntityIDs means every active entity.
type RLSSyncJobContext struct {
	SiteURL   string `json:"site_url"`
	EntityIDs []int  `json:"entity_ids,omitempty"`
	Scheduled bool   `json:"scheduled,omitempty"`
}

// GetType implements JobContextData interface.
func (c RLSSyncJobContext) GetType() string {
	return "rls_sync"
}

// JobState represents the complete rich state of a job stored as JSON.
type JobState struct {
	Stage            string         `json:"stage"`
	StageStartedAt   time.Time      `json:"stage_started_at"`
	CurrentOperation string         `json:"current_operation"`
	CurrentItem      string         `json:"current_item,omitempty"`
	Progress         JobProgress    `json:"progress"`
	Context          JobContext     `json:"context"`
	Timeline         []JobStageInfo `json:"timeline"`
	Stats            JobStats       `json:"stats"`
	Messages         []string       `json:"messages,omitempty"` // Recent status messages
	Failures         []string       `json:"failures,omitempty"` // Per-item failures that did not stop the job
}

// Job represents a background job with progress tracking and state management.
type Job struct {
	ID          string
	Type        JobType
	Status      JobStatus
	EntityID    int // Entity the job operates on, 0 for site-wide jobs
	StartedAt   time.Time
	CompletedAt *time.Time
	State       JobState // Job state information (always initialized)
	Result      string
	Error       string
	Context     JobContextData // Generic context for job-specific data
}

// IsActive returns true if the job is still running or pending.
func (j *Job) IsActive() bool {
	return j.Status == JobStatusPending || j.Status == JobStatusRunning
}

// IsComplete returns true if the job has finished (successfully, with error, or cancelled).
func (j *Job) IsComplete() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed || j.Status == JobStatusCancelled
}

// GetSiteURL returns the site URL from the job context, or empty string if not available.
func (j *Job) GetSiteURL() string {
	switch c := j.Context.(type) {
	case RolloverJobContext:
		return c.SiteURL
	case RLSSyncJobContext:
		return c.SiteURL
	}
	return ""
}

// RecordFailure notes a per-item failure without failing the job.
func (j *Job) RecordFailure(msg string) {
	j.State.Failures = append(j.State.Failures, msg)
	j.State.Stats.ErrorsEncountered++
}

// GetJobTypeDisplayName returns a human-readable display name for the job type.
func (j *Job) GetJobTypeDisplayName() string {
	switch j.Type {
	case JobTypeForecastRollover:
		return "Forecast Rollover"
	case JobTypeRLSSync:
		return "Analytics Access Sync"
	default:
		return string(j.Type)
	}
}

// Duration returns how long the job has been running, or total duration if complete.
func (j *Job) Duration() time.Duration {
	if j.CompletedAt != nil {
		return j.CompletedAt.Sub(j.StartedAt)
	}
	return time.Since(j.StartedAt)
}

// UpdateProgress updates the job progress with detailed information.
func (j *Job) UpdateProgress(stage, description string, percentage, itemsDone, itemsTotal int) {
	// Update state progress directly
	j.State.Progress = JobProgress{
		Stage:       stage,
		Description: description,
		Percentage:  percentage,
		ItemsTotal:  itemsTotal,
		ItemsDone:   itemsDone,
	}

	// Update current operation in state
	j.State.CurrentOperation = description

	// Handle stage transitions
	if j.State.Stage != stage {
		j.State.Stage = stage
		j.State.StageStartedAt = time.Now()

		// Update timeline if initialized
		if len(j.State.Timeline) > 0 {
			// Complete the previous stage
			lastStage := &j.State.Timeline[len(j.State.Timeline)-1]
			if lastStage.Completed == nil {
				now := time.Now()
				lastStage.Completed = &now
				lastStage.Duration = now.Sub(lastStage.Started).String()
			}
		}

		// Add new stage to timeline
		j.State.Timeline = append(j.State.Timeline, JobStageInfo{
			Stage:   stage,
			Started: time.Now(),
		})
	}
}

// GetProgressString returns a human-readable progress string.
func (j *Job) GetProgressString() string {
	if j.State.CurrentItem != "" {
		return fmt.Sprintf("%s: %s - %s (%d%%)",
			j.State.Stage,
			j.State.CurrentOperation,
			j.State.CurrentItem,
			j.State.Progress.Percentage)
	}

	if j.State.Progress.ItemsTotal > 0 {
		if j.State.Stats.ErrorsEncountered > 0 {
			return fmt.Sprintf("%s: %s (%d/%d, %d failed)",
				j.State.Stage,
				j.State.CurrentOperation,
				j.State.Progress.ItemsDone,
				j.State.Progress.ItemsTotal,
				j.State.Stats.ErrorsEncountered)
		}
		return fmt.Sprintf("%s: %s (%d/%d)",
			j.State.Stage,
			j.State.CurrentOperation,
			j.State.Progress.ItemsDone,
			j.State.Progress.ItemsTotal)
	}

	// Show stage, description and percentage as fallback
	return fmt.Sprintf("%s: %s (%d%%)",
		j.State.Stage,
		j.State.CurrentOperation,
		j.State.Progress.Percentage)
}

// InitializeState initializes the job state with basic information and timeline.
func (j *Job) InitializeState() {
	j.State = JobState{
		Stage:            "initializing",
		StageStartedAt:   time.Now(),
		CurrentOperation: "Preparing job...",
		Progress: JobProgress{
			Stage:       "initializing",
			Description: "Preparing job...",
			Percentage:  0,
		},
		Context: JobContext{}, // Job context information
		Timeline: []JobStageInfo{
			{
				Stage:   "initializing",
				Started: time.Now(),
			},
		},
		Stats:    JobStats{},
		Messages: []string{},
	}
}

// UpdateState updates the job's rich state information with stage management and timeline tracking.
func (j *Job) UpdateState(stage, operation, currentItem string, percentage int, context JobContext, stats JobStats) {
	// Handle stage transitions with timeline management
	if j.State.Stage != stage {
		// Complete the previous stage in timeline
		if len(j.State.Timeline) > 0 {
			lastStage := &j.State.Timeline[len(j.State.Timeline)-1]
			if lastStage.Completed == nil {
				now := time.Now()
				lastStage.Completed = &now
				lastStage.Duration = now.Sub(lastStage.Started).String()
			}
		}

		// Add new stage to timeline
		j.State.Timeline = append(j.State.Timeline, JobStageInfo{
			Stage:   stage,
			Started: time.Now(),
		})
		j.State.Stage = stage
		j.State.StageStartedAt = time.Now()
	}

	j.State.CurrentOperation = operation
	j.State.CurrentItem = currentItem
	j.State.Progress = JobProgress{
		Stage:       stage,
		Description: operation,
		Percentage:  percentage,
		ItemsTotal:  j.State.Progress.ItemsTotal,
		ItemsDone:   j.State.Progress.ItemsDone,
	}
	j.State.Context = context
	j.State.Stats = stats

	// Maintain rolling buffer of last 10 status messages
	message := fmt.Sprintf("[%s] %s", stage, operation)
	j.State.Messages = append(j.State.Messages, message)
	if len(j.State.Messages) > 10 {
		j.State.Messages = j.State.Messages[1:]
	}
}
