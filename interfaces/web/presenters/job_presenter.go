package presenters

import (
	"time"

	"nppflow/domain/jobs"
)

// JobStatusView represents the status of a job for API responses
type JobStatusView struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	DisplayName string `json:"display_name"`
	Status      string `json:"status"`
	EntityID    int    `json:"entity_id,omitempty"`
	Progress    string `json:"progress"`
	Percentage  int    `json:"percentage"`
	Stage       string `json:"stage"`
	Description string `json:"description"`
	StartedAt   string `json:"started_at"`
	CompletedAt string `json:"completed_at,omitempty"`
	IsActive    bool   `json:"is_active"`
	IsComplete  bool   `json:"is_complete"`
	Error       string `json:"error,omitempty"`

	CurrentItem    string            `json:"current_item,omitempty"`
	Context        jobs.JobContext   `json:"context"`
	Timeline       []JobStageDisplay `json:"timeline,omitempty"`
	Stats          jobs.JobStats     `json:"stats"`
	Failures       []string          `json:"failures,omitempty"`
	RecentMessages []string          `json:"recent_messages,omitempty"`
	StageDuration  string            `json:"stage_duration,omitempty"`
}

// JobStageDisplay represents a stage in the job timeline for UI display
type JobStageDisplay struct {
	Stage     string `json:"stage"`
	Started   string `json:"started"`
	Completed string `json:"completed,omitempty"`
	Duration  string `json:"duration,omitempty"`
}

// JobListView represents a list of jobs
type JobListView struct {
	Jobs []*JobStatusView `json:"jobs"`
}

// JobPresenter transforms job domain data into API views.
type JobPresenter struct {
	now func() time.Time
}

// NewJobPresenter creates a job presenter.
func NewJobPresenter() *JobPresenter {
	return &JobPresenter{now: time.Now}
}

// FormatJobStatus converts job data to view model with progress, timeline, and stats.
func (p *JobPresenter) FormatJobStatus(job *jobs.Job) *JobStatusView {
	if job == nil {
		return nil
	}

	stage := "initializing"
	if job.State.Stage != "" {
		stage = job.State.Stage
	}
	description := "Job created"
	if job.State.CurrentOperation != "" {
		description = job.State.CurrentOperation
	}

	view := &JobStatusView{
		ID:             job.ID,
		Type:           string(job.Type),
		DisplayName:    job.GetJobTypeDisplayName(),
		Status:         string(job.Status),
		EntityID:       job.EntityID,
		Progress:       job.GetProgressString(),
		Percentage:     job.State.Progress.Percentage,
		Stage:          stage,
		Description:    description,
		StartedAt:      job.StartedAt.Format(time.RFC3339),
		IsActive:       job.IsActive(),
		IsComplete:     job.IsComplete(),
		Error:          job.Error,
		CurrentItem:    job.State.CurrentItem,
		Context:        job.State.Context,
		Stats:          job.State.Stats,
		Failures:       job.State.Failures,
		RecentMessages: job.State.Messages,
	}
	if job.CompletedAt != nil {
		view.CompletedAt = job.CompletedAt.Format(time.RFC3339)
	}

	// How long the current stage has been running
	if job.IsActive() && !job.State.StageStartedAt.IsZero() {
		view.StageDuration = p.now().Sub(job.State.StageStartedAt).Truncate(time.Second).String()
	}

	view.Timeline = make([]JobStageDisplay, len(job.State.Timeline))
	for i, s := range job.State.Timeline {
		d := JobStageDisplay{
			Stage:   s.Stage,
			Started: s.Started.Format("15:04:05"),
		}
		if s.Completed != nil {
			d.Completed = s.Completed.Format("15:04:05")
			d.Duration = s.Duration
		}
		view.Timeline[i] = d
	}

	return view
}

// FormatJobList converts multiple jobs to list view model.
func (p *JobPresenter) FormatJobList(list []*jobs.Job) *JobListView {
	views := make([]*JobStatusView, 0, len(list))
	for _, job := range list {
		if v := p.FormatJobStatus(job); v != nil {
			views = append(views, v)
		}
	}
	return &JobListView{Jobs: views}
}
