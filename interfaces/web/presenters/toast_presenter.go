package presenters

import (
	"context"
	"strings"
	"time"

	"nppflow/domain/jobs"
	"nppflow/interfaces/web/templates/components/ui"
)

// ToastPresenter handles toast notification view logic and formatting.
type ToastPresenter struct{}

// NewToastPresenter creates a new toast presenter.
func NewToastPresenter() *ToastPresenter {
	return &ToastPresenter{}
}

// FormatToastNotification renders a simple toast to HTML.
func (p *ToastPresenter) FormatToastNotification(message, toastType string) (string, error) {
	var buf strings.Builder
	if err := ui.ToastNotification(message, toastType).Render(context.Background(), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// FormatRichJobToastNotification renders a toast summarising a finished job.
func (p *ToastPresenter) FormatRichJobToastNotification(job *jobs.Job) (string, error) {
	var buf strings.Builder
	if err := ui.RichToastNotification(p.createToastViewFromJob(job)).Render(context.Background(), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (p *ToastPresenter) createToastViewFromJob(job *jobs.Job) ui.ToastNotificationView {
	name := job.GetJobTypeDisplayName()

	var title, message string
	switch job.Status {
	case jobs.JobStatusCompleted:
		title = name + " Complete"
		message = "Finished successfully"
		if job.State.Stats.ErrorsEncountered > 0 {
			message = "Finished with errors"
		}
	case jobs.JobStatusFailed:
		title = name + " Failed"
		message = "Did not complete"
		if job.Error != "" {
			message = job.Error
		}
	case jobs.JobStatusCancelled:
		title = name + " Cancelled"
		message = "Cancelled before completion"
	default:
		title = name
		message = string(job.Status)
	}

	var duration string
	if job.CompletedAt != nil {
		duration = job.Duration().Round(time.Second).String()
	}

	return ui.ToastNotificationView{
		Title:     title,
		Message:   message,
		Type:      string(job.Status),
		JobType:   string(job.Type),
		Duration:  duration,
		EntityID:  job.EntityID,
		Stats:     toastStats(job),
		Timestamp: time.Now(),
	}
}

func toastStats(job *jobs.Job) []ui.ToastStat {
	s := job.State.Stats
	var stats []ui.ToastStat
	switch job.Type {
	case jobs.JobTypeForecastRollover:
		stats = []ui.ToastStat{
			{Label: "Geographies", Value: s.GeographiesProcessed},
			{Label: "Files archived", Value: s.FilesArchived},
			{Label: "Files reset", Value: s.FilesReset},
		}
	case jobs.JobTypeRLSSync:
		stats = []ui.ToastStat{
			{Label: "Groups", Value: s.GroupsSynced},
			{Label: "Added", Value: s.MembersAdded},
			{Label: "Removed", Value: s.MembersRemoved},
		}
	}
	if s.ErrorsEncountered > 0 {
		stats = append(stats, ui.ToastStat{Label: "Errors", Value: s.ErrorsEncountered, Alert: true})
	}
	return stats
}
