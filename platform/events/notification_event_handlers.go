package events

import (
	"fmt"

	"nppflow/domain/events"
	"nppflow/domain/jobs"
	"nppflow/domain/npp"
	"nppflow/logging"
)

// SSEBroadcaster defines the interface for SSE broadcasting
type SSEBroadcaster interface {
	BroadcastJobUpdate(jobID string, data string)
	BroadcastJobListUpdate()
	BroadcastEntityUpdate(entityID int)
	BroadcastFolderUpdate(folderURL string)
	BroadcastToast(message, toastType string)
	BroadcastRichJobToast(job *jobs.Job)
}

// NotificationEventHandlers turns bus events into client notifications
type NotificationEventHandlers struct {
	sseBroadcaster SSEBroadcaster
	logger         *logging.Logger
}

// NewNotificationEventHandlers creates event handlers for notifications
func NewNotificationEventHandlers(sseBroadcaster SSEBroadcaster) *NotificationEventHandlers {
	return &NotificationEventHandlers{
		sseBroadcaster: sseBroadcaster,
		logger:         logging.Default().WithComponent("notification_events"),
	}
}

// RegisterHandlers registers all notification event handlers with the event bus
func (h *NotificationEventHandlers) RegisterHandlers(eventBus *EventBus) {
	eventBus.OnJobCompleted(h.handleJobCompleted)
	eventBus.OnJobFailed(h.handleJobFailed)
	eventBus.OnJobCancelled(h.handleJobCancelled)
	eventBus.OnEntityStatusChanged(h.handleEntityStatusChanged)
	eventBus.OnFileReviewed(h.handleFileReviewed)
	eventBus.OnSeatDenied(h.handleSeatDenied)
	eventBus.OnFolderChanged(h.handleFolderChanged)
}

func jobID(job *jobs.Job) string {
	if job == nil {
		return "unknown"
	}
	return job.ID
}

func (h *NotificationEventHandlers) handleJobCompleted(event events.JobCompletedEvent) {
	h.logger.Info("Handling job completed event", "job_id", jobID(event.Job))
	h.sseBroadcaster.BroadcastRichJobToast(event.Job)
	h.sseBroadcaster.BroadcastJobListUpdate()
	if event.Job != nil && event.Job.EntityID > 0 {
		h.sseBroadcaster.BroadcastEntityUpdate(event.Job.EntityID)
	}
}

func (h *NotificationEventHandlers) handleJobFailed(event events.JobFailedEvent) {
	h.logger.Info("Handling job failed event", "job_id", jobID(event.Job), "error", event.Error)
	h.sseBroadcaster.BroadcastRichJobToast(event.Job)
	h.sseBroadcaster.BroadcastJobListUpdate()
}

func (h *NotificationEventHandlers) handleJobCancelled(event events.JobCancelledEvent) {
	h.logger.Info("Handling job cancelled event", "job_id", jobID(event.Job))
	h.sseBroadcaster.BroadcastRichJobToast(event.Job)
	h.sseBroadcaster.BroadcastJobListUpdate()
}

func (h *NotificationEventHandlers) handleEntityStatusChanged(event events.EntityStatusChangedEvent) {
	h.logger.Info("Handling entity status change", "entity_id", event.EntityID, "from", event.From, "to", event.To)
	h.sseBroadcaster.BroadcastEntityUpdate(event.EntityID)
	if event.To == npp.EntityStatusActive && event.From == npp.EntityStatusProcessing {
		h.sseBroadcaster.BroadcastToast(fmt.Sprintf("%s is ready", event.Title), "success")
	}
}

func (h *NotificationEventHandlers) handleFileReviewed(event events.FileReviewedEvent) {
	h.logger.Info("Handling file review", "file_url", event.FileURL, "status", event.Status)

	var toastType string
	var message string
	switch event.Status {
	case npp.ApprovalApproved:
		toastType, message = "success", fmt.Sprintf("%s approved", event.FileName)
	case npp.ApprovalSubmitted:
		toastType, message = "info", fmt.Sprintf("%s submitted for approval", event.FileName)
	default:
		toastType, message = "warning", fmt.Sprintf("%s returned for changes", event.FileName)
	}
	h.sseBroadcaster.BroadcastToast(message, toastType)
	h.sseBroadcaster.BroadcastEntityUpdate(event.EntityID)
}

func (h *NotificationEventHandlers) handleSeatDenied(event events.SeatDeniedEvent) {
	h.logger.Warn("Handling seat denial", "group", event.GroupName, "user_id", event.UserID)
	who := event.Email
	if who == "" {
		who = fmt.Sprintf("user %d", event.UserID)
	}
	h.sseBroadcaster.BroadcastToast(fmt.Sprintf("No seats available: %s was not added to %s", who, event.GroupName), "warning")
}

func (h *NotificationEventHandlers) handleFolderChanged(event events.FolderChangedEvent) {
	h.logger.Debug("Handling folder change", "folder_url", event.FolderURL, "files", event.FileCount)
	h.sseBroadcaster.BroadcastFolderUpdate(event.FolderURL)
}
