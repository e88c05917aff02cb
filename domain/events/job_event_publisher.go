package events

// JobEventPublisher defines the interface for publishing job-related events.
type JobEventPublisher interface {
	PublishJobCompleted(event JobCompletedEvent)
	PublishJobFailed(event JobFailedEvent)
	PublishJobCancelled(event JobCancelledEvent)
}

// WorkflowEventPublisher publishes entity and file lifecycle events.
type WorkflowEventPublisher interface {
	PublishEntityStatusChanged(event EntityStatusChangedEvent)
	PublishFileReviewed(event FileReviewedEvent)
	PublishSeatDenied(event SeatDeniedEvent)
	PublishFolderChanged(event FolderChangedEvent)
}
