package events

import (
	"sync"

	"nppflow/domain/events"
	"nppflow/logging"
)

// EventBus provides type-safe publishing and subscription for job and workflow events.
// Handlers run asynchronously; a panicking handler is logged and does not affect the others.
type EventBus struct {
	mu     sync.RWMutex
	logger *logging.Logger

	jobCompletedHandlers  []func(events.JobCompletedEvent)
	jobFailedHandlers     []func(events.JobFailedEvent)
	jobCancelledHandlers  []func(events.JobCancelledEvent)
	statusChangedHandlers []func(events.EntityStatusChangedEvent)
	fileReviewedHandlers  []func(events.FileReviewedEvent)
	seatDeniedHandlers    []func(events.SeatDeniedEvent)
	folderChangedHandlers []func(events.FolderChangedEvent)
}

// NewEventBus creates a new typed event bus
func NewEventBus() *EventBus {
	return &EventBus{
		logger: logging.Default().WithComponent("event_bus"),
	}
}

// Subscribe methods for each event type

func (bus *EventBus) OnJobCompleted(handler func(events.JobCompletedEvent)) {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	bus.jobCompletedHandlers = append(bus.jobCompletedHandlers, handler)
}

func (bus *EventBus) OnJobFailed(handler func(events.JobFailedEvent)) {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	bus.jobFailedHandlers = append(bus.jobFailedHandlers, handler)
}

func (bus *EventBus) OnJobCancelled(handler func(events.JobCancelledEvent)) {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	bus.jobCancelledHandlers = append(bus.jobCancelledHandlers, handler)
}

func (bus *EventBus) OnEntityStatusChanged(handler func(events.EntityStatusChangedEvent)) {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	bus.statusChangedHandlers = append(bus.statusChangedHandlers, handler)
}

func (bus *EventBus) OnFileReviewed(handler func(events.FileReviewedEvent)) {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	bus.fileReviewedHandlers = append(bus.fileReviewedHandlers, handler)
}

func (bus *EventBus) OnSeatDenied(handler func(events.SeatDeniedEvent)) {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	bus.seatDeniedHandlers = append(bus.seatDeniedHandlers, handler)
}

func (bus *EventBus) OnFolderChanged(handler func(events.FolderChangedEvent)) {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	bus.folderChangedHandlers = append(bus.folderChangedHandlers, handler)
}

// Publish methods for each event type

func (bus *EventBus) PublishJobCompleted(event events.JobCompletedEvent) {
	bus.mu.RLock()
	handlers := append(([]func(events.JobCompletedEvent))(nil), bus.jobCompletedHandlers...)
	bus.mu.RUnlock()
	dispatch(bus.logger, "JobCompleted", handlers, event, "job_id", jobID(event.Job))
}

func (bus *EventBus) PublishJobFailed(event events.JobFailedEvent) {
	bus.mu.RLock()
	handlers := append(([]func(events.JobFailedEvent))(nil), bus.jobFailedHandlers...)
	bus.mu.RUnlock()
	dispatch(bus.logger, "JobFailed", handlers, event, "job_id", jobID(event.Job), "error", event.Error)
}

func (bus *EventBus) PublishJobCancelled(event events.JobCancelledEvent) {
	bus.mu.RLock()
	handlers := append(([]func(events.JobCancelledEvent))(nil), bus.jobCancelledHandlers...)
	bus.mu.RUnlock()
	dispatch(bus.logger, "JobCancelled", handlers, event, "job_id", jobID(event.Job))
}

func (bus *EventBus) PublishEntityStatusChanged(event events.EntityStatusChangedEvent) {
	bus.mu.RLock()
	handlers := append(([]func(events.EntityStatusChangedEvent))(nil), bus.statusChangedHandlers...)
	bus.mu.RUnlock()
	dispatch(bus.logger, "EntityStatusChanged", handlers, event, "entity_id", event.EntityID)
}

func (bus *EventBus) PublishFileReviewed(event events.FileReviewedEvent) {
	bus.mu.RLock()
	handlers := append(([]func(events.FileReviewedEvent))(nil), bus.fileReviewedHandlers...)
	bus.mu.RUnlock()
	dispatch(bus.logger, "FileReviewed", handlers, event, "file_url", event.FileURL)
}

func (bus *EventBus) PublishSeatDenied(event events.SeatDeniedEvent) {
	bus.mu.RLock()
	handlers := append(([]func(events.SeatDeniedEvent))(nil), bus.seatDeniedHandlers...)
	bus.mu.RUnlock()
	dispatch(bus.logger, "SeatDenied", handlers, event, "group", event.GroupName)
}

func (bus *EventBus) PublishFolderChanged(event events.FolderChangedEvent) {
	bus.mu.RLock()
	handlers := append(([]func(events.FolderChangedEvent))(nil), bus.folderChangedHandlers...)
	bus.mu.RUnlock()
	dispatch(bus.logger, "FolderChanged", handlers, event, "folder_url", event.FolderURL)
}

// dispatch runs each handler on its own goroutine so the publisher never blocks.
func dispatch[E any](logger *logging.Logger, name string, handlers []func(E), event E, attrs ...any) {
	for _, handler := range handlers {
		go func(h func(E)) {
			defer func() {
				if r := recover(); r != nil {
					args := append([]any{"event", name, "panic", r}, attrs...)
					logger.Error("Event handler panicked", args...)
				}
			}()
			h(event)
		}(handler)
	}
}
