package events

import (
	"time"

	"nppflow/domain/npp"
)

// EntityStatusChangedEvent is raised after an entity's status is persisted.
type EntityStatusChangedEvent struct {
	EntityID  int
	Title     string
	From      npp.EntityStatus
	To        npp.EntityStatus
	Timestamp time.Time
}

// FileReviewedEvent is raised when a model file is submitted, approved or rejected.
type FileReviewedEvent struct {
	EntityID  int
	FileName  string
	FileURL   string
	Status    npp.ApprovalStatus
	ActorID   int
	Timestamp time.Time
}

// SeatDeniedEvent is raised when a user could not be added for lack of seats.
type SeatDeniedEvent struct {
	EntityID  int
	GroupName string
	UserID    int
	Email     string
	Timestamp time.Time
}

// FolderChangedEvent is raised after a folder's contents are refreshed.
type FolderChangedEvent struct {
	EntityID  int
	FolderURL string
	FileCount int
	Timestamp time.Time
}
