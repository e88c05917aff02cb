// Package workflow holds the pure rules of the entity lifecycle: status
// transitions, stage progression, action templating, file review and progress.
package workflow

import (
	"errors"
	"fmt"

	"nppflow/domain/npp"
)

// ErrInvalidTransition is returned for status changes the lifecycle does not allow.
var ErrInvalidTransition = errors.New("invalid status transition")

var entityTransitions = map[npp.EntityStatus][]npp.EntityStatus{
	npp.EntityStatusProcessing: {npp.EntityStatusActive},
	npp.EntityStatusActive:     {npp.EntityStatusActive, npp.EntityStatusApproved, npp.EntityStatusArchive},
}

// CanTransition reports whether an entity may move from one status to another.
func CanTransition(from, to npp.EntityStatus) bool {
	for _, s := range entityTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// CheckTransition wraps ErrInvalidTransition with both statuses.
func CheckTransition(from, to npp.EntityStatus) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}

var fileTransitions = map[npp.ApprovalStatus][]npp.ApprovalStatus{
	npp.ApprovalInProgress: {npp.ApprovalSubmitted},
	npp.ApprovalSubmitted:  {npp.ApprovalApproved, npp.ApprovalInProgress},
}

// CheckFileTransition validates a review step for a model file.
func CheckFileTransition(from, to npp.ApprovalStatus) error {
	if from == "" {
		from = npp.ApprovalInProgress
	}
	for _, s := range fileTransitions[from] {
		if s == to {
			return nil
		}
	}
	return fmt.Errorf("%w: file %s -> %s", ErrInvalidTransition, from, to)
}
