package mocks

import (
	"github.com/stretchr/testify/mock"

	"nppflow/domain/events"
)

// MockJobEventPublisher is a mock implementation of JobEventPublisher for testing
type MockJobEventPublisher struct {
	mock.Mock
}

func (m *MockJobEventPublisher) PublishJobCompleted(event events.JobCompletedEvent) {
	m.Called(event)
}

func (m *MockJobEventPublisher) PublishJobFailed(event events.JobFailedEvent) {
	m.Called(event)
}

func (m *MockJobEventPublisher) PublishJobCancelled(event events.JobCancelledEvent) {
	m.Called(event)
}

// MockWorkflowEventPublisher is a mock implementation of WorkflowEventPublisher for testing
type MockWorkflowEventPublisher struct {
	mock.Mock
}

func (m *MockWorkflowEventPublisher) PublishEntityStatusChanged(event events.EntityStatusChangedEvent) {
	m.Called(event)
}

func (m *MockWorkflowEventPublisher) PublishFileReviewed(event events.FileReviewedEvent) {
	m.Called(event)
}

func (m *MockWorkflowEventPublisher) PublishSeatDenied(event events.SeatDeniedEvent) {
	m.Called(event)
}

func (m *MockWorkflowEventPublisher) PublishFolderChanged(event events.FolderChangedEvent) {
	m.Called(event)
}
