package events

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nppflow/domain/events"
	"nppflow/domain/jobs"
	"nppflow/domain/npp"
)

func createTestJob(jobID string, status jobs.JobStatus) *jobs.Job {
	job := &jobs.Job{
		ID:        jobID,
		Type:      jobs.JobTypeForecastRollover,
		Status:    status,
		EntityID:  42,
		StartedAt: time.Now(),
		Context:   jobs.RolloverJobContext{SiteURL: "https://test.sharepoint.com/sites/npp", EntityID: 42},
	}
	job.InitializeState()
	return job
}

func TestEventBus_PublishJobCompleted_Success(t *testing.T) {
	// Arrange
	eventBus := NewEventBus()
	job := createTestJob("test-job-1", jobs.JobStatusCompleted)

	done := make(chan events.JobCompletedEvent, 1)
	eventBus.OnJobCompleted(func(event events.JobCompletedEvent) {
		done <- event
	})

	// Act
	eventBus.PublishJobCompleted(events.JobCompletedEvent{Job: job, Timestamp: time.Now()})

	// Assert
	select {
	case received := <-done:
		assert.Equal(t, job.ID, received.Job.ID)
		assert.False(t, received.Timestamp.IsZero())
	case <-time.After(100 * time.Millisecond):
		t.Fatal("Handler was not called within timeout")
	}
}

func TestEventBus_PublishJobFailed_CarriesError(t *testing.T) {
	eventBus := NewEventBus()
	job := createTestJob("test-job-2", jobs.JobStatusFailed)

	done := make(chan events.JobFailedEvent, 1)
	eventBus.OnJobFailed(func(event events.JobFailedEvent) {
		done <- event
	})

	eventBus.PublishJobFailed(events.JobFailedEvent{Job: job, Error: "geography 7 failed", Timestamp: time.Now()})

	select {
	case received := <-done:
		assert.Equal(t, "geography 7 failed", received.Error)
	case <-time.After(100 * time.Millisecond):
		t.Fatal("Handler was not called within timeout")
	}
}

func TestEventBus_MultipleHandlers_AllCalled(t *testing.T) {
	eventBus := NewEventBus()

	var wg sync.WaitGroup
	wg.Add(3)
	var mu sync.Mutex
	calls := 0
	for i := 0; i < 3; i++ {
		eventBus.OnEntityStatusChanged(func(events.EntityStatusChangedEvent) {
			mu.Lock()
			calls++
			mu.Unlock()
			wg.Done()
		})
	}

	eventBus.PublishEntityStatusChanged(events.EntityStatusChangedEvent{
		EntityID: 42, From: npp.EntityStatusProcessing, To: npp.EntityStatusActive,
	})

	waitOrFail(t, &wg)
	assert.Equal(t, 3, calls)
}

func TestEventBus_PanickingHandler_DoesNotAffectOthers(t *testing.T) {
	eventBus := NewEventBus()

	done := make(chan struct{}, 1)
	eventBus.OnSeatDenied(func(events.SeatDeniedEvent) {
		panic("boom")
	})
	eventBus.OnSeatDenied(func(events.SeatDeniedEvent) {
		done <- struct{}{}
	})

	require.NotPanics(t, func() {
		eventBus.PublishSeatDenied(events.SeatDeniedEvent{EntityID: 1, GroupName: "OU-1", UserID: 9})
	})

	select {
	case <-done:
	case <-time.After(100 * time.Millisecond):
		t.Fatal("second handler was not called")
	}
}

func TestEventBus_NoHandlers_NoPanic(t *testing.T) {
	eventBus := NewEventBus()
	assert.NotPanics(t, func() {
		eventBus.PublishFileReviewed(events.FileReviewedEvent{FileURL: "/x"})
		eventBus.PublishFolderChanged(events.FolderChangedEvent{FolderURL: "/x"})
		eventBus.PublishJobCancelled(events.JobCancelledEvent{})
	})
}

func waitOrFail(t *testing.T, wg *sync.WaitGroup) {
	t.Helper()
	ch := make(chan struct{})
	go func() {
		wg.Wait()
		close(ch)
	}()
	select {
	case <-ch:
	case <-time.After(200 * time.Millisecond):
		t.Fatal("handlers did not finish in time")
	}
}
