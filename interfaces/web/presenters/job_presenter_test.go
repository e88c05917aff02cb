package presenters

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nppflow/domain/jobs"
)

func createTestJob(id string, jobType jobs.JobType, status jobs.JobStatus) *jobs.Job {
	job := &jobs.Job{
		ID:        id,
		Type:      jobType,
		Status:    status,
		EntityID:  42,
		StartedAt: time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC),
		Context:   jobs.RolloverJobContext{SiteURL: "https://contoso.sharepoint.com/sites/npp", EntityID: 42},
	}
	job.InitializeState()
	return job
}

func TestJobPresenter_FormatJobStatus_BasicFields(t *testing.T) {
	// Arrange
	presenter := NewJobPresenter()
	job := createTestJob("job-123", jobs.JobTypeForecastRollover, jobs.JobStatusRunning)

	// Act
	result := presenter.FormatJobStatus(job)

	// Assert
	require.NotNil(t, result)
	assert.Equal(t, "job-123", result.ID)
	assert.Equal(t, "forecast_rollover", result.Type)
	assert.Equal(t, "Forecast Rollover", result.DisplayName)
	assert.Equal(t, 42, result.EntityID)
	assert.Equal(t, "2026-05-04T10:00:00Z", result.StartedAt)
	assert.True(t, result.IsActive)
	assert.False(t, result.IsComplete)
	assert.Empty(t, result.CompletedAt)
}

func TestJobPresenter_FormatJobStatus_ProgressAndStats(t *testing.T) {
	presenter := NewJobPresenter()
	presenter.now = func() time.Time { return time.Now().Add(90 * time.Second) }
	job := createTestJob("job-1", jobs.JobTypeForecastRollover, jobs.JobStatusRunning)
	job.UpdateProgress("archiving", "Rolling over geography 9", 50, 1, 2)
	job.State.Stats.FilesArchived = 3
	job.RecordFailure("geography 12: list 429")

	result := presenter.FormatJobStatus(job)

	assert.Equal(t, 50, result.Percentage)
	assert.Equal(t, "archiving", result.Stage)
	assert.Equal(t, "Rolling over geography 9", result.Description)
	assert.Equal(t, 3, result.Stats.FilesArchived)
	assert.Equal(t, 1, result.Stats.ErrorsEncountered)
	assert.Equal(t, []string{"geography 12: list 429"}, result.Failures)
	assert.NotEmpty(t, result.StageDuration)
	require.NotEmpty(t, result.Timeline)
	assert.Equal(t, "archiving", result.Timeline[len(result.Timeline)-1].Stage)
}

func TestJobPresenter_FormatJobStatus_Completed(t *testing.T) {
	presenter := NewJobPresenter()
	job := createTestJob("job-1", jobs.JobTypeRLSSync, jobs.JobStatusCompleted)
	done := job.StartedAt.Add(time.Minute)
	job.CompletedAt = &done

	result := presenter.FormatJobStatus(job)

	assert.Equal(t, "2026-05-04T10:01:00Z", result.CompletedAt)
	assert.True(t, result.IsComplete)
	assert.Empty(t, result.StageDuration)
}

func TestJobPresenter_FormatJobList(t *testing.T) {
	presenter := NewJobPresenter()

	tests := []struct {
		name string
		jobs []*jobs.Job
		want []string
	}{
		{"empty", nil, []string{}},
		{"skips_nil", []*jobs.Job{
			createTestJob("a", jobs.JobTypeRLSSync, jobs.JobStatusPending),
			nil,
			createTestJob("b", jobs.JobTypeForecastRollover, jobs.JobStatusFailed),
		}, []string{"a", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			list := presenter.FormatJobList(tt.jobs)

			ids := []string{}
			for _, v := range list.Jobs {
				ids = append(ids, v.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestJobPresenter_NilSafety(t *testing.T) {
	assert.Nil(t, NewJobPresenter().FormatJobStatus(nil))
}
