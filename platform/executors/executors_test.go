package executors

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nppflow/application"
	"nppflow/domain/jobs"
)

type rolloverFunc func(ctx context.Context, in jobs.RolloverJobContext, progress application.ProgressReporter) (*application.RolloverResult, error)

func (f rolloverFunc) Rollover(ctx context.Context, in jobs.RolloverJobContext, progress application.ProgressReporter) (*application.RolloverResult, error) {
	return f(ctx, in, progress)
}

type rlsFunc func(ctx context.Context, in jobs.RLSSyncJobContext, progress application.ProgressReporter) (*application.RLSSyncResult, error)

func (f rlsFunc) SyncRLS(ctx context.Context, in jobs.RLSSyncJobContext, progress application.ProgressReporter) (*application.RLSSyncResult, error) {
	return f(ctx, in, progress)
}

func newJob(jobCtx jobs.JobContextData) *jobs.Job {
	job := &jobs.Job{ID: "job-1", Status: jobs.JobStatusRunning, Context: jobCtx}
	job.InitializeState()
	return job
}

func TestRolloverExecutor_Execute_TalliesGeographies(t *testing.T) {
	// Arrange
	var calls []string
	executor := NewRolloverExecutor(rolloverFunc(func(ctx context.Context, in jobs.RolloverJobContext, progress application.ProgressReporter) (*application.RolloverResult, error) {
		progress.ReportItemProgress("archiving", "Rolling over geography 9", 50, 1, 2)
		return &application.RolloverResult{
			EntityID: in.EntityID,
			Geographies: []application.GeographyRollover{
				{GeographyID: 9, Archived: 2, Reset: 3},
				{GeographyID: 12, Error: "list 429"},
			},
		}, nil
	}))
	job := newJob(jobs.RolloverJobContext{EntityID: 42})
	progress := func(stage, description string, percentage, itemsDone, itemsTotal int) {
		calls = append(calls, stage)
	}

	// Act
	err := executor.Execute(context.Background(), job, progress)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, []string{"archiving"}, calls)
	stats := job.State.Stats
	assert.Equal(t, 2, stats.GeographiesFound)
	assert.Equal(t, 1, stats.GeographiesProcessed)
	assert.Equal(t, 1, stats.GeographiesFailed)
	assert.Equal(t, 2, stats.FilesArchived)
	assert.Equal(t, 3, stats.FilesReset)
	assert.Equal(t, 1, stats.ErrorsEncountered)
	assert.Equal(t, []string{"geography 12: list 429"}, job.State.Failures)

	var stored application.RolloverResult
	require.NoError(t, json.Unmarshal([]byte(job.Result), &stored))
	assert.Equal(t, 42, stored.EntityID)
}

func TestRolloverExecutor_Execute_WrongContext(t *testing.T) {
	executor := NewRolloverExecutor(nil)

	err := executor.Execute(context.Background(), newJob(jobs.RLSSyncJobContext{}), func(string, string, int, int, int) {})

	assert.Error(t, err)
}

func TestRLSSyncExecutor_Execute(t *testing.T) {
	tests := []struct {
		name       string
		result     *application.RLSSyncResult
		err        error
		wantErr    bool
		wantSynced int
	}{
		{
			name: "counts_members",
			result: &application.RLSSyncResult{Entities: []application.RLSEntitySync{
				{EntityID: 42, Added: 2, Removed: 1},
				{EntityID: 43, Error: "throttled"},
			}},
			wantSynced: 1,
		},
		{
			name:    "listing_failure",
			err:     errors.New("list entities failed"),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			executor := NewRLSSyncExecutor(rlsFunc(func(context.Context, jobs.RLSSyncJobContext, application.ProgressReporter) (*application.RLSSyncResult, error) {
				return tt.result, tt.err
			}))
			job := newJob(jobs.RLSSyncJobContext{Scheduled: true})

			err := executor.Execute(context.Background(), job, func(string, string, int, int, int) {})

			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantSynced, job.State.Stats.GroupsSynced)
			assert.Equal(t, 2, job.State.Stats.MembersAdded)
			assert.Equal(t, 1, job.State.Stats.MembersRemoved)
			assert.Len(t, job.State.Failures, 1)
		})
	}
}

func TestRunMetrics_TimesEachStage(t *testing.T) {
	// Arrange
	clock := time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)
	metrics := newRunMetrics(func() time.Time { return clock })
	var forwarded int
	track := metrics.Track(func(string, string, int, int, int) { forwarded++ })

	// Act
	clock = clock.Add(time.Second)
	track("archiving", "geo 9", 10, 1, 4)
	clock = clock.Add(3 * time.Second)
	track("archiving", "geo 12", 40, 2, 4)
	clock = clock.Add(2 * time.Second)
	track("resetting", "geo 9", 60, 3, 4)
	clock = clock.Add(4 * time.Second)
	metrics.Finish()

	// Assert
	assert.Equal(t, 3, forwarded)
	assert.Equal(t, []string{"archiving", "resetting"}, metrics.StageOrder)
	assert.Equal(t, 5*time.Second, metrics.StageDurations["archiving"])
	assert.Equal(t, 4*time.Second, metrics.StageDurations["resetting"])
	assert.Equal(t, 10*time.Second, metrics.TotalDuration)
	assert.Equal(t, 3, metrics.ItemsProcessed)
	assert.InDelta(t, 0.3, metrics.ProcessingRate(), 0.0001)
}
