package executors

import (
	"context"
	"encoding/json"
	"fmt"

	"nppflow/application"
	"nppflow/domain/jobs"
	"nppflow/logging"
)

// RLSSync mirrors entity users into report security groups.
type RLSSync interface {
	SyncRLS(ctx context.Context, in jobs.RLSSyncJobContext, progress application.ProgressReporter) (*application.RLSSyncResult, error)
}

// RLSSyncExecutor handles analytics access sync job execution
type RLSSyncExecutor struct {
	analytics RLSSync
	logger    *logging.Logger
}

// NewRLSSyncExecutor creates a new RLS sync executor
func NewRLSSyncExecutor(analytics RLSSync) *RLSSyncExecutor {
	return &RLSSyncExecutor{
		analytics: analytics,
		logger:    logging.Default().WithComponent("rls_sync_executor"),
	}
}

// Execute implements the JobExecutor interface for RLS sync jobs
func (e *RLSSyncExecutor) Execute(ctx context.Context, job *jobs.Job, progressCallback application.ProgressCallback) error {
	in, ok := job.Context.(jobs.RLSSyncJobContext)
	if !ok {
		return fmt.Errorf("job %s has no rls sync context", job.ID)
	}
	e.logger.Info("Starting RLS sync execution", "jobID", job.ID, "entities", len(in.EntityIDs), "scheduled", in.Scheduled)

	metrics := NewRunMetrics()
	result, err := e.analytics.SyncRLS(ctx, in, &ProgressAdapter{progressCallback: metrics.Track(progressCallback), logger: e.logger})
	metrics.Finish()
	metrics.Log(e.logger, job.ID)
	if result != nil {
		stats := &job.State.Stats
		stats.EntitiesFound = len(result.Entities)
		for _, r := range result.Entities {
			stats.MembersAdded += r.Added
			stats.MembersRemoved += r.Removed
			if r.Error != "" {
				job.RecordFailure(fmt.Sprintf("entity %d: %s", r.EntityID, r.Error))
				continue
			}
			stats.GroupsSynced++
		}
		if resultJSON, jsonErr := json.Marshal(result); jsonErr == nil {
			job.Result = string(resultJSON)
		}
	}
	if err != nil {
		return err
	}

	e.logger.Info("RLS sync execution completed", "jobID", job.ID,
		"groups_synced", job.State.Stats.GroupsSynced, "errors", job.State.Stats.ErrorsEncountered)
	return nil
}
