package executors

import (
	"context"
	"encoding/json"
	"fmt"

	"nppflow/application"
	"nppflow/domain/jobs"
	"nppflow/logging"
)

// Rollover runs a forecast-cycle rollover.
type Rollover interface {
	Rollover(ctx context.Context, in jobs.RolloverJobContext, progress application.ProgressReporter) (*application.RolloverResult, error)
}

// RolloverExecutor handles forecast rollover job execution
type RolloverExecutor struct {
	forecasts Rollover
	logger    *logging.Logger
}

// NewRolloverExecutor creates a new rollover executor
func NewRolloverExecutor(forecasts Rollover) *RolloverExecutor {
	return &RolloverExecutor{
		forecasts: forecasts,
		logger:    logging.Default().WithComponent("rollover_executor"),
	}
}

// Execute implements the JobExecutor interface for rollover jobs
func (e *RolloverExecutor) Execute(ctx context.Context, job *jobs.Job, progressCallback application.ProgressCallback) error {
	in, ok := job.Context.(jobs.RolloverJobContext)
	if !ok {
		return fmt.Errorf("job %s has no rollover context", job.ID)
	}
	e.logger.Info("Starting rollover execution", "jobID", job.ID, "entity_id", in.EntityID)

	metrics := NewRunMetrics()
	progressReporter := &ProgressAdapter{
		progressCallback: metrics.Track(progressCallback),
		logger:           e.logger,
	}
	result, err := e.forecasts.Rollover(ctx, in, progressReporter)
	metrics.Finish()
	metrics.Log(e.logger, job.ID)
	if result != nil {
		e.storeResultInJob(job, result)
	}
	if err != nil {
		return err
	}

	e.logger.Info("Rollover execution completed", "jobID", job.ID, "entity_id", in.EntityID,
		"cycle", result.Cycle.CycleNumber, "failed_geographies", result.Failed())
	return nil
}

// storeResultInJob stores the rollover summary in the job's Result field as JSON
// and tallies it into the job statistics.
func (e *RolloverExecutor) storeResultInJob(job *jobs.Job, result *application.RolloverResult) {
	stats := &job.State.Stats
	stats.GeographiesFound = len(result.Geographies)
	for _, g := range result.Geographies {
		stats.FilesArchived += g.Archived
		stats.FilesReset += g.Reset
		if g.Error != "" {
			stats.GeographiesFailed++
			job.RecordFailure(fmt.Sprintf("geography %d: %s", g.GeographyID, g.Error))
			continue
		}
		stats.GeographiesProcessed++
	}

	resultJSON, err := json.Marshal(result)
	if err != nil {
		e.logger.Warn("Failed to store detailed results in job", "job_id", job.ID, "error", err)
		return
	}
	job.Result = string(resultJSON)
}
