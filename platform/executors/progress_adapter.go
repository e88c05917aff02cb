package executors

import (
	"nppflow/application"
	"nppflow/logging"
)

// ProgressAdapter adapts service progress reporting to the job system's progress callback
type ProgressAdapter struct {
	progressCallback application.ProgressCallback
	logger           *logging.Logger
}

// ReportProgress implements the ProgressReporter interface
func (a *ProgressAdapter) ReportProgress(stage, description string, percentage int) {
	a.logger.Debug("Job progress", "stage", stage, "description", description, "percentage", percentage)
	a.progressCallback(stage, description, percentage, 0, 0)
}

// ReportItemProgress implements the ProgressReporter interface with item counts
func (a *ProgressAdapter) ReportItemProgress(stage, description string, percentage, itemsDone, itemsTotal int) {
	a.logger.Debug("Job item progress", "stage", stage, "description", description,
		"percentage", percentage, "itemsDone", itemsDone, "itemsTotal", itemsTotal)
	a.progressCallback(stage, description, percentage, itemsDone, itemsTotal)
}
