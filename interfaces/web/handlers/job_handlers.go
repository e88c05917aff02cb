package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"nppflow/application"
	"nppflow/domain/contracts"
	"nppflow/domain/jobs"
	"nppflow/interfaces/web/presenters"
	"nppflow/logging"
)

// JobHandlers handles job-related HTTP endpoints. Jobs are started by the
// entity and analytics handlers.
type JobHandlers struct {
	jobService   application.JobService
	jobPresenter *presenters.JobPresenter
	logger       *logging.Logger
}

// NewJobHandlers creates a new job handlers instance.
func NewJobHandlers(
	jobService application.JobService,
	jobPresenter *presenters.JobPresenter,
) *JobHandlers {
	return &JobHandlers{
		jobService:   jobService,
		jobPresenter: jobPresenter,
		logger:       logging.Default().WithComponent("job_handler"),
	}
}

// ListJobs returns all jobs, or those of ?type= when given.
func (h *JobHandlers) ListJobs(w http.ResponseWriter, r *http.Request) {
	var list []*jobs.Job
	if jobType := r.URL.Query().Get("type"); jobType != "" {
		list = h.jobService.ListJobsByType(jobs.JobType(jobType))
	} else {
		list = h.jobService.ListAllJobs()
	}
	respondJSON(w, http.StatusOK, h.jobPresenter.FormatJobList(list))
}

// GetJobStatus returns the current status of a job
func (h *JobHandlers) GetJobStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job, exists := h.jobService.GetJob(jobID)
	if !exists {
		respondWithError(w, http.StatusNotFound, "Job not found")
		return
	}
	respondJSON(w, http.StatusOK, h.jobPresenter.FormatJobStatus(job))
}

// CancelJob cancels a running job.
func (h *JobHandlers) CancelJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	if jobID == "" {
		respondWithError(w, http.StatusBadRequest, "missing job ID")
		return
	}

	job, err := h.jobService.CancelJob(jobID)
	if err != nil {
		h.logger.Error("Failed to cancel job", "job_id", jobID, "error", err)
		if errors.Is(err, contracts.ErrNotFound) {
			respondWithError(w, http.StatusNotFound, "Job not found")
			return
		}
		respondWithError(w, http.StatusConflict, err.Error())
		return
	}

	h.logger.Info("Job cancellation requested", "job_id", jobID)
	respondJSON(w, http.StatusOK, h.jobPresenter.FormatJobStatus(job))
}
