package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"nppflow/application"
	"nppflow/domain/contracts"
	"nppflow/domain/jobs"
	"nppflow/domain/npp"
	"nppflow/interfaces/web/auth"
	"nppflow/logging"
)

// Analytics serves Power BI reports and directory photos.
type Analytics interface {
	Reports(ctx context.Context) ([]contracts.Report, error)
	Pages(ctx context.Context, reportID string) ([]contracts.ReportPage, error)
	EmbedConfig(ctx context.Context, reportID string, user npp.User) (*application.EmbedConfig, error)
	UserPhoto(ctx context.Context, email string) ([]byte, string, error)
}

// AnalyticsHandlers serves the reporting endpoints and starts RLS syncs.
type AnalyticsHandlers struct {
	analytics  Analytics
	jobService application.JobService
	siteURL    string
	logger     *logging.Logger
}

// NewAnalyticsHandlers creates analytics handlers.
func NewAnalyticsHandlers(analytics Analytics, jobService application.JobService, siteURL string) *AnalyticsHandlers {
	return &AnalyticsHandlers{
		analytics:  analytics,
		jobService: jobService,
		siteURL:    siteURL,
		logger:     logging.Default().WithComponent("analytics_handler"),
	}
}

type rlsSyncRequest struct {
	EntityIDs []int `json:"entityIds" validate:"dive,gt=0"`
}

// Reports lists the workspace reports.
func (h *AnalyticsHandlers) Reports(w http.ResponseWriter, r *http.Request) {
	reports, err := h.analytics.Reports(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, reports)
}

// Pages lists one report's pages.
func (h *AnalyticsHandlers) Pages(w http.ResponseWriter, r *http.Request) {
	pages, err := h.analytics.Pages(r.Context(), chi.URLParam(r, "reportID"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, pages)
}

// Embed issues an embed token filtered to the caller's entities.
func (h *AnalyticsHandlers) Embed(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "no caller")
		return
	}
	cfg, err := h.analytics.EmbedConfig(r.Context(), chi.URLParam(r, "reportID"), *user)
	if err != nil {
		h.logger.WithContext(r.Context()).Error("Embed config failed", "report_id", chi.URLParam(r, "reportID"), "error", err)
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, cfg)
}

// StartRLSSync queues a row-level security sync for the given or all active entities.
func (h *AnalyticsHandlers) StartRLSSync(w http.ResponseWriter, r *http.Request) {
	var req rlsSyncRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	job, err := h.jobService.StartJob(jobs.JobTypeRLSSync, jobs.RLSSyncJobContext{SiteURL: h.siteURL, EntityIDs: req.EntityIDs})
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusAccepted, map[string]string{"jobId": job.ID})
}

// UserPhoto proxies a directory profile photo.
func (h *AnalyticsHandlers) UserPhoto(w http.ResponseWriter, r *http.Request) {
	data, contentType, err := h.analytics.UserPhoto(r.Context(), chi.URLParam(r, "email"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if contentType == "" {
		contentType = "image/jpeg"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "private, max-age=3600")
	_, _ = w.Write(data)
}
