package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"

	"nppflow/application"
	"nppflow/domain/contracts"
	"nppflow/domain/npp"
	"nppflow/interfaces/web/auth"
	"nppflow/interfaces/web/presenters"
	"nppflow/logging"
	"nppflow/platform/refresh"
)

// FileWorkflow is the file lifecycle the handlers drive.
type FileWorkflow interface {
	ListFiles(ctx context.Context, q application.FolderQuery) (contracts.Result[npp.File], error)
	RefreshFolder(ctx context.Context, q application.FolderQuery) error
	Upload(ctx context.Context, req application.UploadRequest) (*npp.File, error)
	Submit(ctx context.Context, req application.ReviewRequest) (*npp.File, error)
	Approve(ctx context.Context, req application.ReviewRequest) (*npp.File, error)
	Reject(ctx context.Context, req application.ReviewRequest) (*npp.File, error)
	Comment(ctx context.Context, req application.ReviewRequest) (*npp.File, error)
	EntityOf(fileURL string) (int, error)
}

// FileHandlers serves folder listings, uploads and the review workflow.
type FileHandlers struct {
	files     FileWorkflow
	owners    OwnerAuthorizer
	refresher *refresh.Coalescer
	presenter *presenters.FilePresenter
	maxUpload int64
	logger    *logging.Logger
}

// NewFileHandlers creates file handlers. Uploads larger than maxUpload bytes are
// refused. Approving and rejecting require the caller to own the file's entity.
func NewFileHandlers(files FileWorkflow, owners OwnerAuthorizer, refresher *refresh.Coalescer, presenter *presenters.FilePresenter, maxUpload int64) *FileHandlers {
	return &FileHandlers{
		files:     files,
		owners:    owners,
		refresher: refresher,
		presenter: presenter,
		maxUpload: maxUpload,
		logger:    logging.Default().WithComponent("file_handler"),
	}
}

func folderQuery(r *http.Request) (application.FolderQuery, error) {
	entityID, err := intParam(r, "entityID")
	if err != nil {
		return application.FolderQuery{}, err
	}
	root, err := npp.ParseFolderRoot(r.URL.Query().Get("bucket"))
	if err != nil {
		return application.FolderQuery{}, err
	}
	q := application.FolderQuery{EntityID: entityID, Root: root}
	for name, dst := range map[string]*int{
		"department": &q.DepartmentID,
		"geography":  &q.GeographyID,
		"stage":      &q.StageID,
		"cycle":      &q.CycleID,
	} {
		if *dst, err = intQuery(r, name); err != nil {
			return application.FolderQuery{}, err
		}
	}
	if err := validate.Struct(q); err != nil {
		return application.FolderQuery{}, err
	}
	return q, nil
}

func respondBadQuery(w http.ResponseWriter, err error) {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		respondValidationError(w, err)
		return
	}
	respondWithError(w, http.StatusBadRequest, err.Error())
}

// ListFiles returns one folder's files.
func (h *FileHandlers) ListFiles(w http.ResponseWriter, r *http.Request) {
	q, err := folderQuery(r)
	if err != nil {
		respondBadQuery(w, err)
		return
	}
	res, err := h.files.ListFiles(r.Context(), q)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, h.presenter.FormatFolder(res))
}

// RefreshFolder re-reads a folder in the background. Bursts for the same
// folder collapse into one running refresh plus one follow-up.
func (h *FileHandlers) RefreshFolder(w http.ResponseWriter, r *http.Request) {
	q, err := folderQuery(r)
	if err != nil {
		respondBadQuery(w, err)
		return
	}
	key := fmt.Sprintf("%d/%s/%d/%d/%d/%d", q.EntityID, q.Root, q.DepartmentID, q.GeographyID, q.StageID, q.CycleID)
	started := h.refresher.Trigger(key, func(ctx context.Context) error {
		return h.files.RefreshFolder(ctx, q)
	})
	respondJSON(w, http.StatusAccepted, map[string]bool{"started": started})
}

// Upload stores a multipart file in the entity's model or document folder.
func (h *FileHandlers) Upload(w http.ResponseWriter, r *http.Request) {
	entityID, err := intParam(r, "entityID")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "no caller")
		return
	}

	if h.maxUpload > 0 {
		if r.ContentLength > h.maxUpload {
			respondWithError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("upload exceeds %d bytes", h.maxUpload))
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondWithError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("upload exceeds %d bytes", tooLarge.Limit))
			return
		}
		respondWithError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "missing file")
		return
	}
	defer file.Close()
	content, err := io.ReadAll(file)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "could not read file")
		return
	}

	req := application.UploadRequest{
		EntityID:  entityID,
		Name:      header.Filename,
		Content:   content,
		Overwrite: r.FormValue("overwrite") == "true",
		Uploader:  *user,
	}
	for name, dst := range map[string]*int{
		"department": &req.DepartmentID,
		"geography":  &req.GeographyID,
		"stage":      &req.StageID,
	} {
		if *dst, err = formInt(r, name); err != nil {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	if req.ScenarioIDs, err = intList(r.FormValue("scenarios")); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.IndicationIDs, err = intList(r.FormValue("indications")); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	uploaded, err := h.files.Upload(r.Context(), req)
	if err != nil {
		h.logger.WithContext(r.Context()).SharePoint("Upload failed", "entity_id", entityID, "name", req.Name, "error", err)
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, h.presenter.FormatFile(*uploaded))
}

func formInt(r *http.Request, name string) (int, error) {
	raw := r.FormValue(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return v, nil
}

func (h *FileHandlers) review(op func(context.Context, application.ReviewRequest) (*npp.File, error), ownerOnly bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req application.ReviewRequest
		if !decodeAndValidate(w, r, &req) {
			return
		}
		user, ok := auth.UserFromContext(r.Context())
		if !ok {
			respondWithError(w, http.StatusUnauthorized, "no caller")
			return
		}
		req.Actor = *user
		if ownerOnly {
			entityID, err := h.files.EntityOf(req.FileURL)
			if err != nil {
				respondWithError(w, http.StatusBadRequest, err.Error())
				return
			}
			if err := h.owners.AuthorizeOwner(r.Context(), entityID, *user); err != nil {
				respondServiceError(w, err)
				return
			}
		}
		file, err := op(r.Context(), req)
		if err != nil {
			h.logger.WithContext(r.Context()).Warn("Review operation failed", "file_url", req.FileURL, "path", r.URL.Path, "error", err)
			respondServiceError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, h.presenter.FormatFile(*file))
	}
}

// Submit sends a WIP model for approval.
func (h *FileHandlers) Submit(w http.ResponseWriter, r *http.Request) {
	h.review(h.files.Submit, false)(w, r)
}

// Approve copies a submitted model into Approved.
func (h *FileHandlers) Approve(w http.ResponseWriter, r *http.Request) {
	h.review(h.files.Approve, true)(w, r)
}

// Reject returns a submitted model with a rejection comment.
func (h *FileHandlers) Reject(w http.ResponseWriter, r *http.Request) {
	h.review(h.files.Reject, true)(w, r)
}

// Comment appends to a model's comment thread.
func (h *FileHandlers) Comment(w http.ResponseWriter, r *http.Request) {
	h.review(h.files.Comment, false)(w, r)
}
