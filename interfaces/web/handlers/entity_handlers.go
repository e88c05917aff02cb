package handlers

import (
	"context"
	"net/http"

	"nppflow/application"
	"nppflow/domain/contracts"
	"nppflow/domain/jobs"
	"nppflow/domain/npp"
	"nppflow/interfaces/web/auth"
	"nppflow/logging"
)

// EntityWorkflow is the entity lifecycle the handlers drive.
type EntityWorkflow interface {
	GetEntity(ctx context.Context, entityID int) (*npp.Entity, error)
	CreateEntity(ctx context.Context, req application.CreateEntityRequest) (*application.InitResult, error)
	InitializeEntity(ctx context.Context, entityID int) (*application.InitResult, error)
	Progress(ctx context.Context, entityID int) (*application.ProgressReport, error)
	NextStage(ctx context.Context, entityID int) (npp.MasterStage, bool, error)
	AdvanceStage(ctx context.Context, entityID int, force bool) (*npp.Stage, error)
	CompleteEntity(ctx context.Context, entityID int, spawnPhase bool) (*application.CompleteResult, error)
	ArchiveEntity(ctx context.Context, entityID int) (*npp.Entity, error)
	CompleteAction(ctx context.Context, actionID, userID int) (*application.ActionCompletion, error)
	Geographies(ctx context.Context, entityID int, all bool) contracts.Result[npp.EntityGeography]
	AddGeography(ctx context.Context, entityID int, input application.GeographyInput) (*npp.EntityGeography, error)
	RemoveGeography(ctx context.Context, entityID, entityGeographyID int) error
}

// Forecasts starts and lists forecast cycles.
type Forecasts interface {
	Cycles(ctx context.Context, entityID int) ([]npp.ForecastCycle, error)
	StartRollover(ctx context.Context, entityID int, title string, actor npp.User) (*jobs.Job, error)
}

// EntityHandlers serves the entity workflow endpoints.
type EntityHandlers struct {
	entities  EntityWorkflow
	forecasts Forecasts
	logger    *logging.Logger
}

// NewEntityHandlers creates entity handlers.
func NewEntityHandlers(entities EntityWorkflow, forecasts Forecasts) *EntityHandlers {
	return &EntityHandlers{
		entities:  entities,
		forecasts: forecasts,
		logger:    logging.Default().WithComponent("entity_handler"),
	}
}

type advanceRequest struct {
	Force bool `json:"force"`
}

type completeRequest struct {
	SpawnPhase bool `json:"spawnPhase"`
}

type rolloverRequest struct {
	Title string `json:"title" validate:"max=255"`
}

type nextStageResponse struct {
	Stage *npp.MasterStage `json:"stage"`
	Last  bool             `json:"last"`
}

// withEntity parses {entityID} and runs fn with it.
func (h *EntityHandlers) withEntity(w http.ResponseWriter, r *http.Request, fn func(entityID int)) {
	entityID, err := intParam(r, "entityID")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	fn(entityID)
}

// CreateEntity creates and initializes an entity.
func (h *EntityHandlers) CreateEntity(w http.ResponseWriter, r *http.Request) {
	var req application.CreateEntityRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	result, err := h.entities.CreateEntity(r.Context(), req)
	if err != nil {
		h.logger.WithContext(r.Context()).Error("Failed to create entity", "title", req.Title, "error", err)
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, result)
}

// GetEntity returns one entity.
func (h *EntityHandlers) GetEntity(w http.ResponseWriter, r *http.Request) {
	h.withEntity(w, r, func(entityID int) {
		entity, err := h.entities.GetEntity(r.Context(), entityID)
		if err != nil {
			respondServiceError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, entity)
	})
}

// InitializeEntity reruns initialization for an entity stuck in Processing.
func (h *EntityHandlers) InitializeEntity(w http.ResponseWriter, r *http.Request) {
	h.withEntity(w, r, func(entityID int) {
		result, err := h.entities.InitializeEntity(r.Context(), entityID)
		if err != nil {
			h.logger.WithContext(r.Context()).WorkflowError("Initialization failed", err, entityID)
			respondServiceError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, result)
	})
}

// Progress returns the per-stage progress report.
func (h *EntityHandlers) Progress(w http.ResponseWriter, r *http.Request) {
	h.withEntity(w, r, func(entityID int) {
		report, err := h.entities.Progress(r.Context(), entityID)
		if err != nil {
			respondServiceError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, report)
	})
}

// NextStage returns the stage that advancing would open.
func (h *EntityHandlers) NextStage(w http.ResponseWriter, r *http.Request) {
	h.withEntity(w, r, func(entityID int) {
		next, ok, err := h.entities.NextStage(r.Context(), entityID)
		if err != nil {
			respondServiceError(w, err)
			return
		}
		if !ok {
			respondJSON(w, http.StatusOK, nextStageResponse{Last: true})
			return
		}
		respondJSON(w, http.StatusOK, nextStageResponse{Stage: &next})
	})
}

// AdvanceStage moves the entity to its next stage.
func (h *EntityHandlers) AdvanceStage(w http.ResponseWriter, r *http.Request) {
	h.withEntity(w, r, func(entityID int) {
		var req advanceRequest
		if !decodeAndValidate(w, r, &req) {
			return
		}
		stage, err := h.entities.AdvanceStage(r.Context(), entityID, req.Force)
		if err != nil {
			respondServiceError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, stage)
	})
}

// CompleteEntity approves the entity and optionally spawns its phase successor.
func (h *EntityHandlers) CompleteEntity(w http.ResponseWriter, r *http.Request) {
	h.withEntity(w, r, func(entityID int) {
		var req completeRequest
		if !decodeAndValidate(w, r, &req) {
			return
		}
		result, err := h.entities.CompleteEntity(r.Context(), entityID, req.SpawnPhase)
		if err != nil {
			respondServiceError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, result)
	})
}

// ArchiveEntity moves the entity to Archive.
func (h *EntityHandlers) ArchiveEntity(w http.ResponseWriter, r *http.Request) {
	h.withEntity(w, r, func(entityID int) {
		entity, err := h.entities.ArchiveEntity(r.Context(), entityID)
		if err != nil {
			respondServiceError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, entity)
	})
}

// CompleteAction marks an action done by the caller.
func (h *EntityHandlers) CompleteAction(w http.ResponseWriter, r *http.Request) {
	actionID, err := intParam(r, "actionID")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "no caller")
		return
	}
	result, err := h.entities.CompleteAction(r.Context(), actionID, user.ID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// Geographies lists the entity geographies; ?all=true includes removed rows.
func (h *EntityHandlers) Geographies(w http.ResponseWriter, r *http.Request) {
	h.withEntity(w, r, func(entityID int) {
		rows, err := h.entities.Geographies(r.Context(), entityID, r.URL.Query().Get("all") == "true").Unwrap()
		if err != nil {
			respondServiceError(w, err)
			return
		}
		if rows == nil {
			rows = []npp.EntityGeography{}
		}
		respondJSON(w, http.StatusOK, rows)
	})
}

// AddGeography adds a geography or country and provisions its folders.
func (h *EntityHandlers) AddGeography(w http.ResponseWriter, r *http.Request) {
	h.withEntity(w, r, func(entityID int) {
		var req application.GeographyInput
		if !decodeAndValidate(w, r, &req) {
			return
		}
		row, err := h.entities.AddGeography(r.Context(), entityID, req)
		if err != nil {
			respondServiceError(w, err)
			return
		}
		respondJSON(w, http.StatusCreated, row)
	})
}

// RemoveGeography soft-removes an entity geography.
func (h *EntityHandlers) RemoveGeography(w http.ResponseWriter, r *http.Request) {
	h.withEntity(w, r, func(entityID int) {
		rowID, err := intParam(r, "entityGeographyID")
		if err != nil {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := h.entities.RemoveGeography(r.Context(), entityID, rowID); err != nil {
			respondServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
}

// ForecastCycles lists the entity's forecast cycles.
func (h *EntityHandlers) ForecastCycles(w http.ResponseWriter, r *http.Request) {
	h.withEntity(w, r, func(entityID int) {
		cycles, err := h.forecasts.Cycles(r.Context(), entityID)
		if err != nil {
			respondServiceError(w, err)
			return
		}
		if cycles == nil {
			cycles = []npp.ForecastCycle{}
		}
		respondJSON(w, http.StatusOK, cycles)
	})
}

// StartRollover opens a new forecast cycle as a background job.
func (h *EntityHandlers) StartRollover(w http.ResponseWriter, r *http.Request) {
	h.withEntity(w, r, func(entityID int) {
		var req rolloverRequest
		if !decodeAndValidate(w, r, &req) {
			return
		}
		user, ok := auth.UserFromContext(r.Context())
		if !ok {
			respondWithError(w, http.StatusUnauthorized, "no caller")
			return
		}
		job, err := h.forecasts.StartRollover(r.Context(), entityID, req.Title, *user)
		if err != nil {
			h.logger.WithContext(r.Context()).WorkflowError("Failed to start rollover", err, entityID)
			respondServiceError(w, err)
			return
		}
		respondJSON(w, http.StatusAccepted, map[string]string{"jobId": job.ID})
	})
}
