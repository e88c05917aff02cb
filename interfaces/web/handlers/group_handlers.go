package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"nppflow/application"
	"nppflow/domain/npp"
	"nppflow/logging"
)

// GroupMembership reads and reconciles permission group members.
type GroupMembership interface {
	GroupMembers(ctx context.Context, groupName string) ([]npp.User, error)
	SyncGroupMembers(ctx context.Context, entityID int, groupName string, desired []int) (*application.SyncReport, error)
}

// GroupHandlers serves permission group membership.
type GroupHandlers struct {
	groups GroupMembership
	logger *logging.Logger
}

// NewGroupHandlers creates group handlers.
func NewGroupHandlers(groups GroupMembership) *GroupHandlers {
	return &GroupHandlers{
		groups: groups,
		logger: logging.Default().WithComponent("group_handler"),
	}
}

type setMembersRequest struct {
	UserIDs []int `json:"userIds" validate:"dive,gt=0"`
}

// Members lists a group's users.
func (h *GroupHandlers) Members(w http.ResponseWriter, r *http.Request) {
	users, err := h.groups.GroupMembers(r.Context(), chi.URLParam(r, "groupName"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if users == nil {
		users = []npp.User{}
	}
	respondJSON(w, http.StatusOK, users)
}

// SetMembers makes the group's membership equal the requested users. A
// partial sync is reported with 207 and the report of what did happen.
func (h *GroupHandlers) SetMembers(w http.ResponseWriter, r *http.Request) {
	entityID, err := intParam(r, "entityID")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req setMembersRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	groupName := chi.URLParam(r, "groupName")

	report, err := h.groups.SyncGroupMembers(r.Context(), entityID, groupName, req.UserIDs)
	if err != nil {
		h.logger.WithContext(r.Context()).Warn("Group sync incomplete", "group", groupName, "entity_id", entityID, "error", err)
		if report != nil && report.Partial {
			respondJSON(w, http.StatusMultiStatus, report)
			return
		}
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, report)
}
