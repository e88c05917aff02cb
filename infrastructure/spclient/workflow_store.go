package spclient

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"nppflow/domain/contracts"
	"nppflow/domain/npp"
)

// WorkflowStore keeps entities, stages, actions, geographies and forecast cycles in SharePoint lists.
type WorkflowStore struct {
	client *Client
}

// NewWorkflowStore creates a list-backed workflow repository.
func NewWorkflowStore(client *Client) *WorkflowStore {
	return &WorkflowStore{client: client}
}

var (
	_ contracts.WorkflowRepository   = (*WorkflowStore)(nil)
	_ contracts.MasterDataRepository = (*WorkflowStore)(nil)
)

// ---------- Entities ----------

func (s *WorkflowStore) GetEntity(ctx context.Context, entityID int) (*npp.Entity, error) {
	raw, err := s.client.GetItem(ctx, ListEntities, entityID, EntitySelect)
	if err != nil {
		return nil, err
	}
	var it entityItem
	if err := json.Unmarshal(raw, &it); err != nil {
		return nil, fmt.Errorf("decode entity %d: %w", entityID, err)
	}
	e := it.toDomain()
	return &e, nil
}

func (s *WorkflowStore) ListEntities(ctx context.Context, status npp.EntityStatus) contracts.Result[npp.Entity] {
	q := ODataQuery{Select: EntitySelect, OrderBy: "Id"}
	if status != "" {
		q.Filter = eqString(FieldEntityStatus, string(status))
	}
	return queryList[entityItem, npp.Entity](ctx, s.client, ListEntities, q)
}

func (s *WorkflowStore) CreateEntity(ctx context.Context, entity *npp.Entity) error {
	id, err := s.client.AddItem(ctx, ListEntities, map[string]any{
		FieldTitle:             entity.Title,
		FieldEntityKind:        string(entity.Kind),
		FieldEntityOwnerID:     entity.OwnerID,
		FieldBusinessUnitID:    entity.BusinessUnitID,
		FieldOpportunityTypeID: entity.OpportunityTypeID,
		FieldEntityStatus:      string(entity.Status),
		FieldIndicationID:      multiLookup(entity.IndicationIDs),
	})
	if err != nil {
		return err
	}
	entity.ID = id
	return nil
}

func (s *WorkflowStore) UpdateEntityStatus(ctx context.Context, entityID int, status npp.EntityStatus) error {
	return s.client.UpdateItem(ctx, ListEntities, entityID, map[string]any{FieldEntityStatus: string(status)})
}

func (s *WorkflowStore) DeleteEntity(ctx context.Context, entityID int) error {
	return s.client.DeleteItem(ctx, ListEntities, entityID)
}

// ---------- Stages ----------

func (s *WorkflowStore) ListStages(ctx context.Context, entityID int) contracts.Result[npp.Stage] {
	return queryList[stageItem, npp.Stage](ctx, s.client, ListStages, ODataQuery{
		Select:  StageSelect,
		Filter:  eqInt(FieldEntityNameID, entityID),
		OrderBy: FieldStageNumber,
	})
}

func (s *WorkflowStore) CreateStage(ctx context.Context, stage *npp.Stage) error {
	fields := map[string]any{
		FieldTitle:        stage.Title,
		FieldEntityNameID: stage.EntityID,
		FieldStageNameID:  stage.MasterStageID,
		FieldStageNumber:  stage.StageNumber,
		FieldStageUsersID: multiLookup(stage.StageUserIDs),
	}
	if stage.ReviewDate != nil {
		fields[FieldStageReview] = stage.ReviewDate.UTC().Format(time.RFC3339)
	}
	id, err := s.client.AddItem(ctx, ListStages, fields)
	if err != nil {
		return err
	}
	stage.ID = id
	return nil
}

// ---------- Actions ----------

func (s *WorkflowStore) GetAction(ctx context.Context, actionID int) (*npp.Action, error) {
	raw, err := s.client.GetItem(ctx, ListActions, actionID, ActionSelect)
	if err != nil {
		return nil, err
	}
	var it actionItem
	if err := json.Unmarshal(raw, &it); err != nil {
		return nil, fmt.Errorf("decode action %d: %w", actionID, err)
	}
	a := it.toDomain()
	return &a, nil
}

func (s *WorkflowStore) ListActions(ctx context.Context, entityID int) contracts.Result[npp.Action] {
	return queryList[actionItem, npp.Action](ctx, s.client, ListActions, ODataQuery{
		Select:  ActionSelect,
		Filter:  eqInt(FieldEntityNameID, entityID),
		OrderBy: "Id",
	})
}

func (s *WorkflowStore) ListStageActions(ctx context.Context, stageID int) contracts.Result[npp.Action] {
	return queryList[actionItem, npp.Action](ctx, s.client, ListActions, ODataQuery{
		Select:  ActionSelect,
		Filter:  eqInt(FieldStageID, stageID),
		OrderBy: "Id",
	})
}

func (s *WorkflowStore) CreateAction(ctx context.Context, action *npp.Action) error {
	id, err := s.client.AddItem(ctx, ListActions, map[string]any{
		FieldTitle:          action.Title,
		FieldEntityNameID:   action.EntityID,
		FieldStageID:        action.StageID,
		FieldMasterActionID: action.MasterActionID,
		FieldActionDueDate:  action.DueDate.UTC().Format(time.RFC3339),
		FieldCompleted:      action.Completed,
	})
	if err != nil {
		return err
	}
	action.ID = id
	return nil
}

func (s *WorkflowStore) CompleteAction(ctx context.Context, actionID, userID int, completedOn time.Time) error {
	return s.client.UpdateItem(ctx, ListActions, actionID, map[string]any{
		FieldCompleted:     true,
		FieldCompletedByID: userID,
		FieldCompletedOn:   completedOn.UTC().Format(time.RFC3339),
	})
}

func (s *WorkflowStore) DeleteStage(ctx context.Context, stageID int) error {
	return s.client.DeleteItem(ctx, ListStages, stageID)
}

func (s *WorkflowStore) DeleteAction(ctx context.Context, actionID int) error {
	return s.client.DeleteItem(ctx, ListActions, actionID)
}

// ---------- Geographies ----------

func (s *WorkflowStore) ListEntityGeographies(ctx context.Context, entityID int, includeRemoved bool) contracts.Result[npp.EntityGeography] {
	return queryList[geographyItem, npp.EntityGeography](ctx, s.client, ListEntityGeographies, ODataQuery{
		Select:  GeographySelect,
		Filter:  geographyFilter(entityID, includeRemoved),
		OrderBy: "Id",
	})
}

// geographyFilter matches an entity's geographies. Rows whose Removed flag was
// never set count as active.
func geographyFilter(entityID int, includeRemoved bool) string {
	filter := eqInt(FieldEntityNameID, entityID)
	if includeRemoved {
		return filter
	}
	return and(filter, neInt(FieldRemoved, 1))
}

func (s *WorkflowStore) CreateEntityGeography(ctx context.Context, geography *npp.EntityGeography) error {
	fields := map[string]any{
		FieldEntityNameID:  geography.EntityID,
		FieldGeographyType: string(geography.Type),
		FieldRemoved:       geography.Removed,
	}
	if geography.GeographyID > 0 {
		fields[FieldGeographyID] = geography.GeographyID
	}
	if geography.CountryID > 0 {
		fields[FieldCountryID] = geography.CountryID
	}
	id, err := s.client.AddItem(ctx, ListEntityGeographies, fields)
	if err != nil {
		return err
	}
	geography.ID = id
	return nil
}

func (s *WorkflowStore) SetEntityGeographyRemoved(ctx context.Context, entityGeographyID int, removed bool) error {
	return s.client.UpdateItem(ctx, ListEntityGeographies, entityGeographyID, map[string]any{FieldRemoved: removed})
}

// ---------- Forecast cycles ----------

func (s *WorkflowStore) ListForecastCycles(ctx context.Context, entityID int) contracts.Result[npp.ForecastCycle] {
	return queryList[forecastCycleItem, npp.ForecastCycle](ctx, s.client, ListForecastCycles, ODataQuery{
		Select:  ForecastCycleSelect,
		Filter:  eqInt(FieldEntityNameID, entityID),
		OrderBy: FieldCycleNumber,
	})
}

func (s *WorkflowStore) CreateForecastCycle(ctx context.Context, cycle *npp.ForecastCycle) error {
	id, err := s.client.AddItem(ctx, ListForecastCycles, map[string]any{
		FieldTitle:        cycle.Title,
		FieldEntityNameID: cycle.EntityID,
		FieldCycleNumber:  cycle.CycleNumber,
		FieldStartedOn:    cycle.StartedOn.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}
	cycle.ID = id
	return nil
}

// ---------- Master data ----------

func (s *WorkflowStore) MasterStages(ctx context.Context) contracts.Result[npp.MasterStage] {
	return queryList[masterStageItem, npp.MasterStage](ctx, s.client, ListMasterStages, ODataQuery{
		Select:  "Id,Title,StageType,StageNumber",
		OrderBy: FieldStageNumber,
	})
}

func (s *WorkflowStore) MasterActions(ctx context.Context) contracts.Result[npp.MasterAction] {
	return queryList[masterActionItem, npp.MasterAction](ctx, s.client, ListMasterActions, ODataQuery{
		Select:  "Id,Title,StageNameId,OpportunityTypeId,DueDays",
		OrderBy: "Id",
	})
}

func (s *WorkflowStore) MasterFolders(ctx context.Context) contracts.Result[npp.MasterFolder] {
	return queryList[masterFolderItem, npp.MasterFolder](ctx, s.client, ListMasterFolders, ODataQuery{
		Select:  "Id,Title,ContainsModels",
		OrderBy: "Id",
	})
}

func (s *WorkflowStore) MasterOpportunityTypes(ctx context.Context) contracts.Result[npp.MasterOpportunityType] {
	return queryList[masterOpportunityTypeItem, npp.MasterOpportunityType](ctx, s.client, ListMasterOpportunityType, ODataQuery{
		Select:  "Id,Title,StageType",
		OrderBy: "Id",
	})
}

func (s *WorkflowStore) MasterItems(ctx context.Context, list contracts.MasterList) contracts.Result[npp.MasterItem] {
	return queryList[masterItem, npp.MasterItem](ctx, s.client, string(list), ODataQuery{
		Select:  "Id,Title",
		OrderBy: FieldTitle,
	})
}
