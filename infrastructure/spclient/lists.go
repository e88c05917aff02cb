package spclient

import (
	"context"
	"encoding/json"
	"fmt"

	"nppflow/domain/contracts"

	"github.com/koltyakov/gosip/api"
)

// SharePoint list titles
const (
	ListEntities              = "NPP Entities"
	ListStages                = "NPP Stages"
	ListActions               = "NPP Actions"
	ListEntityGeographies     = "NPP Geographies"
	ListForecastCycles        = "Forecast Cycles"
	ListMasterStages          = "Master Stages"
	ListMasterActions         = "Master Actions"
	ListMasterFolders         = "Master Folders"
	ListMasterOpportunityType = "Master Opportunity Types"
)

// Field internal names. Lookup columns are read and written through their "Id" suffix.
const (
	FieldTitle             = "Title"
	FieldEntityKind        = "EntityKind"
	FieldEntityOwnerID     = "EntityOwnerId"
	FieldBusinessUnitID    = "BusinessUnitId"
	FieldOpportunityTypeID = "OpportunityTypeId"
	FieldEntityStatus      = "EntityStatus"
	FieldIndicationID      = "IndicationId"
	FieldEntityNameID      = "EntityNameId"
	FieldStageNameID       = "StageNameId"
	FieldStageNumber       = "StageNumber"
	FieldStageReview       = "StageReview"
	FieldStageUsersID      = "StageUsersId"
	FieldStageID           = "StageId"
	FieldMasterActionID    = "MasterActionId"
	FieldActionDueDate     = "ActionDueDate"
	FieldCompleted         = "Completed"
	FieldCompletedByID     = "CompletedById"
	FieldCompletedOn       = "CompletedOn"
	FieldGeographyID       = "GeographyId"
	FieldCountryID         = "CountryId"
	FieldGeographyType     = "GeographyType"
	FieldRemoved           = "Removed"
	FieldCycleNumber       = "CycleNumber"
	FieldStartedOn         = "StartedOn"
	FieldApprovalStatus    = "ApprovalStatus"
	FieldScenarioID        = "ScenarioId"
	FieldComments          = "Comments"
	FieldForecastID        = "ForecastId"
)

// OData field selectors for consistent API queries
const (
	EntitySelect        = `Id,Title,EntityKind,EntityOwnerId,BusinessUnitId,OpportunityTypeId,EntityStatus,IndicationId,Created,Modified`
	StageSelect         = `Id,Title,EntityNameId,StageNameId,StageNumber,StageReview,StageUsersId,Created`
	ActionSelect        = `Id,Title,EntityNameId,StageId,MasterActionId,ActionDueDate,Completed,CompletedById,CompletedOn`
	GeographySelect     = `Id,EntityNameId,GeographyId,CountryId,GeographyType,Removed`
	ForecastCycleSelect = `Id,Title,EntityNameId,CycleNumber,StartedOn`
	FileSelect          = `Name,ServerRelativeUrl,TimeLastModified,ListItemAllFields/Id,ListItemAllFields/ApprovalStatus,ListItemAllFields/ScenarioId,ListItemAllFields/IndicationId,ListItemAllFields/Comments,ListItemAllFields/ForecastId`
)

// QueryItems reads the items of a list. Without a Top the read pages through the whole list.
func (c *Client) QueryItems(ctx context.Context, list string, q ODataQuery) ([]json.RawMessage, error) {
	op := fmt.Sprintf("query %s", list)
	sp := c.gosipAPI.Conf(c.createRequestConfig(ctx))
	items := q.apply(sp.Web().Lists().GetByTitle(list).Items())

	if q.Top > 0 {
		res, err := items.Top(q.Top).Get()
		if err != nil {
			return nil, gatewayError(op, err)
		}
		return rawItems(res.Data()), nil
	}

	var out []json.RawMessage
	page, err := items.Top(defaultPageSize).GetPaged()
	if err != nil {
		return nil, gatewayError(op, err)
	}
	for {
		out = append(out, rawItems(page.Items.Data())...)
		if !page.HasNextPage() {
			break
		}
		if page, err = page.GetNextPage(); err != nil {
			return nil, gatewayError(op, err)
		}
	}
	c.logger.Debug("Queried list items", "list", list, "count", len(out))
	return out, nil
}

func rawItems(items []api.ItemResp) []json.RawMessage {
	out := make([]json.RawMessage, 0, len(items))
	for _, it := range items {
		out = append(out, json.RawMessage(it.Normalized()))
	}
	return out
}

// GetItem reads one item by id.
func (c *Client) GetItem(ctx context.Context, list string, id int, sel string) (json.RawMessage, error) {
	sp := c.gosipAPI.Conf(c.createRequestConfig(ctx))
	item := sp.Web().Lists().GetByTitle(list).Items().GetByID(id)
	if sel != "" {
		item = item.Select(sel)
	}
	res, err := item.Get()
	if err != nil {
		return nil, gatewayError(fmt.Sprintf("get %s item %d", list, id), err)
	}
	return json.RawMessage(res.Normalized()), nil
}

// AddItem creates an item and returns its id.
func (c *Client) AddItem(ctx context.Context, list string, fields map[string]any) (int, error) {
	op := fmt.Sprintf("add %s item", list)
	body, err := json.Marshal(fields)
	if err != nil {
		return 0, fmt.Errorf("%s: encode: %w", op, err)
	}
	sp := c.gosipAPI.Conf(c.createRequestConfig(ctx))
	res, err := sp.Web().Lists().GetByTitle(list).Items().Add(body)
	if err != nil {
		return 0, gatewayError(op, err)
	}
	var created idJSON
	if err := json.Unmarshal(res.Normalized(), &created); err != nil {
		return 0, fmt.Errorf("%s: decode: %w", op, err)
	}
	c.logger.SharePoint("List item created", "list", list, "item_id", created.ID)
	return created.ID, nil
}

// UpdateItem merges fields into an item.
func (c *Client) UpdateItem(ctx context.Context, list string, id int, fields map[string]any) error {
	op := fmt.Sprintf("update %s item %d", list, id)
	body, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("%s: encode: %w", op, err)
	}
	sp := c.gosipAPI.Conf(c.createRequestConfig(ctx))
	if _, err := sp.Web().Lists().GetByTitle(list).Items().GetByID(id).Update(body); err != nil {
		return gatewayError(op, err)
	}
	return nil
}

// DeleteItem removes an item.
func (c *Client) DeleteItem(ctx context.Context, list string, id int) error {
	sp := c.gosipAPI.Conf(c.createRequestConfig(ctx))
	if err := sp.Web().Lists().GetByTitle(list).Items().GetByID(id).Delete(); err != nil {
		return gatewayError(fmt.Sprintf("delete %s item %d", list, id), err)
	}
	c.logger.SharePoint("List item deleted", "list", list, "item_id", id)
	return nil
}

// queryList reads a list and maps every item, keeping failures apart from empty lists.
func queryList[D interface{ toDomain() T }, T any](ctx context.Context, c *Client, list string, q ODataQuery) contracts.Result[T] {
	raw, err := c.QueryItems(ctx, list, q)
	if err != nil {
		c.logger.Warn("List read failed", "list", list, "error", err.Error())
		return contracts.FailedResult[T](err)
	}
	out := make([]T, 0, len(raw))
	for _, r := range raw {
		var dto D
		if err := json.Unmarshal(r, &dto); err != nil {
			return contracts.FailedResult[T](fmt.Errorf("decode %s item: %w", list, err))
		}
		out = append(out, dto.toDomain())
	}
	return contracts.ResultOf(out)
}
