package spclient

import (
	"strings"

	"nppflow/domain/npp"
)

// firstNonEmpty returns the first non-empty string from the provided values
func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func derefInt(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

func (it entityItem) toDomain() npp.Entity {
	return npp.Entity{
		ID:                it.ID,
		Title:             it.Title,
		Kind:              npp.EntityKind(firstNonEmpty(it.EntityKind, string(npp.EntityKindOpportunity))),
		OwnerID:           it.EntityOwnerID,
		BusinessUnitID:    it.BusinessUnitID,
		OpportunityTypeID: it.OpportunityTypeID,
		Status:            npp.EntityStatus(it.EntityStatus),
		IndicationIDs:     []int(it.IndicationID),
		Created:           it.Created,
		Modified:          it.Modified,
	}
}

func (it stageItem) toDomain() npp.Stage {
	return npp.Stage{
		ID:            it.ID,
		EntityID:      it.EntityNameID,
		MasterStageID: it.StageNameID,
		Title:         it.Title,
		StageNumber:   it.StageNumber,
		ReviewDate:    it.StageReview,
		StageUserIDs:  []int(it.StageUsersID),
		Created:       it.Created,
	}
}

func (it actionItem) toDomain() npp.Action {
	return npp.Action{
		ID:             it.ID,
		EntityID:       it.EntityNameID,
		StageID:        it.StageID,
		MasterActionID: it.MasterActionID,
		Title:          it.Title,
		DueDate:        it.ActionDueDate,
		Completed:      it.Completed,
		CompletedByID:  derefInt(it.CompletedByID),
		CompletedOn:    it.CompletedOn,
	}
}

func (it geographyItem) toDomain() npp.EntityGeography {
	return npp.EntityGeography{
		ID:          it.ID,
		EntityID:    it.EntityNameID,
		GeographyID: derefInt(it.GeographyID),
		CountryID:   derefInt(it.CountryID),
		Type:        npp.GeographyType(firstNonEmpty(it.GeographyType, string(npp.GeographyTypeGeography))),
		Removed:     it.Removed,
	}
}

func (it forecastCycleItem) toDomain() npp.ForecastCycle {
	return npp.ForecastCycle{
		ID:          it.ID,
		EntityID:    it.EntityNameID,
		CycleNumber: it.CycleNumber,
		Title:       it.Title,
		StartedOn:   it.StartedOn,
	}
}

func (it masterStageItem) toDomain() npp.MasterStage {
	return npp.MasterStage{ID: it.ID, Title: it.Title, StageType: it.StageType, StageNumber: it.StageNumber}
}

func (it masterActionItem) toDomain() npp.MasterAction {
	return npp.MasterAction{
		ID:                it.ID,
		Title:             it.Title,
		StageNameID:       it.StageNameID,
		OpportunityTypeID: it.OpportunityTypeID,
		DueDays:           it.DueDays,
	}
}

func (it masterFolderItem) toDomain() npp.MasterFolder {
	return npp.MasterFolder{ID: it.ID, Title: it.Title, ContainsModels: it.ContainsModels}
}

func (it masterOpportunityTypeItem) toDomain() npp.MasterOpportunityType {
	return npp.MasterOpportunityType{ID: it.ID, Title: it.Title, StageType: it.StageType}
}

func (it masterItem) toDomain() npp.MasterItem {
	return npp.MasterItem{ID: it.ID, Title: it.Title}
}

func (f fileJSON) toDomain() npp.File {
	file := npp.File{
		Name:              f.Name,
		ServerRelativeURL: f.ServerRelativeURL,
		Modified:          f.TimeLastModified,
	}
	if li := f.ListItemAllFields; li != nil {
		file.ID = li.ID
		file.ApprovalStatus = npp.ApprovalStatus(li.ApprovalStatus)
		file.ScenarioIDs = []int(li.ScenarioID)
		file.IndicationIDs = []int(li.IndicationID)
		file.ForecastID = derefInt(li.ForecastID)
		if li.Comments != nil {
			file.Comments = *li.Comments
		}
	}
	return file
}

func (f folderJSON) toDomain() npp.Folder {
	return npp.Folder{Name: f.Name, ServerRelativeURL: f.ServerRelativeURL, ItemCount: f.ItemCount}
}

func (u userJSON) toDomain() npp.User {
	upn := ""
	if u.UserPrincipalName != nil {
		upn = *u.UserPrincipalName
	}
	return npp.User{
		ID:        u.ID,
		Title:     u.Title,
		Email:     firstNonEmpty(u.Email, upn),
		LoginName: u.LoginName,
	}
}

func (g groupJSON) toDomain() npp.Group {
	return npp.Group{ID: g.ID, Title: g.Title, Description: g.Description}
}

// fileFieldsPayload renders a nometadata MERGE body. Nil fields are left out.
func fileFieldsPayload(fields npp.FileFields) map[string]any {
	body := map[string]any{}
	if fields.ApprovalStatus != nil {
		body[FieldApprovalStatus] = string(*fields.ApprovalStatus)
	}
	if fields.ScenarioIDs != nil {
		body[FieldScenarioID] = fields.ScenarioIDs
	}
	if fields.IndicationIDs != nil {
		body[FieldIndicationID] = fields.IndicationIDs
	}
	if fields.Comments != nil {
		body[FieldComments] = *fields.Comments
	}
	if fields.ForecastID != nil {
		body[FieldForecastID] = *fields.ForecastID
	}
	return body
}
