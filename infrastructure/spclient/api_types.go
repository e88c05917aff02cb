package spclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// ---------- Lookup values ----------

// lookupIDs decodes multi-value lookup ids in every shape SharePoint returns them:
// a bare array, the verbose {"results": [...]} envelope, a single number or null.
type lookupIDs []int

func (l *lookupIDs) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*l = nil
		return nil
	case data[0] == '[':
		var ids []int
		if err := json.Unmarshal(data, &ids); err != nil {
			return fmt.Errorf("decode lookup ids: %w", err)
		}
		*l = ids
		return nil
	case data[0] == '{':
		var env struct {
			Results []int `json:"results"`
		}
		if err := json.Unmarshal(data, &env); err != nil {
			return fmt.Errorf("decode lookup ids: %w", err)
		}
		*l = env.Results
		return nil
	default:
		var id int
		if err := json.Unmarshal(data, &id); err != nil {
			return fmt.Errorf("decode lookup ids: %w", err)
		}
		*l = []int{id}
		return nil
	}
}

// multiLookup renders ids for a verbose-mode list item write.
func multiLookup(ids []int) map[string][]int {
	if ids == nil {
		ids = []int{}
	}
	return map[string][]int{"results": ids}
}

// ---------- List items ----------

type entityItem struct {
	ID                int       `json:"Id"`
	Title             string    `json:"Title"`
	EntityKind        string    `json:"EntityKind"`
	EntityOwnerID     int       `json:"EntityOwnerId"`
	BusinessUnitID    int       `json:"BusinessUnitId"`
	OpportunityTypeID int       `json:"OpportunityTypeId"`
	EntityStatus      string    `json:"EntityStatus"`
	IndicationID      lookupIDs `json:"IndicationId"`
	Created           time.Time `json:"Created"`
	Modified          time.Time `json:"Modified"`
}

type stageItem struct {
	ID           int        `json:"Id"`
	Title        string     `json:"Title"`
	EntityNameID int        `json:"EntityNameId"`
	StageNameID  int        `json:"StageNameId"`
	StageNumber  int        `json:"StageNumber"`
	StageReview  *time.Time `json:"StageReview"`
	StageUsersID lookupIDs  `json:"StageUsersId"`
	Created      time.Time  `json:"Created"`
}

type actionItem struct {
	ID             int        `json:"Id"`
	Title          string     `json:"Title"`
	EntityNameID   int        `json:"EntityNameId"`
	StageID        int        `json:"StageId"`
	MasterActionID int        `json:"MasterActionId"`
	ActionDueDate  time.Time  `json:"ActionDueDate"`
	Completed      bool       `json:"Completed"`
	CompletedByID  *int       `json:"CompletedById"`
	CompletedOn    *time.Time `json:"CompletedOn"`
}

type geographyItem struct {
	ID            int    `json:"Id"`
	EntityNameID  int    `json:"EntityNameId"`
	GeographyID   *int   `json:"GeographyId"`
	CountryID     *int   `json:"CountryId"`
	GeographyType string `json:"GeographyType"`
	Removed       bool   `json:"Removed"`
}

type forecastCycleItem struct {
	ID           int       `json:"Id"`
	Title        string    `json:"Title"`
	EntityNameID int       `json:"EntityNameId"`
	CycleNumber  int       `json:"CycleNumber"`
	StartedOn    time.Time `json:"StartedOn"`
}

type masterStageItem struct {
	ID          int    `json:"Id"`
	Title       string `json:"Title"`
	StageType   string `json:"StageType"`
	StageNumber int    `json:"StageNumber"`
}

type masterActionItem struct {
	ID                int    `json:"Id"`
	Title             string `json:"Title"`
	StageNameID       int    `json:"StageNameId"`
	OpportunityTypeID int    `json:"OpportunityTypeId"`
	DueDays           int    `json:"DueDays"`
}

type masterFolderItem struct {
	ID             int    `json:"Id"`
	Title          string `json:"Title"`
	ContainsModels bool   `json:"ContainsModels"`
}

type masterOpportunityTypeItem struct {
	ID        int    `json:"Id"`
	Title     string `json:"Title"`
	StageType string `json:"StageType"`
}

type masterItem struct {
	ID    int    `json:"Id"`
	Title string `json:"Title"`
}

// ---------- Files, folders and principals ----------

type fileFieldsJSON struct {
	ID             int       `json:"Id"`
	ApprovalStatus string    `json:"ApprovalStatus"`
	ScenarioID     lookupIDs `json:"ScenarioId"`
	IndicationID   lookupIDs `json:"IndicationId"`
	Comments       *string   `json:"Comments"`
	ForecastID     *int      `json:"ForecastId"`
}

type fileJSON struct {
	Name              string          `json:"Name"`
	ServerRelativeURL string          `json:"ServerRelativeUrl"`
	TimeLastModified  time.Time       `json:"TimeLastModified"`
	ListItemAllFields *fileFieldsJSON `json:"ListItemAllFields"`
}

type folderJSON struct {
	Name              string `json:"Name"`
	ServerRelativeURL string `json:"ServerRelativeUrl"`
	ItemCount         int    `json:"ItemCount"`
}

type userJSON struct {
	ID                int     `json:"Id"`
	Title             string  `json:"Title"`
	Email             string  `json:"Email"`
	LoginName         string  `json:"LoginName"`
	UserPrincipalName *string `json:"UserPrincipalName"`
}

type groupJSON struct {
	ID          int    `json:"Id"`
	Title       string `json:"Title"`
	Description string `json:"Description"`
}

type idJSON struct {
	ID int `json:"Id"`
}
