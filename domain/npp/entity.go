package npp

import "time"

// EntityKind distinguishes opportunities from brands.
type EntityKind string

const (
	EntityKindOpportunity EntityKind = "Opportunity"
	EntityKindBrand       EntityKind = "Brand"
)

// EntityStatus is the lifecycle status of an entity.
type EntityStatus string

const (
	EntityStatusProcessing EntityStatus = "Processing"
	EntityStatusActive     EntityStatus = "Active"
	EntityStatusApproved   EntityStatus = "Approved"
	EntityStatusArchive    EntityStatus = "Archive"
)

// StageTypePhase is the stage type whose entities never spawn a successor.
const StageTypePhase = "Phase"

// Entity is an opportunity or brand moving through a staged workflow.
type Entity struct {
	ID                int          `json:"id"`
	Title             string       `json:"title"`
	Kind              EntityKind   `json:"kind"`
	OwnerID           int          `json:"ownerId"`
	BusinessUnitID    int          `json:"businessUnitId"`
	OpportunityTypeID int          `json:"opportunityTypeId"`
	Status            EntityStatus `json:"status"`
	IndicationIDs     []int        `json:"indicationIds"`
	Created           time.Time    `json:"created"`
	Modified          time.Time    `json:"modified"`
}

// IsBrand reports whether the entity follows the brand (Inline) variant.
func (e *Entity) IsBrand() bool {
	return e.Kind == EntityKindBrand
}

// MasterStage is a stage template.
type MasterStage struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	StageType   string `json:"stageType"`
	StageNumber int    `json:"stageNumber"`
}

// Stage is a concrete stage instance of an entity.
type Stage struct {
	ID            int        `json:"id"`
	EntityID      int        `json:"entityId"`
	MasterStageID int        `json:"masterStageId"`
	Title         string     `json:"title"`
	StageNumber   int        `json:"stageNumber"`
	ReviewDate    *time.Time `json:"reviewDate,omitempty"`
	StageUserIDs  []int      `json:"stageUserIds"`
	Created       time.Time  `json:"created"`
}

// MasterAction is an action template bound to a master stage and opportunity type.
type MasterAction struct {
	ID                int    `json:"id"`
	Title             string `json:"title"`
	StageNameID       int    `json:"stageNameId"`
	OpportunityTypeID int    `json:"opportunityTypeId"`
	DueDays           int    `json:"dueDays"`
}

// ActionStatus is derived, never stored.
type ActionStatus string

const (
	ActionStatusPending   ActionStatus = "pending"
	ActionStatusLate      ActionStatus = "late"
	ActionStatusCompleted ActionStatus = "completed"
)

// Action is a checklist task within a stage.
type Action struct {
	ID             int        `json:"id"`
	EntityID       int        `json:"entityId"`
	StageID        int        `json:"stageId"`
	MasterActionID int        `json:"masterActionId"`
	Title          string     `json:"title"`
	DueDate        time.Time  `json:"dueDate"`
	Completed      bool       `json:"completed"`
	CompletedByID  int        `json:"completedById"`
	CompletedOn    *time.Time `json:"completedOn,omitempty"`
}

// Status derives the action status relative to now.
func (a *Action) Status(now time.Time) ActionStatus {
	switch {
	case a.Completed:
		return ActionStatusCompleted
	case a.DueDate.Before(now):
		return ActionStatusLate
	default:
		return ActionStatusPending
	}
}

// GeographyType tells whether an entity geography row references a geography or a country.
type GeographyType string

const (
	GeographyTypeGeography GeographyType = "Geography"
	GeographyTypeCountry   GeographyType = "Country"
)

// EntityGeography links an entity to a geography or country. Removal is soft.
type EntityGeography struct {
	ID          int           `json:"id"`
	EntityID    int           `json:"entityId"`
	GeographyID int           `json:"geographyId"`
	CountryID   int           `json:"countryId"`
	Type        GeographyType `json:"type"`
	Removed     bool          `json:"removed"`
}

// LocationID is the id that partitions model folders: the geography for
// geography rows and the country for country rows.
func (g EntityGeography) LocationID() int {
	if g.Type == GeographyTypeCountry {
		return g.CountryID
	}
	return g.GeographyID
}

// MasterFolder is a department. Model departments are geography-partitioned.
type MasterFolder struct {
	ID             int    `json:"id"`
	Title          string `json:"title"`
	ContainsModels bool   `json:"containsModels"`
}

// MasterOpportunityType binds an opportunity type to its stage type.
type MasterOpportunityType struct {
	ID        int    `json:"id"`
	Title     string `json:"title"`
	StageType string `json:"stageType"`
}

// MasterItem is a plain master list row (business units, geographies, countries, scenarios, indications).
type MasterItem struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
}

// ForecastCycle numbers successive forecast rounds of an entity.
type ForecastCycle struct {
	ID          int       `json:"id"`
	EntityID    int       `json:"entityId"`
	CycleNumber int       `json:"cycleNumber"`
	Title       string    `json:"title"`
	StartedOn   time.Time `json:"startedOn"`
}
