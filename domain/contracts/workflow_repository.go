package contracts

import (
	"context"
	"time"

	"nppflow/domain/npp"
)

// EntityRepository persists opportunities and brands.
type EntityRepository interface {
	GetEntity(ctx context.Context, entityID int) (*npp.Entity, error)
	// ListEntities returns entities in status, or all when status is empty.
	ListEntities(ctx context.Context, status npp.EntityStatus) Result[npp.Entity]
	CreateEntity(ctx context.Context, entity *npp.Entity) error
	UpdateEntityStatus(ctx context.Context, entityID int, status npp.EntityStatus) error
	DeleteEntity(ctx context.Context, entityID int) error
}

// StageRepository persists stage instances.
type StageRepository interface {
	ListStages(ctx context.Context, entityID int) Result[npp.Stage]
	CreateStage(ctx context.Context, stage *npp.Stage) error
	DeleteStage(ctx context.Context, stageID int) error
}

// ActionRepository persists stage actions.
type ActionRepository interface {
	GetAction(ctx context.Context, actionID int) (*npp.Action, error)
	ListActions(ctx context.Context, entityID int) Result[npp.Action]
	ListStageActions(ctx context.Context, stageID int) Result[npp.Action]
	CreateAction(ctx context.Context, action *npp.Action) error
	CompleteAction(ctx context.Context, actionID, userID int, completedOn time.Time) error
	DeleteAction(ctx context.Context, actionID int) error
}

// GeographyRepository persists entity geographies. Removal is soft.
type GeographyRepository interface {
	ListEntityGeographies(ctx context.Context, entityID int, includeRemoved bool) Result[npp.EntityGeography]
	CreateEntityGeography(ctx context.Context, geography *npp.EntityGeography) error
	SetEntityGeographyRemoved(ctx context.Context, entityGeographyID int, removed bool) error
}

// ForecastCycleRepository persists forecast cycles.
type ForecastCycleRepository interface {
	ListForecastCycles(ctx context.Context, entityID int) Result[npp.ForecastCycle]
	CreateForecastCycle(ctx context.Context, cycle *npp.ForecastCycle) error
}

// WorkflowRepository aggregates the entity lists.
type WorkflowRepository interface {
	EntityRepository
	StageRepository
	ActionRepository
	GeographyRepository
	ForecastCycleRepository
}

// MasterList names a plain master list.
type MasterList string

const (
	MasterBusinessUnits MasterList = "Master Business Units"
	MasterGeographies   MasterList = "Master Geographies"
	MasterCountries     MasterList = "Master Countries"
	MasterScenarios     MasterList = "Master Scenarios"
	MasterIndications   MasterList = "Master Indications"
)

// MasterDataRepository reads the template and lookup lists.
type MasterDataRepository interface {
	MasterStages(ctx context.Context) Result[npp.MasterStage]
	MasterActions(ctx context.Context) Result[npp.MasterAction]
	MasterFolders(ctx context.Context) Result[npp.MasterFolder]
	MasterOpportunityTypes(ctx context.Context) Result[npp.MasterOpportunityType]
	MasterItems(ctx context.Context, list MasterList) Result[npp.MasterItem]
}

// MasterCatalog is a cached MasterDataRepository.
type MasterCatalog interface {
	MasterDataRepository
	Invalidate(list string)
	InvalidateAll()
}
