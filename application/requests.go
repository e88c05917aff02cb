package application

import "nppflow/domain/npp"

// CreateEntityRequest is the input of EntityService.CreateEntity.
type CreateEntityRequest struct {
	Title             string           `json:"title" validate:"required,max=255"`
	Kind              npp.EntityKind   `json:"kind" validate:"required,oneof=Opportunity Brand"`
	OwnerID           int              `json:"ownerId" validate:"required,gt=0"`
	BusinessUnitID    int              `json:"businessUnitId" validate:"required,gt=0"`
	OpportunityTypeID int              `json:"opportunityTypeId" validate:"required,gt=0"`
	IndicationIDs     []int            `json:"indicationIds" validate:"dive,gt=0"`
	Geographies       []GeographyInput `json:"geographies" validate:"dive"`
}

// GeographyInput adds a geography or a country to an entity.
type GeographyInput struct {
	GeographyID int               `json:"geographyId" validate:"required_if=Type Geography,gte=0"`
	CountryID   int               `json:"countryId" validate:"required_if=Type Country,gte=0"`
	Type        npp.GeographyType `json:"type" validate:"required,oneof=Geography Country"`
}

// UploadRequest is the input of FileService.Upload.
type UploadRequest struct {
	EntityID      int    `validate:"required,gt=0"`
	DepartmentID  int    `validate:"required,gt=0"`
	GeographyID   int    `validate:"gte=0"`
	StageID       int    `validate:"gte=0"`
	Name          string `validate:"required,max=255"`
	Content       []byte
	ScenarioIDs   []int `validate:"dive,gt=0"`
	IndicationIDs []int `validate:"dive,gt=0"`
	Overwrite     bool
	Uploader      npp.User
}

// FolderQuery addresses one folder of an entity for listing.
type FolderQuery struct {
	EntityID     int            `validate:"required,gt=0"`
	Root         npp.FolderRoot `validate:"required"`
	DepartmentID int            `validate:"required,gt=0"`
	GeographyID  int            `validate:"gte=0"`
	StageID      int            `validate:"gte=0"`
	CycleID      int            `validate:"gte=0"`
}

// ReviewRequest addresses a file review operation.
type ReviewRequest struct {
	FileURL string   `json:"fileUrl" validate:"required"`
	Comment string   `json:"comment" validate:"max=4000"`
	Actor   npp.User `json:"-"`
}
