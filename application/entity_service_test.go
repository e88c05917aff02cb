package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"nppflow/domain/contracts"
	"nppflow/domain/events"
	"nppflow/domain/npp"
	"nppflow/domain/permissions"
	"nppflow/domain/workflow"
	"nppflow/test/mocks"
)

type mockGroupProvisioner struct {
	mock.Mock
}

func (m *mockGroupProvisioner) EnsureEntityGroups(ctx context.Context, entityID int, layout []permissions.FolderAccess) (map[string]npp.Group, error) {
	args := m.Called(ctx, entityID, layout)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]npp.Group), args.Error(1)
}

func (m *mockGroupProvisioner) AddMembers(ctx context.Context, entityID int, groupName string, userIDs ...int) (*SyncReport, error) {
	args := m.Called(ctx, entityID, groupName, userIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*SyncReport), args.Error(1)
}

func (m *mockGroupProvisioner) CopyMembers(ctx context.Context, entityID int, from, to string) (*SyncReport, error) {
	args := m.Called(ctx, entityID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*SyncReport), args.Error(1)
}

type entityFixture struct {
	repo      *mocks.MockWorkflowRepository
	masters   *mocks.MockMasterCatalog
	docs      *mocks.MockDocumentGateway
	groups    *mockGroupProvisioner
	publisher *mocks.MockWorkflowEventPublisher
	service   *EntityService
}

var (
	stageTemplates = []npp.MasterStage{
		{ID: 1, Title: "Gate 1", StageType: "Opportunity", StageNumber: 1},
		{ID: 2, Title: "Gate 2", StageType: "Opportunity", StageNumber: 2},
		{ID: 9, Title: "Phase 1", StageType: npp.StageTypePhase, StageNumber: 1},
	}
	opportunityTypes = []npp.MasterOpportunityType{
		{ID: 5, Title: "New Product", StageType: "Opportunity"},
		{ID: 8, Title: "Launch", StageType: npp.StageTypePhase},
	}
	actionTemplates = []npp.MasterAction{
		{ID: 11, Title: "Market sizing", StageNameID: 1, OpportunityTypeID: 5, DueDays: 7},
		{ID: 12, Title: "Clinical review", StageNameID: 1, OpportunityTypeID: 5, DueDays: 14},
		{ID: 13, Title: "Pricing", StageNameID: 1, OpportunityTypeID: 5, DueDays: 21},
		{ID: 14, Title: "Supply plan", StageNameID: 1, OpportunityTypeID: 5, DueDays: 30},
		{ID: 15, Title: "Gate review", StageNameID: 1, OpportunityTypeID: 5, DueDays: 45},
		{ID: 16, Title: "Launch plan", StageNameID: 2, OpportunityTypeID: 5, DueDays: 10},
		{ID: 17, Title: "Other type", StageNameID: 1, OpportunityTypeID: 6, DueDays: 3},
	}
	departmentTemplates = []npp.MasterFolder{
		{ID: 2, Title: "Regulatory", ContainsModels: false},
		{ID: 6, Title: "Commercial", ContainsModels: true},
	}
)

func newEntityFixture() *entityFixture {
	f := &entityFixture{
		repo:      &mocks.MockWorkflowRepository{},
		masters:   &mocks.MockMasterCatalog{},
		docs:      &mocks.MockDocumentGateway{},
		groups:    &mockGroupProvisioner{},
		publisher: &mocks.MockWorkflowEventPublisher{},
	}
	f.service = NewEntityService(f.repo, f.masters, f.docs, f.groups, f.publisher)
	f.service.now = func() time.Time { return time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC) }

	f.masters.On("MasterStages", mock.Anything).Return(contracts.ResultOf(stageTemplates))
	f.masters.On("MasterOpportunityTypes", mock.Anything).Return(contracts.ResultOf(opportunityTypes))
	f.masters.On("MasterActions", mock.Anything).Return(contracts.ResultOf(actionTemplates))
	f.masters.On("MasterFolders", mock.Anything).Return(contracts.ResultOf(departmentTemplates))
	f.docs.On("SiteRelativeURL").Return("/sites/npp")
	return f
}

func processingEntity(id int) *npp.Entity {
	return &npp.Entity{
		ID:                id,
		Title:             "Project Atlas",
		Kind:              npp.EntityKindOpportunity,
		OwnerID:           7,
		BusinessUnitID:    3,
		OpportunityTypeID: 5,
		Status:            npp.EntityStatusProcessing,
		Created:           time.Date(2026, 3, 2, 10, 30, 0, 0, time.UTC),
	}
}

// expectProvisioning accepts folder, group and owner membership calls for any entity.
func (f *entityFixture) expectProvisioning() {
	f.docs.On("EnsureFolder", mock.Anything, mock.Anything).Return(nil)
	f.groups.On("EnsureEntityGroups", mock.Anything, mock.Anything, mock.Anything).Return(map[string]npp.Group{}, nil)
	f.groups.On("AddMembers", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(&SyncReport{}, nil)
	f.publisher.On("PublishEntityStatusChanged", mock.Anything).Return()
}

func (f *entityFixture) expectFreshStage(entityID, stageID int) {
	f.repo.On("ListStages", mock.Anything, entityID).Return(contracts.ResultOf[npp.Stage](nil))
	f.repo.On("CreateStage", mock.Anything, mock.AnythingOfType("*npp.Stage")).Return(nil).
		Run(func(args mock.Arguments) { args.Get(1).(*npp.Stage).ID = stageID }).Once()
	f.repo.On("ListStageActions", mock.Anything, stageID).Return(contracts.ResultOf[npp.Action](nil))
}

func TestEntityService_InitializeEntity_Entity42(t *testing.T) {
	// Arrange
	f := newEntityFixture()
	entity := processingEntity(42)
	f.repo.On("GetEntity", mock.Anything, 42).Return(entity, nil)
	f.expectFreshStage(42, 100)
	nextID := 500
	f.repo.On("CreateAction", mock.Anything, mock.AnythingOfType("*npp.Action")).Return(nil).
		Run(func(args mock.Arguments) {
			args.Get(1).(*npp.Action).ID = nextID
			nextID++
		})
	f.repo.On("ListEntityGeographies", mock.Anything, 42, false).
		Return(contracts.ResultOf([]npp.EntityGeography{{ID: 1, EntityID: 42, GeographyID: 9, Type: npp.GeographyTypeGeography}}))
	f.repo.On("UpdateEntityStatus", mock.Anything, 42, npp.EntityStatusActive).Return(nil)
	f.expectProvisioning()

	// Act
	result, err := f.service.InitializeEntity(context.Background(), 42)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, npp.EntityStatusActive, result.Entity.Status)
	assert.Equal(t, 100, result.Stage.ID)
	assert.Equal(t, 1, result.Stage.MasterStageID)
	assert.Equal(t, []int{7}, result.Stage.StageUserIDs)

	require.Len(t, result.Actions, 5)
	expectedDue := []string{"2026-03-09", "2026-03-16", "2026-03-23", "2026-04-01", "2026-04-16"}
	for i, a := range result.Actions {
		assert.Equal(t, 500+i, a.ID)
		assert.Equal(t, 100, a.StageID)
		assert.Equal(t, expectedDue[i], a.DueDate.Format(time.DateOnly), a.Title)
	}

	f.docs.AssertCalled(t, "EnsureFolder", mock.Anything, "/sites/npp/Documents/3/42/100/2")
	f.docs.AssertCalled(t, "EnsureFolder", mock.Anything, "/sites/npp/WIP/3/42/6/9")
	f.docs.AssertCalled(t, "EnsureFolder", mock.Anything, "/sites/npp/Approved/3/42/6/9")
	f.groups.AssertCalled(t, "AddMembers", mock.Anything, 42, "OO-42", []int{7})
	f.groups.AssertCalled(t, "AddMembers", mock.Anything, 42, "OU-42", []int{7})
	f.publisher.AssertCalled(t, "PublishEntityStatusChanged", mock.MatchedBy(func(e events.EntityStatusChangedEvent) bool {
		return e.EntityID == 42 && e.From == npp.EntityStatusProcessing && e.To == npp.EntityStatusActive
	}))
}

func TestEntityService_InitializeEntity_StageFailureDeletesEntity(t *testing.T) {
	f := newEntityFixture()
	f.repo.On("GetEntity", mock.Anything, 42).Return(processingEntity(42), nil)
	f.repo.On("ListStages", mock.Anything, 42).Return(contracts.ResultOf[npp.Stage](nil))
	f.repo.On("CreateStage", mock.Anything, mock.Anything).Return(errors.New("list throttled"))
	f.repo.On("DeleteEntity", mock.Anything, 42).Return(nil)

	_, err := f.service.InitializeEntity(context.Background(), 42)

	require.Error(t, err)
	f.repo.AssertCalled(t, "DeleteEntity", mock.Anything, 42)
	f.repo.AssertNotCalled(t, "CreateAction", mock.Anything, mock.Anything)
	f.repo.AssertNotCalled(t, "UpdateEntityStatus", mock.Anything, mock.Anything, mock.Anything)
}

func TestEntityService_InitializeEntity_RetryReusesStageAndActions(t *testing.T) {
	f := newEntityFixture()
	f.repo.On("GetEntity", mock.Anything, 42).Return(processingEntity(42), nil)
	f.repo.On("ListStages", mock.Anything, 42).
		Return(contracts.ResultOf([]npp.Stage{{ID: 100, EntityID: 42, MasterStageID: 1, StageNumber: 1}}))
	f.repo.On("ListStageActions", mock.Anything, 100).Return(contracts.ResultOf([]npp.Action{
		{ID: 500, StageID: 100, MasterActionID: 11},
		{ID: 501, StageID: 100, MasterActionID: 12},
	}))
	f.repo.On("CreateAction", mock.Anything, mock.Anything).Return(nil)
	f.repo.On("ListEntityGeographies", mock.Anything, 42, false).Return(contracts.ResultOf[npp.EntityGeography](nil))
	f.repo.On("UpdateEntityStatus", mock.Anything, 42, npp.EntityStatusActive).Return(nil)
	f.expectProvisioning()

	result, err := f.service.InitializeEntity(context.Background(), 42)

	require.NoError(t, err)
	assert.Len(t, result.Actions, 5)
	f.repo.AssertNotCalled(t, "CreateStage", mock.Anything, mock.Anything)
	f.repo.AssertNumberOfCalls(t, "CreateAction", 3)
}

func TestEntityService_InitializeEntity_RejectsNonProcessing(t *testing.T) {
	statuses := []npp.EntityStatus{npp.EntityStatusActive, npp.EntityStatusApproved, npp.EntityStatusArchive}

	for _, status := range statuses {
		t.Run(string(status), func(t *testing.T) {
			f := newEntityFixture()
			entity := processingEntity(42)
			entity.Status = status
			f.repo.On("GetEntity", mock.Anything, 42).Return(entity, nil)

			_, err := f.service.InitializeEntity(context.Background(), 42)

			assert.ErrorIs(t, err, workflow.ErrInvalidTransition)
		})
	}
}

func activeEntity(id int) *npp.Entity {
	e := processingEntity(id)
	e.Status = npp.EntityStatusActive
	return e
}

func TestEntityService_NextStage(t *testing.T) {
	tests := []struct {
		name          string
		masterStageID int
		expectedOK    bool
		expectedTitle string
	}{
		{"first_offers_second", 1, true, "Gate 2"},
		{"last_offers_none", 2, false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newEntityFixture()
			f.repo.On("ListStages", mock.Anything, 42).
				Return(contracts.ResultOf([]npp.Stage{{ID: 100, MasterStageID: tt.masterStageID}}))

			next, ok, err := f.service.NextStage(context.Background(), 42)

			require.NoError(t, err)
			assert.Equal(t, tt.expectedOK, ok)
			assert.Equal(t, tt.expectedTitle, next.Title)
		})
	}
}

func TestEntityService_AdvanceStage_Errors(t *testing.T) {
	tests := []struct {
		name     string
		stage    npp.Stage
		actions  []npp.Action
		force    bool
		expected error
	}{
		{"incomplete_actions", npp.Stage{ID: 100, MasterStageID: 1}, []npp.Action{{ID: 1, Completed: true}, {ID: 2}}, false, contracts.ErrStageIncomplete},
		{"last_stage", npp.Stage{ID: 101, MasterStageID: 2}, []npp.Action{{ID: 3, Completed: true}}, false, contracts.ErrNoNextStage},
		{"last_stage_forced", npp.Stage{ID: 101, MasterStageID: 2}, nil, true, contracts.ErrNoNextStage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newEntityFixture()
			f.repo.On("GetEntity", mock.Anything, 42).Return(activeEntity(42), nil)
			f.repo.On("ListStages", mock.Anything, 42).Return(contracts.ResultOf([]npp.Stage{tt.stage}))
			f.repo.On("ListStageActions", mock.Anything, tt.stage.ID).Return(contracts.ResultOf(tt.actions))

			_, err := f.service.AdvanceStage(context.Background(), 42, tt.force)

			assert.ErrorIs(t, err, tt.expected)
			f.repo.AssertNotCalled(t, "CreateStage", mock.Anything, mock.Anything)
		})
	}
}

func TestEntityService_AdvanceStage_ForcedCopiesStageUsers(t *testing.T) {
	f := newEntityFixture()
	f.repo.On("GetEntity", mock.Anything, 42).Return(activeEntity(42), nil)
	f.repo.On("ListStages", mock.Anything, 42).
		Return(contracts.ResultOf([]npp.Stage{{ID: 100, MasterStageID: 1, StageUserIDs: []int{7, 8}}}))
	f.repo.On("CreateStage", mock.Anything, mock.AnythingOfType("*npp.Stage")).Return(nil).
		Run(func(args mock.Arguments) { args.Get(1).(*npp.Stage).ID = 101 })
	f.repo.On("ListStageActions", mock.Anything, 101).Return(contracts.ResultOf[npp.Action](nil))
	f.repo.On("CreateAction", mock.Anything, mock.MatchedBy(func(a *npp.Action) bool {
		return a.MasterActionID == 16 && a.DueDate.Format(time.DateOnly) == "2026-04-11"
	})).Return(nil).Once()
	f.docs.On("EnsureFolder", mock.Anything, "/sites/npp/Documents/3/42/101/2").Return(nil)
	f.groups.On("EnsureEntityGroups", mock.Anything, 42, mock.Anything).Return(map[string]npp.Group{}, nil)
	f.groups.On("CopyMembers", mock.Anything, 42, "SU-42-100", "SU-42-101").Return(&SyncReport{}, nil)

	stage, err := f.service.AdvanceStage(context.Background(), 42, true)

	require.NoError(t, err)
	assert.Equal(t, 101, stage.ID)
	assert.Equal(t, 2, stage.MasterStageID)
	assert.Equal(t, "Gate 2", stage.Title)
	assert.Equal(t, []int{7, 8}, stage.StageUserIDs)
	f.repo.AssertExpectations(t)
	f.groups.AssertExpectations(t)
	f.repo.AssertNotCalled(t, "ListStageActions", mock.Anything, 100)
}

func TestEntityService_AdvanceStage_ActionFailureRemovesStage(t *testing.T) {
	// Arrange
	f := newEntityFixture()
	f.repo.On("GetEntity", mock.Anything, 42).Return(activeEntity(42), nil)
	f.repo.On("ListStages", mock.Anything, 42).Return(contracts.ResultOf([]npp.Stage{{ID: 100, MasterStageID: 1}}))
	f.repo.On("ListStageActions", mock.Anything, 100).Return(contracts.ResultOf([]npp.Action{{ID: 1, Completed: true}}))
	f.repo.On("CreateStage", mock.Anything, mock.AnythingOfType("*npp.Stage")).Return(nil).
		Run(func(args mock.Arguments) { args.Get(1).(*npp.Stage).ID = 101 }).Once()
	f.repo.On("ListStageActions", mock.Anything, 101).Return(contracts.ResultOf[npp.Action](nil))
	f.repo.On("CreateAction", mock.Anything, mock.Anything).Return(errors.New("list throttled")).Once()
	f.repo.On("DeleteStage", mock.Anything, 101).Return(nil).Once()

	// Act
	_, err := f.service.AdvanceStage(context.Background(), 42, false)

	// Assert
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list throttled")
	f.repo.AssertExpectations(t)
	f.docs.AssertNotCalled(t, "EnsureFolder", mock.Anything, mock.Anything)
	f.groups.AssertNotCalled(t, "CopyMembers", mock.Anything, mock.Anything, mock.Anything, mock.Anything)

	// A retry starts from stage 100 again and builds the next stage in full.
	f.repo.On("CreateStage", mock.Anything, mock.AnythingOfType("*npp.Stage")).Return(nil).
		Run(func(args mock.Arguments) { args.Get(1).(*npp.Stage).ID = 102 }).Once()
	f.repo.On("ListStageActions", mock.Anything, 102).Return(contracts.ResultOf[npp.Action](nil))
	f.repo.On("CreateAction", mock.Anything, mock.Anything).Return(nil).Once()
	f.docs.On("EnsureFolder", mock.Anything, "/sites/npp/Documents/3/42/102/2").Return(nil)
	f.groups.On("EnsureEntityGroups", mock.Anything, 42, mock.Anything).Return(map[string]npp.Group{}, nil)
	f.groups.On("CopyMembers", mock.Anything, 42, "SU-42-100", "SU-42-102").Return(&SyncReport{}, nil)

	stage, err := f.service.AdvanceStage(context.Background(), 42, false)

	require.NoError(t, err)
	assert.Equal(t, 102, stage.ID)
	assert.Equal(t, 2, stage.StageNumber)
	f.groups.AssertExpectations(t)
}

func TestEntityService_AdvanceStage_CopyFailureRemovesStageAndActions(t *testing.T) {
	f := newEntityFixture()
	f.repo.On("GetEntity", mock.Anything, 42).Return(activeEntity(42), nil)
	f.repo.On("ListStages", mock.Anything, 42).Return(contracts.ResultOf([]npp.Stage{{ID: 100, MasterStageID: 1}}))
	f.repo.On("CreateStage", mock.Anything, mock.AnythingOfType("*npp.Stage")).Return(nil).
		Run(func(args mock.Arguments) { args.Get(1).(*npp.Stage).ID = 101 })
	f.repo.On("ListStageActions", mock.Anything, 101).Return(contracts.ResultOf[npp.Action](nil)).Once()
	f.repo.On("CreateAction", mock.Anything, mock.Anything).Return(nil).
		Run(func(args mock.Arguments) { args.Get(1).(*npp.Action).ID = 500 })
	f.repo.On("ListStageActions", mock.Anything, 101).Return(contracts.ResultOf([]npp.Action{{ID: 500, StageID: 101}})).Once()
	f.docs.On("EnsureFolder", mock.Anything, mock.Anything).Return(nil)
	f.groups.On("EnsureEntityGroups", mock.Anything, 42, mock.Anything).Return(map[string]npp.Group{}, nil)
	f.groups.On("CopyMembers", mock.Anything, 42, "SU-42-100", "SU-42-101").Return(nil, errors.New("group not found"))
	f.repo.On("DeleteAction", mock.Anything, 500).Return(nil).Once()
	f.repo.On("DeleteStage", mock.Anything, 101).Return(nil).Once()

	_, err := f.service.AdvanceStage(context.Background(), 42, true)

	assert.Error(t, err)
	f.repo.AssertExpectations(t)
}

func TestEntityService_CompleteEntity_SpawnsPhaseSuccessor(t *testing.T) {
	// Arrange
	f := newEntityFixture()
	f.repo.On("GetEntity", mock.Anything, 42).Return(activeEntity(42), nil)
	f.repo.On("UpdateEntityStatus", mock.Anything, 42, npp.EntityStatusApproved).Return(nil)
	f.repo.On("ListEntityGeographies", mock.Anything, 42, false).
		Return(contracts.ResultOf([]npp.EntityGeography{{ID: 1, EntityID: 42, CountryID: 4, Type: npp.GeographyTypeCountry}}))

	successor := processingEntity(43)
	successor.OpportunityTypeID = 8
	f.repo.On("CreateEntity", mock.Anything, mock.MatchedBy(func(e *npp.Entity) bool {
		return e.OpportunityTypeID == 8 && e.Title == "Project Atlas" && e.Status == npp.EntityStatusProcessing
	})).Return(nil).Run(func(args mock.Arguments) { args.Get(1).(*npp.Entity).ID = 43 })
	f.repo.On("CreateEntityGeography", mock.Anything, mock.MatchedBy(func(g *npp.EntityGeography) bool {
		return g.EntityID == 43 && g.CountryID == 4 && g.Type == npp.GeographyTypeCountry
	})).Return(nil)
	f.repo.On("GetEntity", mock.Anything, 43).Return(successor, nil)
	f.expectFreshStage(43, 200)
	f.repo.On("ListEntityGeographies", mock.Anything, 43, false).
		Return(contracts.ResultOf([]npp.EntityGeography{{ID: 2, EntityID: 43, CountryID: 4, Type: npp.GeographyTypeCountry}}))
	f.repo.On("UpdateEntityStatus", mock.Anything, 43, npp.EntityStatusActive).Return(nil)
	f.expectProvisioning()

	// Act
	result, err := f.service.CompleteEntity(context.Background(), 42, true)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, npp.EntityStatusApproved, result.Entity.Status)
	require.NotNil(t, result.Successor)
	assert.Equal(t, 43, result.Successor.ID)
	assert.Equal(t, npp.EntityStatusActive, result.Successor.Status)
	f.repo.AssertCalled(t, "CreateStage", mock.Anything, mock.MatchedBy(func(s *npp.Stage) bool {
		return s.EntityID == 43 && s.MasterStageID == 9
	}))
	f.docs.AssertCalled(t, "EnsureFolder", mock.Anything, "/sites/npp/WIP/3/43/6/4")
}

func TestEntityService_CompleteEntity_PhaseEntityHasNoSuccessor(t *testing.T) {
	f := newEntityFixture()
	entity := activeEntity(43)
	entity.OpportunityTypeID = 8
	f.repo.On("GetEntity", mock.Anything, 43).Return(entity, nil)
	f.repo.On("UpdateEntityStatus", mock.Anything, 43, npp.EntityStatusApproved).Return(nil)
	f.publisher.On("PublishEntityStatusChanged", mock.Anything).Return()

	result, err := f.service.CompleteEntity(context.Background(), 43, true)

	require.NoError(t, err)
	assert.Nil(t, result.Successor)
	f.repo.AssertNotCalled(t, "CreateEntity", mock.Anything, mock.Anything)
}

func TestEntityService_ArchiveEntity_RequiresActive(t *testing.T) {
	f := newEntityFixture()
	f.repo.On("GetEntity", mock.Anything, 42).Return(processingEntity(42), nil)

	_, err := f.service.ArchiveEntity(context.Background(), 42)

	assert.ErrorIs(t, err, workflow.ErrInvalidTransition)
	f.repo.AssertNotCalled(t, "UpdateEntityStatus", mock.Anything, mock.Anything, mock.Anything)
}

func TestEntityService_CompleteAction_LastActionReadyToAdvance(t *testing.T) {
	f := newEntityFixture()
	f.repo.On("GetAction", mock.Anything, 501).Return(&npp.Action{ID: 501, EntityID: 42, StageID: 100}, nil)
	f.repo.On("CompleteAction", mock.Anything, 501, 7, mock.Anything).Return(nil)
	f.repo.On("ListStageActions", mock.Anything, 100).Return(contracts.ResultOf([]npp.Action{
		{ID: 500, StageID: 100, Completed: true},
		{ID: 501, StageID: 100},
	}))
	f.repo.On("ListStages", mock.Anything, 42).Return(contracts.ResultOf([]npp.Stage{{ID: 100, MasterStageID: 1}}))

	res, err := f.service.CompleteAction(context.Background(), 501, 7)

	require.NoError(t, err)
	assert.True(t, res.Action.Completed)
	assert.Equal(t, 7, res.Action.CompletedByID)
	assert.True(t, res.ReadyToAdvance)
}

func TestEntityService_CompleteAction_OpenActionsRemain(t *testing.T) {
	f := newEntityFixture()
	f.repo.On("GetAction", mock.Anything, 500).Return(&npp.Action{ID: 500, EntityID: 42, StageID: 100}, nil)
	f.repo.On("CompleteAction", mock.Anything, 500, 7, mock.Anything).Return(nil)
	f.repo.On("ListStageActions", mock.Anything, 100).Return(contracts.ResultOf([]npp.Action{
		{ID: 500, StageID: 100},
		{ID: 501, StageID: 100},
	}))

	res, err := f.service.CompleteAction(context.Background(), 500, 7)

	require.NoError(t, err)
	assert.False(t, res.ReadyToAdvance)
	f.repo.AssertNotCalled(t, "ListStages", mock.Anything, mock.Anything)
}

func TestEntityService_Progress_BothMetrics(t *testing.T) {
	f := newEntityFixture()
	f.repo.On("ListStages", mock.Anything, 42).Return(contracts.ResultOf([]npp.Stage{
		{ID: 101, MasterStageID: 2},
		{ID: 100, MasterStageID: 1},
	}))
	f.repo.On("ListStageActions", mock.Anything, 100).Return(contracts.ResultOf([]npp.Action{
		{ID: 1, Completed: true}, {ID: 2, Completed: true},
	}))
	f.repo.On("ListStageActions", mock.Anything, 101).Return(contracts.ResultOf([]npp.Action{
		{ID: 3, Completed: true}, {ID: 4}, {ID: 5}, {ID: 6},
	}))

	report, err := f.service.Progress(context.Background(), 42)

	require.NoError(t, err)
	assert.Equal(t, 50.0, report.Progress)
	assert.Equal(t, 62.5, report.AverageGateCompletion)
	require.Len(t, report.Stages, 2)
	assert.Equal(t, 100, report.Stages[0].Stage.ID)
	assert.Equal(t, 100.0, report.Stages[0].Progress)
	assert.Equal(t, 25.0, report.Stages[1].Progress)
}

func TestEntityService_Progress_FailedStageReadFails(t *testing.T) {
	f := newEntityFixture()
	f.repo.On("ListStages", mock.Anything, 42).Return(contracts.ResultOf([]npp.Stage{{ID: 100, MasterStageID: 1}}))
	f.repo.On("ListStageActions", mock.Anything, 100).Return(contracts.FailedResult[npp.Action](errors.New("503")))

	_, err := f.service.Progress(context.Background(), 42)

	assert.Error(t, err)
}

func TestEntityService_RemoveGeography(t *testing.T) {
	f := newEntityFixture()
	f.repo.On("ListEntityGeographies", mock.Anything, 42, true).
		Return(contracts.ResultOf([]npp.EntityGeography{{ID: 1, EntityID: 42, GeographyID: 9, Type: npp.GeographyTypeGeography}}))
	f.repo.On("SetEntityGeographyRemoved", mock.Anything, 1, true).Return(nil)

	require.NoError(t, f.service.RemoveGeography(context.Background(), 42, 1))
	assert.ErrorIs(t, f.service.RemoveGeography(context.Background(), 42, 99), contracts.ErrNotFound)
}

func TestEntityService_AddGeography_ProvisionsModelFolders(t *testing.T) {
	f := newEntityFixture()
	f.repo.On("GetEntity", mock.Anything, 42).Return(activeEntity(42), nil)
	f.repo.On("ListEntityGeographies", mock.Anything, 42, true).Return(contracts.ResultOf[npp.EntityGeography](nil))
	f.repo.On("CreateEntityGeography", mock.Anything, mock.Anything).Return(nil)
	f.docs.On("EnsureFolder", mock.Anything, "/sites/npp/WIP/3/42/6/12").Return(nil)
	f.docs.On("EnsureFolder", mock.Anything, "/sites/npp/Approved/3/42/6/12").Return(nil)
	f.groups.On("EnsureEntityGroups", mock.Anything, 42, mock.MatchedBy(func(l []permissions.FolderAccess) bool {
		return len(l) == 2
	})).Return(map[string]npp.Group{}, nil)

	geo, err := f.service.AddGeography(context.Background(), 42, GeographyInput{GeographyID: 12, Type: npp.GeographyTypeGeography})

	require.NoError(t, err)
	assert.Equal(t, 12, geo.GeographyID)
	f.docs.AssertExpectations(t)
}
