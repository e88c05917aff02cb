package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"nppflow/domain/contracts"
	"nppflow/domain/jobs"
	"nppflow/domain/npp"
)

// MockWorkflowRepository implements WorkflowRepository for testing
type MockWorkflowRepository struct {
	mock.Mock
}

func (m *MockWorkflowRepository) GetEntity(ctx context.Context, entityID int) (*npp.Entity, error) {
	args := m.Called(ctx, entityID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*npp.Entity), args.Error(1)
}

func (m *MockWorkflowRepository) ListEntities(ctx context.Context, status npp.EntityStatus) contracts.Result[npp.Entity] {
	args := m.Called(ctx, status)
	return args.Get(0).(contracts.Result[npp.Entity])
}

func (m *MockWorkflowRepository) CreateEntity(ctx context.Context, entity *npp.Entity) error {
	args := m.Called(ctx, entity)
	return args.Error(0)
}

func (m *MockWorkflowRepository) UpdateEntityStatus(ctx context.Context, entityID int, status npp.EntityStatus) error {
	args := m.Called(ctx, entityID, status)
	return args.Error(0)
}

func (m *MockWorkflowRepository) DeleteEntity(ctx context.Context, entityID int) error {
	args := m.Called(ctx, entityID)
	return args.Error(0)
}

func (m *MockWorkflowRepository) ListStages(ctx context.Context, entityID int) contracts.Result[npp.Stage] {
	args := m.Called(ctx, entityID)
	return args.Get(0).(contracts.Result[npp.Stage])
}

func (m *MockWorkflowRepository) CreateStage(ctx context.Context, stage *npp.Stage) error {
	args := m.Called(ctx, stage)
	return args.Error(0)
}

func (m *MockWorkflowRepository) DeleteStage(ctx context.Context, stageID int) error {
	args := m.Called(ctx, stageID)
	return args.Error(0)
}

func (m *MockWorkflowRepository) DeleteAction(ctx context.Context, actionID int) error {
	args := m.Called(ctx, actionID)
	return args.Error(0)
}

func (m *MockWorkflowRepository) GetAction(ctx context.Context, actionID int) (*npp.Action, error) {
	args := m.Called(ctx, actionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*npp.Action), args.Error(1)
}

func (m *MockWorkflowRepository) ListActions(ctx context.Context, entityID int) contracts.Result[npp.Action] {
	args := m.Called(ctx, entityID)
	return args.Get(0).(contracts.Result[npp.Action])
}

func (m *MockWorkflowRepository) ListStageActions(ctx context.Context, stageID int) contracts.Result[npp.Action] {
	args := m.Called(ctx, stageID)
	return args.Get(0).(contracts.Result[npp.Action])
}

func (m *MockWorkflowRepository) CreateAction(ctx context.Context, action *npp.Action) error {
	args := m.Called(ctx, action)
	return args.Error(0)
}

func (m *MockWorkflowRepository) CompleteAction(ctx context.Context, actionID, userID int, completedOn time.Time) error {
	args := m.Called(ctx, actionID, userID, completedOn)
	return args.Error(0)
}

func (m *MockWorkflowRepository) ListEntityGeographies(ctx context.Context, entityID int, includeRemoved bool) contracts.Result[npp.EntityGeography] {
	args := m.Called(ctx, entityID, includeRemoved)
	return args.Get(0).(contracts.Result[npp.EntityGeography])
}

func (m *MockWorkflowRepository) CreateEntityGeography(ctx context.Context, geography *npp.EntityGeography) error {
	args := m.Called(ctx, geography)
	return args.Error(0)
}

func (m *MockWorkflowRepository) SetEntityGeographyRemoved(ctx context.Context, entityGeographyID int, removed bool) error {
	args := m.Called(ctx, entityGeographyID, removed)
	return args.Error(0)
}

func (m *MockWorkflowRepository) ListForecastCycles(ctx context.Context, entityID int) contracts.Result[npp.ForecastCycle] {
	args := m.Called(ctx, entityID)
	return args.Get(0).(contracts.Result[npp.ForecastCycle])
}

func (m *MockWorkflowRepository) CreateForecastCycle(ctx context.Context, cycle *npp.ForecastCycle) error {
	args := m.Called(ctx, cycle)
	return args.Error(0)
}

// MockMasterCatalog implements MasterCatalog for testing
type MockMasterCatalog struct {
	mock.Mock
}

func (m *MockMasterCatalog) MasterStages(ctx context.Context) contracts.Result[npp.MasterStage] {
	args := m.Called(ctx)
	return args.Get(0).(contracts.Result[npp.MasterStage])
}

func (m *MockMasterCatalog) MasterActions(ctx context.Context) contracts.Result[npp.MasterAction] {
	args := m.Called(ctx)
	return args.Get(0).(contracts.Result[npp.MasterAction])
}

func (m *MockMasterCatalog) MasterFolders(ctx context.Context) contracts.Result[npp.MasterFolder] {
	args := m.Called(ctx)
	return args.Get(0).(contracts.Result[npp.MasterFolder])
}

func (m *MockMasterCatalog) MasterOpportunityTypes(ctx context.Context) contracts.Result[npp.MasterOpportunityType] {
	args := m.Called(ctx)
	return args.Get(0).(contracts.Result[npp.MasterOpportunityType])
}

func (m *MockMasterCatalog) MasterItems(ctx context.Context, list contracts.MasterList) contracts.Result[npp.MasterItem] {
	args := m.Called(ctx, list)
	return args.Get(0).(contracts.Result[npp.MasterItem])
}

func (m *MockMasterCatalog) Invalidate(list string) {
	m.Called(list)
}

func (m *MockMasterCatalog) InvalidateAll() {
	m.Called()
}

// MockJobRepository implements JobRepository for testing
type MockJobRepository struct {
	mock.Mock
}

func (m *MockJobRepository) GetJob(ctx context.Context, jobID string) (*jobs.Job, error) {
	args := m.Called(ctx, jobID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*jobs.Job), args.Error(1)
}

func (m *MockJobRepository) ListJobs(ctx context.Context) ([]*jobs.Job, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*jobs.Job), args.Error(1)
}

func (m *MockJobRepository) ListJobsByType(ctx context.Context, jobType jobs.JobType) ([]*jobs.Job, error) {
	args := m.Called(ctx, jobType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*jobs.Job), args.Error(1)
}

func (m *MockJobRepository) ListActiveJobs(ctx context.Context) ([]*jobs.Job, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*jobs.Job), args.Error(1)
}

func (m *MockJobRepository) CreateJob(ctx context.Context, job *jobs.Job) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

func (m *MockJobRepository) UpdateJob(ctx context.Context, job *jobs.Job) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

func (m *MockJobRepository) DeleteOldJobs(ctx context.Context, olderThan time.Time) error {
	args := m.Called(ctx, olderThan)
	return args.Error(0)
}

// MockUserCacheRepository implements UserCacheRepository for testing
type MockUserCacheRepository struct {
	mock.Mock
}

func (m *MockUserCacheRepository) GetCachedUser(ctx context.Context, siteURL, email string) (*contracts.CachedUser, error) {
	args := m.Called(ctx, siteURL, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*contracts.CachedUser), args.Error(1)
}

func (m *MockUserCacheRepository) PutCachedUser(ctx context.Context, user *contracts.CachedUser) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserCacheRepository) DeleteCachedUser(ctx context.Context, siteURL, email string) error {
	args := m.Called(ctx, siteURL, email)
	return args.Error(0)
}
