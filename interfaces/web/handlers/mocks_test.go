package handlers

import (
	"context"
	"fmt"

	"github.com/stretchr/testify/mock"

	"nppflow/application"
	"nppflow/domain/contracts"
	"nppflow/domain/jobs"
	"nppflow/domain/npp"
)

type mockEntityWorkflow struct {
	mock.Mock
}

func (m *mockEntityWorkflow) GetEntity(ctx context.Context, entityID int) (*npp.Entity, error) {
	args := m.Called(ctx, entityID)
	e, _ := args.Get(0).(*npp.Entity)
	return e, args.Error(1)
}

func (m *mockEntityWorkflow) CreateEntity(ctx context.Context, req application.CreateEntityRequest) (*application.InitResult, error) {
	args := m.Called(ctx, req)
	r, _ := args.Get(0).(*application.InitResult)
	return r, args.Error(1)
}

func (m *mockEntityWorkflow) InitializeEntity(ctx context.Context, entityID int) (*application.InitResult, error) {
	args := m.Called(ctx, entityID)
	r, _ := args.Get(0).(*application.InitResult)
	return r, args.Error(1)
}

func (m *mockEntityWorkflow) Progress(ctx context.Context, entityID int) (*application.ProgressReport, error) {
	args := m.Called(ctx, entityID)
	r, _ := args.Get(0).(*application.ProgressReport)
	return r, args.Error(1)
}

func (m *mockEntityWorkflow) NextStage(ctx context.Context, entityID int) (npp.MasterStage, bool, error) {
	args := m.Called(ctx, entityID)
	return args.Get(0).(npp.MasterStage), args.Bool(1), args.Error(2)
}

func (m *mockEntityWorkflow) AdvanceStage(ctx context.Context, entityID int, force bool) (*npp.Stage, error) {
	args := m.Called(ctx, entityID, force)
	s, _ := args.Get(0).(*npp.Stage)
	return s, args.Error(1)
}

func (m *mockEntityWorkflow) CompleteEntity(ctx context.Context, entityID int, spawnPhase bool) (*application.CompleteResult, error) {
	args := m.Called(ctx, entityID, spawnPhase)
	r, _ := args.Get(0).(*application.CompleteResult)
	return r, args.Error(1)
}

func (m *mockEntityWorkflow) ArchiveEntity(ctx context.Context, entityID int) (*npp.Entity, error) {
	args := m.Called(ctx, entityID)
	e, _ := args.Get(0).(*npp.Entity)
	return e, args.Error(1)
}

func (m *mockEntityWorkflow) CompleteAction(ctx context.Context, actionID, userID int) (*application.ActionCompletion, error) {
	args := m.Called(ctx, actionID, userID)
	r, _ := args.Get(0).(*application.ActionCompletion)
	return r, args.Error(1)
}

func (m *mockEntityWorkflow) Geographies(ctx context.Context, entityID int, all bool) contracts.Result[npp.EntityGeography] {
	return m.Called(ctx, entityID, all).Get(0).(contracts.Result[npp.EntityGeography])
}

func (m *mockEntityWorkflow) AddGeography(ctx context.Context, entityID int, input application.GeographyInput) (*npp.EntityGeography, error) {
	args := m.Called(ctx, entityID, input)
	g, _ := args.Get(0).(*npp.EntityGeography)
	return g, args.Error(1)
}

func (m *mockEntityWorkflow) RemoveGeography(ctx context.Context, entityID, entityGeographyID int) error {
	return m.Called(ctx, entityID, entityGeographyID).Error(0)
}

type mockForecasts struct {
	mock.Mock
}

func (m *mockForecasts) Cycles(ctx context.Context, entityID int) ([]npp.ForecastCycle, error) {
	args := m.Called(ctx, entityID)
	c, _ := args.Get(0).([]npp.ForecastCycle)
	return c, args.Error(1)
}

func (m *mockForecasts) StartRollover(ctx context.Context, entityID int, title string, actor npp.User) (*jobs.Job, error) {
	args := m.Called(ctx, entityID, title, actor)
	j, _ := args.Get(0).(*jobs.Job)
	return j, args.Error(1)
}

type mockFileWorkflow struct {
	mock.Mock
}

func (m *mockFileWorkflow) ListFiles(ctx context.Context, q application.FolderQuery) (contracts.Result[npp.File], error) {
	args := m.Called(ctx, q)
	return args.Get(0).(contracts.Result[npp.File]), args.Error(1)
}

func (m *mockFileWorkflow) RefreshFolder(ctx context.Context, q application.FolderQuery) error {
	return m.Called(ctx, q).Error(0)
}

func (m *mockFileWorkflow) Upload(ctx context.Context, req application.UploadRequest) (*npp.File, error) {
	args := m.Called(ctx, req)
	f, _ := args.Get(0).(*npp.File)
	return f, args.Error(1)
}

func (m *mockFileWorkflow) Submit(ctx context.Context, req application.ReviewRequest) (*npp.File, error) {
	args := m.Called(ctx, req)
	f, _ := args.Get(0).(*npp.File)
	return f, args.Error(1)
}

func (m *mockFileWorkflow) Approve(ctx context.Context, req application.ReviewRequest) (*npp.File, error) {
	args := m.Called(ctx, req)
	f, _ := args.Get(0).(*npp.File)
	return f, args.Error(1)
}

func (m *mockFileWorkflow) Reject(ctx context.Context, req application.ReviewRequest) (*npp.File, error) {
	args := m.Called(ctx, req)
	f, _ := args.Get(0).(*npp.File)
	return f, args.Error(1)
}

func (m *mockFileWorkflow) Comment(ctx context.Context, req application.ReviewRequest) (*npp.File, error) {
	args := m.Called(ctx, req)
	f, _ := args.Get(0).(*npp.File)
	return f, args.Error(1)
}

func (m *mockFileWorkflow) EntityOf(fileURL string) (int, error) {
	args := m.Called(fileURL)
	return args.Int(0), args.Error(1)
}

type ownerFunc func(ctx context.Context, entityID int, user npp.User) error

func (f ownerFunc) AuthorizeOwner(ctx context.Context, entityID int, user npp.User) error {
	return f(ctx, entityID, user)
}

// ownersOf allows exactly the listed user on every entity.
func ownersOf(userID int) ownerFunc {
	return func(_ context.Context, entityID int, user npp.User) error {
		if user.ID != userID {
			return fmt.Errorf("%w: user %d is not in OO-%d", contracts.ErrForbidden, user.ID, entityID)
		}
		return nil
	}
}
