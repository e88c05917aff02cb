package application

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"nppflow/domain/contracts"
	"nppflow/domain/jobs"
	"nppflow/domain/npp"
	"nppflow/domain/workflow"
)

type progressRecorder struct {
	stages []string
	last   int
}

func (p *progressRecorder) ReportProgress(stage, description string, percentage int) {
	p.stages = append(p.stages, stage)
	p.last = percentage
}

func (p *progressRecorder) ReportItemProgress(stage, description string, percentage, itemsDone, itemsTotal int) {
	p.stages = append(p.stages, stage)
	p.last = percentage
}

type stubJobService struct {
	JobService
	started []jobs.JobContextData
}

func (s *stubJobService) StartJob(jobType jobs.JobType, jobCtx jobs.JobContextData) (*jobs.Job, error) {
	s.started = append(s.started, jobCtx)
	return &jobs.Job{ID: "job-1", Type: jobType, Status: jobs.JobStatusPending}, nil
}

func newForecastFixture() (*fileFixture, *ForecastService, *stubJobService) {
	f := newFileFixture()
	stub := &stubJobService{}
	service := NewForecastService(f.repo, f.masters, f.service, stub, "https://contoso.sharepoint.com/sites/npp")
	service.now = f.service.now
	return f, service, stub
}

func TestForecastService_Rollover_ContinuesPastFailedGeography(t *testing.T) {
	// Arrange
	f, service, _ := newForecastFixture()
	f.repo.On("ListForecastCycles", mock.Anything, 42).Return(contracts.ResultOf[npp.ForecastCycle](nil))
	f.repo.On("CreateForecastCycle", mock.Anything, mock.MatchedBy(func(c *npp.ForecastCycle) bool {
		return c.CycleNumber == 2 && c.Title == "Q3 refresh"
	})).Return(nil)
	f.repo.On("ListEntityGeographies", mock.Anything, 42, false).Return(contracts.ResultOf([]npp.EntityGeography{
		{ID: 1, EntityID: 42, GeographyID: 12, Type: npp.GeographyTypeGeography},
		{ID: 2, EntityID: 42, GeographyID: 9, Type: npp.GeographyTypeGeography},
	}))

	f.docs.On("ListFiles", mock.Anything, "/sites/npp/Approved/3/42/6/12").
		Return(contracts.FailedResult[npp.File](errors.New("throttled")))

	prev := npp.File{ID: 60, Name: "Prev.xlsx", ServerRelativeURL: approvedFolder + "/Prev.xlsx", ScenarioIDs: []int{1}}
	f.docs.On("ListFiles", mock.Anything, approvedFolder).Return(contracts.ResultOf([]npp.File{prev}))
	f.docs.On("EnsureFolder", mock.Anything, "/sites/npp/Archived/3/42/6/9/1").Return(nil)
	f.docs.On("CopyFile", mock.Anything, prev.ServerRelativeURL, "/sites/npp/Archived/3/42/6/9/1/Prev.xlsx", true).
		Return(&npp.File{ID: 95, Name: "Prev.xlsx"}, nil)
	companion := npp.File{Name: "Prev_60.csv", ForecastID: 60}
	f.companions.On("List", mock.Anything, npp.ModelPath(npp.RootApproved, 3, 42, 6, 9)).
		Return(contracts.ResultOf([]npp.File{companion}))
	f.companions.On("Copy", mock.Anything, companion, npp.ArchivePath(3, 42, 6, 9, 1), "Prev_95.csv", 95).Return(nil)
	f.companions.On("Delete", mock.Anything, companion).Return(nil)
	f.docs.On("DeleteFile", mock.Anything, prev.ServerRelativeURL).Return(nil)

	f.docs.On("ListFiles", mock.Anything, wipFolder).Return(contracts.ResultOf([]npp.File{
		{ID: 77, Name: "Base.xlsx", ServerRelativeURL: wipFolder + "/Base.xlsx", ApprovalStatus: npp.ApprovalApproved, Comments: `[{"id":"c1"}]`},
		{ID: 78, Name: "Low.xlsx", ServerRelativeURL: wipFolder + "/Low.xlsx", ApprovalStatus: npp.ApprovalSubmitted},
	}))
	f.docs.On("UpdateFileFields", mock.Anything, mock.Anything, mock.MatchedBy(func(ff npp.FileFields) bool {
		return *ff.ApprovalStatus == npp.ApprovalInProgress && *ff.Comments == workflow.EmptyComments
	})).Return(nil)
	progress := &progressRecorder{}

	// Act
	result, err := service.Rollover(context.Background(), jobs.RolloverJobContext{EntityID: 42, CycleTitle: "Q3 refresh"}, progress)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 1, result.ArchivedCycle)
	assert.Equal(t, 2, result.Cycle.CycleNumber)
	require.Len(t, result.Geographies, 2)
	assert.Equal(t, 12, result.Geographies[0].GeographyID)
	assert.Contains(t, result.Geographies[0].Error, "throttled")
	assert.Equal(t, GeographyRollover{GeographyID: 9, Archived: 1, Reset: 2}, result.Geographies[1])
	assert.Equal(t, 1, result.Failed())
	assert.Equal(t, 100, progress.last)
	f.docs.AssertNumberOfCalls(t, "UpdateFileFields", 2)
	f.companions.AssertExpectations(t)
}

func TestForecastService_Rollover_NumbersFromLatestCycle(t *testing.T) {
	f, service, _ := newForecastFixture()
	f.repo.On("ListForecastCycles", mock.Anything, 42).Return(contracts.ResultOf([]npp.ForecastCycle{
		{ID: 5, CycleNumber: 3}, {ID: 3, CycleNumber: 1}, {ID: 4, CycleNumber: 2},
	}))
	f.repo.On("CreateForecastCycle", mock.Anything, mock.Anything).Return(nil)
	f.repo.On("ListEntityGeographies", mock.Anything, 42, false).Return(contracts.ResultOf[npp.EntityGeography](nil))

	result, err := service.Rollover(context.Background(), jobs.RolloverJobContext{EntityID: 42}, &progressRecorder{})

	require.NoError(t, err)
	assert.Equal(t, 3, result.ArchivedCycle)
	assert.Equal(t, 4, result.Cycle.CycleNumber)
	assert.Equal(t, "Cycle 4", result.Cycle.Title)
	assert.Empty(t, result.Geographies)
}

func TestForecastService_Rollover_FailureBeforeArchivingStopsEarly(t *testing.T) {
	tests := []struct {
		name            string
		geographies     contracts.Result[npp.EntityGeography]
		createErr       error
		wantCycleWrites int
	}{
		{
			name:            "cycle_create_fails",
			geographies:     contracts.ResultOf([]npp.EntityGeography{{ID: 2, EntityID: 42, GeographyID: 9, Type: npp.GeographyTypeGeography}}),
			createErr:       errors.New("list locked"),
			wantCycleWrites: 1,
		},
		{
			name:            "geography_listing_fails",
			geographies:     contracts.FailedResult[npp.EntityGeography](errors.New("throttled")),
			wantCycleWrites: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, service, _ := newForecastFixture()
			f.repo.On("ListForecastCycles", mock.Anything, 42).Return(contracts.ResultOf[npp.ForecastCycle](nil))
			f.repo.On("ListEntityGeographies", mock.Anything, 42, false).Return(tt.geographies)
			f.repo.On("CreateForecastCycle", mock.Anything, mock.Anything).Return(tt.createErr)

			_, err := service.Rollover(context.Background(), jobs.RolloverJobContext{EntityID: 42}, &progressRecorder{})

			require.Error(t, err)
			f.repo.AssertNumberOfCalls(t, "CreateForecastCycle", tt.wantCycleWrites)
			f.docs.AssertNotCalled(t, "ListFiles", mock.Anything, mock.Anything)
		})
	}
}

func TestForecastService_StartRollover(t *testing.T) {
	f, service, stub := newForecastFixture()
	f.repo.On("GetEntity", mock.Anything, 43).Return(processingEntity(43), nil)

	job, err := service.StartRollover(context.Background(), 42, "Q4", ana)
	require.NoError(t, err)
	assert.Equal(t, "job-1", job.ID)
	require.Len(t, stub.started, 1)
	assert.Equal(t, jobs.RolloverJobContext{
		SiteURL:     "https://contoso.sharepoint.com/sites/npp",
		EntityID:    42,
		RequestedBy: ana.ID,
		CycleTitle:  "Q4",
	}, stub.started[0])

	_, err = service.StartRollover(context.Background(), 43, "Q4", ana)
	assert.ErrorIs(t, err, workflow.ErrInvalidTransition)
	assert.Len(t, stub.started, 1)
}
