package application

import (
	"context"
	"fmt"
	"slices"
	"time"

	"nppflow/domain/contracts"
	"nppflow/domain/jobs"
	"nppflow/domain/npp"
	"nppflow/domain/workflow"
	"nppflow/logging"
)

// GeographyRollover is the outcome of rolling over one geography.
type GeographyRollover struct {
	GeographyID int    `json:"geographyId"`
	Archived    int    `json:"archived"`
	Reset       int    `json:"reset"`
	Error       string `json:"error,omitempty"`
}

// RolloverResult summarises a forecast-cycle rollover.
type RolloverResult struct {
	EntityID      int                 `json:"entityId"`
	Cycle         npp.ForecastCycle   `json:"cycle"`
	ArchivedCycle int                 `json:"archivedCycle"`
	Geographies   []GeographyRollover `json:"geographies"`
}

// Failed counts the geographies that did not roll over.
func (r *RolloverResult) Failed() int {
	n := 0
	for _, g := range r.Geographies {
		if g.Error != "" {
			n++
		}
	}
	return n
}

// ForecastService closes forecast cycles: approved models are archived under the
// closing cycle and WIP models are reset for the next one.
type ForecastService struct {
	repo    contracts.WorkflowRepository
	masters contracts.MasterDataRepository
	files   *FileService
	jobs    JobService
	siteURL string
	now     func() time.Time
	logger  *logging.Logger
}

// NewForecastService creates a new forecast service.
func NewForecastService(
	repo contracts.WorkflowRepository,
	masters contracts.MasterDataRepository,
	files *FileService,
	jobService JobService,
	siteURL string,
) *ForecastService {
	return &ForecastService{
		repo:    repo,
		masters: masters,
		files:   files,
		jobs:    jobService,
		siteURL: siteURL,
		now:     time.Now,
		logger:  logging.Default().WithComponent("forecast_service"),
	}
}

// Cycles returns the recorded cycles of an entity in order.
func (s *ForecastService) Cycles(ctx context.Context, entityID int) ([]npp.ForecastCycle, error) {
	cycles, err := s.repo.ListForecastCycles(ctx, entityID).Unwrap()
	if err != nil {
		return nil, fmt.Errorf("list cycles of entity %d: %w", entityID, err)
	}
	slices.SortFunc(cycles, func(a, b npp.ForecastCycle) int { return a.CycleNumber - b.CycleNumber })
	return cycles, nil
}

// StartRollover queues a rollover job for an active entity.
func (s *ForecastService) StartRollover(ctx context.Context, entityID int, title string, actor npp.User) (*jobs.Job, error) {
	entity, err := s.repo.GetEntity(ctx, entityID)
	if err != nil {
		return nil, fmt.Errorf("get entity %d: %w", entityID, err)
	}
	if entity.Status != npp.EntityStatusActive {
		return nil, fmt.Errorf("%w: entity %d is %s", workflow.ErrInvalidTransition, entityID, entity.Status)
	}
	return s.jobs.StartJob(jobs.JobTypeForecastRollover, jobs.RolloverJobContext{
		SiteURL:     s.siteURL,
		EntityID:    entityID,
		RequestedBy: actor.ID,
		CycleTitle:  title,
	})
}

// Rollover opens the next cycle and moves every active geography over to it. A
// geography that fails is recorded in the result and the others still run; only
// failures before any geography is touched are returned as errors. Everything
// the run reads is loaded before the new cycle is written.
func (s *ForecastService) Rollover(ctx context.Context, in jobs.RolloverJobContext, progress ProgressReporter) (*RolloverResult, error) {
	log := s.logger.WithEntity(in.EntityID)

	entity, err := s.repo.GetEntity(ctx, in.EntityID)
	if err != nil {
		return nil, fmt.Errorf("get entity %d: %w", in.EntityID, err)
	}
	cycles, err := s.Cycles(ctx, entity.ID)
	if err != nil {
		return nil, err
	}
	closing := 1
	if len(cycles) > 0 {
		closing = cycles[len(cycles)-1].CycleNumber
	}

	geographies, err := s.repo.ListEntityGeographies(ctx, entity.ID, false).Unwrap()
	if err != nil {
		return nil, fmt.Errorf("list geographies of entity %d: %w", entity.ID, err)
	}
	departments, err := s.masters.MasterFolders(ctx).Unwrap()
	if err != nil {
		return nil, fmt.Errorf("load departments: %w", err)
	}

	progress.ReportProgress("preparing", "Opening the next forecast cycle", 5)
	next := npp.ForecastCycle{
		EntityID:    entity.ID,
		CycleNumber: closing + 1,
		Title:       in.CycleTitle,
		StartedOn:   s.now(),
	}
	if next.Title == "" {
		next.Title = fmt.Sprintf("Cycle %d", next.CycleNumber)
	}
	if err := s.repo.CreateForecastCycle(ctx, &next); err != nil {
		return nil, fmt.Errorf("create cycle %d: %w", next.CycleNumber, err)
	}

	result := &RolloverResult{EntityID: entity.ID, Cycle: next, ArchivedCycle: closing}
	for i, geo := range geographies {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		location := geo.LocationID()
		pct := 10 + 90*i/len(geographies)
		progress.ReportItemProgress("archiving", fmt.Sprintf("Rolling over geography %d", location), pct, i, len(geographies))

		outcome := GeographyRollover{GeographyID: location}
		for _, dept := range departments {
			if !dept.ContainsModels {
				continue
			}
			archived, reset, err := s.rolloverFolder(ctx, entity, dept.ID, location, closing)
			outcome.Archived += archived
			outcome.Reset += reset
			if err != nil {
				outcome.Error = fmt.Sprintf("department %d: %v", dept.ID, err)
				log.WorkflowError("Geography rollover failed", err, entity.ID, "geography_id", location, "department_id", dept.ID)
				break
			}
		}
		result.Geographies = append(result.Geographies, outcome)
	}

	progress.ReportItemProgress("archiving", "Rollover finished", 100, len(geographies), len(geographies))
	log.Workflow("Forecast cycle rolled over", entity.ID,
		"closed_cycle", closing, "new_cycle", next.CycleNumber,
		"geographies", len(geographies), "failed", result.Failed())
	return result, nil
}

func (s *ForecastService) rolloverFolder(ctx context.Context, entity *npp.Entity, departmentID, locationID, cycle int) (int, int, error) {
	archived, err := s.files.ArchiveApproved(ctx, entity, departmentID, locationID, cycle)
	if err != nil {
		return archived, 0, err
	}
	reset, err := s.files.ResetWIP(ctx, entity, departmentID, locationID)
	return archived, reset, err
}
