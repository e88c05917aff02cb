package application

import (
	"context"
	"fmt"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"nppflow/domain/contracts"
	"nppflow/domain/events"
	"nppflow/domain/npp"
	"nppflow/domain/permissions"
	"nppflow/domain/workflow"
	"nppflow/logging"
)

// GroupProvisioner creates permission groups and manages their members.
type GroupProvisioner interface {
	EnsureEntityGroups(ctx context.Context, entityID int, layout []permissions.FolderAccess) (map[string]npp.Group, error)
	AddMembers(ctx context.Context, entityID int, groupName string, userIDs ...int) (*SyncReport, error)
	CopyMembers(ctx context.Context, entityID int, from, to string) (*SyncReport, error)
}

// InitResult is what InitializeEntity produced.
type InitResult struct {
	Entity     *npp.Entity  `json:"entity"`
	Stage      npp.Stage    `json:"stage"`
	Actions    []npp.Action `json:"actions"`
	SeatDenied bool         `json:"seatDenied"`
}

// CompleteResult is what CompleteEntity produced.
type CompleteResult struct {
	Entity    *npp.Entity `json:"entity"`
	Successor *npp.Entity `json:"successor,omitempty"`
}

// ActionCompletion reports a completed action and whether its stage may now advance.
type ActionCompletion struct {
	Action         *npp.Action `json:"action"`
	ReadyToAdvance bool        `json:"readyToAdvance"`
}

// StageProgressView is one stage of an entity progress report.
type StageProgressView struct {
	Stage    npp.Stage `json:"stage"`
	Progress float64   `json:"progress"`
	Actions  int       `json:"actions"`
	Done     int       `json:"done"`
}

// ProgressReport carries both progress metrics of an entity.
type ProgressReport struct {
	EntityID              int                 `json:"entityId"`
	Progress              float64             `json:"progress"`
	AverageGateCompletion float64             `json:"averageGateCompletion"`
	Stages                []StageProgressView `json:"stages"`
}

// EntityService runs the entity workflow: initialization, stage progression and completion.
type EntityService struct {
	repo    contracts.WorkflowRepository
	masters contracts.MasterDataRepository
	docs    contracts.DocumentGateway
	groups  GroupProvisioner
	events  events.WorkflowEventPublisher
	now     func() time.Time
	logger  *logging.Logger
}

// NewEntityService creates a new entity service.
func NewEntityService(
	repo contracts.WorkflowRepository,
	masters contracts.MasterDataRepository,
	docs contracts.DocumentGateway,
	groups GroupProvisioner,
	publisher events.WorkflowEventPublisher,
) *EntityService {
	return &EntityService{
		repo:    repo,
		masters: masters,
		docs:    docs,
		groups:  groups,
		events:  publisher,
		now:     time.Now,
		logger:  logging.Default().WithComponent("entity_service"),
	}
}

// GetEntity loads an entity.
func (s *EntityService) GetEntity(ctx context.Context, entityID int) (*npp.Entity, error) {
	entity, err := s.repo.GetEntity(ctx, entityID)
	if err != nil {
		return nil, fmt.Errorf("get entity %d: %w", entityID, err)
	}
	return entity, nil
}

// CreateEntity stores a new entity and its geographies, then initializes it.
func (s *EntityService) CreateEntity(ctx context.Context, req CreateEntityRequest) (*InitResult, error) {
	entity := &npp.Entity{
		Title:             req.Title,
		Kind:              req.Kind,
		OwnerID:           req.OwnerID,
		BusinessUnitID:    req.BusinessUnitID,
		OpportunityTypeID: req.OpportunityTypeID,
		Status:            npp.EntityStatusProcessing,
		IndicationIDs:     req.IndicationIDs,
	}
	if err := s.repo.CreateEntity(ctx, entity); err != nil {
		return nil, fmt.Errorf("create entity: %w", err)
	}
	s.logger.Workflow("Entity created", entity.ID, "title", entity.Title, "kind", entity.Kind)

	for _, g := range req.Geographies {
		geo := &npp.EntityGeography{EntityID: entity.ID, GeographyID: g.GeographyID, CountryID: g.CountryID, Type: g.Type}
		if err := s.repo.CreateEntityGeography(ctx, geo); err != nil {
			return nil, fmt.Errorf("add geography to entity %d: %w", entity.ID, err)
		}
	}

	return s.InitializeEntity(ctx, entity.ID)
}

func (s *EntityService) opportunityType(ctx context.Context, id int) (npp.MasterOpportunityType, error) {
	types, err := s.masters.MasterOpportunityTypes(ctx).Unwrap()
	if err != nil {
		return npp.MasterOpportunityType{}, fmt.Errorf("load opportunity types: %w", err)
	}
	for _, t := range types {
		if t.ID == id {
			return t, nil
		}
	}
	return npp.MasterOpportunityType{}, fmt.Errorf("%w: opportunity type %d", contracts.ErrMasterDataMissing, id)
}

// stages loads the entity's stages in progression order with template data filled in.
func (s *EntityService) stages(ctx context.Context, entityID int, masters []npp.MasterStage) ([]npp.Stage, error) {
	stages, err := s.repo.ListStages(ctx, entityID).Unwrap()
	if err != nil {
		return nil, fmt.Errorf("list stages of entity %d: %w", entityID, err)
	}
	for i := range stages {
		m, ok := workflow.FindMasterStage(masters, stages[i].MasterStageID)
		if !ok {
			continue
		}
		if stages[i].StageNumber == 0 {
			stages[i].StageNumber = m.StageNumber
		}
		if stages[i].Title == "" {
			stages[i].Title = m.Title
		}
	}
	workflow.SortStages(stages)
	return stages, nil
}

func (s *EntityService) layoutInput(ctx context.Context, entity *npp.Entity) (permissions.LayoutInput, error) {
	departments, err := s.masters.MasterFolders(ctx).Unwrap()
	if err != nil {
		return permissions.LayoutInput{}, fmt.Errorf("load departments: %w", err)
	}
	return permissions.LayoutInput{
		EntityID:       entity.ID,
		BusinessUnitID: entity.BusinessUnitID,
		Brand:          entity.IsBrand(),
		Departments:    departments,
	}, nil
}

// provision creates the layout's folders, then its groups and grants.
func (s *EntityService) provision(ctx context.Context, entityID int, layout []permissions.FolderAccess) error {
	site := s.docs.SiteRelativeURL()
	for _, f := range layout {
		if err := s.docs.EnsureFolder(ctx, f.Folder.ServerRelative(site)); err != nil {
			return fmt.Errorf("create folder %s: %w", f.Folder.Relative(), err)
		}
	}
	_, err := s.groups.EnsureEntityGroups(ctx, entityID, layout)
	return err
}

// createActions instantiates the stage's actions, skipping templates that already have one.
func (s *EntityService) createActions(ctx context.Context, entity *npp.Entity, stage npp.Stage, created time.Time) ([]npp.Action, error) {
	existing, err := s.repo.ListStageActions(ctx, stage.ID).Unwrap()
	if err != nil {
		return nil, fmt.Errorf("list actions of stage %d: %w", stage.ID, err)
	}
	templates, err := s.masters.MasterActions(ctx).Unwrap()
	if err != nil {
		return nil, fmt.Errorf("load action templates: %w", err)
	}

	actions := existing
	for _, a := range workflow.ActionsFromTemplates(templates, entity.ID, stage.ID, stage.MasterStageID, entity.OpportunityTypeID, created) {
		a := a // per-iteration copy (go directive < 1.22)
		if slices.ContainsFunc(existing, func(e npp.Action) bool { return e.MasterActionID == a.MasterActionID }) {
			continue
		}
		if err := s.repo.CreateAction(ctx, &a); err != nil {
			return nil, fmt.Errorf("create action %q: %w", a.Title, err)
		}
		actions = append(actions, a)
	}
	return actions, nil
}

func (s *EntityService) setStatus(ctx context.Context, entity *npp.Entity, to npp.EntityStatus) error {
	from := entity.Status
	if err := workflow.CheckTransition(from, to); err != nil {
		return err
	}
	if err := s.repo.UpdateEntityStatus(ctx, entity.ID, to); err != nil {
		return fmt.Errorf("set entity %d status %s: %w", entity.ID, to, err)
	}
	entity.Status = to
	s.logger.Workflow("Entity status changed", entity.ID, "from", from, "to", to)
	s.events.PublishEntityStatusChanged(events.EntityStatusChangedEvent{
		EntityID:  entity.ID,
		Title:     entity.Title,
		From:      from,
		To:        to,
		Timestamp: s.now(),
	})
	return nil
}

// InitializeEntity takes a Processing entity to Active. A stage left by an
// earlier failed attempt is reused.
func (s *EntityService) InitializeEntity(ctx context.Context, entityID int) (*InitResult, error) {
	entity, err := s.GetEntity(ctx, entityID)
	if err != nil {
		return nil, err
	}
	if !workflow.CanTransition(entity.Status, npp.EntityStatusActive) || entity.Status == npp.EntityStatusActive {
		return nil, fmt.Errorf("%w: cannot initialize a %s entity", workflow.ErrInvalidTransition, entity.Status)
	}
	log := s.logger.WithEntity(entityID)

	oppType, err := s.opportunityType(ctx, entity.OpportunityTypeID)
	if err != nil {
		return nil, err
	}
	masters, err := s.masters.MasterStages(ctx).Unwrap()
	if err != nil {
		return nil, fmt.Errorf("load master stages: %w", err)
	}
	first, ok := workflow.FirstMasterStage(masters, oppType.StageType)
	if !ok {
		return nil, fmt.Errorf("%w: no stages for stage type %q", contracts.ErrMasterDataMissing, oppType.StageType)
	}

	existing, err := s.stages(ctx, entityID, masters)
	if err != nil {
		return nil, err
	}
	stage, ok := workflow.CurrentStage(existing)
	if ok {
		log.Info("Reusing existing stage", "stage_id", stage.ID)
	} else {
		stage = npp.Stage{
			EntityID:      entityID,
			MasterStageID: first.ID,
			Title:         first.Title,
			StageNumber:   first.StageNumber,
			StageUserIDs:  []int{entity.OwnerID},
		}
		if err := s.repo.CreateStage(ctx, &stage); err != nil {
			if delErr := s.repo.DeleteEntity(ctx, entityID); delErr != nil {
				log.Error("Failed to delete entity after stage creation failure", "error", delErr)
			} else {
				log.Warn("Entity deleted after stage creation failure")
			}
			return nil, fmt.Errorf("create first stage of entity %d: %w", entityID, err)
		}
	}

	created := entity.Created
	if created.IsZero() {
		created = s.now()
	}
	actions, err := s.createActions(ctx, entity, stage, created)
	if err != nil {
		return nil, err
	}

	geographies, err := s.repo.ListEntityGeographies(ctx, entityID, false).Unwrap()
	if err != nil {
		return nil, fmt.Errorf("list geographies of entity %d: %w", entityID, err)
	}
	geoIDs := make([]int, 0, len(geographies))
	for _, g := range geographies {
		geoIDs = append(geoIDs, g.LocationID())
	}

	in, err := s.layoutInput(ctx, entity)
	if err != nil {
		return nil, err
	}
	if err := s.provision(ctx, entityID, permissions.EntityFolders(in, stage.ID, geoIDs)); err != nil {
		return nil, err
	}

	result := &InitResult{Entity: entity, Stage: stage, Actions: actions}
	for _, ref := range []permissions.GroupRef{permissions.EntityOwners(entityID), permissions.EntityUsers(entityID)} {
		report, err := s.groups.AddMembers(ctx, entityID, ref.Name(), entity.OwnerID)
		if err != nil {
			return nil, fmt.Errorf("add owner to %s: %w", ref.Name(), err)
		}
		if len(report.SeatDenied) > 0 {
			result.SeatDenied = true
		}
	}

	if err := s.setStatus(ctx, entity, npp.EntityStatusActive); err != nil {
		return nil, err
	}
	log.Workflow("Entity initialized", entityID, "stage_id", stage.ID, "actions", len(actions), "geographies", len(geoIDs))
	return result, nil
}

// NextStage returns the template the entity would advance to. ok is false on the last stage.
func (s *EntityService) NextStage(ctx context.Context, entityID int) (npp.MasterStage, bool, error) {
	masters, err := s.masters.MasterStages(ctx).Unwrap()
	if err != nil {
		return npp.MasterStage{}, false, fmt.Errorf("load master stages: %w", err)
	}
	stages, err := s.stages(ctx, entityID, masters)
	if err != nil {
		return npp.MasterStage{}, false, err
	}
	current, ok := workflow.CurrentStage(stages)
	if !ok {
		return npp.MasterStage{}, false, fmt.Errorf("entity %d has no stage: %w", entityID, contracts.ErrNotFound)
	}
	currentMaster, ok := workflow.FindMasterStage(masters, current.MasterStageID)
	if !ok {
		return npp.MasterStage{}, false, fmt.Errorf("%w: master stage %d", contracts.ErrMasterDataMissing, current.MasterStageID)
	}
	next, ok := workflow.NextMasterStage(masters, currentMaster)
	return next, ok, nil
}

// AdvanceStage moves an Active entity to its next stage. Unless forced, every
// action of the current stage must be complete.
func (s *EntityService) AdvanceStage(ctx context.Context, entityID int, force bool) (*npp.Stage, error) {
	entity, err := s.GetEntity(ctx, entityID)
	if err != nil {
		return nil, err
	}
	if err := workflow.CheckTransition(entity.Status, npp.EntityStatusActive); err != nil || entity.Status != npp.EntityStatusActive {
		return nil, fmt.Errorf("%w: cannot advance a %s entity", workflow.ErrInvalidTransition, entity.Status)
	}

	masters, err := s.masters.MasterStages(ctx).Unwrap()
	if err != nil {
		return nil, fmt.Errorf("load master stages: %w", err)
	}
	stages, err := s.stages(ctx, entityID, masters)
	if err != nil {
		return nil, err
	}
	current, ok := workflow.CurrentStage(stages)
	if !ok {
		return nil, fmt.Errorf("entity %d has no stage: %w", entityID, contracts.ErrNotFound)
	}

	if !force {
		actions, err := s.repo.ListStageActions(ctx, current.ID).Unwrap()
		if err != nil {
			return nil, fmt.Errorf("list actions of stage %d: %w", current.ID, err)
		}
		if !workflow.StageComplete(actions) {
			return nil, contracts.ErrStageIncomplete
		}
	}

	currentMaster, ok := workflow.FindMasterStage(masters, current.MasterStageID)
	if !ok {
		return nil, fmt.Errorf("%w: master stage %d", contracts.ErrMasterDataMissing, current.MasterStageID)
	}
	next, ok := workflow.NextMasterStage(masters, currentMaster)
	if !ok {
		return nil, contracts.ErrNoNextStage
	}

	stage := npp.Stage{
		EntityID:      entityID,
		MasterStageID: next.ID,
		Title:         next.Title,
		StageNumber:   next.StageNumber,
		StageUserIDs:  slices.Clone(current.StageUserIDs),
	}
	if err := s.repo.CreateStage(ctx, &stage); err != nil {
		return nil, fmt.Errorf("create stage %q: %w", next.Title, err)
	}
	if err := s.buildStage(ctx, entity, current, stage); err != nil {
		s.rollbackStage(ctx, stage)
		return nil, err
	}

	s.logger.Workflow("Stage advanced", entityID, "from_stage", current.ID, "to_stage", stage.ID, "forced", force)
	return &stage, nil
}

// buildStage creates the actions, Documents folders and SU members of a newly
// created stage.
func (s *EntityService) buildStage(ctx context.Context, entity *npp.Entity, previous, stage npp.Stage) error {
	if _, err := s.createActions(ctx, entity, stage, s.now()); err != nil {
		return err
	}
	in, err := s.layoutInput(ctx, entity)
	if err != nil {
		return err
	}
	if err := s.provision(ctx, entity.ID, permissions.StageFolders(in, stage.ID)); err != nil {
		return err
	}
	from := permissions.StageUsers(entity.ID, previous.ID).Name()
	to := permissions.StageUsers(entity.ID, stage.ID).Name()
	if _, err := s.groups.CopyMembers(ctx, entity.ID, from, to); err != nil {
		return fmt.Errorf("copy stage users: %w", err)
	}
	return nil
}

// rollbackStage removes a partly built stage and its actions so the previous
// stage is current again.
func (s *EntityService) rollbackStage(ctx context.Context, stage npp.Stage) {
	log := s.logger.WithEntity(stage.EntityID)
	actions, err := s.repo.ListStageActions(ctx, stage.ID).Unwrap()
	if err != nil {
		log.Error("Failed to list actions of abandoned stage", "stage_id", stage.ID, "error", err)
	}
	for _, a := range actions {
		if err := s.repo.DeleteAction(ctx, a.ID); err != nil {
			log.Error("Failed to delete action of abandoned stage", "stage_id", stage.ID, "action_id", a.ID, "error", err)
		}
	}
	if err := s.repo.DeleteStage(ctx, stage.ID); err != nil {
		log.Error("Failed to delete abandoned stage", "stage_id", stage.ID, "error", err)
		return
	}
	log.Warn("Abandoned stage deleted", "stage_id", stage.ID)
}

// CompleteEntity approves an Active entity. When spawnPhase is set and the entity
// is not itself a Phase, a successor entity of the first Phase opportunity type
// is created and initialized.
func (s *EntityService) CompleteEntity(ctx context.Context, entityID int, spawnPhase bool) (*CompleteResult, error) {
	entity, err := s.GetEntity(ctx, entityID)
	if err != nil {
		return nil, err
	}
	oppType, err := s.opportunityType(ctx, entity.OpportunityTypeID)
	if err != nil {
		return nil, err
	}
	if err := s.setStatus(ctx, entity, npp.EntityStatusApproved); err != nil {
		return nil, err
	}

	result := &CompleteResult{Entity: entity}
	if !spawnPhase || oppType.StageType == npp.StageTypePhase {
		return result, nil
	}

	phase, err := s.phaseType(ctx)
	if err != nil {
		return result, err
	}
	geographies, err := s.repo.ListEntityGeographies(ctx, entityID, false).Unwrap()
	if err != nil {
		return result, fmt.Errorf("list geographies of entity %d: %w", entityID, err)
	}
	req := CreateEntityRequest{
		Title:             entity.Title,
		Kind:              entity.Kind,
		OwnerID:           entity.OwnerID,
		BusinessUnitID:    entity.BusinessUnitID,
		OpportunityTypeID: phase.ID,
		IndicationIDs:     entity.IndicationIDs,
	}
	for _, g := range geographies {
		req.Geographies = append(req.Geographies, GeographyInput{GeographyID: g.GeographyID, CountryID: g.CountryID, Type: g.Type})
	}

	init, err := s.CreateEntity(ctx, req)
	if err != nil {
		return result, fmt.Errorf("spawn phase successor of entity %d: %w", entityID, err)
	}
	result.Successor = init.Entity
	s.logger.Workflow("Phase successor spawned", entityID, "successor_id", init.Entity.ID)
	return result, nil
}

func (s *EntityService) phaseType(ctx context.Context) (npp.MasterOpportunityType, error) {
	types, err := s.masters.MasterOpportunityTypes(ctx).Unwrap()
	if err != nil {
		return npp.MasterOpportunityType{}, fmt.Errorf("load opportunity types: %w", err)
	}
	var phase *npp.MasterOpportunityType
	for i := range types {
		if types[i].StageType == npp.StageTypePhase && (phase == nil || types[i].ID < phase.ID) {
			phase = &types[i]
		}
	}
	if phase == nil {
		return npp.MasterOpportunityType{}, fmt.Errorf("%w: no Phase opportunity type", contracts.ErrMasterDataMissing)
	}
	return *phase, nil
}

// ArchiveEntity moves an Active entity to Archive.
func (s *EntityService) ArchiveEntity(ctx context.Context, entityID int) (*npp.Entity, error) {
	entity, err := s.GetEntity(ctx, entityID)
	if err != nil {
		return nil, err
	}
	if err := s.setStatus(ctx, entity, npp.EntityStatusArchive); err != nil {
		return nil, err
	}
	return entity, nil
}

// CompleteAction marks an action done by userID. Completing an already
// completed action is a no-op.
func (s *EntityService) CompleteAction(ctx context.Context, actionID, userID int) (*ActionCompletion, error) {
	action, err := s.repo.GetAction(ctx, actionID)
	if err != nil {
		return nil, fmt.Errorf("get action %d: %w", actionID, err)
	}
	if !action.Completed {
		now := s.now()
		if err := s.repo.CompleteAction(ctx, actionID, userID, now); err != nil {
			return nil, fmt.Errorf("complete action %d: %w", actionID, err)
		}
		action.Completed = true
		action.CompletedByID = userID
		action.CompletedOn = &now
	}

	actions, err := s.repo.ListStageActions(ctx, action.StageID).Unwrap()
	if err != nil {
		return nil, fmt.Errorf("list actions of stage %d: %w", action.StageID, err)
	}
	for i := range actions {
		if actions[i].ID == action.ID {
			actions[i] = *action
		}
	}

	result := &ActionCompletion{Action: action}
	if !workflow.StageComplete(actions) {
		return result, nil
	}
	_, hasNext, err := s.NextStage(ctx, action.EntityID)
	if err != nil {
		return nil, err
	}
	result.ReadyToAdvance = hasNext
	s.logger.Workflow("Action completed", action.EntityID, "action_id", actionID, "ready_to_advance", hasNext)
	return result, nil
}

// Geographies lists an entity's geographies; removed ones only when all is set.
func (s *EntityService) Geographies(ctx context.Context, entityID int, all bool) contracts.Result[npp.EntityGeography] {
	return s.repo.ListEntityGeographies(ctx, entityID, all)
}

// AddGeography links a geography and provisions its model folders and groups.
func (s *EntityService) AddGeography(ctx context.Context, entityID int, input GeographyInput) (*npp.EntityGeography, error) {
	entity, err := s.GetEntity(ctx, entityID)
	if err != nil {
		return nil, err
	}
	geo := &npp.EntityGeography{EntityID: entityID, GeographyID: input.GeographyID, CountryID: input.CountryID, Type: input.Type}

	existing, err := s.repo.ListEntityGeographies(ctx, entityID, true).Unwrap()
	if err != nil {
		return nil, fmt.Errorf("list geographies of entity %d: %w", entityID, err)
	}
	idx := slices.IndexFunc(existing, func(g npp.EntityGeography) bool {
		return g.Type == geo.Type && g.LocationID() == geo.LocationID()
	})
	switch {
	case idx >= 0 && !existing[idx].Removed:
		return &existing[idx], nil
	case idx >= 0:
		if err := s.repo.SetEntityGeographyRemoved(ctx, existing[idx].ID, false); err != nil {
			return nil, fmt.Errorf("restore geography %d: %w", existing[idx].ID, err)
		}
		geo = &existing[idx]
		geo.Removed = false
	default:
		if err := s.repo.CreateEntityGeography(ctx, geo); err != nil {
			return nil, fmt.Errorf("add geography to entity %d: %w", entityID, err)
		}
	}

	in, err := s.layoutInput(ctx, entity)
	if err != nil {
		return nil, err
	}
	if err := s.provision(ctx, entityID, permissions.GeographyFolders(in, geo.LocationID())); err != nil {
		return nil, err
	}
	s.logger.Workflow("Geography added", entityID, "geography", geo.LocationID(), "type", geo.Type)
	return geo, nil
}

// RemoveGeography soft-removes one of the entity's geographies.
func (s *EntityService) RemoveGeography(ctx context.Context, entityID, entityGeographyID int) error {
	all, err := s.repo.ListEntityGeographies(ctx, entityID, true).Unwrap()
	if err != nil {
		return fmt.Errorf("list geographies of entity %d: %w", entityID, err)
	}
	if !slices.ContainsFunc(all, func(g npp.EntityGeography) bool { return g.ID == entityGeographyID }) {
		return fmt.Errorf("geography %d of entity %d: %w", entityGeographyID, entityID, contracts.ErrNotFound)
	}
	if err := s.repo.SetEntityGeographyRemoved(ctx, entityGeographyID, true); err != nil {
		return fmt.Errorf("remove geography %d: %w", entityGeographyID, err)
	}
	s.logger.Workflow("Geography removed", entityID, "entity_geography_id", entityGeographyID)
	return nil
}

// Progress computes entity progress and average gate completion. Stage actions
// are fetched concurrently and applied in stage order.
func (s *EntityService) Progress(ctx context.Context, entityID int) (*ProgressReport, error) {
	masters, err := s.masters.MasterStages(ctx).Unwrap()
	if err != nil {
		return nil, fmt.Errorf("load master stages: %w", err)
	}
	stages, err := s.stages(ctx, entityID, masters)
	if err != nil {
		return nil, err
	}

	gathered := make([]workflow.StageActions, len(stages))
	g, gctx := errgroup.WithContext(ctx)
	for i, st := range stages {
		i, st := i, st // per-iteration copy (go directive < 1.22)
		g.Go(func() error {
			actions, err := s.repo.ListStageActions(gctx, st.ID).Unwrap()
			if err != nil {
				return fmt.Errorf("list actions of stage %d: %w", st.ID, err)
			}
			gathered[i] = workflow.StageActions{Stage: st, Actions: actions}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := &ProgressReport{
		EntityID:              entityID,
		Progress:              workflow.EntityProgress(gathered, len(gathered)-1),
		AverageGateCompletion: workflow.AverageGateCompletion(gathered),
	}
	for _, sa := range gathered {
		done := 0
		for _, a := range sa.Actions {
			if a.Completed {
				done++
			}
		}
		report.Stages = append(report.Stages, StageProgressView{
			Stage:    sa.Stage,
			Progress: workflow.StageProgress(sa.Actions),
			Actions:  len(sa.Actions),
			Done:     done,
		})
	}
	return report, nil
}
