package application

import (
	"context"
	"fmt"
	"path"
	"time"

	"github.com/google/uuid"

	"nppflow/domain/contracts"
	"nppflow/domain/events"
	"nppflow/domain/npp"
	"nppflow/domain/workflow"
	"nppflow/infrastructure/mirror"
	"nppflow/logging"
)

// FolderCache holds recent folder listings keyed by server-relative URL.
type FolderCache interface {
	Get(folderURL string) ([]npp.File, bool)
	Set(folderURL string, files []npp.File)
	Invalidate(folderURL string)
}

// FileService handles model uploads, the review sub-machine and folder listings.
type FileService struct {
	repo       contracts.EntityRepository
	stages     contracts.StageRepository
	masters    contracts.MasterDataRepository
	docs       contracts.DocumentGateway
	companions contracts.CompanionStore
	folders    FolderCache
	events     events.WorkflowEventPublisher
	now        func() time.Time
	logger     *logging.Logger
}

// NewFileService creates a new file service.
func NewFileService(
	repo contracts.WorkflowRepository,
	masters contracts.MasterDataRepository,
	docs contracts.DocumentGateway,
	companions contracts.CompanionStore,
	folders FolderCache,
	publisher events.WorkflowEventPublisher,
) *FileService {
	return &FileService{
		repo:       repo,
		stages:     repo,
		masters:    masters,
		docs:       docs,
		companions: companions,
		folders:    folders,
		events:     publisher,
		now:        time.Now,
		logger:     logging.Default().WithComponent("file_service"),
	}
}

func (s *FileService) department(ctx context.Context, id int) (npp.MasterFolder, error) {
	departments, err := s.masters.MasterFolders(ctx).Unwrap()
	if err != nil {
		return npp.MasterFolder{}, fmt.Errorf("load departments: %w", err)
	}
	for _, d := range departments {
		if d.ID == id {
			return d, nil
		}
	}
	return npp.MasterFolder{}, fmt.Errorf("%w: department %d", contracts.ErrMasterDataMissing, id)
}

// Folder resolves a query to a folder address, checking the bucket suits the department.
func (s *FileService) Folder(ctx context.Context, q FolderQuery) (npp.FolderPath, error) {
	entity, err := s.repo.GetEntity(ctx, q.EntityID)
	if err != nil {
		return npp.FolderPath{}, fmt.Errorf("get entity %d: %w", q.EntityID, err)
	}
	dept, err := s.department(ctx, q.DepartmentID)
	if err != nil {
		return npp.FolderPath{}, err
	}

	if q.Root == npp.RootDocuments {
		if dept.ContainsModels {
			return npp.FolderPath{}, fmt.Errorf("department %d holds models and has no Documents folder", dept.ID)
		}
		stageID := q.StageID
		if stageID == 0 {
			stages, err := s.stages.ListStages(ctx, entity.ID).Unwrap()
			if err != nil {
				return npp.FolderPath{}, fmt.Errorf("list stages of entity %d: %w", entity.ID, err)
			}
			current, ok := workflow.CurrentStage(stages)
			if !ok {
				return npp.FolderPath{}, fmt.Errorf("entity %d has no stage: %w", entity.ID, contracts.ErrNotFound)
			}
			stageID = current.ID
		}
		return npp.DocumentPath(entity.BusinessUnitID, entity.ID, stageID, dept.ID), nil
	}

	if !dept.ContainsModels {
		return npp.FolderPath{}, fmt.Errorf("%w: %s", contracts.ErrNotModelFolder, dept.Title)
	}
	if q.GeographyID <= 0 {
		return npp.FolderPath{}, fmt.Errorf("model folders need a geography")
	}
	if q.Root == npp.RootArchived {
		if q.CycleID <= 0 {
			return npp.FolderPath{}, fmt.Errorf("archive folders need a cycle")
		}
		return npp.ArchivePath(entity.BusinessUnitID, entity.ID, dept.ID, q.GeographyID, q.CycleID), nil
	}
	return npp.ModelPath(q.Root, entity.BusinessUnitID, entity.ID, dept.ID, q.GeographyID), nil
}

// ListFiles returns the folder's files, served from the listing cache when fresh.
func (s *FileService) ListFiles(ctx context.Context, q FolderQuery) (contracts.Result[npp.File], error) {
	folder, err := s.Folder(ctx, q)
	if err != nil {
		return contracts.Result[npp.File]{}, err
	}
	folderURL := folder.ServerRelative(s.docs.SiteRelativeURL())
	if files, ok := s.folders.Get(folderURL); ok {
		return contracts.ResultOf(files), nil
	}

	res := s.docs.ListFiles(ctx, folderURL)
	if !res.Failed() {
		s.folders.Set(folderURL, res.Items())
	}
	return res, nil
}

// RefreshFolder re-reads a folder past the cache and announces its new contents.
func (s *FileService) RefreshFolder(ctx context.Context, q FolderQuery) error {
	folder, err := s.Folder(ctx, q)
	if err != nil {
		return err
	}
	folderURL := folder.ServerRelative(s.docs.SiteRelativeURL())
	s.folders.Invalidate(folderURL)

	files, err := s.docs.ListFiles(ctx, folderURL).Unwrap()
	if err != nil {
		return fmt.Errorf("list %s: %w", folderURL, err)
	}
	s.folders.Set(folderURL, files)
	s.events.PublishFolderChanged(events.FolderChangedEvent{
		EntityID:  q.EntityID,
		FolderURL: folderURL,
		FileCount: len(files),
		Timestamp: s.now(),
	})
	return nil
}

// Upload stores a file. Model uploads refuse a second file with the same
// scenario set unless Overwrite is set, in which case the existing ones go first.
func (s *FileService) Upload(ctx context.Context, req UploadRequest) (*npp.File, error) {
	dept, err := s.department(ctx, req.DepartmentID)
	if err != nil {
		return nil, err
	}
	root := npp.RootDocuments
	if dept.ContainsModels {
		root = npp.RootWIP
	}
	folder, err := s.Folder(ctx, FolderQuery{
		EntityID:     req.EntityID,
		Root:         root,
		DepartmentID: req.DepartmentID,
		GeographyID:  req.GeographyID,
		StageID:      req.StageID,
	})
	if err != nil {
		return nil, err
	}
	folderURL := folder.ServerRelative(s.docs.SiteRelativeURL())
	log := s.logger.WithEntity(req.EntityID)

	if !dept.ContainsModels {
		file, err := s.docs.UploadFile(ctx, folderURL, req.Name, req.Content, req.Overwrite)
		if err != nil {
			return nil, fmt.Errorf("upload %s: %w", req.Name, err)
		}
		s.folders.Invalidate(folderURL)
		log.SharePoint("Document uploaded", "file", file.ServerRelativeURL)
		return file, nil
	}

	existing, err := s.docs.ListFiles(ctx, folderURL).Unwrap()
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", folderURL, err)
	}
	conflicts := workflow.FindByScenarioSet(existing, req.ScenarioIDs)
	if len(conflicts) > 0 && !req.Overwrite {
		return nil, fmt.Errorf("%w: %s", contracts.ErrScenarioConflict, conflicts[0].Name)
	}
	for _, c := range conflicts {
		if err := s.deleteModel(ctx, folder, c); err != nil {
			return nil, err
		}
		log.Workflow("Replaced model with the same scenarios", req.EntityID, "file", c.Name)
	}

	file, err := s.docs.UploadFile(ctx, folderURL, req.Name, req.Content, req.Overwrite)
	if err != nil {
		return nil, fmt.Errorf("upload %s: %w", req.Name, err)
	}
	status := npp.ApprovalInProgress
	comments := workflow.EmptyComments
	fields := npp.FileFields{
		ApprovalStatus: &status,
		ScenarioIDs:    req.ScenarioIDs,
		IndicationIDs:  req.IndicationIDs,
		Comments:       &comments,
	}
	if err := s.docs.UpdateFileFields(ctx, file.ServerRelativeURL, fields); err != nil {
		return nil, fmt.Errorf("set properties of %s: %w", file.Name, err)
	}
	file.ApprovalStatus = status
	file.ScenarioIDs = req.ScenarioIDs
	file.IndicationIDs = req.IndicationIDs
	file.Comments = comments
	s.folders.Invalidate(folderURL)

	if err := s.writeCompanion(ctx, folder, *file); err != nil {
		log.Warn("Companion extraction not written", "file", file.Name, "error", err)
	}
	log.Workflow("Model uploaded", req.EntityID, "file", file.Name, "scenarios", req.ScenarioIDs, "overwrite", req.Overwrite)
	return file, nil
}

func (s *FileService) writeCompanion(ctx context.Context, folder npp.FolderPath, model npp.File) error {
	content, err := mirror.EncodeCSV(mirror.RowFor(folder, model, s.now()))
	if err != nil {
		return err
	}
	return s.companions.Write(ctx, folder, workflow.CompanionName(model.Name, model.ID), content, model.ID)
}

// companionsOf lists the extractions of a model. A failed listing is logged and
// treated as none; extractions only feed reporting.
func (s *FileService) companionsOf(ctx context.Context, folder npp.FolderPath, modelID int) []npp.File {
	res := s.companions.List(ctx, folder)
	if res.Failed() {
		s.logger.Warn("Companion listing failed", "folder", folder.Relative(), "error", res.Err())
		return nil
	}
	var out []npp.File
	for _, c := range res.Items() {
		if workflow.IsCompanionOf(c, modelID) {
			out = append(out, c)
		}
	}
	return out
}

// deleteModel deletes a model and its extractions.
func (s *FileService) deleteModel(ctx context.Context, folder npp.FolderPath, model npp.File) error {
	for _, c := range s.companionsOf(ctx, folder, model.ID) {
		if err := s.companions.Delete(ctx, c); err != nil {
			s.logger.Warn("Companion not deleted", "file", c.Name, "error", err)
		}
	}
	if err := s.docs.DeleteFile(ctx, model.ServerRelativeURL); err != nil {
		return fmt.Errorf("delete %s: %w", model.Name, err)
	}
	return nil
}

func (s *FileService) reviewed(folder npp.FolderPath, file *npp.File, actor npp.User) {
	s.events.PublishFileReviewed(events.FileReviewedEvent{
		EntityID:  folder.EntityID,
		FileName:  file.Name,
		FileURL:   file.ServerRelativeURL,
		Status:    file.ApprovalStatus,
		ActorID:   actor.ID,
		Timestamp: s.now(),
	})
}

// EntityOf returns the entity a file URL belongs to.
func (s *FileService) EntityOf(fileURL string) (int, error) {
	folder, _, err := npp.ParseFileURL(s.docs.SiteRelativeURL(), fileURL)
	if err != nil {
		return 0, err
	}
	return folder.EntityID, nil
}

// modelFile loads a WIP model by URL.
func (s *FileService) modelFile(ctx context.Context, fileURL string) (*npp.File, npp.FolderPath, error) {
	folder, _, err := npp.ParseFileURL(s.docs.SiteRelativeURL(), fileURL)
	if err != nil {
		return nil, npp.FolderPath{}, err
	}
	if folder.Root != npp.RootWIP {
		return nil, npp.FolderPath{}, fmt.Errorf("%w: only WIP models are reviewed", workflow.ErrInvalidTransition)
	}
	file, err := s.docs.GetFile(ctx, fileURL)
	if err != nil {
		return nil, npp.FolderPath{}, fmt.Errorf("get %s: %w", fileURL, err)
	}
	if file.ApprovalStatus == "" {
		file.ApprovalStatus = npp.ApprovalInProgress
	}
	return file, folder, nil
}

func (s *FileService) setStatus(ctx context.Context, file *npp.File, to npp.ApprovalStatus, comments *string) error {
	if err := s.docs.UpdateFileFields(ctx, file.ServerRelativeURL, npp.FileFields{ApprovalStatus: &to, Comments: comments}); err != nil {
		return fmt.Errorf("set %s to %s: %w", file.Name, to, err)
	}
	file.ApprovalStatus = to
	if comments != nil {
		file.Comments = *comments
	}
	return nil
}

// Submit sends a WIP model for approval.
func (s *FileService) Submit(ctx context.Context, req ReviewRequest) (*npp.File, error) {
	file, folder, err := s.modelFile(ctx, req.FileURL)
	if err != nil {
		return nil, err
	}
	if err := workflow.CheckFileTransition(file.ApprovalStatus, npp.ApprovalSubmitted); err != nil {
		return nil, err
	}
	if err := s.setStatus(ctx, file, npp.ApprovalSubmitted, nil); err != nil {
		return nil, err
	}
	s.folders.Invalidate(path.Dir(file.ServerRelativeURL))
	s.reviewed(folder, file, req.Actor)
	return file, nil
}

// Approve copies a submitted model into the Approved bucket. Approved models with
// the same scenario set are deleted first and the model's extractions are copied
// alongside, re-keyed to the copy.
func (s *FileService) Approve(ctx context.Context, req ReviewRequest) (*npp.File, error) {
	file, folder, err := s.modelFile(ctx, req.FileURL)
	if err != nil {
		return nil, err
	}
	if err := workflow.CheckFileTransition(file.ApprovalStatus, npp.ApprovalApproved); err != nil {
		return nil, err
	}
	log := s.logger.WithEntity(folder.EntityID)

	site := s.docs.SiteRelativeURL()
	approved := folder.WithRoot(npp.RootApproved)
	approvedURL := approved.ServerRelative(site)
	if err := s.docs.EnsureFolder(ctx, approvedURL); err != nil {
		return nil, fmt.Errorf("ensure %s: %w", approvedURL, err)
	}

	// A failed listing must not be read as "no approved model".
	current, err := s.docs.ListFiles(ctx, approvedURL).Unwrap()
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", approvedURL, err)
	}
	for _, old := range workflow.FindByScenarioSet(current, file.ScenarioIDs) {
		if err := s.deleteModel(ctx, approved, old); err != nil {
			return nil, err
		}
		log.Workflow("Superseded approved model deleted", folder.EntityID, "file", old.Name)
	}

	copied, err := s.docs.CopyFile(ctx, file.ServerRelativeURL, path.Join(approvedURL, file.Name), true)
	if err != nil {
		return nil, fmt.Errorf("copy %s to approved: %w", file.Name, err)
	}
	if err := s.setStatus(ctx, copied, npp.ApprovalApproved, nil); err != nil {
		return nil, err
	}
	if err := s.setStatus(ctx, file, npp.ApprovalApproved, nil); err != nil {
		return nil, err
	}
	copied.ScenarioIDs = file.ScenarioIDs
	copied.IndicationIDs = file.IndicationIDs

	for _, c := range s.companionsOf(ctx, folder, file.ID) {
		name := workflow.RewriteCompanionName(c.Name, copied.ID)
		if err := s.companions.Copy(ctx, c, approved, name, copied.ID); err != nil {
			log.Warn("Companion not copied to approved", "file", c.Name, "error", err)
		}
	}

	s.folders.Invalidate(folder.ServerRelative(site))
	s.folders.Invalidate(approvedURL)
	s.reviewed(folder, copied, req.Actor)
	log.Workflow("Model approved", folder.EntityID, "file", file.Name, "approved_id", copied.ID)
	return copied, nil
}

func (s *FileService) appendComment(file *npp.File, kind workflow.CommentKind, actor npp.User, text string) string {
	comments, err := workflow.ParseComments(file.Comments)
	if err != nil {
		s.logger.Warn("Comment thread unreadable, starting a new one", "file", file.ServerRelativeURL, "error", err)
	}
	comments = append(comments, workflow.Comment{
		ID:         uuid.NewString(),
		Kind:       kind,
		AuthorID:   actor.ID,
		AuthorName: actor.Title,
		Text:       text,
		CreatedAt:  s.now().UTC(),
	})
	return workflow.EncodeComments(comments)
}

// Reject returns a submitted model to In Progress with a rejection comment.
func (s *FileService) Reject(ctx context.Context, req ReviewRequest) (*npp.File, error) {
	file, folder, err := s.modelFile(ctx, req.FileURL)
	if err != nil {
		return nil, err
	}
	if err := workflow.CheckFileTransition(file.ApprovalStatus, npp.ApprovalInProgress); err != nil {
		return nil, err
	}
	thread := s.appendComment(file, workflow.CommentKindRejection, req.Actor, req.Comment)
	if err := s.setStatus(ctx, file, npp.ApprovalInProgress, &thread); err != nil {
		return nil, err
	}
	s.folders.Invalidate(path.Dir(file.ServerRelativeURL))
	s.reviewed(folder, file, req.Actor)
	return file, nil
}

// Comment appends a free comment without changing the status.
func (s *FileService) Comment(ctx context.Context, req ReviewRequest) (*npp.File, error) {
	file, err := s.docs.GetFile(ctx, req.FileURL)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", req.FileURL, err)
	}
	thread := s.appendComment(file, workflow.CommentKindComment, req.Actor, req.Comment)
	if err := s.docs.UpdateFileFields(ctx, file.ServerRelativeURL, npp.FileFields{Comments: &thread}); err != nil {
		return nil, fmt.Errorf("comment on %s: %w", file.Name, err)
	}
	file.Comments = thread
	return file, nil
}

// ArchiveApproved moves the approved models of one department and location into
// the archive of cycle, companions included. It returns how many models moved.
func (s *FileService) ArchiveApproved(ctx context.Context, entity *npp.Entity, departmentID, locationID, cycle int) (int, error) {
	site := s.docs.SiteRelativeURL()
	approved := npp.ModelPath(npp.RootApproved, entity.BusinessUnitID, entity.ID, departmentID, locationID)
	approvedURL := approved.ServerRelative(site)

	files, err := s.docs.ListFiles(ctx, approvedURL).Unwrap()
	if err != nil {
		return 0, fmt.Errorf("list %s: %w", approvedURL, err)
	}
	if len(files) == 0 {
		return 0, nil
	}

	archive := npp.ArchivePath(entity.BusinessUnitID, entity.ID, departmentID, locationID, cycle)
	archiveURL := archive.ServerRelative(site)
	if err := s.docs.EnsureFolder(ctx, archiveURL); err != nil {
		return 0, fmt.Errorf("ensure %s: %w", archiveURL, err)
	}

	moved := 0
	for _, f := range files {
		copied, err := s.docs.CopyFile(ctx, f.ServerRelativeURL, path.Join(archiveURL, f.Name), true)
		if err != nil {
			return moved, fmt.Errorf("archive %s: %w", f.Name, err)
		}
		for _, c := range s.companionsOf(ctx, approved, f.ID) {
			name := workflow.RewriteCompanionName(c.Name, copied.ID)
			if err := s.companions.Copy(ctx, c, archive, name, copied.ID); err != nil {
				s.logger.Warn("Companion not archived", "file", c.Name, "error", err)
				continue
			}
			if err := s.companions.Delete(ctx, c); err != nil {
				s.logger.Warn("Archived companion not removed", "file", c.Name, "error", err)
			}
		}
		if err := s.docs.DeleteFile(ctx, f.ServerRelativeURL); err != nil {
			return moved, fmt.Errorf("remove archived %s: %w", f.Name, err)
		}
		moved++
	}

	s.folders.Invalidate(approvedURL)
	s.folders.Invalidate(archiveURL)
	return moved, nil
}

// ResetWIP returns every WIP model of one department and location to In Progress
// with an empty comment thread. It returns how many models were reset.
func (s *FileService) ResetWIP(ctx context.Context, entity *npp.Entity, departmentID, locationID int) (int, error) {
	wipURL := npp.ModelPath(npp.RootWIP, entity.BusinessUnitID, entity.ID, departmentID, locationID).
		ServerRelative(s.docs.SiteRelativeURL())

	files, err := s.docs.ListFiles(ctx, wipURL).Unwrap()
	if err != nil {
		return 0, fmt.Errorf("list %s: %w", wipURL, err)
	}
	reset := 0
	for i := range files {
		comments := workflow.EmptyComments
		if err := s.setStatus(ctx, &files[i], npp.ApprovalInProgress, &comments); err != nil {
			return reset, err
		}
		reset++
	}
	s.folders.Invalidate(wipURL)
	return reset, nil
}
