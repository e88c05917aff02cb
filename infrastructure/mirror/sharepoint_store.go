package mirror

import (
	"context"
	"fmt"
	"path"

	"nppflow/domain/contracts"
	"nppflow/domain/npp"
	"nppflow/logging"
)

// SharePointStore keeps companions in the Extractions library and tags them with ForecastId.
type SharePointStore struct {
	docs   contracts.DocumentGateway
	logger *logging.Logger
}

var _ contracts.CompanionStore = (*SharePointStore)(nil)

func NewSharePointStore(docs contracts.DocumentGateway) *SharePointStore {
	return &SharePointStore{
		docs:   docs,
		logger: logging.Default().WithComponent("mirror_sharepoint"),
	}
}

func (s *SharePointStore) folderURL(folder npp.FolderPath) string {
	return folder.WithRoot(npp.RootExtractions).ServerRelative(s.docs.SiteRelativeURL())
}

func (s *SharePointStore) tag(ctx context.Context, fileURL string, forecastID int) error {
	if err := s.docs.UpdateFileFields(ctx, fileURL, npp.FileFields{ForecastID: &forecastID}); err != nil {
		return fmt.Errorf("tag companion %s: %w", fileURL, err)
	}
	return nil
}

func (s *SharePointStore) Write(ctx context.Context, folder npp.FolderPath, name string, content []byte, forecastID int) error {
	dir := s.folderURL(folder)
	if err := s.docs.EnsureFolder(ctx, dir); err != nil {
		return fmt.Errorf("ensure extractions folder: %w", err)
	}
	file, err := s.docs.UploadFile(ctx, dir, name, content, true)
	if err != nil {
		return fmt.Errorf("upload companion %s: %w", name, err)
	}
	s.logger.SharePoint("Companion written", "file", file.ServerRelativeURL, "forecast_id", forecastID)
	return s.tag(ctx, file.ServerRelativeURL, forecastID)
}

func (s *SharePointStore) List(ctx context.Context, folder npp.FolderPath) contracts.Result[npp.File] {
	return s.docs.ListFiles(ctx, s.folderURL(folder))
}

func (s *SharePointStore) Copy(ctx context.Context, src npp.File, folder npp.FolderPath, name string, forecastID int) error {
	dir := s.folderURL(folder)
	if err := s.docs.EnsureFolder(ctx, dir); err != nil {
		return fmt.Errorf("ensure extractions folder: %w", err)
	}
	copied, err := s.docs.CopyFile(ctx, src.ServerRelativeURL, path.Join(dir, name), true)
	if err != nil {
		return fmt.Errorf("copy companion %s: %w", src.Name, err)
	}
	return s.tag(ctx, copied.ServerRelativeURL, forecastID)
}

func (s *SharePointStore) Delete(ctx context.Context, file npp.File) error {
	return s.docs.DeleteFile(ctx, file.ServerRelativeURL)
}
