package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"nppflow/domain/contracts"
	"nppflow/domain/npp"
)

// MockDocumentGateway implements DocumentGateway for testing
type MockDocumentGateway struct {
	mock.Mock
}

func (m *MockDocumentGateway) SiteRelativeURL() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockDocumentGateway) EnsureFolder(ctx context.Context, folderURL string) error {
	args := m.Called(ctx, folderURL)
	return args.Error(0)
}

func (m *MockDocumentGateway) ListFiles(ctx context.Context, folderURL string) contracts.Result[npp.File] {
	args := m.Called(ctx, folderURL)
	return args.Get(0).(contracts.Result[npp.File])
}

func (m *MockDocumentGateway) ListFolders(ctx context.Context, folderURL string) contracts.Result[npp.Folder] {
	args := m.Called(ctx, folderURL)
	return args.Get(0).(contracts.Result[npp.Folder])
}

func (m *MockDocumentGateway) GetFile(ctx context.Context, fileURL string) (*npp.File, error) {
	args := m.Called(ctx, fileURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*npp.File), args.Error(1)
}

func (m *MockDocumentGateway) UploadFile(ctx context.Context, folderURL, name string, content []byte, overwrite bool) (*npp.File, error) {
	args := m.Called(ctx, folderURL, name, content, overwrite)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*npp.File), args.Error(1)
}

func (m *MockDocumentGateway) DownloadFile(ctx context.Context, fileURL string) ([]byte, error) {
	args := m.Called(ctx, fileURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockDocumentGateway) CopyFile(ctx context.Context, srcURL, dstURL string, overwrite bool) (*npp.File, error) {
	args := m.Called(ctx, srcURL, dstURL, overwrite)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*npp.File), args.Error(1)
}

func (m *MockDocumentGateway) MoveFile(ctx context.Context, srcURL, dstURL string, overwrite bool) (*npp.File, error) {
	args := m.Called(ctx, srcURL, dstURL, overwrite)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*npp.File), args.Error(1)
}

func (m *MockDocumentGateway) DeleteFile(ctx context.Context, fileURL string) error {
	args := m.Called(ctx, fileURL)
	return args.Error(0)
}

func (m *MockDocumentGateway) UpdateFileFields(ctx context.Context, fileURL string, fields npp.FileFields) error {
	args := m.Called(ctx, fileURL, fields)
	return args.Error(0)
}

func (m *MockDocumentGateway) GrantFolderAccess(ctx context.Context, folderURL string, grants []contracts.FolderGrant) error {
	args := m.Called(ctx, folderURL, grants)
	return args.Error(0)
}

// MockGroupGateway implements GroupGateway for testing
type MockGroupGateway struct {
	mock.Mock
}

func (m *MockGroupGateway) ListGroups(ctx context.Context) contracts.Result[npp.Group] {
	args := m.Called(ctx)
	return args.Get(0).(contracts.Result[npp.Group])
}

func (m *MockGroupGateway) EnsureGroup(ctx context.Context, name, description string) (*npp.Group, error) {
	args := m.Called(ctx, name, description)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*npp.Group), args.Error(1)
}

func (m *MockGroupGateway) DeleteGroup(ctx context.Context, name string) error {
	args := m.Called(ctx, name)
	return args.Error(0)
}

func (m *MockGroupGateway) GroupMembers(ctx context.Context, name string) contracts.Result[npp.User] {
	args := m.Called(ctx, name)
	return args.Get(0).(contracts.Result[npp.User])
}

func (m *MockGroupGateway) AddGroupMember(ctx context.Context, name string, user npp.User) error {
	args := m.Called(ctx, name, user)
	return args.Error(0)
}

func (m *MockGroupGateway) RemoveGroupMember(ctx context.Context, name string, userID int) error {
	args := m.Called(ctx, name, userID)
	return args.Error(0)
}

func (m *MockGroupGateway) GetUser(ctx context.Context, userID int) (*npp.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*npp.User), args.Error(1)
}

func (m *MockGroupGateway) EnsureUser(ctx context.Context, email string) (*npp.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*npp.User), args.Error(1)
}

// MockLicensingGateway implements LicensingGateway for testing
type MockLicensingGateway struct {
	mock.Mock
}

func (m *MockLicensingGateway) GetLicense(ctx context.Context, query contracts.LicenseQuery) (*contracts.License, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*contracts.License), args.Error(1)
}

func (m *MockLicensingGateway) AllocateSeat(ctx context.Context, email string) error {
	args := m.Called(ctx, email)
	return args.Error(0)
}

func (m *MockLicensingGateway) ReleaseSeat(ctx context.Context, email string) error {
	args := m.Called(ctx, email)
	return args.Error(0)
}

func (m *MockLicensingGateway) UserSeats(ctx context.Context, email string) ([]contracts.Seat, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]contracts.Seat), args.Error(1)
}

// MockDirectoryGateway implements DirectoryGateway for testing
type MockDirectoryGateway struct {
	mock.Mock
}

func (m *MockDirectoryGateway) FindGroup(ctx context.Context, displayName string) (string, bool, error) {
	args := m.Called(ctx, displayName)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *MockDirectoryGateway) CreateSecurityGroup(ctx context.Context, displayName, description string) (string, error) {
	args := m.Called(ctx, displayName, description)
	return args.String(0), args.Error(1)
}

func (m *MockDirectoryGateway) GroupMembers(ctx context.Context, groupID string) ([]contracts.DirectoryUser, error) {
	args := m.Called(ctx, groupID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]contracts.DirectoryUser), args.Error(1)
}

func (m *MockDirectoryGateway) FindUser(ctx context.Context, email string) (*contracts.DirectoryUser, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*contracts.DirectoryUser), args.Error(1)
}

func (m *MockDirectoryGateway) AddGroupMember(ctx context.Context, groupID, userID string) error {
	args := m.Called(ctx, groupID, userID)
	return args.Error(0)
}

func (m *MockDirectoryGateway) RemoveGroupMember(ctx context.Context, groupID, userID string) error {
	args := m.Called(ctx, groupID, userID)
	return args.Error(0)
}

func (m *MockDirectoryGateway) UserPhoto(ctx context.Context, email string) ([]byte, string, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.String(1), args.Error(2)
	}
	return args.Get(0).([]byte), args.String(1), args.Error(2)
}

// MockAnalyticsGateway implements AnalyticsGateway for testing
type MockAnalyticsGateway struct {
	mock.Mock
}

func (m *MockAnalyticsGateway) Reports(ctx context.Context) ([]contracts.Report, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]contracts.Report), args.Error(1)
}

func (m *MockAnalyticsGateway) Report(ctx context.Context, reportID string) (*contracts.Report, error) {
	args := m.Called(ctx, reportID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*contracts.Report), args.Error(1)
}

func (m *MockAnalyticsGateway) ReportPages(ctx context.Context, reportID string) ([]contracts.ReportPage, error) {
	args := m.Called(ctx, reportID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]contracts.ReportPage), args.Error(1)
}

func (m *MockAnalyticsGateway) GenerateEmbedToken(ctx context.Context, reportID, datasetID string) (*contracts.EmbedToken, error) {
	args := m.Called(ctx, reportID, datasetID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*contracts.EmbedToken), args.Error(1)
}

// MockCompanionStore implements CompanionStore for testing
type MockCompanionStore struct {
	mock.Mock
}

func (m *MockCompanionStore) Write(ctx context.Context, folder npp.FolderPath, name string, content []byte, forecastID int) error {
	args := m.Called(ctx, folder, name, content, forecastID)
	return args.Error(0)
}

func (m *MockCompanionStore) List(ctx context.Context, folder npp.FolderPath) contracts.Result[npp.File] {
	args := m.Called(ctx, folder)
	return args.Get(0).(contracts.Result[npp.File])
}

func (m *MockCompanionStore) Copy(ctx context.Context, src npp.File, folder npp.FolderPath, name string, forecastID int) error {
	args := m.Called(ctx, src, folder, name, forecastID)
	return args.Error(0)
}

func (m *MockCompanionStore) Delete(ctx context.Context, file npp.File) error {
	args := m.Called(ctx, file)
	return args.Error(0)
}
