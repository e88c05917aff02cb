package contracts

import (
	"context"

	"nppflow/domain/npp"
)

// FolderGrant gives a site group a role on a folder.
type FolderGrant struct {
	GroupID int
	Role    string
}

// DocumentGateway manages files and folders in the site's document libraries.
// URLs are server-relative.
type DocumentGateway interface {
	SiteRelativeURL() string
	EnsureFolder(ctx context.Context, folderURL string) error
	ListFiles(ctx context.Context, folderURL string) Result[npp.File]
	ListFolders(ctx context.Context, folderURL string) Result[npp.Folder]
	GetFile(ctx context.Context, fileURL string) (*npp.File, error)
	UploadFile(ctx context.Context, folderURL, name string, content []byte, overwrite bool) (*npp.File, error)
	DownloadFile(ctx context.Context, fileURL string) ([]byte, error)
	CopyFile(ctx context.Context, srcURL, dstURL string, overwrite bool) (*npp.File, error)
	MoveFile(ctx context.Context, srcURL, dstURL string, overwrite bool) (*npp.File, error)
	DeleteFile(ctx context.Context, fileURL string) error
	UpdateFileFields(ctx context.Context, fileURL string, fields npp.FileFields) error
	// GrantFolderAccess breaks inheritance on the folder and adds the grants.
	GrantFolderAccess(ctx context.Context, folderURL string, grants []FolderGrant) error
}

// GroupGateway manages site groups and users.
type GroupGateway interface {
	ListGroups(ctx context.Context) Result[npp.Group]
	EnsureGroup(ctx context.Context, name, description string) (*npp.Group, error)
	DeleteGroup(ctx context.Context, name string) error
	GroupMembers(ctx context.Context, name string) Result[npp.User]
	AddGroupMember(ctx context.Context, name string, user npp.User) error
	RemoveGroupMember(ctx context.Context, name string, userID int) error
	GetUser(ctx context.Context, userID int) (*npp.User, error)
	EnsureUser(ctx context.Context, email string) (*npp.User, error)
}

// UnauthorizedHook is invoked when a remote call is rejected with HTTP 401.
type UnauthorizedHook func(ctx context.Context, endpoint string)
