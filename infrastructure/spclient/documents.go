package spclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"path"
	"strings"
	"sync"

	"nppflow/domain/contracts"
	"nppflow/domain/npp"

	"github.com/tidwall/gjson"
)

// LibraryClient manages files and folders of the site's document libraries.
type LibraryClient struct {
	client *Client

	mu        sync.Mutex
	roleCache map[string]int
}

// NewLibraryClient creates a document gateway over a site client.
func NewLibraryClient(client *Client) *LibraryClient {
	return &LibraryClient{client: client, roleCache: make(map[string]int)}
}

var _ contracts.DocumentGateway = (*LibraryClient)(nil)

func (l *LibraryClient) SiteRelativeURL() string {
	return l.client.SiteRelativeURL()
}

// EnsureFolder creates each missing segment below the library root.
func (l *LibraryClient) EnsureFolder(ctx context.Context, folderURL string) error {
	site := strings.TrimRight(l.client.SiteRelativeURL(), "/")
	rel := strings.Trim(strings.TrimPrefix(folderURL, site), "/")
	if rel == "" {
		return fmt.Errorf("ensure folder: empty path %q", folderURL)
	}
	current := site
	for _, seg := range strings.Split(rel, "/") {
		current = current + "/" + seg
		endpoint := l.client.endpoint("web/GetFolderByServerRelativeUrl('%s')?$select=Exists", escapePathParam(current))
		data, err := l.client.get(ctx, "get folder", endpoint)
		if err == nil && gjson.GetBytes(entity(data), "Exists").Bool() {
			continue
		}
		if err != nil && contracts.StatusCode(err) != http.StatusNotFound {
			return err
		}
		body, _ := json.Marshal(map[string]string{"ServerRelativeUrl": current})
		if _, err := l.client.post(ctx, "create folder", l.client.endpoint("web/folders"), bytes.NewReader(body)); err != nil {
			return err
		}
		l.client.logger.SharePoint("Folder created", "folder_url", current)
	}
	return nil
}

func (l *LibraryClient) ListFiles(ctx context.Context, folderURL string) contracts.Result[npp.File] {
	endpoint := l.client.endpoint("web/GetFolderByServerRelativeUrl('%s')/Files?$select=%s&$expand=ListItemAllFields",
		escapePathParam(folderURL), FileSelect)
	data, err := l.client.get(ctx, "list files", endpoint)
	if err != nil {
		if contracts.StatusCode(err) == http.StatusNotFound {
			return contracts.ResultOf[npp.File](nil)
		}
		return contracts.FailedResult[npp.File](err)
	}
	files, err := decodeCollection[fileJSON](data)
	if err != nil {
		return contracts.FailedResult[npp.File](fmt.Errorf("decode files: %w", err))
	}
	out := make([]npp.File, 0, len(files))
	for _, f := range files {
		out = append(out, f.toDomain())
	}
	return contracts.ResultOf(out)
}

func (l *LibraryClient) ListFolders(ctx context.Context, folderURL string) contracts.Result[npp.Folder] {
	endpoint := l.client.endpoint("web/GetFolderByServerRelativeUrl('%s')/Folders?$select=Name,ServerRelativeUrl,ItemCount",
		escapePathParam(folderURL))
	data, err := l.client.get(ctx, "list folders", endpoint)
	if err != nil {
		if contracts.StatusCode(err) == http.StatusNotFound {
			return contracts.ResultOf[npp.Folder](nil)
		}
		return contracts.FailedResult[npp.Folder](err)
	}
	folders, err := decodeCollection[folderJSON](data)
	if err != nil {
		return contracts.FailedResult[npp.Folder](fmt.Errorf("decode folders: %w", err))
	}
	out := make([]npp.Folder, 0, len(folders))
	for _, f := range folders {
		out = append(out, f.toDomain())
	}
	return contracts.ResultOf(out)
}

func (l *LibraryClient) GetFile(ctx context.Context, fileURL string) (*npp.File, error) {
	endpoint := l.client.endpoint("web/GetFileByServerRelativeUrl('%s')?$select=%s&$expand=ListItemAllFields",
		escapePathParam(fileURL), FileSelect)
	data, err := l.client.get(ctx, "get file", endpoint)
	if err != nil {
		return nil, err
	}
	var f fileJSON
	if err := json.Unmarshal(entity(data), &f); err != nil {
		return nil, fmt.Errorf("decode file: %w", err)
	}
	file := f.toDomain()
	return &file, nil
}

func (l *LibraryClient) UploadFile(ctx context.Context, folderURL, name string, content []byte, overwrite bool) (*npp.File, error) {
	endpoint := l.client.endpoint("web/GetFolderByServerRelativeUrl('%s')/Files/add(url='%s',overwrite=%t)",
		escapePathParam(folderURL), escapePathParam(name), overwrite)
	if _, err := l.client.post(ctx, "upload file", endpoint, bytes.NewReader(content)); err != nil {
		return nil, err
	}
	l.client.logger.SharePoint("File uploaded", "folder_url", folderURL, "file_name", name, "bytes", len(content))
	return l.GetFile(ctx, path.Join(folderURL, name))
}

func (l *LibraryClient) DownloadFile(ctx context.Context, fileURL string) ([]byte, error) {
	endpoint := l.client.endpoint("web/GetFileByServerRelativeUrl('%s')/$value", escapePathParam(fileURL))
	return l.client.get(ctx, "download file", endpoint)
}

func (l *LibraryClient) CopyFile(ctx context.Context, srcURL, dstURL string, overwrite bool) (*npp.File, error) {
	endpoint := l.client.endpoint("web/GetFileByServerRelativeUrl('%s')/copyto(strnewurl='%s',boverwrite=%t)",
		escapePathParam(srcURL), escapePathParam(dstURL), overwrite)
	if _, err := l.client.post(ctx, "copy file", endpoint, nil); err != nil {
		return nil, err
	}
	l.client.logger.SharePoint("File copied", "src_url", srcURL, "dst_url", dstURL)
	return l.GetFile(ctx, dstURL)
}

func (l *LibraryClient) MoveFile(ctx context.Context, srcURL, dstURL string, overwrite bool) (*npp.File, error) {
	flags := 0
	if overwrite {
		flags = 1
	}
	endpoint := l.client.endpoint("web/GetFileByServerRelativeUrl('%s')/moveto(newurl='%s',flags=%d)",
		escapePathParam(srcURL), escapePathParam(dstURL), flags)
	if _, err := l.client.post(ctx, "move file", endpoint, nil); err != nil {
		return nil, err
	}
	l.client.logger.SharePoint("File moved", "src_url", srcURL, "dst_url", dstURL)
	return l.GetFile(ctx, dstURL)
}

func (l *LibraryClient) DeleteFile(ctx context.Context, fileURL string) error {
	endpoint := l.client.endpoint("web/GetFileByServerRelativeUrl('%s')", escapePathParam(fileURL))
	if err := l.client.delete(ctx, "delete file", endpoint); err != nil {
		return err
	}
	l.client.logger.SharePoint("File deleted", "file_url", fileURL)
	return nil
}

func (l *LibraryClient) UpdateFileFields(ctx context.Context, fileURL string, fields npp.FileFields) error {
	body := fileFieldsPayload(fields)
	if len(body) == 0 {
		return nil
	}
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode file fields: %w", err)
	}
	endpoint := l.client.endpoint("web/GetFileByServerRelativeUrl('%s')/ListItemAllFields", escapePathParam(fileURL))
	return l.client.merge(ctx, "update file fields", endpoint, bytes.NewReader(data))
}

// GrantFolderAccess breaks inheritance without copying parent assignments, then adds each grant.
func (l *LibraryClient) GrantFolderAccess(ctx context.Context, folderURL string, grants []contracts.FolderGrant) error {
	item := l.client.endpoint("web/GetFolderByServerRelativeUrl('%s')/ListItemAllFields", escapePathParam(folderURL))
	if _, err := l.client.post(ctx, "break role inheritance",
		item+"/breakroleinheritance(copyRoleAssignments=false,clearSubscopes=true)", nil); err != nil {
		return err
	}
	for _, g := range grants {
		roleID, err := l.roleDefinitionID(ctx, g.Role)
		if err != nil {
			return err
		}
		endpoint := fmt.Sprintf("%s/roleassignments/addroleassignment(principalid=%d,roledefid=%d)", item, g.GroupID, roleID)
		if _, err := l.client.post(ctx, "add role assignment", endpoint, nil); err != nil {
			return err
		}
	}
	l.client.logger.SharePoint("Folder permissions set", "folder_url", folderURL, "grants", len(grants))
	return nil
}

func (l *LibraryClient) roleDefinitionID(ctx context.Context, role string) (int, error) {
	l.mu.Lock()
	id, ok := l.roleCache[role]
	l.mu.Unlock()
	if ok {
		return id, nil
	}
	endpoint := l.client.endpoint("web/roledefinitions/getbyname('%s')?$select=Id", escapePathParam(role))
	data, err := l.client.get(ctx, "get role definition", endpoint)
	if err != nil {
		return 0, err
	}
	var def idJSON
	if err := json.Unmarshal(entity(data), &def); err != nil {
		return 0, fmt.Errorf("decode role definition: %w", err)
	}
	l.mu.Lock()
	l.roleCache[role] = def.ID
	l.mu.Unlock()
	return def.ID, nil
}
