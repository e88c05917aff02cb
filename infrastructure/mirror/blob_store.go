package mirror

import (
	"context"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"

	"nppflow/domain/contracts"
	"nppflow/domain/npp"
	"nppflow/logging"
)

// forecastIDKey is the blob metadata key holding the model id.
const forecastIDKey = "forecastid"

const csvContentType = "text/csv"

// blobAPI is the slice of *azblob.Client used by BlobStore.
type blobAPI interface {
	UploadBuffer(ctx context.Context, containerName, blobName string, buffer []byte, o *azblob.UploadBufferOptions) (azblob.UploadBufferResponse, error)
	DownloadStream(ctx context.Context, containerName, blobName string, o *azblob.DownloadStreamOptions) (azblob.DownloadStreamResponse, error)
	DeleteBlob(ctx context.Context, containerName, blobName string, o *azblob.DeleteBlobOptions) (azblob.DeleteBlobResponse, error)
	NewListBlobsFlatPager(containerName string, o *azblob.ListBlobsFlatOptions) *runtime.Pager[azblob.ListBlobsFlatResponse]
}

// BlobStore keeps companions in an Azure Blob container. Blob names follow the
// Extractions folder layout and the model id is kept in metadata.
type BlobStore struct {
	client    blobAPI
	container string
	logger    *logging.Logger
}

var _ contracts.CompanionStore = (*BlobStore)(nil)

// NewBlobStore connects with a storage connection string and ensures the container exists.
func NewBlobStore(ctx context.Context, connectionString, containerName string) (*BlobStore, error) {
	client, err := azblob.NewClientFromConnectionString(connectionString, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create blob client: %w", err)
	}

	_, err = client.CreateContainer(ctx, containerName, nil)
	if err != nil && !bloberror.HasCode(err, bloberror.ContainerAlreadyExists) {
		return nil, fmt.Errorf("failed to create container: %w", err)
	}

	return newBlobStore(client, containerName), nil
}

func newBlobStore(client blobAPI, containerName string) *BlobStore {
	return &BlobStore{
		client:    client,
		container: containerName,
		logger:    logging.Default().WithComponent("mirror_blob"),
	}
}

func blobPrefix(folder npp.FolderPath) string {
	return folder.WithRoot(npp.RootExtractions).Relative() + "/"
}

func (s *BlobStore) upload(ctx context.Context, blobName string, content []byte, forecastID int) error {
	contentType := csvContentType
	id := strconv.Itoa(forecastID)
	_, err := s.client.UploadBuffer(ctx, s.container, blobName, content, &azblob.UploadBufferOptions{
		HTTPHeaders: &blob.HTTPHeaders{BlobContentType: &contentType},
		Metadata:    map[string]*string{forecastIDKey: &id},
	})
	if err != nil {
		return fmt.Errorf("failed to upload blob %s: %w", blobName, err)
	}
	return nil
}

func (s *BlobStore) Write(ctx context.Context, folder npp.FolderPath, name string, content []byte, forecastID int) error {
	blobName := blobPrefix(folder) + name
	if err := s.upload(ctx, blobName, content, forecastID); err != nil {
		return err
	}
	s.logger.Info("Companion uploaded", "blob", blobName, "container", s.container, "forecast_id", forecastID)
	return nil
}

func (s *BlobStore) List(ctx context.Context, folder npp.FolderPath) contracts.Result[npp.File] {
	prefix := blobPrefix(folder)
	pager := s.client.NewListBlobsFlatPager(s.container, &azblob.ListBlobsFlatOptions{
		Prefix:  &prefix,
		Include: azblob.ListBlobsInclude{Metadata: true},
	})

	var files []npp.File
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return contracts.FailedResult[npp.File](fmt.Errorf("failed to list blobs under %s: %w", prefix, err))
		}
		for _, item := range page.Segment.BlobItems {
			if item == nil || item.Name == nil {
				continue
			}
			name := *item.Name
			// only direct children of the folder
			if strings.Contains(strings.TrimPrefix(name, prefix), "/") {
				continue
			}
			f := npp.File{
				Name:              path.Base(name),
				ServerRelativeURL: name,
				ForecastID:        metadataInt(item.Metadata, forecastIDKey),
			}
			if item.Properties != nil && item.Properties.LastModified != nil {
				f.Modified = *item.Properties.LastModified
			}
			files = append(files, f)
		}
	}
	return contracts.ResultOf(files)
}

func (s *BlobStore) Copy(ctx context.Context, src npp.File, folder npp.FolderPath, name string, forecastID int) error {
	resp, err := s.client.DownloadStream(ctx, s.container, src.ServerRelativeURL, nil)
	if err != nil {
		return fmt.Errorf("failed to download blob %s: %w", src.ServerRelativeURL, err)
	}
	defer resp.Body.Close()

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read blob %s: %w", src.ServerRelativeURL, err)
	}
	return s.upload(ctx, blobPrefix(folder)+name, content, forecastID)
}

func (s *BlobStore) Delete(ctx context.Context, file npp.File) error {
	_, err := s.client.DeleteBlob(ctx, s.container, file.ServerRelativeURL, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound) {
			s.logger.Debug("Blob already deleted or not found", "blob", file.ServerRelativeURL)
			return nil
		}
		return fmt.Errorf("failed to delete blob: %w", err)
	}
	return nil
}

// metadataInt reads an integer metadata value; keys are matched case-insensitively.
func metadataInt(md map[string]*string, key string) int {
	for k, v := range md {
		if v != nil && strings.EqualFold(k, key) {
			n, _ := strconv.Atoi(*v)
			return n
		}
	}
	return 0
}
