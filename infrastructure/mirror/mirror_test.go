package mirror

import (
	"bytes"
	"context"
	"encoding/csv"
	"io"
	"testing"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/container"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"nppflow/domain/contracts"
	"nppflow/domain/npp"
	"nppflow/test/mocks"
)

func TestEncodeCSV_HeaderAndRow(t *testing.T) {
	folder := npp.ModelPath(npp.RootWIP, 3, 42, 6, 9)
	model := npp.File{ID: 77, Name: "Base, case.xlsx", ScenarioIDs: []int{1, 2}, IndicationIDs: []int{4}}
	row := RowFor(folder, model, time.Date(2026, 5, 4, 10, 30, 0, 0, time.UTC))

	out, err := EncodeCSV(row)
	require.NoError(t, err)

	records, err := csv.NewReader(bytes.NewReader(out)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, Header, records[0])
	assert.Equal(t, []string{"42", "3", "6", "9", "1;2", "4", "77", "Base, case.xlsx", "In Progress", "2026-05-04T10:30:00Z"}, records[1])
}

func TestSharePointStore_Write_UploadsAndTags(t *testing.T) {
	docs := &mocks.MockDocumentGateway{}
	docs.On("SiteRelativeURL").Return("/sites/npp")
	dir := "/sites/npp/Extractions/3/42/6/9"
	docs.On("EnsureFolder", mock.Anything, dir).Return(nil)
	docs.On("UploadFile", mock.Anything, dir, "model_77.csv", []byte("x"), true).
		Return(&npp.File{ServerRelativeURL: dir + "/model_77.csv"}, nil)
	docs.On("UpdateFileFields", mock.Anything, dir+"/model_77.csv", mock.MatchedBy(func(f npp.FileFields) bool {
		return f.ForecastID != nil && *f.ForecastID == 77
	})).Return(nil)
	store := NewSharePointStore(docs)

	err := store.Write(context.Background(), npp.ModelPath(npp.RootWIP, 3, 42, 6, 9), "model_77.csv", []byte("x"), 77)

	require.NoError(t, err)
	docs.AssertExpectations(t)
}

func TestSharePointStore_Copy_RetagsCopy(t *testing.T) {
	docs := &mocks.MockDocumentGateway{}
	docs.On("SiteRelativeURL").Return("/sites/npp")
	docs.On("EnsureFolder", mock.Anything, "/sites/npp/Extractions/3/42/6/9").Return(nil)
	docs.On("CopyFile", mock.Anything, "/sites/npp/Extractions/3/42/6/9/model_77.csv", "/sites/npp/Extractions/3/42/6/9/model_80.csv", true).
		Return(&npp.File{ServerRelativeURL: "/sites/npp/Extractions/3/42/6/9/model_80.csv"}, nil)
	docs.On("UpdateFileFields", mock.Anything, "/sites/npp/Extractions/3/42/6/9/model_80.csv", mock.MatchedBy(func(f npp.FileFields) bool {
		return f.ForecastID != nil && *f.ForecastID == 80
	})).Return(nil)
	store := NewSharePointStore(docs)

	src := npp.File{Name: "model_77.csv", ServerRelativeURL: "/sites/npp/Extractions/3/42/6/9/model_77.csv", ForecastID: 77}
	err := store.Copy(context.Background(), src, npp.ModelPath(npp.RootApproved, 3, 42, 6, 9), "model_80.csv", 80)

	require.NoError(t, err)
	docs.AssertExpectations(t)
}

type fakeBlobs struct {
	blobs    map[string][]byte
	metadata map[string]map[string]*string
}

func newFakeBlobs() *fakeBlobs {
	return &fakeBlobs{blobs: map[string][]byte{}, metadata: map[string]map[string]*string{}}
}

func (f *fakeBlobs) UploadBuffer(_ context.Context, _, name string, buf []byte, o *azblob.UploadBufferOptions) (azblob.UploadBufferResponse, error) {
	f.blobs[name] = append([]byte(nil), buf...)
	f.metadata[name] = o.Metadata
	return azblob.UploadBufferResponse{}, nil
}

func (f *fakeBlobs) DownloadStream(_ context.Context, _, name string, _ *azblob.DownloadStreamOptions) (azblob.DownloadStreamResponse, error) {
	var resp azblob.DownloadStreamResponse
	resp.Body = io.NopCloser(bytes.NewReader(f.blobs[name]))
	return resp, nil
}

func (f *fakeBlobs) DeleteBlob(_ context.Context, _, name string, _ *azblob.DeleteBlobOptions) (azblob.DeleteBlobResponse, error) {
	delete(f.blobs, name)
	return azblob.DeleteBlobResponse{}, nil
}

func (f *fakeBlobs) NewListBlobsFlatPager(_ string, o *azblob.ListBlobsFlatOptions) *runtime.Pager[azblob.ListBlobsFlatResponse] {
	var items []*container.BlobItem
	for name := range f.blobs {
		if o.Prefix != nil && !bytes.HasPrefix([]byte(name), []byte(*o.Prefix)) {
			continue
		}
		n := name
		items = append(items, &container.BlobItem{Name: &n, Metadata: f.metadata[name]})
	}
	done := false
	return runtime.NewPager(runtime.PagingHandler[azblob.ListBlobsFlatResponse]{
		More: func(azblob.ListBlobsFlatResponse) bool { return !done },
		Fetcher: func(context.Context, *azblob.ListBlobsFlatResponse) (azblob.ListBlobsFlatResponse, error) {
			done = true
			var resp azblob.ListBlobsFlatResponse
			resp.Segment = &container.BlobFlatListSegment{BlobItems: items}
			return resp, nil
		},
	})
}

func TestBlobStore_WriteListCopyDelete(t *testing.T) {
	ctx := context.Background()
	blobs := newFakeBlobs()
	store := newBlobStore(blobs, "forecast-extractions")
	wip := npp.ModelPath(npp.RootWIP, 3, 42, 6, 9)
	approved := npp.ModelPath(npp.RootApproved, 3, 42, 6, 9)

	require.NoError(t, store.Write(ctx, wip, "model_77.csv", []byte("a,b"), 77))

	res := store.List(ctx, approved)
	require.False(t, res.Failed())
	files := res.Items()
	require.Len(t, files, 1)
	assert.Equal(t, "model_77.csv", files[0].Name)
	assert.Equal(t, 77, files[0].ForecastID)

	require.NoError(t, store.Copy(ctx, files[0], approved, "model_80.csv", 80))
	assert.Equal(t, []byte("a,b"), blobs.blobs["Extractions/3/42/6/9/model_80.csv"])
	assert.Equal(t, "80", *blobs.metadata["Extractions/3/42/6/9/model_80.csv"][forecastIDKey])

	require.NoError(t, store.Delete(ctx, files[0]))
	_, exists := blobs.blobs["Extractions/3/42/6/9/model_77.csv"]
	assert.False(t, exists)
}

func TestBlobStore_List_SkipsNestedFolders(t *testing.T) {
	blobs := newFakeBlobs()
	blobs.blobs["Extractions/3/42/6/model_1.csv"] = []byte("x")
	blobs.blobs["Extractions/3/42/6/9/model_2.csv"] = []byte("y")
	store := newBlobStore(blobs, "c")

	res := store.List(context.Background(), npp.FolderPath{Root: npp.RootWIP, BusinessUnitID: 3, EntityID: 42, DepartmentID: 6})

	require.Equal(t, contracts.OutcomeOK, res.Outcome())
	require.Len(t, res.Items(), 1)
	assert.Equal(t, "model_1.csv", res.Items()[0].Name)
}
