package handlers

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"nppflow/application"
	"nppflow/domain/contracts"
	"nppflow/domain/npp"
	"nppflow/interfaces/web/presenters"
	"nppflow/platform/refresh"
)

func newFileHandlers(t *testing.T, maxUpload int64) (*FileHandlers, *mockFileWorkflow) {
	files := &mockFileWorkflow{}
	refresher := refresh.NewCoalescer(time.Millisecond)
	t.Cleanup(refresher.Close)
	return NewFileHandlers(files, ownersOf(caller.ID), refresher, presenters.NewFilePresenter(), maxUpload), files
}

func multipartUpload(t *testing.T, fields map[string]string, name, content string) *http.Request {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	fw, err := mw.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/entities/42/files", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return asCaller(withURLParams(req, "entityID", "42"))
}

func TestFileHandlers_Upload_ParsesForm(t *testing.T) {
	// Arrange
	h, files := newFileHandlers(t, 1<<20)
	files.On("Upload", mock.Anything, mock.MatchedBy(func(req application.UploadRequest) bool {
		return req.EntityID == 42 &&
			req.DepartmentID == 6 &&
			req.GeographyID == 9 &&
			req.Overwrite &&
			string(req.Content) == "xlsx-bytes" &&
			assert.ObjectsAreEqual([]int{1, 2}, req.ScenarioIDs) &&
			req.Uploader.ID == caller.ID
	})).Return(&npp.File{ID: 77, Name: "Base.xlsx", ApprovalStatus: npp.ApprovalInProgress, ScenarioIDs: []int{1, 2}}, nil)
	req := multipartUpload(t, map[string]string{"department": "6", "geography": "9", "scenarios": "1, 2", "overwrite": "true"}, "Base.xlsx", "xlsx-bytes")
	w := httptest.NewRecorder()

	// Act
	h.Upload(w, req)

	// Assert
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"id":77`)
	files.AssertExpectations(t)
}

func TestFileHandlers_Upload_Rejections(t *testing.T) {
	tests := []struct {
		name       string
		limit      int64
		fields     map[string]string
		content    string
		uploadErr  error
		wantStatus int
	}{
		{"too_large", 64, map[string]string{"department": "6"}, strings.Repeat("x", 1024), nil, http.StatusRequestEntityTooLarge},
		{"bad_scenarios", 1 << 20, map[string]string{"department": "6", "scenarios": "1,x"}, "x", nil, http.StatusBadRequest},
		{"missing_department", 1 << 20, map[string]string{}, "x", nil, http.StatusBadRequest},
		{"scenario_conflict", 1 << 20, map[string]string{"department": "6", "geography": "9"}, "x", contracts.ErrScenarioConflict, http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, files := newFileHandlers(t, tt.limit)
			if tt.uploadErr != nil {
				files.On("Upload", mock.Anything, mock.Anything).Return(nil, tt.uploadErr)
			}
			w := httptest.NewRecorder()

			h.Upload(w, multipartUpload(t, tt.fields, "Base.xlsx", tt.content))

			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestFileHandlers_ListFiles_Query(t *testing.T) {
	h, files := newFileHandlers(t, 0)
	want := application.FolderQuery{EntityID: 42, Root: npp.RootWIP, DepartmentID: 6, GeographyID: 9}
	files.On("ListFiles", mock.Anything, want).Return(contracts.ResultOf([]npp.File{{ID: 70, Name: "Base.xlsx"}}), nil)
	req := withURLParams(httptest.NewRequest(http.MethodGet, "/api/entities/42/files?bucket=WIP&department=6&geography=9", nil), "entityID", "42")
	w := httptest.NewRecorder()

	h.ListFiles(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"name":"Base.xlsx"`)
}

func TestFileHandlers_ListFiles_BadQuery(t *testing.T) {
	tests := map[string]string{
		"unknown_bucket":     "bucket=Drafts&department=6",
		"missing_department": "bucket=WIP",
		"negative_geography": "bucket=WIP&department=6&geography=-1",
	}

	for name, query := range tests {
		t.Run(name, func(t *testing.T) {
			h, files := newFileHandlers(t, 0)
			w := httptest.NewRecorder()

			h.ListFiles(w, withURLParams(httptest.NewRequest(http.MethodGet, "/api/entities/42/files?"+query, nil), "entityID", "42"))

			assert.Equal(t, http.StatusBadRequest, w.Code)
			files.AssertNotCalled(t, "ListFiles", mock.Anything, mock.Anything)
		})
	}
}

func TestFileHandlers_RefreshFolder_Coalesces(t *testing.T) {
	h, files := newFileHandlers(t, 0)
	release := make(chan struct{})
	done := make(chan struct{}, 4)
	files.On("RefreshFolder", mock.Anything, mock.Anything).Run(func(mock.Arguments) {
		<-release
		done <- struct{}{}
	}).Return(nil)
	refreshReq := func() *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		h.RefreshFolder(w, withURLParams(httptest.NewRequest(http.MethodPost, "/api/entities/42/files/refresh?bucket=WIP&department=6&geography=9", nil), "entityID", "42"))
		return w
	}

	first := refreshReq()
	second := refreshReq()
	third := refreshReq()
	close(release)

	assert.JSONEq(t, `{"started":true}`, first.Body.String())
	assert.JSONEq(t, `{"started":false}`, second.Body.String())
	assert.JSONEq(t, `{"started":false}`, third.Body.String())
	require.Eventually(t, func() bool { return len(done) == 2 }, time.Second, 5*time.Millisecond)
}

func TestFileHandlers_Approve_SetsActor(t *testing.T) {
	h, files := newFileHandlers(t, 0)
	files.On("EntityOf", "/sites/npp/WIP/3/42/6/9/Base.xlsx").Return(42, nil)
	files.On("Approve", mock.Anything, application.ReviewRequest{FileURL: "/sites/npp/WIP/3/42/6/9/Base.xlsx", Actor: *caller}).
		Return(&npp.File{ID: 90, Name: "Base.xlsx", ApprovalStatus: npp.ApprovalApproved}, nil)
	req := asCaller(httptest.NewRequest(http.MethodPost, "/api/files/approve", strings.NewReader(`{"fileUrl":"/sites/npp/WIP/3/42/6/9/Base.xlsx"}`)))
	w := httptest.NewRecorder()

	h.Approve(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"Approved"`)
}

func TestFileHandlers_Review_RequiresFileURL(t *testing.T) {
	h, _ := newFileHandlers(t, 0)
	w := httptest.NewRecorder()

	h.Submit(w, asCaller(httptest.NewRequest(http.MethodPost, "/api/files/submit", strings.NewReader(`{}`))))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "fileUrl")
}

func TestFileHandlers_Review_OwnerOnlyOperations(t *testing.T) {
	const url = "/sites/npp/WIP/3/42/6/9/Base.xlsx"
	tests := []struct {
		name     string
		serve    func(h *FileHandlers) http.HandlerFunc
		path     string
		expected int
	}{
		{"approve_refused", func(h *FileHandlers) http.HandlerFunc { return h.Approve }, "/api/files/approve", http.StatusForbidden},
		{"reject_refused", func(h *FileHandlers) http.HandlerFunc { return h.Reject }, "/api/files/reject", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			files := &mockFileWorkflow{}
			files.On("EntityOf", url).Return(42, nil)
			refresher := refresh.NewCoalescer(time.Millisecond)
			t.Cleanup(refresher.Close)
			h := NewFileHandlers(files, ownersOf(99), refresher, presenters.NewFilePresenter(), 0)
			w := httptest.NewRecorder()

			tt.serve(h)(w, asCaller(httptest.NewRequest(http.MethodPost, tt.path, strings.NewReader(`{"fileUrl":"`+url+`"}`))))

			assert.Equal(t, tt.expected, w.Code)
			files.AssertNotCalled(t, "Approve", mock.Anything, mock.Anything)
			files.AssertNotCalled(t, "Reject", mock.Anything, mock.Anything)
		})
	}
}

func TestFileHandlers_Submit_OpenToEntityUsers(t *testing.T) {
	files := &mockFileWorkflow{}
	files.On("Submit", mock.Anything, mock.Anything).Return(&npp.File{ID: 77, Name: "Base.xlsx", ApprovalStatus: npp.ApprovalSubmitted}, nil)
	refresher := refresh.NewCoalescer(time.Millisecond)
	t.Cleanup(refresher.Close)
	h := NewFileHandlers(files, ownersOf(99), refresher, presenters.NewFilePresenter(), 0)
	w := httptest.NewRecorder()

	h.Submit(w, asCaller(httptest.NewRequest(http.MethodPost, "/api/files/submit", strings.NewReader(`{"fileUrl":"/sites/npp/WIP/3/42/6/9/Base.xlsx"}`))))

	assert.Equal(t, http.StatusOK, w.Code)
	files.AssertNotCalled(t, "EntityOf", mock.Anything)
}
