package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nppflow/domain/jobs"
)

// syncRecorder is a flushable recorder safe to read while the stream writes.
type syncRecorder struct {
	mu   sync.Mutex
	rec  *httptest.ResponseRecorder
	body strings.Builder
}

func newSyncRecorder() *syncRecorder { return &syncRecorder{rec: httptest.NewRecorder()} }

func (s *syncRecorder) Header() http.Header  { return s.rec.Header() }
func (s *syncRecorder) WriteHeader(code int) { s.rec.WriteHeader(code) }
func (s *syncRecorder) Flush()               {}
func (s *syncRecorder) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.body.Write(p)
}
func (s *syncRecorder) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.body.String()
}

func TestSSEManager_BroadcastsToConnectedClients(t *testing.T) {
	// Arrange
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	manager := NewSSEManager(ctx)
	w := newSyncRecorder()
	reqCtx, disconnect := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/events?client_id=c1", nil).WithContext(reqCtx)
	done := make(chan struct{})
	go func() {
		manager.HandleSSEConnection(w, req)
		close(done)
	}()
	require.Eventually(t, func() bool { return manager.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	// Act
	manager.BroadcastEntityUpdate(42)
	manager.BroadcastFolderUpdate("/sites/npp/WIP/3/42/6/9")
	job := &jobs.Job{ID: "job-1", Type: jobs.JobTypeRLSSync, Status: jobs.JobStatusRunning}
	job.InitializeState()
	manager.NotifyJobUpdate(job.ID, job)
	disconnect()
	<-done

	// Assert
	out := w.String()
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	assert.Contains(t, out, ": connected c1")
	assert.Contains(t, out, "event: entity:42:updated\n")
	assert.Contains(t, out, `"folderUrl":"/sites/npp/WIP/3/42/6/9"`)
	assert.Contains(t, out, "event: job:job-1:updated\n")
	assert.Contains(t, out, `"type":"rls_sync"`)
	assert.Equal(t, 0, manager.ClientCount())
}

func TestSSEManager_CloseAllEndsStreams(t *testing.T) {
	manager := NewSSEManager(context.Background())
	done := make(chan struct{})
	go func() {
		manager.HandleSSEConnection(newSyncRecorder(), httptest.NewRequest(http.MethodGet, "/events", nil))
		close(done)
	}()
	require.Eventually(t, func() bool { return manager.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	manager.CloseAll()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("stream did not end")
	}
}
