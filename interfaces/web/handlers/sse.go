package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"nppflow/domain/jobs"
	"nppflow/interfaces/web/presenters"
	"nppflow/logging"
)

const (
	keepAliveInterval = 30 * time.Second
	staleAfter        = 2 * time.Minute
)

// SSEClient represents a connected Server-Sent Events client.
type SSEClient struct {
	id       string
	writer   http.ResponseWriter
	flusher  http.Flusher
	done     chan struct{}
	mu       sync.Mutex
	lastSent time.Time
}

// SSEManager manages Server-Sent Events connections and real-time broadcasting
// of job progress, entity and folder changes and toasts.
type SSEManager struct {
	clients        map[string]*SSEClient
	mu             sync.RWMutex
	logger         *logging.Logger
	toastPresenter *presenters.ToastPresenter
	jobPresenter   *presenters.JobPresenter
}

// NewSSEManager creates a connection manager whose keep-alive routine stops with ctx.
func NewSSEManager(ctx context.Context) *SSEManager {
	manager := &SSEManager{
		clients:        make(map[string]*SSEClient),
		logger:         logging.Default().WithComponent("sse_manager"),
		toastPresenter: presenters.NewToastPresenter(),
		jobPresenter:   presenters.NewJobPresenter(),
	}
	go manager.cleanupRoutine(ctx)
	return manager
}

// AddClient registers a connection and writes the stream headers.
func (s *SSEManager) AddClient(clientID string, w http.ResponseWriter) *SSEClient {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	flusher, ok := w.(http.Flusher)
	if !ok {
		s.logger.Error("Response writer does not support flushing")
		return nil
	}
	flusher.Flush()

	client := &SSEClient{
		id:       clientID,
		writer:   w,
		flusher:  flusher,
		done:     make(chan struct{}),
		lastSent: time.Now(),
	}

	s.mu.Lock()
	s.clients[clientID] = client
	total := len(s.clients)
	s.mu.Unlock()

	s.logger.Info("SSE client connected", "client_id", clientID, "total_clients", total)
	return client
}

// RemoveClient removes an SSE client connection
func (s *SSEManager) RemoveClient(clientID string) {
	s.mu.Lock()
	client, exists := s.clients[clientID]
	if exists {
		delete(s.clients, clientID)
	}
	s.mu.Unlock()

	if exists {
		client.close()
		s.logger.Info("SSE client disconnected", "client_id", clientID)
	}
}

// CloseAll disconnects every client.
func (s *SSEManager) CloseAll() {
	s.mu.Lock()
	clients := s.clients
	s.clients = make(map[string]*SSEClient)
	s.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
	s.logger.Info("Closed all SSE clients", "count", len(clients))
}

// ClientCount returns the number of connected clients.
func (s *SSEManager) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

func (c *SSEClient) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	select {
	case <-c.done:
	default:
		close(c.done)
	}
}

// broadcast sends one event to every client and drops the ones that fail.
func (s *SSEManager) broadcast(event, data string) {
	s.mu.RLock()
	if len(s.clients) == 0 {
		s.mu.RUnlock()
		s.logger.Debug("No SSE clients connected, skipping broadcast", "event", event)
		return
	}
	clientList := make([]*SSEClient, 0, len(s.clients))
	for _, client := range s.clients {
		clientList = append(clientList, client)
	}
	s.mu.RUnlock()

	var failed []string
	for _, client := range clientList {
		if err := client.send(event, data); err != nil {
			s.logger.Warn("Failed to send event to client", "client_id", client.id, "event", event, "error", err)
			failed = append(failed, client.id)
		}
	}
	for _, id := range failed {
		s.RemoveClient(id)
	}

	s.logger.Debug("Broadcasted event",
		"event", event,
		"total_clients", len(clientList),
		"failed", len(failed))
}

func refreshMessage(fields map[string]any) string {
	fields["action"] = "refresh"
	fields["timestamp"] = time.Now().Format(time.RFC3339)
	data, _ := json.Marshal(fields)
	return string(data)
}

// BroadcastJobUpdate sends a job's current state to all clients.
func (s *SSEManager) BroadcastJobUpdate(jobID string, data string) {
	s.broadcast(fmt.Sprintf("job:%s:updated", jobID), data)
}

// BroadcastJobListUpdate tells clients the job list has changed.
func (s *SSEManager) BroadcastJobListUpdate() {
	s.broadcast("jobs-updated", refreshMessage(map[string]any{}))
}

// BroadcastEntityUpdate tells clients an entity's status or progress changed.
func (s *SSEManager) BroadcastEntityUpdate(entityID int) {
	s.broadcast(fmt.Sprintf("entity:%d:updated", entityID), refreshMessage(map[string]any{"entityId": entityID}))
}

// BroadcastFolderUpdate tells clients a folder listing changed.
func (s *SSEManager) BroadcastFolderUpdate(folderURL string) {
	s.broadcast("folder-updated", refreshMessage(map[string]any{"folderUrl": folderURL}))
}

// BroadcastToast broadcasts a simple toast notification to all connected clients
func (s *SSEManager) BroadcastToast(message, toastType string) {
	html, err := s.toastPresenter.FormatToastNotification(message, toastType)
	if err != nil {
		s.logger.Error("Failed to format toast notification", "error", err, "message", message)
		return
	}
	s.broadcast("toast", html)
}

// BroadcastRichJobToast broadcasts a toast summarising a finished job.
func (s *SSEManager) BroadcastRichJobToast(job *jobs.Job) {
	if job == nil {
		return
	}
	html, err := s.toastPresenter.FormatRichJobToastNotification(job)
	if err != nil {
		s.logger.Error("Failed to format rich job toast notification", "error", err, "job_id", job.ID)
		return
	}
	s.broadcast("toast", html)
}

// NotifyUpdate implements application.UpdateNotifier.
func (s *SSEManager) NotifyUpdate() {
	s.BroadcastJobListUpdate()
}

// NotifyJobUpdate implements application.UpdateNotifier with the job's progress view.
func (s *SSEManager) NotifyJobUpdate(jobID string, job *jobs.Job) {
	data, err := json.Marshal(s.jobPresenter.FormatJobStatus(job))
	if err != nil {
		s.logger.Error("Failed to encode job update", "job_id", jobID, "error", err)
		return
	}
	s.BroadcastJobUpdate(jobID, string(data))
}

// send writes one SSE frame. Keep-alives go out as comments.
func (c *SSEClient) send(event, data string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	select {
	case <-c.done:
		return fmt.Errorf("client connection closed")
	default:
	}

	var message string
	if event == "keepalive" {
		message = fmt.Sprintf(": %s\n\n", data)
	} else {
		message = fmt.Sprintf("event: %s\ndata: %s\n\n", event, data)
	}
	if _, err := c.writer.Write([]byte(message)); err != nil {
		return fmt.Errorf("write error: %w", err)
	}
	c.flusher.Flush()
	c.lastSent = time.Now()
	return nil
}

// SendKeepAlive pings every client and drops stale ones.
func (s *SSEManager) SendKeepAlive() {
	s.broadcast("keepalive", time.Now().Format(time.RFC3339))

	threshold := time.Now().Add(-staleAfter)
	var stale []string
	s.mu.RLock()
	for id, c := range s.clients {
		c.mu.Lock()
		if c.lastSent.Before(threshold) {
			stale = append(stale, id)
		}
		c.mu.Unlock()
	}
	s.mu.RUnlock()

	for _, id := range stale {
		s.logger.Info("Removing stale SSE client", "client_id", id)
		s.RemoveClient(id)
	}
}

func (s *SSEManager) cleanupRoutine(ctx context.Context) {
	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.SendKeepAlive()
		}
	}
}

// HandleSSEConnection handles the SSE endpoint
func (s *SSEManager) HandleSSEConnection(w http.ResponseWriter, r *http.Request) {
	clientID := r.URL.Query().Get("client_id")
	if clientID == "" {
		clientID = fmt.Sprintf("client_%d", time.Now().UnixNano())
	}

	client := s.AddClient(clientID, w)
	if client == nil {
		http.Error(w, "Failed to establish SSE connection", http.StatusInternalServerError)
		return
	}
	if err := client.send("keepalive", "connected "+clientID); err != nil {
		s.logger.Error("Failed to send initial keep-alive", "client_id", clientID, "error", err)
		s.RemoveClient(clientID)
		return
	}

	select {
	case <-r.Context().Done():
		s.RemoveClient(clientID)
	case <-client.done:
	}
}
