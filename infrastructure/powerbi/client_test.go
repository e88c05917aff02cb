package powerbi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nppflow/domain/contracts"
	"nppflow/infrastructure/config"
	"nppflow/spauth"
)

func newTestClient(t *testing.T, mux *http.ServeMux) *Client {
	t.Helper()
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return NewClient(&config.PowerBIConfig{BaseURL: server.URL, WorkspaceID: "ws-1"}, spauth.StaticTokenSource("pbi"))
}

func TestClient_Reports_ListsWorkspaceReports(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/groups/ws-1/reports", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer pbi", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"value":[{"id":"r1","name":"Forecast","embedUrl":"https://app.powerbi.com/r1","datasetId":"d1"}]}`))
	})
	client := newTestClient(t, mux)

	reports, err := client.Reports(context.Background())

	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, "Forecast", reports[0].Name)
	assert.Equal(t, "d1", reports[0].DatasetID)
}

func TestClient_Report_NotFound(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/groups/ws-1/reports/missing", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	client := newTestClient(t, mux)

	_, err := client.Report(context.Background(), "missing")

	assert.ErrorIs(t, err, contracts.ErrNotFound)
}

func TestClient_ReportPages_Ordered(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/groups/ws-1/reports/r1/pages", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"value":[{"name":"p1","displayName":"Summary","order":0},{"name":"p2","displayName":"Detail","order":1}]}`))
	})
	client := newTestClient(t, mux)

	pages, err := client.ReportPages(context.Background(), "r1")

	require.NoError(t, err)
	require.Len(t, pages, 2)
	assert.Equal(t, "Detail", pages[1].DisplayName)
	assert.Equal(t, 1, pages[1].Order)
}

func TestClient_GenerateEmbedToken_ViewAccess(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/groups/ws-1/reports/r1/GenerateToken", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "View", body["accessLevel"])
		assert.Equal(t, "d1", body["datasetId"])
		_, _ = w.Write([]byte(`{"token":"tok","tokenId":"tid","expiration":"2030-01-01T00:00:00Z"}`))
	})
	client := newTestClient(t, mux)

	token, err := client.GenerateEmbedToken(context.Background(), "r1", "d1")

	require.NoError(t, err)
	assert.Equal(t, "tok", token.Token)
	assert.Equal(t, 2030, token.Expiration.Year())
}
