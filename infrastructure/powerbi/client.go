package powerbi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"nppflow/domain/contracts"
	"nppflow/infrastructure/config"
	"nppflow/infrastructure/restclient"
	"nppflow/spauth"

	"github.com/tidwall/gjson"
)

// Client talks to the Power BI REST API for one workspace.
type Client struct {
	rest        *restclient.Client
	workspaceID string
}

var _ contracts.AnalyticsGateway = (*Client)(nil)

// NewClient creates a Power BI client.
func NewClient(cfg *config.PowerBIConfig, tokens spauth.TokenSource) *Client {
	return &Client{
		rest: restclient.New(restclient.Options{
			BaseURL:   cfg.BaseURL,
			RetryMax:  3,
			Auth:      restclient.BearerToken(tokens, spauth.PowerBIScope),
			Component: "powerbi_client",
		}),
		workspaceID: cfg.WorkspaceID,
	}
}

func (c *Client) reportsPath() string {
	return fmt.Sprintf("groups/%s/reports", url.PathEscape(c.workspaceID))
}

func (c *Client) Reports(ctx context.Context) ([]contracts.Report, error) {
	resp, err := c.rest.Do(ctx, http.MethodGet, c.reportsPath(), nil)
	if err != nil {
		return nil, err
	}
	var out []contracts.Report
	resp.JSON().Get("value").ForEach(func(_, v gjson.Result) bool {
		out = append(out, report(v))
		return true
	})
	return out, nil
}

func (c *Client) Report(ctx context.Context, reportID string) (*contracts.Report, error) {
	resp, err := c.rest.Do(ctx, http.MethodGet, c.reportsPath()+"/"+url.PathEscape(reportID), nil)
	if err != nil {
		if contracts.StatusCode(err) == http.StatusNotFound {
			return nil, fmt.Errorf("report %s: %w", reportID, contracts.ErrNotFound)
		}
		return nil, err
	}
	r := report(resp.JSON())
	return &r, nil
}

func (c *Client) ReportPages(ctx context.Context, reportID string) ([]contracts.ReportPage, error) {
	resp, err := c.rest.Do(ctx, http.MethodGet, c.reportsPath()+"/"+url.PathEscape(reportID)+"/pages", nil)
	if err != nil {
		return nil, err
	}
	var out []contracts.ReportPage
	resp.JSON().Get("value").ForEach(func(_, v gjson.Result) bool {
		out = append(out, contracts.ReportPage{
			Name:        v.Get("name").String(),
			DisplayName: v.Get("displayName").String(),
			Order:       int(v.Get("order").Int()),
		})
		return true
	})
	return out, nil
}

// GenerateEmbedToken issues a view token for the report and dataset.
func (c *Client) GenerateEmbedToken(ctx context.Context, reportID, datasetID string) (*contracts.EmbedToken, error) {
	payload := map[string]any{"accessLevel": "View"}
	if datasetID != "" {
		payload["datasetId"] = datasetID
	}
	resp, err := c.rest.Do(ctx, http.MethodPost, c.reportsPath()+"/"+url.PathEscape(reportID)+"/GenerateToken", payload)
	if err != nil {
		return nil, err
	}
	root := resp.JSON()
	token := root.Get("token").String()
	if token == "" {
		return nil, fmt.Errorf("generate embed token for %s: empty token", reportID)
	}
	return &contracts.EmbedToken{
		Token:      token,
		TokenID:    root.Get("tokenId").String(),
		Expiration: root.Get("expiration").Time(),
	}, nil
}

func report(v gjson.Result) contracts.Report {
	return contracts.Report{
		ID:        v.Get("id").String(),
		Name:      v.Get("name").String(),
		EmbedURL:  v.Get("embedUrl").String(),
		DatasetID: v.Get("datasetId").String(),
		WebURL:    v.Get("webUrl").String(),
	}
}
