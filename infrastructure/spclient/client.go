package spclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"nppflow/domain/contracts"
	"nppflow/logging"

	"github.com/koltyakov/gosip"
	"github.com/koltyakov/gosip/api"
	"github.com/tidwall/gjson"
)

// defaultPageSize is used when paging through list items.
const defaultPageSize = 2000

// nometadataHeaders keep raw REST payloads free of the verbose OData envelope.
var nometadataHeaders = map[string]string{
	"Accept":       "application/json;odata=nometadata",
	"Content-Type": "application/json;odata=nometadata",
}

// Client wraps the Gosip API client for one SharePoint site.
// The fluent API serves list items, the raw HTTP client serves files, folders and groups.
type Client struct {
	gosipAPI        *api.SP
	authClient      *gosip.SPClient
	httpClient      *api.HTTPClient
	siteURL         string
	siteRelativeURL string
	logger          *logging.Logger
}

// NewClient builds a site client from an authenticated Gosip client.
func NewClient(authClient *gosip.SPClient) *Client {
	siteURL := strings.TrimRight(authClient.AuthCnfg.GetSiteURL(), "/")
	siteRelative := "/"
	if u, err := url.Parse(siteURL); err == nil && u.Path != "" {
		siteRelative = u.Path
	}
	return &Client{
		gosipAPI:        api.NewSP(authClient),
		authClient:      authClient,
		httpClient:      api.NewHTTPClient(authClient),
		siteURL:         siteURL,
		siteRelativeURL: siteRelative,
		logger:          logging.Default().WithComponent("sharepoint_client"),
	}
}

// SiteURL returns the absolute site URL.
func (c *Client) SiteURL() string {
	return c.siteURL
}

// SiteRelativeURL returns the server-relative site URL, e.g. "/sites/npp".
func (c *Client) SiteRelativeURL() string {
	return c.siteRelativeURL
}

// createRequestConfig creates a RequestConfig for the fluent API with the per-request context.
func (c *Client) createRequestConfig(ctx context.Context) *api.RequestConfig {
	return &api.RequestConfig{Context: ctx}
}

// createRawConfig creates a RequestConfig for raw REST calls.
func (c *Client) createRawConfig(ctx context.Context) *api.RequestConfig {
	headers := make(map[string]string, len(nometadataHeaders))
	for k, v := range nometadataHeaders {
		headers[k] = v
	}
	return &api.RequestConfig{Context: ctx, Headers: headers}
}

func (c *Client) endpoint(format string, args ...any) string {
	return c.siteURL + "/_api/" + fmt.Sprintf(format, args...)
}

func (c *Client) get(ctx context.Context, op, endpoint string) ([]byte, error) {
	data, err := c.httpClient.Get(endpoint, c.createRawConfig(ctx))
	if err != nil {
		return nil, gatewayError(op, err)
	}
	return data, nil
}

func (c *Client) post(ctx context.Context, op, endpoint string, body io.Reader) ([]byte, error) {
	data, err := c.httpClient.Post(endpoint, body, c.createRawConfig(ctx))
	if err != nil {
		return nil, gatewayError(op, err)
	}
	return data, nil
}

func (c *Client) merge(ctx context.Context, op, endpoint string, body io.Reader) error {
	if _, err := c.httpClient.Update(endpoint, body, c.createRawConfig(ctx)); err != nil {
		return gatewayError(op, err)
	}
	return nil
}

func (c *Client) delete(ctx context.Context, op, endpoint string) error {
	if _, err := c.httpClient.Delete(endpoint, c.createRawConfig(ctx)); err != nil {
		return gatewayError(op, err)
	}
	return nil
}

// Gosip reports non-2xx responses as "<status line> :: <body>".
var statusPattern = regexp.MustCompile(`\b([1-5][0-9]{2}) [A-Z]`)

// gatewayError wraps a Gosip error with the HTTP status it carries, and maps 404 to ErrNotFound.
func gatewayError(op string, err error) error {
	status := 0
	if m := statusPattern.FindStringSubmatch(err.Error()); m != nil {
		status, _ = strconv.Atoi(m[1])
	}
	if status == http.StatusNotFound {
		err = fmt.Errorf("%w: %v", contracts.ErrNotFound, err)
	}
	return &contracts.GatewayError{Op: op, Status: status, Err: err}
}

// collection unwraps the array of a collection response in any OData flavour.
func collection(data []byte) []json.RawMessage {
	root := gjson.ParseBytes(data)
	var arr gjson.Result
	switch {
	case root.IsArray():
		arr = root
	case root.Get("value").IsArray():
		arr = root.Get("value")
	case root.Get("d.results").IsArray():
		arr = root.Get("d.results")
	default:
		return nil
	}
	out := make([]json.RawMessage, 0, len(arr.Array()))
	arr.ForEach(func(_, v gjson.Result) bool {
		out = append(out, json.RawMessage(v.Raw))
		return true
	})
	return out
}

// entity unwraps a single-object response in any OData flavour.
func entity(data []byte) []byte {
	if d := gjson.GetBytes(data, "d"); d.IsObject() {
		return []byte(d.Raw)
	}
	return data
}

func decodeCollection[T any](data []byte) ([]T, error) {
	raw := collection(data)
	out := make([]T, 0, len(raw))
	for _, r := range raw {
		var v T
		if err := json.Unmarshal(r, &v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// escapeODataString quotes a string literal for $filter and function parameters.
func escapeODataString(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

// escapePathParam encodes a server-relative URL for use inside a REST function call.
func escapePathParam(s string) string {
	return strings.ReplaceAll(url.PathEscape(escapeODataString(s)), "%2F", "/")
}
