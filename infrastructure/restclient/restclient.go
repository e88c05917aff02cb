// Package restclient is the JSON-over-HTTP plumbing shared by the licensing,
// Graph and Power BI gateways.
package restclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"nppflow/domain/contracts"
	"nppflow/logging"
	"nppflow/spauth"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/tidwall/gjson"
)

// Authorizer decorates outgoing requests with credentials.
type Authorizer func(ctx context.Context, req *http.Request) error

// Response is a completed call.
type Response struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// JSON parses the body for gjson path lookups.
func (r *Response) JSON() gjson.Result {
	return gjson.ParseBytes(r.Body)
}

// Options configures a Client.
type Options struct {
	BaseURL  string
	Timeout  time.Duration
	RetryMax int
	Auth     Authorizer
	// Component names the client in logs.
	Component string
	// OnUnauthorized is called for every 401 response.
	OnUnauthorized contracts.UnauthorizedHook
}

// Client sends JSON requests against one base URL with retries.
type Client struct {
	baseURL        string
	http           *retryablehttp.Client
	auth           Authorizer
	onUnauthorized contracts.UnauthorizedHook
	logger         *logging.Logger
}

// New creates a Client.
func New(opts Options) *Client {
	retryClient := retryablehttp.NewClient()
	retryClient.Logger = nil
	retryClient.RetryMax = opts.RetryMax
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler
	if opts.Timeout > 0 {
		retryClient.HTTPClient.Timeout = opts.Timeout
	}
	component := opts.Component
	if component == "" {
		component = "rest_client"
	}
	return &Client{
		baseURL:        strings.TrimRight(opts.BaseURL, "/"),
		http:           retryClient,
		auth:           opts.Auth,
		onUnauthorized: opts.OnUnauthorized,
		logger:         logging.Default().WithComponent(component),
	}
}

// URL resolves a path against the base URL. Absolute URLs pass through.
func (c *Client) URL(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return c.baseURL + "/" + strings.TrimLeft(path, "/")
}

// Do sends a request. A non-nil payload is encoded as JSON.
// Non-2xx responses are returned as *contracts.GatewayError together with the response.
func (c *Client) Do(ctx context.Context, method, path string, payload any) (*Response, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("%s %s: encode: %w", method, path, err)
		}
		body = bytes.NewReader(data)
	}

	endpoint := c.URL(path)
	req, err := retryablehttp.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.auth != nil {
		if err := c.auth(ctx, req.Request); err != nil {
			return nil, &contracts.GatewayError{Op: method + " " + path, Err: err}
		}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &contracts.GatewayError{Op: method + " " + path, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &contracts.GatewayError{Op: method + " " + path, Status: resp.StatusCode, Err: err}
	}
	out := &Response{StatusCode: resp.StatusCode, ContentType: resp.Header.Get("Content-Type"), Body: data}
	c.logger.Debug("Remote call completed", "method", method, "path", path, "status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds())

	if resp.StatusCode == http.StatusUnauthorized && c.onUnauthorized != nil {
		c.onUnauthorized(ctx, endpoint)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return out, &contracts.GatewayError{Op: method + " " + path, Status: resp.StatusCode, Err: remoteError(data, resp.Status)}
	}
	return out, nil
}

// DecodeJSON sends a request and decodes the body into out.
func (c *Client) DecodeJSON(ctx context.Context, method, path string, payload, out any) error {
	resp, err := c.Do(ctx, method, path, payload)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(resp.Body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return fmt.Errorf("%s %s: decode: %w", method, path, err)
	}
	return nil
}

// remoteError picks the most useful message from an error body.
func remoteError(body []byte, status string) error {
	for _, p := range []string{"error.message", "error.message.value", "message", "error"} {
		if v := gjson.GetBytes(body, p); v.Type == gjson.String && v.Str != "" {
			return errors.New(v.Str)
		}
	}
	return errors.New(status)
}

// BearerToken authorizes requests with a token for scope.
func BearerToken(source spauth.TokenSource, scope string) Authorizer {
	return func(ctx context.Context, req *http.Request) error {
		token, err := source.Token(ctx, scope)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+token)
		return nil
	}
}

// Header authorizes requests with a fixed header, e.g. an Azure Functions key.
func Header(name, value string) Authorizer {
	return func(_ context.Context, req *http.Request) error {
		if value != "" {
			req.Header.Set(name, value)
		}
		return nil
	}
}
