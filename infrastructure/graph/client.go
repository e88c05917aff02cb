package graph

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"nppflow/domain/contracts"
	"nppflow/infrastructure/config"
	"nppflow/infrastructure/restclient"
	"nppflow/logging"
	"nppflow/spauth"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
)

// Client talks to Microsoft Graph with app-only permissions.
type Client struct {
	rest   *restclient.Client
	logger *logging.Logger
}

var _ contracts.DirectoryGateway = (*Client)(nil)

// NewClient creates a Graph client.
func NewClient(cfg *config.GraphConfig, tokens spauth.TokenSource) *Client {
	return &Client{
		rest: restclient.New(restclient.Options{
			BaseURL:   cfg.BaseURL,
			RetryMax:  3,
			Auth:      restclient.BearerToken(tokens, spauth.GraphScope),
			Component: "graph_client",
		}),
		logger: logging.Default().WithComponent("graph_client"),
	}
}

func odataQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func (c *Client) FindGroup(ctx context.Context, displayName string) (string, bool, error) {
	path := "groups?$select=id,displayName&$filter=" + strings.ReplaceAll(url.QueryEscape("displayName eq "+odataQuote(displayName)), "+", "%20")
	resp, err := c.rest.Do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return "", false, err
	}
	id := resp.JSON().Get("value.0.id").String()
	return id, id != "", nil
}

func (c *Client) CreateSecurityGroup(ctx context.Context, displayName, description string) (string, error) {
	payload := map[string]any{
		"displayName":     displayName,
		"description":     description,
		"mailEnabled":     false,
		"mailNickname":    "npp-" + uuid.NewString()[:8],
		"securityEnabled": true,
	}
	resp, err := c.rest.Do(ctx, http.MethodPost, "groups", payload)
	if err != nil {
		return "", err
	}
	id := resp.JSON().Get("id").String()
	if id == "" {
		return "", fmt.Errorf("create group %s: no id returned", displayName)
	}
	c.logger.Info("Security group created", "group_name", displayName, "group_id", id)
	return id, nil
}

// GroupMembers follows @odata.nextLink until every member is read.
func (c *Client) GroupMembers(ctx context.Context, groupID string) ([]contracts.DirectoryUser, error) {
	var out []contracts.DirectoryUser
	next := fmt.Sprintf("groups/%s/members/microsoft.graph.user?$select=id,mail,userPrincipalName&$top=999", url.PathEscape(groupID))
	for next != "" {
		resp, err := c.rest.Do(ctx, http.MethodGet, next, nil)
		if err != nil {
			return nil, err
		}
		root := resp.JSON()
		root.Get("value").ForEach(func(_, v gjson.Result) bool {
			out = append(out, directoryUser(v))
			return true
		})
		next = root.Get("@odata\\.nextLink").String()
	}
	return out, nil
}

func (c *Client) FindUser(ctx context.Context, email string) (*contracts.DirectoryUser, error) {
	resp, err := c.rest.Do(ctx, http.MethodGet,
		fmt.Sprintf("users/%s?$select=id,mail,userPrincipalName", url.PathEscape(email)), nil)
	if err != nil {
		if contracts.StatusCode(err) == http.StatusNotFound {
			return nil, fmt.Errorf("user %s: %w", email, contracts.ErrNotFound)
		}
		return nil, err
	}
	u := directoryUser(resp.JSON())
	return &u, nil
}

func (c *Client) AddGroupMember(ctx context.Context, groupID, userID string) error {
	payload := map[string]string{"@odata.id": c.rest.URL("directoryObjects/" + userID)}
	_, err := c.rest.Do(ctx, http.MethodPost, fmt.Sprintf("groups/%s/members/$ref", url.PathEscape(groupID)), payload)
	return err
}

func (c *Client) RemoveGroupMember(ctx context.Context, groupID, userID string) error {
	_, err := c.rest.Do(ctx, http.MethodDelete,
		fmt.Sprintf("groups/%s/members/%s/$ref", url.PathEscape(groupID), url.PathEscape(userID)), nil)
	return err
}

// UserPhoto returns the raw profile photo and its content type.
func (c *Client) UserPhoto(ctx context.Context, email string) ([]byte, string, error) {
	resp, err := c.rest.Do(ctx, http.MethodGet, fmt.Sprintf("users/%s/photo/$value", url.PathEscape(email)), nil)
	if err != nil {
		if contracts.StatusCode(err) == http.StatusNotFound {
			return nil, "", fmt.Errorf("photo for %s: %w", email, contracts.ErrNotFound)
		}
		return nil, "", err
	}
	contentType := resp.ContentType
	if contentType == "" {
		contentType = "image/jpeg"
	}
	return resp.Body, contentType, nil
}

func directoryUser(v gjson.Result) contracts.DirectoryUser {
	return contracts.DirectoryUser{
		ID:                v.Get("id").String(),
		Mail:              v.Get("mail").String(),
		UserPrincipalName: v.Get("userPrincipalName").String(),
	}
}
