package spclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"nppflow/domain/contracts"
	"nppflow/domain/npp"
)

// GroupClient manages the site groups that carry entity permissions.
type GroupClient struct {
	client *Client
}

// NewGroupClient creates a group gateway over a site client.
func NewGroupClient(client *Client) *GroupClient {
	return &GroupClient{client: client}
}

var _ contracts.GroupGateway = (*GroupClient)(nil)

const userSelect = "Id,Title,Email,LoginName,UserPrincipalName"

func (g *GroupClient) ListGroups(ctx context.Context) contracts.Result[npp.Group] {
	data, err := g.client.get(ctx, "list groups", g.client.endpoint("web/sitegroups?$select=Id,Title,Description"))
	if err != nil {
		return contracts.FailedResult[npp.Group](err)
	}
	groups, err := decodeCollection[groupJSON](data)
	if err != nil {
		return contracts.FailedResult[npp.Group](fmt.Errorf("decode groups: %w", err))
	}
	out := make([]npp.Group, 0, len(groups))
	for _, gr := range groups {
		out = append(out, gr.toDomain())
	}
	return contracts.ResultOf(out)
}

func (g *GroupClient) getGroup(ctx context.Context, name string) (*npp.Group, error) {
	endpoint := g.client.endpoint("web/sitegroups/getbyname('%s')?$select=Id,Title,Description", escapePathParam(name))
	data, err := g.client.get(ctx, "get group", endpoint)
	if err != nil {
		return nil, err
	}
	var gr groupJSON
	if err := json.Unmarshal(entity(data), &gr); err != nil {
		return nil, fmt.Errorf("decode group: %w", err)
	}
	group := gr.toDomain()
	return &group, nil
}

// EnsureGroup returns the named group, creating it when it does not exist.
func (g *GroupClient) EnsureGroup(ctx context.Context, name, description string) (*npp.Group, error) {
	group, err := g.getGroup(ctx, name)
	if err == nil {
		return group, nil
	}
	if contracts.StatusCode(err) != http.StatusNotFound {
		return nil, err
	}

	body, _ := json.Marshal(map[string]string{"Title": name, "Description": description})
	data, err := g.client.post(ctx, "create group", g.client.endpoint("web/sitegroups"), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	var gr groupJSON
	if err := json.Unmarshal(entity(data), &gr); err != nil {
		return nil, fmt.Errorf("decode group: %w", err)
	}
	g.client.logger.SharePoint("Group created", "group_name", name, "group_id", gr.ID)
	created := gr.toDomain()
	return &created, nil
}

func (g *GroupClient) DeleteGroup(ctx context.Context, name string) error {
	group, err := g.getGroup(ctx, name)
	if err != nil {
		return err
	}
	endpoint := g.client.endpoint("web/sitegroups/removebyid(%d)", group.ID)
	if _, err := g.client.post(ctx, "delete group", endpoint, nil); err != nil {
		return err
	}
	g.client.logger.SharePoint("Group deleted", "group_name", name)
	return nil
}

func (g *GroupClient) GroupMembers(ctx context.Context, name string) contracts.Result[npp.User] {
	endpoint := g.client.endpoint("web/sitegroups/getbyname('%s')/users?$select=%s", escapePathParam(name), userSelect)
	data, err := g.client.get(ctx, "list group members", endpoint)
	if err != nil {
		return contracts.FailedResult[npp.User](err)
	}
	users, err := decodeCollection[userJSON](data)
	if err != nil {
		return contracts.FailedResult[npp.User](fmt.Errorf("decode group members: %w", err))
	}
	out := make([]npp.User, 0, len(users))
	for _, u := range users {
		out = append(out, u.toDomain())
	}
	return contracts.ResultOf(out)
}

// AddGroupMember adds a user by login name.
func (g *GroupClient) AddGroupMember(ctx context.Context, name string, user npp.User) error {
	if user.LoginName == "" {
		return fmt.Errorf("add group member %d: login name required", user.ID)
	}
	body, _ := json.Marshal(map[string]string{"LoginName": user.LoginName})
	endpoint := g.client.endpoint("web/sitegroups/getbyname('%s')/users", escapePathParam(name))
	if _, err := g.client.post(ctx, "add group member", endpoint, bytes.NewReader(body)); err != nil {
		return err
	}
	g.client.logger.SharePoint("Group member added", "group_name", name, "user_id", user.ID)
	return nil
}

func (g *GroupClient) RemoveGroupMember(ctx context.Context, name string, userID int) error {
	endpoint := g.client.endpoint("web/sitegroups/getbyname('%s')/users/removebyid(%d)", escapePathParam(name), userID)
	if _, err := g.client.post(ctx, "remove group member", endpoint, nil); err != nil {
		return err
	}
	g.client.logger.SharePoint("Group member removed", "group_name", name, "user_id", userID)
	return nil
}

func (g *GroupClient) GetUser(ctx context.Context, userID int) (*npp.User, error) {
	endpoint := g.client.endpoint("web/getuserbyid(%d)?$select=%s", userID, userSelect)
	data, err := g.client.get(ctx, "get user", endpoint)
	if err != nil {
		return nil, err
	}
	return decodeUser(data)
}

// EnsureUser resolves an email to a site user, adding the user to the site if needed.
func (g *GroupClient) EnsureUser(ctx context.Context, email string) (*npp.User, error) {
	body, _ := json.Marshal(map[string]string{"logonName": email})
	data, err := g.client.post(ctx, "ensure user", g.client.endpoint("web/ensureuser"), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	return decodeUser(data)
}

func decodeUser(data []byte) (*npp.User, error) {
	var u userJSON
	if err := json.Unmarshal(entity(data), &u); err != nil {
		return nil, fmt.Errorf("decode user: %w", err)
	}
	user := u.toDomain()
	return &user, nil
}
