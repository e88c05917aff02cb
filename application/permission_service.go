package application

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"nppflow/domain/contracts"
	"nppflow/domain/events"
	"nppflow/domain/npp"
	"nppflow/domain/permissions"
	"nppflow/logging"
)

// MembershipCache remembers group member ids between requests.
type MembershipCache interface {
	Members(group string) ([]int, bool)
	Set(group string, ids []int)
	Added(group string, id int)
	Removed(group string, id int)
	Forget(group string)
}

// SyncReport describes what a membership sync changed. On a partial failure it
// lists only the operations that succeeded before the failure.
type SyncReport struct {
	GroupName  string `json:"groupName"`
	Added      []int  `json:"added"`
	Removed    []int  `json:"removed"`
	SeatDenied []int  `json:"seatDenied"`
	Partial    bool   `json:"partial"`
	Error      string `json:"error,omitempty"`
}

func (r *SyncReport) fail(err error) (*SyncReport, error) {
	r.Partial = true
	r.Error = err.Error()
	return r, err
}

// PermissionService manages the permission groups of entities and the license
// seats their members consume.
type PermissionService struct {
	groups     contracts.GroupGateway
	docs       contracts.DocumentGateway
	licensing  contracts.LicensingGateway
	membership MembershipCache
	events     events.WorkflowEventPublisher
	logger     *logging.Logger
}

// NewPermissionService creates a new permission service.
func NewPermissionService(
	groups contracts.GroupGateway,
	docs contracts.DocumentGateway,
	licensing contracts.LicensingGateway,
	membership MembershipCache,
	publisher events.WorkflowEventPublisher,
) *PermissionService {
	return &PermissionService{
		groups:     groups,
		docs:       docs,
		licensing:  licensing,
		membership: membership,
		events:     publisher,
		logger:     logging.Default().WithComponent("permission_service"),
	}
}

// GroupMembers reads the current members of a group and refreshes the cache.
func (s *PermissionService) GroupMembers(ctx context.Context, groupName string) ([]npp.User, error) {
	res := s.groups.GroupMembers(ctx, groupName)
	if res.Failed() {
		return nil, fmt.Errorf("read members of %s: %w", groupName, res.Err())
	}
	users := res.Items()
	s.membership.Set(groupName, userIDs(users))
	return users, nil
}

// IsMember reports whether userID belongs to the group, preferring cached membership.
func (s *PermissionService) IsMember(ctx context.Context, groupName string, userID int) (bool, error) {
	if ids, ok := s.membership.Members(groupName); ok {
		return slices.Contains(ids, userID), nil
	}
	users, err := s.GroupMembers(ctx, groupName)
	if err != nil {
		return false, err
	}
	return slices.Contains(userIDs(users), userID), nil
}

// AuthorizeOwner allows user to administer the entity only when they belong to
// its OO group.
func (s *PermissionService) AuthorizeOwner(ctx context.Context, entityID int, user npp.User) error {
	group := permissions.EntityOwners(entityID).Name()
	ok, err := s.IsMember(ctx, group, user.ID)
	if err != nil {
		return fmt.Errorf("check %s: %w", group, err)
	}
	if !ok {
		s.logger.Security("Entity administration refused", "entity_id", entityID, "user_id", user.ID)
		return fmt.Errorf("%w: user %d is not in %s", contracts.ErrForbidden, user.ID, group)
	}
	return nil
}

// SyncGroupMembers makes the group's members equal desired. Adds run before
// removals, both in ascending user id order, and the first gateway error stops
// the sync.
func (s *PermissionService) SyncGroupMembers(ctx context.Context, entityID int, groupName string, desired []int) (*SyncReport, error) {
	return s.sync(ctx, entityID, groupName, func(current []int) permissions.MembershipDiff[int] {
		return permissions.Diff(current, desired)
	})
}

// AddMembers adds users to the group without removing anyone.
func (s *PermissionService) AddMembers(ctx context.Context, entityID int, groupName string, userIDs ...int) (*SyncReport, error) {
	return s.sync(ctx, entityID, groupName, func(current []int) permissions.MembershipDiff[int] {
		return permissions.MembershipDiff[int]{ToAdd: permissions.Diff(current, append(slices.Clone(current), userIDs...)).ToAdd}
	})
}

// CopyMembers adds every member of from to to.
func (s *PermissionService) CopyMembers(ctx context.Context, entityID int, from, to string) (*SyncReport, error) {
	users, err := s.GroupMembers(ctx, from)
	if err != nil {
		return &SyncReport{GroupName: to}, err
	}
	return s.AddMembers(ctx, entityID, to, userIDs(users)...)
}

// seatHolders maps every member of the entity's groups, except target, to the
// groups it belongs to.
func (s *PermissionService) seatHolders(ctx context.Context, entityID int, target string) (map[int][]string, error) {
	res := s.groups.ListGroups(ctx)
	if res.Failed() {
		return nil, fmt.Errorf("list groups: %w", res.Err())
	}

	holders := make(map[int][]string)
	for _, g := range res.Items() {
		if g.Title == target || !permissions.BelongsTo(g.Title, entityID) {
			continue
		}
		ids, ok := s.membership.Members(g.Title)
		if !ok {
			users, err := s.GroupMembers(ctx, g.Title)
			if err != nil {
				return nil, err
			}
			ids = userIDs(users)
		}
		for _, id := range ids {
			holders[id] = append(holders[id], g.Title)
		}
	}
	return holders, nil
}

func (s *PermissionService) sync(ctx context.Context, entityID int, groupName string, plan func(current []int) permissions.MembershipDiff[int]) (*SyncReport, error) {
	report := &SyncReport{GroupName: groupName}

	ref, err := permissions.ParseGroupName(groupName)
	if err != nil {
		return report, err
	}
	if ref.EntityID != entityID {
		return report, fmt.Errorf("%w: %s is not a group of entity %d", permissions.ErrInvalidGroupName, groupName, entityID)
	}

	// A failed read must not be diffed as an empty group.
	members, err := s.GroupMembers(ctx, groupName)
	if err != nil {
		return report, err
	}
	known := make(map[int]npp.User, len(members))
	for _, u := range members {
		known[u.ID] = u
	}

	diff := plan(userIDs(members))
	if diff.Empty() {
		return report, nil
	}

	holders, err := s.seatHolders(ctx, entityID, groupName)
	if err != nil {
		return report, err
	}

	start := time.Now()
	for _, id := range diff.ToAdd {
		user, err := s.groups.GetUser(ctx, id)
		if err != nil {
			return report.fail(fmt.Errorf("resolve user %d: %w", id, err))
		}

		allocated := false
		if len(holders[id]) == 0 {
			err := s.licensing.AllocateSeat(ctx, user.Email)
			if errors.Is(err, contracts.ErrNoSeatsAvailable) {
				s.logger.Licensing("Seat denied", "group", groupName, "user_id", id)
				report.SeatDenied = append(report.SeatDenied, id)
				s.events.PublishSeatDenied(events.SeatDeniedEvent{
					EntityID:  entityID,
					GroupName: groupName,
					UserID:    id,
					Email:     user.Email,
					Timestamp: time.Now(),
				})
				continue
			}
			if err != nil {
				return report.fail(fmt.Errorf("allocate seat for user %d: %w", id, err))
			}
			allocated = true
		}

		if err := s.groups.AddGroupMember(ctx, groupName, *user); err != nil {
			if allocated {
				if relErr := s.licensing.ReleaseSeat(ctx, user.Email); relErr != nil {
					s.logger.Error("Failed to release seat after add failure", "group", groupName, "user_id", id, "error", relErr)
				}
			}
			return report.fail(fmt.Errorf("add user %d to %s: %w", id, groupName, err))
		}
		report.Added = append(report.Added, id)
		s.membership.Added(groupName, id)
	}

	for _, id := range diff.ToRemove {
		if err := s.groups.RemoveGroupMember(ctx, groupName, id); err != nil {
			return report.fail(fmt.Errorf("remove user %d from %s: %w", id, groupName, err))
		}
		report.Removed = append(report.Removed, id)
		s.membership.Removed(groupName, id)

		if len(holders[id]) > 0 {
			continue
		}
		if err := s.licensing.ReleaseSeat(ctx, known[id].Email); err != nil {
			return report.fail(fmt.Errorf("release seat for user %d: %w", id, err))
		}
	}

	s.logger.Workflow("Group members synced", entityID,
		"group", groupName,
		"added", len(report.Added),
		"removed", len(report.Removed),
		"seat_denied", len(report.SeatDenied),
		"duration", time.Since(start))
	return report, nil
}

// EnsureEntityGroups creates the groups the layout refers to and replaces the
// inherited permissions of each folder with the layout's grants. Folders must exist.
func (s *PermissionService) EnsureEntityGroups(ctx context.Context, entityID int, layout []permissions.FolderAccess) (map[string]npp.Group, error) {
	groups := make(map[string]npp.Group)
	for _, ref := range permissions.LayoutGroups(entityID, layout) {
		g, err := s.groups.EnsureGroup(ctx, ref.Name(), permissions.Describe(ref))
		if err != nil {
			return groups, fmt.Errorf("ensure group %s: %w", ref.Name(), err)
		}
		groups[ref.Name()] = *g
	}

	site := s.docs.SiteRelativeURL()
	for _, f := range layout {
		grants := make([]contracts.FolderGrant, 0, len(f.Grants))
		for _, g := range f.Grants {
			grants = append(grants, contracts.FolderGrant{GroupID: groups[g.Group.Name()].ID, Role: g.Role})
		}
		folderURL := f.Folder.ServerRelative(site)
		if err := s.docs.GrantFolderAccess(ctx, folderURL, grants); err != nil {
			return groups, fmt.Errorf("grant access on %s: %w", folderURL, err)
		}
	}

	s.logger.Workflow("Entity groups ensured", entityID, "groups", len(groups), "folders", len(layout))
	return groups, nil
}

func userIDs(users []npp.User) []int {
	ids := make([]int, len(users))
	for i, u := range users {
		ids[i] = u.ID
	}
	return ids
}
