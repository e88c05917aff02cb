package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"nppflow/domain/contracts"
	"nppflow/domain/jobs"
	"nppflow/domain/npp"
	"nppflow/domain/permissions"
	"nppflow/logging"
)

// Report filter target for entity row-level visibility.
const (
	FilterTable       = "Folders_Levels"
	FilterColumn      = "Entity_ID"
	basicFilterSchema = "http://powerbi.com/product/schema#basic"
)

// MemberDirectory answers group membership questions about site users.
type MemberDirectory interface {
	GroupMembers(ctx context.Context, groupName string) ([]npp.User, error)
	IsMember(ctx context.Context, groupName string, userID int) (bool, error)
}

// FilterTarget names the table column a report filter applies to.
type FilterTarget struct {
	Table  string `json:"table"`
	Column string `json:"column"`
}

// BasicFilter is a Power BI basic "In" filter.
type BasicFilter struct {
	Schema     string       `json:"$schema"`
	Target     FilterTarget `json:"target"`
	Operator   string       `json:"operator"`
	Values     []int        `json:"values"`
	FilterType int          `json:"filterType"`
}

// EmbedConfig is everything a client needs to embed one report.
type EmbedConfig struct {
	Report  contracts.Report     `json:"report"`
	Token   contracts.EmbedToken `json:"token"`
	Filters []BasicFilter        `json:"filters"`
}

// EntityFilter restricts a report to the given entities.
func EntityFilter(entityIDs []int) BasicFilter {
	values := entityIDs
	if values == nil {
		values = []int{}
	}
	return BasicFilter{
		Schema:     basicFilterSchema,
		Target:     FilterTarget{Table: FilterTable, Column: FilterColumn},
		Operator:   "In",
		Values:     values,
		FilterType: 1,
	}
}

// RLSEntitySync is the outcome of mirroring one entity's users into its RLS group.
type RLSEntitySync struct {
	EntityID int      `json:"entityId"`
	GroupID  string   `json:"groupId,omitempty"`
	Added    int      `json:"added"`
	Removed  int      `json:"removed"`
	Created  bool     `json:"created,omitempty"`
	Skipped  []string `json:"skipped,omitempty"`
	Error    string   `json:"error,omitempty"`
}

// RLSSyncResult summarises an RLS sync run.
type RLSSyncResult struct {
	Entities []RLSEntitySync `json:"entities"`
}

// AnalyticsService serves Power BI reports filtered to the caller's entities and
// keeps the Azure AD groups behind row-level security in line with OU groups.
type AnalyticsService struct {
	analytics contracts.AnalyticsGateway
	directory contracts.DirectoryGateway
	entities  contracts.EntityRepository
	members   MemberDirectory
	logger    *logging.Logger
}

// NewAnalyticsService creates a new analytics service.
func NewAnalyticsService(
	analytics contracts.AnalyticsGateway,
	directory contracts.DirectoryGateway,
	entities contracts.EntityRepository,
	members MemberDirectory,
) *AnalyticsService {
	return &AnalyticsService{
		analytics: analytics,
		directory: directory,
		entities:  entities,
		members:   members,
		logger:    logging.Default().WithComponent("analytics_service"),
	}
}

// Reports lists the workspace reports.
func (s *AnalyticsService) Reports(ctx context.Context) ([]contracts.Report, error) {
	return s.analytics.Reports(ctx)
}

// Pages lists a report's pages.
func (s *AnalyticsService) Pages(ctx context.Context, reportID string) ([]contracts.ReportPage, error) {
	return s.analytics.ReportPages(ctx, reportID)
}

// VisibleEntities returns the ids of entities whose OU group includes user.
func (s *AnalyticsService) VisibleEntities(ctx context.Context, user npp.User) ([]int, error) {
	entities, err := s.entities.ListEntities(ctx, "").Unwrap()
	if err != nil {
		return nil, fmt.Errorf("list entities: %w", err)
	}
	var ids []int
	for _, e := range entities {
		ok, err := s.members.IsMember(ctx, permissions.EntityUsers(e.ID).Name(), user.ID)
		if err != nil {
			return nil, err
		}
		if ok {
			ids = append(ids, e.ID)
		}
	}
	return ids, nil
}

// EmbedConfig issues a view token for a report filtered to the caller's entities.
func (s *AnalyticsService) EmbedConfig(ctx context.Context, reportID string, user npp.User) (*EmbedConfig, error) {
	report, err := s.analytics.Report(ctx, reportID)
	if err != nil {
		return nil, fmt.Errorf("get report %s: %w", reportID, err)
	}
	visible, err := s.VisibleEntities(ctx, user)
	if err != nil {
		return nil, err
	}
	token, err := s.analytics.GenerateEmbedToken(ctx, report.ID, report.DatasetID)
	if err != nil {
		return nil, fmt.Errorf("embed token for %s: %w", reportID, err)
	}
	return &EmbedConfig{
		Report:  *report,
		Token:   *token,
		Filters: []BasicFilter{EntityFilter(visible)},
	}, nil
}

// UserPhoto proxies a directory profile photo.
func (s *AnalyticsService) UserPhoto(ctx context.Context, email string) ([]byte, string, error) {
	return s.directory.UserPhoto(ctx, email)
}

// SyncRLS mirrors each entity's OU members into the RLS-{e} security group.
// Entities are independent: a failure is recorded and the next entity runs.
func (s *AnalyticsService) SyncRLS(ctx context.Context, in jobs.RLSSyncJobContext, progress ProgressReporter) (*RLSSyncResult, error) {
	ids := in.EntityIDs
	if len(ids) == 0 {
		entities, err := s.entities.ListEntities(ctx, npp.EntityStatusActive).Unwrap()
		if err != nil {
			return nil, fmt.Errorf("list active entities: %w", err)
		}
		for _, e := range entities {
			ids = append(ids, e.ID)
		}
	}

	result := &RLSSyncResult{}
	for i, id := range ids {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		progress.ReportItemProgress("syncing", fmt.Sprintf("Syncing %s", permissions.RLSGroupName(id)), 100*i/len(ids), i, len(ids))
		outcome := s.syncEntity(ctx, id)
		if outcome.Error != "" {
			s.logger.Warn("RLS sync failed for entity", "entity_id", id, "error", outcome.Error)
		}
		result.Entities = append(result.Entities, outcome)
	}
	progress.ReportItemProgress("syncing", "RLS sync finished", 100, len(ids), len(ids))
	return result, nil
}

func (s *AnalyticsService) syncEntity(ctx context.Context, entityID int) RLSEntitySync {
	out := RLSEntitySync{EntityID: entityID}
	fail := func(err error) RLSEntitySync {
		out.Error = err.Error()
		return out
	}

	users, err := s.members.GroupMembers(ctx, permissions.EntityUsers(entityID).Name())
	if err != nil {
		return fail(err)
	}
	desired := make([]string, 0, len(users))
	for _, u := range users {
		if email := u.NormalizedEmail(); email != "" {
			desired = append(desired, email)
		}
	}

	name := permissions.RLSGroupName(entityID)
	groupID, found, err := s.directory.FindGroup(ctx, name)
	if err != nil {
		return fail(fmt.Errorf("find %s: %w", name, err))
	}
	if !found {
		groupID, err = s.directory.CreateSecurityGroup(ctx, name, fmt.Sprintf("Report access for entity %d", entityID))
		if err != nil {
			return fail(fmt.Errorf("create %s: %w", name, err))
		}
		out.Created = true
	}
	out.GroupID = groupID

	current, err := s.directory.GroupMembers(ctx, groupID)
	if err != nil {
		return fail(fmt.Errorf("members of %s: %w", name, err))
	}
	byEmail := make(map[string]string, len(current))
	emails := make([]string, 0, len(current))
	for _, m := range current {
		email := directoryEmail(m)
		byEmail[email] = m.ID
		emails = append(emails, email)
	}

	diff := permissions.Diff(emails, desired)
	for _, email := range diff.ToAdd {
		user, err := s.directory.FindUser(ctx, email)
		if errors.Is(err, contracts.ErrNotFound) {
			// Guests without a directory account cannot join security groups.
			out.Skipped = append(out.Skipped, email)
			continue
		}
		if err != nil {
			return fail(fmt.Errorf("find user %s: %w", email, err))
		}
		if err := s.directory.AddGroupMember(ctx, groupID, user.ID); err != nil {
			return fail(fmt.Errorf("add %s to %s: %w", email, name, err))
		}
		out.Added++
	}
	for _, email := range diff.ToRemove {
		if err := s.directory.RemoveGroupMember(ctx, groupID, byEmail[email]); err != nil {
			return fail(fmt.Errorf("remove %s from %s: %w", email, name, err))
		}
		out.Removed++
	}
	return out
}

func directoryEmail(u contracts.DirectoryUser) string {
	if u.Mail != "" {
		return strings.ToLower(u.Mail)
	}
	return strings.ToLower(u.UserPrincipalName)
}
