package contracts

import (
	"context"
	"time"
)

// DirectoryUser is an Azure AD user.
type DirectoryUser struct {
	ID                string
	Mail              string
	UserPrincipalName string
}

// DirectoryGateway manages Azure AD security groups used for row-level security.
type DirectoryGateway interface {
	FindGroup(ctx context.Context, displayName string) (groupID string, found bool, err error)
	CreateSecurityGroup(ctx context.Context, displayName, description string) (string, error)
	GroupMembers(ctx context.Context, groupID string) ([]DirectoryUser, error)
	FindUser(ctx context.Context, email string) (*DirectoryUser, error)
	AddGroupMember(ctx context.Context, groupID, userID string) error
	RemoveGroupMember(ctx context.Context, groupID, userID string) error
	UserPhoto(ctx context.Context, email string) ([]byte, string, error)
}

// Report is a Power BI report.
type Report struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	EmbedURL  string `json:"embedUrl"`
	DatasetID string `json:"datasetId"`
	WebURL    string `json:"webUrl"`
}

// ReportPage is a page of a Power BI report.
type ReportPage struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
	Order       int    `json:"order"`
}

// EmbedToken is a view token for embedding a report.
type EmbedToken struct {
	Token      string    `json:"token"`
	TokenID    string    `json:"tokenId"`
	Expiration time.Time `json:"expiration"`
}

// AnalyticsGateway talks to the Power BI REST API.
type AnalyticsGateway interface {
	Reports(ctx context.Context) ([]Report, error)
	Report(ctx context.Context, reportID string) (*Report, error)
	ReportPages(ctx context.Context, reportID string) ([]ReportPage, error)
	GenerateEmbedToken(ctx context.Context, reportID, datasetID string) (*EmbedToken, error)
}
