package contracts

import (
	"context"
	"strings"
	"time"

	"nppflow/domain/npp"
)

// License is the tenant's subscription record.
type License struct {
	ID            string    `json:"id"`
	TenantID      string    `json:"tenantId"`
	SharePointURL string    `json:"sharePointUrl"`
	Status        string    `json:"status"`
	Seats         int       `json:"seats"`
	UsedSeats     int       `json:"usedSeats"`
	ExpiresOn     time.Time `json:"expiresOn"`
}

// LicenseStatusActive is the only status that grants access.
const LicenseStatusActive = "active"

// Valid reports whether the license grants access at now.
func (l *License) Valid(now time.Time) bool {
	return l != nil && strings.EqualFold(l.Status, LicenseStatusActive) && now.Before(l.ExpiresOn)
}

// LicenseQuery identifies a tenant by application id or host name.
type LicenseQuery struct {
	ApplicationID string `json:"appId,omitempty"`
	Host          string `json:"host,omitempty"`
}

// Seat is one allocated licensing seat.
type Seat struct {
	EmailHash   string    `json:"emailHash"`
	AllocatedOn time.Time `json:"allocatedOn"`
}

// LicensingGateway talks to the licensing API.
type LicensingGateway interface {
	GetLicense(ctx context.Context, query LicenseQuery) (*License, error)
	// AllocateSeat returns ErrNoSeatsAvailable when the tenant is out of seats.
	AllocateSeat(ctx context.Context, email string) error
	ReleaseSeat(ctx context.Context, email string) error
	UserSeats(ctx context.Context, email string) ([]Seat, error)
}

// CachedUser is a resolved site user stored for a tenant.
type CachedUser struct {
	SiteURL   string
	Email     string
	User      npp.User
	UpdatedAt time.Time
}

// UserCacheRepository stores resolved current users keyed by tenant SharePoint URL.
type UserCacheRepository interface {
	// GetCachedUser returns ErrNotFound when nothing is cached.
	GetCachedUser(ctx context.Context, siteURL, email string) (*CachedUser, error)
	PutCachedUser(ctx context.Context, user *CachedUser) error
	DeleteCachedUser(ctx context.Context, siteURL, email string) error
}
