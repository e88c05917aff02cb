package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"nppflow/domain/contracts"
	"nppflow/domain/npp"
	"nppflow/logging"
)

// IdentityService resolves signed-in callers to SharePoint site users.
type IdentityService struct {
	groups  contracts.GroupGateway
	users   contracts.UserCacheRepository
	siteURL string
	maxAge  time.Duration
	now     func() time.Time
	logger  *logging.Logger
}

// NewIdentityService creates a new identity service. Cached profiles older than
// maxAge are resolved again; zero keeps them until Forget.
func NewIdentityService(groups contracts.GroupGateway, users contracts.UserCacheRepository, siteURL string, maxAge time.Duration) *IdentityService {
	return &IdentityService{
		groups:  groups,
		users:   users,
		siteURL: strings.TrimRight(siteURL, "/"),
		maxAge:  maxAge,
		now:     time.Now,
		logger:  logging.Default().WithComponent("identity_service"),
	}
}

// CurrentUser returns the site user for email, ensuring it on the site on first sight.
func (s *IdentityService) CurrentUser(ctx context.Context, email string) (*npp.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, contracts.ErrUnauthorized
	}

	cached, err := s.users.GetCachedUser(ctx, s.siteURL, email)
	switch {
	case err == nil && (s.maxAge == 0 || s.now().Sub(cached.UpdatedAt) < s.maxAge):
		user := cached.User
		return &user, nil
	case err != nil && !errors.Is(err, contracts.ErrNotFound):
		// The cache is an optimisation; resolve remotely instead.
		s.logger.Database("User cache read failed", "email", email, "error", err)
	}

	user, err := s.groups.EnsureUser(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("resolve site user %s: %w", email, err)
	}
	entry := &contracts.CachedUser{SiteURL: s.siteURL, Email: email, User: *user, UpdatedAt: s.now()}
	if err := s.users.PutCachedUser(ctx, entry); err != nil {
		s.logger.Database("User cache write failed", "email", email, "error", err)
	}
	s.logger.Security("Resolved site user", "email", email, "user_id", user.ID)
	return user, nil
}

// Forget drops the cached profile so the next lookup resolves it again.
func (s *IdentityService) Forget(ctx context.Context, email string) error {
	return s.users.DeleteCachedUser(ctx, s.siteURL, strings.ToLower(strings.TrimSpace(email)))
}

// LicenseSource is a licensing gateway whose license reads are cached.
type LicenseSource interface {
	contracts.LicensingGateway
	Forget()
}

// LicenseService checks the tenant subscription.
type LicenseService struct {
	licenses LicenseSource
	query    contracts.LicenseQuery
	now      func() time.Time
	logger   *logging.Logger
}

// NewLicenseService creates a license service for the tenant identified by query.
func NewLicenseService(licenses LicenseSource, query contracts.LicenseQuery) *LicenseService {
	return &LicenseService{
		licenses: licenses,
		query:    query,
		now:      time.Now,
		logger:   logging.Default().WithComponent("license_service"),
	}
}

// License returns the tenant license when it is valid now.
func (s *LicenseService) License(ctx context.Context) (*contracts.License, error) {
	license, err := s.licenses.GetLicense(ctx, s.query)
	if err != nil {
		return nil, fmt.Errorf("get license: %w", err)
	}
	if !license.Valid(s.now()) {
		s.logger.Licensing("License not valid", "status", license.Status, "expires_on", license.ExpiresOn)
		return nil, fmt.Errorf("%w: status %s, expires %s", contracts.ErrLicenseInvalid, license.Status, license.ExpiresOn.Format(time.DateOnly))
	}
	return license, nil
}

// SharePointURL resolves the tenant SharePoint base URL from the license.
func (s *LicenseService) SharePointURL(ctx context.Context) (string, error) {
	license, err := s.License(ctx)
	if err != nil {
		return "", err
	}
	if license.SharePointURL == "" {
		return "", fmt.Errorf("%w: no SharePoint URL on license %s", contracts.ErrLicenseInvalid, license.ID)
	}
	return strings.TrimRight(license.SharePointURL, "/"), nil
}

// UserSeats lists the seats held by email.
func (s *LicenseService) UserSeats(ctx context.Context, email string) ([]contracts.Seat, error) {
	return s.licenses.UserSeats(ctx, email)
}

// Refresh forgets cached licenses and reads the current one.
func (s *LicenseService) Refresh(ctx context.Context) (*contracts.License, error) {
	s.licenses.Forget()
	return s.License(ctx)
}
