package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"nppflow/domain/contracts"
	"nppflow/infrastructure/cache"
	"nppflow/test/mocks"
)

const testSiteURL = "https://contoso.sharepoint.com/sites/npp"

var identityNow = time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)

func newIdentityFixture(maxAge time.Duration) (*IdentityService, *mocks.MockGroupGateway, *mocks.MockUserCacheRepository) {
	groups := &mocks.MockGroupGateway{}
	users := &mocks.MockUserCacheRepository{}
	service := NewIdentityService(groups, users, testSiteURL+"/", maxAge)
	service.now = func() time.Time { return identityNow }
	return service, groups, users
}

func TestIdentityService_CurrentUser(t *testing.T) {
	tests := []struct {
		name        string
		cached      *contracts.CachedUser
		cacheErr    error
		wantEnsured bool
	}{
		{
			name:   "fresh_cache_hit",
			cached: &contracts.CachedUser{SiteURL: testSiteURL, Email: ana.Email, User: ana, UpdatedAt: identityNow.Add(-time.Hour)},
		},
		{
			name:        "stale_cache_entry",
			cached:      &contracts.CachedUser{SiteURL: testSiteURL, Email: ana.Email, User: ana, UpdatedAt: identityNow.Add(-48 * time.Hour)},
			wantEnsured: true,
		},
		{
			name:        "not_cached",
			cacheErr:    contracts.ErrNotFound,
			wantEnsured: true,
		},
		{
			name:        "cache_unreadable",
			cacheErr:    errors.New("database is locked"),
			wantEnsured: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, groups, users := newIdentityFixture(24 * time.Hour)
			users.On("GetCachedUser", mock.Anything, testSiteURL, "ana@contoso.com").Return(tt.cached, tt.cacheErr)
			if tt.wantEnsured {
				groups.On("EnsureUser", mock.Anything, "ana@contoso.com").Return(&ana, nil)
				users.On("PutCachedUser", mock.Anything, mock.MatchedBy(func(u *contracts.CachedUser) bool {
					return u.SiteURL == testSiteURL && u.User.ID == ana.ID && u.UpdatedAt.Equal(identityNow)
				})).Return(nil)
			}

			user, err := service.CurrentUser(context.Background(), "  Ana@Contoso.com ")

			require.NoError(t, err)
			assert.Equal(t, ana, *user)
			if !tt.wantEnsured {
				groups.AssertNotCalled(t, "EnsureUser", mock.Anything, mock.Anything)
			}
			users.AssertExpectations(t)
		})
	}
}

func TestIdentityService_CurrentUser_EmptyEmailUnauthorized(t *testing.T) {
	service, _, _ := newIdentityFixture(0)

	_, err := service.CurrentUser(context.Background(), " ")

	assert.ErrorIs(t, err, contracts.ErrUnauthorized)
}

func TestLicenseService_License(t *testing.T) {
	query := contracts.LicenseQuery{Host: "contoso.sharepoint.com"}
	tests := []struct {
		name    string
		license *contracts.License
		wantErr bool
	}{
		{"active", &contracts.License{ID: "l1", Status: "Active", SharePointURL: "https://contoso.sharepoint.com/", ExpiresOn: identityNow.AddDate(0, 1, 0)}, false},
		{"expired", &contracts.License{ID: "l1", Status: "active", ExpiresOn: identityNow.Add(-time.Minute)}, true},
		{"suspended", &contracts.License{ID: "l1", Status: "suspended", ExpiresOn: identityNow.AddDate(1, 0, 0)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gateway := &mocks.MockLicensingGateway{}
			gateway.On("GetLicense", mock.Anything, query).Return(tt.license, nil).Once()
			service := NewLicenseService(cache.NewLicenseCache(gateway, time.Minute), query)
			service.now = func() time.Time { return identityNow }

			_, err := service.License(context.Background())
			_, again := service.License(context.Background())

			if tt.wantErr {
				assert.ErrorIs(t, err, contracts.ErrLicenseInvalid)
				assert.ErrorIs(t, again, contracts.ErrLicenseInvalid)
				return
			}
			require.NoError(t, err)
			url, err := service.SharePointURL(context.Background())
			require.NoError(t, err)
			assert.Equal(t, "https://contoso.sharepoint.com", url)
			gateway.AssertNumberOfCalls(t, "GetLicense", 1)
		})
	}
}
