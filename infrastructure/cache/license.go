package cache

import (
	"context"
	"time"

	"nppflow/domain/contracts"

	gocache "github.com/patrickmn/go-cache"
)

// LicenseCache keeps license lookups for a TTL. Seat calls pass straight through.
type LicenseCache struct {
	contracts.LicensingGateway
	licenses *gocache.Cache
}

// NewLicenseCache wraps a licensing gateway.
func NewLicenseCache(gateway contracts.LicensingGateway, ttl time.Duration) *LicenseCache {
	return &LicenseCache{LicensingGateway: gateway, licenses: gocache.New(ttl, 2*ttl)}
}

func licenseKey(q contracts.LicenseQuery) string {
	return q.ApplicationID + "|" + q.Host
}

func (c *LicenseCache) GetLicense(ctx context.Context, query contracts.LicenseQuery) (*contracts.License, error) {
	key := licenseKey(query)
	if v, ok := c.licenses.Get(key); ok {
		return v.(*contracts.License), nil
	}
	license, err := c.LicensingGateway.GetLicense(ctx, query)
	if err != nil {
		return nil, err
	}
	c.licenses.SetDefault(key, license)
	return license, nil
}

// Forget drops every cached license.
func (c *LicenseCache) Forget() {
	c.licenses.Flush()
}
