package spauth

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/koltyakov/gosip"
	"github.com/koltyakov/gosip/auth/azurecert"
)

type Config struct {
	SiteURL      string
	TenantID     string
	ClientID     string
	CertPath     string
	CertPassword string
}

func FromEnv() (Config, error) {
	// Environment should already be loaded by main.go
	cfg := Config{
		SiteURL:      os.Getenv("SP_SITE_URL"),
		TenantID:     os.Getenv("SP_TENANT_ID"),
		ClientID:     os.Getenv("SP_CLIENT_ID"),
		CertPath:     os.Getenv("SP_CERT_PATH"),
		CertPassword: os.Getenv("SP_CERT_PASSWORD"),
	}

	if cfg.SiteURL == "" || cfg.TenantID == "" || cfg.ClientID == "" || cfg.CertPath == "" {
		return cfg, fmt.Errorf("missing required configuration: SP_SITE_URL, SP_TENANT_ID, SP_CLIENT_ID, SP_CERT_PATH")
	}
	return cfg, nil
}

// WithSiteURL returns a copy bound to another site of the same tenant.
func (c Config) WithSiteURL(siteURL string) Config {
	c.SiteURL = siteURL
	return c
}

// UnauthorizedFunc is called for every SharePoint response with status 401.
type UnauthorizedFunc func(ctx context.Context, endpoint string)

func NewClient(cfg Config) (*gosip.SPClient, error) {
	return NewClientWithHook(cfg, nil)
}

// NewClientWithHook builds a certificate-authenticated client that reports 401 responses to onUnauthorized.
func NewClientWithHook(cfg Config, onUnauthorized UnauthorizedFunc) (*gosip.SPClient, error) {
	if cfg.SiteURL == "" {
		return nil, fmt.Errorf("site url is required")
	}
	ac := &azurecert.AuthCnfg{
		SiteURL:  cfg.SiteURL,
		TenantID: cfg.TenantID,
		ClientID: cfg.ClientID,
		CertPath: cfg.CertPath,
		CertPass: cfg.CertPassword,
	}
	client := &gosip.SPClient{AuthCnfg: ac}

	if onUnauthorized != nil {
		client.Hooks = &gosip.HookHandlers{
			OnResponse: func(e *gosip.HookEvent) {
				if e.StatusCode != http.StatusUnauthorized || e.Request == nil {
					return
				}
				onUnauthorized(e.Request.Context(), e.Request.URL.String())
			},
		}
	}
	return client, nil
}
