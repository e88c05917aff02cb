package spauth

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
)

// Token scopes for the app-only APIs besides SharePoint.
const (
	GraphScope   = "https://graph.microsoft.com/.default"
	PowerBIScope = "https://analysis.windows.net/powerbi/api/.default"
)

// TokenSource issues bearer tokens for a scope.
type TokenSource interface {
	Token(ctx context.Context, scope string) (string, error)
}

// AzureTokenSource wraps an azidentity credential.
type AzureTokenSource struct {
	cred azcore.TokenCredential
}

// NewAzureTokenSource uses client-secret credentials when a secret is given,
// and the default Azure credential chain otherwise.
func NewAzureTokenSource(tenantID, clientID, clientSecret string) (*AzureTokenSource, error) {
	var (
		cred azcore.TokenCredential
		err  error
	)
	if clientSecret != "" {
		cred, err = azidentity.NewClientSecretCredential(tenantID, clientID, clientSecret, nil)
	} else {
		cred, err = azidentity.NewDefaultAzureCredential(nil)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure credential: %w", err)
	}
	return &AzureTokenSource{cred: cred}, nil
}

// Credential exposes the underlying credential for Azure SDK clients.
func (s *AzureTokenSource) Credential() azcore.TokenCredential {
	return s.cred
}

func (s *AzureTokenSource) Token(ctx context.Context, scope string) (string, error) {
	tok, err := s.cred.GetToken(ctx, policy.TokenRequestOptions{Scopes: []string{scope}})
	if err != nil {
		return "", fmt.Errorf("get token for %s: %w", scope, err)
	}
	return tok.Token, nil
}

// StaticTokenSource always returns the same token.
type StaticTokenSource string

func (s StaticTokenSource) Token(context.Context, string) (string, error) {
	return string(s), nil
}
