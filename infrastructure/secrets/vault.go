package secrets

import (
	"context"
	"fmt"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azsecrets"
	"github.com/patrickmn/go-cache"

	"nppflow/logging"
)

// Secret names looked up in Key Vault.
const (
	SecretLicensingKey     = "licensing-api-key"
	SecretCertPassword     = "sp-cert-password"
	SecretGraphSecret      = "graph-client-secret"
	SecretMirrorConnection = "mirror-connection-string"
)

// secretGetter is the slice of azsecrets.Client used here.
type secretGetter interface {
	GetSecret(ctx context.Context, name string, version string, options *azsecrets.GetSecretOptions) (azsecrets.GetSecretResponse, error)
}

// VaultClient reads secrets from Azure Key Vault with an in-memory TTL cache.
type VaultClient struct {
	client secretGetter
	cache  *cache.Cache
	logger *logging.Logger
}

// NewVaultClient connects to the vault at vaultURL.
func NewVaultClient(vaultURL string, cred azcore.TokenCredential, ttl time.Duration) (*VaultClient, error) {
	client, err := azsecrets.NewClient(vaultURL, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Key Vault client: %w", err)
	}
	return newVaultClient(client, ttl), nil
}

func newVaultClient(client secretGetter, ttl time.Duration) *VaultClient {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &VaultClient{
		client: client,
		cache:  cache.New(ttl, 2*ttl),
		logger: logging.Default().WithComponent("key_vault"),
	}
}

// GetSecret returns the latest version of a secret.
func (v *VaultClient) GetSecret(ctx context.Context, name string) (string, error) {
	if cached, ok := v.cache.Get(name); ok {
		return cached.(string), nil
	}

	resp, err := v.client.GetSecret(ctx, name, "", nil)
	if err != nil {
		return "", fmt.Errorf("failed to get secret '%s': %w", name, err)
	}
	if resp.Value == nil {
		return "", fmt.Errorf("secret '%s' has no value", name)
	}

	v.cache.SetDefault(name, *resp.Value)
	v.logger.Security("Secret loaded from Key Vault", "secret_name", name)
	return *resp.Value, nil
}

// Fill sets *dst from the vault when it is empty. Lookup failures are logged and leave dst unchanged.
func (v *VaultClient) Fill(ctx context.Context, dst *string, name string) {
	if dst == nil || *dst != "" {
		return
	}
	value, err := v.GetSecret(ctx, name)
	if err != nil {
		v.logger.Warn("Secret not available, keeping configured value", "secret_name", name, "error", err)
		return
	}
	*dst = value
}
