// Package auth authenticates API callers with Azure AD bearer tokens.
package auth

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"nppflow/infrastructure/config"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

const keyRefreshInterval = 24 * time.Hour

// Claims is the caller identity carried by a validated token.
type Claims struct {
	ObjectID    string
	Email       string
	DisplayName string
}

// JWTValidator validates Azure AD access tokens against the tenant JWKS.
type JWTValidator struct {
	cfg    config.AuthConfig
	client *http.Client

	mu         sync.RWMutex
	publicKeys map[string]*rsa.PublicKey
	lastUpdate time.Time
}

// NewJWTValidator creates a validator for the configured tenant.
func NewJWTValidator(cfg config.AuthConfig, client *http.Client) *JWTValidator {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &JWTValidator{
		cfg:        cfg,
		client:     client,
		publicKeys: make(map[string]*rsa.PublicKey),
	}
}

// ValidateToken checks signature, audience and issuer and returns the caller claims.
func (v *JWTValidator) ValidateToken(ctx context.Context, tokenString string) (*Claims, error) {
	token, _, err := jwt.NewParser().ParseUnverified(tokenString, jwt.MapClaims{})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	kid, ok := token.Header["kid"].(string)
	if !ok {
		return nil, fmt.Errorf("%w: missing kid in header", ErrInvalidToken)
	}
	publicKey, err := v.publicKey(ctx, kid)
	if err != nil {
		return nil, err
	}

	claims := jwt.MapClaims{}
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"RS256"}), jwt.WithExpirationRequired()}
	if v.cfg.ClientID != "" {
		opts = append(opts, jwt.WithAudience(v.cfg.ClientID))
	}
	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return publicKey, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return nil, ErrInvalidToken
	}

	iss, _ := claims.GetIssuer()
	if !strings.Contains(iss, v.cfg.TenantID) {
		return nil, fmt.Errorf("%w: invalid issuer", ErrInvalidToken)
	}

	return &Claims{
		ObjectID:    claimString(claims, "oid", "sub"),
		Email:       claimString(claims, "email", "preferred_username", "upn", "unique_name"),
		DisplayName: claimString(claims, "name"),
	}, nil
}

func (v *JWTValidator) publicKey(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	v.mu.RLock()
	key, ok := v.publicKeys[kid]
	fresh := time.Since(v.lastUpdate) < keyRefreshInterval
	v.mu.RUnlock()
	if ok && fresh {
		return key, nil
	}

	if err := v.refreshPublicKeys(ctx); err != nil {
		return nil, err
	}

	v.mu.RLock()
	defer v.mu.RUnlock()
	key, ok = v.publicKeys[kid]
	if !ok {
		return nil, fmt.Errorf("%w: unknown signing key %s", ErrInvalidToken, kid)
	}
	return key, nil
}

func (v *JWTValidator) jwksURL() string {
	return fmt.Sprintf("%s/%s/discovery/v2.0/keys", strings.TrimRight(v.cfg.InstanceURL, "/"), v.cfg.TenantID)
}

func (v *JWTValidator) refreshPublicKeys(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.jwksURL(), nil)
	if err != nil {
		return err
	}
	resp, err := v.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch JWKS: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("JWKS endpoint returned status %d", resp.StatusCode)
	}

	var jwks struct {
		Keys []struct {
			Kid string `json:"kid"`
			N   string `json:"n"`
			E   string `json:"e"`
			Kty string `json:"kty"`
			Use string `json:"use"`
		} `json:"keys"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&jwks); err != nil {
		return fmt.Errorf("decode JWKS: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(jwks.Keys))
	for _, k := range jwks.Keys {
		if k.Kty != "RSA" || (k.Use != "" && k.Use != "sig") {
			continue
		}
		nBytes, err := base64.RawURLEncoding.DecodeString(k.N)
		if err != nil {
			continue
		}
		eBytes, err := base64.RawURLEncoding.DecodeString(k.E)
		if err != nil {
			continue
		}
		e := 0
		for _, b := range eBytes {
			e = e<<8 + int(b)
		}
		keys[k.Kid] = &rsa.PublicKey{N: new(big.Int).SetBytes(nBytes), E: e}
	}

	v.mu.Lock()
	v.publicKeys = keys
	v.lastUpdate = time.Now()
	v.mu.Unlock()
	return nil
}

func claimString(claims jwt.MapClaims, keys ...string) string {
	for _, key := range keys {
		if s, ok := claims[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}
