package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"nppflow/domain/npp"
	"nppflow/infrastructure/config"
	"nppflow/logging"
)

// TokenValidator turns a bearer token into caller claims.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*Claims, error)
}

// UserResolver maps a caller email onto a site user.
type UserResolver interface {
	CurrentUser(ctx context.Context, email string) (*npp.User, error)
}

// Middleware authenticates requests and attaches the caller's site user.
type Middleware struct {
	enabled  bool
	devEmail string
	tokens   TokenValidator
	users    UserResolver
	logger   *logging.Logger
}

// NewMiddleware creates the authentication middleware. With auth disabled every
// request runs as the configured development user.
func NewMiddleware(cfg config.AuthConfig, tokens TokenValidator, users UserResolver) *Middleware {
	return &Middleware{
		enabled:  cfg.Enabled,
		devEmail: cfg.DevUserEmail,
		tokens:   tokens,
		users:    users,
		logger:   logging.Default().WithComponent("auth"),
	}
}

// Authenticate rejects requests without a valid caller.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		email, err := m.callerEmail(r)
		if err != nil {
			m.logger.WithContext(r.Context()).Security("Authentication failed",
				"method", r.Method,
				"path", r.URL.Path,
				"remote_addr", r.RemoteAddr,
				"error", err)
			unauthorized(w, err.Error())
			return
		}

		user, err := m.users.CurrentUser(r.Context(), email)
		if err != nil {
			m.logger.WithContext(r.Context()).Security("Caller is not a site user", "email", email, "error", err)
			unauthorized(w, "caller could not be resolved to a site user")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}

func (m *Middleware) callerEmail(r *http.Request) (string, error) {
	if !m.enabled {
		if m.devEmail == "" {
			return "", errors.New("auth disabled and no development user configured")
		}
		return m.devEmail, nil
	}

	header := r.Header.Get("Authorization")
	if header == "" {
		return "", errors.New("missing authorization header")
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization header format")
	}
	claims, err := m.tokens.ValidateToken(r.Context(), parts[1])
	if err != nil {
		return "", err
	}
	if claims.Email == "" {
		return "", errors.New("token carries no email claim")
	}
	return claims.Email, nil
}

func unauthorized(w http.ResponseWriter, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"type":   "unauthorized",
		"title":  http.StatusText(http.StatusUnauthorized),
		"status": http.StatusUnauthorized,
		"detail": detail,
	})
}
