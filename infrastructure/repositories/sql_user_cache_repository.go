package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"nppflow/database"
	"nppflow/domain/contracts"
	"nppflow/domain/npp"
)

// SQLUserCacheRepository stores resolved site users as JSON keyed by (site URL, email).
type SQLUserCacheRepository struct {
	*BaseRepository
}

// NewSQLUserCacheRepository creates a user cache repository.
func NewSQLUserCacheRepository(database *database.Database) *SQLUserCacheRepository {
	return &SQLUserCacheRepository{BaseRepository: NewBaseRepository(database)}
}

func cacheKey(siteURL, email string) (string, string) {
	return strings.TrimRight(strings.ToLower(siteURL), "/"), strings.ToLower(strings.TrimSpace(email))
}

// GetCachedUser returns contracts.ErrNotFound when nothing is cached.
func (r *SQLUserCacheRepository) GetCachedUser(ctx context.Context, siteURL, email string) (*contracts.CachedUser, error) {
	site, mail := cacheKey(siteURL, email)

	var (
		payload   string
		updatedAt sql.NullString
	)
	err := r.ReadDB().QueryRowContext(ctx,
		`SELECT payload, updated_at FROM user_cache WHERE site_url = ? AND email = ?`, site, mail).
		Scan(&payload, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("cached user %s: %w", mail, contracts.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cached user: %w", err)
	}

	var user npp.User
	if err := json.Unmarshal([]byte(payload), &user); err != nil {
		return nil, fmt.Errorf("failed to decode cached user: %w", err)
	}

	cached := &contracts.CachedUser{SiteURL: site, Email: mail, User: user}
	if t := r.FromNullTime(updatedAt); t != nil {
		cached.UpdatedAt = *t
	}
	return cached, nil
}

// PutCachedUser inserts or replaces the cached profile.
func (r *SQLUserCacheRepository) PutCachedUser(ctx context.Context, user *contracts.CachedUser) error {
	site, mail := cacheKey(user.SiteURL, user.Email)
	payload, err := json.Marshal(user.User)
	if err != nil {
		return fmt.Errorf("failed to encode cached user: %w", err)
	}

	_, err = r.WriteDB().ExecContext(ctx, `
		INSERT INTO user_cache (site_url, email, user_id, payload, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (site_url, email) DO UPDATE SET
			user_id = excluded.user_id,
			payload = excluded.payload,
			updated_at = excluded.updated_at`,
		site, mail, user.User.ID, string(payload), r.FormatTime(user.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to store cached user: %w", err)
	}
	return nil
}

func (r *SQLUserCacheRepository) DeleteCachedUser(ctx context.Context, siteURL, email string) error {
	site, mail := cacheKey(siteURL, email)
	if _, err := r.WriteDB().ExecContext(ctx,
		`DELETE FROM user_cache WHERE site_url = ? AND email = ?`, site, mail); err != nil {
		return fmt.Errorf("failed to delete cached user: %w", err)
	}
	return nil
}

// ScopedUserCacheRepository restricts a user cache to one tenant site.
type ScopedUserCacheRepository struct {
	inner   contracts.UserCacheRepository
	siteURL string
}

// NewScopedUserCacheRepository binds inner to siteURL.
func NewScopedUserCacheRepository(inner contracts.UserCacheRepository, siteURL string) *ScopedUserCacheRepository {
	site, _ := cacheKey(siteURL, "")
	return &ScopedUserCacheRepository{inner: inner, siteURL: site}
}

func (r *ScopedUserCacheRepository) check(siteURL string) error {
	if site, _ := cacheKey(siteURL, ""); site != r.siteURL {
		return ErrSiteMismatch{Expected: r.siteURL, Actual: site}
	}
	return nil
}

func (r *ScopedUserCacheRepository) GetCachedUser(ctx context.Context, siteURL, email string) (*contracts.CachedUser, error) {
	if err := r.check(siteURL); err != nil {
		return nil, err
	}
	return r.inner.GetCachedUser(ctx, siteURL, email)
}

func (r *ScopedUserCacheRepository) PutCachedUser(ctx context.Context, user *contracts.CachedUser) error {
	if err := r.check(user.SiteURL); err != nil {
		return err
	}
	return r.inner.PutCachedUser(ctx, user)
}

func (r *ScopedUserCacheRepository) DeleteCachedUser(ctx context.Context, siteURL, email string) error {
	if err := r.check(siteURL); err != nil {
		return err
	}
	return r.inner.DeleteCachedUser(ctx, siteURL, email)
}
