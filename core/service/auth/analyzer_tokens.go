package auth

import (
	"context"
	"time"

	"analyzer_server/core/port/out"
	"analyzer_server/pkg/logger"

	"golang.org/x/oauth2"
)

// refreshWindow is how close to expiry a token may get before it is
// refreshed ahead of use.
const refreshWindow = 5 * time.Minute

// TokenStore wraps the token repository with best-effort semantics: every
// storage or refresh failure degrades to "no usable credential". Callers
// must treat a nil token as a normal outcome, not an error.
//
// A nil repo is the storage-disabled state: loads return nil, saves are
// no-ops.
type TokenStore struct {
	repo   out.TokenRepository
	config *oauth2.Config
}

func NewTokenStore(repo out.TokenRepository, config *oauth2.Config) *TokenStore {
	return &TokenStore{repo: repo, config: config}
}

// Load returns the stored token for the account, or nil when storage is
// disabled, unreachable, or holds no record.
func (s *TokenStore) Load(ctx context.Context, email string) *oauth2.Token {
	if s.repo == nil {
		logger.WithAccount(email).Warn("token store disabled; cannot load credential")
		return nil
	}
	token, err := s.repo.Load(ctx, email)
	if err != nil {
		logger.WithAccount(email).WithError(err).Error("failed to load credential")
		return nil
	}
	return token
}

// Save persists the token, logging rather than propagating failures.
func (s *TokenStore) Save(ctx context.Context, email string, token *oauth2.Token) {
	if s.repo == nil {
		logger.WithAccount(email).Warn("token store disabled; credential not persisted")
		return
	}
	if err := s.repo.Save(ctx, email, token); err != nil {
		logger.WithAccount(email).WithError(err).Error("failed to save credential")
	}
}

// EnsureValid loads the account's credential and refreshes it when it is
// stale and a refresh token is available, persisting the result. Returns nil
// when no usable credential exists.
func (s *TokenStore) EnsureValid(ctx context.Context, email string) *oauth2.Token {
	token := s.Load(ctx, email)
	if token == nil {
		return nil
	}

	if token.Expiry.IsZero() || time.Until(token.Expiry) > refreshWindow {
		return token
	}

	if token.RefreshToken == "" {
		logger.WithAccount(email).Info("credential stale and no refresh token available")
		return nil
	}

	src := s.config.TokenSource(ctx, token)
	refreshed, err := src.Token()
	if err != nil {
		logger.WithAccount(email).WithError(err).Warn("token refresh failed")
		return nil
	}

	// The provider may omit the refresh token on refresh; keep the old one.
	if refreshed.RefreshToken == "" {
		refreshed.RefreshToken = token.RefreshToken
	}
	s.Save(ctx, email, refreshed)
	return refreshed
}
