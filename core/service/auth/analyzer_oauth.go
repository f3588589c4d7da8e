package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"analyzer_server/core/domain"
	"analyzer_server/core/port/out"
	"analyzer_server/pkg/apperr"
	"analyzer_server/pkg/logger"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// ErrUnknownState indicates a completion attempt with a state token that was
// never issued by Begin (or was already consumed).
var ErrUnknownState = errors.New("unknown oauth state")

// GmailReadonlyScope is the only scope this service requests.
const GmailReadonlyScope = "https://www.googleapis.com/auth/gmail.readonly"

// OAuthService manages the per-account handshake:
// unauthenticated -> authorization_issued -> authenticated.
type OAuthService struct {
	config   *oauth2.Config
	tokens   *TokenStore
	pending  out.PendingAuthRepository
	accounts out.AccountRepository
}

// OAuthConfig holds the Google client settings.
type OAuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// NewGoogleConfig builds the oauth2 config used for the handshake and for
// token refresh.
func NewGoogleConfig(cfg OAuthConfig) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Scopes:       []string{GmailReadonlyScope},
		Endpoint:     google.Endpoint,
	}
}

func NewOAuthService(config *oauth2.Config, tokens *TokenStore, pending out.PendingAuthRepository, accounts out.AccountRepository) *OAuthService {
	return &OAuthService{
		config:   config,
		tokens:   tokens,
		pending:  pending,
		accounts: accounts,
	}
}

// generateSecureState creates a cryptographically random state token.
func generateSecureState() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate secure state: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}

// Begin issues an authorization URL for the account and records the
// state -> account mapping. Storage failures are non-fatal: the URL is still
// issued, and Complete will later fail with ErrUnknownState.
func (s *OAuthService) Begin(ctx context.Context, email, owner string) (*domain.AuthRequest, error) {
	if s.config.ClientID == "" || s.config.ClientSecret == "" {
		return nil, apperr.ConfigError("google oauth not configured")
	}

	state, err := generateSecureState()
	if err != nil {
		return nil, apperr.InternalWithError(err)
	}

	// Pre-register the account record (best-effort).
	if s.accounts != nil {
		if err := s.accounts.EnsureExists(ctx, email, owner); err != nil {
			logger.WithAccount(email).WithError(err).Error("failed to pre-register account")
		}
	}

	// Record the pending authorization (best-effort; degrades to
	// URL-issued-only when storage is down).
	if s.pending != nil {
		pendingAuth := &domain.PendingAuth{
			State:     state,
			Email:     email,
			Owner:     owner,
			CreatedAt: time.Now().UTC(),
		}
		if err := s.pending.Store(ctx, pendingAuth); err != nil {
			logger.WithAccount(email).WithError(err).Error("failed to store pending authorization")
		}
	} else {
		logger.WithAccount(email).Warn("pending-auth store disabled; completion will fail for this state")
	}

	authURL := s.config.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
		oauth2.SetAuthURLParam("include_granted_scopes", "true"),
		oauth2.SetAuthURLParam("login_hint", email),
	)

	logger.WithAccount(email).Info("issued authorization URL")
	return &domain.AuthRequest{AuthURL: authURL, State: state}, nil
}

// Complete consumes the pending authorization for state, exchanges the code
// for a credential, persists it and marks the account authenticated. Unknown
// state and exchange failures are hard errors; no credential is written in
// either case. A failed exchange restores the pending state, so the
// callback can be retried; the state is spent only by a successful exchange.
func (s *OAuthService) Complete(ctx context.Context, state, code string) (*domain.AuthGrant, error) {
	if s.pending == nil {
		return nil, apperr.DatabaseError("pending-auth store unavailable", ErrUnknownState)
	}

	pendingAuth, err := s.pending.Consume(ctx, state)
	if err != nil {
		var notFound *out.StateNotFoundError
		if errors.As(err, &notFound) {
			logger.Warn("oauth completion with unknown state")
			return nil, fmt.Errorf("%w: %s", ErrUnknownState, state)
		}
		return nil, apperr.DatabaseError("consume pending authorization", err)
	}

	token, err := s.config.Exchange(ctx, code)
	if err != nil {
		logger.WithAccount(pendingAuth.Email).WithError(err).Error("code exchange failed")
		if rerr := s.pending.Store(ctx, pendingAuth); rerr != nil {
			logger.WithAccount(pendingAuth.Email).WithError(rerr).Error("failed to restore pending authorization")
		}
		return nil, apperr.OAuthFailed(err)
	}

	s.tokens.Save(ctx, pendingAuth.Email, token)

	if s.accounts != nil {
		if err := s.accounts.MarkAuthenticated(ctx, pendingAuth.Email); err != nil {
			logger.WithAccount(pendingAuth.Email).WithError(err).Error("failed to mark account authenticated")
		}
	}

	logger.WithAccount(pendingAuth.Email).Info("oauth completed")
	return &domain.AuthGrant{Email: pendingAuth.Email, Owner: pendingAuth.Owner}, nil
}

// Tokens exposes the credential store for callers that need EnsureValid.
func (s *OAuthService) Tokens() *TokenStore {
	return s.tokens
}
