package in

import (
	"context"

	"analyzer_server/core/domain"
)

// AuthService drives the per-account OAuth handshake:
// unauthenticated -> authorization_issued -> authenticated.
type AuthService interface {
	// Begin issues an authorization URL and a fresh state token. Each call
	// produces a new state; earlier pending states for the same account stay
	// valid until consumed or abandoned.
	Begin(ctx context.Context, email, owner string) (*domain.AuthRequest, error)

	// Complete exchanges the authorization code recorded under state. It
	// fails hard when the state is unknown or the code exchange fails.
	Complete(ctx context.Context, state, code string) (*domain.AuthGrant, error)
}
