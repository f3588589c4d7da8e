package out

import (
	"context"

	"analyzer_server/core/domain"

	"golang.org/x/oauth2"
)

// TokenRepository persists per-account OAuth credentials. One credential per
// account; Save overwrites.
type TokenRepository interface {
	// Load returns the stored token for the account, or nil when no record
	// exists.
	Load(ctx context.Context, email string) (*oauth2.Token, error)
	Save(ctx context.Context, email string, token *oauth2.Token) error
}

// StateNotFoundError is returned by PendingAuthRepository.Consume when the
// state token was never stored or has already been consumed.
type StateNotFoundError struct{ State string }

func (e *StateNotFoundError) Error() string { return "oauth state not found: " + e.State }

// PendingAuthRepository tracks in-flight authorization attempts keyed by
// state token.
type PendingAuthRepository interface {
	Store(ctx context.Context, pending *domain.PendingAuth) error
	// Consume looks up and deletes the pending authorization in one step so
	// a state can be exchanged at most once.
	Consume(ctx context.Context, state string) (*domain.PendingAuth, error)
}

// WatermarkRepository stores the last-seen message timestamp per account.
type WatermarkRepository interface {
	// Get returns the stored watermark, or "" when the account has none.
	Get(ctx context.Context, email string) (string, error)
	Set(ctx context.Context, email, ts string) error
}

// AccountRepository maintains the account records mirrored for the frontend.
type AccountRepository interface {
	// EnsureExists inserts the account record if absent, leaving existing
	// fields untouched.
	EnsureExists(ctx context.Context, email, owner string) error
	MarkAuthenticated(ctx context.Context, email string) error
	SetLastEmailTs(ctx context.Context, email, ts string) error
}

// ItemRepository persists extracted items with merge-upsert semantics.
type ItemRepository interface {
	// Upsert inserts the item if no record matches the key, otherwise merges
	// fields into the existing record (last write wins).
	Upsert(ctx context.Context, key domain.ItemKey, item *domain.ExtractedItem) error
}
