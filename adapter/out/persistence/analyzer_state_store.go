// Package persistence implements Redis-backed stores.
package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"analyzer_server/core/domain"
	"analyzer_server/core/port/out"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

// OAuthStateKey Redis key prefix for OAuth state
const OAuthStateKey = "oauth:state:"

// PendingAuthTTL bounds how long an unconsumed authorization attempt lives.
const PendingAuthTTL = 10 * time.Minute

// RedisPendingAuthStore keeps in-flight authorization attempts in Redis
// with a TTL, used instead of MongoDB when a Redis URL is configured.
type RedisPendingAuthStore struct {
	client *redis.Client
}

func NewRedisPendingAuthStore(client *redis.Client) *RedisPendingAuthStore {
	return &RedisPendingAuthStore{client: client}
}

type pendingAuthPayload struct {
	Email     string    `json:"email"`
	Owner     string    `json:"owner,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Store saves the pending authorization under its state token.
func (s *RedisPendingAuthStore) Store(ctx context.Context, pending *domain.PendingAuth) error {
	if pending.State == "" {
		return errors.New("state cannot be empty")
	}

	payload, err := json.Marshal(pendingAuthPayload{
		Email:     pending.Email,
		Owner:     pending.Owner,
		CreatedAt: pending.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to encode pending auth: %w", err)
	}

	key := OAuthStateKey + pending.State
	if err := s.client.Set(ctx, key, payload, PendingAuthTTL).Err(); err != nil {
		return fmt.Errorf("failed to store OAuth state: %w", err)
	}
	return nil
}

// Consume fetches and deletes the pending authorization atomically via
// GETDEL, so a state token can be exchanged at most once.
func (s *RedisPendingAuthStore) Consume(ctx context.Context, state string) (*domain.PendingAuth, error) {
	if state == "" {
		return nil, &out.StateNotFoundError{State: state}
	}

	key := OAuthStateKey + state
	raw, err := s.client.GetDel(ctx, key).Result()
	if err == redis.Nil {
		return nil, &out.StateNotFoundError{State: state}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to consume OAuth state: %w", err)
	}

	var payload pendingAuthPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, fmt.Errorf("invalid pending auth payload: %w", err)
	}

	return &domain.PendingAuth{
		State:     state,
		Email:     payload.Email,
		Owner:     payload.Owner,
		CreatedAt: payload.CreatedAt,
	}, nil
}

var _ out.PendingAuthRepository = (*RedisPendingAuthStore)(nil)
