// Package mongodb implements MongoDB adapters for the application.
package mongodb

import (
	"context"
	"fmt"
	"time"

	"analyzer_server/core/domain"
	"analyzer_server/core/port/out"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// =============================================================================
// MongoDB Pending Auth Adapter
// =============================================================================

const (
	collectionOAuthStates = "oauth_states"

	// Abandoned authorization attempts expire after this long.
	pendingAuthTTL = 10 * time.Minute
)

// PendingAuthAdapter implements out.PendingAuthRepository using MongoDB.
type PendingAuthAdapter struct {
	collection *mongo.Collection
}

// NewPendingAuthAdapter creates a new MongoDB pending auth adapter.
func NewPendingAuthAdapter(db *mongo.Database) *PendingAuthAdapter {
	return &PendingAuthAdapter{collection: db.Collection(collectionOAuthStates)}
}

// EnsureIndexes creates necessary indexes for the collection.
func (a *PendingAuthAdapter) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "state", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "created_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(int32(pendingAuthTTL.Seconds())), // TTL index
		},
	}

	_, err := a.collection.Indexes().CreateMany(ctx, indexes)
	return err
}

// pendingAuthDocument represents the MongoDB document structure.
type pendingAuthDocument struct {
	State     string    `bson:"state"`
	Email     string    `bson:"email"`
	Owner     string    `bson:"owner,omitempty"`
	CreatedAt time.Time `bson:"created_at"`
}

// Store records an in-flight authorization attempt.
func (a *PendingAuthAdapter) Store(ctx context.Context, pending *domain.PendingAuth) error {
	doc := pendingAuthDocument{
		State:     pending.State,
		Email:     pending.Email,
		Owner:     pending.Owner,
		CreatedAt: pending.CreatedAt,
	}
	if _, err := a.collection.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to store pending auth: %w", err)
	}
	return nil
}

// Consume looks up and deletes the pending authorization in one step so a
// state can be exchanged at most once.
func (a *PendingAuthAdapter) Consume(ctx context.Context, state string) (*domain.PendingAuth, error) {
	var doc pendingAuthDocument
	err := a.collection.FindOneAndDelete(ctx, bson.M{"state": state}).Decode(&doc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, &out.StateNotFoundError{State: state}
		}
		return nil, fmt.Errorf("failed to consume pending auth: %w", err)
	}

	return &domain.PendingAuth{
		State:     doc.State,
		Email:     doc.Email,
		Owner:     doc.Owner,
		CreatedAt: doc.CreatedAt,
	}, nil
}

var _ out.PendingAuthRepository = (*PendingAuthAdapter)(nil)
