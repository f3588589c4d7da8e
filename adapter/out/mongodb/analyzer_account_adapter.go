// Package mongodb implements MongoDB adapters for the application.
package mongodb

import (
	"context"
	"fmt"
	"time"

	"analyzer_server/core/port/out"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// =============================================================================
// MongoDB Account Adapter
// =============================================================================

const collectionAccounts = "extractedaccounts"

// AccountAdapter implements out.AccountRepository using MongoDB.
type AccountAdapter struct {
	collection *mongo.Collection
}

// NewAccountAdapter creates a new MongoDB account adapter.
func NewAccountAdapter(db *mongo.Database) *AccountAdapter {
	return &AccountAdapter{collection: db.Collection(collectionAccounts)}
}

// EnsureIndexes creates necessary indexes for the collection.
func (a *AccountAdapter) EnsureIndexes(ctx context.Context) error {
	_, err := a.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

// EnsureExists inserts the account record if absent, leaving existing fields
// untouched.
func (a *AccountAdapter) EnsureExists(ctx context.Context, email, owner string) error {
	opts := options.Update().SetUpsert(true)
	update := bson.M{
		"$setOnInsert": bson.M{
			"email":         email,
			"owner":         owner,
			"authenticated": false,
			"last_email_ts": nil,
			"created_at":    time.Now().UTC(),
		},
	}

	if _, err := a.collection.UpdateOne(ctx, bson.M{"email": email}, update, opts); err != nil {
		return fmt.Errorf("failed to ensure account: %w", err)
	}
	return nil
}

// MarkAuthenticated flags the account as having completed authorization.
func (a *AccountAdapter) MarkAuthenticated(ctx context.Context, email string) error {
	opts := options.Update().SetUpsert(true)
	update := bson.M{"$set": bson.M{"authenticated": true}}

	if _, err := a.collection.UpdateOne(ctx, bson.M{"email": email}, update, opts); err != nil {
		return fmt.Errorf("failed to mark account authenticated: %w", err)
	}
	return nil
}

// SetLastEmailTs mirrors the newest processed message timestamp onto the
// account record.
func (a *AccountAdapter) SetLastEmailTs(ctx context.Context, email, ts string) error {
	update := bson.M{"$set": bson.M{"last_email_ts": ts}}

	if _, err := a.collection.UpdateOne(ctx, bson.M{"email": email}, update); err != nil {
		return fmt.Errorf("failed to update account timestamp: %w", err)
	}
	return nil
}

var _ out.AccountRepository = (*AccountAdapter)(nil)
