// Package mongodb implements MongoDB adapters for the application.
package mongodb

import (
	"context"
	"fmt"
	"time"

	"analyzer_server/core/port/out"

	"github.com/goccy/go-json"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/oauth2"
)

// =============================================================================
// MongoDB Token Adapter
// =============================================================================

const collectionTokens = "tokens"

// TokenAdapter implements out.TokenRepository using MongoDB. Credentials are
// stored as a JSON blob so that token shape changes never require a schema
// migration.
type TokenAdapter struct {
	collection *mongo.Collection
}

// NewTokenAdapter creates a new MongoDB token adapter.
func NewTokenAdapter(db *mongo.Database) *TokenAdapter {
	return &TokenAdapter{collection: db.Collection(collectionTokens)}
}

// EnsureIndexes creates necessary indexes for the collection.
func (a *TokenAdapter) EnsureIndexes(ctx context.Context) error {
	_, err := a.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

// tokenDocument represents the MongoDB document structure.
type tokenDocument struct {
	Email     string    `bson:"email"`
	CredsJSON string    `bson:"creds_json"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// Load returns the stored token for the account, or nil when no record
// exists.
func (a *TokenAdapter) Load(ctx context.Context, email string) (*oauth2.Token, error) {
	var doc tokenDocument
	err := a.collection.FindOne(ctx, bson.M{"email": email}).Decode(&doc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load token: %w", err)
	}

	var token oauth2.Token
	if err := json.Unmarshal([]byte(doc.CredsJSON), &token); err != nil {
		return nil, fmt.Errorf("failed to decode stored credentials: %w", err)
	}
	return &token, nil
}

// Save stores or replaces the token for the account.
func (a *TokenAdapter) Save(ctx context.Context, email string, token *oauth2.Token) error {
	creds, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("failed to encode credentials: %w", err)
	}

	doc := tokenDocument{
		Email:     email,
		CredsJSON: string(creds),
		UpdatedAt: time.Now().UTC(),
	}

	opts := options.Replace().SetUpsert(true)
	if _, err := a.collection.ReplaceOne(ctx, bson.M{"email": email}, doc, opts); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	return nil
}

var _ out.TokenRepository = (*TokenAdapter)(nil)
