// Package mongodb implements MongoDB adapters for the application.
package mongodb

import (
	"context"
	"fmt"

	"analyzer_server/core/port/out"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// =============================================================================
// MongoDB Watermark Adapter
// =============================================================================

const collectionStates = "states"

// WatermarkAdapter implements out.WatermarkRepository using MongoDB.
type WatermarkAdapter struct {
	collection *mongo.Collection
}

// NewWatermarkAdapter creates a new MongoDB watermark adapter.
func NewWatermarkAdapter(db *mongo.Database) *WatermarkAdapter {
	return &WatermarkAdapter{collection: db.Collection(collectionStates)}
}

// EnsureIndexes creates necessary indexes for the collection.
func (a *WatermarkAdapter) EnsureIndexes(ctx context.Context) error {
	_, err := a.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

// watermarkDocument represents the MongoDB document structure.
type watermarkDocument struct {
	Email  string `bson:"email"`
	LastTs string `bson:"last_ts"`
}

// Get returns the stored watermark, or "" when the account has none.
func (a *WatermarkAdapter) Get(ctx context.Context, email string) (string, error) {
	var doc watermarkDocument
	err := a.collection.FindOne(ctx, bson.M{"email": email}).Decode(&doc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return "", nil
		}
		return "", fmt.Errorf("failed to get watermark: %w", err)
	}
	return doc.LastTs, nil
}

// Set stores the watermark for the account.
func (a *WatermarkAdapter) Set(ctx context.Context, email, ts string) error {
	opts := options.Update().SetUpsert(true)
	update := bson.M{"$set": bson.M{"last_ts": ts}}

	if _, err := a.collection.UpdateOne(ctx, bson.M{"email": email}, update, opts); err != nil {
		return fmt.Errorf("failed to set watermark: %w", err)
	}
	return nil
}

var _ out.WatermarkRepository = (*WatermarkAdapter)(nil)
