// Package mongodb implements MongoDB adapters for the application.
package mongodb

import (
	"context"
	"fmt"

	"analyzer_server/core/domain"
	"analyzer_server/core/port/out"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// =============================================================================
// MongoDB Item Adapter
// =============================================================================

const collectionItems = "extractedtasks"

// ItemAdapter implements out.ItemRepository using MongoDB.
type ItemAdapter struct {
	collection *mongo.Collection
}

// NewItemAdapter creates a new MongoDB item adapter.
func NewItemAdapter(db *mongo.Database) *ItemAdapter {
	return &ItemAdapter{collection: db.Collection(collectionItems)}
}

// EnsureIndexes creates necessary indexes for the collection.
func (a *ItemAdapter) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "_source_account", Value: 1},
				{Key: "source_email_ts", Value: 1},
			},
		},
		{
			Keys: bson.D{
				{Key: "_source_account", Value: 1},
				{Key: "title", Value: 1},
				{Key: "source_subject", Value: 1},
			},
		},
	}

	_, err := a.collection.Indexes().CreateMany(ctx, indexes)
	return err
}

// Upsert inserts the item if no record matches the key, otherwise merges the
// item's fields into the existing record. The document keeps its original
// _id across re-runs so frontend references stay stable.
func (a *ItemAdapter) Upsert(ctx context.Context, key domain.ItemKey, item *domain.ExtractedItem) error {
	filter := keyFilter(key)

	update := bson.M{
		"$set": bson.M{
			"type":            item.Kind,
			"title":           item.Title,
			"description":     item.Description,
			"date":            item.Date,
			"time":            item.Time,
			"confidence":      item.Confidence,
			"source_subject":  item.SourceSubject,
			"source_from":     item.SourceFrom,
			"source_email_ts": item.SourceEmailTs,
			"_source_account": item.SourceAccount,
		},
		"$setOnInsert": bson.M{
			"_id":               item.ID,
			"added_to_calendar": false,
		},
	}
	if item.Owner != "" {
		update["$set"].(bson.M)["owner"] = item.Owner
	}

	opts := options.Update().SetUpsert(true)
	if _, err := a.collection.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("failed to upsert item: %w", err)
	}
	return nil
}

// keyFilter builds the dedupe filter: source timestamp when present,
// title + subject otherwise.
func keyFilter(key domain.ItemKey) bson.M {
	filter := bson.M{"_source_account": key.SourceAccount}
	if key.SourceEmailTs != "" {
		filter["source_email_ts"] = key.SourceEmailTs
	} else {
		filter["title"] = key.Title
		filter["source_subject"] = key.SourceSubject
	}
	if key.Owner != "" {
		filter["owner"] = key.Owner
	}
	return filter
}

var _ out.ItemRepository = (*ItemAdapter)(nil)
