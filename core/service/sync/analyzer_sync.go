// Package sync persists extracted items, deduplicating across runs.
package sync

import (
	"context"

	"analyzer_server/core/domain"
	"analyzer_server/core/port/out"
	"analyzer_server/pkg/logger"
)

// Syncer upserts items into the item repository under their dedupe key.
// A nil repository disables persistence; Upsert then reports zero inserts.
type Syncer struct {
	items    out.ItemRepository
	accounts out.AccountRepository
	log      *logger.Logger
}

func NewSyncer(items out.ItemRepository, accounts out.AccountRepository) *Syncer {
	return &Syncer{
		items:    items,
		accounts: accounts,
		log:      logger.Default().WithField("component", "syncer"),
	}
}

// Upsert writes every item under its dedupe key and returns the number of
// successful writes. A failed write is logged and skipped; one bad item
// never aborts the batch.
func (s *Syncer) Upsert(ctx context.Context, byAccount map[string][]domain.ExtractedItem) int {
	if s.items == nil {
		return 0
	}

	written := 0
	for account, items := range byAccount {
		for i := range items {
			item := items[i]
			if err := s.items.Upsert(ctx, item.DedupeKey(), &item); err != nil {
				s.log.WithAccount(account).WithError(err).
					Warn("failed to persist item %q", item.Title)
				continue
			}
			written++
		}
		if len(items) > 0 && s.accounts != nil {
			// Mirror the newest source timestamp onto the account record.
			if ts := latestTs(items); ts != "" {
				if err := s.accounts.SetLastEmailTs(ctx, account, ts); err != nil {
					s.log.WithAccount(account).WithError(err).
						Warn("failed to update account timestamp")
				}
			}
		}
	}
	return written
}

func latestTs(items []domain.ExtractedItem) string {
	latest := ""
	for i := range items {
		if ts := items[i].SourceEmailTs; ts > latest {
			latest = ts
		}
	}
	return latest
}
