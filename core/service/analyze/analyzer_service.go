// Package analyze orchestrates a full inbox analysis run: fetch new
// messages, extract items, persist the results.
package analyze

import (
	"context"
	"time"

	"analyzer_server/core/domain"
	"analyzer_server/core/port/in"
	"analyzer_server/core/service/extract"
	"analyzer_server/core/service/fetch"
	"analyzer_server/core/service/sync"
	"analyzer_server/pkg/logger"
)

type Service struct {
	fetcher    *fetch.Fetcher
	engine     *extract.Engine
	syncer     *sync.Syncer
	maxResults int
	log        *logger.Logger
}

var _ in.AnalyzeService = (*Service)(nil)

func NewService(fetcher *fetch.Fetcher, engine *extract.Engine, syncer *sync.Syncer, maxResults int) *Service {
	return &Service{
		fetcher:    fetcher,
		engine:     engine,
		syncer:     syncer,
		maxResults: maxResults,
		log:        logger.Default().WithField("component", "analyze"),
	}
}

// Analyze runs the fetch/extract/persist pipeline for the given accounts.
// When any account lacks usable credentials the run stops before extraction
// and reports those accounts, so the caller can send them back through the
// authorization flow.
func (s *Service) Analyze(ctx context.Context, emails []string, owner string) (*in.AnalyzeResult, error) {
	started := time.Now()

	fetched := s.fetcher.Fetch(ctx, emails, s.maxResults)
	if len(fetched.MissingAuth) > 0 {
		s.log.Info("analysis blocked, %d account(s) need authorization", len(fetched.MissingAuth))
		return &in.AnalyzeResult{MissingAuth: fetched.MissingAuth}, nil
	}

	extracted := s.engine.ExtractBatch(ctx, fetched.ByAccount)
	for account, items := range extracted {
		for i := range items {
			items[i].Owner = owner
		}
		extracted[account] = items
	}

	inserted := s.syncer.Upsert(ctx, extracted)

	total := 0
	for _, items := range extracted {
		total += len(items)
	}
	s.log.WithDuration(time.Since(started)).
		Info("analysis complete: %d item(s) extracted, %d persisted", total, inserted)

	return &in.AnalyzeResult{
		Results:  ensureAccounts(extracted, emails),
		Inserted: inserted,
	}, nil
}

// ensureAccounts guarantees every requested account appears in the result
// map, even when nothing was extracted for it.
func ensureAccounts(results map[string][]domain.ExtractedItem, emails []string) map[string][]domain.ExtractedItem {
	for _, email := range emails {
		if _, ok := results[email]; !ok {
			results[email] = []domain.ExtractedItem{}
		}
	}
	return results
}
