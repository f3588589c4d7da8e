// Package fetch implements the incremental inbox fetcher.
package fetch

import (
	"context"
	"strings"
	"time"

	"analyzer_server/core/domain"
	"analyzer_server/core/port/out"
	"analyzer_server/core/service/auth"
	"analyzer_server/pkg/logger"
)

// Result groups fetch output: new messages per account plus the accounts
// that had no usable credential (or whose provider call failed).
type Result struct {
	ByAccount   map[string][]domain.Message
	MissingAuth []string
}

// Fetcher pulls new, non-blocked messages per account and advances the
// per-account watermark.
type Fetcher struct {
	tokens     *auth.TokenStore
	providers  out.MailProviderFactory
	watermarks out.WatermarkRepository
	accounts   out.AccountRepository
	blocklist  []string
	queries    []out.ListQuery
}

func NewFetcher(
	tokens *auth.TokenStore,
	providers out.MailProviderFactory,
	watermarks out.WatermarkRepository,
	accounts out.AccountRepository,
	blocklist []string,
) *Fetcher {
	lowered := make([]string, len(blocklist))
	for i, b := range blocklist {
		lowered[i] = strings.ToLower(b)
	}
	return &Fetcher{
		tokens:     tokens,
		providers:  providers,
		watermarks: watermarks,
		accounts:   accounts,
		blocklist:  lowered,
		queries:    out.FallbackQueries,
	}
}

// Fetch processes the accounts sequentially. A provider failure for one
// account reclassifies it as missing-auth and the batch continues.
func (f *Fetcher) Fetch(ctx context.Context, emails []string, maxPerAccount int) *Result {
	result := &Result{ByAccount: make(map[string][]domain.Message)}

	for _, email := range emails {
		token := f.tokens.EnsureValid(ctx, email)
		if token == nil {
			logger.WithAccount(email).Info("no usable credential")
			result.MissingAuth = append(result.MissingAuth, email)
			continue
		}

		provider, err := f.providers.ForToken(ctx, token)
		if err != nil {
			logger.WithAccount(email).WithError(err).Error("failed to build mail provider")
			result.MissingAuth = append(result.MissingAuth, email)
			continue
		}

		messages, err := f.listLatest(ctx, provider, maxPerAccount)
		if err != nil {
			logger.WithAccount(email).WithError(err).Error("failed to list messages")
			result.MissingAuth = append(result.MissingAuth, email)
			continue
		}

		fresh := f.filterNew(ctx, email, f.dropBlocked(messages))
		result.ByAccount[email] = fresh
		logger.WithAccount(email).Info("fetched %d new messages", len(fresh))
	}

	return result
}

// listLatest tries the query fallback chain in order and stops at the first
// strategy that yields any results.
func (f *Fetcher) listLatest(ctx context.Context, provider out.MailProvider, maxResults int) ([]domain.Message, error) {
	var lastErr error
	for _, q := range f.queries {
		messages, err := provider.ListLatest(ctx, q, maxResults)
		if err != nil {
			lastErr = err
			continue
		}
		if len(messages) > 0 {
			return messages, nil
		}
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, nil
}

// dropBlocked removes messages whose sender matches the block-list
// (case-insensitive substring on domain or literal address).
func (f *Fetcher) dropBlocked(messages []domain.Message) []domain.Message {
	kept := make([]domain.Message, 0, len(messages))
	for _, msg := range messages {
		if f.isBlocked(msg.From) {
			logger.Debug("skipping blocked sender %s", msg.From)
			continue
		}
		kept = append(kept, msg)
	}
	return kept
}

func (f *Fetcher) isBlocked(sender string) bool {
	lower := strings.ToLower(sender)
	for _, blocked := range f.blocklist {
		if strings.Contains(lower, blocked) {
			return true
		}
	}
	return false
}

// filterNew keeps messages strictly newer than the account's watermark and
// advances the watermark to the maximum timestamp observed. An absent
// watermark means everything is new. Messages with unparsable timestamps are
// fail-open: returned as new, but they never advance the watermark.
func (f *Fetcher) filterNew(ctx context.Context, email string, messages []domain.Message) []domain.Message {
	var last time.Time
	hasLast := false
	if f.watermarks != nil {
		stored, err := f.watermarks.Get(ctx, email)
		if err != nil {
			logger.WithAccount(email).WithError(err).Error("failed to read watermark")
		} else if stored != "" {
			parsed, perr := time.Parse(time.RFC3339, stored)
			if perr != nil {
				logger.WithAccount(email).WithError(perr).Warn("stored watermark unparsable; treating all messages as new")
			} else {
				last = parsed
				hasLast = true
			}
		}
	} else {
		logger.WithAccount(email).Warn("watermark store disabled; returning all messages")
	}

	fresh := make([]domain.Message, 0, len(messages))
	maxSeen := last
	advanced := false

	for _, msg := range messages {
		ts, err := time.Parse(time.RFC3339, msg.Date)
		if err != nil {
			// Never silently drop a message over a bad timestamp.
			logger.WithAccount(email).Warn("unparsable message timestamp %q; treating as new", msg.Date)
			fresh = append(fresh, msg)
			continue
		}
		if hasLast && !ts.After(last) {
			continue
		}
		fresh = append(fresh, msg)
		if !advanced || ts.After(maxSeen) {
			maxSeen = ts
			advanced = true
		}
	}

	if advanced {
		f.advanceWatermark(ctx, email, maxSeen.UTC().Format(time.RFC3339))
	}

	return fresh
}

// advanceWatermark stores the new watermark and mirrors it onto the account
// record, best-effort.
func (f *Fetcher) advanceWatermark(ctx context.Context, email, ts string) {
	if f.watermarks != nil {
		if err := f.watermarks.Set(ctx, email, ts); err != nil {
			logger.WithAccount(email).WithError(err).Error("failed to advance watermark")
		}
	}
	if f.accounts != nil {
		if err := f.accounts.SetLastEmailTs(ctx, email, ts); err != nil {
			logger.WithAccount(email).WithError(err).Error("failed to mirror watermark onto account")
		}
	}
}
