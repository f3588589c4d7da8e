// Package extract turns inbox messages into structured task/event items via
// a text-generation service.
package extract

import (
	"context"
	"fmt"
	"time"

	"analyzer_server/core/domain"
	"analyzer_server/core/port/out"
	"analyzer_server/pkg/logger"

	"github.com/google/uuid"
)

const promptTemplate = `You are an assistant that extracts actionable tasks and events from email text.

Each object must include:
- "type": either "task", "event", or "null"
- "title": short title (5-10 words max)
- "description": one-sentence description
- "date": ISO 8601 date (YYYY-MM-DD) or null
- "time": HH:MM 24h format or null

Rules:
1. Do not include items with "null" type.
2. If an item has no date, exclude it UNLESS it relates to internships, applications, or scholarships.
3. All other items without dates should be excluded.

If the email contains no valid tasks or events, return an empty array: [].

Email subject:
%s

Email content:
%s

Return JSON ONLY (no extra commentary).`

// Engine sends message text to the completion service and parses a
// structured item list out of the free-form response.
type Engine struct {
	llm        out.TextCompleter
	maxRetries int
	throttle   time.Duration

	// sleep indirection keeps the retry/backoff tests from waiting.
	sleep func(time.Duration)
}

func NewEngine(llm out.TextCompleter, maxRetries int, throttle time.Duration) *Engine {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &Engine{
		llm:        llm,
		maxRetries: maxRetries,
		throttle:   throttle,
		sleep:      time.Sleep,
	}
}

// Extract analyzes a single message. It retries on provider failure or
// unparsable output with linearly increasing delay, and returns an empty
// list (never an error) when all attempts fail.
func (e *Engine) Extract(ctx context.Context, msg domain.Message) []domain.ExtractedItem {
	prompt := fmt.Sprintf(promptTemplate, msg.Subject, msg.Content)

	for attempt := 1; attempt <= e.maxRetries+1; attempt++ {
		raw, err := e.llm.Complete(ctx, prompt)
		if err == nil {
			parsed, perr := ParseItemList(raw)
			if perr == nil {
				// Pause after every successful call to respect rate limits.
				e.sleep(e.throttle)
				return e.normalize(parsed, msg)
			}
			err = perr
		}

		logger.WithError(err).Warn("extraction attempt %d failed", attempt)
		if attempt <= e.maxRetries {
			e.sleep(e.throttle * time.Duration(attempt))
		}
	}

	logger.Warn("all extraction attempts failed for subject %q; returning empty list", msg.Subject)
	return []domain.ExtractedItem{}
}

// ExtractBatch analyzes the messages of each account sequentially, tagging
// items with their source account.
func (e *Engine) ExtractBatch(ctx context.Context, byAccount map[string][]domain.Message) map[string][]domain.ExtractedItem {
	result := make(map[string][]domain.ExtractedItem, len(byAccount))
	for account, messages := range byAccount {
		items := []domain.ExtractedItem{}
		for _, msg := range messages {
			for _, item := range e.Extract(ctx, msg) {
				item.SourceAccount = account
				items = append(items, item)
			}
		}
		result[account] = items
	}
	return result
}

// normalize fills missing metadata without overwriting present fields and
// enforces the kind/dateless invariants code-side: null-kind candidates are
// dropped, and dateless candidates survive only when opportunity-related.
func (e *Engine) normalize(parsed []map[string]any, msg domain.Message) []domain.ExtractedItem {
	items := make([]domain.ExtractedItem, 0, len(parsed))
	for _, obj := range parsed {
		item := domain.ExtractedItem{
			ID:            uuid.New().String(),
			Kind:          stringField(obj, "type"),
			Title:         stringField(obj, "title"),
			Description:   stringField(obj, "description"),
			Date:          optionalField(obj, "date"),
			Time:          optionalField(obj, "time"),
			Confidence:    floatField(obj, "confidence", domain.DefaultConfidence),
			SourceSubject: msg.Subject,
			SourceFrom:    msg.From,
			SourceEmailTs: msg.Date,
		}
		if s := stringField(obj, "source_subject"); s != "" {
			item.SourceSubject = s
		}
		if s := stringField(obj, "source_from"); s != "" {
			item.SourceFrom = s
		}

		if item.Kind == "" || item.Kind == domain.KindNull {
			continue
		}
		if item.Date == nil && !item.IsOpportunityRelated() {
			continue
		}
		items = append(items, item)
	}
	return items
}

func stringField(obj map[string]any, key string) string {
	if v, ok := obj[key].(string); ok {
		return v
	}
	return ""
}

// optionalField normalizes absent/null/empty values to an explicit nil.
func optionalField(obj map[string]any, key string) *string {
	v, ok := obj[key]
	if !ok || v == nil {
		return nil
	}
	s, ok := v.(string)
	if !ok || s == "" || s == "null" {
		return nil
	}
	return &s
}

func floatField(obj map[string]any, key string, fallback float64) float64 {
	if v, ok := obj[key].(float64); ok {
		return v
	}
	return fallback
}
