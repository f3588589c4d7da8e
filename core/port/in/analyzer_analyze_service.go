package in

import (
	"context"

	"analyzer_server/core/domain"
)

// AnalyzeResult is what a batch analyze run produces: either the accounts
// that still need authorization, or the newly extracted items per account.
type AnalyzeResult struct {
	MissingAuth []string                          `json:"missing_auth,omitempty"`
	Results     map[string][]domain.ExtractedItem `json:"results,omitempty"`
	Inserted    int                               `json:"inserted"`
}

// AnalyzeService fetches new messages for the given accounts, extracts
// tasks/events from each and persists the results.
type AnalyzeService interface {
	Analyze(ctx context.Context, emails []string, owner string) (*AnalyzeResult, error)
}
