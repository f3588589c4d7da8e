package out

import (
	"context"

	"analyzer_server/core/domain"

	"golang.org/x/oauth2"
)

// ListQuery describes one listing strategy. Query and Labels are mutually
// exclusive; an empty descriptor means a bare listing.
type ListQuery struct {
	Query  string
	Labels []string
}

// FallbackQueries is the ordered chain of listing strategies tried per
// account, stopping at the first that yields any results. Accounts whose
// inbox lacks category labels fall through to the looser queries.
var FallbackQueries = []ListQuery{
	{Query: "in:inbox category:primary"},
	{Query: "in:inbox"},
	{Labels: []string{"INBOX"}},
	{},
}

// MailProvider lists recent inbox messages for one authorized account.
type MailProvider interface {
	ListLatest(ctx context.Context, query ListQuery, maxResults int) ([]domain.Message, error)
}

// MailProviderFactory builds a provider bound to an account's credential.
type MailProviderFactory interface {
	ForToken(ctx context.Context, token *oauth2.Token) (MailProvider, error)
}
