package fetch

import (
	"context"
	"errors"
	"testing"

	"analyzer_server/core/domain"
	"analyzer_server/core/port/out"
	"analyzer_server/core/service/auth"

	"golang.org/x/oauth2"
)

type fakeTokenRepo struct {
	tokens map[string]*oauth2.Token
}

func (f *fakeTokenRepo) Load(ctx context.Context, email string) (*oauth2.Token, error) {
	return f.tokens[email], nil
}

func (f *fakeTokenRepo) Save(ctx context.Context, email string, token *oauth2.Token) error {
	return nil
}

type fakeProvider struct {
	// perQuery maps a query string (or first label) to its listing result.
	perQuery map[string][]domain.Message
	err      error
	queries  []out.ListQuery
}

func (f *fakeProvider) ListLatest(ctx context.Context, query out.ListQuery, maxResults int) ([]domain.Message, error) {
	f.queries = append(f.queries, query)
	if f.err != nil {
		return nil, f.err
	}
	key := query.Query
	if key == "" && len(query.Labels) > 0 {
		key = query.Labels[0]
	}
	return f.perQuery[key], nil
}

type fakeFactory struct {
	provider *fakeProvider
	err      error
}

func (f *fakeFactory) ForToken(ctx context.Context, token *oauth2.Token) (out.MailProvider, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.provider, nil
}

type fakeWatermarks struct {
	stored map[string]string
	sets   map[string]string
}

func (f *fakeWatermarks) Get(ctx context.Context, email string) (string, error) {
	return f.stored[email], nil
}

func (f *fakeWatermarks) Set(ctx context.Context, email, ts string) error {
	if f.sets == nil {
		f.sets = map[string]string{}
	}
	f.sets[email] = ts
	return nil
}

type fakeAccounts struct {
	lastTs map[string]string
}

func (f *fakeAccounts) EnsureExists(ctx context.Context, email, owner string) error { return nil }
func (f *fakeAccounts) MarkAuthenticated(ctx context.Context, email string) error   { return nil }
func (f *fakeAccounts) SetLastEmailTs(ctx context.Context, email, ts string) error {
	if f.lastTs == nil {
		f.lastTs = map[string]string{}
	}
	f.lastTs[email] = ts
	return nil
}

func newTestFetcher(repo *fakeTokenRepo, factory *fakeFactory, marks *fakeWatermarks, accounts *fakeAccounts, blocklist []string) *Fetcher {
	tokens := auth.NewTokenStore(repo, &oauth2.Config{ClientID: "id", ClientSecret: "secret"})
	return NewFetcher(tokens, factory, marks, accounts, blocklist)
}

func validToken() *oauth2.Token {
	return &oauth2.Token{AccessToken: "tok"}
}

func TestFetchMissingCredential(t *testing.T) {
	repo := &fakeTokenRepo{tokens: map[string]*oauth2.Token{}}
	factory := &fakeFactory{provider: &fakeProvider{}}
	f := newTestFetcher(repo, factory, &fakeWatermarks{stored: map[string]string{}}, &fakeAccounts{}, nil)

	result := f.Fetch(context.Background(), []string{"a@example.com"}, 10)

	if len(result.MissingAuth) != 1 || result.MissingAuth[0] != "a@example.com" {
		t.Fatalf("expected a@example.com in missing auth, got %v", result.MissingAuth)
	}
	if len(result.ByAccount) != 0 {
		t.Errorf("expected no fetched messages, got %v", result.ByAccount)
	}
}

func TestFetchProviderFailureReclassifies(t *testing.T) {
	repo := &fakeTokenRepo{tokens: map[string]*oauth2.Token{"a@example.com": validToken()}}
	factory := &fakeFactory{provider: &fakeProvider{err: errors.New("upstream down")}}
	f := newTestFetcher(repo, factory, &fakeWatermarks{stored: map[string]string{}}, &fakeAccounts{}, nil)

	result := f.Fetch(context.Background(), []string{"a@example.com"}, 10)

	if len(result.MissingAuth) != 1 {
		t.Fatalf("expected account reclassified as missing auth, got %v", result.MissingAuth)
	}
}

func TestFetchWatermarkFiltersAndAdvances(t *testing.T) {
	messages := []domain.Message{
		{Subject: "old", Date: "2026-08-01T00:00:00Z"},
		{Subject: "boundary", Date: "2026-08-10T00:00:00Z"},
		{Subject: "newer", Date: "2026-08-15T00:00:00Z"},
		{Subject: "newest", Date: "2026-08-20T00:00:00Z"},
	}
	repo := &fakeTokenRepo{tokens: map[string]*oauth2.Token{"a@example.com": validToken()}}
	factory := &fakeFactory{provider: &fakeProvider{
		perQuery: map[string][]domain.Message{"in:inbox category:primary": messages},
	}}
	marks := &fakeWatermarks{stored: map[string]string{"a@example.com": "2026-08-10T00:00:00Z"}}
	accounts := &fakeAccounts{}
	f := newTestFetcher(repo, factory, marks, accounts, nil)

	result := f.Fetch(context.Background(), []string{"a@example.com"}, 10)

	fresh := result.ByAccount["a@example.com"]
	if len(fresh) != 2 {
		t.Fatalf("expected 2 strictly newer messages, got %d", len(fresh))
	}
	if fresh[0].Subject != "newer" || fresh[1].Subject != "newest" {
		t.Errorf("unexpected messages: %+v", fresh)
	}
	if got := marks.sets["a@example.com"]; got != "2026-08-20T00:00:00Z" {
		t.Errorf("expected watermark at newest timestamp, got %q", got)
	}
	if got := accounts.lastTs["a@example.com"]; got != "2026-08-20T00:00:00Z" {
		t.Errorf("expected account mirror at newest timestamp, got %q", got)
	}
}

func TestFetchUnparsableTimestampFailOpen(t *testing.T) {
	messages := []domain.Message{
		{Subject: "broken", Date: "not a timestamp"},
		{Subject: "old", Date: "2026-08-01T00:00:00Z"},
	}
	repo := &fakeTokenRepo{tokens: map[string]*oauth2.Token{"a@example.com": validToken()}}
	factory := &fakeFactory{provider: &fakeProvider{
		perQuery: map[string][]domain.Message{"in:inbox category:primary": messages},
	}}
	marks := &fakeWatermarks{stored: map[string]string{"a@example.com": "2026-08-10T00:00:00Z"}}
	f := newTestFetcher(repo, factory, marks, &fakeAccounts{}, nil)

	result := f.Fetch(context.Background(), []string{"a@example.com"}, 10)

	fresh := result.ByAccount["a@example.com"]
	if len(fresh) != 1 || fresh[0].Subject != "broken" {
		t.Fatalf("expected only the unparsable message to pass, got %+v", fresh)
	}
	if _, ok := marks.sets["a@example.com"]; ok {
		t.Error("watermark must not advance on unparsable timestamps alone")
	}
}

func TestFetchBlocklist(t *testing.T) {
	messages := []domain.Message{
		{Subject: "spam", From: "News <digest@Newsletter.example.com>", Date: "2026-08-15T00:00:00Z"},
		{Subject: "keep", From: "friend@example.com", Date: "2026-08-16T00:00:00Z"},
	}
	repo := &fakeTokenRepo{tokens: map[string]*oauth2.Token{"a@example.com": validToken()}}
	factory := &fakeFactory{provider: &fakeProvider{
		perQuery: map[string][]domain.Message{"in:inbox category:primary": messages},
	}}
	f := newTestFetcher(repo, factory, &fakeWatermarks{stored: map[string]string{}}, &fakeAccounts{}, []string{"newsletter.example.com"})

	result := f.Fetch(context.Background(), []string{"a@example.com"}, 10)

	fresh := result.ByAccount["a@example.com"]
	if len(fresh) != 1 || fresh[0].Subject != "keep" {
		t.Fatalf("expected blocked sender dropped, got %+v", fresh)
	}
}

func TestFetchQueryFallbackChain(t *testing.T) {
	provider := &fakeProvider{
		perQuery: map[string][]domain.Message{
			"INBOX": {{Subject: "via label", Date: "2026-08-15T00:00:00Z"}},
		},
	}
	repo := &fakeTokenRepo{tokens: map[string]*oauth2.Token{"a@example.com": validToken()}}
	f := newTestFetcher(repo, &fakeFactory{provider: provider}, &fakeWatermarks{stored: map[string]string{}}, &fakeAccounts{}, nil)

	result := f.Fetch(context.Background(), []string{"a@example.com"}, 10)

	fresh := result.ByAccount["a@example.com"]
	if len(fresh) != 1 || fresh[0].Subject != "via label" {
		t.Fatalf("expected the label listing result, got %+v", fresh)
	}
	// The first two query strategies came up empty before the label one hit.
	if len(provider.queries) != 3 {
		t.Fatalf("expected 3 strategies tried, got %d", len(provider.queries))
	}
	if provider.queries[0].Query != out.FallbackQueries[0].Query {
		t.Errorf("expected the primary-category query first, got %+v", provider.queries[0])
	}
}
