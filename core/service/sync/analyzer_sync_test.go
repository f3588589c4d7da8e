package sync

import (
	"context"
	"errors"
	"testing"

	"analyzer_server/core/domain"
)

type fakeItems struct {
	keys    []domain.ItemKey
	failFor string // title whose upsert fails
}

func (f *fakeItems) Upsert(ctx context.Context, key domain.ItemKey, item *domain.ExtractedItem) error {
	if f.failFor != "" && item.Title == f.failFor {
		return errors.New("write failed")
	}
	f.keys = append(f.keys, key)
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

func TestUpsertKeysByTimestamp(t *testing.T) {
	items := &fakeItems{}
	s := NewSyncer(items, nil)

	n := s.Upsert(context.Background(), map[string][]domain.ExtractedItem{
		"a@example.com": {{
			Title:         "pay rent",
			SourceAccount: "a@example.com",
			SourceEmailTs: "2026-08-15T00:00:00Z",
		}},
	})

	if n != 1 {
		t.Fatalf("expected 1 write, got %d", n)
	}
	key := items.keys[0]
	if key.SourceAccount != "a@example.com" || key.SourceEmailTs != "2026-08-15T00:00:00Z" {
		t.Errorf("unexpected key: %+v", key)
	}
	if key.Title != "" || key.SourceSubject != "" {
		t.Errorf("timestamp key must not carry title/subject, got %+v", key)
	}
}

func TestUpsertFallbackKeyWithoutTimestamp(t *testing.T) {
	items := &fakeItems{}
	s := NewSyncer(items, nil)

	s.Upsert(context.Background(), map[string][]domain.ExtractedItem{
		"a@example.com": {{
			Title:         "pay rent",
			SourceSubject: "Rent reminder",
			SourceAccount: "a@example.com",
		}},
	})

	key := items.keys[0]
	if key.Title != "pay rent" || key.SourceSubject != "Rent reminder" {
		t.Errorf("expected title+subject fallback key, got %+v", key)
	}
	if key.SourceEmailTs != "" {
		t.Errorf("fallback key must not carry a timestamp, got %+v", key)
	}
}

func TestUpsertSkipsFailedWrites(t *testing.T) {
	items := &fakeItems{failFor: "bad"}
	s := NewSyncer(items, nil)

	n := s.Upsert(context.Background(), map[string][]domain.ExtractedItem{
		"a@example.com": {
			{Title: "good", SourceAccount: "a@example.com", SourceEmailTs: "2026-08-15T00:00:00Z"},
			{Title: "bad", SourceAccount: "a@example.com", SourceEmailTs: "2026-08-16T00:00:00Z"},
			{Title: "also good", SourceAccount: "a@example.com", SourceEmailTs: "2026-08-17T00:00:00Z"},
		},
	})

	if n != 2 {
		t.Fatalf("expected 2 writes despite the failure, got %d", n)
	}
}

func TestUpsertMirrorsNewestTimestamp(t *testing.T) {
	items := &fakeItems{}
	accounts := &fakeAccounts{}
	s := NewSyncer(items, accounts)

	s.Upsert(context.Background(), map[string][]domain.ExtractedItem{
		"a@example.com": {
			{Title: "x", SourceAccount: "a@example.com", SourceEmailTs: "2026-08-17T00:00:00Z"},
			{Title: "y", SourceAccount: "a@example.com", SourceEmailTs: "2026-08-15T00:00:00Z"},
		},
	})

	if got := accounts.lastTs["a@example.com"]; got != "2026-08-17T00:00:00Z" {
		t.Errorf("expected newest timestamp mirrored, got %q", got)
	}
}

func TestUpsertDisabledRepository(t *testing.T) {
	s := NewSyncer(nil, nil)

	n := s.Upsert(context.Background(), map[string][]domain.ExtractedItem{
		"a@example.com": {{Title: "x", SourceAccount: "a@example.com"}},
	})

	if n != 0 {
		t.Fatalf("expected 0 writes with persistence disabled, got %d", n)
	}
}
