package statefile

import (
	"errors"
	"path/filepath"
	"testing"

	"analyzer_server/core/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "email_state.json"))
}

func item(id, title, ts string) domain.ExtractedItem {
	return domain.ExtractedItem{
		ID:            id,
		Kind:          domain.KindTask,
		Title:         title,
		SourceAccount: "a@example.com",
		SourceEmailTs: ts,
	}
}

func TestReadMissingFile(t *testing.T) {
	store := newTestStore(t)

	state, err := store.Read()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(state) != 0 {
		t.Errorf("expected empty snapshot, got %v", state)
	}
}

func TestMergeRoundtrip(t *testing.T) {
	store := newTestStore(t)

	err := store.Merge(map[string][]domain.ExtractedItem{
		"a@example.com": {item("id-1", "pay rent", "2026-08-15T00:00:00Z")},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	state, err := store.Read()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	items := state["a@example.com"]
	if len(items) != 1 || items[0].Title != "pay rent" {
		t.Fatalf("unexpected snapshot: %+v", state)
	}
}

func TestMergePreservesIDAndCalendarFlag(t *testing.T) {
	store := newTestStore(t)

	original := item("id-1", "pay rent", "2026-08-15T00:00:00Z")
	original.AddedToCalendar = true
	if err := store.Merge(map[string][]domain.ExtractedItem{"a@example.com": {original}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Same dedupe key, new id and refreshed description.
	incoming := item("id-2", "pay rent", "2026-08-15T00:00:00Z")
	incoming.Description = "updated"
	if err := store.Merge(map[string][]domain.ExtractedItem{"a@example.com": {incoming}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	state, _ := store.Read()
	items := state["a@example.com"]
	if len(items) != 1 {
		t.Fatalf("expected dedupe to keep one item, got %d", len(items))
	}
	if items[0].ID != "id-1" {
		t.Errorf("expected the original id preserved, got %q", items[0].ID)
	}
	if !items[0].AddedToCalendar {
		t.Error("expected the calendar flag preserved")
	}
	if items[0].Description != "updated" {
		t.Errorf("expected refreshed fields, got %q", items[0].Description)
	}
}

func TestMergeAppendsDistinctItems(t *testing.T) {
	store := newTestStore(t)

	store.Merge(map[string][]domain.ExtractedItem{
		"a@example.com": {item("id-1", "pay rent", "2026-08-15T00:00:00Z")},
	})
	store.Merge(map[string][]domain.ExtractedItem{
		"a@example.com": {item("id-2", "buy books", "2026-08-16T00:00:00Z")},
	})

	state, _ := store.Read()
	if len(state["a@example.com"]) != 2 {
		t.Fatalf("expected 2 items, got %+v", state["a@example.com"])
	}
}

func TestToggleCalendar(t *testing.T) {
	store := newTestStore(t)
	store.Merge(map[string][]domain.ExtractedItem{
		"a@example.com": {item("id-1", "pay rent", "2026-08-15T00:00:00Z")},
	})

	updated, err := store.ToggleCalendar("id-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !updated.AddedToCalendar {
		t.Error("expected the flag flipped on")
	}

	// The flip must survive a reload.
	state, _ := store.Read()
	if !state["a@example.com"][0].AddedToCalendar {
		t.Error("expected the flip persisted")
	}

	updated, err = store.ToggleCalendar("id-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.AddedToCalendar {
		t.Error("expected the flag flipped back off")
	}
}

func TestToggleCalendarUnknownID(t *testing.T) {
	store := newTestStore(t)

	if _, err := store.ToggleCalendar("nope"); !errors.Is(err, ErrItemNotFound) {
		t.Fatalf("expected ErrItemNotFound, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	store := newTestStore(t)
	store.Merge(map[string][]domain.ExtractedItem{
		"a@example.com": {
			item("id-1", "pay rent", "2026-08-15T00:00:00Z"),
			item("id-2", "buy books", "2026-08-16T00:00:00Z"),
		},
	})

	if err := store.Delete("id-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	state, _ := store.Read()
	items := state["a@example.com"]
	if len(items) != 1 || items[0].ID != "id-2" {
		t.Fatalf("unexpected remainder: %+v", items)
	}

	if err := store.Delete("id-1"); !errors.Is(err, ErrItemNotFound) {
		t.Fatalf("expected ErrItemNotFound, got %v", err)
	}
}
