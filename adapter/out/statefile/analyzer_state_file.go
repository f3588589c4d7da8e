// Package statefile keeps the frontend-facing snapshot of extracted items in
// a flat JSON file, keyed by account.
package statefile

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"analyzer_server/core/domain"

	"github.com/goccy/go-json"
)

// ErrItemNotFound is returned when no item carries the requested id.
var ErrItemNotFound = errors.New("item not found")

// Store reads and mutates the state file. All operations take the lock so
// concurrent HTTP requests never interleave a read-modify-write.
type Store struct {
	mu   sync.Mutex
	path string
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

// Read returns the current snapshot. A missing file is an empty snapshot,
// not an error.
func (s *Store) Read() (map[string][]domain.ExtractedItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Merge folds freshly extracted items into the snapshot. An incoming item
// replaces an existing one with the same dedupe key, preserving its id and
// calendar flag; anything else is appended.
func (s *Store) Merge(results map[string][]domain.ExtractedItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.load()
	if err != nil {
		return err
	}

	for account, items := range results {
		existing := state[account]
		for _, item := range items {
			replaced := false
			for i := range existing {
				if existing[i].DedupeKey() == item.DedupeKey() {
					item.ID = existing[i].ID
					item.AddedToCalendar = existing[i].AddedToCalendar
					existing[i] = item
					replaced = true
					break
				}
			}
			if !replaced {
				existing = append(existing, item)
			}
		}
		state[account] = existing
	}

	return s.save(state)
}

// ToggleCalendar flips the added_to_calendar flag of the item with the given
// id and returns the updated item.
func (s *Store) ToggleCalendar(id string) (*domain.ExtractedItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.load()
	if err != nil {
		return nil, err
	}

	for account, items := range state {
		for i := range items {
			if items[i].ID == id {
				items[i].AddedToCalendar = !items[i].AddedToCalendar
				state[account] = items
				if err := s.save(state); err != nil {
					return nil, err
				}
				updated := items[i]
				return &updated, nil
			}
		}
	}
	return nil, ErrItemNotFound
}

// Delete removes the item with the given id.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.load()
	if err != nil {
		return err
	}

	for account, items := range state {
		for i := range items {
			if items[i].ID == id {
				state[account] = append(items[:i], items[i+1:]...)
				return s.save(state)
			}
		}
	}
	return ErrItemNotFound
}

func (s *Store) load() (map[string][]domain.ExtractedItem, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string][]domain.ExtractedItem{}, nil
		}
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}

	state := map[string][]domain.ExtractedItem{}
	if len(data) == 0 {
		return state, nil
	}
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to decode state file: %w", err)
	}
	return state, nil
}

func (s *Store) save(state map[string][]domain.ExtractedItem) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode state file: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}
	return nil
}
