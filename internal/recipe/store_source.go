package recipe

import (
	"context"
	"fmt"
	"sync"

	"menuplan/internal/storage"
)

// StoreSource serves recipes previously ingested into a storage.RecipeStore.
type StoreSource struct {
	store *storage.RecipeStore

	mu      sync.Mutex
	byTitle map[string]*Recipe
}

// NewStoreSource creates a StoreSource. The store is read on first lookup.
func NewStoreSource(store *storage.RecipeStore) *StoreSource {
	return &StoreSource{store: store}
}

// Lookup implements Source, matching dish names against recipe titles.
func (s *StoreSource) Lookup(_ context.Context, name string) (*Recipe, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.byTitle == nil {
		if err := s.load(); err != nil {
			return nil, err
		}
	}
	rec, ok := s.byTitle[normalizeName(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return rec, nil
}

// Reload re-reads the store, picking up recipes ingested since the last read.
func (s *StoreSource) Reload() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *StoreSource) load() error {
	byTitle := make(map[string]*Recipe)
	err := s.store.ListAll(func(load func(v any) error) error {
		var rec Recipe
		if err := load(&rec); err != nil {
			return err
		}
		byTitle[normalizeName(rec.Title)] = &rec
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to load stored recipes: %w", err)
	}
	s.byTitle = byTitle
	return nil
}
