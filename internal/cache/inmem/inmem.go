// Package inmem provides a build cache that lives only as long as the process.
package inmem

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dekarrin/kernc/internal/cache"
	"github.com/google/uuid"
)

// Store is a cache.Store backed by maps.
type Store struct {
	mtx     sync.RWMutex
	entries map[uuid.UUID]cache.Entry
	byKey   map[string]uuid.UUID
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{
		entries: make(map[uuid.UUID]cache.Entry),
		byKey:   make(map[string]uuid.UUID),
	}
}

func (s *Store) Close() error {
	return nil
}

func (s *Store) Get(ctx context.Context, key string) (cache.Entry, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	id, ok := s.byKey[key]
	if !ok {
		return cache.Entry{}, cache.ErrNotFound
	}
	return s.entries[id], nil
}

func (s *Store) GetByID(ctx context.Context, id uuid.UUID) (cache.Entry, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	e, ok := s.entries[id]
	if !ok {
		return cache.Entry{}, cache.ErrNotFound
	}
	return e, nil
}

func (s *Store) Put(ctx context.Context, e cache.Entry) (cache.Entry, error) {
	newID, err := cache.NewID()
	if err != nil {
		return cache.Entry{}, err
	}

	s.mtx.Lock()
	defer s.mtx.Unlock()

	if oldID, ok := s.byKey[e.Key]; ok {
		delete(s.entries, oldID)
	}

	e.ID = newID
	e.Created = time.Unix(time.Now().Unix(), 0)
	s.entries[e.ID] = e
	s.byKey[e.Key] = e.ID

	return e, nil
}

func (s *Store) Delete(ctx context.Context, id uuid.UUID) (cache.Entry, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return cache.Entry{}, cache.ErrNotFound
	}
	delete(s.entries, id)
	if s.byKey[e.Key] == id {
		delete(s.byKey, e.Key)
	}
	return e, nil
}

func (s *Store) All(ctx context.Context) ([]cache.Entry, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	all := make([]cache.Entry, 0, len(s.entries))
	for _, e := range s.entries {
		all = append(all, e)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].ID.String() < all[j].ID.String()
	})
	return all, nil
}
