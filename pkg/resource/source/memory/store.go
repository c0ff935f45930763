// Package memory provides an in-memory resource source for tests and demos.
package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/marmos91/rankly/pkg/resource"
)

// Store keeps resources in a map. Fetch returns copies.
type Store struct {
	mu      sync.RWMutex
	objects map[string][]byte
	fetches map[string]int
	closed  bool
}

// New returns an empty store.
func New() *Store {
	return &Store{
		objects: make(map[string][]byte),
		fetches: make(map[string]int),
	}
}

// Put stores a copy of data under key.
func (s *Store) Put(key string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = slices.Clone(data)
}

// Delete removes key.
func (s *Store) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
}

func (s *Store) Fetch(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, resource.ErrSourceClosed
	}
	s.fetches[key]++
	data, ok := s.objects[key]
	if !ok {
		return nil, resource.ErrNotFound
	}
	return slices.Clone(data), nil
}

// Fetches returns how many times key was requested, found or not.
func (s *Store) Fetches(key string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fetches[key]
}

// Keys returns the stored keys in sorted order.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.objects))
	for k := range s.objects {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func (s *Store) HealthCheck(context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return resource.ErrSourceClosed
	}
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *Store) Type() string { return "memory" }

var _ resource.Source = (*Store)(nil)
