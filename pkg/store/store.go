// Package store provides the in-memory key/value store backing the memory tools and
// memory:// resources.
//
// A Store is owned by the server that created it and is safe for concurrent use.
// Values are decoded JSON trees (maps, slices, strings, float64, bool, nil).
package store

import (
	"sort"
	"sync"
)

// Store is a mutex-guarded map from string keys to JSON values
type Store struct {
	mu      sync.RWMutex
	entries map[string]interface{}
}

// New creates an empty store
func New() *Store {
	return &Store{entries: make(map[string]interface{})}
}

// Seeded creates a store holding a shallow copy of seed
func Seeded(seed map[string]interface{}) *Store {
	s := New()
	for k, v := range seed {
		s.entries[k] = v
	}
	return s
}

// Get returns the value stored under key
func (s *Store) Get(key string) (interface{}, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.entries[key]
	return v, ok
}

// Set stores value under key, replacing any previous value
func (s *Store) Set(key string, value interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = value
}

// Delete removes key and reports whether it was present
func (s *Store) Delete(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[key]
	delete(s.entries, key)
	return ok
}

// Has reports whether key is present
func (s *Store) Has(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.entries[key]
	return ok
}

// Clear removes every entry
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]interface{})
}

// Keys returns the stored keys in sorted order
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of entries
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// DefaultSeed returns the data the full server starts with
func DefaultSeed() map[string]interface{} {
	return map[string]interface{}{
		"config": map[string]interface{}{
			"theme":    "dark",
			"language": "en",
		},
		"data": map[string]interface{}{
			"users": []interface{}{"alice", "bob"},
			"tasks": []interface{}{"task1", "task2"},
		},
	}
}

// ExampleSeed returns the data the example server starts with
func ExampleSeed() map[string]interface{} {
	return map[string]interface{}{
		"example": map[string]interface{}{
			"message": "Hello from example server!",
		},
	}
}
