package session

import (
	"sync"
	"time"
)

// Store is a concurrency-safe map of user id to [TokenPair].
//
// Each method is atomic on its own; callers never need external locking.
type Store struct {
	mu      sync.RWMutex
	entries map[string]TokenPair
}

// NewStore creates an empty [Store].
func NewStore() *Store {
	return &Store{entries: make(map[string]TokenPair)}
}

// Put stores pair for userID, replacing any previous entry.
func (s *Store) Put(userID string, pair TokenPair) {
	s.mu.Lock()
	s.entries[userID] = pair
	s.mu.Unlock()
}

// Get returns a copy of the pair stored for userID.
func (s *Store) Get(userID string) (TokenPair, bool) {
	s.mu.RLock()
	pair, ok := s.entries[userID]
	s.mu.RUnlock()
	return pair, ok
}

// Remove deletes the entry for userID. Removing an unknown id is a no-op.
func (s *Store) Remove(userID string) {
	s.mu.Lock()
	delete(s.entries, userID)
	s.mu.Unlock()
}

// RemoveIf deletes the entry for userID only while it still equals expected, reporting whether it did.
func (s *Store) RemoveIf(userID string, expected TokenPair) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	pair, ok := s.entries[userID]
	if !ok || !pair.Equal(expected) {
		return false
	}
	delete(s.entries, userID)
	return true
}

// CompareAndSwap replaces the entry for userID with next only while it still equals expected.
//
// A missing entry is never created.
func (s *Store) CompareAndSwap(userID string, expected, next TokenPair) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	pair, ok := s.entries[userID]
	if !ok || !pair.Equal(expected) {
		return false
	}
	s.entries[userID] = next
	return true
}

// Sweep evicts every entry that is both expired at now and unrefreshable, returning the evicted ids.
//
// Expired entries that still hold a refresh token are kept; they are refreshed on next access.
func (s *Store) Sweep(now time.Time) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var evicted []string
	for id, pair := range s.entries {
		if pair.Expired(now) && !pair.Refreshable() {
			delete(s.entries, id)
			evicted = append(evicted, id)
		}
	}
	return evicted
}

// Len returns the number of cached sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
