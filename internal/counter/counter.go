// Package counter keeps per-document character and word counts for status
// displays.
package counter

import "sync"

// Counts holds the latest counts reported for a document.
type Counts struct {
	Characters int
	Words      int
}

// Store maps document IDs to their latest Counts.
type Store struct {
	mu     sync.RWMutex
	counts map[string]Counts
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{counts: make(map[string]Counts)}
}

// Add records counts for id, replacing earlier values.
func (s *Store) Add(id string, c Counts) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts[id] = c
}

// Get returns the counts for id.
func (s *Store) Get(id string) (Counts, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.counts[id]
	return c, ok
}

// Delete releases the counts for id.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.counts, id)
}

// Len returns the number of tracked documents.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.counts)
}
