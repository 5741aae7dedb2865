// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package crawl

import "sync"

// SeenSet holds the identifiers already accepted in one crawl run. It is
// created per run and passed explicitly, so concurrent runs in one process
// never share state.
type SeenSet struct {
	mu  sync.Mutex
	ids map[string]struct{}
}

// NewSeenSet returns an empty set.
func NewSeenSet() *SeenSet {
	return &SeenSet{ids: make(map[string]struct{})}
}

// Add marks id as seen and reports whether it was new. Check and insert
// happen under one lock. An empty id is never added.
func (s *SeenSet) Add(id string) bool {
	if id == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ids[id]; ok {
		return false
	}
	s.ids[id] = struct{}{}
	return true
}

// Len returns the number of identifiers seen.
func (s *SeenSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ids)
}
