package harvest

import (
	"sort"
	"strings"
	"sync"
)

// IdentitySet is an insert-if-absent set of validator identities.
// Blank identities are never stored. Once frozen, it ignores further adds.
type IdentitySet struct {
	mu     sync.RWMutex
	items  map[string]struct{}
	frozen bool
}

// NewIdentitySet creates an empty set
func NewIdentitySet() *IdentitySet {
	return &IdentitySet{items: make(map[string]struct{})}
}

// Add inserts each non-blank identity, trimmed, and returns how many were new
func (s *IdentitySet) Add(ids ...string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.frozen {
		return 0
	}

	added := 0
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := s.items[id]; ok {
			continue
		}
		s.items[id] = struct{}{}
		added++
	}
	return added
}

// Contains reports whether id is in the set
func (s *IdentitySet) Contains(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.items[strings.TrimSpace(id)]
	return ok
}

// Len returns the number of identities
func (s *IdentitySet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Sorted returns the identities in ascending order
func (s *IdentitySet) Sorted() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.items))
	for id := range s.items {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Freeze makes the set read-only and returns its sorted contents
func (s *IdentitySet) Freeze() []string {
	s.mu.Lock()
	s.frozen = true
	s.mu.Unlock()
	return s.Sorted()
}

// Dedupe folds any number of identity lists into one sorted list of unique,
// non-blank identities.
func Dedupe(lists ...[]string) []string {
	set := NewIdentitySet()
	for _, list := range lists {
		set.Add(list...)
	}
	return set.Freeze()
}
