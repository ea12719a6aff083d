package dedup

import (
	"strings"
	"sync"
)

// Set tracks article URLs that are already present in the candidate store
type Set struct {
	mu   sync.RWMutex
	seen map[string]struct{}
}

// New builds a set seeded with the given URLs
func New(seed ...string) *Set {
	s := &Set{seen: make(map[string]struct{}, len(seed))}
	s.Mark(seed...)
	return s
}

// Seen reports whether url has been recorded. Empty URLs are never seen.
func (s *Set) Seen(url string) bool {
	url = strings.TrimSpace(url)
	if url == "" {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.seen[url]
	return ok
}

// Mark records every non-empty url
func (s *Set) Mark(urls ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range urls {
		u = strings.TrimSpace(u)
		if u == "" {
			continue
		}
		s.seen[u] = struct{}{}
	}
}

// Len returns the number of distinct URLs recorded
func (s *Set) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.seen)
}
