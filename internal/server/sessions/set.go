// Package sessions keeps the set of live refresh tokens and flushes it to
// durable storage on a schedule.
package sessions

import (
	"slices"
	"sync"
)

// RevocationSet is the process-wide set of refresh tokens that are still
// honoured. A token is revoked by removing it. Safe for concurrent use.
type RevocationSet struct {
	mu     sync.RWMutex
	tokens map[string]struct{}
}

func NewRevocationSet(tokens ...string) *RevocationSet {
	s := &RevocationSet{tokens: make(map[string]struct{}, len(tokens))}
	for _, t := range tokens {
		s.tokens[t] = struct{}{}
	}
	return s
}

func (s *RevocationSet) Add(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token] = struct{}{}
}

// Remove deletes token and reports whether it was present.
func (s *RevocationSet) Remove(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tokens[token]
	delete(s.tokens, token)
	return ok
}

func (s *RevocationSet) Contains(token string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.tokens[token]
	return ok
}

func (s *RevocationSet) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.tokens)
}

// Replace swaps the whole content, used when loading from storage.
func (s *RevocationSet) Replace(tokens []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.tokens)
	for _, t := range tokens {
		s.tokens[t] = struct{}{}
	}
}

func (s *RevocationSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tokens)
}

// Snapshot returns a sorted copy of the tokens.
func (s *RevocationSet) Snapshot() []string {
	s.mu.RLock()
	out := make([]string, 0, len(s.tokens))
	for t := range s.tokens {
		out = append(out, t)
	}
	s.mu.RUnlock()

	slices.Sort(out)
	return out
}
