// Package session scopes memoized lookups to one run of a command.
package session

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session is created once per command run and passed to whatever needs to
// share cached results within that run.
type Session struct {
	StartedAt time.Time
	entries   map[string]any
	ID        uuid.UUID
	hits      int
	misses    int
	mu        sync.Mutex
}

// New starts a session with a fresh random id.
func New() *Session {
	return &Session{
		ID:        uuid.New(),
		StartedAt: time.Now(),
		entries:   make(map[string]any),
	}
}

// Key identifies a memoized call by function name and arguments.
func Key(fn string, args ...any) (string, error) {
	encoded, err := json.Marshal(args)
	if err != nil {
		return "", fmt.Errorf("failed to encode memo key for %s: %w", fn, err)
	}
	return fn + ":" + string(encoded), nil
}

// Memo returns the cached result of fn(args) or computes and stores it.
// Failed computations are not cached.
func Memo[T any](s *Session, fn string, args []any, compute func() (T, error)) (T, error) {
	var zero T

	key, err := Key(fn, args...)
	if err != nil {
		return zero, err
	}

	s.mu.Lock()
	if v, ok := s.entries[key]; ok {
		if typed, ok := v.(T); ok {
			s.hits++
			s.mu.Unlock()
			return typed, nil
		}
	}
	s.misses++
	s.mu.Unlock()

	value, err := compute()
	if err != nil {
		return zero, err
	}

	s.mu.Lock()
	s.entries[key] = value
	s.mu.Unlock()
	return value, nil
}

// Forget drops every cached result for fn.
func (s *Session) Forget(fn string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prefix := fn + ":"
	for k := range s.entries {
		if strings.HasPrefix(k, prefix) {
			delete(s.entries, k)
		}
	}
}

// Clear drops every cached result.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]any)
}

// Size returns the number of cached results.
func (s *Session) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Stats returns cache hits and misses so far.
func (s *Session) Stats() (hits, misses int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits, s.misses
}
