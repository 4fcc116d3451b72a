package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps attempts in process memory. Each process sees only its
// own attempts, so a multi-instance deployment needs a shared Store.
type MemoryStore struct {
	mu       sync.Mutex
	attempts map[string][]time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{attempts: make(map[string][]time.Time)}
}

func (s *MemoryStore) Update(_ context.Context, key string, fn func([]time.Time) []time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := fn(s.attempts[key])
	if len(next) == 0 {
		delete(s.attempts, key)
		return nil
	}
	s.attempts[key] = next
	return nil
}

// Sweep drops keys whose newest attempt is not after cutoff. Attempts are
// appended in time order, so the last one is the newest.
func (s *MemoryStore) Sweep(_ context.Context, cutoff time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, attempts := range s.attempts {
		if len(attempts) == 0 || !attempts[len(attempts)-1].After(cutoff) {
			delete(s.attempts, key)
		}
	}
	return nil
}

// Len returns the number of keys with live attempts.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.attempts)
}
