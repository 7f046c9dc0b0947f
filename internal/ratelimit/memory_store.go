package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps attempt timestamps in process memory.
type MemoryStore struct {
	mu       sync.Mutex
	attempts map[string][]time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{attempts: make(map[string][]time.Time)}
}

func (s *MemoryStore) Reserve(_ context.Context, key string, at time.Time, window time.Duration, max int) (bool, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := prune(s.attempts[key], at.Add(-window))
	if len(kept) >= max {
		s.attempts[key] = kept
		oldest := at
		for _, t := range kept {
			if t.Before(oldest) {
				oldest = t
			}
		}
		return false, oldest, nil
	}
	s.attempts[key] = append(kept, at)
	return true, time.Time{}, nil
}

func (s *MemoryStore) Reset(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.attempts, key)
	return nil
}

func prune(attempts []time.Time, since time.Time) []time.Time {
	kept := attempts[:0]
	for _, at := range attempts {
		if at.After(since) {
			kept = append(kept, at)
		}
	}
	return kept
}
