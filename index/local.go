package index

import (
	"context"
	"sort"
	"sync"
)

// LocalIndex keeps deadlines in-process (default).
type LocalIndex struct {
	mu      sync.RWMutex
	entries map[string]int64
}

var _ Index = (*LocalIndex)(nil)

func NewLocalIndex() *LocalIndex {
	return &LocalIndex{entries: make(map[string]int64)}
}

func (s *LocalIndex) Track(_ context.Context, key string, expiresAt int64) error {
	s.mu.Lock()
	s.entries[key] = expiresAt
	s.mu.Unlock()
	return nil
}

func (s *LocalIndex) Untrack(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
	return nil
}

func (s *LocalIndex) Claim(_ context.Context, key string, expiresAt int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.entries[key]
	if !ok || cur != expiresAt {
		return false, nil
	}
	delete(s.entries, key)
	return true, nil
}

func (s *LocalIndex) Deadline(_ context.Context, key string) (int64, bool, error) {
	s.mu.RLock()
	exp, ok := s.entries[key]
	s.mu.RUnlock()
	return exp, ok, nil
}

// Due scans under the read lock; the map is sized by live sessions, not history.
func (s *LocalIndex) Due(_ context.Context, now int64, limit int) ([]Entry, error) {
	var out []Entry
	s.mu.RLock()
	for k, exp := range s.entries {
		if exp <= now {
			out = append(out, Entry{Key: k, ExpiresAt: exp})
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].ExpiresAt != out[j].ExpiresAt {
			return out[i].ExpiresAt < out[j].ExpiresAt
		}
		return out[i].Key < out[j].Key
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Len reports how many keys are tracked.
func (s *LocalIndex) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *LocalIndex) Close(_ context.Context) error { return nil }
