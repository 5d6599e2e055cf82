package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps reviews in process memory. It is the reference
// implementation of Store and is used by tests and the "memory" driver.
type MemoryStore struct {
	mu      sync.RWMutex
	reviews []Review
	now     Clock
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{now: utcNow}
}

// WithClock replaces the clock used by RecentSubmissionExists.
func (s *MemoryStore) WithClock(c Clock) *MemoryStore {
	s.now = c
	return s
}

func (s *MemoryStore) RecentSubmissionExists(_ context.Context, submitterID int64, window time.Duration) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return hasRecent(s.reviews, submitterID, cutoff(s.now(), window)), nil
}

func (s *MemoryStore) Append(_ context.Context, r Review) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appendUnlocked(r)
	return nil
}

func (s *MemoryStore) Submit(_ context.Context, r Review, window time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if hasRecent(s.reviews, r.SubmitterID, cutoff(r.CreatedAt, window)) {
		return false, nil
	}
	s.appendUnlocked(r)
	return true, nil
}

func (s *MemoryStore) FindByIdentifier(_ context.Context, identifier string) ([]Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Review
	for _, r := range s.reviews {
		if r.Identifier == identifier {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) ListCreatedBetween(_ context.Context, from, to time.Time) ([]Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Review
	for _, r := range s.reviews {
		if !r.CreatedAt.Before(from) && r.CreatedAt.Before(to) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) appendUnlocked(r Review) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Rating != nil {
		v := *r.Rating
		r.Rating = &v
	}
	s.reviews = append(s.reviews, r)
}
