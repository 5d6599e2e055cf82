package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// FileStore appends reviews to a JSON-lines file. Queries scan the whole
// file, which is fine for the volumes a single bot produces.
type FileStore struct {
	path string
	mu   sync.Mutex
	now  Clock
}

func NewFileStore(path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to ensure reviews dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to init reviews file: %w", err)
	}
	_ = f.Close()
	return &FileStore{path: path, now: utcNow}, nil
}

// WithClock replaces the clock used by RecentSubmissionExists.
func (s *FileStore) WithClock(c Clock) *FileStore {
	s.now = c
	return s
}

func (s *FileStore) RecentSubmissionExists(_ context.Context, submitterID int64, window time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	reviews, err := s.loadUnlocked()
	if err != nil {
		return false, err
	}
	return hasRecent(reviews, submitterID, cutoff(s.now(), window)), nil
}

func (s *FileStore) Append(_ context.Context, r Review) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendUnlocked(r)
}

func (s *FileStore) Submit(_ context.Context, r Review, window time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	reviews, err := s.loadUnlocked()
	if err != nil {
		return false, err
	}
	if hasRecent(reviews, r.SubmitterID, cutoff(r.CreatedAt, window)) {
		return false, nil
	}
	if err := s.appendUnlocked(r); err != nil {
		return false, err
	}
	return true, nil
}

func (s *FileStore) FindByIdentifier(_ context.Context, identifier string) ([]Review, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	reviews, err := s.loadUnlocked()
	if err != nil {
		return nil, err
	}
	var out []Review
	for _, r := range reviews {
		if r.Identifier == identifier {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *FileStore) ListCreatedBetween(_ context.Context, from, to time.Time) ([]Review, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	reviews, err := s.loadUnlocked()
	if err != nil {
		return nil, err
	}
	var out []Review
	for _, r := range reviews {
		if !r.CreatedAt.Before(from) && r.CreatedAt.Before(to) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *FileStore) Close() error { return nil }

func (s *FileStore) appendUnlocked(r Review) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open append: %w", err)
	}
	defer func(f *os.File) {
		if err := f.Close(); err != nil {
			log.Printf("failed to close reviews file: %v", err)
		}
	}(f)
	enc := json.NewEncoder(f)
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encode append: %w", err)
	}
	return nil
}

func (s *FileStore) loadUnlocked() ([]Review, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open read: %w", err)
	}
	defer func(f *os.File) {
		_ = f.Close()
	}(f)
	sc := bufio.NewScanner(f)
	buf := make([]byte, 0, 1024*1024)
	sc.Buffer(buf, 10*1024*1024)
	var reviews []Review
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var r Review
		if err := json.Unmarshal(line, &r); err != nil {
			continue
		}
		reviews = append(reviews, r)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}
	return reviews, nil
}

func hasRecent(reviews []Review, submitterID int64, since time.Time) bool {
	for _, r := range reviews {
		if r.SubmitterID == submitterID && !r.CreatedAt.Before(since) {
			return true
		}
	}
	return false
}
