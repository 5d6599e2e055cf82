package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type storeFactory func(t *testing.T, clock Clock) Store

func storeFactories() map[string]storeFactory {
	return map[string]storeFactory{
		"memory": func(t *testing.T, clock Clock) Store {
			return NewMemoryStore().WithClock(clock)
		},
		"file": func(t *testing.T, clock Clock) Store {
			s, err := NewFileStore(filepath.Join(t.TempDir(), "reviews.jsonl"))
			require.NoError(t, err)
			return s.WithClock(clock)
		},
		"sqlite": func(t *testing.T, clock Clock) Store {
			s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "reviews.db"))
			require.NoError(t, err)
			t.Cleanup(func() { _ = s.Close() })
			return s.WithClock(clock)
		},
		"mongo": func(t *testing.T, clock Clock) Store {
			return newTestMongoStore(t).WithClock(clock)
		},
	}
}

func newTestMongoStore(t *testing.T) *MongoStore {
	t.Helper()
	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		t.Skip("MONGO_TEST_URI not set")
	}
	ctx := context.Background()
	db := fmt.Sprintf("reviews_test_%d", time.Now().UnixNano())
	s, err := NewMongoStore(ctx, uri, db)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = s.reviews.Database().Drop(context.Background())
		_ = s.Close()
	})
	return s
}

func forEachStore(t *testing.T, clock Clock, fn func(t *testing.T, s Store)) {
	for name, factory := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			fn(t, factory(t, clock))
		})
	}
}

func review(identifier string, submitter int64, rating *int, comment string, at time.Time) Review {
	return Review{Identifier: identifier, SubmitterID: submitter, Rating: rating, Comment: comment, CreatedAt: at}
}

func TestStore_CooldownPerSubmitterGlobal(t *testing.T) {
	ctx := context.Background()
	forEachStore(t, func() time.Time { return baseTime }, func(t *testing.T, s Store) {
		ok, err := s.Submit(ctx, review("AB1234CD", 7, IntRating(5), "", baseTime), DefaultCooldown)
		require.NoError(t, err)
		require.True(t, ok)

		// Same submitter, a different identifier, one hour later: still blocked.
		ok, err = s.Submit(ctx, review("1234", 7, IntRating(4), "", baseTime.Add(time.Hour)), DefaultCooldown)
		require.NoError(t, err)
		require.False(t, ok, "cooldown is scoped to the submitter, not the identifier")

		// Other submitters are unaffected.
		ok, err = s.Submit(ctx, review("AB1234CD", 8, IntRating(3), "", baseTime.Add(time.Hour)), DefaultCooldown)
		require.NoError(t, err)
		require.True(t, ok)

		ok, err = s.Submit(ctx, review("AB1234CD", 7, IntRating(2), "", baseTime.Add(4*time.Hour+time.Minute)), DefaultCooldown)
		require.NoError(t, err)
		require.True(t, ok)

		got, err := s.FindByIdentifier(ctx, "AB1234CD")
		require.NoError(t, err)
		require.Len(t, got, 3)
		got, err = s.FindByIdentifier(ctx, "1234")
		require.NoError(t, err)
		require.Empty(t, got)
	})
}

func TestStore_RecentSubmissionExists(t *testing.T) {
	ctx := context.Background()
	now := baseTime
	var mu sync.Mutex
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	forEachStore(t, clock, func(t *testing.T, s Store) {
		mu.Lock()
		now = baseTime
		mu.Unlock()

		require.NoError(t, s.Append(ctx, review("AB1234CD", 1, IntRating(5), "", baseTime)))

		recent, err := s.RecentSubmissionExists(ctx, 1, DefaultCooldown)
		require.NoError(t, err)
		require.True(t, recent)

		recent, err = s.RecentSubmissionExists(ctx, 2, DefaultCooldown)
		require.NoError(t, err)
		require.False(t, recent)

		mu.Lock()
		now = baseTime.Add(time.Hour)
		mu.Unlock()
		recent, err = s.RecentSubmissionExists(ctx, 1, DefaultCooldown)
		require.NoError(t, err)
		require.True(t, recent)

		mu.Lock()
		now = baseTime.Add(4*time.Hour + time.Minute)
		mu.Unlock()
		recent, err = s.RecentSubmissionExists(ctx, 1, DefaultCooldown)
		require.NoError(t, err)
		require.False(t, recent)
	})
}

func TestStore_FindByIdentifierNewestFirst(t *testing.T) {
	ctx := context.Background()
	forEachStore(t, utcNow, func(t *testing.T, s Store) {
		for i, c := range []string{"first", "second", "third"} {
			require.NoError(t, s.Append(ctx, review("@HANDLE", int64(i+1), IntRating(i+1), c, baseTime.Add(time.Duration(i)*time.Minute))))
		}
		require.NoError(t, s.Append(ctx, review("OTHER", 9, nil, "elsewhere", baseTime)))

		got, err := s.FindByIdentifier(ctx, "@HANDLE")
		require.NoError(t, err)
		require.Len(t, got, 3)
		require.Equal(t, "third", got[0].Comment)
		require.Equal(t, "first", got[2].Comment)
		require.NotEmpty(t, got[0].ID)
		require.Equal(t, 3, *got[0].Rating)
	})
}

func TestStore_OptionalRating(t *testing.T) {
	ctx := context.Background()
	forEachStore(t, utcNow, func(t *testing.T, s Store) {
		require.NoError(t, s.Append(ctx, review("1234", 1, nil, "no stars", baseTime)))
		got, err := s.FindByIdentifier(ctx, "1234")
		require.NoError(t, err)
		require.Len(t, got, 1)
		require.Nil(t, got[0].Rating)
		require.Equal(t, "no stars", got[0].Comment)
	})
}

func TestStore_ListCreatedBetween(t *testing.T) {
	ctx := context.Background()
	forEachStore(t, utcNow, func(t *testing.T, s Store) {
		require.NoError(t, s.Append(ctx, review("A", 1, nil, "", baseTime.Add(-time.Hour))))
		require.NoError(t, s.Append(ctx, review("B", 2, nil, "", baseTime.Add(2*time.Hour))))
		require.NoError(t, s.Append(ctx, review("C", 3, nil, "", baseTime)))
		require.NoError(t, s.Append(ctx, review("D", 4, nil, "", baseTime.Add(24*time.Hour))))

		got, err := s.ListCreatedBetween(ctx, baseTime, baseTime.Add(24*time.Hour))
		require.NoError(t, err)
		require.Len(t, got, 2)
		require.Equal(t, "C", got[0].Identifier)
		require.Equal(t, "B", got[1].Identifier)
	})
}

func TestStore_ConcurrentSubmitSameSubmitter(t *testing.T) {
	ctx := context.Background()
	forEachStore(t, utcNow, func(t *testing.T, s Store) {
		const n = 16
		var (
			wg       sync.WaitGroup
			mu       sync.Mutex
			accepted int
		)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				ok, err := s.Submit(ctx, review("AB1234CD", 42, IntRating(5), "", baseTime.Add(time.Duration(i)*time.Millisecond)), DefaultCooldown)
				if err != nil {
					t.Errorf("submit: %v", err)
					return
				}
				if ok {
					mu.Lock()
					accepted++
					mu.Unlock()
				}
			}(i)
		}
		wg.Wait()

		require.Equal(t, 1, accepted)
		got, err := s.FindByIdentifier(ctx, "AB1234CD")
		require.NoError(t, err)
		require.Len(t, got, 1)
	})
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), Options{Driver: "postgres"})
	require.ErrorIs(t, err, ErrUnknownDriver)
}

func TestOpen_Memory(t *testing.T) {
	s, err := Open(context.Background(), Options{Driver: DriverMemory})
	require.NoError(t, err)
	require.IsType(t, &MemoryStore{}, s)
}
