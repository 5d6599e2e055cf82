package storage

import (
	"context"
	"errors"
	"time"
)

// DefaultCooldown is the minimum interval between two submissions by the
// same submitter.
const DefaultCooldown = 4 * time.Hour

var ErrUnknownDriver = errors.New("unknown store driver")

// Review is a single rating/comment left for an identifier.
// Records are immutable once stored; the store is append-only.
type Review struct {
	ID          string    `json:"id" bson:"_id"`
	Identifier  string    `json:"identifier" bson:"identifier"`
	Rating      *int      `json:"rating,omitempty" bson:"rating,omitempty"`
	Comment     string    `json:"review" bson:"review"`
	SubmitterID int64     `json:"user_id" bson:"userId"`
	CreatedAt   time.Time `json:"timestamp" bson:"timestamp"`
}

// Store abstracts persistence of reviews.
// Implementations must be safe for concurrent use.
// FindByIdentifier returns records newest-first, ListCreatedBetween
// oldest-first.
type Store interface {
	// RecentSubmissionExists reports whether submitterID stored a review
	// within the last window.
	RecentSubmissionExists(ctx context.Context, submitterID int64, window time.Duration) (bool, error)
	Append(ctx context.Context, r Review) error
	FindByIdentifier(ctx context.Context, identifier string) ([]Review, error)
	// Submit appends r unless the same submitter already has a record created
	// at or after r.CreatedAt-window. The check and the write are atomic.
	// It returns false when the submission was blocked by the cooldown.
	Submit(ctx context.Context, r Review, window time.Duration) (bool, error)
	ListCreatedBetween(ctx context.Context, from, to time.Time) ([]Review, error)
	Close() error
}

// Clock returns the current time. Stores use it for cooldown queries.
type Clock func() time.Time

func utcNow() time.Time { return time.Now().UTC() }

// IntRating is a helper for building reviews with a rating.
func IntRating(v int) *int { return &v }

func cutoff(at time.Time, window time.Duration) time.Time {
	return at.Add(-window)
}
