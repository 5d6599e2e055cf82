package storage

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	reviewsCollection    = "reviews"
	submittersCollection = "submitters"
)

// MongoStore keeps reviews in MongoDB. Besides the reviews collection it
// maintains one gate document per submitter holding the time of the last
// accepted submission; Submit claims the gate with a conditional upsert so
// that concurrent submissions by one submitter cannot both pass.
type MongoStore struct {
	client  *mongo.Client
	reviews *mongo.Collection
	gates   *mongo.Collection
	now     Clock
}

type submitterGate struct {
	SubmitterID     int64     `bson:"_id"`
	LastSubmittedAt time.Time `bson:"lastSubmittedAt"`
}

func NewMongoStore(ctx context.Context, uri, database string) (*MongoStore, error) {
	if uri == "" {
		return nil, errors.New("mongo uri is empty")
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}
	db := client.Database(database)
	s := &MongoStore{
		client:  client,
		reviews: db.Collection(reviewsCollection),
		gates:   db.Collection(submittersCollection),
		now:     utcNow,
	}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

// WithClock replaces the clock used by RecentSubmissionExists.
func (s *MongoStore) WithClock(c Clock) *MongoStore {
	s.now = c
	return s
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	_, err := s.reviews.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "identifier", Value: 1}, {Key: "timestamp", Value: -1}}},
		{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "timestamp", Value: -1}}},
		{Keys: bson.D{{Key: "timestamp", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create review indexes: %w", err)
	}
	return nil
}

func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func (s *MongoStore) RecentSubmissionExists(ctx context.Context, submitterID int64, window time.Duration) (bool, error) {
	filter := bson.M{"userId": submitterID, "timestamp": bson.M{"$gte": cutoff(s.now(), window)}}
	n, err := s.reviews.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("count recent reviews: %w", err)
	}
	return n > 0, nil
}

func (s *MongoStore) Append(ctx context.Context, r Review) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if _, err := s.reviews.InsertOne(ctx, r); err != nil {
		return fmt.Errorf("insert review: %w", err)
	}
	// Keep the gate in step with reviews written outside Submit.
	_, err := s.gates.UpdateOne(ctx,
		bson.M{"_id": r.SubmitterID},
		bson.M{"$max": bson.M{"lastSubmittedAt": r.CreatedAt}},
		options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("update submitter gate: %w", err)
	}
	return nil
}

func (s *MongoStore) Submit(ctx context.Context, r Review, window time.Duration) (bool, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	// BSON dates keep milliseconds; the gate is later matched by this value.
	r.CreatedAt = r.CreatedAt.Truncate(time.Millisecond)
	filter := bson.M{"_id": r.SubmitterID, "lastSubmittedAt": bson.M{"$lt": cutoff(r.CreatedAt, window)}}
	update := bson.M{"$set": bson.M{"lastSubmittedAt": r.CreatedAt}}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.Before)

	var prev submitterGate
	err := s.gates.FindOneAndUpdate(ctx, filter, update, opts).Decode(&prev)
	hadGate := true
	switch {
	case mongo.IsDuplicateKeyError(err):
		// The gate exists and is younger than the window.
		return false, nil
	case errors.Is(err, mongo.ErrNoDocuments):
		hadGate = false
	case err != nil:
		return false, fmt.Errorf("claim submitter gate: %w", err)
	}

	if !hadGate {
		// A fresh gate knows nothing about reviews written before gates
		// existed, so those still count towards the cooldown.
		blocked, err := s.adoptLegacyReview(ctx, r, window)
		if err != nil || blocked {
			return false, err
		}
	}

	if _, err := s.reviews.InsertOne(ctx, r); err != nil {
		s.releaseGate(r, prev, hadGate)
		return false, fmt.Errorf("insert review: %w", err)
	}
	return true, nil
}

// adoptLegacyReview looks for a review by r.SubmitterID inside the window
// that was stored without a gate. When one exists the freshly claimed gate is
// moved back to that review's time and the submission is blocked.
func (s *MongoStore) adoptLegacyReview(ctx context.Context, r Review, window time.Duration) (bool, error) {
	filter := bson.M{"userId": r.SubmitterID, "timestamp": bson.M{"$gte": cutoff(r.CreatedAt, window)}}
	opts := options.FindOne().SetSort(bson.D{{Key: "timestamp", Value: -1}})

	var latest Review
	err := s.reviews.FindOne(ctx, filter, opts).Decode(&latest)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	if err != nil {
		s.releaseGate(r, submitterGate{}, false)
		return false, fmt.Errorf("find recent review: %w", err)
	}

	_, err = s.gates.UpdateOne(ctx,
		bson.M{"_id": r.SubmitterID, "lastSubmittedAt": r.CreatedAt},
		bson.M{"$set": bson.M{"lastSubmittedAt": latest.CreatedAt}})
	if err != nil {
		log.Printf("⚠️ failed to backdate submitter gate for %d: %v", r.SubmitterID, err)
	}
	return true, nil
}

// releaseGate undoes a gate claim whose review could not be written.
func (s *MongoStore) releaseGate(r Review, prev submitterGate, hadGate bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	filter := bson.M{"_id": r.SubmitterID, "lastSubmittedAt": r.CreatedAt}
	var err error
	if hadGate {
		_, err = s.gates.UpdateOne(ctx, filter, bson.M{"$set": bson.M{"lastSubmittedAt": prev.LastSubmittedAt}})
	} else {
		_, err = s.gates.DeleteOne(ctx, filter)
	}
	if err != nil {
		log.Printf("⚠️ failed to release submitter gate for %d: %v", r.SubmitterID, err)
	}
}

func (s *MongoStore) FindByIdentifier(ctx context.Context, identifier string) ([]Review, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}})
	return s.find(ctx, bson.M{"identifier": identifier}, opts)
}

func (s *MongoStore) ListCreatedBetween(ctx context.Context, from, to time.Time) ([]Review, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}})
	return s.find(ctx, bson.M{"timestamp": bson.M{"$gte": from, "$lt": to}}, opts)
}

func (s *MongoStore) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]Review, error) {
	cur, err := s.reviews.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find reviews: %w", err)
	}
	var out []Review
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode reviews: %w", err)
	}
	for i := range out {
		out[i].CreatedAt = out[i].CreatedAt.UTC()
	}
	return out, nil
}
