// Package ratelimit keeps per-identifier attempt counters in MongoDB with a
// fixed window and a lockout once the window's budget is spent.
package ratelimit

import (
	"context"
	"errors"
	"regexp"
	"time"

	"github.com/dalemusser/stratastore/internal/app/system/normalize"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Scopes keep counters for different actions apart.
const (
	ScopeAdminLogin  = "admin-login"
	ScopeVerifyEmail = "verify-email"
)

// Attempt is the stored counter for one scoped key.
type Attempt struct {
	Key         string     `bson:"key"` // scope:identifier
	Count       int        `bson:"attempt_count"`
	WindowStart time.Time  `bson:"window_start"`
	LockedUntil *time.Time `bson:"locked_until"`
	LastAttempt time.Time  `bson:"last_attempt"` // TTL field
	CreatedAt   time.Time  `bson:"created_at"`
	UpdatedAt   time.Time  `bson:"updated_at"`
}

// Decision is the limiter's answer for one identifier.
type Decision struct {
	Allowed     bool
	Remaining   int        // attempts left in the window; 0 when refused
	LockedUntil *time.Time // set while locked out
}

// Store counts attempts within one scope. Database errors fail open.
type Store struct {
	c       *mongo.Collection
	scope   string
	max     int
	window  time.Duration
	lockout time.Duration
	now     func() time.Time
}

func New(db *mongo.Database, scope string, maxAttempts int, window, lockout time.Duration) *Store {
	return &Store{
		c:       db.Collection("rate_limits"),
		scope:   scope,
		max:     maxAttempts,
		window:  window,
		lockout: lockout,
		now:     time.Now,
	}
}

func (s *Store) key(id string) string { return s.scope + ":" + normalize.Token(id) }

func (s *Store) decide(a Attempt, now time.Time) Decision {
	if a.LockedUntil != nil && now.Before(*a.LockedUntil) {
		return Decision{LockedUntil: a.LockedUntil}
	}
	if a.WindowStart.IsZero() || now.Sub(a.WindowStart) > s.window {
		return Decision{Allowed: true, Remaining: s.max}
	}
	left := s.max - a.Count
	return Decision{Allowed: left > 0, Remaining: max(left, 0)}
}

// Check reports whether id may try now without counting an attempt.
func (s *Store) Check(ctx context.Context, id string) Decision {
	a, err := s.Peek(ctx, id)
	if err != nil || a == nil {
		return Decision{Allowed: true, Remaining: s.max}
	}
	return s.decide(*a, s.now())
}

// Hit counts one attempt for id and returns the state after it. The update
// runs as a single server-side pipeline so concurrent hits are not lost.
func (s *Store) Hit(ctx context.Context, id string) Decision {
	now := s.now().UTC()
	// Compared before this update's $set applies, so both stages agree.
	fresh := bson.M{"$lt": bson.A{bson.M{"$ifNull": bson.A{"$window_start", time.Time{}}}, now.Add(-s.window)}}

	pipeline := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"attempt_count": bson.M{"$cond": bson.A{fresh, 1, bson.M{"$add": bson.A{"$attempt_count", 1}}}},
			"window_start":  bson.M{"$cond": bson.A{fresh, now, "$window_start"}},
			"locked_until":  bson.M{"$cond": bson.A{fresh, nil, bson.M{"$ifNull": bson.A{"$locked_until", nil}}}},
			"created_at":    bson.M{"$ifNull": bson.A{"$created_at", now}},
			"last_attempt":  now,
			"updated_at":    now,
		}}},
		{{Key: "$set", Value: bson.M{
			"locked_until": bson.M{"$cond": bson.A{
				bson.M{"$gte": bson.A{"$attempt_count", s.max}},
				now.Add(s.lockout),
				"$locked_until",
			}},
		}}},
	}

	var a Attempt
	err := s.c.FindOneAndUpdate(ctx, bson.M{"key": s.key(id)}, pipeline,
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)).Decode(&a)
	if err != nil {
		return Decision{Allowed: true, Remaining: s.max}
	}
	return s.decide(a, now)
}

// Allow checks then counts, for actions where every attempt is charged
// (sending a verification email), not only failures.
func (s *Store) Allow(ctx context.Context, id string) (bool, *time.Time) {
	if d := s.Check(ctx, id); !d.Allowed {
		return false, d.LockedUntil
	}
	s.Hit(ctx, id)
	return true, nil
}

// Reset forgets id's counter, e.g. after a successful sign-in.
func (s *Store) Reset(ctx context.Context, id string) error {
	_, err := s.c.DeleteOne(ctx, bson.M{"key": s.key(id)})
	return err
}

// Peek returns id's stored counter, or nil when there is none.
func (s *Store) Peek(ctx context.Context, id string) (*Attempt, error) {
	var a Attempt
	err := s.c.FindOne(ctx, bson.M{"key": s.key(id)}).Decode(&a)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Purge deletes this scope's counters that have been idle longer than idle
// and are not holding a lockout.
func (s *Store) Purge(ctx context.Context, idle time.Duration) (int64, error) {
	now := s.now().UTC()
	res, err := s.c.DeleteMany(ctx, bson.M{
		"key":          bson.M{"$regex": "^" + regexp.QuoteMeta(s.scope+":")},
		"last_attempt": bson.M{"$lt": now.Add(-idle)},
		"$or": bson.A{
			bson.M{"locked_until": nil},
			bson.M{"locked_until": bson.M{"$lt": now}},
		},
	})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
