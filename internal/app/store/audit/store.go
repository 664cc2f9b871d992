// Package audit stores the security and business trail: admin sign-ins,
// catalog edits and payment callbacks.
package audit

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CategoryAuth     = "auth"
	CategoryAdmin    = "admin"
	CategoryPurchase = "purchase"
)

// Auth events.
const (
	EventLoginSuccess             = "login_success"
	EventLoginFailedUserNotFound  = "login_failed_user_not_found"
	EventLoginFailedWrongPassword = "login_failed_wrong_password"
	EventLoginFailedUserDisabled  = "login_failed_user_disabled"
	EventLoginRateLimited         = "login_rate_limited"
	EventLogout                   = "logout"
)

// Admin events.
const (
	EventContentCreated = "content_created"
	EventContentUpdated = "content_updated"
	EventContentDeleted = "content_deleted"
	EventOrderResent    = "order_resent"
	EventCacheCleared   = "cache_revalidated"
)

// Purchase events. Subject is the gateway order id.
const (
	EventPaymentAccepted = "payment_accepted"
	EventPaymentRejected = "payment_rejected"
	EventDeliveryFailed  = "delivery_failed"
)

// MaxPage caps how many events Find returns at once.
const MaxPage = 200

type Event struct {
	ID            primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	CreatedAt     time.Time           `bson:"created_at" json:"createdAt"`
	Category      string              `bson:"category" json:"category"`
	EventType     string              `bson:"event_type" json:"eventType"`
	ActorID       *primitive.ObjectID `bson:"actor_id,omitempty" json:"actorId,omitempty"`
	Subject       string              `bson:"subject,omitempty" json:"subject,omitempty"` // email, entity id or gateway order id
	IP            string              `bson:"ip" json:"ip"`
	UserAgent     string              `bson:"user_agent,omitempty" json:"userAgent,omitempty"`
	Success       bool                `bson:"success" json:"success"`
	FailureReason string              `bson:"failure_reason,omitempty" json:"failureReason,omitempty"`
	Details       map[string]string   `bson:"details,omitempty" json:"details,omitempty"`
}

// Filter narrows Find and Count. Zero fields match everything.
type Filter struct {
	Category  string
	EventType string
	Subject   string
	ActorID   *primitive.ObjectID
	Since     time.Time
	Limit     int64
	Skip      int64
}

func (f Filter) query() bson.M {
	q := bson.M{}
	for field, v := range map[string]string{
		"category":   f.Category,
		"event_type": f.EventType,
		"subject":    f.Subject,
	} {
		if v != "" {
			q[field] = v
		}
	}
	if f.ActorID != nil {
		q["actor_id"] = *f.ActorID
	}
	if !f.Since.IsZero() {
		q["created_at"] = bson.M{"$gte": f.Since}
	}
	return q
}

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("audit_logs")}
}

// Insert stores e, stamping an id and time when absent.
func (s *Store) Insert(ctx context.Context, e Event) error {
	if e.ID.IsZero() {
		e.ID = primitive.NewObjectID()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	_, err := s.c.InsertOne(ctx, e)
	return err
}

// Find returns matching events newest first. Limit defaults to 50 and is
// capped at MaxPage.
func (s *Store) Find(ctx context.Context, f Filter) ([]Event, error) {
	limit := f.Limit
	switch {
	case limit <= 0:
		limit = 50
	case limit > MaxPage:
		limit = MaxPage
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(f.Skip).
		SetLimit(limit)

	cur, err := s.c.Find(ctx, f.query(), opts)
	if err != nil {
		return nil, err
	}
	events := []Event{}
	if err := cur.All(ctx, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// Count returns how many events match f, ignoring Limit and Skip.
func (s *Store) Count(ctx context.Context, f Filter) (int64, error) {
	return s.c.CountDocuments(ctx, f.query())
}
