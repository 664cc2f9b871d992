// Package oauthstate issues and redeems the one-time state tokens that tie
// a Google OAuth callback to the redirect that started it.
package oauthstate

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// TTL is how long a sign-in may take between redirect and callback.
const TTL = 10 * time.Minute

const tokenBytes = 32

type pending struct {
	Token     string    `bson:"state"`
	ReturnTo  string    `bson:"return_to,omitempty"`
	ExpiresAt time.Time `bson:"expires_at"` // TTL index
	CreatedAt time.Time `bson:"created_at"`
}

// Store keeps pending sign-ins in oauth_states.
type Store struct {
	c   *mongo.Collection
	now func() time.Time
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("oauth_states"), now: time.Now}
}

// Issue stores a fresh random token remembering returnTo and returns it.
// Tokens are URL-safe without escaping.
func (s *Store) Issue(ctx context.Context, returnTo string) (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	token := base64.RawURLEncoding.EncodeToString(b)

	now := s.now().UTC()
	if _, err := s.c.InsertOne(ctx, pending{
		Token:     token,
		ReturnTo:  returnTo,
		ExpiresAt: now.Add(TTL),
		CreatedAt: now,
	}); err != nil {
		return "", err
	}
	return token, nil
}

// Redeem deletes token and returns its returnTo. ok is false for unknown,
// expired or already-redeemed tokens.
func (s *Store) Redeem(ctx context.Context, token string) (returnTo string, ok bool) {
	if token == "" {
		return "", false
	}
	var p pending
	err := s.c.FindOneAndDelete(ctx, bson.M{
		"state":      token,
		"expires_at": bson.M{"$gt": s.now().UTC()},
	}).Decode(&p)
	if err != nil {
		return "", false
	}
	return p.ReturnTo, true
}

// Purge deletes expired tokens. The TTL index does this on MongoDB; the
// cleanup job calls Purge for deployments without TTL support.
func (s *Store) Purge(ctx context.Context) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"expires_at": bson.M{"$lt": s.now().UTC()}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
