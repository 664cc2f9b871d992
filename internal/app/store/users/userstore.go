// Package userstore persists back-office accounts and resolves them for
// session checks.
package userstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/stratastore/internal/app/system/auth"
	"github.com/dalemusser/stratastore/internal/app/system/normalize"
	"github.com/dalemusser/stratastore/internal/app/system/timeouts"
	"github.com/dalemusser/stratastore/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// ErrDuplicateEmail is returned by Create when the email is taken.
var ErrDuplicateEmail = errors.New("a user with this email already exists")

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("users")}
}

// FindByEmail returns the account for email. A non-empty method also
// requires that sign-in method. Missing accounts yield mongo.ErrNoDocuments.
func (s *Store) FindByEmail(ctx context.Context, email, method string) (models.User, error) {
	filter := bson.M{"email": normalize.Email(email)}
	if method != "" {
		filter["auth_method"] = method
	}
	var u models.User
	err := s.c.FindOne(ctx, filter).Decode(&u)
	return u, err
}

// Exists reports whether any account uses email.
func (s *Store) Exists(ctx context.Context, email string) (bool, error) {
	n, err := s.c.CountDocuments(ctx, bson.M{"email": normalize.Email(email)}, options.Count().SetLimit(1))
	return n > 0, err
}

// Create normalizes and validates u, then inserts it. Status defaults to
// active.
func (s *Store) Create(ctx context.Context, u models.User) (models.User, error) {
	u.FullName = normalize.Name(u.FullName)
	u.FullNameCI = text.Fold(u.FullName)
	u.Email = normalize.Email(u.Email)
	u.AuthMethod = normalize.Token(u.AuthMethod)
	u.Role = normalize.Token(u.Role)
	if u.Status == "" {
		u.Status = models.StatusActive
	}

	switch {
	case !models.IsValidRole(u.Role):
		return models.User{}, fmt.Errorf("invalid role %q", u.Role)
	case !models.IsValidStatus(u.Status):
		return models.User{}, fmt.Errorf("invalid status %q", u.Status)
	case !models.IsValidAuthMethod(u.AuthMethod):
		return models.User{}, fmt.Errorf("invalid auth method %q", u.AuthMethod)
	}

	u.ID = primitive.NewObjectID()
	u.CreatedAt = time.Now().UTC()
	u.UpdatedAt = u.CreatedAt

	if _, err := s.c.InsertOne(ctx, u); err != nil {
		if wafflemongo.IsDup(err) {
			return models.User{}, ErrDuplicateEmail
		}
		return models.User{}, err
	}
	return u, nil
}

// Sessions adapts the store to auth.UserFetcher so every request sees the
// account's current role and status.
func (s *Store) Sessions(logger *zap.Logger) auth.UserFetcher {
	return sessionFetcher{s: s, logger: logger}
}

type sessionFetcher struct {
	s      *Store
	logger *zap.Logger
}

var sessionProjection = bson.M{"full_name": 1, "email": 1, "role": 1, "status": 1}

func (f sessionFetcher) FetchUser(ctx context.Context, userID string) *auth.SessionUser {
	id, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, timeouts.Query())
	defer cancel()

	var u models.User
	err = f.s.c.FindOne(ctx, bson.M{"_id": id}, options.FindOne().SetProjection(sessionProjection)).Decode(&u)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return nil
	case err != nil:
		f.logger.Warn("session user lookup failed", zap.String("user_id", userID), zap.Error(err))
		return nil
	case u.Disabled():
		return nil
	}
	return &auth.SessionUser{ID: userID, Name: u.FullName, Email: u.Email, Role: u.Role}
}
