// Package sectionstore provides storage for catalog sections.
package sectionstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/stratastore/internal/app/store/storeutil"
	"github.com/dalemusser/stratastore/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrDuplicateSlug is returned when a write collides with the unique slug index.
var ErrDuplicateSlug = errors.New("section slug already exists")

// Store provides access to the sections collection.
type Store struct {
	c *mongo.Collection
}

// New creates a new section store.
func New(db *mongo.Database) *Store {
	return &Store{
		c: db.Collection("sections"),
	}
}

var sortByLevelAndOrder = bson.D{
	{Key: "level", Value: 1},
	{Key: "display_order", Value: 1},
	{Key: "name", Value: 1},
}

// Create inserts a section. ID and timestamps are filled in.
func (s *Store) Create(ctx context.Context, sec models.Section) (models.Section, error) {
	now := time.Now()
	sec.ID = primitive.NewObjectID()
	sec.CreatedAt = now
	sec.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, sec); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Section{}, ErrDuplicateSlug
		}
		return models.Section{}, err
	}
	return sec, nil
}

// GetByID retrieves a section by ID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Section, error) {
	var sec models.Section
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&sec)
	return sec, err
}

// GetBySlug retrieves a section by slug.
func (s *Store) GetBySlug(ctx context.Context, slug string) (models.Section, error) {
	var sec models.Section
	err := s.c.FindOne(ctx, bson.M{"slug": slug}).Decode(&sec)
	return sec, err
}

// UpdateInput contains the fields an update may change. Nil fields are left alone.
type UpdateInput struct {
	Name           *string
	Slug           *string
	Description    *string
	ParentID       *primitive.ObjectID
	ClearParent    bool // move to root; wins over ParentID
	Level          *int
	DisplayOrder   *int
	ShowInNavbar   *bool
	ShowInHomepage *bool
	IsActive       *bool
}

// Update applies input to the section with the given id.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, input UpdateInput) error {
	set := bson.M{"updated_at": time.Now()}
	update := bson.M{}

	if input.Name != nil {
		set["name"] = *input.Name
	}
	if input.Slug != nil {
		set["slug"] = *input.Slug
	}
	if input.Description != nil {
		set["description"] = *input.Description
	}
	if input.ClearParent {
		update["$unset"] = bson.M{"parent_id": ""}
	} else if input.ParentID != nil {
		set["parent_id"] = *input.ParentID
	}
	if input.Level != nil {
		set["level"] = *input.Level
	}
	if input.DisplayOrder != nil {
		set["display_order"] = *input.DisplayOrder
	}
	if input.ShowInNavbar != nil {
		set["show_in_navbar"] = *input.ShowInNavbar
	}
	if input.ShowInHomepage != nil {
		set["show_in_homepage"] = *input.ShowInHomepage
	}
	if input.IsActive != nil {
		set["is_active"] = *input.IsActive
	}
	update["$set"] = set

	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		if wafflemongo.IsDup(err) {
			return ErrDuplicateSlug
		}
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// Delete deletes a section.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) error {
	_, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

// List returns every section ordered by level then display order.
func (s *Store) List(ctx context.Context, activeOnly bool) ([]models.Section, error) {
	filter := bson.M{}
	if activeOnly {
		filter["is_active"] = true
	}

	cursor, err := s.c.Find(ctx, filter, options.Find().SetSort(sortByLevelAndOrder))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	sections := []models.Section{}
	if err := cursor.All(ctx, &sections); err != nil {
		return nil, err
	}
	return sections, nil
}

// ListByIDs returns the sections with the given ids, in no particular order.
func (s *Store) ListByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Section, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	cursor, err := s.c.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var sections []models.Section
	if err := cursor.All(ctx, &sections); err != nil {
		return nil, err
	}
	return sections, nil
}

// CountChildren returns the number of sections whose parent is id.
func (s *Store) CountChildren(ctx context.Context, id primitive.ObjectID) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"parent_id": id})
}

// SlugExists checks if a section already uses slug.
// Pass excludeID to ignore one section (useful for updates).
func (s *Store) SlugExists(ctx context.Context, slug string, excludeID *primitive.ObjectID) (bool, error) {
	filter := bson.M{"slug": slug}
	if excludeID != nil {
		filter["_id"] = bson.M{"$ne": *excludeID}
	}

	count, err := s.c.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// SetLevels writes new levels for the given sections.
func (s *Store) SetLevels(ctx context.Context, levels map[primitive.ObjectID]int) error {
	if len(levels) == 0 {
		return nil
	}
	now := time.Now()
	writes := make([]mongo.WriteModel, 0, len(levels))
	for id, level := range levels {
		writes = append(writes, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"_id": id}).
			SetUpdate(bson.M{"$set": bson.M{"level": level, "updated_at": now}}))
	}
	_, err := s.c.BulkWrite(ctx, writes, options.BulkWrite().SetOrdered(false))
	return err
}

// SetNavbar sets show_in_navbar on every listed section.
func (s *Store) SetNavbar(ctx context.Context, ids []primitive.ObjectID, show bool) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res, err := s.c.UpdateMany(ctx,
		bson.M{"_id": bson.M{"$in": ids}},
		bson.M{"$set": bson.M{"show_in_navbar": show, "updated_at": time.Now()}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// Reorder writes display orders as a concurrent batch.
func (s *Store) Reorder(ctx context.Context, positions []storeutil.Position) error {
	return storeutil.ApplyOrder(ctx, s.c, "display_order", positions)
}
