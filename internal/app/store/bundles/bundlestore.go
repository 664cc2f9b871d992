// internal/app/store/bundles/bundlestore.go
package bundlestore

import (
	"context"
	"time"

	"github.com/dalemusser/stratastore/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store provides access to the bundles collection.
type Store struct {
	c *mongo.Collection
}

// New creates a new bundle store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("bundles")}
}

// Create inserts a bundle. ID and timestamps are filled in.
func (s *Store) Create(ctx context.Context, b models.Bundle) (models.Bundle, error) {
	now := time.Now()
	b.ID = primitive.NewObjectID()
	b.CreatedAt = now
	b.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, b); err != nil {
		return models.Bundle{}, err
	}
	return b, nil
}

// GetByID loads a bundle. Returns mongo.ErrNoDocuments if not found.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Bundle, error) {
	var b models.Bundle
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&b)
	return b, err
}

// UpdateInput contains the fields an update may change. Nil fields are left alone.
type UpdateInput struct {
	Name          *string
	Description   *string
	Image         *string
	OriginalPrice *float64
	DiscountPrice *float64
	ClearDiscount bool
	ProductIDs    []primitive.ObjectID // nil = unchanged
	SectionIDs    []primitive.ObjectID // nil = unchanged, empty = clear
	IsActive      *bool
	IsFeatured    *bool
}

// Update applies input and returns the updated bundle.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, input UpdateInput) (models.Bundle, error) {
	set := bson.M{"updated_at": time.Now()}
	unset := bson.M{}

	if input.Name != nil {
		set["name"] = *input.Name
	}
	if input.Description != nil {
		set["description"] = *input.Description
	}
	if input.Image != nil {
		set["image"] = *input.Image
	}
	if input.OriginalPrice != nil {
		set["original_price"] = *input.OriginalPrice
	}
	if input.ClearDiscount {
		unset["discount_price"] = ""
	} else if input.DiscountPrice != nil {
		set["discount_price"] = *input.DiscountPrice
	}
	if input.ProductIDs != nil {
		set["product_ids"] = input.ProductIDs
	}
	if input.SectionIDs != nil {
		if len(input.SectionIDs) == 0 {
			unset["section_ids"] = ""
		} else {
			set["section_ids"] = input.SectionIDs
		}
	}
	if input.IsActive != nil {
		set["is_active"] = *input.IsActive
	}
	if input.IsFeatured != nil {
		set["is_featured"] = *input.IsFeatured
	}

	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}

	var b models.Bundle
	err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&b)
	return b, err
}

// Delete removes a bundle. Returns mongo.ErrNoDocuments if nothing was deleted.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// ListFilter narrows List results.
type ListFilter struct {
	SectionID  *primitive.ObjectID
	Featured   *bool
	ActiveOnly bool
}

// List returns bundles newest first.
func (s *Store) List(ctx context.Context, f ListFilter) ([]models.Bundle, error) {
	filter := bson.M{}
	if f.SectionID != nil {
		filter["section_ids"] = *f.SectionID
	}
	if f.Featured != nil {
		filter["is_featured"] = *f.Featured
	}
	if f.ActiveOnly {
		filter["is_active"] = true
	}

	cur, err := s.c.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	bundles := []models.Bundle{}
	if err := cur.All(ctx, &bundles); err != nil {
		return nil, err
	}
	return bundles, nil
}

// CountBySection returns how many bundles are filed under a section.
func (s *Store) CountBySection(ctx context.Context, sectionID primitive.ObjectID) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"section_ids": sectionID})
}

// CountByProduct returns how many bundles contain a product.
func (s *Store) CountByProduct(ctx context.Context, productID primitive.ObjectID) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"product_ids": productID})
}
