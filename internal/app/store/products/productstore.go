// internal/app/store/products/productstore.go
package productstore

import (
	"context"
	"time"

	"github.com/dalemusser/stratastore/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store provides access to the products collection.
type Store struct {
	c *mongo.Collection
}

// New creates a new product store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("products")}
}

// Create inserts a product. ID and timestamps are filled in.
func (s *Store) Create(ctx context.Context, p models.Product) (models.Product, error) {
	now := time.Now()
	p.ID = primitive.NewObjectID()
	p.CreatedAt = now
	p.UpdatedAt = now
	if p.Files == nil {
		p.Files = []models.FileRef{}
	}
	if _, err := s.c.InsertOne(ctx, p); err != nil {
		return models.Product{}, err
	}
	return p, nil
}

// GetByID loads a product. Returns mongo.ErrNoDocuments if not found.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Product, error) {
	var p models.Product
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&p)
	return p, err
}

// UpdateInput contains the fields an update may change. Nil fields are left alone.
type UpdateInput struct {
	Title         *string
	Description   *string
	Image         *string
	SectionIDs    []primitive.ObjectID // nil = unchanged
	OriginalPrice *float64
	DiscountPrice *float64
	ClearDiscount bool
	Files         []models.FileRef // nil = unchanged
	IsActive      *bool
	IsFeatured    *bool
}

// Update applies input and returns the updated product.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, input UpdateInput) (models.Product, error) {
	set := bson.M{"updated_at": time.Now()}
	update := bson.M{}

	if input.Title != nil {
		set["title"] = *input.Title
	}
	if input.Description != nil {
		set["description"] = *input.Description
	}
	if input.Image != nil {
		set["image"] = *input.Image
	}
	if input.SectionIDs != nil {
		set["section_ids"] = input.SectionIDs
	}
	if input.OriginalPrice != nil {
		set["original_price"] = *input.OriginalPrice
	}
	if input.ClearDiscount {
		update["$unset"] = bson.M{"discount_price": ""}
	} else if input.DiscountPrice != nil {
		set["discount_price"] = *input.DiscountPrice
	}
	if input.Files != nil {
		set["files"] = input.Files
	}
	if input.IsActive != nil {
		set["is_active"] = *input.IsActive
	}
	if input.IsFeatured != nil {
		set["is_featured"] = *input.IsFeatured
	}
	update["$set"] = set

	var p models.Product
	err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&p)
	return p, err
}

// Delete removes a product. Returns mongo.ErrNoDocuments if nothing was deleted.
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
	Limit      int64
}

// List returns products newest first.
func (s *Store) List(ctx context.Context, f ListFilter) ([]models.Product, error) {
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

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if f.Limit > 0 {
		opts.SetLimit(f.Limit)
	}

	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	products := []models.Product{}
	if err := cur.All(ctx, &products); err != nil {
		return nil, err
	}
	return products, nil
}

// ListByIDs returns the products with the given ids in the order of ids.
// Missing ids are skipped.
func (s *Store) ListByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Product, error) {
	if len(ids) == 0 {
		return []models.Product{}, nil
	}
	cur, err := s.c.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var found []models.Product
	if err := cur.All(ctx, &found); err != nil {
		return nil, err
	}

	byID := make(map[primitive.ObjectID]models.Product, len(found))
	for _, p := range found {
		byID[p.ID] = p
	}
	out := make([]models.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

// CountBySection returns how many products are filed under a section.
func (s *Store) CountBySection(ctx context.Context, sectionID primitive.ObjectID) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"section_ids": sectionID})
}
