// internal/app/store/content/contentstore.go
package contentstore

import (
	"context"
	"time"

	"github.com/dalemusser/stratastore/internal/app/store/storeutil"
	"github.com/dalemusser/stratastore/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Item is a piece of page furniture kept in display order.
type Item interface {
	models.HeroSlide | models.FooterLink | models.SocialMedia
}

// Collection names.
const (
	HeroSlides  = "hero_slides"
	FooterLinks = "footer_links"
	SocialMedia = "social_media"
)

// Store provides access to one ordered content collection.
type Store[T Item] struct {
	c *mongo.Collection
}

// NewHeroSlides creates a store for homepage slides.
func NewHeroSlides(db *mongo.Database) *Store[models.HeroSlide] {
	return &Store[models.HeroSlide]{c: db.Collection(HeroSlides)}
}

// NewFooterLinks creates a store for footer links.
func NewFooterLinks(db *mongo.Database) *Store[models.FooterLink] {
	return &Store[models.FooterLink]{c: db.Collection(FooterLinks)}
}

// NewSocialMedia creates a store for social profile links.
func NewSocialMedia(db *mongo.Database) *Store[models.SocialMedia] {
	return &Store[models.SocialMedia]{c: db.Collection(SocialMedia)}
}

// List returns items by display order.
func (s *Store[T]) List(ctx context.Context, activeOnly bool) ([]T, error) {
	filter := bson.M{}
	if activeOnly {
		filter["is_active"] = true
	}
	opts := options.Find().SetSort(bson.D{{Key: "order", Value: 1}, {Key: "created_at", Value: 1}})

	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	items := []T{}
	if err := cur.All(ctx, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// GetByID loads one item. Returns mongo.ErrNoDocuments if not found.
func (s *Store[T]) GetByID(ctx context.Context, id primitive.ObjectID) (T, error) {
	var item T
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&item)
	return item, err
}

// Create inserts item and returns it as stored. A zero ID is generated by the database.
func (s *Store[T]) Create(ctx context.Context, item T) (T, error) {
	res, err := s.c.InsertOne(ctx, item)
	if err != nil {
		var zero T
		return zero, err
	}
	id, _ := res.InsertedID.(primitive.ObjectID)
	return s.GetByID(ctx, id)
}

// Update applies set to one item and returns the updated item.
// Returns mongo.ErrNoDocuments if not found.
func (s *Store[T]) Update(ctx context.Context, id primitive.ObjectID, set bson.M) (T, error) {
	if set == nil {
		set = bson.M{}
	}
	set["updated_at"] = time.Now()

	var item T
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&item)
	return item, err
}

// Delete removes one item. Returns mongo.ErrNoDocuments if not found.
func (s *Store[T]) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// Reorder writes new display positions.
func (s *Store[T]) Reorder(ctx context.Context, positions []storeutil.Position) error {
	return storeutil.ApplyOrder(ctx, s.c, "order", positions)
}

// Count returns the number of items in the collection.
func (s *Store[T]) Count(ctx context.Context) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{})
}

// Seed inserts defaults when the collection is empty and reports how many
// were inserted. A non-empty collection is left alone.
func (s *Store[T]) Seed(ctx context.Context, defaults []T) (int, error) {
	n, err := s.Count(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 || len(defaults) == 0 {
		return 0, nil
	}

	docs := make([]interface{}, len(defaults))
	for i := range defaults {
		docs[i] = defaults[i]
	}
	res, err := s.c.InsertMany(ctx, docs)
	if err != nil {
		return 0, err
	}
	return len(res.InsertedIDs), nil
}
