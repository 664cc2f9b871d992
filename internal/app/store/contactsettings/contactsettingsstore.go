// internal/app/store/contactsettings/contactsettingsstore.go
package contactsettingsstore

import (
	"context"
	"time"

	"github.com/dalemusser/stratastore/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Defaults returned before contact settings have ever been saved.
const (
	DefaultEmail         = "support@example.com"
	DefaultBusinessHours = "Mon-Fri, 10am-6pm"
)

// Store provides access to the contact_settings collection.
// There is only one contact settings document.
type Store struct {
	c *mongo.Collection
}

// New creates a new contact settings store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("contact_settings")}
}

// Get returns the contact settings, or defaults if none exist.
func (s *Store) Get(ctx context.Context) (models.ContactSettings, error) {
	var cs models.ContactSettings
	err := s.c.FindOne(ctx, bson.M{"singleton": true}).Decode(&cs)
	if err == mongo.ErrNoDocuments {
		return models.ContactSettings{
			Email:         DefaultEmail,
			BusinessHours: DefaultBusinessHours,
		}, nil
	}
	if err != nil {
		return models.ContactSettings{}, err
	}
	return cs, nil
}

// Save replaces the contact settings, creating them on first save.
func (s *Store) Save(ctx context.Context, cs models.ContactSettings) (models.ContactSettings, error) {
	update := bson.M{
		"$set": bson.M{
			"singleton":      true,
			"email":          cs.Email,
			"phone":          cs.Phone,
			"address":        cs.Address,
			"whatsapp":       cs.WhatsApp,
			"business_hours": cs.BusinessHours,
			"updated_at":     time.Now().UTC(),
		},
		"$setOnInsert": bson.M{
			"_id": primitive.NewObjectID(),
		},
	}

	var saved models.ContactSettings
	err := s.c.FindOneAndUpdate(ctx, bson.M{"singleton": true}, update,
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&saved)
	return saved, err
}

// Exists checks if contact settings have been saved.
func (s *Store) Exists(ctx context.Context) (bool, error) {
	count, err := s.c.CountDocuments(ctx, bson.M{"singleton": true})
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
