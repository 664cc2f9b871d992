// Package validators creates the storefront's collections and attaches
// $jsonSchema validators to the ones whose shape the API depends on.
package validators

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/dalemusser/stratastore/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Mongo server error codes we branch on.
const (
	codeNamespaceExists  = 48
	codeCommandNotFound  = 59
	codeCommandNotImplem = 115
)

type collection struct {
	name   string
	schema bson.M // nil means no validator
}

var collections = []collection{
	{"sections", objectSchema(bson.A{"name", "slug", "level"}, bson.M{
		"name":          nonEmptyString(),
		"slug":          bson.M{"bsonType": "string", "pattern": "^[a-z0-9]+(-[a-z0-9]+)*$"},
		"parent_id":     bson.M{"bsonType": bson.A{"objectId", "null"}},
		"level":         bson.M{"bsonType": integer, "minimum": 0},
		"display_order": bson.M{"bsonType": integer},
	})},
	{"products", objectSchema(bson.A{"title", "original_price"}, bson.M{
		"title":          nonEmptyString(),
		"original_price": price(false),
		"discount_price": price(true),
		"section_ids":    objectIDArray(0),
	})},
	{"bundles", objectSchema(bson.A{"name", "original_price", "product_ids"}, bson.M{
		"name":           nonEmptyString(),
		"original_price": price(false),
		"discount_price": price(true),
		"product_ids":    objectIDArray(1),
	})},
	{"orders", objectSchema(bson.A{"email", "status", "amount"}, bson.M{
		"email":  bson.M{"bsonType": "string", "minLength": 3},
		"status": enum(models.OrderPending, models.OrderVerified, models.OrderPaid, models.OrderDelivered),
		"amount": price(false),
	})},
	{"hero_slides", nil},
	{"footer_links", nil},
	{"social_media", nil},
	{"contact_settings", nil},
	{"users", objectSchema(bson.A{"full_name", "email", "role", "status", "auth_method"}, bson.M{
		"full_name":   nonEmptyString(),
		"email":       bson.M{"bsonType": "string", "minLength": 3},
		"role":        enum(models.RoleAdmin, models.RoleStaff),
		"status":      enum(models.StatusActive, models.StatusDisabled),
		"auth_method": enum(models.AuthPassword, models.AuthGoogle),
	})},
	{"oauth_states", nil},
	{"audit_logs", nil},
	{"rate_limits", nil},
}

var integer = bson.A{"int", "long"}

func objectSchema(required bson.A, props bson.M) bson.M {
	return bson.M{"$jsonSchema": bson.M{
		"bsonType":   "object",
		"required":   required,
		"properties": props,
	}}
}

func nonEmptyString() bson.M {
	return bson.M{"bsonType": "string", "minLength": 1, "pattern": `.*\S.*`}
}

func price(nullable bool) bson.M {
	types := bson.A{"double", "int", "long", "decimal"}
	if nullable {
		types = append(types, "null")
	}
	return bson.M{"bsonType": types, "minimum": 0}
}

func objectIDArray(minItems int) bson.M {
	return bson.M{"bsonType": "array", "minItems": minItems, "items": bson.M{"bsonType": "objectId"}}
}

func enum(values ...string) bson.M {
	a := make(bson.A, len(values))
	for i, v := range values {
		a[i] = v
	}
	return bson.M{"enum": a}
}

// Names returns every collection EnsureAll manages, in creation order.
func Names() []string {
	out := make([]string, len(collections))
	for i, c := range collections {
		out[i] = c.name
	}
	return out
}

// EnsureAll creates missing collections and (re)applies validators. Servers
// that reject collMod, such as some DocumentDB versions, get the collections
// without validators. All failures are joined into one error.
func EnsureAll(ctx context.Context, db *mongo.Database, logger *zap.Logger) error {
	existing, err := db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		return fmt.Errorf("list collections: %w", err)
	}

	var errs []error
	for _, c := range collections {
		if !slices.Contains(existing, c.name) {
			if err := create(ctx, db, c.name); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", c.name, err))
				continue
			}
			logger.Info("created collection", zap.String("collection", c.name))
		}
		if c.schema == nil {
			continue
		}
		switch err := applySchema(ctx, db, c.name, c.schema); {
		case err == nil:
			logger.Debug("validator applied", zap.String("collection", c.name))
		case unsupported(err):
			logger.Info("validator skipped (unsupported)", zap.String("collection", c.name))
		default:
			errs = append(errs, fmt.Errorf("%s: %w", c.name, err))
		}
	}
	return errors.Join(errs...)
}

// create tolerates a concurrent creator winning the race.
func create(ctx context.Context, db *mongo.Database, name string) error {
	err := db.CreateCollection(ctx, name)
	if hasCode(err, codeNamespaceExists, "already exists", "namespace exists") {
		return nil
	}
	return err
}

func applySchema(ctx context.Context, db *mongo.Database, name string, schema bson.M) error {
	return db.RunCommand(ctx, bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: schema},
		{Key: "validationLevel", Value: "moderate"},
		{Key: "validationAction", Value: "error"},
	}).Err()
}

func unsupported(err error) bool {
	return hasCode(err, codeCommandNotFound, "no such command") ||
		hasCode(err, codeCommandNotImplem, "not implemented", "not supported")
}

// hasCode matches a mongo.CommandError by code, or any error whose text
// contains one of the phrases.
func hasCode(err error, code int32, phrases ...string) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == code {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, p := range phrases {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}
