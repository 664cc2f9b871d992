// Package indexes declares every MongoDB index the storefront relies on and
// reconciles them at startup.
package indexes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// spec is one desired index. Keys are ordered; -1 means descending.
type spec struct {
	name    string
	keys    bson.D
	unique  bool
	sparse  bool
	partial bson.M
	ttl     *int32
}

func asc(fields ...string) bson.D {
	d := make(bson.D, len(fields))
	for i, f := range fields {
		d[i] = bson.E{Key: f, Value: 1}
	}
	return d
}

// newestFirst keys on fields ascending then created_at descending.
func newestFirst(fields ...string) bson.D {
	return append(asc(fields...), bson.E{Key: "created_at", Value: -1})
}

func expireAfter(seconds int32) *int32 { return &seconds }

// ordered covers the furniture collections, all listed by manual order.
func ordered(coll string) []spec {
	return []spec{{name: "idx_" + coll + "_active_order", keys: asc("is_active", "order")}}
}

// desired maps collection → indexes. Order of collections is the order
// EnsureAll works through them.
var desired = []struct {
	coll  string
	specs []spec
}{
	{"sections", []spec{
		{name: "uniq_sections_slug", keys: asc("slug"), unique: true},
		{name: "idx_sections_parent", keys: asc("parent_id")},
		{name: "idx_sections_level_order_name", keys: asc("level", "display_order", "name")},
	}},
	{"products", []spec{
		{name: "idx_products_sections_created", keys: newestFirst("section_ids")},
		{name: "idx_products_featured_active", keys: asc("is_featured", "is_active")},
		{name: "idx_products_created", keys: newestFirst()},
	}},
	{"bundles", []spec{
		{name: "idx_bundles_products", keys: asc("product_ids")},
		{name: "idx_bundles_sections", keys: asc("section_ids")},
	}},
	{"orders", []spec{
		{name: "uniq_orders_email_product", keys: asc("email", "product_id"), unique: true,
			partial: bson.M{"product_id": bson.M{"$exists": true}}},
		{name: "uniq_orders_email_bundle", keys: asc("email", "bundle_id"), unique: true,
			partial: bson.M{"bundle_id": bson.M{"$exists": true}}},
		{name: "uniq_orders_gateway_order", keys: asc("gateway_order_id"), unique: true, sparse: true},
		{name: "idx_orders_status_updated", keys: bson.D{{Key: "status", Value: 1}, {Key: "updated_at", Value: -1}}},
	}},
	{"hero_slides", ordered("hero_slides")},
	{"footer_links", ordered("footer_links")},
	{"social_media", ordered("social_media")},
	{"contact_settings", []spec{
		{name: "uniq_contactsettings_singleton", keys: asc("singleton"), unique: true},
	}},
	{"users", []spec{
		{name: "uniq_users_email", keys: asc("email"), unique: true},
		{name: "idx_users_role_status_fullnameci", keys: asc("role", "status", "full_name_ci")},
	}},
	{"oauth_states", []spec{
		{name: "uniq_oauth_state", keys: asc("state"), unique: true},
		{name: "idx_oauth_expires_ttl", keys: asc("expires_at"), ttl: expireAfter(0)},
	}},
	{"audit_logs", []spec{
		{name: "idx_audit_created", keys: newestFirst()},
		{name: "idx_audit_category_created", keys: newestFirst("category")},
		{name: "idx_audit_actor_created", keys: newestFirst("actor_id")},
		{name: "idx_audit_subject_created", keys: newestFirst("subject")},
	}},
	{"rate_limits", []spec{
		{name: "uniq_ratelimit_key", keys: asc("key"), unique: true},
		{name: "idx_ratelimit_ttl", keys: asc("last_attempt"), ttl: expireAfter(24 * 60 * 60)},
	}},
}

func (s spec) model() mongo.IndexModel {
	opts := options.Index().SetName(s.name)
	if s.unique {
		opts.SetUnique(true)
	}
	if s.sparse {
		opts.SetSparse(true)
	}
	if s.partial != nil {
		opts.SetPartialFilterExpression(s.partial)
	}
	if s.ttl != nil {
		opts.SetExpireAfterSeconds(*s.ttl)
	}
	return mongo.IndexModel{Keys: s.keys, Options: opts}
}

// signature identifies an index by its key pattern.
func signature(keys bson.D) string {
	var b strings.Builder
	for i, e := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%s:%v", e.Key, e.Value)
	}
	return b.String()
}

// EnsureAll creates missing indexes. An existing index with the same keys
// but a different uniqueness is dropped and rebuilt. Every collection is
// attempted; failures are joined.
func EnsureAll(ctx context.Context, db *mongo.Database, logger *zap.Logger) error {
	var errs []error
	for _, d := range desired {
		if err := reconcile(ctx, db.Collection(d.coll), d.specs, logger); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", d.coll, err))
		}
	}
	return errors.Join(errs...)
}

type existingIndex struct {
	Name   string `bson:"name"`
	Key    bson.D `bson:"key"`
	Unique bool   `bson:"unique"`
}

func listExisting(ctx context.Context, coll *mongo.Collection) (map[string]existingIndex, error) {
	cur, err := coll.Indexes().List(ctx)
	if err != nil {
		return nil, err
	}
	var all []existingIndex
	if err := cur.All(ctx, &all); err != nil {
		return nil, err
	}
	bySig := make(map[string]existingIndex, len(all))
	for _, ix := range all {
		bySig[signature(ix.Key)] = ix
	}
	return bySig, nil
}

func reconcile(ctx context.Context, coll *mongo.Collection, specs []spec, logger *zap.Logger) error {
	existing, err := listExisting(ctx, coll)
	if err != nil {
		// A collection that does not exist yet has no indexes.
		existing = map[string]existingIndex{}
	}

	var errs []error
	for _, s := range specs {
		start := time.Now()
		log := logger.With(zap.String("collection", coll.Name()), zap.String("index", s.name))

		if ex, ok := existing[signature(s.keys)]; ok {
			if ex.Unique == s.unique {
				continue
			}
			if _, err := coll.Indexes().DropOne(ctx, ex.Name); err != nil {
				errs = append(errs, fmt.Errorf("%s: drop %s: %w", s.name, ex.Name, err))
				continue
			}
			log.Info("dropped index with stale options", zap.String("old", ex.Name))
		}

		if _, err := coll.Indexes().CreateOne(ctx, s.model()); err != nil {
			if s.unique && isDuplicateKey(err) {
				err = fmt.Errorf("duplicates present: %w", err)
			}
			log.Warn("index create failed", zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", s.name, err))
			continue
		}
		log.Info("index created", zap.Duration("took", time.Since(start)))
	}
	return errors.Join(errs...)
}

func isDuplicateKey(err error) bool {
	return err != nil && (mongo.IsDuplicateKeyError(err) || strings.Contains(err.Error(), "E11000"))
}
