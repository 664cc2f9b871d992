// internal/app/store/orders/orderstore.go
package orderstore

import (
	"context"
	"time"

	"github.com/dalemusser/stratastore/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store provides access to the orders collection. Orders are never deleted.
type Store struct {
	c *mongo.Collection
}

// New creates a new order store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("orders")}
}

// itemFilter matches the order for one buyer and item.
func itemFilter(email string, item models.ItemRef) bson.M {
	if item.Kind == models.ItemBundle {
		return bson.M{"email": email, "bundle_id": item.ID}
	}
	return bson.M{"email": email, "product_id": item.ID}
}

// UpsertPending resets the order for (email, item) to pending with a fresh
// code, creating it when absent. Any previous code and gateway data are
// discarded, so only the latest code can be confirmed.
func (s *Store) UpsertPending(ctx context.Context, email string, item models.ItemRef, code string) (models.Order, error) {
	now := time.Now()
	filter := itemFilter(email, item)

	onInsert := bson.M{
		"_id":        primitive.NewObjectID(),
		"created_at": now,
	}
	update := bson.M{
		"$set": bson.M{
			"status":     models.OrderPending,
			"amount":     0,
			"code":       code,
			"updated_at": now,
		},
		"$unset": bson.M{
			"gateway_order_id": "",
			"payment_id":       "",
			"currency":         "",
			"delivered_at":     "",
		},
		"$setOnInsert": onInsert,
	}

	var o models.Order
	err := s.c.FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&o)
	return o, err
}

// Find returns the order for (email, item). Returns mongo.ErrNoDocuments if not found.
func (s *Store) Find(ctx context.Context, email string, item models.ItemRef) (models.Order, error) {
	var o models.Order
	err := s.c.FindOne(ctx, itemFilter(email, item)).Decode(&o)
	return o, err
}

// FindPendingWithCode returns the pending order for (email, item) holding code.
func (s *Store) FindPendingWithCode(ctx context.Context, email string, item models.ItemRef, code string) (models.Order, error) {
	filter := itemFilter(email, item)
	filter["status"] = models.OrderPending
	filter["code"] = code

	var o models.Order
	err := s.c.FindOne(ctx, filter).Decode(&o)
	return o, err
}

// GetByID loads an order by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Order, error) {
	var o models.Order
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&o)
	return o, err
}

// GetByGatewayOrderID loads the order a gateway order was opened for.
func (s *Store) GetByGatewayOrderID(ctx context.Context, gatewayOrderID string) (models.Order, error) {
	var o models.Order
	err := s.c.FindOne(ctx, bson.M{"gateway_order_id": gatewayOrderID}).Decode(&o)
	return o, err
}

// Transition moves an order from one status to another. Returns
// mongo.ErrNoDocuments when the order is not currently in from.
func (s *Store) Transition(ctx context.Context, id primitive.ObjectID, from, to string) error {
	set := bson.M{"status": to, "updated_at": time.Now()}
	return s.updateIf(ctx, bson.M{"_id": id, "status": from}, set)
}

// SetGatewayOrder records the gateway order opened for a verified order.
func (s *Store) SetGatewayOrder(ctx context.Context, id primitive.ObjectID, gatewayOrderID string, amount float64, currency string) error {
	set := bson.M{
		"gateway_order_id": gatewayOrderID,
		"amount":           amount,
		"currency":         currency,
		"updated_at":       time.Now(),
	}
	return s.updateIf(ctx, bson.M{"_id": id, "status": models.OrderVerified}, set)
}

// MarkPaid records the payment id and moves a verified order to paid. It
// returns mongo.ErrNoDocuments when the order is no longer verified against
// gatewayOrderID, e.g. a fresh code reset it or another callback got there first.
func (s *Store) MarkPaid(ctx context.Context, id primitive.ObjectID, gatewayOrderID, paymentID string) error {
	set := bson.M{
		"status":     models.OrderPaid,
		"payment_id": paymentID,
		"updated_at": time.Now(),
	}
	return s.updateIf(ctx, bson.M{
		"_id":              id,
		"status":           models.OrderVerified,
		"gateway_order_id": gatewayOrderID,
	}, set)
}

// MarkDelivered moves a paid order to delivered.
func (s *Store) MarkDelivered(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	set := bson.M{
		"status":       models.OrderDelivered,
		"delivered_at": at,
		"updated_at":   time.Now(),
	}
	return s.updateIf(ctx, bson.M{"_id": id, "status": models.OrderPaid}, set)
}

func (s *Store) updateIf(ctx context.Context, filter bson.M, set bson.M) error {
	res, err := s.c.UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// ListFilter narrows List results.
type ListFilter struct {
	Status string
	Email  string
	Limit  int64
	Page   int64
}

// List returns orders most recently updated first.
func (s *Store) List(ctx context.Context, f ListFilter) ([]models.Order, error) {
	filter := bson.M{}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if f.Email != "" {
		filter["email"] = f.Email
	}

	opts := options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}})
	if f.Limit > 0 {
		page := f.Page
		if page <= 0 {
			page = 1
		}
		opts.SetLimit(f.Limit).SetSkip((page - 1) * f.Limit)
	}

	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	orders := []models.Order{}
	if err := cur.All(ctx, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// ListStuckPaid returns orders that have been paid but not delivered since before cutoff.
func (s *Store) ListStuckPaid(ctx context.Context, cutoff time.Time) ([]models.Order, error) {
	cur, err := s.c.Find(ctx, bson.M{
		"status":     models.OrderPaid,
		"updated_at": bson.M{"$lt": cutoff},
	}, options.Find().SetSort(bson.D{{Key: "updated_at", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var orders []models.Order
	if err := cur.All(ctx, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}
