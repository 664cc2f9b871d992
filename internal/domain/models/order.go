// internal/domain/models/order.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Order status values. Orders only move forward through these states.
const (
	OrderPending   = "pending"
	OrderVerified  = "verified"
	OrderPaid      = "paid"
	OrderDelivered = "delivered"
)

// Item kinds an order can reference.
const (
	ItemProduct = "product"
	ItemBundle  = "bundle"
)

// Order is one buyer's attempt to purchase one product or one bundle.
// Exactly one of ProductID and BundleID is set.
type Order struct {
	ID             primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Email          string              `bson:"email" json:"email"`
	ProductID      *primitive.ObjectID `bson:"product_id,omitempty" json:"productId,omitempty"`
	BundleID       *primitive.ObjectID `bson:"bundle_id,omitempty" json:"bundleId,omitempty"`
	Amount         float64             `bson:"amount" json:"amount"` // major currency units
	Currency       string              `bson:"currency,omitempty" json:"currency,omitempty"`
	GatewayOrderID string              `bson:"gateway_order_id,omitempty" json:"gatewayOrderId,omitempty"`
	PaymentID      string              `bson:"payment_id,omitempty" json:"paymentId,omitempty"`
	Code           string              `bson:"code" json:"-"`
	Status         string              `bson:"status" json:"status"`
	DeliveredAt    *time.Time          `bson:"delivered_at,omitempty" json:"deliveredAt,omitempty"`
	CreatedAt      time.Time           `bson:"created_at" json:"createdAt"`
	UpdatedAt      time.Time           `bson:"updated_at" json:"updatedAt"`
}

// ItemRef identifies the product or bundle being purchased.
type ItemRef struct {
	Kind string
	ID   primitive.ObjectID
}

// Item returns the reference this order was placed for.
func (o *Order) Item() ItemRef {
	if o.BundleID != nil {
		return ItemRef{Kind: ItemBundle, ID: *o.BundleID}
	}
	if o.ProductID != nil {
		return ItemRef{Kind: ItemProduct, ID: *o.ProductID}
	}
	return ItemRef{}
}

// IsValidOrderStatus checks if a status is one of the order states.
func IsValidOrderStatus(s string) bool {
	switch s {
	case OrderPending, OrderVerified, OrderPaid, OrderDelivered:
		return true
	}
	return false
}
