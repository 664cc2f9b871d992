// internal/domain/models/bundle.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Bundle is a priced collection of products sold together.
// ProductIDs order is the delivery order of the bundle's files.
type Bundle struct {
	ID            primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Name          string               `bson:"name" json:"name"`
	Description   string               `bson:"description" json:"description"`
	Image         string               `bson:"image" json:"image"`
	OriginalPrice float64              `bson:"original_price" json:"originalPrice"`
	DiscountPrice *float64             `bson:"discount_price,omitempty" json:"discountPrice,omitempty"`
	ProductIDs    []primitive.ObjectID `bson:"product_ids" json:"productIds"`
	SectionIDs    []primitive.ObjectID `bson:"section_ids,omitempty" json:"sectionIds,omitempty"`
	IsActive      bool                 `bson:"is_active" json:"isActive"`
	IsFeatured    bool                 `bson:"is_featured" json:"isFeatured"`
	CreatedAt     time.Time            `bson:"created_at" json:"createdAt"`
	UpdatedAt     time.Time            `bson:"updated_at" json:"updatedAt"`
}

// PayablePrice returns the discount price when one is set, else the original price.
func (b *Bundle) PayablePrice() float64 {
	return payable(b.OriginalPrice, b.DiscountPrice)
}

// BundleWithProducts is a bundle with its products populated in bundle order.
type BundleWithProducts struct {
	Bundle
	Products []Product `json:"products"`
}
