// internal/domain/models/product.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FileRef points at a downloadable file delivered after purchase.
type FileRef struct {
	Name string `bson:"name" json:"name"`
	URL  string `bson:"url" json:"url"`
}

// Product is a purchasable design template. Prices are in major currency units.
type Product struct {
	ID            primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Title         string               `bson:"title" json:"title"`
	Description   string               `bson:"description" json:"description"`
	Image         string               `bson:"image" json:"image"`
	SectionIDs    []primitive.ObjectID `bson:"section_ids" json:"sectionIds"`
	OriginalPrice float64              `bson:"original_price" json:"originalPrice"`
	DiscountPrice *float64             `bson:"discount_price,omitempty" json:"discountPrice,omitempty"`
	Files         []FileRef            `bson:"files" json:"files"`
	IsActive      bool                 `bson:"is_active" json:"isActive"`
	IsFeatured    bool                 `bson:"is_featured" json:"isFeatured"`
	CreatedAt     time.Time            `bson:"created_at" json:"createdAt"`
	UpdatedAt     time.Time            `bson:"updated_at" json:"updatedAt"`
}

// PayablePrice returns the discount price when one is set, else the original price.
func (p *Product) PayablePrice() float64 {
	return payable(p.OriginalPrice, p.DiscountPrice)
}

func payable(original float64, discount *float64) float64 {
	if discount != nil && *discount > 0 {
		return *discount
	}
	return original
}
