package purchase

import (
	"context"

	bundlestore "github.com/dalemusser/stratastore/internal/app/store/bundles"
	productstore "github.com/dalemusser/stratastore/internal/app/store/products"
	"github.com/dalemusser/stratastore/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// StoreCatalog reads purchasable items from the product and bundle stores.
type StoreCatalog struct {
	Products *productstore.Store
	Bundles  *bundlestore.Store
}

// Product loads one product.
func (c StoreCatalog) Product(ctx context.Context, id primitive.ObjectID) (models.Product, error) {
	return c.Products.GetByID(ctx, id)
}

// Bundle loads one bundle.
func (c StoreCatalog) Bundle(ctx context.Context, id primitive.ObjectID) (models.Bundle, error) {
	return c.Bundles.GetByID(ctx, id)
}

// ProductsByIDs loads products in the order of ids.
func (c StoreCatalog) ProductsByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Product, error) {
	return c.Products.ListByIDs(ctx, ids)
}
