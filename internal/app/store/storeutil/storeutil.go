// internal/app/store/storeutil/storeutil.go
package storeutil

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/sync/errgroup"
)

// reorderConcurrency bounds the in-flight updates of one reorder batch.
const reorderConcurrency = 8

// Paginate returns *options.FindOptions with skip/limit given a 1-based page.
func Paginate(limit, page int64) *options.FindOptions {
	if limit <= 0 {
		limit = 20
	}
	if page <= 0 {
		page = 1
	}
	sk := (page - 1) * limit
	return options.Find().SetLimit(limit).SetSkip(sk)
}

// Position assigns an ordering value to one document.
type Position struct {
	ID    primitive.ObjectID
	Order int
}

// ApplyOrder writes each position's order into field, one independent
// update per document, all in flight at once. There is no atomicity across
// the batch: a failure part way leaves earlier writes in place. The first
// error is returned after every update has finished.
func ApplyOrder(ctx context.Context, c *mongo.Collection, field string, positions []Position) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(reorderConcurrency)
	now := time.Now()
	for _, p := range positions {
		p := p
		g.Go(func() error {
			_, err := c.UpdateOne(gctx,
				bson.M{"_id": p.ID},
				bson.M{"$set": bson.M{field: p.Order, "updated_at": now}},
			)
			return err
		})
	}
	return g.Wait()
}
