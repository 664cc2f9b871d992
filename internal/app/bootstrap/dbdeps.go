// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"github.com/dalemusser/stratastore/internal/app/system/mailer"
	"github.com/dalemusser/stratastore/internal/app/system/payment"
	"github.com/dalemusser/waffle/pantry/storage"
	"github.com/go-redis/redis/v8"
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds database and backend dependencies for this WAFFLE app.
//
// It is created in ConnectDB and passed to EnsureSchema, Startup,
// BuildHandler, and Shutdown. Optional backends are nil when disabled.
type DBDeps struct {
	// MongoDB client and database
	MongoClient   *mongo.Client
	MongoDatabase *mongo.Database

	// Redis backs the section tree cache; nil when redis_url is empty or
	// Redis was unreachable at startup.
	Redis *redis.Client

	// FileStorage holds uploaded images and deliverable files.
	FileStorage storage.Store

	// Mailer sends verification codes and purchased files.
	Mailer *mailer.Mailer

	// Gateway opens payment orders.
	Gateway *payment.Razorpay
}
