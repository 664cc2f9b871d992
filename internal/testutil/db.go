// Package testutil holds the shared fixtures for store and handler tests:
// a per-test Mongo database, session users and JSON request helpers.
package testutil

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dalemusser/stratastore/internal/app/system/indexes"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// mongoURIEnv overrides the default local server for test runs.
const mongoURIEnv = "STRATASTORE_TEST_MONGO_URI"

const (
	defaultMongoURI = "mongodb://localhost:27017"
	dbPrefix        = "stratastore_test_"
)

var connect = sync.OnceValues(func() (*mongo.Client, error) {
	uri := os.Getenv(mongoURIEnv)
	if uri == "" {
		uri = defaultMongoURI
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().
		ApplyURI(uri).
		SetMaxPoolSize(100).
		SetServerSelectionTimeout(3*time.Second))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return client, nil
})

// SetupTestDB returns an empty database, private to the calling test, with
// the production indexes in place. Tests are skipped when no Mongo server is
// reachable. The database is dropped when the test ends.
func SetupTestDB(t *testing.T) *mongo.Database {
	t.Helper()

	client, err := connect()
	if err != nil {
		t.Skipf("mongo unavailable (set %s): %v", mongoURIEnv, err)
	}

	db := client.Database(dbName(t.Name()))

	ctx, cancel := TestContext()
	defer cancel()
	if err := db.Drop(ctx); err != nil {
		t.Fatalf("drop %s: %v", db.Name(), err)
	}
	if err := indexes.EnsureAll(ctx, db, zap.NewNop()); err != nil {
		t.Fatalf("ensure indexes: %v", err)
	}

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := db.Drop(ctx); err != nil {
			t.Logf("drop %s on cleanup: %v", db.Name(), err)
		}
	})
	return db
}

// dbName derives a database name from a test name. Mongo caps names at 63
// bytes, so long test names keep a readable head plus a short hash.
func dbName(testName string) string {
	clean := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		}
		return '_'
	}, testName)

	const maxLen = 63 - len(dbPrefix)
	if len(clean) <= maxLen {
		return dbPrefix + clean
	}
	sum := sha1.Sum([]byte(testName))
	tag := hex.EncodeToString(sum[:4])
	return dbPrefix + clean[:maxLen-len(tag)-1] + "_" + tag
}

// TestContext bounds a single test's database calls.
func TestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}
