// Package txn runs multi-document writes inside a MongoDB transaction when
// the deployment supports one, and plainly when it does not (standalone
// mongod, DocumentDB without a replica set).
//
// Section re-parenting uses it so a moved subtree never shows a mix of old
// and new levels:
//
//	mgr := sectiontree.NewManager(store, products, bundles,
//	    sectiontree.WithTx(txn.Runner(db, log)))
package txn

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Func is the unit of work. ctx is a mongo.SessionContext inside a
// transaction and the caller's context otherwise.
type Func func(ctx context.Context) error

// Run executes fn in a transaction if possible, falling back to a plain
// call when sessions or transactions are unavailable. log may be nil.
func Run(ctx context.Context, db *mongo.Database, log *zap.Logger, fn Func) error {
	session, err := db.Client().StartSession()
	if err != nil {
		warn(log, "failed to start session, running without transaction", err)
		return fn(ctx)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	if err != nil {
		if IsNotSupported(err) {
			warn(log, "transactions not supported, running without transaction", err)
			return fn(ctx)
		}
		return err
	}
	return nil
}

// Runner binds Run to a database so it can be handed to components that
// take a plain func(ctx, fn) error.
func Runner(db *mongo.Database, log *zap.Logger) func(context.Context, func(context.Context) error) error {
	return func(ctx context.Context, fn func(context.Context) error) error {
		return Run(ctx, db, log, fn)
	}
}

func warn(log *zap.Logger, msg string, err error) {
	if log != nil {
		log.Warn(msg, zap.Error(err))
	}
}

// IsNotSupported reports whether err means the deployment cannot run
// multi-document transactions.
//
// Known codes:
//   - 20: transaction numbers only allowed on a replica set member or mongos
//   - 51: IllegalOperation
//   - 263: operation not allowed in a multi-document transaction
func IsNotSupported(err error) bool {
	if err == nil {
		return false
	}

	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) {
		switch cmdErr.Code {
		case 20, 51, 263:
			return true
		}
	}

	// Message fallback for DocumentDB variants. Two keywords must match so
	// ordinary errors mentioning "session" are not swallowed.
	msg := strings.ToLower(err.Error())
	matches := 0
	for _, kw := range []string{"transaction", "replica set", "session", "not supported", "illegal operation"} {
		if strings.Contains(msg, kw) {
			matches++
		}
	}
	return matches >= 2
}
