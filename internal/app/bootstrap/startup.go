// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/stratastore/internal/app/store/oauthstate"
	orderstore "github.com/dalemusser/stratastore/internal/app/store/orders"
	"github.com/dalemusser/stratastore/internal/app/store/ratelimit"
	"github.com/dalemusser/stratastore/internal/app/system/tasks"
	"github.com/dalemusser/stratastore/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Startup runs once after DB connections and schema setup are complete,
// before the HTTP handler is built. It applies timeout overrides and starts
// the background task runner.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if applied := timeouts.LoadEnv(); len(applied) > 0 {
		cur := timeouts.Get()
		logger.Info("timeout overrides applied",
			zap.Strings("names", applied),
			zap.Duration("ping", cur.Ping),
			zap.Duration("query", cur.Query),
			zap.Duration("outbound", cur.Outbound))
	}

	startTaskRunner(deps.MongoDatabase, appCfg, logger)
	return nil
}

// taskRunner is the global task runner instance, used for graceful shutdown.
var taskRunner *tasks.Runner

func startTaskRunner(db *mongo.Database, appCfg AppConfig, logger *zap.Logger) {
	taskRunner = tasks.New(logger)

	taskRunner.Register(tasks.StuckPaidOrdersJob(orderstore.New(db), logger, tasks.StuckPaidThreshold))
	taskRunner.Register(tasks.OAuthStateCleanupJob(oauthstate.New(db), logger))
	taskRunner.Register(tasks.RateLimitCleanupJob(logger,
		ratelimit.New(db, ratelimit.ScopeAdminLogin,
			appCfg.RateLimitLoginAttempts, appCfg.RateLimitLoginWindow, appCfg.RateLimitLoginLockout),
		ratelimit.New(db, ratelimit.ScopeVerifyEmail,
			appCfg.VerifyEmailMaxAttempts, appCfg.VerifyEmailWindow, appCfg.VerifyEmailLockout)))

	taskRunner.Start()
}
