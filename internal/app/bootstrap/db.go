// internal/app/bootstrap/db.go
package bootstrap

import (
	"context"
	"fmt"

	"github.com/dalemusser/stratastore/internal/app/system/indexes"
	"github.com/dalemusser/stratastore/internal/app/system/mailer"
	"github.com/dalemusser/stratastore/internal/app/system/payment"
	"github.com/dalemusser/stratastore/internal/app/system/seeding"
	"github.com/dalemusser/stratastore/internal/app/system/timeouts"
	"github.com/dalemusser/stratastore/internal/app/system/validators"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/storage"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// ConnectDB connects MongoDB, the optional Redis cache, file storage, the
// mailer, and the payment gateway client.
func ConnectDB(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) (DBDeps, error) {
	poolCfg := wafflemongo.DefaultPoolConfig()
	if appCfg.MongoMaxPoolSize > 0 {
		poolCfg.MaxPoolSize = appCfg.MongoMaxPoolSize
	}
	if appCfg.MongoMinPoolSize > 0 {
		poolCfg.MinPoolSize = appCfg.MongoMinPoolSize
	}

	client, err := wafflemongo.ConnectWithPool(ctx, appCfg.MongoURI, appCfg.MongoDatabase, poolCfg)
	if err != nil {
		return DBDeps{}, err
	}
	db := client.Database(appCfg.MongoDatabase)

	logger.Info("connected to MongoDB",
		zap.String("database", appCfg.MongoDatabase),
		zap.Uint64("max_pool_size", poolCfg.MaxPoolSize),
		zap.Uint64("min_pool_size", poolCfg.MinPoolSize),
	)

	store, err := connectStorage(ctx, appCfg, logger)
	if err != nil {
		return DBDeps{}, err
	}

	mail := mailer.New(mailer.Config{
		Transport:      appCfg.MailTransport,
		Host:           appCfg.MailSMTPHost,
		Port:           appCfg.MailSMTPPort,
		User:           appCfg.MailSMTPUser,
		Pass:           appCfg.MailSMTPPass,
		SendGridAPIKey: appCfg.SendGridAPIKey,
		From:           appCfg.MailFrom,
		FromName:       appCfg.MailFromName,
	}, logger)
	logger.Info("initialized email mailer", zap.String("transport", appCfg.MailTransport))

	return DBDeps{
		MongoClient:   client,
		MongoDatabase: db,
		Redis:         connectRedis(ctx, appCfg, logger),
		FileStorage:   store,
		Mailer:        mail,
		Gateway:       payment.NewRazorpay(appCfg.RazorpayKeyID, appCfg.RazorpayKeySecret, logger),
	}, nil
}

func connectStorage(ctx context.Context, appCfg AppConfig, logger *zap.Logger) (storage.Store, error) {
	switch appCfg.StorageType {
	case "s3":
		store, err := storage.NewS3(ctx, storage.S3Config{
			Region:                   appCfg.StorageS3Region,
			Bucket:                   appCfg.StorageS3Bucket,
			Prefix:                   appCfg.StorageS3Prefix,
			CloudFrontURL:            appCfg.StorageCFURL,
			CloudFrontKeyPairID:      appCfg.StorageCFKeyPairID,
			CloudFrontPrivateKeyPath: appCfg.StorageCFKeyPath,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize S3 storage: %w", err)
		}
		logger.Info("initialized S3/CloudFront file storage",
			zap.String("bucket", appCfg.StorageS3Bucket),
			zap.String("prefix", appCfg.StorageS3Prefix),
		)
		return store, nil
	case "local", "":
		store, err := storage.NewLocal(storage.LocalConfig{
			BasePath: appCfg.StorageLocalPath,
			BaseURL:  appCfg.StorageLocalURL,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize local storage: %w", err)
		}
		logger.Info("initialized local file storage",
			zap.String("path", appCfg.StorageLocalPath),
			zap.String("url", appCfg.StorageLocalURL),
		)
		return store, nil
	}
	return nil, fmt.Errorf("unknown storage type: %s", appCfg.StorageType)
}

// connectRedis returns nil when the cache is disabled or unreachable; the
// section tree is then rebuilt from Mongo on every read.
func connectRedis(ctx context.Context, appCfg AppConfig, logger *zap.Logger) *redis.Client {
	if appCfg.RedisURL == "" {
		logger.Info("section tree cache disabled (no redis_url)")
		return nil
	}
	opts, err := redis.ParseURL(appCfg.RedisURL)
	if err != nil {
		logger.Warn("invalid redis_url; section tree cache disabled", zap.Error(err))
		return nil
	}
	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, timeouts.Ping())
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis unreachable; section tree cache disabled", zap.Error(err))
		_ = rdb.Close()
		return nil
	}
	logger.Info("connected to Redis", zap.String("addr", opts.Addr))
	return rdb
}

// EnsureSchema registers collections, validators, indexes and default data
// before the handler is built.
func EnsureSchema(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	db := deps.MongoDatabase

	// Validators first so indexes are created on existing collections.
	logger.Info("ensuring collections and validators")
	if err := validators.EnsureAll(ctx, db, logger); err != nil {
		logger.Error("failed to ensure validators", zap.Error(err))
		return err
	}

	logger.Info("ensuring database indexes")
	if err := indexes.EnsureAll(ctx, db, logger); err != nil {
		logger.Error("failed to ensure indexes", zap.Error(err))
		return err
	}

	logger.Info("seeding default data")
	admin := seeding.AdminSeed{Email: appCfg.SeedAdminEmail, Password: appCfg.SeedAdminPassword}
	if err := seeding.SeedAll(ctx, db, logger, admin); err != nil {
		logger.Error("failed to seed default data", zap.Error(err))
		return err
	}

	logger.Info("database schema ensured successfully")
	return nil
}
