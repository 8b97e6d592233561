package main

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"jan-server/services/media-storage/internal/config"
	domain "jan-server/services/media-storage/internal/domain/media"
	"jan-server/services/media-storage/internal/infrastructure/cache"
	"jan-server/services/media-storage/internal/infrastructure/database"
	"jan-server/services/media-storage/internal/infrastructure/storage"
	"jan-server/services/media-storage/internal/interfaces/httpserver/handlers"
)

func newDatabaseConfig(cfg *config.Config) database.Config {
	return database.Config{
		DSN:             cfg.DBPostgresqlWriteDSN,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		ConnMaxLifetime: cfg.DBConnLifetime,
		LogLevel:        gormlogger.Warn,
	}
}

func newGormDB(ctx context.Context, cfg database.Config, log zerolog.Logger) (*gorm.DB, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, err
	}
	if err := database.AutoMigrate(ctx, db, log); err != nil {
		return nil, err
	}
	return db, nil
}

// provideStorage creates the configured backend and makes sure its buckets exist.
func provideStorage(ctx context.Context, cfg *config.Config, log zerolog.Logger) (domain.ObjectStore, error) {
	store, err := storage.New(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	if initializer, ok := store.(storage.BucketInitializer); ok {
		if err := initializer.EnsureBuckets(ctx); err != nil {
			return nil, fmt.Errorf("ensure buckets: %w", err)
		}
	}
	return store, nil
}

// provideRedis returns nil when REDIS_URL is unset; locks then stay in-process.
func provideRedis(ctx context.Context, cfg *config.Config, log zerolog.Logger) (redis.UniversalClient, error) {
	if cfg.RedisURL == "" {
		log.Info().Msg("REDIS_URL not set, using in-process locks")
		return nil, nil
	}
	return cache.NewRedisClient(ctx, cfg.RedisURL, log)
}

func provideLocker(cfg *config.Config, client redis.UniversalClient, log zerolog.Logger) domain.Locker {
	return cache.NewLocker(client, cfg.GalleryLockTTL, log)
}

func provideHandlerServices(
	service *domain.Service,
	streams *domain.StreamService,
	gallery *domain.GalleryService,
	reconciler *domain.Reconciler,
	store domain.ObjectStore,
	db *gorm.DB,
) handlers.Services {
	return handlers.Services{
		Media:      service,
		Streams:    streams,
		Gallery:    gallery,
		Reconciler: reconciler,
		Store:      store,
		DB:         db,
	}
}
