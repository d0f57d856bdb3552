package repository

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/datastore"
	"github.com/redis/go-redis/v9"

	"github.com/futuretasks/core/internal/infrastructure/config"
	"github.com/futuretasks/core/internal/infrastructure/database"
	"github.com/futuretasks/core/internal/infrastructure/logger"
	"github.com/futuretasks/core/internal/ports"
)

// NewKeyValueStore opens the backend selected by cfg.Storage.Driver, wrapped in a
// FallbackStore when memory fallback is enabled.
func NewKeyValueStore(ctx context.Context, cfg *config.Config, appLogger *logger.Logger) (ports.KeyValueStore, error) {
	var (
		store ports.KeyValueStore
		err   error
	)

	switch cfg.Storage.Driver {
	case config.DriverMemory:
		store = NewMemoryStore()
	case config.DriverFile:
		store, err = NewFileStore(cfg.Storage.FilePath)
	case config.DriverRedis:
		store, err = openRedis(ctx, cfg.Redis, appLogger)
	case config.DriverPostgres, config.DriverMySQL:
		store, err = openSQL(cfg.Storage.Driver, cfg.Database, appLogger)
	case config.DriverDatastore:
		store, err = openDatastore(ctx, cfg.Datastore)
	default:
		err = fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
	if err != nil {
		return nil, err
	}

	appLogger.Infow("Storage backend ready", "driver", cfg.Storage.Driver, "memory_fallback", cfg.Storage.MemoryFallback)

	if cfg.Storage.MemoryFallback && cfg.Storage.Driver != config.DriverMemory {
		return NewFallbackStore(store, appLogger), nil
	}
	return store, nil
}

// openRedis connects with retry and exponential backoff
func openRedis(ctx context.Context, cfg config.RedisConfig, appLogger *logger.Logger) (*RedisStore, error) {
	const maxRetries = 3
	retryDelay := time.Second

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.GetAddr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     5,
	})

	var err error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		if err = client.Ping(ctx).Err(); err == nil {
			return NewRedisStore(client, cfg.KeyPrefix), nil
		}

		appLogger.Warnw("Redis connection failed", "attempt", attempt, "addr", cfg.GetAddr(), "error", err)

		if attempt < maxRetries {
			select {
			case <-time.After(retryDelay):
			case <-ctx.Done():
				client.Close()
				return nil, ctx.Err()
			}
			retryDelay *= 2
		}
	}

	client.Close()
	return nil, fmt.Errorf("failed to connect to Redis after %d attempts: %w", maxRetries, err)
}

func openSQL(driver string, cfg config.DatabaseConfig, appLogger *logger.Logger) (*SQLStore, error) {
	db, err := database.New(driver, cfg)
	if err != nil {
		return nil, err
	}

	if err := db.MigrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	appLogger.Infow("Database schema up to date", "driver", driver)

	return NewSQLStore(db), nil
}

func openDatastore(ctx context.Context, cfg config.DatastoreConfig) (*DatastoreStore, error) {
	client, err := datastore.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create datastore client: %w", err)
	}
	return NewDatastoreStore(client, cfg.Kind, cfg.Namespace), nil
}
