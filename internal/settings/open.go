package settings

import (
	"context"
	"fmt"

	"github.com/NomadCrew/oweather-bot/config"
	"github.com/NomadCrew/oweather-bot/logger"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// Open creates the store selected by cfg.Settings.Backend. The redis
// backend needs redisClient; the others ignore it.
func Open(ctx context.Context, cfg *config.Config, redisClient redis.Cmdable) (Store, error) {
	log := logger.GetLogger().Named("settings")

	switch cfg.Settings.Backend {
	case config.BackendSQLite, "":
		log.Infow("Using sqlite settings store", "path", cfg.Settings.SQLitePath)
		return NewSQLiteStore(ctx, cfg.Settings.SQLitePath)

	case config.BackendPostgres:
		if err := RunMigrations(cfg.Database.URL()); err != nil {
			return nil, err
		}
		poolConfig, err := config.ConfigurePostgresPool(&cfg.Database)
		if err != nil {
			return nil, err
		}
		pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
		if err != nil {
			return nil, fmt.Errorf("connecting to postgres: %w", err)
		}
		log.Info("Using postgres settings store")
		return NewPostgresStore(pool), nil

	case config.BackendRedis:
		if redisClient == nil {
			return nil, fmt.Errorf("settings backend %q requires redis.address", config.BackendRedis)
		}
		log.Infow("Using redis settings store", "key", cfg.Settings.RedisKey)
		return NewRedisStore(redisClient, cfg.Settings.RedisKey), nil

	default:
		return nil, fmt.Errorf("unknown settings backend %q", cfg.Settings.Backend)
	}
}
