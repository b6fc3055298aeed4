package bootstrap

import (
	"github.com/eleven-am/sightline/internal/kv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ProvideRedisClient returns nil unless redis backs the tag store.
func ProvideRedisClient(cfg *Config) *redis.Client {
	if kv.Backend(cfg.KVBackend) != kv.BackendRedis {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
}

// ProvideDatabase returns nil unless postgres backs the tag store.
func ProvideDatabase(cfg *Config) (*gorm.DB, error) {
	if kv.Backend(cfg.KVBackend) != kv.BackendPostgres {
		return nil, nil
	}
	return gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
}

var InfrastructureModule = fx.Options(
	fx.Provide(
		ProvideRedisClient,
		ProvideDatabase,
	),
)
