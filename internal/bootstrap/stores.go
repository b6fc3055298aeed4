package bootstrap

import (
	"fmt"
	"log/slog"

	"github.com/eleven-am/sightline/internal/kv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

func ProvideKVStore(cfg *Config, redisClient *redis.Client, db *gorm.DB, logger *slog.Logger) (kv.Store, error) {
	backend, err := kv.ParseBackend(cfg.KVBackend)
	if err != nil {
		return nil, err
	}

	logger.Info("tag storage configured", "backend", backend)

	switch backend {
	case kv.BackendPostgres:
		store := kv.NewGormStore(db)
		if err := store.Migrate(); err != nil {
			return nil, fmt.Errorf("migrate kv store: %w", err)
		}
		return store, nil
	case kv.BackendMemory:
		return kv.NewMemoryStore(), nil
	default:
		return kv.NewRedisStore(redisClient, cfg.RedisPrefix), nil
	}
}

var StoresModule = fx.Options(
	fx.Provide(ProvideKVStore),
)
