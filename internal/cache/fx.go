package cache

import (
	"github.com/hireboard/hireboard/internal/config"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// NewTagCache returns the redis-backed cache when redis is configured and
// falls back to the in-process cache otherwise.
func NewTagCache(cfg config.Config, log *zap.Logger) TagCache {
	if cfg.RedisAddr == "" {
		log.Warn("redis not configured, using in-process tag cache")
		return NewMemoryTagCache()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	return NewRedisTagCache(client)
}

func provideInvalidator(store TagCache) Invalidator {
	return store
}

// Module provides the tag cache and its invalidator.
var Module = fx.Module("cache",
	fx.Provide(NewTagCache),
	fx.Provide(provideInvalidator),
)
