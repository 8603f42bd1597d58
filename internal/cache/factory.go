package cache

import (
	"time"

	"github.com/redis/go-redis/v9"
)

type Config struct {
	Backend         string
	Prefix          string
	CleanupInterval time.Duration // memory backend only
}

// NewStore selects the byte-level backend from config.
func NewStore(cfg Config, redisClient *redis.Client) Store {
	switch cfg.Backend {
	case "redis":
		return NewRedisStore(redisClient, RedisConfig{
			Prefix: cfg.Prefix,
		})
	default:
		return NewMemoryStore(cfg.CleanupInterval)
	}
}
