package redis

import (
	"github.com/redis/go-redis/v9"

	"mailnight/pkg/config"
)

// NewRedisClient returns a client for cfg. The connection is lazy.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}
