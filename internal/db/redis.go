package db

import (
	"backend-cartorando/internal/config"

	"github.com/redis/go-redis/v9"
)

const redisClientName = "cartorando-api"

// ConnectRedis returns nil when no address is configured; the track stream
// then only delivers to clients of this instance.
func ConnectRedis(cfg config.Config) *redis.Client {
	if cfg.RedisAddr == "" {
		return nil
	}

	return redis.NewClient(&redis.Options{
		Addr:       cfg.RedisAddr,
		Password:   cfg.RedisPassword,
		ClientName: redisClientName,
	})
}
