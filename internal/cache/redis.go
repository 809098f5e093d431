package cache

import (
	"context"
	"time"

	"github.com/lshigami/skillcheck/config"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// NewRedisClient builds the client for the fast half of the session store.
// It returns nil when no address is configured. An unreachable server is
// not fatal: the store degrades to its in-process fallback.
func NewRedisClient(cfg *config.Config) *redis.Client {
	if cfg.Redis.Addr == "" {
		log.Warn().Msg("REDIS_ADDR not set, session state will live in process memory only")
		return nil
	}

	timeout := cfg.Redis.Timeout
	if timeout <= 0 {
		timeout = 300 * time.Millisecond
	}
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Redis.Addr,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		DialTimeout:  timeout,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
		MaxRetries:   1,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*timeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("Redis not reachable at startup, using fallback until it recovers")
	} else {
		log.Info().Str("addr", cfg.Redis.Addr).Msg("Connected to Redis")
	}
	return client
}
