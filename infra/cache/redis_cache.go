// Package cache provides the RateCache implementations backed by Redis
// and by process memory.
package cache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/ratelab/currex/pkg/config"
	"github.com/redis/go-redis/v9"
)

// Redis implements cache.RateCache on a Redis backend.
type Redis struct {
	client *redis.Client
	prefix string
	logger *slog.Logger
}

// NewRedis creates a Redis rate cache from config. The URL carries host,
// port and logical db; timeouts come from the Redis config section.
func NewRedis(cfg *config.Redis, logger *slog.Logger) (*Redis, error) {
	opt, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}
	opt.DialTimeout = cfg.DialTimeout
	opt.ReadTimeout = cfg.ReadTimeout
	opt.WriteTimeout = cfg.WriteTimeout

	return &Redis{
		client: redis.NewClient(opt),
		prefix: cfg.KeyPrefix,
		logger: logger,
	}, nil
}

func (r *Redis) key(key string) string {
	return r.prefix + key
}

// Get returns the cached payload, or (nil, nil) on a miss.
func (r *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := r.client.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		r.logger.Debug("Redis cache miss", "key", key)
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Redis cache get error", "key", key, "error", err)
		return nil, err
	}
	r.logger.Debug("Redis cache hit", "key", key)
	return val, nil
}

// Set stores the payload under key for ttl.
func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := r.client.Set(ctx, r.key(key), value, ttl).Err(); err != nil {
		r.logger.Error("Redis cache set error", "key", key, "error", err)
		return err
	}
	r.logger.Debug("Redis cache set", "key", key, "ttl", ttl)
	return nil
}
