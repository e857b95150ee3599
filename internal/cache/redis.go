package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ambient-clock/internal/metrics"

	"github.com/redis/go-redis/v9"
)

type Redis struct {
	name   string
	prefix string
	client redis.UniversalClient
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

func NewRedisClient(cfg RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// NewRedis namespaces keys as prefix:name:key so several caches can share one
// client.
func NewRedis(client redis.UniversalClient, prefix, name string) *Redis {
	return &Redis{name: name, prefix: prefix, client: client}
}

func (r *Redis) key(k string) string {
	if r.prefix == "" {
		return r.name + ":" + k
	}
	return r.prefix + ":" + r.name + ":" + k
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := r.client.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.CacheMiss(r.name)
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %q: %w", key, err)
	}
	metrics.CacheHit(r.name)
	return val, true, nil
}

func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("cache %s: ttl must be positive", r.name)
	}
	if err := r.client.Set(ctx, r.key(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %q: %w", key, err)
	}
	return nil
}

func Ping(ctx context.Context, client redis.UniversalClient) error {
	return client.Ping(ctx).Err()
}
