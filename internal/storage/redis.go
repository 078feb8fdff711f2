package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"bagger/internal/bagger"
)

// DefaultRedisPrefix namespaces bagger keys in a shared Redis database.
const DefaultRedisPrefix = "bagger:"

const redisTimeout = 5 * time.Second

// RedisStorage implements bagger.Storage on a Redis database, so several
// machines can share a session and cache.
type RedisStorage struct {
	client *redis.Client
	prefix string
}

var _ bagger.Storage = (*RedisStorage)(nil)

// NewRedisStorage connects to addr and verifies the connection with PING.
func NewRedisStorage(addr string, db int, prefix string) (*RedisStorage, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, DB: db})

	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", addr, err)
	}

	return NewRedisStorageFromClient(client, prefix), nil
}

// NewRedisStorageFromClient wraps an existing client.
func NewRedisStorageFromClient(client *redis.Client, prefix string) *RedisStorage {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisStorage{client: client, prefix: prefix}
}

func (s *RedisStorage) Get(key string) (string, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()

	value, err := s.client.Get(ctx, s.prefix+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("reading %s: %w", key, err)
	}
	return value, true, nil
}

func (s *RedisStorage) Set(key, value string) error {
	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()

	if err := s.client.Set(ctx, s.prefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}
	return nil
}

func (s *RedisStorage) Delete(keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()

	prefixed := make([]string, len(keys))
	for i, k := range keys {
		prefixed[i] = s.prefix + k
	}
	pipe := s.client.Pipeline()
	pipe.Del(ctx, prefixed...)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("deleting keys: %w", err)
	}
	return nil
}

func (s *RedisStorage) Close() error {
	return s.client.Close()
}
