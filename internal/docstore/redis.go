package docstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisKV stores the document record in Redis.
type RedisKV struct {
	client *redis.Client
	key    string
}

// NewRedisKV connects to Redis at redisURL and verifies the connection.
func NewRedisKV(redisURL string) (*RedisKV, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &RedisKV{client: client, key: RecordKey}, nil
}

// NewRedisKVWithClient creates a backend from an existing Redis client.
func NewRedisKVWithClient(client *redis.Client) *RedisKV {
	return &RedisKV{client: client, key: RecordKey}
}

// Get reads the document record.
func (s *RedisKV) Get(ctx context.Context) ([]byte, bool, error) {
	raw, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get %s: %w", s.key, err)
	}
	return raw, true, nil
}

// Set replaces the document record. No TTL: saved documents live until the
// user deletes them.
func (s *RedisKV) Set(ctx context.Context, value []byte) error {
	if err := s.client.Set(ctx, s.key, value, 0).Err(); err != nil {
		return fmt.Errorf("set %s: %w", s.key, err)
	}
	return nil
}

// Ping checks if Redis is reachable.
func (s *RedisKV) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (s *RedisKV) Close() error {
	return s.client.Close()
}
