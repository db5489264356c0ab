package share

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultTTL applies when a store is created without an explicit lifetime.
const DefaultTTL = 7 * 24 * time.Hour

// RedisStore keeps encoded payloads under short IDs.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore connects to redisURL and verifies the connection.
func NewRedisStore(redisURL string, ttl time.Duration) (*RedisStore, error) {
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

	return NewRedisStoreWithClient(client, ttl), nil
}

// NewRedisStoreWithClient creates a store from an existing Redis client
func NewRedisStoreWithClient(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{
		client: client,
		prefix: "share:",
		ttl:    ttl,
	}
}

func (s *RedisStore) key(id string) string {
	return s.prefix + id
}

// Save compresses payload, stores it and returns its ID with the encoded form.
// Saving the same payload twice yields the same ID and refreshes its TTL.
func (s *RedisStore) Save(ctx context.Context, payload Payload) (string, string, error) {
	encoded, err := Compress(payload)
	if err != nil {
		return "", "", err
	}
	id := ID(encoded)
	if err := s.client.Set(ctx, s.key(id), encoded, s.ttl).Err(); err != nil {
		return "", "", fmt.Errorf("save share: %w", err)
	}
	return id, encoded, nil
}

// Load returns the payload stored under id.
func (s *RedisStore) Load(ctx context.Context, id string) (Payload, error) {
	encoded, err := s.client.Get(ctx, s.key(id)).Result()
	if errors.Is(err, redis.Nil) {
		return Payload{}, ErrNotFound
	}
	if err != nil {
		return Payload{}, fmt.Errorf("load share: %w", err)
	}
	return Decompress(encoded)
}

// Delete removes a share. Deleting a missing share is not an error.
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, s.key(id)).Err(); err != nil {
		return fmt.Errorf("delete share: %w", err)
	}
	return nil
}

// Close closes the Redis connection
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ping checks if Redis is reachable
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
