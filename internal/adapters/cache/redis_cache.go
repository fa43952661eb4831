package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mikey/phish-fusion/internal/core"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const redisKeyPrefix = "phish-fusion:domain-age:"

// RedisCache is a Redis implementation of the AgeStore interface. Expiry is
// delegated to Redis key TTLs.
type RedisCache struct {
	client *redis.Client
	logger *zap.Logger
	ttl    time.Duration
}

type redisEntry struct {
	CreatedAt *time.Time `json:"created_at,omitempty"`
	CheckedAt time.Time  `json:"checked_at"`
}

// NewRedisCache creates a new Redis cache
func NewRedisCache(addr, password string, db int, logger *zap.Logger, ttl time.Duration) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisCache{
		client: client,
		logger: logger,
		ttl:    ttl,
	}, nil
}

// Get retrieves a cached entry for a domain
func (c *RedisCache) Get(ctx context.Context, domain string) (*core.AgeEntry, error) {
	data, err := c.client.Get(ctx, redisKeyPrefix+domain).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query cache: %w", err)
	}

	var stored redisEntry
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("failed to decode cache entry: %w", err)
	}

	return &core.AgeEntry{
		Domain:    domain,
		CreatedAt: stored.CreatedAt,
		CheckedAt: stored.CheckedAt,
	}, nil
}

// Set stores a cache entry
func (c *RedisCache) Set(ctx context.Context, entry *core.AgeEntry) error {
	data, err := json.Marshal(redisEntry{
		CreatedAt: entry.CreatedAt,
		CheckedAt: entry.CheckedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}

	// a zero ttl keeps the key without expiry
	if err := c.client.Set(ctx, redisKeyPrefix+entry.Domain, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set cache entry: %w", err)
	}

	return nil
}

// Stop closes the Redis client
func (c *RedisCache) Stop() {
	if err := c.client.Close(); err != nil {
		c.logger.Error("Failed to close Redis client", zap.Error(err))
	}
}
