// Package cache provides an optional Redis-backed cache for the resolve path.
// The database remains the source of truth; every entry carries a TTL and
// negative entries expire quickly so a freshly created link is never shadowed
// for long.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"tinylink/internal/config"
	"tinylink/internal/models"
)

// ErrCacheMiss is returned when the requested key is absent.
var ErrCacheMiss = errors.New("cache miss")

// ErrNegativeEntry is returned when the key is cached as "not found".
var ErrNegativeEntry = errors.New("cached as not found")

const notFoundSentinel = "__notfound__"

// LinkCache caches resolved links by short code. A nil *LinkCache is valid
// and behaves as an always-miss cache.
type LinkCache struct {
	client      *redis.Client
	linkTTL     time.Duration
	notFoundTTL time.Duration
}

// New connects to Redis and verifies the connection. An empty address
// returns (nil, nil), which disables caching.
func New(ctx context.Context, cfg config.Redis) (*LinkCache, error) {
	const op = "cache.New"

	if cfg.Addr == "" {
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("%s: failed to connect to redis: %w", op, err)
	}

	return &LinkCache{
		client:      client,
		linkTTL:     cfg.LinkTTL,
		notFoundTTL: cfg.NotFoundTTL,
	}, nil
}

func key(shortCode string) string {
	return "link:" + shortCode
}

// Get returns the cached link for the short code, ErrNegativeEntry if the
// code is cached as unknown, or ErrCacheMiss otherwise.
func (c *LinkCache) Get(ctx context.Context, shortCode string) (*models.Link, error) {
	const op = "cache.LinkCache.Get"

	if c == nil {
		return nil, ErrCacheMiss
	}

	val, err := c.client.Get(ctx, key(shortCode)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("%s: failed to get key: %w", op, err)
	}

	if val == notFoundSentinel {
		return nil, ErrNegativeEntry
	}

	link := new(models.Link)
	if err := json.Unmarshal([]byte(val), link); err != nil {
		return nil, fmt.Errorf("%s: failed to unmarshal link: %w", op, err)
	}

	return link, nil
}

// Set caches a resolved link.
func (c *LinkCache) Set(ctx context.Context, link *models.Link) error {
	const op = "cache.LinkCache.Set"

	if c == nil {
		return nil
	}

	data, err := json.Marshal(link)
	if err != nil {
		return fmt.Errorf("%s: failed to marshal link: %w", op, err)
	}

	if err := c.client.Set(ctx, key(link.ShortCode), data, c.linkTTL).Err(); err != nil {
		return fmt.Errorf("%s: failed to set key: %w", op, err)
	}

	return nil
}

// SetNotFound caches a lookup miss for a bounded, short TTL.
func (c *LinkCache) SetNotFound(ctx context.Context, shortCode string) error {
	const op = "cache.LinkCache.SetNotFound"

	if c == nil {
		return nil
	}

	if err := c.client.Set(ctx, key(shortCode), notFoundSentinel, c.notFoundTTL).Err(); err != nil {
		return fmt.Errorf("%s: failed to set key: %w", op, err)
	}

	return nil
}

// Invalidate drops the cached entry after the link is modified or deleted.
func (c *LinkCache) Invalidate(ctx context.Context, shortCode string) error {
	const op = "cache.LinkCache.Invalidate"

	if c == nil {
		return nil
	}

	if err := c.client.Del(ctx, key(shortCode)).Err(); err != nil {
		return fmt.Errorf("%s: failed to delete key: %w", op, err)
	}

	return nil
}

// Close releases the underlying Redis connection.
func (c *LinkCache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}
