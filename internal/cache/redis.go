// Package cache provides a Redis read-through cache for posts.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// PostTTL bounds how long a cached post list may be served.
	PostTTL = 5 * time.Minute
	// PostDetailTTL bounds how long a single post may be served after its
	// author (and so the post) was deleted.
	PostDetailTTL = time.Minute

	// PostsListKey holds the JSON-encoded list of all posts.
	PostsListKey = "blog:posts:all"
)

// PostKey is the cache key of a single post.
func PostKey(id uint) string {
	return fmt.Sprintf("blog:post:%d", id)
}

// Cache wraps a Redis client. A nil *Cache is valid and caches nothing.
type Cache struct {
	client *redis.Client
	logger *slog.Logger
}

// New wraps an existing client.
func New(client *redis.Client, l *slog.Logger) *Cache {
	return &Cache{client: client, logger: l}
}

// Connect parses addr (a redis:// URL or host:port) and pings the server.
func Connect(ctx context.Context, addr string, l *slog.Logger) (*Cache, error) {
	var opts *redis.Options
	if strings.Contains(addr, "://") {
		parsed, err := redis.ParseURL(addr)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_URL %q: %w", addr, err)
		}
		opts = parsed
	} else {
		opts = &redis.Options{Addr: addr}
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	l.Info("redis connected", "addr", opts.Addr)
	return New(client, l), nil
}

// GetJSON loads key into dest. It reports false on a miss.
func (c *Cache) GetJSON(ctx context.Context, key string, dest any) (bool, error) {
	if c == nil {
		return false, nil
	}
	s, err := c.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(s), dest); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON stores v under key with the given TTL.
func (c *Cache) SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	if c == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, b, ttl).Err()
}

// Aside serves key from Redis, or calls fetch to fill dest and stores the result.
// Redis failures are logged and never returned; fetch errors are.
func (c *Cache) Aside(ctx context.Context, key string, dest any, ttl time.Duration, fetch func() error) error {
	found, err := c.GetJSON(ctx, key, dest)
	if err != nil {
		c.logger.Warn("cache read failed", "key", key, "error", err)
	}
	if found {
		return nil
	}

	if err := fetch(); err != nil {
		return err
	}

	if err := c.SetJSON(ctx, key, dest, ttl); err != nil {
		c.logger.Warn("cache write failed", "key", key, "error", err)
	}
	return nil
}

// Invalidate deletes keys, logging failures.
func (c *Cache) Invalidate(ctx context.Context, keys ...string) {
	if c == nil || len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.logger.Warn("cache invalidation failed", "keys", keys, "error", err)
	}
}

// Close releases the client.
func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}
