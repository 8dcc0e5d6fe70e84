// Package cache keeps short-lived copies of presentation rows and
// recent-operation queries in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"atomdeck/api/internal/store"
	"github.com/redis/go-redis/v9"
)

const (
	PresentationTTL     = time.Hour
	RecentOperationsTTL = 5 * time.Minute

	presentationPrefix = "atomdeck:presentation:"
	recentOpsPrefix    = "atomdeck:recent_ops:"
)

// RedisCache implements the presentation and operation caches on Redis.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache connects to redisURL and verifies the connection.
func NewRedisCache(redisURL string) (*RedisCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &RedisCache{client: client}, nil
}

func NewRedisCacheWithClient(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

// Client exposes the connection so the bridge can publish on it.
func (c *RedisCache) Client() *redis.Client {
	return c.client
}

func presentationKey(id string) string {
	return presentationPrefix + id
}

func recentOpsKey(userID string, limit int) string {
	return recentOpsPrefix + userID + ":" + strconv.Itoa(limit)
}

// GetPresentation reports ok=false on a miss.
func (c *RedisCache) GetPresentation(ctx context.Context, id string) (store.Presentation, bool, error) {
	var item store.Presentation
	ok, err := c.getJSON(ctx, presentationKey(id), &item)
	if err != nil || !ok {
		return store.Presentation{}, false, err
	}
	return item, true, nil
}

func (c *RedisCache) SetPresentation(ctx context.Context, item store.Presentation) error {
	return c.setJSON(ctx, presentationKey(item.ID), item, PresentationTTL)
}

func (c *RedisCache) InvalidatePresentation(ctx context.Context, id string) error {
	if err := c.client.Del(ctx, presentationKey(id)).Err(); err != nil {
		return fmt.Errorf("invalidate presentation: %w", err)
	}
	return nil
}

func (c *RedisCache) GetRecentOperations(ctx context.Context, userID string, limit int) ([]store.OperationLog, bool, error) {
	var items []store.OperationLog
	ok, err := c.getJSON(ctx, recentOpsKey(userID, limit), &items)
	if err != nil || !ok {
		return nil, false, err
	}
	return items, true, nil
}

func (c *RedisCache) SetRecentOperations(ctx context.Context, userID string, limit int, items []store.OperationLog) error {
	return c.setJSON(ctx, recentOpsKey(userID, limit), items, RecentOperationsTTL)
}

// InvalidateRecentOperations drops every cached recent-operations page.
func (c *RedisCache) InvalidateRecentOperations(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, recentOpsPrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan recent operations: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("invalidate recent operations: %w", err)
	}
	return nil
}

func (c *RedisCache) getJSON(ctx context.Context, key string, into any) (bool, error) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read cache %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, into); err != nil {
		return false, fmt.Errorf("decode cache %s: %w", key, err)
	}
	return true, nil
}

func (c *RedisCache) setJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode cache %s: %w", key, err)
	}
	if err := c.client.Set(ctx, key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("write cache %s: %w", key, err)
	}
	return nil
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
