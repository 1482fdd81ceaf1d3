package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/BradenHooton/authtrail/internal/models"
	"github.com/redis/go-redis/v9"
)

const defaultCachePrefix = "authtrail:geo:"

// CachedLocator memoizes successful lookups in Redis. Cache errors never fail a
// lookup; they fall through to the wrapped locator.
type CachedLocator struct {
	next   Locator
	client *redis.Client
	ttl    time.Duration
	prefix string
	logger *slog.Logger
}

// NewCachedLocator wraps next with a Redis cache
func NewCachedLocator(next Locator, client *redis.Client, ttl time.Duration, logger *slog.Logger) *CachedLocator {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &CachedLocator{
		next:   next,
		client: client,
		ttl:    ttl,
		prefix: defaultCachePrefix,
		logger: logger,
	}
}

func (c *CachedLocator) key(ip string) string {
	return c.prefix + ip
}

// Lookup serves from the cache when possible and stores fresh results
func (c *CachedLocator) Lookup(ctx context.Context, ip string) (models.IPInsights, error) {
	raw, err := c.client.Get(ctx, c.key(ip)).Bytes()
	switch {
	case err == nil:
		var cached models.IPInsights
		if jsonErr := json.Unmarshal(raw, &cached); jsonErr == nil {
			return cached, nil
		}
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("geo cache read failed", slog.String("ip_address", ip), slog.Any("error", err))
	}

	insights, err := c.next.Lookup(ctx, ip)
	if err != nil {
		return insights, err
	}

	data, err := json.Marshal(insights)
	if err != nil {
		return insights, nil
	}
	if err := c.client.Set(ctx, c.key(ip), data, c.ttl).Err(); err != nil {
		c.logger.Warn("geo cache write failed", slog.String("ip_address", ip), slog.Any("error", err))
	}

	return insights, nil
}

// NewRedisClient connects and pings Redis
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	if addr == "" {
		return nil, fmt.Errorf("redis address required")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}
