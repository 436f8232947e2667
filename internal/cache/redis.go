package cache

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/creatorops/scout/config"
)

// ResolutionCache memoizes successful URL-to-channel resolutions in Redis
// so repeat pipeline runs skip the paid channel lookup. All operations are
// best effort: a cache error degrades to a miss.
type ResolutionCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *log.Logger
}

// New connects to Redis and verifies the connection. Returns nil without
// error when no Redis host is configured: the cache is optional.
func New(ctx context.Context, cfg config.RedisConfig, logger *log.Logger) (*ResolutionCache, error) {
	if cfg.Host == "" {
		return nil, nil
	}
	if logger == nil {
		logger = log.New(log.Writer(), "[CACHE] ", log.LstdFlags)
	}

	client := redis.NewClient(&redis.Options{
		Addr:        fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: cfg.Timeout,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("pinging redis: %w", err)
	}

	ttl := cfg.CacheTTL
	if ttl == 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &ResolutionCache{client: client, ttl: ttl, logger: logger}, nil
}

// Close releases the Redis connection.
func (c *ResolutionCache) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

func key(url string) string {
	return "scout:resolution:" + url
}

// GetChannelID returns the cached channel id for a profile URL.
func (c *ResolutionCache) GetChannelID(ctx context.Context, url string) (string, bool) {
	if c == nil || c.client == nil {
		return "", false
	}
	id, err := c.client.Get(ctx, key(url)).Result()
	if err != nil {
		if err != redis.Nil {
			c.logger.Printf("cache get for %s: %v", url, err)
		}
		return "", false
	}
	return id, id != ""
}

// PutChannelID stores a resolved channel id with the configured TTL.
func (c *ResolutionCache) PutChannelID(ctx context.Context, url, channelID string) {
	if c == nil || c.client == nil || channelID == "" {
		return
	}
	if err := c.client.Set(ctx, key(url), channelID, c.ttl).Err(); err != nil {
		c.logger.Printf("cache set for %s: %v", url, err)
	}
}
