package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"pixkeys/internal/platform/config"
)

const defaultDialTimeout = 5 * time.Second

// Client is the shared connection for the code store and the callback
// dedupe store. Both take the embedded *redis.Client.
type Client struct {
	*redis.Client
}

// New connects to cfg.URL and pings it once. An empty URL returns a nil
// client; callers fall back to the in-memory stores.
func New(ctx context.Context, cfg config.RedisConfig) (*Client, error) {
	if cfg.URL == "" {
		return nil, nil
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	if cfg.MinIdleConns > 0 {
		opts.MinIdleConns = cfg.MinIdleConns
	}
	if cfg.ReadTimeout > 0 {
		opts.ReadTimeout = cfg.ReadTimeout
	}
	if cfg.WriteTimeout > 0 {
		opts.WriteTimeout = cfg.WriteTimeout
	}
	dial := cfg.DialTimeout
	if dial <= 0 {
		dial = defaultDialTimeout
	}
	opts.DialTimeout = dial

	c := &Client{Client: redis.NewClient(opts)}

	pingCtx, cancel := context.WithTimeout(ctx, dial)
	defer cancel()
	if err := c.Health(pingCtx); err != nil {
		_ = c.Client.Close()
		return nil, err
	}
	return c, nil
}

// Health pings the server. Used at startup and by the readiness probe.
func (c *Client) Health(ctx context.Context) error {
	if err := c.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis unavailable: %w", err)
	}
	return nil
}
