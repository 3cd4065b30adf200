package cache

import (
	"context"
	"fmt"
	"time"

	"tourhub/config"

	"github.com/go-redis/redis/v8"
)

type Client struct {
	rdb *redis.Client
}

// NewClient returns nil when no Redis address is configured.
func NewClient(cfg *config.RedisConfig) *Client {
	if cfg.Addr == "" {
		return nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &Client{rdb: rdb}
}

func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func (c *Client) Close() error {
	return c.rdb.Close()
}

// Acquire takes a lock on key for ttl. It returns false when someone else holds it.
func (c *Client) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := c.rdb.SetNX(ctx, "lock:"+key, 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to lock %s: %w", key, err)
	}
	return ok, nil
}

func (c *Client) Release(ctx context.Context, key string) error {
	return c.rdb.Del(ctx, "lock:"+key).Err()
}

// Limiter is a fixed-window request counter shared by every API instance.
type Limiter struct {
	client *Client
	limit  int64
	window time.Duration
}

func NewLimiter(client *Client, limit int, window time.Duration) *Limiter {
	return &Limiter{client: client, limit: int64(limit), window: window}
}

func (l *Limiter) Allow(key string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	bucket := time.Now().Unix() / int64(l.window.Seconds())
	k := fmt.Sprintf("ratelimit:%s:%d", key, bucket)
	pipe := l.client.rdb.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.Expire(ctx, k, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		// fail open when redis is unreachable
		return true
	}
	return incr.Val() <= l.limit
}
