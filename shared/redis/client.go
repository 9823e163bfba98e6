package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/redis/go-redis/v9"
)

const (
	connectAttempts = 5
	connectBackoff  = 200 * time.Millisecond
	pingTimeout     = 2 * time.Second
)

// Client wraps the go-redis client shared by the read model cache and the
// account events stream.
type Client struct {
	*redis.Client
	logger log.Logger
}

// NewClient connects to Redis, retrying the initial ping with a doubling
// backoff so the service can start alongside a Redis that is still booting.
func NewClient(ctx context.Context, addr, password string, db int, logger log.Logger) (*Client, error) {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	logger = log.With(logger, "component", "redis", "addr", addr)

	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})
	c := &Client{Client: rdb, logger: logger}

	backoff := connectBackoff
	var err error
	for attempt := 1; attempt <= connectAttempts; attempt++ {
		if err = c.ping(ctx); err == nil {
			_ = level.Debug(logger).Log("msg", "connected", "attempt", attempt)
			return c, nil
		}
		_ = level.Warn(logger).Log("msg", "ping failed", "attempt", attempt, "err", err)
		if attempt == connectAttempts {
			break
		}
		select {
		case <-ctx.Done():
			_ = rdb.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", ctx.Err())
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	_ = rdb.Close()
	return nil, fmt.Errorf("failed to connect to redis after %d attempts: %w", connectAttempts, err)
}

func (c *Client) ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return c.Ping(ctx).Err()
}

// Healthy reports whether Redis answers a ping.
func (c *Client) Healthy(ctx context.Context) bool {
	if err := c.ping(ctx); err != nil {
		_ = level.Warn(c.logger).Log("msg", "health check failed", "err", err)
		return false
	}
	return true
}

func (c *Client) Close() error {
	return c.Client.Close()
}
