package redis

import (
	"context"
	"fmt"
	"net"

	"github.com/redis/go-redis/v9"

	"github.com/wonny/frontier/pkg/config"
	"github.com/wonny/frontier/pkg/logger"
)

// Client is the optional result-cache connection.
// 연결이 없는 클라이언트(Disabled)에서는 Cache 호출이 모두 no-op
type Client struct {
	rdb  *redis.Client
	addr string
}

// Disabled returns a client with no connection
func Disabled() *Client {
	return &Client{}
}

// Connect dials Redis when REDIS_ENABLED is set and verifies it with PING.
// A disabled config yields Disabled() without touching the network.
func Connect(ctx context.Context, cfg *config.Config) (*Client, error) {
	if !cfg.Redis.Enabled {
		return Disabled(), nil
	}

	addr := net.JoinHostPort(cfg.Redis.Host, cfg.Redis.Port)
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}

	return &Client{rdb: rdb, addr: addr}, nil
}

// ConnectOrDisable is Connect, but an unreachable server only costs the cache:
// the failure is logged and a disabled client is returned.
func ConnectOrDisable(ctx context.Context, cfg *config.Config, log *logger.Logger) *Client {
	client, err := Connect(ctx, cfg)
	if err != nil {
		log.WithError(err).Warn("Redis unavailable, result cache disabled")
		return Disabled()
	}
	return client
}

// Enabled reports whether cache calls reach a server
func (c *Client) Enabled() bool {
	return c.rdb != nil
}

// Addr returns host:port, or "" when disabled
func (c *Client) Addr() string {
	return c.addr
}

// Close releases the connection pool
func (c *Client) Close() error {
	if c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}

// Redis exposes the go-redis client (nil when disabled)
func (c *Client) Redis() *redis.Client {
	return c.rdb
}
