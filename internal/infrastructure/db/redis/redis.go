package redis

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultTimeout    = 5 * time.Second
	defaultClientName = "notes-server"
	minPoolSize       = 10
)

// Config captures the settings for establishing a Redis connection.
type Config struct {
	Addr       string
	DB         int
	ClientName string
	// PoolSize caps open connections. Zero derives it from RequestRate.
	PoolSize int
	// RequestRate is the combined per-second budget of every limiter sharing
	// this client. Each limited request costs one round trip.
	RequestRate float64
	Timeout     time.Duration
}

func poolSize(cfg Config) int {
	if cfg.PoolSize > 0 {
		return cfg.PoolSize
	}
	n := int(math.Ceil(cfg.RequestRate))
	if n < minPoolSize {
		return minPoolSize
	}
	return n
}

func newClient(cfg Config) *redis.Client {
	name := cfg.ClientName
	if name == "" {
		name = defaultClientName
	}
	size := poolSize(cfg)
	return redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		DB:           cfg.DB,
		ClientName:   name,
		PoolSize:     size,
		MinIdleConns: size / 4,
	})
}

// Connect initialises a Redis client and validates connectivity with a ping.
// A default timeout is applied when none is provided.
func Connect(ctx context.Context, cfg Config) (*redis.Client, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	client := newClient(cfg)

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return client, nil
}
