package redisclient

import (
	"context"
	"fmt"
	"time"

	"skincare-client/pkg/logger"

	"github.com/go-redis/redis/v8"
)

// New connects to Redis. addr may be a redis:// URL or a plain host:port.
func New(ctx context.Context, addr string) (*redis.Client, error) {
	opts, err := redis.ParseURL(addr)
	if err != nil {
		opts = &redis.Options{
			Addr:         addr,
			MinIdleConns: 1,
			MaxRetries:   3,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
			PoolSize:     10,
			PoolTimeout:  4 * time.Second,
			IdleTimeout:  180 * time.Second,
		}
	}

	client := redis.NewClient(opts)
	if err := ping(ctx, client, 5); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}

func ping(ctx context.Context, client *redis.Client, attempts int) error {
	var lastErr error
	for i := 0; i < attempts; i++ {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		lastErr = client.Ping(pingCtx).Err()
		cancel()
		if lastErr == nil {
			return nil
		}

		backoff := time.Duration(200*(1<<uint(i))) * time.Millisecond
		logger.Warn().Err(lastErr).Int("attempt", i+1).Dur("backoff", backoff).Msg("Redis ping failed")
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return fmt.Errorf("redis unreachable after %d attempts: %w", attempts, lastErr)
}
