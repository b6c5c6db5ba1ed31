package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Probe opens a short-lived client for url, pings it and releases it.
// The client is closed on every path, including a failed ping.
func Probe(ctx context.Context, url string) error {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return fmt.Errorf("invalid redis url: %w", err)
	}
	opts.MaxRetries = -1
	opts.PoolSize = 1

	rdb := redis.NewClient(opts)
	defer rdb.Close()

	return rdb.Ping(ctx).Err()
}
