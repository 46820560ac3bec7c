package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Options tunes the client beyond what the URL carries.
type Options struct {
	URL         string
	DialTimeout time.Duration
	// PingTimeout bounds the connectivity check made by NewClient.
	PingTimeout time.Duration
}

// NewClient parses the URL, applies the timeouts and checks the server
// answers before returning the client.
func NewClient(ctx context.Context, o Options) (*redis.Client, error) {
	opts, err := redis.ParseURL(o.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if o.DialTimeout > 0 {
		opts.DialTimeout = o.DialTimeout
	}

	client := redis.NewClient(opts)

	if o.PingTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.PingTimeout)
		defer cancel()
	}
	if err := Ping(client)(ctx); err != nil {
		client.Close()
		return nil, err
	}

	return client, nil
}

// Ping returns a readiness check for the client.
func Ping(client *redis.Client) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("failed to ping redis: %w", err)
		}
		return nil
	}
}
