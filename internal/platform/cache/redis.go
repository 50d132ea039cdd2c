package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

// Options locates the Redis instance shared by sessions, the dashboard cache
// and the job queues.
type Options struct {
	Addr     string
	Password string
	DB       int
}

// Asynq returns the same connection settings for asynq clients, servers and inspectors.
func (o Options) Asynq() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{Addr: o.Addr, Password: o.Password, DB: o.DB}
}

const pingAttempts = 3

// New creates a Redis client and pings it, retrying briefly while Redis is
// still starting. The client is returned even when every ping fails so callers
// may degrade instead of exiting.
func New(ctx context.Context, opts Options) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	var err error
	for attempt := 1; attempt <= pingAttempts; attempt++ {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err = client.Ping(pingCtx).Err()
		cancel()
		if err == nil {
			return client, nil
		}
		if attempt == pingAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return client, fmt.Errorf("platform/cache: ping: %w", ctx.Err())
		case <-time.After(time.Duration(attempt) * 500 * time.Millisecond):
		}
	}
	return client, fmt.Errorf("platform/cache: ping %s: %w", opts.Addr, err)
}
