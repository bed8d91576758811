package health

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Pinger is a record store that can be probed.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps probes the record store and the optional Redis client.
type Deps struct {
	Store Pinger
	Redis *redis.Client
}

// PingStore implements Checker.
func (d Deps) PingStore(ctx context.Context, timeout time.Duration) error {
	if d.Store == nil {
		return ErrDisabled
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return d.Store.Ping(ctx)
}

// PingRedis implements Checker.
func (d Deps) PingRedis(ctx context.Context, timeout time.Duration) error {
	if d.Redis == nil {
		return ErrDisabled
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return d.Redis.Ping(ctx).Err()
}
