package notify

import (
	"context"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// SentGuard remembers which events have already been emailed so a retried
// task does not mail the visitor twice.
type SentGuard struct {
	Client *redis.Client
	TTL    time.Duration
}

func sentKey(eventID string) string { return "notify:sent:" + eventID }

// Acquire claims eventID. It reports false when the email was already sent.
func (g SentGuard) Acquire(ctx context.Context, eventID string) (bool, error) {
	if g.Client == nil {
		return true, nil
	}
	ttl := g.TTL
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return g.Client.SetNX(ctx, sentKey(eventID), "1", ttl).Result()
}

// Release forgets eventID so a later retry can send again.
func (g SentGuard) Release(ctx context.Context, eventID string) error {
	if g.Client == nil {
		return nil
	}
	return g.Client.Del(ctx, sentKey(eventID)).Err()
}
