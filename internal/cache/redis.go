// Package cache wraps the Redis client used for cross-instance
// coordination.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/slakit-io/slakit/internal/config"
)

// Connect opens a Redis client from configuration and verifies the
// connection.
func Connect(cfg *config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis %s:%d: %w", cfg.Host, cfg.Port, err)
	}
	return client, nil
}

// Lease is an advisory lock on a fixed key, held for at most TTL.
// Release is best-effort: an expired lease simply lets the next holder
// in, and the value check keeps one instance from releasing another's
// hold.
type Lease struct {
	client *redis.Client
	key    string
	value  string
	ttl    time.Duration
}

// NewLease creates a lease on the given key. The value should be unique
// per instance (e.g. hostname plus pid).
func NewLease(client *redis.Client, key, value string, ttl time.Duration) *Lease {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Lease{client: client, key: key, value: value, ttl: ttl}
}

// TryAcquire takes the lease if free. Returns false when another holder
// has it.
func (l *Lease) TryAcquire(ctx context.Context) (bool, error) {
	ok, err := l.client.SetNX(ctx, l.key, l.value, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire lease %s: %w", l.key, err)
	}
	return ok, nil
}

// Release frees the lease if this instance still holds it.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

func (l *Lease) Release(ctx context.Context) error {
	if err := releaseScript.Run(ctx, l.client, []string{l.key}, l.value).Err(); err != nil {
		return fmt.Errorf("release lease %s: %w", l.key, err)
	}
	return nil
}
