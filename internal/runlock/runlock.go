// Package runlock provides a Redis-backed advisory lock so overlapping
// batch invocations (e.g. a slow run still going when cron fires again)
// never process the same videos twice.
package runlock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/streamvault/vodfetch/internal/config"
)

const lockKey = "vodfetch:batch:lock"

// releaseScript deletes the lock only if this holder still owns it.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Lock is a single-holder advisory lock with a TTL safety net.
type Lock struct {
	client *redis.Client
	ttl    time.Duration
	token  string
}

// New creates a new lock client and verifies the Redis connection
func New(cfg config.RedisConfig, ttl time.Duration) (*Lock, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Lock{
		client: client,
		ttl:    ttl,
		token:  uuid.New().String(),
	}, nil
}

// Acquire tries to take the lock. It returns false without error when
// another run already holds it.
func (l *Lock) Acquire(ctx context.Context) (bool, error) {
	ok, err := l.client.SetNX(ctx, lockKey, l.token, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire run lock: %w", err)
	}
	return ok, nil
}

// Release frees the lock if this instance still holds it. A lock that
// expired and was re-acquired by someone else is left alone.
func (l *Lock) Release(ctx context.Context) error {
	if err := releaseScript.Run(ctx, l.client, []string{lockKey}, l.token).Err(); err != nil {
		return fmt.Errorf("failed to release run lock: %w", err)
	}
	return nil
}

// Close closes the Redis connection
func (l *Lock) Close() error {
	return l.client.Close()
}
