package infra

import (
	"context"
	"errors"
	"time"

	"puntocambio/internal/apierror"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

// NewRedis creates and validates a go-redis client connection.
func NewRedis(redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	rdb := redis.NewClient(opts)

	// Validate connectivity at startup
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}

	return rdb, nil
}

// ── Distributed lock ──────────────────────────────────────────────────────────

// RedisLocker serialises mutations of one exchange, transfer or close across
// API replicas. It satisfies service.Locker.
type RedisLocker struct {
	client *redislock.Client
	ttl    time.Duration
	retry  redislock.RetryStrategy
}

// NewRedisLocker waits up to ~2s for a busy key before giving up.
func NewRedisLocker(rdb *redis.Client) *RedisLocker {
	return &RedisLocker{
		client: redislock.New(rdb),
		ttl:    15 * time.Second,
		retry:  redislock.LimitRetry(redislock.LinearBackoff(100*time.Millisecond), 20),
	}
}

func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	lock, err := l.client.Obtain(ctx, key, l.ttl, &redislock.Options{RetryStrategy: l.retry})
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, apierror.Conflict("la operación está siendo procesada por otro usuario, intente nuevamente")
	}
	if err != nil {
		return nil, err
	}
	return func() {
		// detached: the request context may already be cancelled
		_ = lock.Release(context.Background())
	}, nil
}
