package redisinfra

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ErrNotOwner is returned when releasing a lock whose token no longer matches.
var ErrNotOwner = errors.New("lock not held by this owner")

const keyPrefix = "otp:lock:"

// releaseScript deletes the key only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker is a cross-instance single-writer lock built on SET NX PX.
// TTL bounds how long a crashed holder can block a key; Wait bounds how long Lock retries.
type Locker struct {
	client        *redis.Client
	ttl           time.Duration
	wait          time.Duration
	retryInterval time.Duration
	log           *zap.Logger
}

func NewLocker(client *redis.Client, ttl, wait time.Duration, log *zap.Logger) *Locker {
	return &Locker{
		client:        client,
		ttl:           ttl,
		wait:          wait,
		retryInterval: 50 * time.Millisecond,
		log:           log,
	}
}

// Lock blocks until key is acquired, the wait budget runs out, or ctx is done.
func (l *Locker) Lock(ctx context.Context, key string) (func(), error) {
	ctx, cancel := context.WithTimeout(ctx, l.wait)
	defer cancel()

	redisKey := keyPrefix + key
	token := uuid.NewString()

	ticker := time.NewTicker(l.retryInterval)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil && !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled) {
			return nil, fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if ok {
			return l.releaser(redisKey, token), nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("timeout waiting for lock %s: %w", key, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (l *Locker) releaser(redisKey, token string) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := l.release(ctx, redisKey, token); err != nil {
				l.log.Warn("release otp lock", zap.String("key", redisKey), zap.Error(err))
			}
		})
	}
}

func (l *Locker) release(ctx context.Context, redisKey, token string) error {
	n, err := releaseScript.Run(ctx, l.client, []string{redisKey}, token).Int64()
	if err != nil {
		return fmt.Errorf("run release script: %w", err)
	}
	if n == 0 {
		return ErrNotOwner
	}
	return nil
}
