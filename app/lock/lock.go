package lock

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrLockHeld = errors.New("lock is held by another caller")

// Locker guards a key for at most ttl. Unlock only releases a lock still
// owned by token.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (string, error)
	Unlock(ctx context.Context, key, token string) error
}

type RedisLocker struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisLocker(client redis.UniversalClient, prefix string) *RedisLocker {
	return &RedisLocker{client: client, prefix: prefix}
}

func (l *RedisLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.prefix+key, token, ttl).Result()
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrLockHeld
	}
	return token, nil
}

var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end`)

func (l *RedisLocker) Unlock(ctx context.Context, key, token string) error {
	return unlockScript.Run(ctx, l.client, []string{l.prefix + key}, token).Err()
}

// NoopLocker always grants the lock. Used when Redis is not configured; the
// conditional status update in the store still settles races.
type NoopLocker struct{}

func (NoopLocker) TryLock(context.Context, string, time.Duration) (string, error) {
	return "noop", nil
}

func (NoopLocker) Unlock(context.Context, string, string) error {
	return nil
}
