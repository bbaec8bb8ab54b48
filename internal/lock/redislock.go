package lock

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock key only when the stored token matches, so
// a lock that expired and was re-acquired elsewhere is never released by the
// previous holder.
const releaseScript = `if redis.call("get", KEYS[1]) == ARGV[1] then
  return redis.call("del", KEYS[1])
else
  return 0
end`

// Locker serialises writers on a shared key via Redis SETNX.
type Locker struct {
	Client       *redis.Client
	TTL          time.Duration
	RetryBackoff time.Duration
}

// Do runs fn while holding the lock for key, retrying acquisition until the
// context is cancelled. The lock is released when fn returns, even on error.
func (l Locker) Do(ctx context.Context, key string, fn func(context.Context) error) error {
	if l.Client == nil {
		return errors.New("lock: redis client not configured")
	}
	if fn == nil {
		return errors.New("lock: callback not provided")
	}
	ttl := l.TTL
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	retry := l.RetryBackoff
	if retry <= 0 {
		retry = 50 * time.Millisecond
	}
	token := uuid.NewString()

	for {
		ok, err := l.Client.SetNX(ctx, key, token, ttl).Result()
		if err != nil {
			return err
		}
		if ok {
			break
		}
		timer := time.NewTimer(retry)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	// Release with a fresh context so the key is cleaned up even when the
	// caller's context was cancelled mid-callback.
	defer func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = l.Client.Eval(releaseCtx, releaseScript, []string{key}, token).Err()
	}()
	return fn(ctx)
}
