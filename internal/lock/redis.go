package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"ms-admission/internal/apperrors"
	"ms-admission/internal/logger"
)

const (
	keyPrefix = "admission_lock:"

	// MinRetry bounds the polling rate while a lock is held elsewhere.
	MinRetry = 5 * time.Millisecond
)

// releaseScript deletes the key only while it still holds our token, so a holder whose
// TTL ran out cannot remove somebody else's lock.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker shares pass locks between app instances through SET NX PX.
type RedisLocker struct {
	Client *redis.Client
	TTL    time.Duration
	Wait   time.Duration
	Retry  time.Duration
	Logger *logger.Logger
}

func NewRedisLocker(client *redis.Client, ttl, wait, retry time.Duration, log *logger.Logger) *RedisLocker {
	if retry < MinRetry {
		retry = MinRetry
	}
	return &RedisLocker{Client: client, TTL: ttl, Wait: wait, Retry: retry, Logger: log}
}

func (r *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	redisKey := keyPrefix + key
	token := uuid.NewString()
	deadline := time.Now().Add(r.Wait)

	for {
		ok, err := r.Client.SetNX(ctx, redisKey, token, r.TTL).Result()
		if err != nil {
			return nil, apperrors.Storage("acquire pass lock", err)
		}
		if ok {
			break
		}
		if !time.Now().Before(deadline) {
			return nil, apperrors.Storage("acquire pass lock",
				fmt.Errorf("lock %s still held after %s", redisKey, r.Wait))
		}

		retry := r.Retry
		if retry < MinRetry {
			retry = MinRetry
		}
		timer := time.NewTimer(retry)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	return func() {
		// A detached context so a cancelled request still releases its lock.
		releaseCtx, cancel := context.WithTimeout(context.Background(), r.TTL)
		defer cancel()
		released, err := releaseScript.Run(releaseCtx, r.Client, []string{redisKey}, token).Int64()
		if err != nil {
			r.Logger.Error("REDIS", fmt.Sprintf("Failed to release %s, held until TTL: %v", redisKey, err))
			return
		}
		if released == 0 {
			r.Logger.Warn("REDIS", fmt.Sprintf("Lock %s expired before release", redisKey))
		}
	}, nil
}
