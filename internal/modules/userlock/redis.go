package userlock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"tripdesk/internal/types"
)

const (
	lockKeyPrefix = "tripdesk:lock:user:%s"
	// Lease outlives a normal turn; a crashed holder frees the user after it.
	defaultLease = 60 * time.Second
	pollInterval = 50 * time.Millisecond
)

// releaseScript deletes the key only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker serialises turns across replicas with a SET NX lease. A local
// KeyedMutex is taken first so goroutines in one process queue in memory
// instead of polling Redis.
type RedisLocker struct {
	redis  *redis.Client
	local  *KeyedMutex
	lease  time.Duration
	logger *slog.Logger
}

func NewRedisLocker(client *redis.Client, lease time.Duration) *RedisLocker {
	if lease <= 0 {
		lease = defaultLease
	}
	return &RedisLocker{redis: client, local: NewKeyedMutex(), lease: lease, logger: slog.Default()}
}

// WithLogger replaces the logger used for release failures.
func (l *RedisLocker) WithLogger(logger *slog.Logger) *RedisLocker {
	if logger != nil {
		l.logger = logger
	}
	return l
}

func (l *RedisLocker) Lock(ctx context.Context, userID types.ID) (func(), error) {
	unlockLocal, err := l.local.Lock(ctx, userID)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf(lockKeyPrefix, string(userID))
	token := uuid.NewString()
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		ok, err := l.redis.SetNX(ctx, key, token, l.lease).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			unlockLocal()
			return nil, fmt.Errorf("acquire lock %s: %w", userID, err)
		}
		if ok {
			break
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			unlockLocal()
			return nil, fmt.Errorf("%w: %w", ErrNotAcquired, ctx.Err())
		}
	}

	var released bool
	return func() {
		if released {
			return
		}
		released = true
		l.release(userID, key, token)
		unlockLocal()
	}, nil
}

// release drops the lease if it is still ours. A failure only delays the
// next turn until the lease expires, so it is logged and not returned.
func (l *RedisLocker) release(userID types.ID, key, token string) {
	// Release must run even when the turn's ctx has expired.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	n, err := releaseScript.Run(ctx, l.redis, []string{key}, token).Int()
	switch {
	case err != nil:
		l.logger.Warn("release user lock", "user_id", string(userID), "error", err)
	case n == 0:
		l.logger.Warn("user lock lease expired before release", "user_id", string(userID), "lease", l.lease)
	}
}
