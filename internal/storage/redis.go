package storage

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

const lockPollInterval = 50 * time.Millisecond

// releaseScript deletes the key only while it still carries our token, so an
// expired lock taken over by another holder is never released by us.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker is an artifact lock shared by every process pointed at the same
// Redis. Keys expire after ttl so a crashed holder cannot wedge a key.
type RedisLocker struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewRedisLocker(addr string, ttl time.Duration, logger *zap.Logger) *RedisLocker {
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	return &RedisLocker{client: rdb, ttl: ttl, logger: logger}
}

func (s *RedisLocker) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisLocker) Close() error {
	return s.client.Close()
}

// Lock blocks until key is acquired or ctx is done.
func (s *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	token := uuid.NewString()
	ticker := time.NewTicker(lockPollInterval)
	defer ticker.Stop()

	for {
		ok, err := s.client.SetNX(ctx, key, token, s.ttl).Result()
		if err != nil {
			return nil, eris.Wrapf(err, "redis: lock %s", key)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, eris.Wrapf(ctx.Err(), "redis: lock %s", key)
		case <-ticker.C:
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// Release even when the caller's ctx already expired.
			rctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := s.release(rctx, key, token); err != nil {
				s.logger.Warn("failed to release artifact lock; it expires with its ttl",
					zap.String("key", key), zap.Duration("ttl", s.ttl), zap.Error(err))
			}
		})
	}, nil
}

// release deletes key if it still holds token. A key already taken over by
// another holder is reported as an error.
func (s *RedisLocker) release(ctx context.Context, key, token string) error {
	n, err := releaseScript.Run(ctx, s.client, []string{key}, token).Int64()
	if err != nil {
		return eris.Wrapf(err, "redis: unlock %s", key)
	}
	if n == 0 {
		return eris.Errorf("redis: unlock %s: lock no longer held", key)
	}
	return nil
}
