package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only while it still carries our token.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end
`)

// ErrLeaseLost is returned by Release when the key expired or was taken over before release.
var ErrLeaseLost = errors.New("lock lease expired before release")

// Redis is a Locker backed by SET NX PX with a token-checked release.
type Redis struct {
	client RedisClient
	prefix string
	ttl    time.Duration
	retry  Retry
}

// RedisClient is what Redis needs from a go-redis client.
type RedisClient interface {
	redis.Scripter
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
}

// NewRedis returns a Locker whose keys are namespaced by prefix and expire after ttl.
func NewRedis(client RedisClient, prefix string, ttl time.Duration, retry Retry) *Redis {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	return &Redis{client: client, prefix: prefix, ttl: ttl, retry: retry.normalize()}
}

// Key returns the namespaced redis key for key.
func (r *Redis) Key(key string) string {
	if r.prefix == "" {
		return "lock:" + key
	}
	return r.prefix + ":lock:" + key
}

// Acquire sets the key if absent, waiting per the retry policy.
func (r *Redis) Acquire(ctx context.Context, key string) (Lease, error) {
	k := r.Key(key)
	token := uuid.NewString()
	for i := 0; i < r.retry.Attempts; i++ {
		ok, err := r.client.SetNX(ctx, k, token, r.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire lock: %w", err)
		}
		if ok {
			return &redisLease{client: r.client, key: k, token: token}, nil
		}
		if i < r.retry.Attempts-1 {
			if err := r.retry.wait(ctx); err != nil {
				return nil, err
			}
		}
	}
	return nil, ErrNotAcquired
}

type redisLease struct {
	client redis.Scripter
	key    string
	token  string
}

func (l *redisLease) Release(ctx context.Context) error {
	n, err := releaseScript.Run(ctx, l.client, []string{l.key}, l.token).Int()
	if err != nil {
		return fmt.Errorf("release lock: %w", err)
	}
	if n == 0 {
		return ErrLeaseLost
	}
	return nil
}
