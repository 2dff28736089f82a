package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	apperrors "go-gin-supper-club/pkg/app_errors"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	lockKeyPrefix     = "lock:"
	defaultRetryDelay = 50 * time.Millisecond
)

// releaseScript deletes the key only while it still holds our token, so a
// lease that outlived its ttl cannot free somebody else's lock.
const releaseScript = `
	if redis.call('GET', KEYS[1]) == ARGV[1] then
		return redis.call('DEL', KEYS[1])
	end
	return 0
`

// RedisLocker grants leases with SET NX PX, shared by every process on the
// same Redis.
type RedisLocker struct {
	client     *redis.Client
	retryDelay time.Duration
	newToken   func() string
}

func NewRedisLocker(client *redis.Client) *RedisLocker {
	return &RedisLocker{
		client:     client,
		retryDelay: defaultRetryDelay,
		newToken:   func() string { return uuid.NewString() },
	}
}

func (l *RedisLocker) key(key string) string {
	return lockKeyPrefix + key
}

func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (Lease, error) {
	token := l.newToken()
	redisKey := l.key(key)

	for {
		ok, err := l.client.SetNX(ctx, redisKey, token, ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("%w: %s: %v", apperrors.ErrLockTimeout, key, ctx.Err())
			}
			return nil, fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if ok {
			return &redisLease{client: l.client, key: redisKey, token: token}, nil
		}

		select {
		case <-time.After(l.retryDelay):
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s: %v", apperrors.ErrLockTimeout, key, ctx.Err())
		}
	}
}

type redisLease struct {
	once   sync.Once
	client *redis.Client
	key    string
	token  string
	err    error
}

func (r *redisLease) Release(ctx context.Context) error {
	r.once.Do(func() {
		r.err = r.client.Eval(ctx, releaseScript, []string{r.key}, r.token).Err()
	})
	return r.err
}
