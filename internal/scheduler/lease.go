package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultLeaseKey is the Redis key holding the sweep lease.
const DefaultLeaseKey = "ringside:scheduler:expire-proposals"

// releaseScript deletes the lease only when this holder still owns it.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker elects a single sweeper across replicas with SET NX PX.
type RedisLocker struct {
	client redis.UniversalClient
	key    string
	holder string
}

// NewRedisLocker builds a locker with a random holder token.
func NewRedisLocker(client redis.UniversalClient, key string) *RedisLocker {
	if key == "" {
		key = DefaultLeaseKey
	}
	return &RedisLocker{client: client, key: key, holder: uuid.NewString()}
}

// Acquire takes the lease for ttl. It returns false when another replica holds it.
func (l *RedisLocker) Acquire(ctx context.Context, ttl time.Duration) (bool, error) {
	ok, err := l.client.SetNX(ctx, l.key, l.holder, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire sweep lease: %w", err)
	}
	return ok, nil
}

// Release drops the lease if still held by this locker.
func (l *RedisLocker) Release(ctx context.Context) error {
	if err := releaseScript.Run(ctx, l.client, []string{l.key}, l.holder).Err(); err != nil {
		return fmt.Errorf("release sweep lease: %w", err)
	}
	return nil
}
