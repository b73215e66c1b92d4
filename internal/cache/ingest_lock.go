package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	redisv9 "github.com/redis/go-redis/v9"
)

const lockKeyPrefix = "supportlens:lock:"

// releaseScript deletes the key only if it still holds the caller's token.
var releaseScript = redisv9.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// IngestLock is a Redis lease that keeps two ingestion runs off the same
// staging directory. The TTL bounds how long a crashed holder blocks others.
type IngestLock struct {
	client *redisv9.Client
	ttl    time.Duration
}

func NewIngestLock(client *redisv9.Client, ttl time.Duration) *IngestLock {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &IngestLock{client: client, ttl: ttl}
}

// Acquire returns ok=false without error when another holder has the lock.
func (l *IngestLock) Acquire(ctx context.Context, key string) (string, bool, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, lockKeyPrefix+key, token, l.ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("redis acquire lock failed: %w", err)
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

func (l *IngestLock) Release(ctx context.Context, key, token string) error {
	if err := releaseScript.Run(ctx, l.client, []string{lockKeyPrefix + key}, token).Err(); err != nil {
		return fmt.Errorf("redis release lock failed: %w", err)
	}
	return nil
}
