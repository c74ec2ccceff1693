package token

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RevocationList records consumed refresh-token ids.
type RevocationList interface {
	// Consume marks jti as used for ttl. It reports false if jti was already
	// consumed, which is how a replayed refresh token is detected. The check
	// and the mark happen atomically.
	Consume(ctx context.Context, jti string, ttl time.Duration) (bool, error)
}

// revokedKeyPrefix namespaces revocation keys in a shared Redis.
const revokedKeyPrefix = "culturemap:refresh:jti:"

// RedisRevocationList shares revocation state between API instances.
type RedisRevocationList struct {
	client *redis.Client
}

// NewRedisRevocationList constructs a Redis-backed RevocationList.
// The client lifecycle is managed by the caller.
func NewRedisRevocationList(client *redis.Client) *RedisRevocationList {
	return &RedisRevocationList{client: client}
}

// Consume uses SET NX with expiry, so two concurrent refreshes with the same
// token cannot both succeed.
func (l *RedisRevocationList) Consume(ctx context.Context, jti string, ttl time.Duration) (bool, error) {
	if jti == "" {
		return false, nil
	}
	err := l.client.SetArgs(ctx, revokedKeyPrefix+jti, "1", redis.SetArgs{Mode: "NX", TTL: ttl}).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// MemoryRevocationList keeps revocation state in process memory. It is used
// when REDIS_URL is unset and in tests.
type MemoryRevocationList struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

// NewMemoryRevocationList constructs an empty in-memory list. now may be nil.
func NewMemoryRevocationList(now func() time.Time) *MemoryRevocationList {
	if now == nil {
		now = time.Now
	}
	return &MemoryRevocationList{entries: make(map[string]time.Time), now: now}
}

// Consume marks jti as used. Expired entries are pruned on each call.
func (l *MemoryRevocationList) Consume(_ context.Context, jti string, ttl time.Duration) (bool, error) {
	if jti == "" {
		return false, nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for k, exp := range l.entries {
		if !now.Before(exp) {
			delete(l.entries, k)
		}
	}
	if _, used := l.entries[jti]; used {
		return false, nil
	}
	l.entries[jti] = now.Add(ttl)
	return true, nil
}
