package shared

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/praisehq/praise/internal/platform/httpx"
)

// PeriodLockKey builds redis keys for period critical sections.
func PeriodLockKey(periodID uuid.UUID) string {
	return fmt.Sprintf("praise:period:%s:lock", periodID)
}

// releaseScript deletes the lock only when the caller still owns it.
const releaseScript = `if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`

// PeriodLocker serialises assignment, replacement, and close per period.
// Concurrent attempts fail fast with a Conflict instead of double-writing.
type PeriodLocker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewPeriodLocker constructs a locker. The ttl bounds how long a crashed
// holder can keep a period blocked.
func NewPeriodLocker(client *redis.Client, ttl time.Duration) *PeriodLocker {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &PeriodLocker{client: client, ttl: ttl}
}

// Acquire takes the period lock and returns a release function. It fails with
// ErrConflict when another operation already holds the lock.
func (l *PeriodLocker) Acquire(ctx context.Context, periodID uuid.UUID) (func(), error) {
	if l == nil || l.client == nil {
		return nil, fmt.Errorf("shared: period locker not initialised")
	}
	key := PeriodLockKey(periodID)
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("shared: acquire period lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("shared: period %s is locked by another operation: %w", periodID, httpx.ErrConflict)
	}
	release := func() {
		// Release runs on a background context so it still fires after the
		// request context is cancelled.
		rctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = l.client.Eval(rctx, releaseScript, []string{key}, token).Err()
	}
	return release, nil
}
