// File: internal/infra/redis/lock.go
package redis

import (
	"context"
	"time"

	"commerce-chat-bot/internal/domain"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// Locker holds a short-lived exclusive lock per key. The token guards
// against releasing a lock that expired and was re-acquired elsewhere.
type Locker struct {
	cli *redis.Client
	ttl time.Duration
}

func NewLocker(c *redClient, ttl time.Duration) *Locker {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Locker{cli: c.cli, ttl: ttl}
}

// TryLock attempts the lock a few times before giving up with
// domain.ErrConversationBusy. The returned unlock func is safe to call
// after the TTL fired.
func (l *Locker) TryLock(ctx context.Context, key string) (func(), error) {
	token := uuid.NewString()
	for i := 0; i < 5; i++ { // 5 tries
		ok, err := l.cli.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			return func() { l.unlock(context.Background(), key, token) }, nil
		}
		time.Sleep(50 * time.Millisecond) // wait before retrying
	}
	return nil, domain.ErrConversationBusy
}

var luaUnlock = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end`)

func (l *Locker) unlock(ctx context.Context, key, token string) {
	_, _ = luaUnlock.Run(ctx, l.cli, []string{key}, token).Result()
}
