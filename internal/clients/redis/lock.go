package redis

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/hackfest/judging-backend/internal/logger"
)

// Locker hands out best-effort advisory locks. Award allocation takes one per
// competition so two organizer-triggered runs cannot interleave the
// delete+insert of the award set.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), ok bool, err error)
	Close() error
}

type locker struct {
	log *logger.Logger
	rdb *goredis.Client
}

// releaseScript deletes the lock only if we still own it.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

func NewLocker(log *logger.Logger) (Locker, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &locker{
		log: log.With("client", "RedisLocker"),
		rdb: rdb,
	}, nil
}

func (l *locker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	if l == nil || l.rdb == nil {
		return nil, false, fmt.Errorf("redis locker not initialized")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, false, fmt.Errorf("lock key required")
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}

	token := uuid.NewString()
	ok, err := l.rdb.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("redis setnx: %w", err)
	}
	if !ok {
		return nil, false, nil
	}

	release := func() {
		relCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := releaseScript.Run(relCtx, l.rdb, []string{key}, token).Err(); err != nil {
			l.log.Warn("Failed to release advisory lock", "key", key, "error", err)
		}
	}
	return release, true, nil
}

func (l *locker) Close() error {
	if l == nil || l.rdb == nil {
		return nil
	}
	return l.rdb.Close()
}
