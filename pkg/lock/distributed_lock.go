package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"vigil/pkg/logger"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

const (
	defaultLockKey     = "vigil:sweep:leader"
	lockTTL            = 30 * time.Second // TTL guards against a dead holder
	lockAcquireTimeout = 5 * time.Second
	lockRenewInterval  = 10 * time.Second
	maxLockHold        = 4 * time.Minute // a sweep cycle must finish well within this
)

// DistributedLock serializes the staleness sweep across process replicas so
// only one sweeper is active at a time.
type DistributedLock interface {
	// TryLock attempts to acquire the lock without blocking on contention
	TryLock(ctx context.Context) (bool, error)

	// Unlock releases the lock if held
	Unlock(ctx context.Context) error

	// IsHeld reports whether this instance currently holds the lock
	IsHeld() bool
}

// RedisDistributedLock Redis-backed lock implementation.
// A nil client degrades to single-instance mode where every TryLock succeeds,
// so a deployment without Redis still sweeps.
type RedisDistributedLock struct {
	client    *redis.Client
	lockKey   string
	lockValue string // unique per lock instance so we never delete another holder's lock

	mu           sync.Mutex
	isHeld       bool
	acquiredAt   time.Time
	stopRenew    chan struct{}
	renewStopped bool
}

// NewRedisDistributedLock creates a Redis distributed lock.
// lockKey distinguishes independent locks; empty means the sweep leader lock.
func NewRedisDistributedLock(client *redis.Client, lockKey string) *RedisDistributedLock {
	if lockKey == "" {
		lockKey = defaultLockKey
	}
	return &RedisDistributedLock{
		client:    client,
		lockKey:   lockKey,
		lockValue: fmt.Sprintf("%s-%s", lockKey, uuid.New().String()),
	}
}

// TryLock attempts to acquire the lock with SET NX and a TTL
func (l *RedisDistributedLock) TryLock(ctx context.Context) (bool, error) {
	if l.client == nil {
		logger.Warnf("redis client is nil, skipping distributed lock (running in single-instance mode)")
		l.mu.Lock()
		l.isHeld = true
		l.mu.Unlock()
		return true, nil
	}

	acquireCtx, cancel := context.WithTimeout(ctx, lockAcquireTimeout)
	defer cancel()

	acquired, err := l.client.SetNX(acquireCtx, l.lockKey, l.lockValue, lockTTL).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock: %w", err)
	}

	if !acquired {
		logger.DebugCtx(ctx, "sweep leader lock already held by another instance")
		return false, nil
	}

	l.mu.Lock()
	l.isHeld = true
	l.acquiredAt = time.Now()
	// Fresh channel per acquisition so TryLock/Unlock cycles can repeat
	l.stopRenew = make(chan struct{})
	l.renewStopped = false
	l.mu.Unlock()

	go l.renewLock(ctx)

	logger.DebugCtx(ctx, "sweep leader lock acquired")
	return true, nil
}

// Unlock releases the lock, deleting the key only when we still own it
func (l *RedisDistributedLock) Unlock(ctx context.Context) error {
	l.mu.Lock()
	if !l.isHeld {
		l.mu.Unlock()
		return nil
	}

	if l.client == nil {
		l.isHeld = false
		l.mu.Unlock()
		return nil
	}

	if !l.renewStopped {
		l.renewStopped = true
		close(l.stopRenew)
	}
	l.mu.Unlock()

	luaScript := `
		if redis.call("get", KEYS[1]) == ARGV[1] then
			return redis.call("del", KEYS[1])
		else
			return 0
		end
	`

	result, err := l.client.Eval(ctx, luaScript, []string{l.lockKey}, l.lockValue).Result()
	if err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}

	l.mu.Lock()
	l.isHeld = false
	l.mu.Unlock()

	if result.(int64) == 1 {
		logger.DebugCtx(ctx, "sweep leader lock released")
	} else {
		logger.WarnCtx(ctx, "sweep leader lock was already expired or taken over")
	}

	return nil
}

// IsHeld reports whether this instance currently holds the lock
func (l *RedisDistributedLock) IsHeld() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.isHeld
}

// renewLock extends the TTL while the lock is held so a long sweep cycle does
// not lose leadership mid-pass
func (l *RedisDistributedLock) renewLock(ctx context.Context) {
	ticker := time.NewTicker(lockRenewInterval)
	defer ticker.Stop()

	for {
		select {
		case <-l.stopRenew:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.mu.Lock()
			holdDuration := time.Since(l.acquiredAt)
			l.mu.Unlock()

			if holdDuration > maxLockHold {
				logger.WarnCtx(ctx, "sweep leader lock held for %.0f seconds, letting it lapse", holdDuration.Seconds())
				// Mark as lost and leave deletion to the holder's Unlock,
				// never close stopRenew from this goroutine.
				l.mu.Lock()
				l.isHeld = false
				l.mu.Unlock()
				return
			}

			luaScript := `
				if redis.call("get", KEYS[1]) == ARGV[1] then
					return redis.call("expire", KEYS[1], ARGV[2])
				else
					return 0
				end
			`

			result, err := l.client.Eval(ctx, luaScript,
				[]string{l.lockKey},
				l.lockValue,
				int(lockTTL.Seconds())).Result()

			if err != nil {
				logger.WarnCtx(ctx, "failed to renew sweep leader lock: %v", err)
				l.mu.Lock()
				l.isHeld = false
				l.mu.Unlock()
				return
			}

			if result.(int64) == 0 {
				logger.WarnCtx(ctx, "sweep leader lock renewal failed, lock lost")
				l.mu.Lock()
				l.isHeld = false
				l.mu.Unlock()
				return
			}

			logger.DebugCtx(ctx, "sweep leader lock renewed")
		}
	}
}
