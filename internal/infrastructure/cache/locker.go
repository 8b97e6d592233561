package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	domain "jan-server/services/media-storage/internal/domain/media"
)

const (
	lockPrefix     = "media-storage:lock:"
	lockTries      = 64
	lockRetryDelay = 50 * time.Millisecond
)

// NewLocker returns a redsync locker when a Redis client is available and an
// in-process locker otherwise.
func NewLocker(client redis.UniversalClient, ttl time.Duration, log zerolog.Logger) domain.Locker {
	if client == nil {
		log.Warn().Msg("redis not configured, gallery locks are process-local")
		return NewLocalLocker()
	}
	return NewRedisLocker(client, ttl, log)
}

// RedisLocker serializes work across replicas with a redsync mutex.
type RedisLocker struct {
	rs  *redsync.Redsync
	ttl time.Duration
	log zerolog.Logger
}

func NewRedisLocker(client redis.UniversalClient, ttl time.Duration, log zerolog.Logger) *RedisLocker {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisLocker{
		rs:  redsync.New(goredis.NewPool(client)),
		ttl: ttl,
		log: log.With().Str("component", "redis-locker").Logger(),
	}
}

func (l *RedisLocker) WithLock(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	mutex := l.rs.NewMutex(lockPrefix+name,
		redsync.WithExpiry(l.ttl),
		redsync.WithTries(lockTries),
		redsync.WithRetryDelay(lockRetryDelay),
	)
	if err := mutex.LockContext(ctx); err != nil {
		return fmt.Errorf("acquire lock %s: %w", name, err)
	}
	defer func() {
		if _, err := mutex.UnlockContext(context.WithoutCancel(ctx)); err != nil {
			l.log.Error().Err(err).Str("lock", name).Msg("failed to unlock mutex")
		}
	}()
	return fn(ctx)
}

// LocalLocker is a per-name mutex for single-replica deployments and tests.
type LocalLocker struct {
	mu    sync.Mutex
	locks map[string]*localLock
}

type localLock struct {
	ch   chan struct{}
	refs int
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{locks: make(map[string]*localLock)}
}

func (l *LocalLocker) WithLock(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	lock := l.acquireRef(name)
	defer l.releaseRef(name, lock)

	select {
	case lock.ch <- struct{}{}:
	case <-ctx.Done():
		return fmt.Errorf("acquire lock %s: %w", name, ctx.Err())
	}
	defer func() { <-lock.ch }()

	return fn(ctx)
}

func (l *LocalLocker) acquireRef(name string) *localLock {
	l.mu.Lock()
	defer l.mu.Unlock()
	lock, ok := l.locks[name]
	if !ok {
		lock = &localLock{ch: make(chan struct{}, 1)}
		l.locks[name] = lock
	}
	lock.refs++
	return lock
}

func (l *LocalLocker) releaseRef(name string, lock *localLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	lock.refs--
	if lock.refs == 0 {
		delete(l.locks, name)
	}
}
