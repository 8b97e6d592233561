package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "jan-server/services/media-storage/internal/domain/media"
)

func newMiniredisClient(t *testing.T) (*miniredis.Miniredis, redis.UniversalClient) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := NewRedisClient(context.Background(), "redis://"+mr.Addr(), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

// assertExclusive runs concurrent critical sections and fails if two overlap.
func assertExclusive(t *testing.T, locker domain.Locker) {
	t.Helper()
	var (
		active  int32
		overlap int32
		done    int32
		wg      sync.WaitGroup
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := locker.WithLock(context.Background(), "gallery:g1", func(ctx context.Context) error {
				if atomic.AddInt32(&active, 1) > 1 {
					atomic.StoreInt32(&overlap, 1)
				}
				time.Sleep(5 * time.Millisecond)
				atomic.AddInt32(&active, -1)
				atomic.AddInt32(&done, 1)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(0), atomic.LoadInt32(&overlap))
	assert.Equal(t, int32(8), atomic.LoadInt32(&done))
}

func TestLocalLocker_Exclusive(t *testing.T) {
	assertExclusive(t, NewLocalLocker())
}

func TestLocalLocker_ReleasesNames(t *testing.T) {
	locker := NewLocalLocker()
	require.NoError(t, locker.WithLock(context.Background(), "a", func(ctx context.Context) error { return nil }))
	assert.Empty(t, locker.locks)
}

func TestLocalLocker_ContextCancelled(t *testing.T) {
	locker := NewLocalLocker()
	held := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = locker.WithLock(context.Background(), "a", func(ctx context.Context) error {
			close(held)
			<-release
			return nil
		})
	}()
	<-held

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := locker.WithLock(ctx, "a", func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	close(release)
}

func TestRedisLocker_Exclusive(t *testing.T) {
	_, client := newMiniredisClient(t)
	assertExclusive(t, NewRedisLocker(client, 5*time.Second, zerolog.Nop()))
}

func TestRedisLocker_ReleasesKey(t *testing.T) {
	mr, client := newMiniredisClient(t)
	locker := NewRedisLocker(client, 5*time.Second, zerolog.Nop())

	err := locker.WithLock(context.Background(), "gallery:g2", func(ctx context.Context) error {
		assert.True(t, mr.Exists(lockPrefix+"gallery:g2"))
		return nil
	})
	require.NoError(t, err)
	assert.False(t, mr.Exists(lockPrefix+"gallery:g2"))
}

func TestNewLocker_FallsBackWithoutRedis(t *testing.T) {
	locker := NewLocker(nil, time.Second, zerolog.Nop())
	_, ok := locker.(*LocalLocker)
	assert.True(t, ok)
}

func TestBuildUniversalOptions(t *testing.T) {
	opts, err := buildUniversalOptions("redis://:secret@cache-1:6379/2, cache-2:6379")
	require.NoError(t, err)
	assert.Equal(t, []string{"cache-1:6379", "cache-2:6379"}, opts.Addrs)
	assert.Equal(t, "secret", opts.Password)
	assert.Equal(t, 2, opts.DB)

	_, err = buildUniversalOptions(" , ")
	assert.Error(t, err)
}
