package redisinfra

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestLocker(t *testing.T, ttl, wait time.Duration) (*Locker, *miniredis.Miniredis) {
	t.Helper()
	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewLocker(client, ttl, wait, zap.NewNop()), s
}

func TestLocker_LockAndRelease(t *testing.T) {
	l, s := newTestLocker(t, time.Second, time.Second)

	unlock, err := l.Lock(context.Background(), "a@b_com")
	require.NoError(t, err)
	assert.True(t, s.Exists(keyPrefix+"a@b_com"))

	unlock()
	assert.False(t, s.Exists(keyPrefix+"a@b_com"))

	// a second call is a no-op
	unlock()
}

func TestLocker_SecondHolderTimesOut(t *testing.T) {
	l, _ := newTestLocker(t, 5*time.Second, 150*time.Millisecond)

	unlock, err := l.Lock(context.Background(), "k")
	require.NoError(t, err)
	defer unlock()

	_, err = l.Lock(context.Background(), "k")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLocker_SerializesHolders(t *testing.T) {
	l, _ := newTestLocker(t, 5*time.Second, 5*time.Second)

	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := l.Lock(context.Background(), "k")
			if !assert.NoError(t, err) {
				return
			}
			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			atomic.AddInt32(&inside, -1)
			unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&maxInside))
}

func TestLocker_ReleaseRefusesForeignToken(t *testing.T) {
	l, s := newTestLocker(t, 5*time.Second, time.Second)

	require.NoError(t, s.Set(keyPrefix+"k", "someone-else"))

	err := l.release(context.Background(), keyPrefix+"k", "my-token")
	assert.ErrorIs(t, err, ErrNotOwner)
	assert.True(t, s.Exists(keyPrefix+"k"))
}

func TestLocker_ExpiredLockCanBeRetaken(t *testing.T) {
	l, s := newTestLocker(t, time.Second, 200*time.Millisecond)

	_, err := l.Lock(context.Background(), "k")
	require.NoError(t, err)

	s.FastForward(2 * time.Second)

	unlock, err := l.Lock(context.Background(), "k")
	require.NoError(t, err)
	unlock()
}
