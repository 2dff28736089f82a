package lock

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	apperrors "go-gin-supper-club/pkg/app_errors"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLocker_Exclusive(t *testing.T) {
	locker := NewMemoryLocker()
	ctx := context.Background()

	var mu sync.Mutex
	inside, maxInside := 0, 0

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			lease, err := locker.Acquire(ctx, "waitlist:promote:e1", time.Second)
			require.NoError(t, err)

			mu.Lock()
			inside++
			maxInside = max(maxInside, inside)
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			inside--
			mu.Unlock()
			require.NoError(t, lease.Release(ctx))
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxInside)
}

func TestMemoryLocker_TimesOut(t *testing.T) {
	locker := NewMemoryLocker()

	lease, err := locker.Acquire(context.Background(), "k", time.Second)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = locker.Acquire(ctx, "k", time.Second)
	assert.ErrorIs(t, err, apperrors.ErrLockTimeout)

	// other keys are independent
	other, err := locker.Acquire(context.Background(), "other", time.Second)
	require.NoError(t, err)
	require.NoError(t, other.Release(context.Background()))

	// double release does not free a slot twice
	require.NoError(t, lease.Release(context.Background()))
	require.NoError(t, lease.Release(context.Background()))
	again, err := locker.Acquire(context.Background(), "k", time.Second)
	require.NoError(t, err)
	require.NoError(t, again.Release(context.Background()))
}

func newTestRedisLocker(t *testing.T) (*RedisLocker, redismock.ClientMock) {
	t.Helper()
	db, mock := redismock.NewClientMock()
	locker := NewRedisLocker(db)
	locker.retryDelay = time.Millisecond
	locker.newToken = func() string { return "token-1" }
	return locker, mock
}

func TestRedisLocker_AcquireRelease(t *testing.T) {
	locker, mock := newTestRedisLocker(t)
	ctx := context.Background()

	mock.ExpectSetNX("lock:waitlist:promote:e1", "token-1", 5*time.Second).SetVal(false)
	mock.ExpectSetNX("lock:waitlist:promote:e1", "token-1", 5*time.Second).SetVal(true)
	mock.ExpectEval(releaseScript, []string{"lock:waitlist:promote:e1"}, "token-1").SetVal(int64(1))

	lease, err := locker.Acquire(ctx, "waitlist:promote:e1", 5*time.Second)
	require.NoError(t, err)
	require.NoError(t, lease.Release(ctx))
	// the script only runs once
	require.NoError(t, lease.Release(ctx))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisLocker_RedisError(t *testing.T) {
	locker, mock := newTestRedisLocker(t)

	mock.ExpectSetNX("lock:k", "token-1", time.Second).SetErr(errors.New("connection refused"))

	_, err := locker.Acquire(context.Background(), "k", time.Second)
	require.Error(t, err)
	assert.NotErrorIs(t, err, apperrors.ErrLockTimeout)
	assert.NoError(t, mock.ExpectationsWereMet())
}
