package lock_test

import (
	"context"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-masala/internal/lock"
)

func newLocker(t *testing.T) lock.Locker {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return lock.Locker{Client: client, TTL: 100 * time.Millisecond, RetryBackoff: 5 * time.Millisecond}
}

func TestDoSerialisesWriters(t *testing.T) {
	locker := newLocker(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	var mu sync.Mutex
	var order []string
	firstHeld := make(chan struct{})
	releaseFirst := make(chan struct{})

	go func() {
		err := locker.Do(ctx, "cart:lock:s1", func(context.Context) error {
			mu.Lock()
			order = append(order, "first")
			mu.Unlock()
			close(firstHeld)
			<-releaseFirst
			return nil
		})
		require.NoError(t, err)
	}()

	<-firstHeld

	go func() {
		err := locker.Do(ctx, "cart:lock:s1", func(context.Context) error {
			mu.Lock()
			order = append(order, "second")
			mu.Unlock()
			return nil
		})
		require.NoError(t, err)
	}()

	close(releaseFirst)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(order) == 2
	}, time.Second, 10*time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{"first", "second"}, order)
}

func TestDoReleasesOnError(t *testing.T) {
	locker := newLocker(t)
	ctx := context.Background()

	wantErr := context.DeadlineExceeded
	err := locker.Do(ctx, "cart:lock:s2", func(context.Context) error { return wantErr })
	require.ErrorIs(t, err, wantErr)

	acquired := false
	err = locker.Do(ctx, "cart:lock:s2", func(context.Context) error {
		acquired = true
		return nil
	})
	require.NoError(t, err)
	require.True(t, acquired)
}

func TestDoCancelledWhileWaiting(t *testing.T) {
	locker := newLocker(t)

	held := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = locker.Do(context.Background(), "cart:lock:s3", func(context.Context) error {
			close(held)
			<-release
			return nil
		})
	}()
	<-held
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	err := locker.Do(ctx, "cart:lock:s3", func(context.Context) error { return nil })
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
