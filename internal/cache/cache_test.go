package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestCache(cfg Config) *Cache {
	return New(cfg, zap.NewNop())
}

func TestGetOrSet_HitSkipsFactory(t *testing.T) {
	t.Parallel()
	c := newTestCache(Config{})
	ctx := context.Background()

	var calls atomic.Int32
	factory := func(context.Context) (string, error) {
		calls.Add(1)
		return "value", nil
	}

	v, err := GetOrSet(ctx, c, "k", factory)
	require.NoError(t, err)
	require.Equal(t, "value", v)
	require.EqualValues(t, 1, calls.Load())

	v, err = GetOrSet(ctx, c, "k", factory)
	require.NoError(t, err)
	require.Equal(t, "value", v)
	require.EqualValues(t, 1, calls.Load(), "second read must be a cache hit")
}

func TestGetOrSet_RemoveForcesRecompute(t *testing.T) {
	t.Parallel()
	c := newTestCache(Config{})
	ctx := context.Background()

	var calls atomic.Int32
	factory := func(context.Context) (int, error) {
		return int(calls.Add(1)), nil
	}

	v, err := GetOrSet(ctx, c, "k", factory)
	require.NoError(t, err)
	require.Equal(t, 1, v)

	c.Remove(ctx, "k")

	v, err = GetOrSet(ctx, c, "k", factory)
	require.NoError(t, err)
	require.Equal(t, 2, v, "read after invalidation must hit the factory")
}

func TestGetOrSet_AbsoluteExpiry(t *testing.T) {
	t.Parallel()
	c := newTestCache(Config{AbsoluteTTL: 20 * time.Millisecond, FailSafeTTL: time.Hour})
	ctx := context.Background()

	var calls atomic.Int32
	factory := func(context.Context) (int, error) {
		return int(calls.Add(1)), nil
	}

	_, err := GetOrSet(ctx, c, "k", factory)
	require.NoError(t, err)

	time.Sleep(40 * time.Millisecond)

	v, err := GetOrSet(ctx, c, "k", factory)
	require.NoError(t, err)
	require.Equal(t, 2, v, "expired entry must be recomputed while the factory is healthy")
}

func TestGetOrSet_Stampede(t *testing.T) {
	t.Parallel()
	c := newTestCache(Config{FactoryTimeout: time.Second})
	ctx := context.Background()

	var calls atomic.Int32
	factory := func(context.Context) (string, error) {
		calls.Add(1)
		time.Sleep(50 * time.Millisecond)
		return "shared", nil
	}

	const readers = 16
	var wg sync.WaitGroup
	for i := 0; i < readers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := GetOrSet(ctx, c, "hot", factory)
			require.NoError(t, err)
			require.Equal(t, "shared", v)
		}()
	}
	wg.Wait()
	require.EqualValues(t, 1, calls.Load(), "concurrent misses must share one factory call")
}

func TestGetOrSet_SoftTimeoutServesStale(t *testing.T) {
	t.Parallel()
	c := newTestCache(Config{
		AbsoluteTTL:    50 * time.Millisecond,
		FailSafeTTL:    time.Hour,
		FactoryTimeout: 30 * time.Millisecond,
	})
	ctx := context.Background()

	_, err := GetOrSet(ctx, c, "k", func(context.Context) (string, error) { return "v1", nil })
	require.NoError(t, err)

	time.Sleep(70 * time.Millisecond) // expire the entry, keep it fail-safe

	release := make(chan struct{})
	start := time.Now()
	v, err := GetOrSet(ctx, c, "k", func(context.Context) (string, error) {
		<-release
		return "v2", nil
	})
	require.NoError(t, err)
	require.Equal(t, "v1", v, "soft timeout must serve the stale value")
	require.Less(t, time.Since(start), 500*time.Millisecond)

	close(release)

	// the background completion refreshes the cache
	require.Eventually(t, func() bool {
		v, err := GetOrSet(ctx, c, "k", func(context.Context) (string, error) { return "v2", nil })
		return err == nil && v == "v2"
	}, time.Second, 5*time.Millisecond)
}

func TestGetOrSet_FailSafeOnError(t *testing.T) {
	t.Parallel()
	c := newTestCache(Config{
		AbsoluteTTL:      20 * time.Millisecond,
		FailSafeTTL:      time.Hour,
		FailSafeThrottle: time.Hour,
	})
	ctx := context.Background()

	_, err := GetOrSet(ctx, c, "k", func(context.Context) (string, error) { return "v1", nil })
	require.NoError(t, err)

	time.Sleep(40 * time.Millisecond)

	boom := errors.New("backing store down")
	v, err := GetOrSet(ctx, c, "k", func(context.Context) (string, error) { return "", boom })
	require.NoError(t, err, "fail-safe must swallow the factory error")
	require.Equal(t, "v1", v)

	// right after a fail-safe hit the factory is throttled
	var calls atomic.Int32
	v, err = GetOrSet(ctx, c, "k", func(context.Context) (string, error) {
		calls.Add(1)
		return "v2", nil
	})
	require.NoError(t, err)
	require.Equal(t, "v1", v)
	require.EqualValues(t, 0, calls.Load(), "throttle window must skip recompute")
}

func TestGetOrSet_ErrorWithoutStalePropagates(t *testing.T) {
	t.Parallel()
	c := newTestCache(Config{})
	ctx := context.Background()

	boom := errors.New("nope")
	_, err := GetOrSet(ctx, c, "k", func(context.Context) (string, error) { return "", boom })
	require.ErrorIs(t, err, boom)
}

func TestStore_SizeLimitCompaction(t *testing.T) {
	t.Parallel()
	c := newTestCache(Config{SizeLimit: 10, CompactRatio: 0.2})
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		key := fmt.Sprintf("k%02d", i)
		_, err := GetOrSet(ctx, c, key, func(context.Context) (int, error) { return i, nil })
		require.NoError(t, err)
	}

	c.mu.Lock()
	n := len(c.entries)
	_, oldestPresent := c.entries["k00"]
	_, newestPresent := c.entries["k19"]
	c.mu.Unlock()

	require.LessOrEqual(t, n, 10, "entry count must stay at or below the limit")
	require.False(t, oldestPresent, "least recently accessed entries are evicted first")
	require.True(t, newestPresent)
}

func TestProfileKey_Normalization(t *testing.T) {
	t.Parallel()

	require.Equal(t, ProfileKey("alice", ""), ProfileKey("  ALICE ", ""))
	require.NotEqual(t, ProfileKey("alice", ""), ProfileKey("alice", "ja"))
	require.Equal(t, "profile:alice:default", ProfileKey("Alice", ""))
	require.Equal(t, "profile:alice:ja", ProfileKey("Alice", "ja"))
}
