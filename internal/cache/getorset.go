package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// errTypeMismatch signals two different value types sharing one cache key.
var errTypeMismatch = errors.New("cache: value type mismatch for key")

// GetOrSet returns the cached value for key or recomputes it via factory.
//
// Concurrent misses for the same key share one factory invocation. When the
// factory runs past the soft timeout and a fail-safe stale value exists, the
// stale value is returned immediately and the factory finishes in the
// background, refreshing both tiers. When the factory fails and a stale value
// is within its retention window, the stale value is served instead of the
// error, and recomputes are throttled for a short while afterwards.
func GetOrSet[T any](ctx context.Context, c *Cache, key string, factory func(context.Context) (T, error)) (T, error) {
	var zero T
	now := time.Now()

	if data, live, _ := c.lookup(key, now); live {
		if v, err := decode[T](data); err == nil {
			return v, nil
		}
		// undecodable entry: treat as a miss and recompute
		c.Remove(ctx, key)
	}

	if c.throttled(key, now) {
		if data, _, stale := c.lookup(key, now); stale {
			if v, err := decode[T](data); err == nil {
				return v, nil
			}
		}
	}

	if data := c.redisGet(ctx, key); data != nil {
		if v, err := decode[T](data); err == nil {
			c.storeLocal(key, data, now)
			return v, nil
		}
	}

	resCh := c.sf.DoChan(key, func() (any, error) {
		// detached from the request: a soft-timeout return must not cancel
		// the recompute that will refresh the cache
		bg := context.WithoutCancel(ctx)
		v, err := factory(bg)
		if err != nil {
			return nil, err
		}
		data, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		c.store(bg, key, data, time.Now())
		return v, nil
	})

	select {
	case res := <-resCh:
		return settle[T](c, key, res)
	case <-time.After(c.cfg.FactoryTimeout):
		if data, _, stale := c.lookup(key, time.Now()); stale {
			if v, err := decode[T](data); err == nil {
				c.log.Debug("cache: soft timeout, serving stale", zap.String("key", key))
				return v, nil
			}
		}
		// nothing stale to serve; wait for the shared result
		select {
		case res := <-resCh:
			return settle[T](c, key, res)
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}
}

// settle converts a shared singleflight result into a typed value, applying
// the fail-safe fallback on factory errors.
func settle[T any](c *Cache, key string, res singleflight.Result) (T, error) {
	var zero T
	if res.Err != nil {
		now := time.Now()
		if data, _, stale := c.lookup(key, now); stale {
			if v, err := decode[T](data); err == nil {
				c.markFailSafe(key, now)
				c.log.Warn("cache: factory failed, serving stale",
					zap.String("key", key), zap.Error(res.Err))
				return v, nil
			}
		}
		return zero, res.Err
	}
	v, ok := res.Val.(T)
	if !ok {
		return zero, errTypeMismatch
	}
	return v, nil
}

func decode[T any](data []byte) (T, error) {
	var v T
	err := json.Unmarshal(data, &v)
	return v, err
}
