// Package cache implements a multi-tier read-through cache for profile and
// settings lookups: an in-process tier with absolute and sliding expiration
// plus an optional Redis tier with a pub/sub invalidation backplane.
//
// The cache is always a derived, disposable view of the relational store. Any
// tier failure is logged and fallen through; it never fails a request.
package cache

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Defaults applied by New for zero Config fields.
const (
	DefaultAbsoluteTTL      = 30 * time.Minute
	DefaultSlidingTTL       = 5 * time.Minute
	DefaultSizeLimit        = 1000
	DefaultCompactRatio     = 0.2
	DefaultFailSafeTTL      = 2 * time.Hour
	DefaultFailSafeThrottle = 10 * time.Second
	DefaultFactoryTimeout   = 500 * time.Millisecond
)

// invalidationChannel is the pub/sub backplane channel name.
const invalidationChannel = "biocard:cache:inv"

// Config tunes cache behavior. Zero fields take the package defaults.
type Config struct {
	// AbsoluteTTL is how long an entry stays fresh after being stored.
	AbsoluteTTL time.Duration
	// SlidingTTL expires an in-process entry that has not been read recently.
	SlidingTTL time.Duration
	// SizeLimit caps the number of in-process entries (unit cost per entry).
	SizeLimit int
	// CompactRatio is the fraction of capacity freed when the limit is hit.
	CompactRatio float64
	// FailSafeTTL is how long past formal expiry a stale entry may still be
	// served when the recompute factory fails or runs long.
	FailSafeTTL time.Duration
	// FailSafeThrottle suppresses recompute attempts right after a fail-safe
	// hit so a known-bad dependency is not hammered.
	FailSafeThrottle time.Duration
	// FactoryTimeout is the soft wait for the recompute factory before a
	// stale value is served instead; the factory keeps running in background.
	FactoryTimeout time.Duration
	// KeyPrefix namespaces keys in the Redis tier.
	KeyPrefix string
}

func (c *Config) applyDefaults() {
	if c.AbsoluteTTL == 0 {
		c.AbsoluteTTL = DefaultAbsoluteTTL
	}
	if c.SlidingTTL == 0 {
		c.SlidingTTL = DefaultSlidingTTL
	}
	if c.SizeLimit == 0 {
		c.SizeLimit = DefaultSizeLimit
	}
	if c.CompactRatio == 0 {
		c.CompactRatio = DefaultCompactRatio
	}
	if c.FailSafeTTL == 0 {
		c.FailSafeTTL = DefaultFailSafeTTL
	}
	if c.FailSafeThrottle == 0 {
		c.FailSafeThrottle = DefaultFailSafeThrottle
	}
	if c.FactoryTimeout == 0 {
		c.FactoryTimeout = DefaultFactoryTimeout
	}
}

// entry is one in-process cache slot. Values are kept JSON-serialized so the
// in-process and Redis tiers hold the same representation.
type entry struct {
	data         []byte
	storedAt     time.Time
	expiresAt    time.Time
	slideAt      time.Time
	lastAccess   time.Time
	lastFailSafe time.Time
	failSafeTTL  time.Duration
}

// live reports whether the entry may be served as a fresh hit.
func (e *entry) live(now time.Time) bool {
	return now.Before(e.expiresAt) && now.Before(e.slideAt)
}

// failSafeOK reports whether the (possibly expired) entry is still within its
// fail-safe retention window.
func (e *entry) failSafeOK(now time.Time) bool {
	return now.Before(e.storedAt.Add(e.failSafeTTL))
}

// Cache is the multi-tier cache. The zero value is not usable; construct via
// New.
type Cache struct {
	cfg Config
	log *zap.Logger

	mu      sync.Mutex
	entries map[string]*entry

	sf singleflight.Group

	rdb        redis.UniversalClient // nil disables the distributed tier
	instanceID string

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New constructs a cache with only the in-process tier.
func New(cfg Config, log *zap.Logger) *Cache {
	cfg.applyDefaults()
	return &Cache{
		cfg:        cfg,
		log:        log,
		entries:    make(map[string]*entry),
		instanceID: uuid.Must(uuid.NewV4()).String(),
		stopCh:     make(chan struct{}),
	}
}

// NewWithRedis constructs a cache with the Redis tier and invalidation
// backplane enabled. The subscriber goroutine runs until Stop.
func NewWithRedis(cfg Config, log *zap.Logger, client redis.UniversalClient) *Cache {
	c := New(cfg, log)
	c.rdb = client
	c.wg.Add(1)
	go c.subscribeInvalidations()
	return c
}

// Stop shuts down background goroutines. Safe to call more than once.
func (c *Cache) Stop() {
	c.stopOnce.Do(func() { close(c.stopCh) })
	c.wg.Wait()
}

// Remove invalidates the key in every tier synchronously and broadcasts the
// invalidation to other instances. Tier errors are logged, never returned:
// the source of truth has already changed and the caller must not fail.
func (c *Cache) Remove(ctx context.Context, key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()

	if c.rdb == nil {
		return
	}
	if err := c.rdb.Del(ctx, c.cfg.KeyPrefix+key).Err(); err != nil {
		c.log.Warn("cache: redis del failed", zap.String("key", key), zap.Error(err))
	}
	if err := c.rdb.Publish(ctx, invalidationChannel, c.instanceID+"|"+key).Err(); err != nil {
		c.log.Warn("cache: backplane publish failed", zap.String("key", key), zap.Error(err))
	}
}

// store writes serialized data into both tiers.
func (c *Cache) store(ctx context.Context, key string, data []byte, now time.Time) {
	c.storeLocal(key, data, now)

	if c.rdb == nil {
		return
	}
	if err := c.rdb.Set(ctx, c.cfg.KeyPrefix+key, data, c.cfg.AbsoluteTTL).Err(); err != nil {
		c.log.Warn("cache: redis set failed", zap.String("key", key), zap.Error(err))
	}
}

// storeLocal writes serialized data into the in-process tier only.
func (c *Cache) storeLocal(key string, data []byte, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.entries) >= c.cfg.SizeLimit {
		c.compactLocked(now)
	}
	c.entries[key] = &entry{
		data:        data,
		storedAt:    now,
		expiresAt:   now.Add(c.cfg.AbsoluteTTL),
		slideAt:     now.Add(c.cfg.SlidingTTL),
		lastAccess:  now,
		failSafeTTL: c.cfg.FailSafeTTL,
	}
}

// compactLocked evicts least-recently-accessed entries until the map is below
// SizeLimit*(1-CompactRatio). Caller holds mu.
func (c *Cache) compactLocked(now time.Time) {
	target := int(float64(c.cfg.SizeLimit) * (1 - c.cfg.CompactRatio))
	if target < 1 {
		target = 1
	}

	type keyed struct {
		key string
		at  time.Time
	}
	victims := make([]keyed, 0, len(c.entries))
	for k, e := range c.entries {
		// drop formally dead entries first, free of charge
		if !e.live(now) && !e.failSafeOK(now) {
			delete(c.entries, k)
			continue
		}
		victims = append(victims, keyed{key: k, at: e.lastAccess})
	}
	if len(c.entries) < c.cfg.SizeLimit {
		return
	}
	sort.Slice(victims, func(i, j int) bool { return victims[i].at.Before(victims[j].at) })
	for _, v := range victims {
		if len(c.entries) <= target {
			break
		}
		delete(c.entries, v.key)
	}
}

// lookup returns the entry data when the key is a live hit, touching the
// sliding window, or the stale fail-safe data when only that is available.
func (c *Cache) lookup(key string, now time.Time) (data []byte, liveHit, staleOK bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false, false
	}
	if e.live(now) {
		e.lastAccess = now
		e.slideAt = now.Add(c.cfg.SlidingTTL)
		return e.data, true, false
	}
	if e.failSafeOK(now) {
		return e.data, false, true
	}
	delete(c.entries, key)
	return nil, false, false
}

// markFailSafe records a fail-safe hit for throttling.
func (c *Cache) markFailSafe(key string, now time.Time) {
	c.mu.Lock()
	if e, ok := c.entries[key]; ok {
		e.lastFailSafe = now
	}
	c.mu.Unlock()
}

// throttled reports whether a fail-safe hit occurred within the throttle
// window, meaning the factory should not be retried yet.
func (c *Cache) throttled(key string, now time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	return ok && !e.lastFailSafe.IsZero() && now.Sub(e.lastFailSafe) < c.cfg.FailSafeThrottle
}

// redisGet checks the distributed tier; a miss or any error returns nil.
func (c *Cache) redisGet(ctx context.Context, key string) []byte {
	if c.rdb == nil {
		return nil
	}
	data, err := c.rdb.Get(ctx, c.cfg.KeyPrefix+key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.log.Warn("cache: redis get failed", zap.String("key", key), zap.Error(err))
		}
		return nil
	}
	return data
}

// subscribeInvalidations drops local entries when another instance publishes
// an invalidation on the backplane channel.
func (c *Cache) subscribeInvalidations() {
	defer c.wg.Done()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-c.stopCh
		cancel()
	}()

	sub := c.rdb.Subscribe(ctx, invalidationChannel)
	defer func() { _ = sub.Close() }()

	ch := sub.Channel()
	for {
		select {
		case <-c.stopCh:
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			instance, key, found := cutMessage(msg.Payload)
			if !found || instance == c.instanceID {
				continue
			}
			c.mu.Lock()
			delete(c.entries, key)
			c.mu.Unlock()
		}
	}
}

func cutMessage(payload string) (instance, key string, ok bool) {
	for i := 0; i < len(payload); i++ {
		if payload[i] == '|' {
			return payload[:i], payload[i+1:], true
		}
	}
	return "", "", false
}
