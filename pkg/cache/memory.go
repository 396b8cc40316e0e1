package cache

import (
	"hash/fnv"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// shardCount splits the key space so unrelated keys never contend on the
// same lock. Must be a power of two.
const shardCount = 16

// MemoryCache is an in-memory TTL cache. Expiration is lazy: an expired
// entry is treated as absent on lookup and removed then, or by the optional
// background sweep. Counters are exact and monotonic.
type MemoryCache struct {
	shards      [shardCount]*shard
	maxPerShard int
	logger      *zap.Logger
	now         func() time.Time

	hits      atomic.Uint64
	misses    atomic.Uint64
	sets      atomic.Uint64
	evictions atomic.Uint64

	stopSweep chan struct{}
	closeOnce sync.Once
}

type shard struct {
	mu      sync.Mutex
	entries map[string]*entry
}

type entry struct {
	value     interface{}
	createdAt time.Time
	expiresAt time.Time
}

// MemoryConfig holds configuration for the in-memory cache.
type MemoryConfig struct {
	// MaxEntries bounds the total entry count; 0 means unbounded. When a
	// shard overflows, the entry nearest expiry is evicted first.
	MaxEntries int

	// SweepInterval enables a periodic sweep of expired entries when > 0.
	// The sweep is a memory-reclamation optimization only; correctness
	// never depends on it.
	SweepInterval time.Duration

	Logger *zap.Logger

	// Now overrides the clock, for deterministic tests. Defaults to time.Now.
	Now func() time.Time
}

// NewMemoryCache creates a new in-memory TTL cache.
func NewMemoryCache(cfg *MemoryConfig) *MemoryCache {
	if cfg == nil {
		cfg = &MemoryConfig{}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	maxPerShard := 0
	if cfg.MaxEntries > 0 {
		maxPerShard = (cfg.MaxEntries + shardCount - 1) / shardCount
	}

	c := &MemoryCache{
		maxPerShard: maxPerShard,
		logger:      logger,
		now:         now,
		stopSweep:   make(chan struct{}),
	}

	for i := range c.shards {
		c.shards[i] = &shard{entries: make(map[string]*entry)}
	}

	if cfg.SweepInterval > 0 {
		go c.sweepLoop(cfg.SweepInterval)
	}

	return c
}

func (c *MemoryCache) shardFor(key string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))

	return c.shards[h.Sum32()&(shardCount-1)]
}

// Get retrieves a value from the cache. An entry past its expiry is treated
// as absent and removed, counting as an eviction and a miss.
func (c *MemoryCache) Get(key string) (interface{}, bool) {
	s := c.shardFor(key)
	now := c.now()

	s.mu.Lock()
	e, ok := s.entries[key]
	if ok && now.Before(e.expiresAt) {
		value := e.value
		s.mu.Unlock()

		c.hits.Add(1)
		CacheHitsTotal.Inc()
		c.logger.Debug("cache-hit",
			zap.String("key", key),
			zap.Duration("remaining_ttl", e.expiresAt.Sub(now)))

		return value, true
	}

	if ok {
		delete(s.entries, key)
		c.evictions.Add(1)
		CacheEvictionsTotal.Inc()
	}
	s.mu.Unlock()

	c.misses.Add(1)
	CacheMissesTotal.Inc()
	c.logger.Debug("cache-miss", zap.String("key", key))

	return nil, false
}

// Set stores a value with a TTL. Overwriting an existing key counts as a
// fresh set, not an eviction. Always succeeds.
func (c *MemoryCache) Set(key string, value interface{}, ttl time.Duration) bool {
	s := c.shardFor(key)
	now := c.now()

	s.mu.Lock()
	_, overwrite := s.entries[key]
	s.entries[key] = &entry{
		value:     value,
		createdAt: now,
		expiresAt: now.Add(ttl),
	}

	if c.maxPerShard > 0 && !overwrite && len(s.entries) > c.maxPerShard {
		c.evictNearestExpiryLocked(s, key)
	}
	s.mu.Unlock()

	c.sets.Add(1)
	CacheSetsTotal.Inc()
	c.logger.Debug("cache-set",
		zap.String("key", key),
		zap.Duration("ttl", ttl))

	return true
}

// evictNearestExpiryLocked removes the entry closest to expiry, excluding the
// key just inserted. Caller holds the shard lock.
func (c *MemoryCache) evictNearestExpiryLocked(s *shard, justSet string) {
	var (
		victim   string
		earliest time.Time
		found    bool
	)

	for k, e := range s.entries {
		if k == justSet {
			continue
		}
		if !found || e.expiresAt.Before(earliest) {
			victim = k
			earliest = e.expiresAt
			found = true
		}
	}

	if found {
		delete(s.entries, victim)
		c.evictions.Add(1)
		CacheEvictionsTotal.Inc()
		c.logger.Debug("cache-evict-overflow", zap.String("key", victim))
	}
}

// Delete removes a value from the cache regardless of expiry.
func (c *MemoryCache) Delete(key string) {
	s := c.shardFor(key)

	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()

	CacheDeletesTotal.Inc()
	c.logger.Debug("cache-delete", zap.String("key", key))
}

// Clear removes all values from the cache. Counters are not reset.
func (c *MemoryCache) Clear() {
	for _, s := range c.shards {
		s.mu.Lock()
		s.entries = make(map[string]*entry)
		s.mu.Unlock()
	}

	c.logger.Info("cache-cleared")
}

// Stats returns a snapshot of the cache counters.
func (c *MemoryCache) Stats() Stats {
	size := 0
	for _, s := range c.shards {
		s.mu.Lock()
		size += len(s.entries)
		s.mu.Unlock()
	}

	return Stats{
		Backend:   "memory",
		Size:      size,
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Sets:      c.sets.Load(),
		Evictions: c.evictions.Load(),
	}
}

// Close stops the background sweep, if one is running.
func (c *MemoryCache) Close() {
	c.closeOnce.Do(func() {
		close(c.stopSweep)
	})
	c.logger.Info("cache-closed")
}

func (c *MemoryCache) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopSweep:
			return
		case <-ticker.C:
			c.sweepExpired()
		}
	}
}

func (c *MemoryCache) sweepExpired() {
	now := c.now()
	removed := 0

	for _, s := range c.shards {
		s.mu.Lock()
		for k, e := range s.entries {
			if !now.Before(e.expiresAt) {
				delete(s.entries, k)
				removed++
			}
		}
		s.mu.Unlock()
	}

	if removed > 0 {
		c.evictions.Add(uint64(removed))
		CacheEvictionsTotal.Add(float64(removed))
		c.logger.Debug("cache-sweep", zap.Int("removed", removed))
	}
}
