package cache

import "time"

// Cache is the interface for caching fetched market data.
type Cache interface {
	// Get retrieves a value from the cache.
	// Returns (value, true) if found and unexpired, (nil, false) otherwise.
	Get(key string) (interface{}, bool)

	// Set stores a value in the cache with a TTL.
	Set(key string, value interface{}, ttl time.Duration) bool

	// Delete removes a value from the cache.
	Delete(key string)

	// Clear removes all values from the cache.
	Clear()

	// Stats returns a snapshot of the cache counters.
	Stats() Stats

	// Close closes the cache and releases resources.
	Close()
}

// Stats is a point-in-time snapshot of cache counters. Counters only grow;
// they reset only with the process.
type Stats struct {
	Backend   string `json:"backend"`
	Size      int    `json:"size"`
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
	Sets      uint64 `json:"sets"`
	Evictions uint64 `json:"evictions"`
}

// HitRate returns hits / (hits + misses) in percent, zero when no lookups
// have happened yet.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}

	return float64(s.Hits) / float64(total) * 100
}
