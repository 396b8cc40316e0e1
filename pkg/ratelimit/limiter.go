package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Limits describes one token bucket: sustained rate and burst capacity.
type Limits struct {
	Rate  float64 // tokens refilled per second
	Burst float64 // maximum tokens in the bucket
}

// CapacityError reports an Acquire request that can never succeed because it
// asks for more tokens than the bucket can ever hold.
type CapacityError struct {
	Exchange  string
	Requested float64
	Capacity  float64
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("rate limit request of %.0f tokens exceeds bucket capacity %.0f for %s",
		e.Requested, e.Capacity, e.Exchange)
}

// Config holds rate limiter configuration.
type Config struct {
	// Default applies to any exchange without an override.
	Default Limits

	// Overrides maps exchange ids to their specific limits.
	Overrides map[string]Limits

	Logger *zap.Logger

	// Now overrides the clock used for refill math, for deterministic tests.
	Now func() time.Time
}

// Manager rate-limits outbound calls per exchange using lazily-refilled
// token buckets. Buckets are created on first use with the configured limits.
type Manager struct {
	mu      sync.RWMutex
	buckets map[string]*bucket

	defaults  Limits
	overrides map[string]Limits
	logger    *zap.Logger
	now       func() time.Time
}

type bucket struct {
	mu         sync.Mutex
	tokens     float64
	capacity   float64
	rate       float64
	lastRefill time.Time

	requests   uint64
	rejections uint64
}

// BucketStats is a snapshot of one exchange's bucket.
type BucketStats struct {
	Rate       float64 `json:"rate"`
	Capacity   float64 `json:"capacity"`
	Tokens     float64 `json:"tokens"`
	Requests   uint64  `json:"requests"`
	Rejections uint64  `json:"rejections"`
}

// NewManager creates a rate limiter manager.
func NewManager(cfg *Config) (*Manager, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.Default.Rate <= 0 || cfg.Default.Burst <= 0 {
		return nil, fmt.Errorf("default limits must be positive, got rate=%f burst=%f",
			cfg.Default.Rate, cfg.Default.Burst)
	}
	for id, l := range cfg.Overrides {
		if l.Rate <= 0 || l.Burst <= 0 {
			return nil, fmt.Errorf("limits for %s must be positive, got rate=%f burst=%f",
				id, l.Rate, l.Burst)
		}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Manager{
		buckets:   make(map[string]*bucket),
		defaults:  cfg.Default,
		overrides: cfg.Overrides,
		logger:    logger,
		now:       now,
	}, nil
}

// limitsFor returns the configured limits for an exchange, falling back to
// the default when no override exists.
func (m *Manager) limitsFor(exchange string) Limits {
	if l, ok := m.overrides[exchange]; ok {
		return l
	}

	return m.defaults
}

func (m *Manager) bucketFor(exchange string) *bucket {
	m.mu.RLock()
	b, ok := m.buckets[exchange]
	m.mu.RUnlock()
	if ok {
		return b
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok = m.buckets[exchange]; ok {
		return b
	}

	limits := m.limitsFor(exchange)
	b = &bucket{
		tokens:     limits.Burst,
		capacity:   limits.Burst,
		rate:       limits.Rate,
		lastRefill: m.now(),
	}
	m.buckets[exchange] = b

	m.logger.Info("rate-limiter-registered",
		zap.String("exchange", exchange),
		zap.Float64("rate", limits.Rate),
		zap.Float64("burst", limits.Burst))

	return b
}

// refillLocked adds tokens accrued since the last refill, capped at capacity.
// Caller holds the bucket lock.
func (b *bucket) refillLocked(now time.Time) {
	elapsed := now.Sub(b.lastRefill).Seconds()
	if elapsed > 0 {
		b.tokens += elapsed * b.rate
		if b.tokens > b.capacity {
			b.tokens = b.capacity
		}
	}
	b.lastRefill = now
}

// Acquire blocks until n tokens are available for the exchange, then consumes
// them. It returns immediately with a CapacityError when n exceeds the bucket
// capacity, and with ctx.Err() when the context expires while waiting. The
// bucket lock is never held across a wait.
func (m *Manager) Acquire(ctx context.Context, exchange string, n float64) error {
	b := m.bucketFor(exchange)

	if n > b.capacity {
		b.mu.Lock()
		b.rejections++
		b.mu.Unlock()
		RateLimitRejectionsTotal.WithLabelValues(exchange).Inc()

		return &CapacityError{Exchange: exchange, Requested: n, Capacity: b.capacity}
	}

	start := m.now()

	for {
		b.mu.Lock()
		now := m.now()
		b.refillLocked(now)

		if b.tokens >= n {
			b.tokens -= n
			b.requests++
			remaining := b.tokens
			b.mu.Unlock()

			RateLimitAcquiresTotal.WithLabelValues(exchange).Inc()
			RateLimitWaitSeconds.WithLabelValues(exchange).Observe(m.now().Sub(start).Seconds())
			m.logger.Debug("rate-limit-acquired",
				zap.String("exchange", exchange),
				zap.Float64("tokens", n),
				zap.Float64("remaining", remaining))

			return nil
		}

		// Minimum wait until enough tokens will have accrued. Recomputed
		// each wake rather than busy-looping.
		wait := time.Duration((n - b.tokens) / b.rate * float64(time.Second))
		b.mu.Unlock()

		if wait < time.Millisecond {
			wait = time.Millisecond
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			b.mu.Lock()
			b.rejections++
			b.mu.Unlock()
			RateLimitRejectionsTotal.WithLabelValues(exchange).Inc()
			m.logger.Warn("rate-limit-wait-cancelled",
				zap.String("exchange", exchange),
				zap.Error(ctx.Err()))

			return fmt.Errorf("rate limit wait for %s: %w", exchange, ctx.Err())
		case <-timer.C:
		}
	}
}

// TryAcquire consumes n tokens if immediately available, without waiting.
func (m *Manager) TryAcquire(exchange string, n float64) bool {
	b := m.bucketFor(exchange)

	b.mu.Lock()
	defer b.mu.Unlock()

	b.refillLocked(m.now())

	if n <= b.capacity && b.tokens >= n {
		b.tokens -= n
		b.requests++
		RateLimitAcquiresTotal.WithLabelValues(exchange).Inc()

		return true
	}

	b.rejections++
	RateLimitRejectionsTotal.WithLabelValues(exchange).Inc()

	return false
}

// Stats returns a snapshot of every bucket created so far. Token counts are
// refreshed to the current instant before being reported.
func (m *Manager) Stats() map[string]BucketStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]BucketStats, len(m.buckets))
	now := m.now()

	for id, b := range m.buckets {
		b.mu.Lock()
		b.refillLocked(now)
		out[id] = BucketStats{
			Rate:       b.rate,
			Capacity:   b.capacity,
			Tokens:     b.tokens,
			Requests:   b.requests,
			Rejections: b.rejections,
		}
		b.mu.Unlock()
	}

	return out
}
