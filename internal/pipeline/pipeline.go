package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/mselser95/crypto-mcp/pkg/cache"
	"github.com/mselser95/crypto-mcp/pkg/ratelimit"
	"github.com/mselser95/crypto-mcp/pkg/retry"
	"github.com/mselser95/crypto-mcp/pkg/types"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// FetchFunc is the upstream data call the pipeline wraps: opaque, possibly
// failing, supplied per request by an exchange client.
type FetchFunc func(ctx context.Context) (interface{}, error)

// Pipeline composes cache lookup, rate limiting and retry around an upstream
// fetch. It is the single entry point data tools go through.
type Pipeline struct {
	cache      cache.Cache
	limiter    *ratelimit.Manager
	policy     retry.Policy
	ttls       map[types.Kind]time.Duration
	defaultTTL time.Duration
	group      singleflight.Group
	logger     *zap.Logger
}

// Config holds pipeline configuration.
type Config struct {
	Cache   cache.Cache
	Limiter *ratelimit.Manager
	Retry   retry.Policy

	// TTLs maps operation kinds to cache lifetimes; kinds not listed use
	// DefaultTTL.
	TTLs       map[types.Kind]time.Duration
	DefaultTTL time.Duration

	Logger *zap.Logger
}

// New creates a fetch pipeline.
func New(cfg *Config) (*Pipeline, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.Cache == nil {
		return nil, fmt.Errorf("cache cannot be nil")
	}
	if cfg.Limiter == nil {
		return nil, fmt.Errorf("limiter cannot be nil")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	defaultTTL := cfg.DefaultTTL
	if defaultTTL <= 0 {
		defaultTTL = 30 * time.Second
	}

	return &Pipeline{
		cache:      cfg.Cache,
		limiter:    cfg.Limiter,
		policy:     cfg.Retry,
		ttls:       cfg.TTLs,
		defaultTTL: defaultTTL,
		logger:     logger,
	}, nil
}

// Fetch resolves one logical request: cache hit returns immediately without
// consuming a rate-limit token; on miss, concurrent callers for the same key
// share a single upstream call, which is rate-limited and retried. Successful
// results are cached with the kind's TTL; failures are never cached.
func (p *Pipeline) Fetch(ctx context.Context, desc types.Descriptor, fn FetchFunc) (interface{}, error) {
	key := desc.CacheKey()
	start := time.Now()

	if value, ok := p.cache.Get(key); ok {
		FetchDuration.WithLabelValues(string(desc.Kind), "hit").Observe(time.Since(start).Seconds())

		return value, nil
	}

	ch := p.group.DoChan(key, func() (interface{}, error) {
		// A concurrent flight may have populated the cache between our
		// miss and joining the group.
		if cached, ok := p.cache.Get(key); ok {
			return cached, nil
		}

		return p.fetchUpstream(ctx, desc, key, fn)
	})

	// A caller joining an in-flight fetch still answers to its own context;
	// the flight keeps running for the remaining waiters.
	select {
	case <-ctx.Done():
		FetchErrorsTotal.WithLabelValues(string(desc.Kind), desc.Exchange).Inc()
		FetchDuration.WithLabelValues(string(desc.Kind), "error").Observe(time.Since(start).Seconds())

		return nil, ctx.Err()
	case res := <-ch:
		if res.Shared {
			FetchSharedTotal.WithLabelValues(string(desc.Kind)).Inc()
		}

		if res.Err != nil {
			FetchErrorsTotal.WithLabelValues(string(desc.Kind), desc.Exchange).Inc()
			FetchDuration.WithLabelValues(string(desc.Kind), "error").Observe(time.Since(start).Seconds())

			return nil, res.Err
		}

		FetchDuration.WithLabelValues(string(desc.Kind), "miss").Observe(time.Since(start).Seconds())

		return res.Val, nil
	}
}

func (p *Pipeline) fetchUpstream(ctx context.Context, desc types.Descriptor, key string, fn FetchFunc) (interface{}, error) {
	err := p.limiter.Acquire(ctx, desc.Exchange, 1)
	if err != nil {
		return nil, fmt.Errorf("acquire rate limit: %w", err)
	}

	var result interface{}

	err = p.policy.Do(ctx, func() error {
		value, fetchErr := fn(ctx)
		if fetchErr != nil {
			return fetchErr
		}
		result = value

		return nil
	})
	if err != nil {
		p.logger.Warn("fetch-failed",
			zap.String("key", key),
			zap.String("exchange", desc.Exchange),
			zap.Error(err))

		return nil, err
	}

	p.cache.Set(key, result, p.ttlFor(desc.Kind))
	p.logger.Debug("fetch-stored",
		zap.String("key", key),
		zap.Duration("ttl", p.ttlFor(desc.Kind)))

	return result, nil
}

// ttlFor returns the configured TTL for a kind, or the default.
func (p *Pipeline) ttlFor(kind types.Kind) time.Duration {
	if ttl, ok := p.ttls[kind]; ok && ttl > 0 {
		return ttl
	}

	return p.defaultTTL
}

// CacheStats exposes the underlying cache counters for the diagnostics tool.
func (p *Pipeline) CacheStats() cache.Stats {
	return p.cache.Stats()
}

// LimiterStats exposes per-exchange bucket snapshots for diagnostics.
func (p *Pipeline) LimiterStats() map[string]ratelimit.BucketStats {
	return p.limiter.Stats()
}
