package app

import (
	"fmt"
	"time"

	"github.com/mselser95/crypto-mcp/internal/exchange"
	"github.com/mselser95/crypto-mcp/internal/pipeline"
	"github.com/mselser95/crypto-mcp/pkg/cache"
	"github.com/mselser95/crypto-mcp/pkg/config"
	"github.com/mselser95/crypto-mcp/pkg/ratelimit"
	"github.com/mselser95/crypto-mcp/pkg/retry"
	"github.com/mselser95/crypto-mcp/pkg/types"
	"go.uber.org/zap"
)

func setupCache(cfg *config.Config, logger *zap.Logger) (cache.Cache, error) {
	switch cfg.CacheBackend {
	case "ristretto":
		return cache.NewRistrettoCache(&cache.RistrettoConfig{
			NumCounters: int64(cfg.CacheMaxEntries) * 10,
			MaxCost:     int64(cfg.CacheMaxEntries),
			BufferItems: 64,
			Logger:      logger,
		})
	case "memory":
		return cache.NewMemoryCache(&cache.MemoryConfig{
			MaxEntries:    cfg.CacheMaxEntries,
			SweepInterval: cfg.CacheSweepInterval,
			Logger:        logger,
		}), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.CacheBackend)
	}
}

func setupRateLimiter(cfg *config.Config, logger *zap.Logger) (*ratelimit.Manager, error) {
	overrides := make(map[string]ratelimit.Limits, len(cfg.RateLimitOverrides))
	for exch, l := range cfg.RateLimitOverrides {
		overrides[exch] = ratelimit.Limits{Rate: l.Rate, Burst: l.Burst}
	}

	return ratelimit.NewManager(&ratelimit.Config{
		Default: ratelimit.Limits{
			Rate:  cfg.RateLimitDefaultRate,
			Burst: cfg.RateLimitDefaultBurst,
		},
		Overrides: overrides,
		Logger:    logger,
	})
}

func setupRegistry(logger *zap.Logger) *exchange.Registry {
	return exchange.NewRegistry(
		exchange.NewBinanceClient(logger),
		exchange.NewKrakenClient(logger),
	)
}

func setupPipeline(cfg *config.Config, dataCache cache.Cache, limiter *ratelimit.Manager, logger *zap.Logger) (*pipeline.Pipeline, error) {
	return pipeline.New(&pipeline.Config{
		Cache:   dataCache,
		Limiter: limiter,
		Retry: retry.Policy{
			MaxAttempts: cfg.RetryMaxAttempts,
			BaseDelay:   cfg.RetryBaseDelay,
			MaxDelay:    cfg.RetryMaxDelay,
			Logger:      logger,
		},
		TTLs: map[types.Kind]time.Duration{
			types.KindPrice:        cfg.PriceTTL,
			types.KindTicker:       cfg.TickerTTL,
			types.KindOrderBook:    cfg.BookTTL,
			types.KindOHLCV:        cfg.OHLCVTTL,
			types.KindTickers:      cfg.TickerTTL,
			types.KindMarkets:      cfg.MarketsTTL,
			types.KindExchangeInfo: cfg.MarketsTTL,
		},
		DefaultTTL: cfg.DefaultTTL,
		Logger:     logger,
	})
}
