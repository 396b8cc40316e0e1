package app

import (
	"fmt"

	"github.com/mselser95/crypto-mcp/internal/tools"
	"github.com/mselser95/crypto-mcp/pkg/config"
	"go.uber.org/zap"
)

// NewToolService wires a standalone tool service without the HTTP surface,
// for one-shot CLI commands. The returned cleanup releases the cache.
func NewToolService(cfg *config.Config, logger *zap.Logger) (*tools.Service, func(), error) {
	dataCache, err := setupCache(cfg, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("setup cache: %w", err)
	}

	limiter, err := setupRateLimiter(cfg, logger)
	if err != nil {
		dataCache.Close()
		return nil, nil, fmt.Errorf("setup rate limiter: %w", err)
	}

	registry := setupRegistry(logger)

	fetchPipeline, err := setupPipeline(cfg, dataCache, limiter, logger)
	if err != nil {
		dataCache.Close()
		return nil, nil, fmt.Errorf("setup pipeline: %w", err)
	}

	return tools.NewService(fetchPipeline, registry, logger), dataCache.Close, nil
}
