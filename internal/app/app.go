package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/mselser95/crypto-mcp/internal/exchange"
	"github.com/mselser95/crypto-mcp/internal/pipeline"
	"github.com/mselser95/crypto-mcp/internal/tools"
	"github.com/mselser95/crypto-mcp/pkg/cache"
	"github.com/mselser95/crypto-mcp/pkg/config"
	"github.com/mselser95/crypto-mcp/pkg/healthprobe"
	"github.com/mselser95/crypto-mcp/pkg/httpserver"
	"go.uber.org/zap"
)

// App is the main application orchestrator.
type App struct {
	cfg           *config.Config
	logger        *zap.Logger
	healthChecker *healthprobe.HealthChecker
	httpServer    *httpserver.Server
	dataCache     cache.Cache
	registry      *exchange.Registry
	pipeline      *pipeline.Pipeline
	toolService   *tools.Service
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
}

// New creates a new application instance.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	ctx, cancel := context.WithCancel(context.Background())

	healthChecker := healthprobe.New()

	dataCache, err := setupCache(cfg, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup cache: %w", err)
	}

	limiter, err := setupRateLimiter(cfg, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup rate limiter: %w", err)
	}

	registry := setupRegistry(logger)

	fetchPipeline, err := setupPipeline(cfg, dataCache, limiter, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup pipeline: %w", err)
	}

	toolService := tools.NewService(fetchPipeline, registry, logger)
	toolHandler := tools.NewHandler(toolService, logger)

	httpServer := httpserver.New(&httpserver.Config{
		Port:          cfg.HTTPPort,
		Logger:        logger,
		HealthChecker: healthChecker,
		ToolHandler:   toolHandler,
	})

	return &App{
		cfg:           cfg,
		logger:        logger,
		healthChecker: healthChecker,
		httpServer:    httpServer,
		dataCache:     dataCache,
		registry:      registry,
		pipeline:      fetchPipeline,
		toolService:   toolService,
		ctx:           ctx,
		cancel:        cancel,
	}, nil
}
