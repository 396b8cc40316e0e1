package app

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Shutdown gracefully shuts down the application.
func (a *App) Shutdown() error {
	a.logger.Info("application-shutting-down")

	a.healthChecker.SetReady(false)
	a.cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	err := a.httpServer.Shutdown(shutdownCtx)
	if err != nil {
		a.logger.Error("http-server-shutdown-error", zap.Error(err))
	}

	a.wg.Wait()

	// Cache last: in-flight requests may still read from it.
	a.dataCache.Close()

	stats := a.dataCache.Stats()
	a.logger.Info("application-shutdown-complete",
		zap.Uint64("cache-hits", stats.Hits),
		zap.Uint64("cache-misses", stats.Misses))

	return nil
}
