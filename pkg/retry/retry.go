package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/mselser95/crypto-mcp/pkg/types"
	"go.uber.org/zap"
)

// Policy drives exponential-backoff retries of a fallible operation. The
// policy itself is stateless; per-call attempt state lives on the stack of
// one Do invocation.
type Policy struct {
	MaxAttempts int           // total attempts, including the first
	BaseDelay   time.Duration // delay before the second attempt
	MaxDelay    time.Duration // cap on any single backoff delay; 0 means uncapped
	Multiplier  float64       // backoff growth factor; defaults to 2

	Logger *zap.Logger
}

// Do invokes op, retrying with exponential backoff while the returned error
// is classified retryable and attempts remain. A provider-supplied
// Retry-After hint acts as a floor on the backoff delay, never a shortcut
// below it. Non-retryable errors propagate immediately. Exhausting the
// attempt budget returns the last error wrapped with the attempt count.
func (p Policy) Do(ctx context.Context, op func() error) error {
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	maxAttempts := p.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	multiplier := p.Multiplier
	if multiplier <= 1 {
		multiplier = 2
	}

	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		RetryAttemptsTotal.Inc()

		err := op()
		if err == nil {
			return nil
		}
		lastErr = err

		if !types.IsRetryable(err) {
			logger.Debug("retry-not-retryable", zap.Error(err))

			return err
		}

		if attempt == maxAttempts {
			break
		}

		delay := p.delayFor(attempt)
		if hint := types.RetryAfterHint(err); hint > delay {
			delay = hint
		}

		logger.Warn("retry-backing-off",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", maxAttempts),
			zap.Duration("delay", delay),
			zap.Error(err))

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()

			return fmt.Errorf("retry wait after attempt %d: %w", attempt, ctx.Err())
		case <-timer.C:
		}
	}

	RetryExhaustedTotal.Inc()
	logger.Error("retry-exhausted",
		zap.Int("attempts", maxAttempts),
		zap.Error(lastErr))

	return fmt.Errorf("giving up after %d attempts: %w", maxAttempts, lastErr)
}

// delayFor returns the backoff delay after a failed attempt (counted from 1).
func (p Policy) delayFor(attempt int) time.Duration {
	multiplier := p.Multiplier
	if multiplier <= 1 {
		multiplier = 2
	}

	delay := p.BaseDelay
	for i := 1; i < attempt; i++ {
		delay = time.Duration(float64(delay) * multiplier)
		if p.MaxDelay > 0 && delay >= p.MaxDelay {
			return p.MaxDelay
		}
	}

	if p.MaxDelay > 0 && delay > p.MaxDelay {
		delay = p.MaxDelay
	}

	return delay
}
