package exchange

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/mselser95/crypto-mcp/pkg/types"
)

// classifyTransport maps a transport-level failure (the request never got a
// response) onto the error taxonomy. Timeouts and connection failures are
// transient; an already-cancelled context is surfaced as-is so callers can
// distinguish their own deadline from upstream trouble.
func classifyTransport(exchange, op string, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &types.TransientError{
			Exchange: exchange,
			Op:       op,
			Err:      fmt.Errorf("request timed out: %w", err),
		}
	}

	return &types.TransientError{Exchange: exchange, Op: op, Err: err}
}

// classifyStatus maps a non-2xx HTTP response onto the error taxonomy.
func classifyStatus(exchange, op, symbol string, resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return &types.UpstreamRateLimitError{
			Exchange:   exchange,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
			Err:        fmt.Errorf("%s returned status %d", op, resp.StatusCode),
		}
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return &types.AuthError{
			Exchange: exchange,
			Err:      fmt.Errorf("%s returned status %d", op, resp.StatusCode),
		}
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusNotFound:
		return &types.InvalidRequestError{
			Exchange: exchange,
			Field:    "symbol",
			Value:    symbol,
			Reason:   fmt.Sprintf("%s returned status %d", op, resp.StatusCode),
		}
	case resp.StatusCode >= 500:
		return &types.TransientError{
			Exchange: exchange,
			Op:       op,
			Err:      fmt.Errorf("upstream returned status %d", resp.StatusCode),
		}
	default:
		return &types.TransientError{
			Exchange: exchange,
			Op:       op,
			Err:      fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}
}

// parseRetryAfter handles the delta-seconds form of the Retry-After header.
// The HTTP-date form is rare on exchange APIs and is ignored.
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}

	seconds, err := strconv.Atoi(value)
	if err != nil || seconds <= 0 {
		return 0
	}

	return time.Duration(seconds) * time.Second
}
